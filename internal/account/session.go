package account

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
)

// SessionName derives the storage slot for a (user, phone) pair. The digest
// is deterministic, so repeating the pair reuses the same slot, and distinct
// pairs do not collide.
func SessionName(dir string, userID int64, phone string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d_%s", userID, phone)))
	return path.Join(dir, "session_"+hex.EncodeToString(sum[:]))
}
