package repo

import (
	"context"
	"database/sql"
	"fmt"
)

// SessionRepo defines the interface for persisted session handles
type SessionRepo interface {
	Upsert(ctx context.Context, userID int64, phone, sessionRef string) error
	ActiveRef(ctx context.Context, userID int64, phone string) (string, bool, error)
}

type sessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a new SessionRepo instance
func NewSessionRepo(db *sql.DB) SessionRepo {
	return &sessionRepo{db: db}
}

// Upsert stores the session reference for (user, phone), replacing any
// previous handle for the pair.
func (r *sessionRepo) Upsert(ctx context.Context, userID int64, phone, sessionRef string) error {
	query := `
		INSERT INTO account_sessions (user_id, phone_number, session_ref, is_active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (user_id, phone_number) DO UPDATE
		SET session_ref = EXCLUDED.session_ref,
		    is_active = TRUE,
		    created_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, userID, phone, sessionRef); err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

// ActiveRef returns the active session reference for (user, phone), if any.
func (r *sessionRepo) ActiveRef(ctx context.Context, userID int64, phone string) (string, bool, error) {
	query := `
		SELECT session_ref
		FROM account_sessions
		WHERE user_id = $1 AND phone_number = $2 AND is_active = TRUE
	`
	var ref string
	err := r.db.QueryRowContext(ctx, query, userID, phone).Scan(&ref)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to query session: %w", err)
	}
	return ref, true, nil
}
