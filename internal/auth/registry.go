// Package auth sequences the three-step remote login protocol and tracks
// in-flight attempts per user.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"accmgr-telebot/internal/account"
	"accmgr-telebot/internal/model"
)

// ErrNoPendingAuth indicates that no login attempt is in flight for the user.
var ErrNoPendingAuth = errors.New("no pending authentication")

// Store is the slice of the record store the registry writes on protocol
// outcomes.
type Store interface {
	UpdatePhoneStatus(ctx context.Context, recordID int64, status model.PhoneStatus, authenticated bool) error
	UpsertSession(ctx context.Context, userID int64, phone, sessionRef string) error
}

// BeginStatus is the result of starting a login flow.
type BeginStatus int

const (
	// BeginCodeSent means a verification code was requested and the attempt
	// is now pending.
	BeginCodeSent BeginStatus = iota
	// BeginAlreadyAuthorized means the stored session is still signed in and
	// no code exchange is needed.
	BeginAlreadyAuthorized
)

// Outcome classifies a sign-in attempt.
type Outcome int

const (
	// OutcomeSuccess means the account is signed in and the session persisted.
	OutcomeSuccess Outcome = iota
	// OutcomeTwoFactorRequired means the code was accepted but the account
	// password is still needed. The attempt stays pending.
	OutcomeTwoFactorRequired
	// OutcomeCodeInvalid means the code was wrong; the user may retry.
	OutcomeCodeInvalid
	// OutcomeCodeExpired means the code is no longer valid; the user may retry.
	OutcomeCodeExpired
	// OutcomePasswordInvalid means the two-factor password was wrong. The
	// attempt is abandoned.
	OutcomePasswordInvalid
	// OutcomeFailed covers unexpected provider failures. Details are logged,
	// never surfaced.
	OutcomeFailed
)

// SignInResult carries the outcome of SubmitCode / SubmitTwoFactor.
type SignInResult struct {
	Outcome  Outcome
	Identity *account.Identity
}

type pendingAuth struct {
	userID       int64
	phone        string
	recordID     int64
	client       account.Client
	codeToken    string
	sessionRef   string
	lastActivity time.Time
}

// Registry holds at most one in-flight login attempt per user and drives the
// phone → code → 2FA sequence against the account client. It is safe for
// concurrent use.
type Registry struct {
	dialer     account.Dialer
	store      Store
	sessionDir string
	logger     *zap.Logger
	ttl        time.Duration
	now        func() time.Time

	mu      sync.Mutex
	pending map[int64]*pendingAuth
}

// NewRegistry constructs a Registry. ttl bounds how long an abandoned
// attempt is kept before Sweep or a lookup drops it.
func NewRegistry(dialer account.Dialer, store Store, sessionDir string, ttl time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		dialer:     dialer,
		store:      store,
		sessionDir: sessionDir,
		logger:     logger,
		ttl:        ttl,
		now:        func() time.Time { return time.Now().UTC() },
		pending:    make(map[int64]*pendingAuth),
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (r *Registry) WithClock(clock func() time.Time) {
	if clock != nil {
		r.now = clock
	}
}

// Begin connects to the account network for phone and requests a one-time
// code, recording the attempt under userID. A prior attempt for the same
// user is replaced; its connection is closed first. Provider failures are
// returned as account.ErrPhoneInvalid, *account.RateLimitError, or a wrapped
// error for anything else.
func (r *Registry) Begin(ctx context.Context, userID, recordID int64, phone string) (BeginStatus, error) {
	sessionRef := account.SessionName(r.sessionDir, userID, phone)

	client, err := r.dialer.Dial(ctx, sessionRef)
	if err != nil {
		return 0, fmt.Errorf("connect account client: %w", err)
	}

	authorized, err := client.IsAuthorized(ctx)
	if err != nil {
		_ = client.Disconnect()
		return 0, fmt.Errorf("check authorization: %w", err)
	}
	if authorized {
		_ = client.Disconnect()
		if err := r.persist(ctx, userID, recordID, phone, sessionRef); err != nil {
			return 0, err
		}
		r.logger.Info("session already authorized", zap.Int64("user_id", userID))
		return BeginAlreadyAuthorized, nil
	}

	codeToken, err := client.RequestCode(ctx, phone)
	if err != nil {
		_ = client.Disconnect()
		return 0, err
	}

	r.mu.Lock()
	if old, ok := r.pending[userID]; ok {
		_ = old.client.Disconnect()
	}
	r.pending[userID] = &pendingAuth{
		userID:       userID,
		phone:        phone,
		recordID:     recordID,
		client:       client,
		codeToken:    codeToken,
		sessionRef:   sessionRef,
		lastActivity: r.now(),
	}
	r.mu.Unlock()

	r.logger.Info("verification code requested", zap.Int64("user_id", userID))
	return BeginCodeSent, nil
}

// SubmitCode completes sign-in with the delivered code. The pending attempt
// survives retryable outcomes (wrong or expired code, two-factor required)
// and is removed on success.
func (r *Registry) SubmitCode(ctx context.Context, userID int64, code string) (SignInResult, error) {
	p := r.lookup(userID)
	if p == nil {
		return SignInResult{}, ErrNoPendingAuth
	}

	identity, err := p.client.SignInWithCode(ctx, p.phone, code, p.codeToken)
	switch {
	case err == nil:
		perr := r.persist(ctx, p.userID, p.recordID, p.phone, p.sessionRef)
		r.remove(userID)
		if perr != nil {
			return SignInResult{}, perr
		}
		r.logger.Info("sign-in successful", zap.Int64("user_id", userID))
		return SignInResult{Outcome: OutcomeSuccess, Identity: identity}, nil
	case errors.Is(err, account.ErrTwoFactorRequired):
		r.touch(userID)
		return SignInResult{Outcome: OutcomeTwoFactorRequired}, nil
	case errors.Is(err, account.ErrCodeInvalid):
		r.touch(userID)
		return SignInResult{Outcome: OutcomeCodeInvalid}, nil
	case errors.Is(err, account.ErrCodeExpired):
		r.touch(userID)
		return SignInResult{Outcome: OutcomeCodeExpired}, nil
	default:
		r.touch(userID)
		r.logger.Error("code sign-in failed", zap.Int64("user_id", userID), zap.Error(err))
		return SignInResult{Outcome: OutcomeFailed}, nil
	}
}

// SubmitTwoFactor completes sign-in with the account password. Any failure
// abandons the attempt: the entry is removed and its connection closed.
func (r *Registry) SubmitTwoFactor(ctx context.Context, userID int64, password string) (SignInResult, error) {
	p := r.lookup(userID)
	if p == nil {
		return SignInResult{}, ErrNoPendingAuth
	}

	identity, err := p.client.SignInWithPassword(ctx, password)
	if err != nil {
		r.remove(userID)
		if errors.Is(err, account.ErrPasswordInvalid) {
			return SignInResult{Outcome: OutcomePasswordInvalid}, nil
		}
		r.logger.Error("two-factor sign-in failed", zap.Int64("user_id", userID), zap.Error(err))
		return SignInResult{Outcome: OutcomeFailed}, nil
	}

	perr := r.persist(ctx, p.userID, p.recordID, p.phone, p.sessionRef)
	r.remove(userID)
	if perr != nil {
		return SignInResult{}, perr
	}
	r.logger.Info("two-factor sign-in successful", zap.Int64("user_id", userID))
	return SignInResult{Outcome: OutcomeSuccess, Identity: identity}, nil
}

// HasPending reports whether a login attempt is in flight for the user.
func (r *Registry) HasPending(userID int64) bool {
	return r.lookup(userID) != nil
}

// Sweep drops attempts idle past the TTL and closes their connections.
// Returns the number of dropped entries.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	dropped := 0
	for userID, p := range r.pending {
		if p.lastActivity.Before(cutoff) {
			_ = p.client.Disconnect()
			delete(r.pending, userID)
			dropped++
		}
	}
	if dropped > 0 {
		r.logger.Info("expired pending authentications dropped", zap.Int("count", dropped))
	}
	return dropped
}

func (r *Registry) persist(ctx context.Context, userID, recordID int64, phone, sessionRef string) error {
	if err := r.store.UpsertSession(ctx, userID, phone, sessionRef); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	if err := r.store.UpdatePhoneStatus(ctx, recordID, model.StatusAuthenticated, true); err != nil {
		return fmt.Errorf("mark phone authenticated: %w", err)
	}
	return nil
}

// lookup returns the live attempt for userID, lazily expiring stale entries.
func (r *Registry) lookup(userID int64) *pendingAuth {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pending[userID]
	if !ok {
		return nil
	}
	if r.now().Sub(p.lastActivity) > r.ttl {
		_ = p.client.Disconnect()
		delete(r.pending, userID)
		return nil
	}
	return p
}

func (r *Registry) touch(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pending[userID]; ok {
		p.lastActivity = r.now()
	}
}

func (r *Registry) remove(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pending[userID]; ok {
		_ = p.client.Disconnect()
		delete(r.pending, userID)
	}
}
