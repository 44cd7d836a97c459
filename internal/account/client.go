// Package account abstracts the remote login primitives for one
// phone-based messaging account: connect, request a one-time code, sign in
// with the code or a second-factor password.
package account

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrPhoneInvalid indicates the provider rejected the phone number format.
	ErrPhoneInvalid = errors.New("invalid phone number")
	// ErrCodeInvalid indicates the verification code was wrong.
	ErrCodeInvalid = errors.New("invalid verification code")
	// ErrCodeExpired indicates the verification code is no longer valid.
	ErrCodeExpired = errors.New("verification code expired")
	// ErrTwoFactorRequired signals that sign-in needs the account password.
	ErrTwoFactorRequired = errors.New("two-factor password required")
	// ErrPasswordInvalid indicates the two-factor password was wrong.
	ErrPasswordInvalid = errors.New("invalid two-factor password")
)

// RateLimitError is returned when the provider throttles code requests.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// Identity describes the account owner after a successful sign-in.
type Identity struct {
	ID        int64
	Username  string
	FirstName string
	Phone     string
}

// Client is a live connection to the account network for one session.
type Client interface {
	// IsAuthorized reports whether the underlying session is already signed in.
	IsAuthorized(ctx context.Context) (bool, error)
	// RequestCode asks the provider to deliver a one-time code to phone and
	// returns the server-issued correlation token for the code.
	RequestCode(ctx context.Context, phone string) (string, error)
	// SignInWithCode completes sign-in using the delivered code. Returns
	// ErrTwoFactorRequired when the account has a password set.
	SignInWithCode(ctx context.Context, phone, code, codeToken string) (*Identity, error)
	// SignInWithPassword completes sign-in with the account password after
	// ErrTwoFactorRequired.
	SignInWithPassword(ctx context.Context, password string) (*Identity, error)
	// Disconnect closes the connection. Safe to call more than once.
	Disconnect() error
}

// Dialer opens clients bound to a named session, creating the session
// storage slot if it does not exist yet.
type Dialer interface {
	Dial(ctx context.Context, sessionRef string) (Client, error)
}
