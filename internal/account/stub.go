package account

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// StubDialer implements Dialer in-memory for development runs and tests.
// Every connection accepts a fixed code; when password is non-empty the
// account behaves as if two-factor auth is enabled.
type StubDialer struct {
	code     string
	password string

	mu         sync.Mutex
	authorized map[string]bool // by session ref
}

// NewStubDialer creates a stub provider accepting the given code. An empty
// password disables the two-factor step.
func NewStubDialer(code, password string) *StubDialer {
	return &StubDialer{
		code:       code,
		password:   password,
		authorized: make(map[string]bool),
	}
}

// Dial opens a stub connection bound to sessionRef.
func (d *StubDialer) Dial(ctx context.Context, sessionRef string) (Client, error) {
	return &stubClient{dialer: d, sessionRef: sessionRef}, nil
}

type stubClient struct {
	dialer     *StubDialer
	sessionRef string
	phone      string
	codeToken  string
	codeOK     bool
	closed     bool
}

func (c *stubClient) IsAuthorized(ctx context.Context) (bool, error) {
	c.dialer.mu.Lock()
	defer c.dialer.mu.Unlock()
	return c.dialer.authorized[c.sessionRef], nil
}

func (c *stubClient) RequestCode(ctx context.Context, phone string) (string, error) {
	if !strings.HasPrefix(phone, "+") {
		return "", ErrPhoneInvalid
	}
	c.phone = phone
	c.codeToken = uuid.NewString()
	return c.codeToken, nil
}

func (c *stubClient) SignInWithCode(ctx context.Context, phone, code, codeToken string) (*Identity, error) {
	if codeToken != c.codeToken {
		return nil, ErrCodeExpired
	}
	if code != c.dialer.code {
		return nil, ErrCodeInvalid
	}
	if c.dialer.password != "" && !c.codeOK {
		c.codeOK = true
		return nil, ErrTwoFactorRequired
	}
	return c.finish(phone)
}

func (c *stubClient) SignInWithPassword(ctx context.Context, password string) (*Identity, error) {
	if !c.codeOK {
		return nil, ErrPasswordInvalid
	}
	if password != c.dialer.password {
		return nil, ErrPasswordInvalid
	}
	return c.finish(c.phone)
}

func (c *stubClient) finish(phone string) (*Identity, error) {
	c.dialer.mu.Lock()
	c.dialer.authorized[c.sessionRef] = true
	c.dialer.mu.Unlock()
	return &Identity{ID: 1, Username: "stub", Phone: phone}, nil
}

func (c *stubClient) Disconnect() error {
	c.closed = true
	return nil
}
