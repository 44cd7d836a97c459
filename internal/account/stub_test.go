package account

import (
	"context"
	"errors"
	"testing"
)

func TestStubDialer_codeFlow(t *testing.T) {
	d := NewStubDialer("13579", "")
	client, err := d.Dial(context.Background(), "sessions/session_a")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	if ok, _ := client.IsAuthorized(context.Background()); ok {
		t.Fatal("fresh session should not be authorized")
	}

	token, err := client.RequestCode(context.Background(), "+15551234567")
	if err != nil {
		t.Fatalf("request code: %v", err)
	}

	if _, err := client.SignInWithCode(context.Background(), "+15551234567", "00000", token); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("wrong code should fail with ErrCodeInvalid, got %v", err)
	}
	if _, err := client.SignInWithCode(context.Background(), "+15551234567", "13579", "stale"); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("stale token should fail with ErrCodeExpired, got %v", err)
	}

	identity, err := client.SignInWithCode(context.Background(), "+15551234567", "13579", token)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if identity.Phone != "+15551234567" {
		t.Errorf("unexpected identity phone %q", identity.Phone)
	}

	// The session slot stays authorized for later dials.
	again, _ := d.Dial(context.Background(), "sessions/session_a")
	if ok, _ := again.IsAuthorized(context.Background()); !ok {
		t.Error("session should be authorized after sign-in")
	}
}

func TestStubDialer_twoFactorFlow(t *testing.T) {
	d := NewStubDialer("13579", "hunter2")
	client, _ := d.Dial(context.Background(), "sessions/session_b")

	token, err := client.RequestCode(context.Background(), "+15551234567")
	if err != nil {
		t.Fatalf("request code: %v", err)
	}

	if _, err := client.SignInWithCode(context.Background(), "+15551234567", "13579", token); !errors.Is(err, ErrTwoFactorRequired) {
		t.Fatalf("expected ErrTwoFactorRequired, got %v", err)
	}
	if _, err := client.SignInWithPassword(context.Background(), "wrong"); !errors.Is(err, ErrPasswordInvalid) {
		t.Fatalf("expected ErrPasswordInvalid, got %v", err)
	}
	if _, err := client.SignInWithPassword(context.Background(), "hunter2"); err != nil {
		t.Fatalf("password sign in: %v", err)
	}
}

func TestStubDialer_rejectsMalformedPhone(t *testing.T) {
	d := NewStubDialer("13579", "")
	client, _ := d.Dial(context.Background(), "sessions/session_c")
	if _, err := client.RequestCode(context.Background(), "15551234567"); !errors.Is(err, ErrPhoneInvalid) {
		t.Fatalf("expected ErrPhoneInvalid, got %v", err)
	}
}
