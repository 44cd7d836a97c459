package account

import (
	"strings"
	"testing"
)

func TestSessionName_deterministic(t *testing.T) {
	a := SessionName("sessions", 42, "+15551234567")
	b := SessionName("sessions", 42, "+15551234567")
	if a != b {
		t.Errorf("same pair should yield the same name: %q != %q", a, b)
	}
	if !strings.HasPrefix(a, "sessions/session_") {
		t.Errorf("unexpected session name shape: %q", a)
	}
}

func TestSessionName_distinctPairs(t *testing.T) {
	a := SessionName("sessions", 42, "+15551234567")
	b := SessionName("sessions", 43, "+15551234567")
	c := SessionName("sessions", 42, "+15559876543")
	if a == b || a == c || b == c {
		t.Error("distinct (user, phone) pairs should yield distinct names")
	}
}
