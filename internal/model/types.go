package model

import "time"

// PhoneStatus is the authentication status of a submitted phone number.
type PhoneStatus string

const (
	StatusPending       PhoneStatus = "pending"
	StatusAuthenticated PhoneStatus = "authenticated"
	StatusFailed        PhoneStatus = "failed"
)

// User is a bot user. The ID is the Telegram-assigned user identifier.
type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	IsActive  bool
	CreatedAt time.Time
}

// PhoneNumber is one phone-number submission by a user. A user may submit
// the same number more than once; each submission gets its own row.
type PhoneNumber struct {
	ID              int64
	UserID          int64
	Phone           string
	IsAuthenticated bool
	Status          PhoneStatus
	AddedAt         time.Time
	LastLogin       *time.Time
}

// SessionHandle is the durable reference to a completed account login.
// At most one active handle exists per (user, phone) pair.
type SessionHandle struct {
	ID         int64
	UserID     int64
	Phone      string
	SessionRef string
	IsActive   bool
	CreatedAt  time.Time
}
