package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsStaff      bool      `json:"is_staff" db:"is_staff"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	DateJoined   time.Time `json:"date_joined" db:"date_joined"`
}

// Session is a DB-backed login session
type Session struct {
	Token     string    `json:"-" db:"token"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// Expired reports whether the session has expired as of now
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// DigestFrequency is how often a user receives email digests
type DigestFrequency int

const (
	DigestNever DigestFrequency = iota
	DigestDaily
	DigestWeekly
)

// Window returns the time span covered by one digest at this frequency,
// or ok=false for DigestNever.
func (f DigestFrequency) Window() (time.Duration, bool) {
	switch f {
	case DigestDaily:
		return 24 * time.Hour, true
	case DigestWeekly:
		return 7 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

func (f DigestFrequency) String() string {
	switch f {
	case DigestNever:
		return "never"
	case DigestDaily:
		return "daily"
	case DigestWeekly:
		return "weekly"
	default:
		return "unknown"
	}
}

// ParseDigestFrequency maps a frequency name to its value
func ParseDigestFrequency(name string) (DigestFrequency, bool) {
	switch name {
	case "never":
		return DigestNever, true
	case "daily":
		return DigestDaily, true
	case "weekly":
		return DigestWeekly, true
	default:
		return DigestNever, false
	}
}

// UserSettings holds per-account preferences
type UserSettings struct {
	UserID          uuid.UUID       `json:"user_id" db:"user_id"`
	DigestFrequency DigestFrequency `json:"digest_frequency" db:"digest_frequency"`
}

// DigestStatus tracks digest delivery attempts per user
type DigestStatus struct {
	UserID      uuid.UUID  `json:"user_id" db:"user_id"`
	LastSuccess *time.Time `json:"last_success,omitempty" db:"last_success"`
	LastAttempt *time.Time `json:"last_attempt,omitempty" db:"last_attempt"`
}
