package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"openach/models"
)

// UserRepository defines the interface for account data operations
type UserRepository interface {
	// CreateUser creates a new account
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves a user by ID
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetUserByUsername retrieves a user by username
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// GetUserByEmail retrieves a user by email address
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// UpdateUser persists account changes
	UpdateUser(ctx context.Context, user *models.User) error

	// GetSettings returns the user's settings, creating defaults if absent
	GetSettings(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error)

	// UpsertSettings persists the user's settings
	UpsertSettings(ctx context.Context, settings *models.UserSettings) error

	// ListDigestSubscribers returns users subscribed at the given digest
	// frequency
	ListDigestSubscribers(ctx context.Context, frequency models.DigestFrequency) ([]*models.User, error)

	// GetDigestStatus returns the digest delivery status for the user, or
	// nil when no digest has been attempted
	GetDigestStatus(ctx context.Context, userID uuid.UUID) (*models.DigestStatus, error)

	// UpsertDigestStatus records a digest attempt; lastSuccess is updated
	// only when success is true
	UpsertDigestStatus(ctx context.Context, userID uuid.UUID, attempt time.Time, success bool) error
}

// SessionRepository manages DB-backed login sessions
type SessionRepository interface {
	// CreateSession stores a new session
	CreateSession(ctx context.Context, session *models.Session) error

	// GetSession retrieves a session by token
	GetSession(ctx context.Context, token string) (*models.Session, error)

	// DeleteSession removes a session by token
	DeleteSession(ctx context.Context, token string) error

	// DeleteExpired removes sessions that expired before now
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
