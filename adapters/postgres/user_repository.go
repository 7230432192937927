package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"openach/internal/errors"
	"openach/models"
	"openach/ports"
)

// uniqueViolationCode is the PostgreSQL error code for unique constraint
// violations
const uniqueViolationCode = "23505"

// uniqueViolation reports whether err is a unique constraint violation
func uniqueViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode
}

// UserRepositoryImpl implements UserRepository for PostgreSQL
type UserRepositoryImpl struct {
	db *sqlx.DB
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sqlx.DB) ports.UserRepository {
	return &UserRepositoryImpl{db: db}
}

// CreateUser creates a new account
func (r *UserRepositoryImpl) CreateUser(ctx context.Context, user *models.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, is_staff, is_active, date_joined)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.IsStaff, user.IsActive, user.DateJoined)
	if err != nil {
		if uniqueViolation(err) {
			return errors.Conflict("username or email already in use")
		}
		return err
	}
	return nil
}

// GetUserByID retrieves a user by ID
func (r *UserRepositoryImpl) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getUser(ctx, `WHERE id = $1`, id)
}

// GetUserByUsername retrieves a user by username
func (r *UserRepositoryImpl) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getUser(ctx, `WHERE username = $1`, username)
}

// GetUserByEmail retrieves a user by email address
func (r *UserRepositoryImpl) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, `WHERE email = $1`, email)
}

func (r *UserRepositoryImpl) getUser(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `
		SELECT id, username, email, password_hash, is_staff, is_active, date_joined
		FROM users `+where, arg)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("user")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser persists account changes
func (r *UserRepositoryImpl) UpdateUser(ctx context.Context, user *models.User) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET username = $2, email = $3, password_hash = $4, is_staff = $5, is_active = $6
		WHERE id = $1`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.IsStaff, user.IsActive)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return errors.NotFound("user")
	}
	return err
}

// GetSettings returns the user's settings, defaulting to a daily digest
// when no row exists yet
func (r *UserRepositoryImpl) GetSettings(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error) {
	var settings models.UserSettings
	err := r.db.GetContext(ctx, &settings, `
		SELECT user_id, digest_frequency FROM user_settings WHERE user_id = $1`, userID)
	if err == sql.ErrNoRows {
		return &models.UserSettings{UserID: userID, DigestFrequency: models.DigestDaily}, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpsertSettings persists the user's settings
func (r *UserRepositoryImpl) UpsertSettings(ctx context.Context, settings *models.UserSettings) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, digest_frequency)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET digest_frequency = EXCLUDED.digest_frequency`,
		settings.UserID, settings.DigestFrequency)
	return err
}

// ListDigestSubscribers returns users subscribed at the given digest
// frequency. Users without a settings row receive the daily default.
func (r *UserRepositoryImpl) ListDigestSubscribers(ctx context.Context, frequency models.DigestFrequency) ([]*models.User, error) {
	query := `
		SELECT u.id, u.username, u.email, u.password_hash, u.is_staff, u.is_active, u.date_joined
		FROM users u
		LEFT JOIN user_settings s ON s.user_id = u.id
		WHERE u.is_active = TRUE AND COALESCE(s.digest_frequency, $2) = $1`

	var users []*models.User
	err := r.db.SelectContext(ctx, &users, query, frequency, models.DigestDaily)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// GetDigestStatus returns the digest delivery status for the user, or nil
// when no digest has been attempted
func (r *UserRepositoryImpl) GetDigestStatus(ctx context.Context, userID uuid.UUID) (*models.DigestStatus, error) {
	var status models.DigestStatus
	err := r.db.GetContext(ctx, &status, `
		SELECT user_id, last_success, last_attempt FROM digest_status WHERE user_id = $1`, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// UpsertDigestStatus records a digest attempt
func (r *UserRepositoryImpl) UpsertDigestStatus(ctx context.Context, userID uuid.UUID, attempt time.Time, success bool) error {
	if success {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO digest_status (user_id, last_success, last_attempt)
			VALUES ($1, $2, $2)
			ON CONFLICT (user_id) DO UPDATE SET last_success = $2, last_attempt = $2`,
			userID, attempt)
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO digest_status (user_id, last_attempt)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET last_attempt = $2`,
		userID, attempt)
	return err
}
