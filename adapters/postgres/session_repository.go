package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"openach/internal/errors"
	"openach/models"
	"openach/ports"
)

// SessionRepositoryImpl implements SessionRepository for PostgreSQL
type SessionRepositoryImpl struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(db *sqlx.DB) ports.SessionRepository {
	return &SessionRepositoryImpl{db: db}
}

// CreateSession stores a new session
func (r *SessionRepositoryImpl) CreateSession(ctx context.Context, session *models.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)`,
		session.Token, session.UserID, session.CreatedAt, session.ExpiresAt)
	return err
}

// GetSession retrieves a session by token
func (r *SessionRepositoryImpl) GetSession(ctx context.Context, token string) (*models.Session, error) {
	var session models.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT token, user_id, created_at, expires_at
		FROM sessions
		WHERE token = $1`, token)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("session")
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession removes a session by token
func (r *SessionRepositoryImpl) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

// DeleteExpired removes sessions that expired before now
func (r *SessionRepositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	return int(affected), err
}
