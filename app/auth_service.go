package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"openach/internal"
	"openach/internal/config"
	"openach/internal/errors"
	"openach/models"
	"openach/ports"
)

const (
	usernameMaxLength = 150
	passwordMinLength = 8
	sessionTokenBytes = 32
)

// AuthService handles registration, login, and DB-backed sessions
type AuthService struct {
	users    ports.UserRepository
	sessions ports.SessionRepository
	site     config.SiteConfig
	logger   *internal.Logger
}

// NewAuthService creates an auth service
func NewAuthService(users ports.UserRepository, sessions ports.SessionRepository, site config.SiteConfig, logger *internal.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		site:     site,
		logger:   logger.Named("auth"),
	}
}

// Register creates a new account. When the site runs in invite-required
// mode, open signup is disabled and accounts are provisioned by staff.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if s.site.InviteRequired {
		return nil, errors.PermissionDenied("registration on this site is by invitation only")
	}
	if username == "" || len(username) > usernameMaxLength {
		return nil, errors.ValidationError("username must be between 1 and 150 characters")
	}
	if !strings.Contains(email, "@") {
		return nil, errors.ValidationError("a valid email address is required")
	}
	if len(password) < passwordMinLength {
		return nil, errors.ValidationError("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
		DateJoined:   time.Now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("registered %s", username)
	return user, nil
}

// Login verifies the credentials and issues a session
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, *models.Session, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		// Same response for unknown users and bad passwords
		return nil, nil, errors.Unauthenticated("invalid username or password")
	}
	if !user.IsActive {
		return nil, nil, errors.Unauthenticated("this account is disabled")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, errors.Unauthenticated("invalid username or password")
	}

	session, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// Logout removes the session
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.DeleteSession(ctx, token)
}

// UserForSession resolves the session token to its user. Expired sessions
// are deleted on sight.
func (s *AuthService) UserForSession(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, errors.Unauthenticated("no session")
	}
	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		return nil, errors.Unauthenticated("no session")
	}
	if session.Expired(time.Now()) {
		if err := s.sessions.DeleteSession(ctx, token); err != nil {
			s.logger.Warn("failed to delete expired session: %v", err)
		}
		return nil, errors.Unauthenticated("session expired")
	}
	user, err := s.users.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, errors.Unauthenticated("no session")
	}
	if !user.IsActive {
		return nil, errors.Unauthenticated("this account is disabled")
	}
	return user, nil
}

// PruneSessions deletes expired sessions and returns how many were removed
func (s *AuthService) PruneSessions(ctx context.Context) (int, error) {
	return s.sessions.DeleteExpired(ctx, time.Now())
}

// Settings returns the user's settings
func (s *AuthService) Settings(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error) {
	return s.users.GetSettings(ctx, userID)
}

// UpdateSettings persists the user's settings
func (s *AuthService) UpdateSettings(ctx context.Context, settings *models.UserSettings) error {
	return s.users.UpsertSettings(ctx, settings)
}

func (s *AuthService) issueSession(ctx context.Context, userID uuid.UUID) (*models.Session, error) {
	raw := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, errors.Wrap(err, "failed to generate session token")
	}
	now := time.Now()
	session := &models.Session{
		Token:     hex.EncodeToString(raw),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.site.SessionTTL),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}
