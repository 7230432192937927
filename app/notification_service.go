package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"openach/internal"
	"openach/models"
	"openach/ports"
)

// NotificationService fans out board activity to followers and serves the
// notification inbox
type NotificationService struct {
	notifications ports.NotificationRepository
	followers     ports.FollowerRepository
	permissions   ports.PermissionRepository
	users         ports.UserRepository
	logger        *internal.Logger
}

// NewNotificationService creates a notification service
func NewNotificationService(notifications ports.NotificationRepository, followers ports.FollowerRepository, permissions ports.PermissionRepository, users ports.UserRepository, logger *internal.Logger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		followers:     followers,
		permissions:   permissions,
		users:         users,
		logger:        logger.Named("notifications"),
	}
}

// NotifyFollowers creates a notification for every follower of the board who
// can read it. The actor never receives a notification for their own action.
// Delivery failures for individual followers are logged and skipped so that
// one bad row cannot block the action that triggered the fan-out.
func (s *NotificationService) NotifyFollowers(ctx context.Context, board *models.Board, actor *models.User, verb models.NotificationVerb, objectDesc, objectURL string) error {
	boardFollowers, err := s.followers.ListFollowers(ctx, board.ID)
	if err != nil {
		return err
	}
	if len(boardFollowers) == 0 {
		return nil
	}

	perms, err := s.permissions.GetPermissions(ctx, board.ID)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, follower := range boardFollowers {
		if follower.UserID == actor.ID {
			continue
		}
		recipient, err := s.users.GetUserByID(ctx, follower.UserID)
		if err != nil {
			s.logger.Warn("skipping notification for unknown follower %s: %v", follower.UserID, err)
			continue
		}
		if !perms.CanRead(recipient, board.CreatorID) {
			continue
		}
		notification := &models.Notification{
			ID:          uuid.New(),
			RecipientID: recipient.ID,
			ActorID:     actor.ID,
			ActorName:   actor.Username,
			Verb:        verb,
			ObjectDesc:  objectDesc,
			ObjectURL:   objectURL,
			BoardID:     board.ID,
			BoardTitle:  board.Title,
			Unread:      true,
			Timestamp:   now,
		}
		if err := s.notifications.CreateNotification(ctx, notification); err != nil {
			s.logger.Warn("failed to notify %s: %v", recipient.Username, err)
		}
	}
	return nil
}

// Unread returns a page of the user's unread notifications with the total
// count
func (s *NotificationService) Unread(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*models.Notification, int, error) {
	return s.notifications.ListUnread(ctx, userID, offset, limit)
}

// UnreadCount returns the user's unread notification count
func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.notifications.CountUnread(ctx, userID)
}

// MarkAllRead clears the user's unread notifications
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.notifications.MarkAllRead(ctx, userID)
}
