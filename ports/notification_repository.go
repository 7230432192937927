package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"openach/models"
)

// NotificationRepository defines the interface for notification data
// operations
type NotificationRepository interface {
	// CreateNotification stores a notification
	CreateNotification(ctx context.Context, notification *models.Notification) error

	// ListUnread returns the recipient's unread notifications, newest
	// first, with the total count for pagination
	ListUnread(ctx context.Context, recipientID uuid.UUID, offset, limit int) ([]*models.Notification, int, error)

	// ListUnreadBetween returns unread notifications with timestamps in
	// (start, end), newest first
	ListUnreadBetween(ctx context.Context, recipientID uuid.UUID, start, end time.Time) ([]*models.Notification, error)

	// CountUnread returns the recipient's unread notification count
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error)

	// MarkAllRead marks every notification for the recipient as read
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) error
}

// NewsRepository manages front-page project news
type NewsRepository interface {
	// CreateNews stores a news item
	CreateNews(ctx context.Context, news *models.ProjectNews) error

	// ListCurrent returns published news items as of now, newest first
	ListCurrent(ctx context.Context, now time.Time, limit int) ([]*models.ProjectNews, error)
}
