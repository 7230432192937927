package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"openach/models"
	"openach/ports"
)

const notificationColumns = "id, recipient_id, actor_id, actor_name, verb, object_desc, object_url, board_id, board_title, unread, timestamp"

// NotificationRepositoryImpl implements NotificationRepository for
// PostgreSQL
type NotificationRepositoryImpl struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new PostgreSQL notification repository
func NewNotificationRepository(db *sqlx.DB) ports.NotificationRepository {
	return &NotificationRepositoryImpl{db: db}
}

// CreateNotification stores a notification
func (r *NotificationRepositoryImpl) CreateNotification(ctx context.Context, notification *models.Notification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		notification.ID, notification.RecipientID, notification.ActorID, notification.ActorName,
		notification.Verb, notification.ObjectDesc, notification.ObjectURL,
		notification.BoardID, notification.BoardTitle, notification.Unread, notification.Timestamp)
	return err
}

// ListUnread returns the recipient's unread notifications, newest first,
// with the total count for pagination
func (r *NotificationRepositoryImpl) ListUnread(ctx context.Context, recipientID uuid.UUID, offset, limit int) ([]*models.Notification, int, error) {
	total, err := r.CountUnread(ctx, recipientID)
	if err != nil {
		return nil, 0, err
	}

	var notifications []*models.Notification
	err = r.db.SelectContext(ctx, &notifications, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE recipient_id = $1 AND unread = TRUE
		ORDER BY timestamp DESC
		OFFSET $2 LIMIT $3`, recipientID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

// ListUnreadBetween returns unread notifications with timestamps in
// (start, end), newest first
func (r *NotificationRepositoryImpl) ListUnreadBetween(ctx context.Context, recipientID uuid.UUID, start, end time.Time) ([]*models.Notification, error) {
	var notifications []*models.Notification
	err := r.db.SelectContext(ctx, &notifications, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE recipient_id = $1 AND unread = TRUE AND timestamp > $2 AND timestamp < $3
		ORDER BY timestamp DESC`, recipientID, start, end)
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// CountUnread returns the recipient's unread notification count
func (r *NotificationRepositoryImpl) CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM notifications
		WHERE recipient_id = $1 AND unread = TRUE`, recipientID)
	return count, err
}

// MarkAllRead marks every notification for the recipient as read
func (r *NotificationRepositoryImpl) MarkAllRead(ctx context.Context, recipientID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET unread = FALSE
		WHERE recipient_id = $1 AND unread = TRUE`, recipientID)
	return err
}

// NewsRepositoryImpl implements NewsRepository for PostgreSQL
type NewsRepositoryImpl struct {
	db *sqlx.DB
}

// NewNewsRepository creates a new PostgreSQL news repository
func NewNewsRepository(db *sqlx.DB) ports.NewsRepository {
	return &NewsRepositoryImpl{db: db}
}

// CreateNews stores a news item
func (r *NewsRepositoryImpl) CreateNews(ctx context.Context, news *models.ProjectNews) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO project_news (id, content, pub_date, author_id)
		VALUES ($1, $2, $3, $4)`,
		news.ID, news.Content, news.PubDate, news.AuthorID)
	return err
}

// ListCurrent returns published news items as of now, newest first
func (r *NewsRepositoryImpl) ListCurrent(ctx context.Context, now time.Time, limit int) ([]*models.ProjectNews, error) {
	var news []*models.ProjectNews
	err := r.db.SelectContext(ctx, &news, `
		SELECT id, content, pub_date, author_id
		FROM project_news
		WHERE pub_date <= $1
		ORDER BY pub_date DESC
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	return news, nil
}

// HistoryRepositoryImpl implements HistoryRepository for PostgreSQL
type HistoryRepositoryImpl struct {
	db *sqlx.DB
}

// NewHistoryRepository creates a new PostgreSQL history repository
func NewHistoryRepository(db *sqlx.DB) ports.HistoryRepository {
	return &HistoryRepositoryImpl{db: db}
}

// Record appends field change entries
func (r *HistoryRepositoryImpl) Record(ctx context.Context, changes []*models.FieldChange) error {
	for _, change := range changes {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO field_history (id, board_id, object_kind, object_id, field, old_value, new_value, changed_by, changed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			change.ID, change.BoardID, change.ObjectKind, change.ObjectID,
			change.Field, change.OldValue, change.NewValue, change.ChangedBy, change.ChangedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListForBoard returns the history for a board and its elements, newest
// first
func (r *HistoryRepositoryImpl) ListForBoard(ctx context.Context, boardID uuid.UUID) ([]*models.FieldChange, error) {
	var changes []*models.FieldChange
	err := r.db.SelectContext(ctx, &changes, `
		SELECT id, board_id, object_kind, object_id, field, old_value, new_value, changed_by, changed_at
		FROM field_history
		WHERE board_id = $1
		ORDER BY changed_at DESC`, boardID)
	if err != nil {
		return nil, err
	}
	return changes, nil
}
