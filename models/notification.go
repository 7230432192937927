package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationVerb describes the action that triggered a notification
type NotificationVerb string

const (
	VerbAdded  NotificationVerb = "added"
	VerbEdited NotificationVerb = "edited"
)

// Notification records an action on a followed board for a recipient.
// ObjectDesc and ObjectURL describe the hypothesis, evidence, or source the
// actor touched so the notification stays renderable even if the object is
// later removed.
type Notification struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	RecipientID uuid.UUID        `json:"recipient_id" db:"recipient_id"`
	ActorID     uuid.UUID        `json:"actor_id" db:"actor_id"`
	ActorName   string           `json:"actor_name" db:"actor_name"`
	Verb        NotificationVerb `json:"verb" db:"verb"`
	ObjectDesc  string           `json:"object_desc" db:"object_desc"`
	ObjectURL   string           `json:"object_url" db:"object_url"`
	BoardID     uuid.UUID        `json:"board_id" db:"board_id"`
	BoardTitle  string           `json:"board_title" db:"board_title"`
	Unread      bool             `json:"unread" db:"unread"`
	Timestamp   time.Time        `json:"timestamp" db:"timestamp"`
}

// ProjectNews is a news alert for the front page. Content is markdown.
type ProjectNews struct {
	ID       uuid.UUID  `json:"id" db:"id"`
	Content  string     `json:"content" db:"content"`
	PubDate  time.Time  `json:"pub_date" db:"pub_date"`
	AuthorID *uuid.UUID `json:"author_id,omitempty" db:"author_id"`
}

// FieldChange is one entry in a board's modification history
type FieldChange struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	BoardID    uuid.UUID  `json:"board_id" db:"board_id"`
	ObjectKind string     `json:"object_kind" db:"object_kind"`
	ObjectID   uuid.UUID  `json:"object_id" db:"object_id"`
	Field      string     `json:"field" db:"field"`
	OldValue   string     `json:"old_value" db:"old_value"`
	NewValue   string     `json:"new_value" db:"new_value"`
	ChangedBy  *uuid.UUID `json:"changed_by,omitempty" db:"changed_by"`
	ChangedAt  time.Time  `json:"changed_at" db:"changed_at"`
}

// Object kinds recorded in the field history
const (
	HistoryKindBoard      = "board"
	HistoryKindHypothesis = "hypothesis"
	HistoryKindEvidence   = "evidence"
)
