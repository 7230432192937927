package models

import (
	"time"

	"github.com/google/uuid"

	"openach/internal/errors"
)

// Maximum lengths for user-supplied fields. Kept conservative for database
// portability of indexed character columns.
const (
	URLMaxLength               = 255
	EvidenceMaxLength          = 200
	HypothesisMaxLength        = 200
	BoardTitleMaxLength        = 200
	BoardDescMaxLength         = 255
	SourceTitleMaxLength       = 255
	SourceDescriptionMaxLength = 1000
	SlugMaxLength              = 72
)

// Board is an ACH matrix with hypotheses, evidence, and evaluations.
// The title is typically phrased as a question asking about what happened in
// the past, what is happening currently, or what will happen in the future.
type Board struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Title       string     `json:"board_title" db:"title"`
	Slug        string     `json:"board_slug" db:"slug"`
	Description string     `json:"board_desc" db:"description"`
	CreatorID   *uuid.UUID `json:"creator_id,omitempty" db:"creator_id"`
	PubDate     time.Time  `json:"pub_date" db:"pub_date"`
	Removed     bool       `json:"-" db:"removed"`
}

// Validate checks board field lengths and required fields
func (b *Board) Validate() error {
	if b.Title == "" {
		return errors.ValidationError("board title is required")
	}
	if len(b.Title) > BoardTitleMaxLength {
		return errors.ValidationError("board title is too long")
	}
	if b.Description == "" {
		return errors.ValidationError("board description is required")
	}
	if len(b.Description) > BoardDescMaxLength {
		return errors.ValidationError("board description is too long")
	}
	return nil
}

// URL returns the path for viewing the board details, including the slug
// when one is set.
func (b *Board) URL() string {
	if b.Slug != "" {
		return "/boards/" + b.ID.String() + "/" + b.Slug + "/"
	}
	return b.CanonicalURL()
}

// CanonicalURL returns the path for viewing the board details, excluding
// the slug.
func (b *Board) CanonicalURL() string {
	return "/boards/" + b.ID.String() + "/"
}

// WasPublishedRecently reports whether the board was created within the
// last day.
func (b *Board) WasPublishedRecently(now time.Time) bool {
	return !b.PubDate.After(now) && now.Sub(b.PubDate) <= 24*time.Hour
}

// BoardFollower is the follower relationship between a user and a board.
// The role flags record why the user follows the board.
type BoardFollower struct {
	BoardID       uuid.UUID `json:"board_id" db:"board_id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	IsCreator     bool      `json:"is_creator" db:"is_creator"`
	IsContributor bool      `json:"is_contributor" db:"is_contributor"`
	IsEvaluator   bool      `json:"is_evaluator" db:"is_evaluator"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Hypothesis is an ACH matrix hypothesis
type Hypothesis struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	BoardID    uuid.UUID  `json:"board_id" db:"board_id"`
	Text       string     `json:"hypothesis_text" db:"text"`
	CreatorID  *uuid.UUID `json:"creator_id,omitempty" db:"creator_id"`
	SubmitDate time.Time  `json:"submit_date" db:"submit_date"`
	Removed    bool       `json:"-" db:"removed"`
}

// Validate checks hypothesis field constraints
func (h *Hypothesis) Validate() error {
	if h.Text == "" {
		return errors.ValidationError("hypothesis text is required")
	}
	if len(h.Text) > HypothesisMaxLength {
		return errors.ValidationError("hypothesis text is too long")
	}
	return nil
}

// Evidence is a piece of evidence for an ACH matrix. The event date captures
// when the underlying event occurred or started, as opposed to when the
// evidence was added to the board.
type Evidence struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	BoardID     uuid.UUID  `json:"board_id" db:"board_id"`
	Description string     `json:"evidence_desc" db:"description"`
	EventDate   *time.Time `json:"event_date,omitempty" db:"event_date"`
	CreatorID   *uuid.UUID `json:"creator_id,omitempty" db:"creator_id"`
	SubmitDate  time.Time  `json:"submit_date" db:"submit_date"`
	Removed     bool       `json:"-" db:"removed"`
}

// Validate checks evidence field constraints
func (e *Evidence) Validate() error {
	if e.Description == "" {
		return errors.ValidationError("evidence description is required")
	}
	if len(e.Description) > EvidenceMaxLength {
		return errors.ValidationError("evidence description is too long")
	}
	return nil
}

// CanonicalURL returns the path for viewing the evidence details
func (e *Evidence) CanonicalURL() string {
	return "/evidence/" + e.ID.String() + "/"
}

// EvidenceSource is a source (e.g., news article or press release)
// corroborating or conflicting with a piece of evidence.
type EvidenceSource struct {
	ID            uuid.UUID `json:"id" db:"id"`
	EvidenceID    uuid.UUID `json:"evidence_id" db:"evidence_id"`
	URL           string    `json:"source_url" db:"url"`
	Title         string    `json:"source_title" db:"title"`
	Description   string    `json:"source_description" db:"description"`
	SourceDate    time.Time `json:"source_date" db:"source_date"`
	UploaderID    uuid.UUID `json:"uploader_id" db:"uploader_id"`
	Corroborating bool      `json:"corroborating" db:"corroborating"`
	SubmitDate    time.Time `json:"submit_date" db:"submit_date"`
	Removed       bool      `json:"-" db:"removed"`
}

// Validate checks source field constraints
func (s *EvidenceSource) Validate() error {
	if s.URL == "" {
		return errors.ValidationError("source URL is required")
	}
	if len(s.URL) > URLMaxLength {
		return errors.ValidationError("source URL is too long")
	}
	if len(s.Title) > SourceTitleMaxLength {
		return errors.ValidationError("source title is too long")
	}
	if len(s.Description) > SourceDescriptionMaxLength {
		return errors.ValidationError("source description is too long")
	}
	return nil
}

// SourceTag is a tag that an analyst can apply to an evidence source
type SourceTag struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"tag_name" db:"name"`
	Description string    `json:"tag_desc" db:"description"`
}

// AnalystSourceTag is an instance of an analyst tagging an evidence source
type AnalystSourceTag struct {
	ID       uuid.UUID `json:"id" db:"id"`
	SourceID uuid.UUID `json:"source_id" db:"source_id"`
	TaggerID uuid.UUID `json:"tagger_id" db:"tagger_id"`
	TagID    uuid.UUID `json:"tag_id" db:"tag_id"`
	TagDate  time.Time `json:"tag_date" db:"tag_date"`
}
