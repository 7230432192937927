package ports

import (
	"context"

	"github.com/google/uuid"

	"openach/models"
)

// HypothesisRepository defines the interface for hypothesis data operations
type HypothesisRepository interface {
	// CreateHypothesis adds a hypothesis to a board
	CreateHypothesis(ctx context.Context, hypothesis *models.Hypothesis) error

	// GetHypothesis retrieves a hypothesis by ID, including removed ones
	GetHypothesis(ctx context.Context, id uuid.UUID) (*models.Hypothesis, error)

	// UpdateHypothesis persists changes to text and removed
	UpdateHypothesis(ctx context.Context, hypothesis *models.Hypothesis) error

	// ListForBoard returns the board's hypotheses in submission order,
	// optionally including removed ones
	ListForBoard(ctx context.Context, boardID uuid.UUID, includeRemoved bool) ([]*models.Hypothesis, error)
}

// EvidenceRepository defines the interface for evidence and source data
// operations
type EvidenceRepository interface {
	// CreateEvidence adds a piece of evidence to a board
	CreateEvidence(ctx context.Context, evidence *models.Evidence) error

	// GetEvidence retrieves evidence by ID, including removed pieces
	GetEvidence(ctx context.Context, id uuid.UUID) (*models.Evidence, error)

	// UpdateEvidence persists changes to description, event date, and
	// removed
	UpdateEvidence(ctx context.Context, evidence *models.Evidence) error

	// ListForBoard returns the board's evidence in submission order,
	// optionally including removed pieces
	ListForBoard(ctx context.Context, boardID uuid.UUID, includeRemoved bool) ([]*models.Evidence, error)

	// CreateSource adds a source to a piece of evidence
	CreateSource(ctx context.Context, source *models.EvidenceSource) error

	// GetSource retrieves a source by ID
	GetSource(ctx context.Context, id uuid.UUID) (*models.EvidenceSource, error)

	// UpdateSource persists changes to a source
	UpdateSource(ctx context.Context, source *models.EvidenceSource) error

	// ListSources returns the non-removed sources for a piece of evidence,
	// most recent source date first
	ListSources(ctx context.Context, evidenceID uuid.UUID) ([]*models.EvidenceSource, error)
}

// SourceTagRepository manages the source tag vocabulary and analyst taggings
type SourceTagRepository interface {
	// ListTags returns the available source tags
	ListTags(ctx context.Context) ([]*models.SourceTag, error)

	// GetTagByName retrieves a tag by its unique name
	GetTagByName(ctx context.Context, name string) (*models.SourceTag, error)

	// ListTaggings returns all analyst taggings for the given sources
	ListTaggings(ctx context.Context, sourceIDs []uuid.UUID) ([]*models.AnalystSourceTag, error)

	// ToggleTagging adds the analyst's tagging if absent, removes it if
	// present, and reports whether the tagging now exists
	ToggleTagging(ctx context.Context, sourceID, taggerID, tagID uuid.UUID) (bool, error)
}

// EvaluationRepository defines the interface for evaluation data operations
type EvaluationRepository interface {
	// Apply atomically applies a user's votes for one piece of evidence:
	// set entries are upserted, remove entries are deleted, hypotheses
	// absent from both keep their previous assessment
	Apply(ctx context.Context, boardID, evidenceID, userID uuid.UUID, set map[uuid.UUID]models.Eval, remove []uuid.UUID) error

	// ListForBoard returns every evaluation on the board
	ListForBoard(ctx context.Context, boardID uuid.UUID) ([]*models.Evaluation, error)

	// ListForUserOnEvidence returns the user's evaluations for one piece
	// of evidence
	ListForUserOnEvidence(ctx context.Context, boardID, evidenceID, userID uuid.UUID) ([]*models.Evaluation, error)
}
