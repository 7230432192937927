package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"openach/models"
)

// BoardRepository defines the interface for board data operations. Viewer
// arguments drive permission filtering: a nil viewer is anonymous and sees
// only public boards, staff see everything.
type BoardRepository interface {
	// CreateBoard atomically creates a board together with its permission
	// scheme and seed hypotheses
	CreateBoard(ctx context.Context, board *models.Board, perms *models.BoardPermissions, seed []*models.Hypothesis) error

	// GetBoard retrieves a board by ID, excluding removed boards
	GetBoard(ctx context.Context, id uuid.UUID) (*models.Board, error)

	// UpdateBoard persists changes to title, description, slug, and removed
	UpdateBoard(ctx context.Context, board *models.Board) error

	// ListReadable returns boards the viewer can read, most recently
	// published first, with the total count for pagination
	ListReadable(ctx context.Context, viewer *models.User, offset, limit int) ([]*models.Board, int, error)

	// LatestReadable returns the most recently published readable boards
	LatestReadable(ctx context.Context, viewer *models.User, limit int) ([]*models.Board, error)

	// ReadableCreatedBetween returns readable boards published in
	// (start, end), excluding those created by the viewer
	ReadableCreatedBetween(ctx context.Context, viewer *models.User, start, end time.Time) ([]*models.Board, error)

	// Search returns readable boards whose title or description contains
	// the query substring, up to limit
	Search(ctx context.Context, viewer *models.User, query string, limit int) ([]*models.Board, error)

	// BoardsCreatedBy returns boards created by userID that the viewer can
	// read, most recently created first
	BoardsCreatedBy(ctx context.Context, userID uuid.UUID, viewer *models.User) ([]*models.Board, error)

	// BoardsContributedTo returns boards userID added hypotheses or
	// evidence to, most recent contribution first, de-duplicated
	BoardsContributedTo(ctx context.Context, userID uuid.UUID, viewer *models.User) ([]*models.Board, error)

	// BoardsEvaluated returns boards userID voted on, most recently
	// evaluated first, de-duplicated
	BoardsEvaluated(ctx context.Context, userID uuid.UUID, viewer *models.User) ([]*models.Board, error)

	// ContributorCounts maps board IDs to the number of distinct users who
	// added a hypothesis or piece of evidence
	ContributorCounts(ctx context.Context) (map[uuid.UUID]int, error)

	// EvaluatorCounts maps board IDs to the number of distinct voters
	EvaluatorCounts(ctx context.Context) (map[uuid.UUID]int, error)
}

// PermissionRepository manages per-board authorization schemes
type PermissionRepository interface {
	// GetPermissions returns the permission scheme for a board, including
	// its collaborator set
	GetPermissions(ctx context.Context, boardID uuid.UUID) (*models.BoardPermissions, error)

	// UpdatePermissions persists the permission levels and replaces the
	// collaborator set
	UpdatePermissions(ctx context.Context, perms *models.BoardPermissions) error
}

// FollowerRepository manages board follower relationships
type FollowerRepository interface {
	// UpsertFollower creates or updates a follower row; role flags that are
	// set on follower are OR-ed into the stored row
	UpsertFollower(ctx context.Context, follower *models.BoardFollower) error

	// ListFollowers returns the followers of a board
	ListFollowers(ctx context.Context, boardID uuid.UUID) ([]*models.BoardFollower, error)

	// IsFollower reports whether the user follows the board
	IsFollower(ctx context.Context, boardID, userID uuid.UUID) (bool, error)
}

// HistoryRepository records field-level modification history for boards and
// their elements
type HistoryRepository interface {
	// Record appends field change entries
	Record(ctx context.Context, changes []*models.FieldChange) error

	// ListForBoard returns the history for a board and its elements,
	// newest first
	ListForBoard(ctx context.Context, boardID uuid.UUID) ([]*models.FieldChange, error)
}
