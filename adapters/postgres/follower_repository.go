package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"openach/models"
	"openach/ports"
)

// FollowerRepositoryImpl implements FollowerRepository for PostgreSQL
type FollowerRepositoryImpl struct {
	db *sqlx.DB
}

// NewFollowerRepository creates a new PostgreSQL follower repository
func NewFollowerRepository(db *sqlx.DB) ports.FollowerRepository {
	return &FollowerRepositoryImpl{db: db}
}

// UpsertFollower creates or updates a follower row. Role flags never revert
// to false here: once a contributor, always a contributor.
func (r *FollowerRepositoryImpl) UpsertFollower(ctx context.Context, follower *models.BoardFollower) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO board_followers (board_id, user_id, is_creator, is_contributor, is_evaluator, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (board_id, user_id) DO UPDATE SET
			is_creator = board_followers.is_creator OR EXCLUDED.is_creator,
			is_contributor = board_followers.is_contributor OR EXCLUDED.is_contributor,
			is_evaluator = board_followers.is_evaluator OR EXCLUDED.is_evaluator,
			updated_at = NOW()`,
		follower.BoardID, follower.UserID, follower.IsCreator, follower.IsContributor, follower.IsEvaluator)
	return err
}

// ListFollowers returns the followers of a board
func (r *FollowerRepositoryImpl) ListFollowers(ctx context.Context, boardID uuid.UUID) ([]*models.BoardFollower, error) {
	var followers []*models.BoardFollower
	err := r.db.SelectContext(ctx, &followers, `
		SELECT board_id, user_id, is_creator, is_contributor, is_evaluator, updated_at
		FROM board_followers
		WHERE board_id = $1`, boardID)
	if err != nil {
		return nil, err
	}
	return followers, nil
}

// IsFollower reports whether the user follows the board
func (r *FollowerRepositoryImpl) IsFollower(ctx context.Context, boardID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM board_followers WHERE board_id = $1 AND user_id = $2
		)`, boardID, userID)
	return exists, err
}
