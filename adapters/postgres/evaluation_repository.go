package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"openach/internal/errors"
	"openach/models"
	"openach/ports"
)

// EvaluationRepositoryImpl implements EvaluationRepository for PostgreSQL
type EvaluationRepositoryImpl struct {
	db *sqlx.DB
}

// NewEvaluationRepository creates a new PostgreSQL evaluation repository
func NewEvaluationRepository(db *sqlx.DB) ports.EvaluationRepository {
	return &EvaluationRepositoryImpl{db: db}
}

// Apply atomically applies a user's votes for one piece of evidence
func (r *EvaluationRepositoryImpl) Apply(ctx context.Context, boardID, evidenceID, userID uuid.UUID, set map[uuid.UUID]models.Eval, remove []uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	for hypothesisID, value := range set {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO evaluations (id, board_id, hypothesis_id, evidence_id, user_id, value, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
			ON CONFLICT (hypothesis_id, evidence_id, user_id) DO UPDATE SET
				value = EXCLUDED.value,
				timestamp = NOW()`,
			uuid.New(), boardID, hypothesisID, evidenceID, userID, value)
		if err != nil {
			return errors.Wrap(err, "failed to upsert evaluation")
		}
	}

	for _, hypothesisID := range remove {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM evaluations
			WHERE hypothesis_id = $1 AND evidence_id = $2 AND user_id = $3`,
			hypothesisID, evidenceID, userID)
		if err != nil {
			return errors.Wrap(err, "failed to delete evaluation")
		}
	}

	return tx.Commit()
}

// ListForBoard returns every evaluation on the board
func (r *EvaluationRepositoryImpl) ListForBoard(ctx context.Context, boardID uuid.UUID) ([]*models.Evaluation, error) {
	var evaluations []*models.Evaluation
	err := r.db.SelectContext(ctx, &evaluations, `
		SELECT id, board_id, hypothesis_id, evidence_id, user_id, value, timestamp
		FROM evaluations
		WHERE board_id = $1`, boardID)
	if err != nil {
		return nil, err
	}
	return evaluations, nil
}

// ListForUserOnEvidence returns the user's evaluations for one piece of
// evidence
func (r *EvaluationRepositoryImpl) ListForUserOnEvidence(ctx context.Context, boardID, evidenceID, userID uuid.UUID) ([]*models.Evaluation, error) {
	var evaluations []*models.Evaluation
	err := r.db.SelectContext(ctx, &evaluations, `
		SELECT id, board_id, hypothesis_id, evidence_id, user_id, value, timestamp
		FROM evaluations
		WHERE board_id = $1 AND evidence_id = $2 AND user_id = $3`,
		boardID, evidenceID, userID)
	if err != nil {
		return nil, err
	}
	return evaluations, nil
}
