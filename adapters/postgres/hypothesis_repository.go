package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"openach/internal/errors"
	"openach/models"
	"openach/ports"
)

// HypothesisRepositoryImpl implements HypothesisRepository for PostgreSQL
type HypothesisRepositoryImpl struct {
	db *sqlx.DB
}

// NewHypothesisRepository creates a new PostgreSQL hypothesis repository
func NewHypothesisRepository(db *sqlx.DB) ports.HypothesisRepository {
	return &HypothesisRepositoryImpl{db: db}
}

// CreateHypothesis adds a hypothesis to a board
func (r *HypothesisRepositoryImpl) CreateHypothesis(ctx context.Context, hypothesis *models.Hypothesis) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO hypotheses (id, board_id, text, creator_id, submit_date, removed)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		hypothesis.ID, hypothesis.BoardID, hypothesis.Text, hypothesis.CreatorID,
		hypothesis.SubmitDate, hypothesis.Removed)
	return err
}

// GetHypothesis retrieves a hypothesis by ID, including removed ones
func (r *HypothesisRepositoryImpl) GetHypothesis(ctx context.Context, id uuid.UUID) (*models.Hypothesis, error) {
	var hypothesis models.Hypothesis
	err := r.db.GetContext(ctx, &hypothesis, `
		SELECT id, board_id, text, creator_id, submit_date, removed
		FROM hypotheses
		WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("hypothesis")
	}
	if err != nil {
		return nil, err
	}
	return &hypothesis, nil
}

// UpdateHypothesis persists changes to text and removed
func (r *HypothesisRepositoryImpl) UpdateHypothesis(ctx context.Context, hypothesis *models.Hypothesis) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE hypotheses SET text = $2, removed = $3
		WHERE id = $1`,
		hypothesis.ID, hypothesis.Text, hypothesis.Removed)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return errors.NotFound("hypothesis")
	}
	return err
}

// ListForBoard returns the board's hypotheses in submission order
func (r *HypothesisRepositoryImpl) ListForBoard(ctx context.Context, boardID uuid.UUID, includeRemoved bool) ([]*models.Hypothesis, error) {
	query := `
		SELECT id, board_id, text, creator_id, submit_date, removed
		FROM hypotheses
		WHERE board_id = $1`
	if !includeRemoved {
		query += ` AND removed = FALSE`
	}
	query += ` ORDER BY submit_date ASC`

	var hypotheses []*models.Hypothesis
	if err := r.db.SelectContext(ctx, &hypotheses, query, boardID); err != nil {
		return nil, err
	}
	return hypotheses, nil
}
