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

// PermissionRepositoryImpl implements PermissionRepository for PostgreSQL
type PermissionRepositoryImpl struct {
	db *sqlx.DB
}

// NewPermissionRepository creates a new PostgreSQL permission repository
func NewPermissionRepository(db *sqlx.DB) ports.PermissionRepository {
	return &PermissionRepositoryImpl{db: db}
}

// GetPermissions returns the permission scheme for a board, including its
// collaborator set
func (r *PermissionRepositoryImpl) GetPermissions(ctx context.Context, boardID uuid.UUID) (*models.BoardPermissions, error) {
	var perms models.BoardPermissions
	err := r.db.GetContext(ctx, &perms, `
		SELECT board_id, read_board, read_comments, add_comments, add_elements, edit_elements, edit_board
		FROM board_permissions
		WHERE board_id = $1`, boardID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("board permissions")
	}
	if err != nil {
		return nil, err
	}

	err = r.db.SelectContext(ctx, &perms.Collaborators, `
		SELECT user_id FROM board_collaborators WHERE board_id = $1`, boardID)
	if err != nil {
		return nil, err
	}
	return &perms, nil
}

// UpdatePermissions persists the permission levels and replaces the
// collaborator set
func (r *PermissionRepositoryImpl) UpdatePermissions(ctx context.Context, perms *models.BoardPermissions) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE board_permissions
		SET read_board = $2, read_comments = $3, add_comments = $4,
		    add_elements = $5, edit_elements = $6, edit_board = $7
		WHERE board_id = $1`,
		perms.BoardID, perms.ReadBoard, perms.ReadComments, perms.AddComments,
		perms.AddElements, perms.EditElements, perms.EditBoard)
	if err != nil {
		return errors.Wrap(err, "failed to update permission levels")
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM board_collaborators WHERE board_id = $1`, perms.BoardID)
	if err != nil {
		return errors.Wrap(err, "failed to clear collaborators")
	}
	for _, userID := range perms.Collaborators {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO board_collaborators (board_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, perms.BoardID, userID)
		if err != nil {
			return errors.Wrap(err, "failed to add collaborator")
		}
	}

	return tx.Commit()
}
