package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"openach/internal/errors"
	"openach/models"
	"openach/ports"
)

const boardColumns = "b.id, b.title, b.slug, b.description, b.creator_id, b.pub_date, b.removed"

// escapeLike escapes the LIKE metacharacters so a user query matches its
// text literally. Used with an ESCAPE '\' clause.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// BoardRepositoryImpl implements BoardRepository for PostgreSQL
type BoardRepositoryImpl struct {
	db *sqlx.DB
}

// NewBoardRepository creates a new PostgreSQL board repository
func NewBoardRepository(db *sqlx.DB) ports.BoardRepository {
	return &BoardRepositoryImpl{db: db}
}

// readableCondition returns a WHERE fragment restricting boards to those the
// viewer can read, with positional parameters starting at argIndex. Staff
// see everything; anonymous viewers see public boards only.
func readableCondition(viewer *models.User, argIndex int) (string, []interface{}) {
	if viewer != nil && viewer.IsStaff {
		return "TRUE", nil
	}
	if viewer == nil {
		return fmt.Sprintf("p.read_board = %d", models.AuthAnyone), nil
	}
	cond := fmt.Sprintf(`(p.read_board >= %d OR b.creator_id = $%d OR (p.read_board = %d AND EXISTS (
		SELECT 1 FROM board_collaborators c
		WHERE c.board_id = b.id AND c.user_id = $%d)))`,
		models.AuthRegistered, argIndex, models.AuthCollaborators, argIndex+1)
	return cond, []interface{}{viewer.ID, viewer.ID}
}

// CreateBoard atomically creates a board together with its permission scheme
// and seed hypotheses
func (r *BoardRepositoryImpl) CreateBoard(ctx context.Context, board *models.Board, perms *models.BoardPermissions, seed []*models.Hypothesis) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO boards (id, title, slug, description, creator_id, pub_date, removed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		board.ID, board.Title, board.Slug, board.Description, board.CreatorID, board.PubDate, board.Removed)
	if err != nil {
		return errors.Wrap(err, "failed to insert board")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO board_permissions (board_id, read_board, read_comments, add_comments, add_elements, edit_elements, edit_board)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		perms.BoardID, perms.ReadBoard, perms.ReadComments, perms.AddComments,
		perms.AddElements, perms.EditElements, perms.EditBoard)
	if err != nil {
		return errors.Wrap(err, "failed to insert board permissions")
	}

	for _, hypothesis := range seed {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO hypotheses (id, board_id, text, creator_id, submit_date, removed)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			hypothesis.ID, hypothesis.BoardID, hypothesis.Text, hypothesis.CreatorID,
			hypothesis.SubmitDate, hypothesis.Removed)
		if err != nil {
			return errors.Wrap(err, "failed to insert seed hypothesis")
		}
	}

	return tx.Commit()
}

// GetBoard retrieves a board by ID, excluding removed boards
func (r *BoardRepositoryImpl) GetBoard(ctx context.Context, id uuid.UUID) (*models.Board, error) {
	var board models.Board
	err := r.db.GetContext(ctx, &board, `
		SELECT `+boardColumns+` FROM boards b
		WHERE b.id = $1 AND b.removed = FALSE`, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("board")
	}
	if err != nil {
		return nil, err
	}
	return &board, nil
}

// UpdateBoard persists changes to title, description, slug, and removed
func (r *BoardRepositoryImpl) UpdateBoard(ctx context.Context, board *models.Board) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE boards SET title = $2, slug = $3, description = $4, removed = $5
		WHERE id = $1`,
		board.ID, board.Title, board.Slug, board.Description, board.Removed)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return errors.NotFound("board")
	}
	return err
}

// ListReadable returns boards the viewer can read, most recently published
// first, with the total count for pagination
func (r *BoardRepositoryImpl) ListReadable(ctx context.Context, viewer *models.User, offset, limit int) ([]*models.Board, int, error) {
	cond, args := readableCondition(viewer, 1)

	var total int
	err := r.db.GetContext(ctx, &total, `
		SELECT COUNT(*) FROM boards b
		JOIN board_permissions p ON p.board_id = b.id
		WHERE b.removed = FALSE AND `+cond, args...)
	if err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM boards b
		JOIN board_permissions p ON p.board_id = b.id
		WHERE b.removed = FALSE AND %s
		ORDER BY b.pub_date DESC
		OFFSET $%d LIMIT $%d`, boardColumns, cond, len(args)+1, len(args)+2)

	var boards []*models.Board
	err = r.db.SelectContext(ctx, &boards, query, append(args, offset, limit)...)
	if err != nil {
		return nil, 0, err
	}
	return boards, total, nil
}

// LatestReadable returns the most recently published readable boards
func (r *BoardRepositoryImpl) LatestReadable(ctx context.Context, viewer *models.User, limit int) ([]*models.Board, error) {
	boards, _, err := r.ListReadable(ctx, viewer, 0, limit)
	return boards, err
}

// ReadableCreatedBetween returns readable boards published in (start, end),
// excluding those created by the viewer
func (r *BoardRepositoryImpl) ReadableCreatedBetween(ctx context.Context, viewer *models.User, start, end time.Time) ([]*models.Board, error) {
	cond, args := readableCondition(viewer, 3)
	query := fmt.Sprintf(`
		SELECT %s FROM boards b
		JOIN board_permissions p ON p.board_id = b.id
		WHERE b.removed = FALSE AND b.pub_date > $1 AND b.pub_date < $2 AND %s
		ORDER BY b.pub_date DESC`, boardColumns, cond)
	allArgs := append([]interface{}{start, end}, args...)

	var boards []*models.Board
	if err := r.db.SelectContext(ctx, &boards, query, allArgs...); err != nil {
		return nil, err
	}
	if viewer == nil {
		return boards, nil
	}
	filtered := boards[:0]
	for _, board := range boards {
		if board.CreatorID == nil || *board.CreatorID != viewer.ID {
			filtered = append(filtered, board)
		}
	}
	return filtered, nil
}

// Search returns readable boards whose title or description contains the
// query substring, up to limit
func (r *BoardRepositoryImpl) Search(ctx context.Context, viewer *models.User, query string, limit int) ([]*models.Board, error) {
	cond, args := readableCondition(viewer, 3)
	stmt := fmt.Sprintf(`
		SELECT %s FROM boards b
		JOIN board_permissions p ON p.board_id = b.id
		WHERE b.removed = FALSE
		  AND (b.title ILIKE '%%' || $1 || '%%' ESCAPE '\'
		       OR b.description ILIKE '%%' || $1 || '%%' ESCAPE '\')
		  AND %s
		ORDER BY b.pub_date DESC
		LIMIT $2`, boardColumns, cond)
	allArgs := append([]interface{}{escapeLike(query), limit}, args...)

	var boards []*models.Board
	if err := r.db.SelectContext(ctx, &boards, stmt, allArgs...); err != nil {
		return nil, err
	}
	return boards, nil
}

// BoardsCreatedBy returns boards created by userID that the viewer can read,
// most recently created first
func (r *BoardRepositoryImpl) BoardsCreatedBy(ctx context.Context, userID uuid.UUID, viewer *models.User) ([]*models.Board, error) {
	cond, args := readableCondition(viewer, 2)
	query := fmt.Sprintf(`
		SELECT %s FROM boards b
		JOIN board_permissions p ON p.board_id = b.id
		WHERE b.removed = FALSE AND b.creator_id = $1 AND %s
		ORDER BY b.pub_date DESC`, boardColumns, cond)
	allArgs := append([]interface{}{userID}, args...)

	var boards []*models.Board
	if err := r.db.SelectContext(ctx, &boards, query, allArgs...); err != nil {
		return nil, err
	}
	return boards, nil
}

// BoardsContributedTo returns boards userID added hypotheses or evidence to,
// most recent contribution first, de-duplicated
func (r *BoardRepositoryImpl) BoardsContributedTo(ctx context.Context, userID uuid.UUID, viewer *models.User) ([]*models.Board, error) {
	cond, args := readableCondition(viewer, 2)
	query := fmt.Sprintf(`
		SELECT %s FROM boards b
		JOIN board_permissions p ON p.board_id = b.id
		JOIN (
			SELECT board_id, MAX(submit_date) AS last_contribution FROM (
				SELECT board_id, submit_date FROM hypotheses WHERE creator_id = $1
				UNION ALL
				SELECT board_id, submit_date FROM evidence WHERE creator_id = $1
			) contributions
			GROUP BY board_id
		) c ON c.board_id = b.id
		WHERE b.removed = FALSE AND %s
		ORDER BY c.last_contribution DESC`, boardColumns, cond)
	allArgs := append([]interface{}{userID}, args...)

	var boards []*models.Board
	if err := r.db.SelectContext(ctx, &boards, query, allArgs...); err != nil {
		return nil, err
	}
	return boards, nil
}

// BoardsEvaluated returns boards userID voted on, most recently evaluated
// first, de-duplicated
func (r *BoardRepositoryImpl) BoardsEvaluated(ctx context.Context, userID uuid.UUID, viewer *models.User) ([]*models.Board, error) {
	cond, args := readableCondition(viewer, 2)
	query := fmt.Sprintf(`
		SELECT %s FROM boards b
		JOIN board_permissions p ON p.board_id = b.id
		JOIN (
			SELECT board_id, MAX(timestamp) AS last_evaluation
			FROM evaluations WHERE user_id = $1
			GROUP BY board_id
		) e ON e.board_id = b.id
		WHERE b.removed = FALSE AND %s
		ORDER BY e.last_evaluation DESC`, boardColumns, cond)
	allArgs := append([]interface{}{userID}, args...)

	var boards []*models.Board
	if err := r.db.SelectContext(ctx, &boards, query, allArgs...); err != nil {
		return nil, err
	}
	return boards, nil
}

// ContributorCounts maps board IDs to the number of distinct users who added
// a hypothesis or piece of evidence
func (r *BoardRepositoryImpl) ContributorCounts(ctx context.Context) (map[uuid.UUID]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT board_id, COUNT(DISTINCT creator_id) FROM (
			SELECT board_id, creator_id FROM hypotheses WHERE creator_id IS NOT NULL
			UNION
			SELECT board_id, creator_id FROM evidence WHERE creator_id IS NOT NULL
		) contributors
		GROUP BY board_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCounts(rows)
}

// EvaluatorCounts maps board IDs to the number of distinct voters
func (r *BoardRepositoryImpl) EvaluatorCounts(ctx context.Context) (map[uuid.UUID]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT board_id, COUNT(DISTINCT user_id) FROM evaluations GROUP BY board_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCounts(rows)
}

func scanCounts(rows *sql.Rows) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var boardID uuid.UUID
		var count int
		if err := rows.Scan(&boardID, &count); err != nil {
			return nil, err
		}
		counts[boardID] = count
	}
	return counts, rows.Err()
}
