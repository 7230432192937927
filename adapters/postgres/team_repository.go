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

const teamColumns = "id, name, description, owner_id, public, invitation_required, created_at"

// TeamRepositoryImpl implements TeamRepository for PostgreSQL
type TeamRepositoryImpl struct {
	db *sqlx.DB
}

// NewTeamRepository creates a new PostgreSQL team repository
func NewTeamRepository(db *sqlx.DB) ports.TeamRepository {
	return &TeamRepositoryImpl{db: db}
}

// CreateTeam inserts the team and enrolls the owner as its first member
func (r *TeamRepositoryImpl) CreateTeam(ctx context.Context, team *models.Team) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO teams (`+teamColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		team.ID, team.Name, team.Description, team.OwnerID,
		team.Public, team.InvitationRequired, team.CreatedAt)
	if err != nil {
		if uniqueViolation(err) {
			return errors.Conflict("a team with that name already exists")
		}
		return errors.Wrap(err, "failed to insert team")
	}

	if team.OwnerID != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO team_members (team_id, user_id)
			VALUES ($1, $2)`, team.ID, *team.OwnerID)
		if err != nil {
			return errors.Wrap(err, "failed to enroll team owner")
		}
	}

	return tx.Commit()
}

// GetTeam retrieves a team by ID
func (r *TeamRepositoryImpl) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	var team models.Team
	err := r.db.GetContext(ctx, &team, `
		SELECT `+teamColumns+` FROM teams WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("team")
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// UpdateTeam persists team changes
func (r *TeamRepositoryImpl) UpdateTeam(ctx context.Context, team *models.Team) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE teams
		SET name = $2, description = $3, public = $4, invitation_required = $5
		WHERE id = $1`,
		team.ID, team.Name, team.Description, team.Public, team.InvitationRequired)
	if err != nil {
		if uniqueViolation(err) {
			return errors.Conflict("a team with that name already exists")
		}
		return errors.Wrap(err, "failed to update team")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.NotFound("team")
	}
	return nil
}

// ListPublicTeams returns public teams ordered by name with the total
// count for pagination
func (r *TeamRepositoryImpl) ListPublicTeams(ctx context.Context, offset, limit int) ([]*models.Team, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM teams WHERE public = TRUE`)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to count public teams")
	}

	var teams []*models.Team
	err = r.db.SelectContext(ctx, &teams, `
		SELECT `+teamColumns+` FROM teams
		WHERE public = TRUE
		ORDER BY name
		OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list public teams")
	}
	return teams, total, nil
}

// AddMember adds a user to the team
func (r *TeamRepositoryImpl) AddMember(ctx context.Context, teamID, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO team_members (team_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (team_id, user_id) DO NOTHING`, teamID, userID)
	return err
}

// RemoveMember removes a user from the team
func (r *TeamRepositoryImpl) RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	return err
}

// IsMember reports whether the user belongs to the team
func (r *TeamRepositoryImpl) IsMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2
		)`, teamID, userID)
	return exists, err
}

// ListMembers returns the team's member user IDs ordered by username
func (r *TeamRepositoryImpl) ListMembers(ctx context.Context, teamID uuid.UUID) ([]uuid.UUID, error) {
	var members []uuid.UUID
	err := r.db.SelectContext(ctx, &members, `
		SELECT tm.user_id FROM team_members tm
		JOIN users u ON u.id = tm.user_id
		WHERE tm.team_id = $1
		ORDER BY u.username`, teamID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list team members")
	}
	return members, nil
}

// CreateRequest stores a membership request or invitation
func (r *TeamRepositoryImpl) CreateRequest(ctx context.Context, request *models.TeamRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO team_requests (id, team_id, invitee_id, inviter_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		request.ID, request.TeamID, request.InviteeID, request.InviterID, request.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to insert team request")
	}
	return nil
}

// GetRequest retrieves a request by ID
func (r *TeamRepositoryImpl) GetRequest(ctx context.Context, id uuid.UUID) (*models.TeamRequest, error) {
	var request models.TeamRequest
	err := r.db.GetContext(ctx, &request, `
		SELECT id, team_id, invitee_id, inviter_id, created_at
		FROM team_requests WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("team request")
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// DeleteRequest removes a request by ID
func (r *TeamRepositoryImpl) DeleteRequest(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM team_requests WHERE id = $1`, id)
	return err
}

// DeleteRequestsFor removes all requests pairing the invitee with the team
func (r *TeamRepositoryImpl) DeleteRequestsFor(ctx context.Context, teamID, inviteeID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM team_requests WHERE team_id = $1 AND invitee_id = $2`, teamID, inviteeID)
	return err
}

// HasRequest reports whether a request exists for the invitee, filtered by
// whether it is an owner invitation
func (r *TeamRepositoryImpl) HasRequest(ctx context.Context, teamID, inviteeID uuid.UUID, invitation bool) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM team_requests
			WHERE team_id = $1 AND invitee_id = $2 AND (inviter_id IS NOT NULL) = $3
		)`, teamID, inviteeID, invitation)
	return exists, err
}

// ListRequestsForTeam returns the pending member-initiated requests for a
// team, oldest first
func (r *TeamRepositoryImpl) ListRequestsForTeam(ctx context.Context, teamID uuid.UUID) ([]*models.TeamRequest, error) {
	var requests []*models.TeamRequest
	err := r.db.SelectContext(ctx, &requests, `
		SELECT id, team_id, invitee_id, inviter_id, created_at
		FROM team_requests
		WHERE team_id = $1 AND inviter_id IS NULL
		ORDER BY created_at`, teamID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list team requests")
	}
	return requests, nil
}
