package ports

import (
	"context"

	"github.com/google/uuid"

	"openach/models"
)

// TeamRepository defines the interface for team data operations
type TeamRepository interface {
	// CreateTeam creates a team and adds the owner as a member
	CreateTeam(ctx context.Context, team *models.Team) error

	// GetTeam retrieves a team by ID
	GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error)

	// UpdateTeam persists team changes
	UpdateTeam(ctx context.Context, team *models.Team) error

	// ListPublicTeams returns public teams ordered by name
	ListPublicTeams(ctx context.Context, offset, limit int) ([]*models.Team, int, error)

	// AddMember adds a user to the team
	AddMember(ctx context.Context, teamID, userID uuid.UUID) error

	// RemoveMember removes a user from the team
	RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error

	// IsMember reports whether the user belongs to the team
	IsMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error)

	// ListMembers returns the team's member user IDs
	ListMembers(ctx context.Context, teamID uuid.UUID) ([]uuid.UUID, error)

	// CreateRequest stores a membership request or invitation
	CreateRequest(ctx context.Context, request *models.TeamRequest) error

	// GetRequest retrieves a request by ID
	GetRequest(ctx context.Context, id uuid.UUID) (*models.TeamRequest, error)

	// DeleteRequest removes a request by ID
	DeleteRequest(ctx context.Context, id uuid.UUID) error

	// DeleteRequestsFor removes all requests pairing the invitee with the
	// team
	DeleteRequestsFor(ctx context.Context, teamID, inviteeID uuid.UUID) error

	// HasRequest reports whether a request exists for the invitee, filtered
	// by whether it is an owner invitation
	HasRequest(ctx context.Context, teamID, inviteeID uuid.UUID, invitation bool) (bool, error)

	// ListRequestsForTeam returns the pending member-initiated requests for
	// a team
	ListRequestsForTeam(ctx context.Context, teamID uuid.UUID) ([]*models.TeamRequest, error)
}
