package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"openach/internal"
	"openach/internal/errors"
	"openach/models"
	"openach/ports"
)

// TeamService manages analysis teams, membership, and invitations
type TeamService struct {
	teams  ports.TeamRepository
	users  ports.UserRepository
	logger *internal.Logger
}

// NewTeamService creates a team service
func NewTeamService(teams ports.TeamRepository, users ports.UserRepository, logger *internal.Logger) *TeamService {
	return &TeamService{
		teams:  teams,
		users:  users,
		logger: logger.Named("teams"),
	}
}

// CreateTeamRequest defines the inputs for creating a team
type CreateTeamRequest struct {
	Name               string
	Description        string
	Public             bool
	InvitationRequired bool
}

// CreateTeam creates a team owned by the actor, who becomes its first
// member
func (s *TeamService) CreateTeam(ctx context.Context, owner *models.User, req CreateTeamRequest) (*models.Team, error) {
	if owner == nil {
		return nil, errors.Unauthenticated("login required to create a team")
	}
	team := &models.Team{
		ID:                 uuid.New(),
		Name:               req.Name,
		Description:        req.Description,
		OwnerID:            &owner.ID,
		Public:             req.Public,
		InvitationRequired: req.InvitationRequired,
		CreatedAt:          time.Now(),
	}
	if err := team.Validate(); err != nil {
		return nil, err
	}
	if err := s.teams.CreateTeam(ctx, team); err != nil {
		return nil, err
	}
	s.logger.Info("team %q created by %s", team.Name, owner.Username)
	return team, nil
}

// UpdateTeam edits team settings. Only the owner may edit a team.
func (s *TeamService) UpdateTeam(ctx context.Context, actor *models.User, teamID uuid.UUID, req CreateTeamRequest) (*models.Team, error) {
	team, err := s.ownedTeam(ctx, actor, teamID)
	if err != nil {
		return nil, err
	}
	team.Name = req.Name
	team.Description = req.Description
	team.Public = req.Public
	team.InvitationRequired = req.InvitationRequired
	if err := team.Validate(); err != nil {
		return nil, err
	}
	if err := s.teams.UpdateTeam(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

// TeamView is a team rendered for a particular viewer
type TeamView struct {
	Team     *models.Team
	IsOwner  bool
	IsMember bool

	// Pending is true when the viewer has an outstanding membership request
	Pending bool

	// Invited is true when the owner has invited the viewer
	Invited bool

	Members []*models.User

	// Requests holds pending membership requests; populated for the owner
	Requests []*models.TeamRequest
}

// View renders a team for the viewer. Non-public teams are hidden from
// everyone but their members and owner.
func (s *TeamService) View(ctx context.Context, viewer *models.User, teamID uuid.UUID) (*TeamView, error) {
	team, err := s.teams.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	view := &TeamView{Team: team}
	if viewer != nil {
		view.IsOwner = team.IsOwner(viewer.ID)
		view.IsMember, err = s.teams.IsMember(ctx, teamID, viewer.ID)
		if err != nil {
			return nil, err
		}
		view.Pending, err = s.teams.HasRequest(ctx, teamID, viewer.ID, false)
		if err != nil {
			return nil, err
		}
		view.Invited, err = s.teams.HasRequest(ctx, teamID, viewer.ID, true)
		if err != nil {
			return nil, err
		}
	}

	if !team.Public && !view.IsMember && !view.IsOwner {
		return nil, errors.PermissionDenied("this team is not public")
	}

	memberIDs, err := s.teams.ListMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	for _, id := range memberIDs {
		member, err := s.users.GetUserByID(ctx, id)
		if err != nil {
			s.logger.Warn("skipping unknown team member %s: %v", id, err)
			continue
		}
		view.Members = append(view.Members, member)
	}

	if view.IsOwner {
		view.Requests, err = s.teams.ListRequestsForTeam(ctx, teamID)
		if err != nil {
			return nil, err
		}
	}
	return view, nil
}

// ListPublic returns a page of public teams with the total count
func (s *TeamService) ListPublic(ctx context.Context, offset, limit int) ([]*models.Team, int, error) {
	return s.teams.ListPublicTeams(ctx, offset, limit)
}

// Join adds the actor to the team when it is open or they hold an
// invitation; otherwise it files a membership request for the owner to
// decide.
func (s *TeamService) Join(ctx context.Context, actor *models.User, teamID uuid.UUID) (joined bool, err error) {
	if actor == nil {
		return false, errors.Unauthenticated("login required to join a team")
	}
	team, err := s.teams.GetTeam(ctx, teamID)
	if err != nil {
		return false, err
	}
	isMember, err := s.teams.IsMember(ctx, teamID, actor.ID)
	if err != nil {
		return false, err
	}
	if isMember {
		return true, nil
	}

	invited, err := s.teams.HasRequest(ctx, teamID, actor.ID, true)
	if err != nil {
		return false, err
	}
	if !team.InvitationRequired || invited {
		if err := s.teams.AddMember(ctx, teamID, actor.ID); err != nil {
			return false, err
		}
		if err := s.teams.DeleteRequestsFor(ctx, teamID, actor.ID); err != nil {
			s.logger.Warn("failed to clear requests for %s on %s: %v", actor.Username, teamID, err)
		}
		return true, nil
	}

	pending, err := s.teams.HasRequest(ctx, teamID, actor.ID, false)
	if err != nil {
		return false, err
	}
	if pending {
		return false, nil
	}
	request := &models.TeamRequest{
		ID:        uuid.New(),
		TeamID:    teamID,
		InviteeID: actor.ID,
		CreatedAt: time.Now(),
	}
	return false, s.teams.CreateRequest(ctx, request)
}

// Leave removes the actor from the team. The owner cannot leave their own
// team.
func (s *TeamService) Leave(ctx context.Context, actor *models.User, teamID uuid.UUID) error {
	if actor == nil {
		return errors.Unauthenticated("login required")
	}
	team, err := s.teams.GetTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if team.IsOwner(actor.ID) {
		return errors.PermissionDenied("the team owner cannot leave the team")
	}
	return s.teams.RemoveMember(ctx, teamID, actor.ID)
}

// Invite files an invitation from the owner to the named user
func (s *TeamService) Invite(ctx context.Context, actor *models.User, teamID uuid.UUID, username string) error {
	team, err := s.ownedTeam(ctx, actor, teamID)
	if err != nil {
		return err
	}
	invitee, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	isMember, err := s.teams.IsMember(ctx, teamID, invitee.ID)
	if err != nil {
		return err
	}
	if isMember {
		return errors.Conflict("that user is already a member")
	}
	invited, err := s.teams.HasRequest(ctx, teamID, invitee.ID, true)
	if err != nil {
		return err
	}
	if invited {
		return nil
	}
	request := &models.TeamRequest{
		ID:        uuid.New(),
		TeamID:    team.ID,
		InviteeID: invitee.ID,
		InviterID: team.OwnerID,
		CreatedAt: time.Now(),
	}
	return s.teams.CreateRequest(ctx, request)
}

// Revoke removes a member from the team. Only the owner may revoke
// membership, and never their own.
func (s *TeamService) Revoke(ctx context.Context, actor *models.User, teamID, memberID uuid.UUID) error {
	team, err := s.ownedTeam(ctx, actor, teamID)
	if err != nil {
		return err
	}
	if team.IsOwner(memberID) {
		return errors.PermissionDenied("cannot revoke the team owner's membership")
	}
	return s.teams.RemoveMember(ctx, teamID, memberID)
}

// Decide accepts or rejects a membership request. Only the owner decides.
func (s *TeamService) Decide(ctx context.Context, actor *models.User, requestID uuid.UUID, accept bool) error {
	request, err := s.teams.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if _, err := s.ownedTeam(ctx, actor, request.TeamID); err != nil {
		return err
	}
	if accept {
		if err := s.teams.AddMember(ctx, request.TeamID, request.InviteeID); err != nil {
			return err
		}
	}
	return s.teams.DeleteRequestsFor(ctx, request.TeamID, request.InviteeID)
}

// ownedTeam loads the team and verifies the actor owns it (staff may manage
// any team)
func (s *TeamService) ownedTeam(ctx context.Context, actor *models.User, teamID uuid.UUID) (*models.Team, error) {
	if actor == nil {
		return nil, errors.Unauthenticated("login required")
	}
	team, err := s.teams.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !team.IsOwner(actor.ID) && !actor.IsStaff {
		return nil, errors.PermissionDenied("only the team owner may manage the team")
	}
	return team, nil
}
