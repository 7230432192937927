package models

import (
	"time"

	"github.com/google/uuid"

	"openach/internal/errors"
)

// TeamNameMaxLength bounds team names for indexed storage
const TeamNameMaxLength = 64

// Team is a group of analysts. Public teams are listed in the team
// directory; teams requiring invitations only admit members with a standing
// invitation from the owner.
type Team struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	Name               string     `json:"name" db:"name"`
	Description        string     `json:"description" db:"description"`
	OwnerID            *uuid.UUID `json:"owner_id,omitempty" db:"owner_id"`
	Public             bool       `json:"public" db:"public"`
	InvitationRequired bool       `json:"invitation_required" db:"invitation_required"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
}

// Validate checks team field constraints
func (t *Team) Validate() error {
	if t.Name == "" {
		return errors.ValidationError("team name is required")
	}
	if len(t.Name) > TeamNameMaxLength {
		return errors.ValidationError("team name is too long")
	}
	return nil
}

// IsOwner reports whether userID owns the team
func (t *Team) IsOwner(userID uuid.UUID) bool {
	return t.OwnerID != nil && *t.OwnerID == userID
}

// TeamRequest is a pending membership request or invitation. A request with
// an inviter is an invitation from the owner; a request without one is a
// user asking to join.
type TeamRequest struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	TeamID    uuid.UUID  `json:"team_id" db:"team_id"`
	InviteeID uuid.UUID  `json:"invitee_id" db:"invitee_id"`
	InviterID *uuid.UUID `json:"inviter_id,omitempty" db:"inviter_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// IsInvitation reports whether the request was initiated by the team owner
func (r *TeamRequest) IsInvitation() bool {
	return r.InviterID != nil
}
