package models

import (
	"github.com/google/uuid"

	"openach/internal/errors"
)

// AuthLevel identifies who is granted a board permission. Levels are ordered
// from least to most permissive so that permission pairs can be compared.
type AuthLevel int

const (
	AuthBoardCreator AuthLevel = iota
	AuthCollaborators
	AuthRegistered
	AuthAnyone
)

// Valid reports whether l is a defined auth level
func (l AuthLevel) Valid() bool {
	return l >= AuthBoardCreator && l <= AuthAnyone
}

func (l AuthLevel) String() string {
	switch l {
	case AuthBoardCreator:
		return "Only Me"
	case AuthCollaborators:
		return "Collaborators"
	case AuthRegistered:
		return "Registered Users"
	case AuthAnyone:
		return "Public"
	default:
		return "Unknown"
	}
}

// PermissionName identifies one of the named board permissions
type PermissionName string

const (
	PermReadBoard    PermissionName = "read_board"
	PermReadComments PermissionName = "read_comments"
	PermAddComments  PermissionName = "add_comments"
	PermAddElements  PermissionName = "add_elements"
	PermEditElements PermissionName = "edit_elements"
	PermEditBoard    PermissionName = "edit_board"
)

// AllPermissions lists every named board permission
var AllPermissions = []PermissionName{
	PermReadBoard,
	PermReadComments,
	PermAddComments,
	PermAddElements,
	PermEditElements,
	PermEditBoard,
}

// ReadPermissions lists the permissions available to anonymous users
var ReadPermissions = []PermissionName{
	PermReadBoard,
	PermReadComments,
}

// PermissionSet is the set of named permissions granted to a viewer
type PermissionSet map[PermissionName]bool

// Has reports whether the set contains the named permission
func (s PermissionSet) Has(name PermissionName) bool {
	return s[name]
}

// BoardPermissions holds the per-board authorization scheme
type BoardPermissions struct {
	BoardID      uuid.UUID `json:"board_id" db:"board_id"`
	ReadBoard    AuthLevel `json:"read_board" db:"read_board"`
	ReadComments AuthLevel `json:"read_comments" db:"read_comments"`
	AddComments  AuthLevel `json:"add_comments" db:"add_comments"`
	AddElements  AuthLevel `json:"add_elements" db:"add_elements"`
	EditElements AuthLevel `json:"edit_elements" db:"edit_elements"`
	EditBoard    AuthLevel `json:"edit_board" db:"edit_board"`

	// Collaborators is the set of users granted collaborator-level access.
	// Loaded alongside the permission rows.
	Collaborators []uuid.UUID `json:"collaborators" db:"-"`
}

// DefaultPermissions returns the permission scheme applied to new boards
func DefaultPermissions(boardID uuid.UUID) *BoardPermissions {
	return &BoardPermissions{
		BoardID:      boardID,
		ReadBoard:    AuthAnyone,
		ReadComments: AuthAnyone,
		AddComments:  AuthCollaborators,
		AddElements:  AuthCollaborators,
		EditElements: AuthCollaborators,
		EditBoard:    AuthBoardCreator,
	}
}

// Level returns the auth level for the named permission, defaulting to the
// most restrictive level for unknown names.
func (p *BoardPermissions) Level(name PermissionName) AuthLevel {
	switch name {
	case PermReadBoard:
		return p.ReadBoard
	case PermReadComments:
		return p.ReadComments
	case PermAddComments:
		return p.AddComments
	case PermAddElements:
		return p.AddElements
	case PermEditElements:
		return p.EditElements
	case PermEditBoard:
		return p.EditBoard
	default:
		return AuthBoardCreator
	}
}

// SetAll sets every named permission to the given level
func (p *BoardPermissions) SetAll(level AuthLevel) {
	p.ReadBoard = level
	p.ReadComments = level
	p.AddComments = level
	p.AddElements = level
	p.EditElements = level
	p.EditBoard = level
}

// IsCollaborator reports whether the user is a board collaborator
func (p *BoardPermissions) IsCollaborator(userID uuid.UUID) bool {
	for _, id := range p.Collaborators {
		if id == userID {
			return true
		}
	}
	return false
}

// Validate checks that no permission is more permissive than the permission
// it depends on, and that public read access is allowed by the site config.
func (p *BoardPermissions) Validate(accountRequired bool) error {
	for _, name := range AllPermissions {
		if !p.Level(name).Valid() {
			return errors.ValidationError("invalid permission level for " + string(name))
		}
	}
	if accountRequired && p.ReadBoard == AuthAnyone {
		return errors.ValidationError("cannot set permission to public because site permits only registered users")
	}
	if p.AddComments > p.ReadComments {
		return errors.ValidationError(`"add comments" cannot be more permissive than the "read comments" permission`)
	}
	if p.EditElements > p.AddElements {
		return errors.ValidationError(`"edit elements" cannot be more permissive than the "add elements" permission`)
	}
	if p.ReadComments > p.ReadBoard {
		return errors.ValidationError(`"read comments" cannot be more permissive than the "read board" permission`)
	}
	if p.AddElements > p.ReadBoard {
		return errors.ValidationError(`"add elements" cannot be more permissive than the "read board" permission`)
	}
	if p.EditBoard > p.EditElements {
		return errors.ValidationError(`"edit board" cannot be more permissive than the "edit elements" permission`)
	}
	return nil
}

// ForUser returns the authorization scheme for the given viewer. A nil viewer
// is anonymous and can at most be granted the read permissions. Staff and the
// board creator receive every permission available to them.
func (p *BoardPermissions) ForUser(viewer *User, creatorID *uuid.UUID) PermissionSet {
	maxAllowed := AllPermissions
	if viewer == nil {
		maxAllowed = ReadPermissions
	}

	granted := make(PermissionSet, len(maxAllowed))

	isOwner := viewer != nil && creatorID != nil && viewer.ID == *creatorID
	if viewer != nil && (viewer.IsStaff || isOwner) {
		for _, name := range maxAllowed {
			granted[name] = true
		}
		return granted
	}

	isCollaborator := viewer != nil && p.IsCollaborator(viewer.ID)
	for _, name := range maxAllowed {
		switch p.Level(name) {
		case AuthAnyone:
			granted[name] = true
		case AuthRegistered:
			if viewer != nil {
				granted[name] = true
			}
		case AuthCollaborators:
			if isCollaborator {
				granted[name] = true
			}
		}
	}
	return granted
}

// CanRead reports whether the viewer can read the board
func (p *BoardPermissions) CanRead(viewer *User, creatorID *uuid.UUID) bool {
	return p.ForUser(viewer, creatorID).Has(PermReadBoard)
}
