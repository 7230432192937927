package models

import (
	"testing"

	"github.com/google/uuid"
)

func allLevels(level AuthLevel) *BoardPermissions {
	p := &BoardPermissions{}
	p.SetAll(level)
	return p
}

// TestForUserAnonymous tests that anonymous viewers only receive read
// permissions
func TestForUserAnonymous(t *testing.T) {
	granted := allLevels(AuthAnyone).ForUser(nil, nil)
	if !granted.Has(PermReadBoard) || !granted.Has(PermReadComments) {
		t.Error("Expected anonymous viewer to read a public board")
	}
	if granted.Has(PermAddElements) || granted.Has(PermEditBoard) {
		t.Error("Expected anonymous viewer to never hold write permissions")
	}

	granted = allLevels(AuthRegistered).ForUser(nil, nil)
	if granted.Has(PermReadBoard) {
		t.Error("Expected anonymous viewer to be denied a registered-only board")
	}
}

// TestForUserRegistered tests permissions for a signed-in non-collaborator
func TestForUserRegistered(t *testing.T) {
	viewer := &User{ID: uuid.New()}

	granted := allLevels(AuthRegistered).ForUser(viewer, nil)
	for _, name := range AllPermissions {
		if !granted.Has(name) {
			t.Errorf("Expected registered viewer to hold %s at AuthRegistered", name)
		}
	}

	granted = allLevels(AuthCollaborators).ForUser(viewer, nil)
	for _, name := range AllPermissions {
		if granted.Has(name) {
			t.Errorf("Expected non-collaborator to be denied %s at AuthCollaborators", name)
		}
	}
}

// TestForUserCollaborator tests that collaborators pass collaborator-level
// checks
func TestForUserCollaborator(t *testing.T) {
	viewer := &User{ID: uuid.New()}
	p := allLevels(AuthCollaborators)
	p.Collaborators = []uuid.UUID{viewer.ID}

	granted := p.ForUser(viewer, nil)
	if !granted.Has(PermAddElements) {
		t.Error("Expected collaborator to hold add_elements at AuthCollaborators")
	}
}

// TestForUserOwnerAndStaff tests that the creator and staff bypass levels
func TestForUserOwnerAndStaff(t *testing.T) {
	creatorID := uuid.New()
	creator := &User{ID: creatorID}
	staff := &User{ID: uuid.New(), IsStaff: true}

	locked := allLevels(AuthBoardCreator)
	for _, viewer := range []*User{creator, staff} {
		granted := locked.ForUser(viewer, &creatorID)
		for _, name := range AllPermissions {
			if !granted.Has(name) {
				t.Errorf("Expected %s to be granted on a creator-only board", name)
			}
		}
	}

	other := &User{ID: uuid.New()}
	if locked.ForUser(other, &creatorID).Has(PermReadBoard) {
		t.Error("Expected non-creator to be denied a creator-only board")
	}
}

// TestValidate tests the permission dependency rules
func TestValidate(t *testing.T) {
	if err := allLevels(AuthRegistered).Validate(false); err != nil {
		t.Errorf("Expected uniform permissions to validate: %v", err)
	}

	p := allLevels(AuthRegistered)
	p.AddComments = AuthAnyone
	if err := p.Validate(false); err == nil {
		t.Error("Expected add_comments more permissive than read_comments to fail")
	}

	p = allLevels(AuthRegistered)
	p.EditElements = AuthAnyone
	if err := p.Validate(false); err == nil {
		t.Error("Expected edit_elements more permissive than add_elements to fail")
	}

	p = allLevels(AuthRegistered)
	p.EditBoard = AuthAnyone
	if err := p.Validate(false); err == nil {
		t.Error("Expected edit_board more permissive than edit_elements to fail")
	}

	p = allLevels(AuthRegistered)
	p.ReadBoard = AuthLevel(99)
	if err := p.Validate(false); err == nil {
		t.Error("Expected out-of-range level to fail")
	}
}

// TestValidateAccountRequired tests that public read access is rejected when
// the site requires accounts
func TestValidateAccountRequired(t *testing.T) {
	p := allLevels(AuthAnyone)
	if err := p.Validate(true); err == nil {
		t.Error("Expected public read access to fail on an account-required site")
	}
	if err := p.Validate(false); err != nil {
		t.Errorf("Expected public read access to pass on an open site: %v", err)
	}
}

// TestDefaultPermissions tests the scheme applied to new boards
func TestDefaultPermissions(t *testing.T) {
	boardID := uuid.New()
	p := DefaultPermissions(boardID)
	if p.BoardID != boardID {
		t.Errorf("Expected board ID %s, got %s", boardID, p.BoardID)
	}
	if err := p.Validate(false); err != nil {
		t.Errorf("Expected default permissions to validate: %v", err)
	}
}
