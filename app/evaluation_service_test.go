package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"openach/internal"
	"openach/internal/errors"
	"openach/models"
)

type evaluationFixture struct {
	service     *EvaluationService
	boards      *fakeBoards
	permissions *fakePermissions
	followers   *fakeFollowers
	hypotheses  *fakeHypotheses
	evidence    *fakeEvidence
	evaluations *fakeEvaluations

	board *models.Board
	owner *models.User
}

func newEvaluationFixture() *evaluationFixture {
	f := &evaluationFixture{
		boards:      newFakeBoards(),
		permissions: newFakePermissions(),
		followers:   newFakeFollowers(),
		hypotheses:  &fakeHypotheses{},
		evidence:    &fakeEvidence{},
		evaluations: newFakeEvaluations(),
	}
	f.owner = &models.User{ID: uuid.New(), Username: "owner", DateJoined: time.Now()}
	f.board = &models.Board{
		ID:        uuid.New(),
		Title:     "Test Board",
		CreatorID: &f.owner.ID,
		PubDate:   time.Now(),
	}
	f.boards.add(f.board)
	f.permissions.perms[f.board.ID] = models.DefaultPermissions(f.board.ID)

	logger := internal.NewLogger(internal.LogLevelError)
	f.service = NewEvaluationService(f.evaluations, f.hypotheses, f.evidence, f.boards, f.permissions, f.followers, logger)
	f.service.shuffle = func(n int, swap func(i, j int)) {}
	return f
}

func (f *evaluationFixture) addHypothesis(text string) *models.Hypothesis {
	h := &models.Hypothesis{ID: uuid.New(), BoardID: f.board.ID, Text: text, SubmitDate: time.Now()}
	f.hypotheses.items = append(f.hypotheses.items, h)
	return h
}

func (f *evaluationFixture) addEvidence(desc string) *models.Evidence {
	e := &models.Evidence{ID: uuid.New(), BoardID: f.board.ID, Description: desc, SubmitDate: time.Now()}
	f.evidence.items = append(f.evidence.items, e)
	return e
}

// TestFormUnevaluatedFirst tests that hypotheses the viewer has not assessed
// come before those they have
func TestFormUnevaluatedFirst(t *testing.T) {
	f := newEvaluationFixture()
	h1 := f.addHypothesis("first")
	h2 := f.addHypothesis("second")
	h3 := f.addHypothesis("third")
	e := f.addEvidence("evidence")

	viewer := &models.User{ID: uuid.New(), Username: "viewer"}
	f.evaluations.Apply(context.Background(), f.board.ID, e.ID, viewer.ID,
		map[uuid.UUID]models.Eval{h1.ID: models.EvalConsistent}, nil)

	form, err := f.service.Form(context.Background(), viewer, f.board.ID, e.ID)
	if err != nil {
		t.Fatalf("Form returned error: %v", err)
	}
	if len(form.Hypotheses) != 3 {
		t.Fatalf("Form returned %d hypotheses, want 3", len(form.Hypotheses))
	}
	if form.Hypotheses[0].ID != h2.ID || form.Hypotheses[1].ID != h3.ID {
		t.Errorf("unevaluated hypotheses not first: got %s, %s", form.Hypotheses[0].Text, form.Hypotheses[1].Text)
	}
	if form.Hypotheses[2].ID != h1.ID {
		t.Errorf("evaluated hypothesis not last: got %s", form.Hypotheses[2].Text)
	}
	if got := form.Existing[h1.ID]; got != models.EvalConsistent {
		t.Errorf("Existing[h1] = %v, want %v", got, models.EvalConsistent)
	}
}

// TestFormErrors tests the form authorization and validation failures
func TestFormErrors(t *testing.T) {
	f := newEvaluationFixture()
	e := f.addEvidence("evidence")
	foreign := &models.Evidence{ID: uuid.New(), BoardID: uuid.New(), Description: "elsewhere"}
	f.evidence.items = append(f.evidence.items, foreign)
	viewer := &models.User{ID: uuid.New(), Username: "viewer"}

	tests := []struct {
		name       string
		viewer     *models.User
		evidenceID uuid.UUID
		wantCode   string
	}{
		{"anonymous viewer", nil, e.ID, errors.CodeUnauthenticated},
		{"evidence from another board", viewer, foreign.ID, errors.CodeInvalidInput},
		{"unknown evidence", viewer, uuid.New(), errors.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Form(context.Background(), tt.viewer, f.board.ID, tt.evidenceID)
			if errors.GetCode(err) != tt.wantCode {
				t.Errorf("Form error code = %s, want %s", errors.GetCode(err), tt.wantCode)
			}
		})
	}
}

// TestEvaluate tests that set, keep, and remove choices apply correctly and
// that the voter is enrolled as an evaluator
func TestEvaluate(t *testing.T) {
	f := newEvaluationFixture()
	h1 := f.addHypothesis("first")
	h2 := f.addHypothesis("second")
	h3 := f.addHypothesis("third")
	e := f.addEvidence("evidence")

	viewer := &models.User{ID: uuid.New(), Username: "viewer"}
	f.evaluations.Apply(context.Background(), f.board.ID, e.ID, viewer.ID,
		map[uuid.UUID]models.Eval{
			h2.ID: models.EvalNeutral,
			h3.ID: models.EvalInconsistent,
		}, nil)

	choices := map[uuid.UUID]VoteChoice{
		h1.ID: {Value: models.EvalVeryConsistent},
		h2.ID: {Keep: true},
		h3.ID: {Remove: true},
	}
	if err := f.service.Evaluate(context.Background(), viewer, f.board.ID, e.ID, choices); err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}

	votes, _ := f.evaluations.ListForUserOnEvidence(context.Background(), f.board.ID, e.ID, viewer.ID)
	got := make(map[uuid.UUID]models.Eval)
	for _, v := range votes {
		got[v.HypothesisID] = v.Value
	}
	if got[h1.ID] != models.EvalVeryConsistent {
		t.Errorf("h1 vote = %v, want %v", got[h1.ID], models.EvalVeryConsistent)
	}
	if got[h2.ID] != models.EvalNeutral {
		t.Errorf("h2 vote = %v, want kept %v", got[h2.ID], models.EvalNeutral)
	}
	if _, ok := got[h3.ID]; ok {
		t.Errorf("h3 vote not removed")
	}

	follower, _ := f.followers.IsFollower(context.Background(), f.board.ID, viewer.ID)
	if !follower {
		t.Errorf("voter not enrolled as board follower")
	}
}

// TestEvaluateAllKeep tests that a form submission keeping every assessment
// is a no-op
func TestEvaluateAllKeep(t *testing.T) {
	f := newEvaluationFixture()
	h := f.addHypothesis("hypothesis")
	e := f.addEvidence("evidence")
	viewer := &models.User{ID: uuid.New(), Username: "viewer"}

	choices := map[uuid.UUID]VoteChoice{h.ID: {Keep: true}}
	if err := f.service.Evaluate(context.Background(), viewer, f.board.ID, e.ID, choices); err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if len(f.evaluations.votes) != 0 {
		t.Errorf("no-op submission stored %d votes", len(f.evaluations.votes))
	}
	if follower, _ := f.followers.IsFollower(context.Background(), f.board.ID, viewer.ID); follower {
		t.Errorf("no-op submission enrolled a follower")
	}
}

// TestEvaluateInvalidValue tests that out-of-range values are rejected
func TestEvaluateInvalidValue(t *testing.T) {
	f := newEvaluationFixture()
	h := f.addHypothesis("hypothesis")
	e := f.addEvidence("evidence")
	viewer := &models.User{ID: uuid.New(), Username: "viewer"}

	choices := map[uuid.UUID]VoteChoice{h.ID: {Value: models.Eval(9)}}
	err := f.service.Evaluate(context.Background(), viewer, f.board.ID, e.ID, choices)
	if errors.GetCode(err) != errors.CodeInvalidInput {
		t.Errorf("Evaluate error code = %s, want %s", errors.GetCode(err), errors.CodeInvalidInput)
	}
}

// TestEvaluateRestrictedBoard tests that a viewer without read access cannot
// vote
func TestEvaluateRestrictedBoard(t *testing.T) {
	f := newEvaluationFixture()
	h := f.addHypothesis("hypothesis")
	e := f.addEvidence("evidence")
	f.permissions.perms[f.board.ID].ReadBoard = models.AuthCollaborators

	outsider := &models.User{ID: uuid.New(), Username: "outsider"}
	choices := map[uuid.UUID]VoteChoice{h.ID: {Value: models.EvalNeutral}}
	err := f.service.Evaluate(context.Background(), outsider, f.board.ID, e.ID, choices)
	if errors.GetCode(err) != errors.CodePermissionDenied {
		t.Errorf("Evaluate error code = %s, want %s", errors.GetCode(err), errors.CodePermissionDenied)
	}
}
