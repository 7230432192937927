package app

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"openach/internal"
	"openach/internal/config"
	"openach/internal/errors"
	"openach/models"
)

type boardFixture struct {
	service       *BoardService
	boards        *fakeBoards
	permissions   *fakePermissions
	followers     *fakeFollowers
	hypotheses    *fakeHypotheses
	evidence      *fakeEvidence
	evaluations   *fakeEvaluations
	history       *fakeHistory
	notifications *fakeNotifications
	users         *fakeUsers

	board *models.Board
	owner *models.User
}

func newBoardFixture() *boardFixture {
	f := &boardFixture{
		boards:        newFakeBoards(),
		permissions:   newFakePermissions(),
		followers:     newFakeFollowers(),
		hypotheses:    &fakeHypotheses{},
		evidence:      &fakeEvidence{},
		evaluations:   newFakeEvaluations(),
		history:       &fakeHistory{},
		notifications: &fakeNotifications{},
		users:         newFakeUsers(),
	}
	site := config.SiteConfig{
		Name:                  "Open Synthesis",
		Domain:                "example.com",
		EditRemoveEnabled:     true,
		BoardSearchResultsMax: 5,
		MetricsCacheTTL:       time.Minute,
	}
	logger := internal.NewLogger(internal.LogLevelError)
	notifier := NewNotificationService(f.notifications, f.followers, f.permissions, f.users, logger)
	f.service = NewBoardService(f.boards, f.permissions, f.followers, f.hypotheses, f.evidence, f.evaluations, f.history, notifier, site, logger)

	f.owner = &models.User{ID: uuid.New(), Username: "owner", DateJoined: time.Now()}
	f.users.add(f.owner)
	f.board = &models.Board{
		ID:        uuid.New(),
		Title:     "Test Board",
		Slug:      "test-board",
		CreatorID: &f.owner.ID,
		PubDate:   time.Now(),
	}
	f.boards.add(f.board)
	f.permissions.perms[f.board.ID] = models.DefaultPermissions(f.board.ID)
	return f
}

func (f *boardFixture) addHypothesis(text string) *models.Hypothesis {
	h := &models.Hypothesis{ID: uuid.New(), BoardID: f.board.ID, Text: text, SubmitDate: time.Now()}
	f.hypotheses.items = append(f.hypotheses.items, h)
	return h
}

func (f *boardFixture) addEvidence(desc string) *models.Evidence {
	e := &models.Evidence{ID: uuid.New(), BoardID: f.board.ID, Description: desc, SubmitDate: time.Now()}
	f.evidence.items = append(f.evidence.items, e)
	return e
}

func (f *boardFixture) vote(userID uuid.UUID, evidenceID, hypothesisID uuid.UUID, value models.Eval) {
	f.evaluations.Apply(context.Background(), f.board.ID, evidenceID, userID,
		map[uuid.UUID]models.Eval{hypothesisID: value}, nil)
}

// TestCreateBoard tests board creation with seed hypotheses and creator
// enrollment
func TestCreateBoard(t *testing.T) {
	f := newBoardFixture()
	creator := &models.User{ID: uuid.New(), Username: "creator", DateJoined: time.Now()}

	board, err := f.service.CreateBoard(context.Background(), creator, CreateBoardRequest{
		Title:       "New Analysis",
		Description: "What happened?",
		Hypotheses:  []string{"It was A", "It was B"},
		ReadLevel:   models.AuthAnyone,
	})
	if err != nil {
		t.Fatalf("CreateBoard returned error: %v", err)
	}
	if board.Slug != "new-analysis" {
		t.Errorf("board slug = %q, want %q", board.Slug, "new-analysis")
	}
	if _, ok := f.boards.boards[board.ID]; !ok {
		t.Errorf("board not persisted")
	}
	if follower, _ := f.followers.IsFollower(context.Background(), board.ID, creator.ID); !follower {
		t.Errorf("creator not enrolled as follower")
	}
}

// TestCreateBoardErrors tests creation validation
func TestCreateBoardErrors(t *testing.T) {
	f := newBoardFixture()
	creator := &models.User{ID: uuid.New(), Username: "creator"}

	tests := []struct {
		name     string
		creator  *models.User
		req      CreateBoardRequest
		wantCode string
	}{
		{"anonymous", nil, CreateBoardRequest{Title: "t", Hypotheses: []string{"a", "b"}}, errors.CodeUnauthenticated},
		{"one hypothesis", creator, CreateBoardRequest{Title: "t", Hypotheses: []string{"a"}}, errors.CodeValidationError},
		{"empty title", creator, CreateBoardRequest{Hypotheses: []string{"a", "b"}}, errors.CodeValidationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateBoard(context.Background(), tt.creator, tt.req)
			if errors.GetCode(err) != tt.wantCode {
				t.Errorf("CreateBoard error code = %s, want %s", errors.GetCode(err), tt.wantCode)
			}
		})
	}
}

// TestDetailConsensusPools tests that the collaborator pool excludes outsider
// votes while the all pool aggregates everyone
func TestDetailConsensusPools(t *testing.T) {
	f := newBoardFixture()
	h := f.addHypothesis("hypothesis")
	e := f.addEvidence("evidence")
	outsider := uuid.New()

	f.vote(f.owner.ID, e.ID, h.ID, models.EvalConsistent)
	f.vote(outsider, e.ID, h.ID, models.EvalVeryInconsistent)

	collab, err := f.service.Detail(context.Background(), f.owner, f.board.ID, VoteTypeCollab)
	if err != nil {
		t.Fatalf("Detail(collab) returned error: %v", err)
	}
	cell := collab.Cells[e.ID][h.ID]
	if !cell.HasConsensus || cell.Consensus != models.EvalConsistent {
		t.Errorf("collab consensus = %v (has=%v), want %v", cell.Consensus, cell.HasConsensus, models.EvalConsistent)
	}

	all, err := f.service.Detail(context.Background(), f.owner, f.board.ID, VoteTypeAll)
	if err != nil {
		t.Fatalf("Detail(all) returned error: %v", err)
	}
	cell = all.Cells[e.ID][h.ID]
	if !cell.HasConsensus || cell.Consensus != models.EvalNeutral {
		t.Errorf("all consensus = %v (has=%v), want %v", cell.Consensus, cell.HasConsensus, models.EvalNeutral)
	}
	if math.Abs(cell.Disagreement-math.Sqrt(4.5)) > 1e-9 {
		t.Errorf("all disagreement = %v, want %v", cell.Disagreement, math.Sqrt(4.5))
	}
}

// TestDetailDefaultVoteType tests the default pool selection for insiders and
// outsiders
func TestDetailDefaultVoteType(t *testing.T) {
	f := newBoardFixture()
	outsider := &models.User{ID: uuid.New(), Username: "outsider"}

	detail, err := f.service.Detail(context.Background(), f.owner, f.board.ID, "")
	if err != nil {
		t.Fatalf("Detail returned error: %v", err)
	}
	if detail.VoteType != VoteTypeCollab {
		t.Errorf("owner default vote type = %s, want %s", detail.VoteType, VoteTypeCollab)
	}

	detail, err = f.service.Detail(context.Background(), outsider, f.board.ID, "")
	if err != nil {
		t.Fatalf("Detail returned error: %v", err)
	}
	if detail.VoteType != VoteTypeAll {
		t.Errorf("outsider default vote type = %s, want %s", detail.VoteType, VoteTypeAll)
	}

	if _, err := f.service.Detail(context.Background(), f.owner, f.board.ID, "bogus"); errors.GetCode(err) != errors.CodeInvalidInput {
		t.Errorf("unknown vote type error code = %s, want %s", errors.GetCode(err), errors.CodeInvalidInput)
	}
}

// TestDetailOrdering tests that the least-refuted hypothesis comes first
func TestDetailOrdering(t *testing.T) {
	f := newBoardFixture()
	refuted := f.addHypothesis("refuted")
	supported := f.addHypothesis("supported")
	e := f.addEvidence("evidence")

	f.vote(f.owner.ID, e.ID, refuted.ID, models.EvalVeryInconsistent)
	f.vote(f.owner.ID, e.ID, supported.ID, models.EvalConsistent)

	detail, err := f.service.Detail(context.Background(), f.owner, f.board.ID, VoteTypeAll)
	if err != nil {
		t.Fatalf("Detail returned error: %v", err)
	}
	if detail.Hypotheses[0].ID != supported.ID {
		t.Errorf("first hypothesis = %s, want %s", detail.Hypotheses[0].Text, supported.Text)
	}
}

// TestDetailSimilarHypotheses tests that near-identical rating profiles are
// flagged as potential duplicates
func TestDetailSimilarHypotheses(t *testing.T) {
	f := newBoardFixture()
	h1 := f.addHypothesis("first")
	h2 := f.addHypothesis("second")
	e1 := f.addEvidence("one")
	e2 := f.addEvidence("two")

	for _, h := range []uuid.UUID{h1.ID, h2.ID} {
		f.vote(f.owner.ID, e1.ID, h, models.EvalVeryInconsistent)
		f.vote(f.owner.ID, e2.ID, h, models.EvalVeryConsistent)
	}

	detail, err := f.service.Detail(context.Background(), f.owner, f.board.ID, VoteTypeAll)
	if err != nil {
		t.Fatalf("Detail returned error: %v", err)
	}
	if len(detail.Similar) != 1 {
		t.Fatalf("Similar has %d pairs, want 1", len(detail.Similar))
	}
	pair := detail.Similar[0]
	if pair.Correlation < 0.999 {
		t.Errorf("correlation = %v, want ~1", pair.Correlation)
	}
	got := map[uuid.UUID]bool{pair.A.ID: true, pair.B.ID: true}
	if !got[h1.ID] || !got[h2.ID] {
		t.Errorf("similar pair = (%s, %s), want both hypotheses", pair.A.Text, pair.B.Text)
	}
}

// TestDetailUserVotes tests that the viewer always sees their own votes even
// when excluded from the consensus pool
func TestDetailUserVotes(t *testing.T) {
	f := newBoardFixture()
	h := f.addHypothesis("hypothesis")
	e := f.addEvidence("evidence")
	viewer := &models.User{ID: uuid.New(), Username: "viewer"}
	f.vote(viewer.ID, e.ID, h.ID, models.EvalInconsistent)

	detail, err := f.service.Detail(context.Background(), viewer, f.board.ID, VoteTypeCollab)
	if err != nil {
		t.Fatalf("Detail returned error: %v", err)
	}
	if got := detail.UserVotes[e.ID][h.ID]; got != models.EvalInconsistent {
		t.Errorf("user vote = %v, want %v", got, models.EvalInconsistent)
	}
	if detail.Cells[e.ID][h.ID].HasConsensus {
		t.Errorf("outsider vote leaked into collaborator consensus")
	}
}

// TestListing tests that board overviews carry participation counts through
// the count cache
func TestListing(t *testing.T) {
	f := newBoardFixture()
	f.boards.contributors = map[uuid.UUID]int{f.board.ID: 3}
	f.boards.evaluators = map[uuid.UUID]int{f.board.ID: 2}

	for _, pass := range []string{"cold cache", "warm cache"} {
		overviews, total, err := f.service.Listing(context.Background(), f.owner, 0, 10)
		if err != nil {
			t.Fatalf("Listing (%s) returned error: %v", pass, err)
		}
		if total != 1 || len(overviews) != 1 {
			t.Fatalf("Listing (%s) returned %d of %d boards, want 1 of 1", pass, len(overviews), total)
		}
		if overviews[0].Contributors != 3 || overviews[0].Evaluators != 2 {
			t.Errorf("counts (%s) = %d/%d, want 3/2", pass, overviews[0].Contributors, overviews[0].Evaluators)
		}
	}
}

// TestUpdateBoard tests that edits record history and notify followers
func TestUpdateBoard(t *testing.T) {
	f := newBoardFixture()
	follower := &models.User{ID: uuid.New(), Username: "follower"}
	f.users.add(follower)
	f.followers.UpsertFollower(context.Background(), &models.BoardFollower{
		BoardID: f.board.ID, UserID: follower.ID, IsContributor: true,
	})

	board, err := f.service.UpdateBoard(context.Background(), f.owner, f.board.ID, "Renamed Board", "updated")
	if err != nil {
		t.Fatalf("UpdateBoard returned error: %v", err)
	}
	if board.Slug != "renamed-board" {
		t.Errorf("slug = %q, want %q", board.Slug, "renamed-board")
	}

	fields := make(map[string]bool)
	for _, change := range f.history.changes {
		fields[change.Field] = true
	}
	if !fields["title"] || !fields["description"] {
		t.Errorf("history fields = %v, want title and description", fields)
	}

	count, _ := f.notifications.CountUnread(context.Background(), follower.ID)
	if count != 1 {
		t.Errorf("follower has %d notifications, want 1", count)
	}
}

// TestUpdateBoardPermissionDenied tests that non-owners cannot edit
func TestUpdateBoardPermissionDenied(t *testing.T) {
	f := newBoardFixture()
	outsider := &models.User{ID: uuid.New(), Username: "outsider"}
	_, err := f.service.UpdateBoard(context.Background(), outsider, f.board.ID, "Hijacked", "")
	if errors.GetCode(err) != errors.CodePermissionDenied {
		t.Errorf("UpdateBoard error code = %s, want %s", errors.GetCode(err), errors.CodePermissionDenied)
	}
}

// TestRemoveBoard tests staff-only soft removal
func TestRemoveBoard(t *testing.T) {
	f := newBoardFixture()
	staff := &models.User{ID: uuid.New(), Username: "admin", IsStaff: true}

	if err := f.service.RemoveBoard(context.Background(), f.owner, f.board.ID); errors.GetCode(err) != errors.CodePermissionDenied {
		t.Errorf("owner removal error code = %s, want %s", errors.GetCode(err), errors.CodePermissionDenied)
	}

	if err := f.service.RemoveBoard(context.Background(), staff, f.board.ID); err != nil {
		t.Fatalf("RemoveBoard returned error: %v", err)
	}
	if _, err := f.boards.GetBoard(context.Background(), f.board.ID); errors.GetCode(err) != errors.CodeNotFound {
		t.Errorf("removed board still readable")
	}
}

// TestUpdatePermissions tests the owner-only permission editing path
func TestUpdatePermissions(t *testing.T) {
	f := newBoardFixture()
	outsider := &models.User{ID: uuid.New(), Username: "outsider"}

	perms := models.DefaultPermissions(f.board.ID)
	perms.ReadBoard = models.AuthRegistered

	if err := f.service.UpdatePermissions(context.Background(), outsider, perms); errors.GetCode(err) != errors.CodePermissionDenied {
		t.Errorf("outsider update error code = %s, want %s", errors.GetCode(err), errors.CodePermissionDenied)
	}

	if err := f.service.UpdatePermissions(context.Background(), f.owner, perms); err != nil {
		t.Fatalf("UpdatePermissions returned error: %v", err)
	}
	stored, _ := f.permissions.GetPermissions(context.Background(), f.board.ID)
	if stored.ReadBoard != models.AuthRegistered {
		t.Errorf("stored read level = %v, want %v", stored.ReadBoard, models.AuthRegistered)
	}

	invalid := models.DefaultPermissions(f.board.ID)
	invalid.ReadBoard = models.AuthBoardCreator
	invalid.AddElements = models.AuthAnyone
	if err := f.service.UpdatePermissions(context.Background(), f.owner, invalid); errors.GetCode(err) != errors.CodeValidationError {
		t.Errorf("invalid scheme error code = %s, want %s", errors.GetCode(err), errors.CodeValidationError)
	}
}
