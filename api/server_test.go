package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"openach/app"
	"openach/internal"
	"openach/internal/config"
	"openach/models"
	"openach/ports"
)

// Interface-embedding stubs: only the methods the handlers under test reach
// are implemented.

type stubBoardRepo struct {
	ports.BoardRepository
	board *models.Board
}

func (s stubBoardRepo) GetBoard(ctx context.Context, id uuid.UUID) (*models.Board, error) {
	return s.board, nil
}

type stubPermissionRepo struct {
	ports.PermissionRepository
	perms *models.BoardPermissions
}

func (s stubPermissionRepo) GetPermissions(ctx context.Context, boardID uuid.UUID) (*models.BoardPermissions, error) {
	return s.perms, nil
}

type stubHypothesisRepo struct {
	ports.HypothesisRepository
	items []*models.Hypothesis
}

func (s stubHypothesisRepo) ListForBoard(ctx context.Context, boardID uuid.UUID, includeRemoved bool) ([]*models.Hypothesis, error) {
	return s.items, nil
}

type stubEvidenceRepo struct {
	ports.EvidenceRepository
	items []*models.Evidence
}

func (s stubEvidenceRepo) ListForBoard(ctx context.Context, boardID uuid.UUID, includeRemoved bool) ([]*models.Evidence, error) {
	return s.items, nil
}

type stubEvaluationRepo struct {
	ports.EvaluationRepository
	items []*models.Evaluation
}

func (s stubEvaluationRepo) ListForBoard(ctx context.Context, boardID uuid.UUID) ([]*models.Evaluation, error) {
	return s.items, nil
}

// TestHandleBoardDetail tests that the board detail payload carries the
// per-cell consensus and disagreement alongside the ranked elements
func TestHandleBoardDetail(t *testing.T) {
	owner := uuid.New()
	board := &models.Board{ID: uuid.New(), Title: "Board", CreatorID: &owner, PubDate: time.Now()}
	hypothesis := &models.Hypothesis{ID: uuid.New(), BoardID: board.ID, Text: "hypothesis"}
	evidence := &models.Evidence{ID: uuid.New(), BoardID: board.ID, Description: "evidence"}
	evaluations := []*models.Evaluation{
		{ID: uuid.New(), BoardID: board.ID, HypothesisID: hypothesis.ID, EvidenceID: evidence.ID, UserID: uuid.New(), Value: models.EvalConsistent},
		{ID: uuid.New(), BoardID: board.ID, HypothesisID: hypothesis.ID, EvidenceID: evidence.ID, UserID: uuid.New(), Value: models.EvalVeryInconsistent},
	}

	logger := internal.NewLogger(internal.LogLevelError)
	notifier := app.NewNotificationService(nil, nil, nil, nil, logger)
	boardService := app.NewBoardService(
		stubBoardRepo{board: board},
		stubPermissionRepo{perms: models.DefaultPermissions(board.ID)},
		nil,
		stubHypothesisRepo{items: []*models.Hypothesis{hypothesis}},
		stubEvidenceRepo{items: []*models.Evidence{evidence}},
		stubEvaluationRepo{items: evaluations},
		nil,
		notifier,
		config.SiteConfig{},
		logger,
	)
	authService := app.NewAuthService(nil, nil, config.SiteConfig{}, logger)
	server := NewServer(authService, boardService, notifier, config.SiteConfig{}, logger)

	req := httptest.NewRequest(http.MethodGet, "/api/boards/"+board.ID.String(), nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var payload struct {
		Hypotheses []json.RawMessage `json:"hypotheses"`
		Evidence   []json.RawMessage `json:"evidence"`
		Cells      map[string]map[string]struct {
			Consensus     models.Eval `json:"consensus"`
			ConsensusName string      `json:"consensus_name"`
			Disagreement  float64     `json:"disagreement"`
		} `json:"cells"`
		VoteType string `json:"vote_type"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if len(payload.Hypotheses) != 1 || len(payload.Evidence) != 1 {
		t.Fatalf("payload has %d hypotheses, %d evidence, want 1 each", len(payload.Hypotheses), len(payload.Evidence))
	}
	if payload.VoteType != app.VoteTypeAll {
		t.Errorf("vote_type = %q, want %q", payload.VoteType, app.VoteTypeAll)
	}

	cell, ok := payload.Cells[evidence.ID.String()][hypothesis.ID.String()]
	if !ok {
		t.Fatalf("cells missing entry for evidence %s, hypothesis %s", evidence.ID, hypothesis.ID)
	}
	if cell.Consensus != models.EvalNeutral || cell.ConsensusName != "Neutral" {
		t.Errorf("consensus = %d (%q), want %d (Neutral)", cell.Consensus, cell.ConsensusName, models.EvalNeutral)
	}
	if math.Abs(cell.Disagreement-math.Sqrt(4.5)) > 1e-9 {
		t.Errorf("disagreement = %v, want %v", cell.Disagreement, math.Sqrt(4.5))
	}
}

// TestHandleNotificationCountUnauthenticated tests that the badge endpoint
// rejects requests without a session
func TestHandleNotificationCountUnauthenticated(t *testing.T) {
	logger := internal.NewLogger(internal.LogLevelError)
	notifier := app.NewNotificationService(nil, nil, nil, nil, logger)
	authService := app.NewAuthService(nil, nil, config.SiteConfig{}, logger)
	server := NewServer(authService, nil, notifier, config.SiteConfig{}, logger)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications/count", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
