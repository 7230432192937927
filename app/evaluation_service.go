package app

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"openach/internal"
	"openach/internal/errors"
	"openach/models"
	"openach/ports"
)

// VoteChoice is one entry on the evaluation form: keep the previous
// assessment, remove it, or record a new value.
type VoteChoice struct {
	Keep   bool
	Remove bool
	Value  models.Eval
}

// EvaluationService records analyst votes and builds the evaluation form
type EvaluationService struct {
	evaluations ports.EvaluationRepository
	hypotheses  ports.HypothesisRepository
	evidence    ports.EvidenceRepository
	boards      ports.BoardRepository
	permissions ports.PermissionRepository
	followers   ports.FollowerRepository
	logger      *internal.Logger

	// shuffle orders the hypotheses on the vote form; replaced in tests
	shuffle func(n int, swap func(i, j int))
}

// NewEvaluationService creates an evaluation service
func NewEvaluationService(evaluations ports.EvaluationRepository, hypotheses ports.HypothesisRepository, evidence ports.EvidenceRepository, boards ports.BoardRepository, permissions ports.PermissionRepository, followers ports.FollowerRepository, logger *internal.Logger) *EvaluationService {
	return &EvaluationService{
		evaluations: evaluations,
		hypotheses:  hypotheses,
		evidence:    evidence,
		boards:      boards,
		permissions: permissions,
		followers:   followers,
		logger:      logger.Named("evaluations"),
		shuffle:     rand.Shuffle,
	}
}

// VoteForm is the evaluation form for one piece of evidence. Hypotheses the
// viewer has not yet assessed come first, in shuffled order to avoid
// anchoring on the board's current ranking.
type VoteForm struct {
	Board      *models.Board
	Evidence   *models.Evidence
	Hypotheses []*models.Hypothesis

	// Existing maps hypothesis ID to the viewer's current vote
	Existing map[uuid.UUID]models.Eval
}

// Form builds the evaluation form for the viewer
func (s *EvaluationService) Form(ctx context.Context, viewer *models.User, boardID, evidenceID uuid.UUID) (*VoteForm, error) {
	board, err := s.authorize(ctx, viewer, boardID)
	if err != nil {
		return nil, err
	}
	evidence, err := s.evidence.GetEvidence(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	if evidence.BoardID != boardID {
		return nil, errors.InvalidInput("evidence does not belong to this board")
	}
	hypotheses, err := s.hypotheses.ListForBoard(ctx, boardID, false)
	if err != nil {
		return nil, err
	}
	votes, err := s.evaluations.ListForUserOnEvidence(ctx, boardID, evidenceID, viewer.ID)
	if err != nil {
		return nil, err
	}

	existing := make(map[uuid.UUID]models.Eval, len(votes))
	for _, vote := range votes {
		existing[vote.HypothesisID] = vote.Value
	}

	s.shuffle(len(hypotheses), func(i, j int) {
		hypotheses[i], hypotheses[j] = hypotheses[j], hypotheses[i]
	})
	sort.SliceStable(hypotheses, func(i, j int) bool {
		_, iVoted := existing[hypotheses[i].ID]
		_, jVoted := existing[hypotheses[j].ID]
		return !iVoted && jVoted
	})

	return &VoteForm{
		Board:      board,
		Evidence:   evidence,
		Hypotheses: hypotheses,
		Existing:   existing,
	}, nil
}

// Evaluate applies the viewer's votes for one piece of evidence and marks
// them as a board evaluator. Hypotheses marked keep retain their previous
// assessment; hypotheses marked remove lose it.
func (s *EvaluationService) Evaluate(ctx context.Context, viewer *models.User, boardID, evidenceID uuid.UUID, choices map[uuid.UUID]VoteChoice) error {
	if _, err := s.authorize(ctx, viewer, boardID); err != nil {
		return err
	}
	evidence, err := s.evidence.GetEvidence(ctx, evidenceID)
	if err != nil {
		return err
	}
	if evidence.BoardID != boardID {
		return errors.InvalidInput("evidence does not belong to this board")
	}

	set := make(map[uuid.UUID]models.Eval)
	var remove []uuid.UUID
	for hypothesisID, choice := range choices {
		switch {
		case choice.Keep:
		case choice.Remove:
			remove = append(remove, hypothesisID)
		default:
			if !choice.Value.Valid() {
				return errors.InvalidInput("invalid evaluation value")
			}
			set[hypothesisID] = choice.Value
		}
	}
	if len(set) == 0 && len(remove) == 0 {
		return nil
	}

	if err := s.evaluations.Apply(ctx, boardID, evidenceID, viewer.ID, set, remove); err != nil {
		return err
	}

	follower := &models.BoardFollower{
		BoardID:     boardID,
		UserID:      viewer.ID,
		IsEvaluator: true,
		UpdatedAt:   time.Now(),
	}
	if err := s.followers.UpsertFollower(ctx, follower); err != nil {
		s.logger.Warn("failed to mark %s as evaluator of %s: %v", viewer.Username, boardID, err)
	}
	return nil
}

// authorize verifies the viewer is logged in and can read the board
func (s *EvaluationService) authorize(ctx context.Context, viewer *models.User, boardID uuid.UUID) (*models.Board, error) {
	if viewer == nil {
		return nil, errors.Unauthenticated("login required to evaluate evidence")
	}
	board, err := s.boards.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	perms, err := s.permissions.GetPermissions(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if !perms.CanRead(viewer, board.CreatorID) {
		return nil, errors.PermissionDenied("you do not have permission to view this board")
	}
	return board, nil
}
