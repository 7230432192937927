package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"openach/internal"
	"openach/internal/config"
	"openach/internal/errors"
	"openach/models"
	"openach/ports"
)

// HypothesisService manages the hypotheses on a board. Every mutation marks
// the actor as a board contributor and notifies the board's followers.
type HypothesisService struct {
	hypotheses  ports.HypothesisRepository
	boards      ports.BoardRepository
	permissions ports.PermissionRepository
	followers   ports.FollowerRepository
	history     ports.HistoryRepository
	notifier    *NotificationService
	site        config.SiteConfig
	logger      *internal.Logger
}

// NewHypothesisService creates a hypothesis service
func NewHypothesisService(hypotheses ports.HypothesisRepository, boards ports.BoardRepository, permissions ports.PermissionRepository, followers ports.FollowerRepository, history ports.HistoryRepository, notifier *NotificationService, site config.SiteConfig, logger *internal.Logger) *HypothesisService {
	return &HypothesisService{
		hypotheses:  hypotheses,
		boards:      boards,
		permissions: permissions,
		followers:   followers,
		history:     history,
		notifier:    notifier,
		site:        site,
		logger:      logger.Named("hypotheses"),
	}
}

// AddHypothesis adds a hypothesis to the board
func (s *HypothesisService) AddHypothesis(ctx context.Context, actor *models.User, boardID uuid.UUID, text string) (*models.Hypothesis, error) {
	board, err := s.requirePermission(ctx, actor, boardID, models.PermAddElements)
	if err != nil {
		return nil, err
	}

	hypothesis := &models.Hypothesis{
		ID:         uuid.New(),
		BoardID:    boardID,
		Text:       text,
		CreatorID:  &actor.ID,
		SubmitDate: time.Now(),
	}
	if err := hypothesis.Validate(); err != nil {
		return nil, err
	}
	if err := s.hypotheses.CreateHypothesis(ctx, hypothesis); err != nil {
		return nil, err
	}

	s.recordContribution(ctx, board, actor, models.VerbAdded, hypothesis.Text)
	return hypothesis, nil
}

// Hypothesis loads a hypothesis for a viewer who can read its board
func (s *HypothesisService) Hypothesis(ctx context.Context, viewer *models.User, hypothesisID uuid.UUID) (*models.Hypothesis, error) {
	hypothesis, err := s.hypotheses.GetHypothesis(ctx, hypothesisID)
	if err != nil {
		return nil, err
	}
	board, err := s.boards.GetBoard(ctx, hypothesis.BoardID)
	if err != nil {
		return nil, err
	}
	perms, err := s.permissions.GetPermissions(ctx, board.ID)
	if err != nil {
		return nil, err
	}
	if !perms.CanRead(viewer, board.CreatorID) {
		return nil, errors.PermissionDenied("you do not have permission to view this board")
	}
	return hypothesis, nil
}

// EditHypothesis updates the hypothesis text, recording the change in the
// board history
func (s *HypothesisService) EditHypothesis(ctx context.Context, actor *models.User, hypothesisID uuid.UUID, text string) (*models.Hypothesis, error) {
	hypothesis, err := s.hypotheses.GetHypothesis(ctx, hypothesisID)
	if err != nil {
		return nil, err
	}
	board, err := s.requirePermission(ctx, actor, hypothesis.BoardID, models.PermEditElements)
	if err != nil {
		return nil, err
	}

	changes := fieldChanges(board.ID, models.HistoryKindHypothesis, hypothesis.ID, actor, [][3]string{
		{"text", hypothesis.Text, text},
	})
	if len(changes) == 0 {
		return hypothesis, nil
	}

	hypothesis.Text = text
	if err := hypothesis.Validate(); err != nil {
		return nil, err
	}
	if err := s.hypotheses.UpdateHypothesis(ctx, hypothesis); err != nil {
		return nil, err
	}

	if err := s.history.Record(ctx, changes); err != nil {
		s.logger.Warn("failed to record hypothesis history for %s: %v", hypothesis.ID, err)
	}
	s.recordContribution(ctx, board, actor, models.VerbEdited, hypothesis.Text)
	return hypothesis, nil
}

// RemoveHypothesis soft-removes a hypothesis. The hypothesis and its
// evaluations are retained so the removal can be audited and reversed.
func (s *HypothesisService) RemoveHypothesis(ctx context.Context, actor *models.User, hypothesisID uuid.UUID) error {
	if !s.site.EditRemoveEnabled {
		return errors.PermissionDenied("removing elements is disabled on this site")
	}
	hypothesis, err := s.hypotheses.GetHypothesis(ctx, hypothesisID)
	if err != nil {
		return err
	}
	if _, err := s.requirePermission(ctx, actor, hypothesis.BoardID, models.PermEditElements); err != nil {
		return err
	}
	hypothesis.Removed = true
	return s.hypotheses.UpdateHypothesis(ctx, hypothesis)
}

func (s *HypothesisService) requirePermission(ctx context.Context, actor *models.User, boardID uuid.UUID, perm models.PermissionName) (*models.Board, error) {
	if actor == nil {
		return nil, errors.Unauthenticated("login required")
	}
	board, err := s.boards.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	perms, err := s.permissions.GetPermissions(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if !perms.ForUser(actor, board.CreatorID).Has(perm) {
		return nil, errors.PermissionDenied("you do not have permission to modify this board")
	}
	return board, nil
}

func (s *HypothesisService) recordContribution(ctx context.Context, board *models.Board, actor *models.User, verb models.NotificationVerb, objectDesc string) {
	follower := &models.BoardFollower{
		BoardID:       board.ID,
		UserID:        actor.ID,
		IsContributor: true,
		UpdatedAt:     time.Now(),
	}
	if err := s.followers.UpsertFollower(ctx, follower); err != nil {
		s.logger.Warn("failed to mark %s as contributor to %s: %v", actor.Username, board.ID, err)
	}
	if err := s.notifier.NotifyFollowers(ctx, board, actor, verb, objectDesc, board.URL()); err != nil {
		s.logger.Warn("failed to notify followers of %s: %v", board.ID, err)
	}
}
