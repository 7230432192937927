package app

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"openach/domain/metrics"
	"openach/internal"
	"openach/internal/cache"
	"openach/internal/config"
	"openach/internal/errors"
	"openach/models"
	"openach/ports"
)

// Vote pools for board detail rendering. Collaborator consensus uses only
// the votes of the creator and collaborators; the all pool uses every vote.
const (
	VoteTypeCollab = "collab"
	VoteTypeAll    = "all"
)

// similarityThreshold is the rating correlation at which two hypotheses are
// flagged as potential duplicates
const similarityThreshold = 0.9

const (
	contributorCountsKey = "contributor_counts"
	evaluatorCountsKey   = "evaluator_counts"
)

// BoardService orchestrates board lifecycle, detail rendering, and listings
type BoardService struct {
	boards      ports.BoardRepository
	permissions ports.PermissionRepository
	followers   ports.FollowerRepository
	hypotheses  ports.HypothesisRepository
	evidence    ports.EvidenceRepository
	evaluations ports.EvaluationRepository
	history     ports.HistoryRepository
	notifier    *NotificationService
	counts      *cache.TTLCache
	site        config.SiteConfig
	logger      *internal.Logger
}

// NewBoardService creates a board service
func NewBoardService(boards ports.BoardRepository, permissions ports.PermissionRepository, followers ports.FollowerRepository, hypotheses ports.HypothesisRepository, evidence ports.EvidenceRepository, evaluations ports.EvaluationRepository, history ports.HistoryRepository, notifier *NotificationService, site config.SiteConfig, logger *internal.Logger) *BoardService {
	return &BoardService{
		boards:      boards,
		permissions: permissions,
		followers:   followers,
		hypotheses:  hypotheses,
		evidence:    evidence,
		evaluations: evaluations,
		history:     history,
		notifier:    notifier,
		counts:      cache.New(site.MetricsCacheTTL),
		site:        site,
		logger:      logger.Named("boards"),
	}
}

// CreateBoardRequest defines the inputs for creating a board. Analysis
// starts with at least two competing hypotheses, so creation seeds the board
// with both.
type CreateBoardRequest struct {
	Title       string
	Description string
	Hypotheses  []string
	ReadLevel   models.AuthLevel
}

// CreateBoard creates a board with its permission scheme and seed
// hypotheses, and enrolls the creator as a follower.
func (s *BoardService) CreateBoard(ctx context.Context, creator *models.User, req CreateBoardRequest) (*models.Board, error) {
	if creator == nil {
		return nil, errors.Unauthenticated("login required to create a board")
	}
	if len(req.Hypotheses) < 2 {
		return nil, errors.ValidationError("a board needs at least two competing hypotheses")
	}

	now := time.Now()
	board := &models.Board{
		ID:          uuid.New(),
		Title:       req.Title,
		Slug:        models.Slugify(req.Title),
		Description: req.Description,
		CreatorID:   &creator.ID,
		PubDate:     now,
	}
	if err := board.Validate(); err != nil {
		return nil, err
	}

	perms := models.DefaultPermissions(board.ID)
	perms.ReadBoard = req.ReadLevel
	if perms.ReadComments > req.ReadLevel {
		perms.ReadComments = req.ReadLevel
	}
	if err := perms.Validate(s.site.AccountRequired); err != nil {
		return nil, err
	}

	seed := make([]*models.Hypothesis, len(req.Hypotheses))
	for i, text := range req.Hypotheses {
		hypothesis := &models.Hypothesis{
			ID:         uuid.New(),
			BoardID:    board.ID,
			Text:       text,
			CreatorID:  &creator.ID,
			SubmitDate: now,
		}
		if err := hypothesis.Validate(); err != nil {
			return nil, err
		}
		seed[i] = hypothesis
	}

	if err := s.boards.CreateBoard(ctx, board, perms, seed); err != nil {
		return nil, err
	}

	follower := &models.BoardFollower{
		BoardID:   board.ID,
		UserID:    creator.ID,
		IsCreator: true,
		UpdatedAt: now,
	}
	if err := s.followers.UpsertFollower(ctx, follower); err != nil {
		s.logger.Warn("failed to enroll creator as follower of %s: %v", board.ID, err)
	}

	s.logger.Info("board %s created by %s", board.ID, creator.Username)
	return board, nil
}

// UpdateBoard edits the board title and description, recording the changes
// in the board history and notifying followers.
func (s *BoardService) UpdateBoard(ctx context.Context, actor *models.User, boardID uuid.UUID, title, description string) (*models.Board, error) {
	board, perms, err := s.readableBoard(ctx, actor, boardID)
	if err != nil {
		return nil, err
	}
	if !perms.ForUser(actor, board.CreatorID).Has(models.PermEditBoard) {
		return nil, errors.PermissionDenied("you do not have permission to edit this board")
	}

	changes := fieldChanges(board.ID, models.HistoryKindBoard, board.ID, actor, [][3]string{
		{"title", board.Title, title},
		{"description", board.Description, description},
	})

	board.Title = title
	board.Slug = models.Slugify(title)
	board.Description = description
	if err := board.Validate(); err != nil {
		return nil, err
	}
	if err := s.boards.UpdateBoard(ctx, board); err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		if err := s.history.Record(ctx, changes); err != nil {
			s.logger.Warn("failed to record board history for %s: %v", board.ID, err)
		}
		if err := s.notifier.NotifyFollowers(ctx, board, actor, models.VerbEdited, board.Title, board.URL()); err != nil {
			s.logger.Warn("failed to notify followers of %s: %v", board.ID, err)
		}
	}
	return board, nil
}

// RemoveBoard soft-removes a board. Removal is restricted to staff and only
// available when the site allows element removal.
func (s *BoardService) RemoveBoard(ctx context.Context, actor *models.User, boardID uuid.UUID) error {
	if !s.site.EditRemoveEnabled {
		return errors.PermissionDenied("removing boards is disabled on this site")
	}
	if actor == nil || !actor.IsStaff {
		return errors.PermissionDenied("only staff may remove boards")
	}
	board, err := s.boards.GetBoard(ctx, boardID)
	if err != nil {
		return err
	}
	board.Removed = true
	return s.boards.UpdateBoard(ctx, board)
}

// Permissions returns the board's permission scheme for editing. Only the
// board creator and staff may manage permissions.
func (s *BoardService) Permissions(ctx context.Context, actor *models.User, boardID uuid.UUID) (*models.BoardPermissions, error) {
	board, err := s.boards.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, board) {
		return nil, errors.PermissionDenied("only the board owner may manage permissions")
	}
	return s.permissions.GetPermissions(ctx, boardID)
}

// UpdatePermissions replaces the board's permission scheme and collaborator
// set after validating the permission ordering constraints.
func (s *BoardService) UpdatePermissions(ctx context.Context, actor *models.User, perms *models.BoardPermissions) error {
	board, err := s.boards.GetBoard(ctx, perms.BoardID)
	if err != nil {
		return err
	}
	if !canManage(actor, board) {
		return errors.PermissionDenied("only the board owner may manage permissions")
	}
	if err := perms.Validate(s.site.AccountRequired); err != nil {
		return err
	}
	return s.permissions.UpdatePermissions(ctx, perms)
}

// CellSummary is the consensus for one matrix cell
type CellSummary struct {
	Consensus    models.Eval
	HasConsensus bool
	Disagreement float64
}

// BoardDetail is the fully rendered board matrix for a viewer
type BoardDetail struct {
	Board       *models.Board
	Permissions models.PermissionSet

	// Hypotheses and Evidence are ordered by their ACH sort keys: the
	// least-refuted hypothesis and most diagnostic evidence first.
	Hypotheses []*models.Hypothesis
	Evidence   []*models.Evidence

	// Cells maps evidence ID to hypothesis ID to the consensus summary for
	// the selected vote pool.
	Cells map[uuid.UUID]map[uuid.UUID]CellSummary

	// UserVotes maps evidence ID to hypothesis ID to the viewer's own vote
	UserVotes map[uuid.UUID]map[uuid.UUID]models.Eval

	// Similar holds hypothesis pairs whose rating profiles correlate
	// strongly, suggesting duplicates the analysts could merge
	Similar []SimilarHypotheses

	VoteType string
	Followed bool
}

// SimilarHypotheses flags two hypotheses rated nearly identically
type SimilarHypotheses struct {
	A           *models.Hypothesis
	B           *models.Hypothesis
	Correlation float64
}

// Detail renders the board matrix for the viewer. voteType selects which
// vote pool drives the consensus; an empty voteType defaults to the
// collaborator pool when the viewer is a collaborator or the creator.
func (s *BoardService) Detail(ctx context.Context, viewer *models.User, boardID uuid.UUID, voteType string) (*BoardDetail, error) {
	board, perms, err := s.readableBoard(ctx, viewer, boardID)
	if err != nil {
		return nil, err
	}

	isInsider := viewer != nil && (perms.IsCollaborator(viewer.ID) ||
		(board.CreatorID != nil && viewer.ID == *board.CreatorID))
	switch voteType {
	case VoteTypeCollab, VoteTypeAll:
	case "":
		voteType = VoteTypeAll
		if isInsider {
			voteType = VoteTypeCollab
		}
	default:
		return nil, errors.InvalidInput("unknown vote type")
	}

	hypotheses, err := s.hypotheses.ListForBoard(ctx, boardID, false)
	if err != nil {
		return nil, err
	}
	evidence, err := s.evidence.ListForBoard(ctx, boardID, false)
	if err != nil {
		return nil, err
	}
	evaluations, err := s.evaluations.ListForBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}

	insiders := make(map[uuid.UUID]bool, len(perms.Collaborators)+1)
	for _, id := range perms.Collaborators {
		insiders[id] = true
	}
	if board.CreatorID != nil {
		insiders[*board.CreatorID] = true
	}

	// votes[evidence][hypothesis] holds the pool used for consensus
	votes := make(map[uuid.UUID]map[uuid.UUID][]models.Eval)
	userVotes := make(map[uuid.UUID]map[uuid.UUID]models.Eval)
	for _, ev := range evaluations {
		if viewer != nil && ev.UserID == viewer.ID {
			if userVotes[ev.EvidenceID] == nil {
				userVotes[ev.EvidenceID] = make(map[uuid.UUID]models.Eval)
			}
			userVotes[ev.EvidenceID][ev.HypothesisID] = ev.Value
		}
		if voteType == VoteTypeCollab && !insiders[ev.UserID] {
			continue
		}
		if votes[ev.EvidenceID] == nil {
			votes[ev.EvidenceID] = make(map[uuid.UUID][]models.Eval)
		}
		votes[ev.EvidenceID][ev.HypothesisID] = append(votes[ev.EvidenceID][ev.HypothesisID], ev.Value)
	}

	cells := make(map[uuid.UUID]map[uuid.UUID]CellSummary, len(evidence))
	for _, e := range evidence {
		row := make(map[uuid.UUID]CellSummary, len(hypotheses))
		for _, h := range hypotheses {
			pool := votes[e.ID][h.ID]
			summary := CellSummary{}
			if consensus, ok := metrics.AggregateVote(pool); ok {
				summary.Consensus = consensus
				summary.HasConsensus = true
			}
			if disagreement, ok := metrics.Disagreement(pool); ok {
				summary.Disagreement = disagreement
			}
			row[h.ID] = summary
		}
		cells[e.ID] = row
	}

	sortHypotheses(hypotheses, evidence, votes)
	sortEvidence(evidence, hypotheses, votes)

	var similar []SimilarHypotheses
	if len(hypotheses) >= 2 && len(evidence) >= 2 {
		byHypothesis := make([][][]models.Eval, len(hypotheses))
		for i, h := range hypotheses {
			rows := make([][]models.Eval, len(evidence))
			for j, e := range evidence {
				rows[j] = votes[e.ID][h.ID]
			}
			byHypothesis[i] = rows
		}
		for _, pair := range metrics.SimilarHypotheses(byHypothesis, similarityThreshold) {
			similar = append(similar, SimilarHypotheses{
				A:           hypotheses[pair.IndexA],
				B:           hypotheses[pair.IndexB],
				Correlation: pair.Correlation,
			})
		}
	}

	followed := false
	if viewer != nil {
		followed, err = s.followers.IsFollower(ctx, boardID, viewer.ID)
		if err != nil {
			s.logger.Warn("failed to check follower status for %s: %v", boardID, err)
		}
	}

	return &BoardDetail{
		Board:       board,
		Permissions: perms.ForUser(viewer, board.CreatorID),
		Hypotheses:  hypotheses,
		Evidence:    evidence,
		Cells:       cells,
		UserVotes:   userVotes,
		Similar:     similar,
		VoteType:    voteType,
		Followed:    followed,
	}, nil
}

// ExportData assembles the matrix data for the xlsx download using the
// all-votes consensus pool
func (s *BoardService) ExportData(ctx context.Context, viewer *models.User, boardID uuid.UUID) (*models.Board, []*models.Hypothesis, []*models.Evidence, map[uuid.UUID]map[uuid.UUID]models.Eval, error) {
	detail, err := s.Detail(ctx, viewer, boardID, VoteTypeAll)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	consensus := make(map[uuid.UUID]map[uuid.UUID]models.Eval, len(detail.Cells))
	for evidenceID, row := range detail.Cells {
		for hypothesisID, cell := range row {
			if !cell.HasConsensus {
				continue
			}
			if consensus[evidenceID] == nil {
				consensus[evidenceID] = make(map[uuid.UUID]models.Eval)
			}
			consensus[evidenceID][hypothesisID] = cell.Consensus
		}
	}
	return detail.Board, detail.Hypotheses, detail.Evidence, consensus, nil
}

// BoardOverview pairs a board with its participation counts for listings
type BoardOverview struct {
	Board        *models.Board
	Contributors int
	Evaluators   int
}

// Listing returns a page of readable boards, most recently published first,
// with cached contributor and evaluator counts.
func (s *BoardService) Listing(ctx context.Context, viewer *models.User, offset, limit int) ([]*BoardOverview, int, error) {
	boards, total, err := s.boards.ListReadable(ctx, viewer, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	contributors, err := s.cachedCounts(ctx, contributorCountsKey, s.boards.ContributorCounts)
	if err != nil {
		return nil, 0, err
	}
	evaluators, err := s.cachedCounts(ctx, evaluatorCountsKey, s.boards.EvaluatorCounts)
	if err != nil {
		return nil, 0, err
	}

	overviews := make([]*BoardOverview, len(boards))
	for i, board := range boards {
		overviews[i] = &BoardOverview{
			Board:        board,
			Contributors: contributors[board.ID],
			Evaluators:   evaluators[board.ID],
		}
	}
	return overviews, total, nil
}

// Latest returns the most recently published readable boards for the front
// page
func (s *BoardService) Latest(ctx context.Context, viewer *models.User, limit int) ([]*models.Board, error) {
	return s.boards.LatestReadable(ctx, viewer, limit)
}

// User board listing queries
const (
	UserBoardsCreated     = "created"
	UserBoardsContributed = "contributed"
	UserBoardsEvaluated   = "evaluated"
)

// UserBoards returns boards associated with userID that the viewer can
// read, selected by query.
func (s *BoardService) UserBoards(ctx context.Context, viewer *models.User, userID uuid.UUID, query string) ([]*models.Board, error) {
	switch query {
	case UserBoardsCreated:
		return s.boards.BoardsCreatedBy(ctx, userID, viewer)
	case UserBoardsContributed:
		return s.boards.BoardsContributedTo(ctx, userID, viewer)
	case UserBoardsEvaluated:
		return s.boards.BoardsEvaluated(ctx, userID, viewer)
	default:
		return nil, errors.InvalidInput("unknown board query")
	}
}

// Search returns readable boards matching the query substring for the
// typeahead widget
func (s *BoardService) Search(ctx context.Context, viewer *models.User, query string) ([]*models.Board, error) {
	if query == "" {
		return nil, nil
	}
	return s.boards.Search(ctx, viewer, query, s.site.BoardSearchResultsMax)
}

// History returns the modification history for a readable board, newest
// change first
func (s *BoardService) History(ctx context.Context, viewer *models.User, boardID uuid.UUID) (*models.Board, []*models.FieldChange, error) {
	board, _, err := s.readableBoard(ctx, viewer, boardID)
	if err != nil {
		return nil, nil, err
	}
	changes, err := s.history.ListForBoard(ctx, boardID)
	if err != nil {
		return nil, nil, err
	}
	return board, changes, nil
}

// readableBoard loads the board and its permissions and verifies the viewer
// can read it
func (s *BoardService) readableBoard(ctx context.Context, viewer *models.User, boardID uuid.UUID) (*models.Board, *models.BoardPermissions, error) {
	board, err := s.boards.GetBoard(ctx, boardID)
	if err != nil {
		return nil, nil, err
	}
	perms, err := s.permissions.GetPermissions(ctx, boardID)
	if err != nil {
		return nil, nil, err
	}
	if !perms.CanRead(viewer, board.CreatorID) {
		return nil, nil, errors.PermissionDenied("you do not have permission to view this board")
	}
	return board, perms, nil
}

func (s *BoardService) cachedCounts(ctx context.Context, key string, load func(context.Context) (map[uuid.UUID]int, error)) (map[uuid.UUID]int, error) {
	v, err := s.counts.GetOrSet(key, func() (interface{}, error) {
		return load(ctx)
	})
	if err != nil {
		return nil, err
	}
	counts, ok := v.(map[uuid.UUID]int)
	if !ok {
		return load(ctx)
	}
	return counts, nil
}

// canManage reports whether the actor owns the board or is staff
func canManage(actor *models.User, board *models.Board) bool {
	if actor == nil {
		return false
	}
	if actor.IsStaff {
		return true
	}
	return board.CreatorID != nil && actor.ID == *board.CreatorID
}

// fieldChanges builds history entries for the fields whose values differ
func fieldChanges(boardID uuid.UUID, kind string, objectID uuid.UUID, actor *models.User, fields [][3]string) []*models.FieldChange {
	now := time.Now()
	var changes []*models.FieldChange
	for _, f := range fields {
		if f[1] == f[2] {
			continue
		}
		change := &models.FieldChange{
			ID:         uuid.New(),
			BoardID:    boardID,
			ObjectKind: kind,
			ObjectID:   objectID,
			Field:      f[0],
			OldValue:   f[1],
			NewValue:   f[2],
			ChangedAt:  now,
		}
		if actor != nil {
			change.ChangedBy = &actor.ID
		}
		changes = append(changes, change)
	}
	return changes
}

// sortHypotheses orders hypotheses by their inconsistency sort key, breaking
// ties by submission order
func sortHypotheses(hypotheses []*models.Hypothesis, evidence []*models.Evidence, votes map[uuid.UUID]map[uuid.UUID][]models.Eval) {
	keys := make(map[uuid.UUID]metrics.Key, len(hypotheses))
	for _, h := range hypotheses {
		cells := make([][]models.Eval, len(evidence))
		for i, e := range evidence {
			cells[i] = votes[e.ID][h.ID]
		}
		keys[h.ID] = metrics.HypothesisSortKey(cells)
	}
	sort.SliceStable(hypotheses, func(i, j int) bool {
		return keys[hypotheses[i].ID].Less(keys[hypotheses[j].ID])
	})
}

// sortEvidence orders evidence by its diagnosticity sort key, breaking ties
// by submission order
func sortEvidence(evidence []*models.Evidence, hypotheses []*models.Hypothesis, votes map[uuid.UUID]map[uuid.UUID][]models.Eval) {
	keys := make(map[uuid.UUID]metrics.Key, len(evidence))
	for _, e := range evidence {
		cells := make([][]models.Eval, len(hypotheses))
		for i, h := range hypotheses {
			cells[i] = votes[e.ID][h.ID]
		}
		keys[e.ID] = metrics.EvidenceSortKey(cells)
	}
	sort.SliceStable(evidence, func(i, j int) bool {
		return keys[evidence[i].ID].Less(keys[evidence[j].ID])
	})
}
