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

// EvidenceService manages evidence, corroborating sources, and analyst
// source tags
type EvidenceService struct {
	evidence    ports.EvidenceRepository
	tags        ports.SourceTagRepository
	boards      ports.BoardRepository
	permissions ports.PermissionRepository
	followers   ports.FollowerRepository
	history     ports.HistoryRepository
	notifier    *NotificationService
	metadata    ports.SourceMetadataFetcher
	site        config.SiteConfig
	logger      *internal.Logger
}

// NewEvidenceService creates an evidence service
func NewEvidenceService(evidence ports.EvidenceRepository, tags ports.SourceTagRepository, boards ports.BoardRepository, permissions ports.PermissionRepository, followers ports.FollowerRepository, history ports.HistoryRepository, notifier *NotificationService, metadata ports.SourceMetadataFetcher, site config.SiteConfig, logger *internal.Logger) *EvidenceService {
	return &EvidenceService{
		evidence:    evidence,
		tags:        tags,
		boards:      boards,
		permissions: permissions,
		followers:   followers,
		history:     history,
		notifier:    notifier,
		metadata:    metadata,
		site:        site,
		logger:      logger.Named("evidence"),
	}
}

// AddEvidenceRequest defines the inputs for adding evidence. A corroborating
// source may be attached in the same submission.
type AddEvidenceRequest struct {
	BoardID     uuid.UUID
	Description string
	EventDate   *time.Time

	// An initial source submitted alongside the evidence is always treated
	// as corroborating.
	SourceURL  string
	SourceDate time.Time
}

// AddEvidence adds a piece of evidence to the board, optionally with an
// initial corroborating source.
func (s *EvidenceService) AddEvidence(ctx context.Context, actor *models.User, req AddEvidenceRequest) (*models.Evidence, error) {
	board, err := s.requirePermission(ctx, actor, req.BoardID, models.PermAddElements)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	evidence := &models.Evidence{
		ID:          uuid.New(),
		BoardID:     req.BoardID,
		Description: req.Description,
		EventDate:   req.EventDate,
		CreatorID:   &actor.ID,
		SubmitDate:  now,
	}
	if err := evidence.Validate(); err != nil {
		return nil, err
	}
	if err := s.evidence.CreateEvidence(ctx, evidence); err != nil {
		return nil, err
	}

	if req.SourceURL != "" {
		source := &models.EvidenceSource{
			ID:            uuid.New(),
			EvidenceID:    evidence.ID,
			URL:           req.SourceURL,
			SourceDate:    req.SourceDate,
			UploaderID:    actor.ID,
			Corroborating: true,
			SubmitDate:    now,
		}
		if err := s.addSource(ctx, source); err != nil {
			return nil, err
		}
	}

	s.recordContribution(ctx, board, actor, models.VerbAdded, evidence.Description, evidence.CanonicalURL())
	return evidence, nil
}

// EditEvidence updates the evidence description and event date, recording
// the changes in the board history
func (s *EvidenceService) EditEvidence(ctx context.Context, actor *models.User, evidenceID uuid.UUID, description string, eventDate *time.Time) (*models.Evidence, error) {
	evidence, err := s.evidence.GetEvidence(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	board, err := s.requirePermission(ctx, actor, evidence.BoardID, models.PermEditElements)
	if err != nil {
		return nil, err
	}

	changes := fieldChanges(board.ID, models.HistoryKindEvidence, evidence.ID, actor, [][3]string{
		{"description", evidence.Description, description},
		{"event_date", formatEventDate(evidence.EventDate), formatEventDate(eventDate)},
	})
	if len(changes) == 0 {
		return evidence, nil
	}

	evidence.Description = description
	evidence.EventDate = eventDate
	if err := evidence.Validate(); err != nil {
		return nil, err
	}
	if err := s.evidence.UpdateEvidence(ctx, evidence); err != nil {
		return nil, err
	}

	if err := s.history.Record(ctx, changes); err != nil {
		s.logger.Warn("failed to record evidence history for %s: %v", evidence.ID, err)
	}
	s.recordContribution(ctx, board, actor, models.VerbEdited, evidence.Description, evidence.CanonicalURL())
	return evidence, nil
}

// RemoveEvidence soft-removes a piece of evidence
func (s *EvidenceService) RemoveEvidence(ctx context.Context, actor *models.User, evidenceID uuid.UUID) error {
	if !s.site.EditRemoveEnabled {
		return errors.PermissionDenied("removing elements is disabled on this site")
	}
	evidence, err := s.evidence.GetEvidence(ctx, evidenceID)
	if err != nil {
		return err
	}
	if _, err := s.requirePermission(ctx, actor, evidence.BoardID, models.PermEditElements); err != nil {
		return err
	}
	evidence.Removed = true
	return s.evidence.UpdateEvidence(ctx, evidence)
}

// AddSourceRequest defines the inputs for attaching a source to evidence
type AddSourceRequest struct {
	EvidenceID    uuid.UUID
	URL           string
	SourceDate    time.Time
	Corroborating bool
}

// AddSource attaches a source to a piece of evidence. The source title and
// description are backfilled from the page metadata in the background.
func (s *EvidenceService) AddSource(ctx context.Context, actor *models.User, req AddSourceRequest) (*models.EvidenceSource, error) {
	evidence, err := s.evidence.GetEvidence(ctx, req.EvidenceID)
	if err != nil {
		return nil, err
	}
	board, err := s.requirePermission(ctx, actor, evidence.BoardID, models.PermAddElements)
	if err != nil {
		return nil, err
	}

	source := &models.EvidenceSource{
		ID:            uuid.New(),
		EvidenceID:    req.EvidenceID,
		URL:           req.URL,
		SourceDate:    req.SourceDate,
		UploaderID:    actor.ID,
		Corroborating: req.Corroborating,
		SubmitDate:    time.Now(),
	}
	if err := s.addSource(ctx, source); err != nil {
		return nil, err
	}

	s.recordContribution(ctx, board, actor, models.VerbAdded, source.URL, evidence.CanonicalURL())
	return source, nil
}

// addSource validates and stores a source, then kicks off the metadata
// backfill
func (s *EvidenceService) addSource(ctx context.Context, source *models.EvidenceSource) error {
	if err := source.Validate(); err != nil {
		return err
	}
	if err := s.evidence.CreateSource(ctx, source); err != nil {
		return err
	}
	go s.backfillMetadata(source.ID, source.URL)
	return nil
}

// backfillMetadata fetches the source page and fills in the title and
// description when the analyst left them blank. Runs detached from the
// request so a slow page never blocks submission.
func (s *EvidenceService) backfillMetadata(sourceID uuid.UUID, url string) {
	if s.metadata == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	meta, err := s.metadata.Fetch(ctx, url)
	if err != nil {
		s.logger.Debug("metadata fetch for %s failed: %v", url, err)
		return
	}

	source, err := s.evidence.GetSource(ctx, sourceID)
	if err != nil {
		return
	}
	updated := false
	if source.Title == "" && meta.Title != "" {
		source.Title = meta.Title
		updated = true
	}
	if source.Description == "" && meta.Description != "" {
		source.Description = meta.Description
		updated = true
	}
	if !updated {
		return
	}
	if err := s.evidence.UpdateSource(ctx, source); err != nil {
		s.logger.Warn("failed to backfill source %s metadata: %v", sourceID, err)
	}
}

// SourceView pairs a source with its analyst taggings
type SourceView struct {
	Source *models.EvidenceSource

	// TagCounts maps tag ID to the number of analysts who applied it
	TagCounts map[uuid.UUID]int

	// ViewerTags holds the tag IDs the viewer applied to this source
	ViewerTags map[uuid.UUID]bool
}

// EvidenceDetail is the rendered evidence page
type EvidenceDetail struct {
	Board       *models.Board
	Evidence    *models.Evidence
	Sources     []*SourceView
	Conflicting []*SourceView
	Tags        []*models.SourceTag
	Permissions models.PermissionSet
}

// Detail renders a piece of evidence with its sources grouped by whether
// they corroborate or conflict, most recent source date first.
func (s *EvidenceService) Detail(ctx context.Context, viewer *models.User, evidenceID uuid.UUID) (*EvidenceDetail, error) {
	evidence, err := s.evidence.GetEvidence(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	board, err := s.boards.GetBoard(ctx, evidence.BoardID)
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

	sources, err := s.evidence.ListSources(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	tags, err := s.tags.ListTags(ctx)
	if err != nil {
		return nil, err
	}

	sourceIDs := make([]uuid.UUID, len(sources))
	for i, source := range sources {
		sourceIDs[i] = source.ID
	}
	var taggings []*models.AnalystSourceTag
	if len(sourceIDs) > 0 {
		taggings, err = s.tags.ListTaggings(ctx, sourceIDs)
		if err != nil {
			return nil, err
		}
	}

	views := make(map[uuid.UUID]*SourceView, len(sources))
	detail := &EvidenceDetail{
		Board:       board,
		Evidence:    evidence,
		Tags:        tags,
		Permissions: perms.ForUser(viewer, board.CreatorID),
	}
	for _, source := range sources {
		view := &SourceView{
			Source:     source,
			TagCounts:  make(map[uuid.UUID]int),
			ViewerTags: make(map[uuid.UUID]bool),
		}
		views[source.ID] = view
		if source.Corroborating {
			detail.Sources = append(detail.Sources, view)
		} else {
			detail.Conflicting = append(detail.Conflicting, view)
		}
	}
	for _, tagging := range taggings {
		view, ok := views[tagging.SourceID]
		if !ok {
			continue
		}
		view.TagCounts[tagging.TagID]++
		if viewer != nil && tagging.TaggerID == viewer.ID {
			view.ViewerTags[tagging.TagID] = true
		}
	}
	return detail, nil
}

// ToggleSourceTag toggles the actor's named tag on a source and reports
// whether the tag is now applied
func (s *EvidenceService) ToggleSourceTag(ctx context.Context, actor *models.User, sourceID uuid.UUID, tagName string) (bool, error) {
	if actor == nil {
		return false, errors.Unauthenticated("login required")
	}
	source, err := s.evidence.GetSource(ctx, sourceID)
	if err != nil {
		return false, err
	}
	evidence, err := s.evidence.GetEvidence(ctx, source.EvidenceID)
	if err != nil {
		return false, err
	}
	if _, err := s.requirePermission(ctx, actor, evidence.BoardID, models.PermReadBoard); err != nil {
		return false, err
	}
	tag, err := s.tags.GetTagByName(ctx, tagName)
	if err != nil {
		return false, err
	}
	return s.tags.ToggleTagging(ctx, sourceID, actor.ID, tag.ID)
}

func (s *EvidenceService) requirePermission(ctx context.Context, actor *models.User, boardID uuid.UUID, perm models.PermissionName) (*models.Board, error) {
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

func (s *EvidenceService) recordContribution(ctx context.Context, board *models.Board, actor *models.User, verb models.NotificationVerb, objectDesc, objectURL string) {
	follower := &models.BoardFollower{
		BoardID:       board.ID,
		UserID:        actor.ID,
		IsContributor: true,
		UpdatedAt:     time.Now(),
	}
	if err := s.followers.UpsertFollower(ctx, follower); err != nil {
		s.logger.Warn("failed to mark %s as contributor to %s: %v", actor.Username, board.ID, err)
	}
	if err := s.notifier.NotifyFollowers(ctx, board, actor, verb, objectDesc, objectURL); err != nil {
		s.logger.Warn("failed to notify followers of %s: %v", board.ID, err)
	}
}

func formatEventDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
