package app

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"openach/internal/errors"
	"openach/models"
)

// In-memory port implementations for service tests. Methods not exercised by
// any test return zero values.

type fakeBoards struct {
	boards       map[uuid.UUID]*models.Board
	between      []*models.Board
	contributors map[uuid.UUID]int
	evaluators   map[uuid.UUID]int
}

func newFakeBoards() *fakeBoards {
	return &fakeBoards{boards: make(map[uuid.UUID]*models.Board)}
}

func (f *fakeBoards) add(board *models.Board) {
	f.boards[board.ID] = board
}

func (f *fakeBoards) CreateBoard(ctx context.Context, board *models.Board, perms *models.BoardPermissions, seed []*models.Hypothesis) error {
	f.boards[board.ID] = board
	return nil
}

func (f *fakeBoards) GetBoard(ctx context.Context, id uuid.UUID) (*models.Board, error) {
	board, ok := f.boards[id]
	if !ok || board.Removed {
		return nil, errors.NotFound("board")
	}
	return board, nil
}

func (f *fakeBoards) UpdateBoard(ctx context.Context, board *models.Board) error {
	if _, ok := f.boards[board.ID]; !ok {
		return errors.NotFound("board")
	}
	f.boards[board.ID] = board
	return nil
}

func (f *fakeBoards) ListReadable(ctx context.Context, viewer *models.User, offset, limit int) ([]*models.Board, int, error) {
	all := make([]*models.Board, 0, len(f.boards))
	for _, b := range f.boards {
		if !b.Removed {
			all = append(all, b)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].PubDate.After(all[j].PubDate) })
	total := len(all)
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (f *fakeBoards) LatestReadable(ctx context.Context, viewer *models.User, limit int) ([]*models.Board, error) {
	boards, _, err := f.ListReadable(ctx, viewer, 0, limit)
	return boards, err
}

func (f *fakeBoards) ReadableCreatedBetween(ctx context.Context, viewer *models.User, start, end time.Time) ([]*models.Board, error) {
	var out []*models.Board
	for _, b := range f.between {
		if b.PubDate.After(start) && b.PubDate.Before(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBoards) Search(ctx context.Context, viewer *models.User, query string, limit int) ([]*models.Board, error) {
	return nil, nil
}

func (f *fakeBoards) BoardsCreatedBy(ctx context.Context, userID uuid.UUID, viewer *models.User) ([]*models.Board, error) {
	return nil, nil
}

func (f *fakeBoards) BoardsContributedTo(ctx context.Context, userID uuid.UUID, viewer *models.User) ([]*models.Board, error) {
	return nil, nil
}

func (f *fakeBoards) BoardsEvaluated(ctx context.Context, userID uuid.UUID, viewer *models.User) ([]*models.Board, error) {
	return nil, nil
}

func (f *fakeBoards) ContributorCounts(ctx context.Context) (map[uuid.UUID]int, error) {
	if f.contributors == nil {
		return map[uuid.UUID]int{}, nil
	}
	return f.contributors, nil
}

func (f *fakeBoards) EvaluatorCounts(ctx context.Context) (map[uuid.UUID]int, error) {
	if f.evaluators == nil {
		return map[uuid.UUID]int{}, nil
	}
	return f.evaluators, nil
}

type fakePermissions struct {
	perms map[uuid.UUID]*models.BoardPermissions
}

func newFakePermissions() *fakePermissions {
	return &fakePermissions{perms: make(map[uuid.UUID]*models.BoardPermissions)}
}

func (f *fakePermissions) GetPermissions(ctx context.Context, boardID uuid.UUID) (*models.BoardPermissions, error) {
	perms, ok := f.perms[boardID]
	if !ok {
		return nil, errors.NotFound("board permissions")
	}
	return perms, nil
}

func (f *fakePermissions) UpdatePermissions(ctx context.Context, perms *models.BoardPermissions) error {
	f.perms[perms.BoardID] = perms
	return nil
}

type followerKey struct {
	boardID uuid.UUID
	userID  uuid.UUID
}

type fakeFollowers struct {
	rows map[followerKey]*models.BoardFollower
}

func newFakeFollowers() *fakeFollowers {
	return &fakeFollowers{rows: make(map[followerKey]*models.BoardFollower)}
}

func (f *fakeFollowers) UpsertFollower(ctx context.Context, follower *models.BoardFollower) error {
	key := followerKey{follower.BoardID, follower.UserID}
	if existing, ok := f.rows[key]; ok {
		existing.IsCreator = existing.IsCreator || follower.IsCreator
		existing.IsContributor = existing.IsContributor || follower.IsContributor
		existing.IsEvaluator = existing.IsEvaluator || follower.IsEvaluator
		return nil
	}
	clone := *follower
	f.rows[key] = &clone
	return nil
}

func (f *fakeFollowers) ListFollowers(ctx context.Context, boardID uuid.UUID) ([]*models.BoardFollower, error) {
	var out []*models.BoardFollower
	for key, row := range f.rows {
		if key.boardID == boardID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeFollowers) IsFollower(ctx context.Context, boardID, userID uuid.UUID) (bool, error) {
	_, ok := f.rows[followerKey{boardID, userID}]
	return ok, nil
}

type fakeHypotheses struct {
	items []*models.Hypothesis
}

func (f *fakeHypotheses) CreateHypothesis(ctx context.Context, hypothesis *models.Hypothesis) error {
	f.items = append(f.items, hypothesis)
	return nil
}

func (f *fakeHypotheses) GetHypothesis(ctx context.Context, id uuid.UUID) (*models.Hypothesis, error) {
	for _, h := range f.items {
		if h.ID == id {
			return h, nil
		}
	}
	return nil, errors.NotFound("hypothesis")
}

func (f *fakeHypotheses) UpdateHypothesis(ctx context.Context, hypothesis *models.Hypothesis) error {
	for i, h := range f.items {
		if h.ID == hypothesis.ID {
			f.items[i] = hypothesis
			return nil
		}
	}
	return errors.NotFound("hypothesis")
}

func (f *fakeHypotheses) ListForBoard(ctx context.Context, boardID uuid.UUID, includeRemoved bool) ([]*models.Hypothesis, error) {
	var out []*models.Hypothesis
	for _, h := range f.items {
		if h.BoardID == boardID && (includeRemoved || !h.Removed) {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeEvidence struct {
	items   []*models.Evidence
	sources []*models.EvidenceSource
}

func (f *fakeEvidence) CreateEvidence(ctx context.Context, evidence *models.Evidence) error {
	f.items = append(f.items, evidence)
	return nil
}

func (f *fakeEvidence) GetEvidence(ctx context.Context, id uuid.UUID) (*models.Evidence, error) {
	for _, e := range f.items {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, errors.NotFound("evidence")
}

func (f *fakeEvidence) UpdateEvidence(ctx context.Context, evidence *models.Evidence) error {
	for i, e := range f.items {
		if e.ID == evidence.ID {
			f.items[i] = evidence
			return nil
		}
	}
	return errors.NotFound("evidence")
}

func (f *fakeEvidence) ListForBoard(ctx context.Context, boardID uuid.UUID, includeRemoved bool) ([]*models.Evidence, error) {
	var out []*models.Evidence
	for _, e := range f.items {
		if e.BoardID == boardID && (includeRemoved || !e.Removed) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEvidence) CreateSource(ctx context.Context, source *models.EvidenceSource) error {
	f.sources = append(f.sources, source)
	return nil
}

func (f *fakeEvidence) GetSource(ctx context.Context, id uuid.UUID) (*models.EvidenceSource, error) {
	for _, s := range f.sources {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, errors.NotFound("source")
}

func (f *fakeEvidence) UpdateSource(ctx context.Context, source *models.EvidenceSource) error {
	for i, s := range f.sources {
		if s.ID == source.ID {
			f.sources[i] = source
			return nil
		}
	}
	return errors.NotFound("source")
}

func (f *fakeEvidence) ListSources(ctx context.Context, evidenceID uuid.UUID) ([]*models.EvidenceSource, error) {
	var out []*models.EvidenceSource
	for _, s := range f.sources {
		if s.EvidenceID == evidenceID && !s.Removed {
			out = append(out, s)
		}
	}
	return out, nil
}

type evalKey struct {
	hypothesisID uuid.UUID
	evidenceID   uuid.UUID
	userID       uuid.UUID
}

type fakeEvaluations struct {
	votes map[evalKey]*models.Evaluation
}

func newFakeEvaluations() *fakeEvaluations {
	return &fakeEvaluations{votes: make(map[evalKey]*models.Evaluation)}
}

func (f *fakeEvaluations) Apply(ctx context.Context, boardID, evidenceID, userID uuid.UUID, set map[uuid.UUID]models.Eval, remove []uuid.UUID) error {
	for hypothesisID, value := range set {
		key := evalKey{hypothesisID, evidenceID, userID}
		f.votes[key] = &models.Evaluation{
			ID:           uuid.New(),
			BoardID:      boardID,
			HypothesisID: hypothesisID,
			EvidenceID:   evidenceID,
			UserID:       userID,
			Value:        value,
			Timestamp:    time.Now(),
		}
	}
	for _, hypothesisID := range remove {
		delete(f.votes, evalKey{hypothesisID, evidenceID, userID})
	}
	return nil
}

func (f *fakeEvaluations) ListForBoard(ctx context.Context, boardID uuid.UUID) ([]*models.Evaluation, error) {
	var out []*models.Evaluation
	for _, v := range f.votes {
		if v.BoardID == boardID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeEvaluations) ListForUserOnEvidence(ctx context.Context, boardID, evidenceID, userID uuid.UUID) ([]*models.Evaluation, error) {
	var out []*models.Evaluation
	for key, v := range f.votes {
		if key.evidenceID == evidenceID && key.userID == userID && v.BoardID == boardID {
			out = append(out, v)
		}
	}
	return out, nil
}

type fakeHistory struct {
	changes []*models.FieldChange
}

func (f *fakeHistory) Record(ctx context.Context, changes []*models.FieldChange) error {
	f.changes = append(f.changes, changes...)
	return nil
}

func (f *fakeHistory) ListForBoard(ctx context.Context, boardID uuid.UUID) ([]*models.FieldChange, error) {
	var out []*models.FieldChange
	for _, c := range f.changes {
		if c.BoardID == boardID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeNotifications struct {
	items []*models.Notification
}

func (f *fakeNotifications) CreateNotification(ctx context.Context, notification *models.Notification) error {
	f.items = append(f.items, notification)
	return nil
}

func (f *fakeNotifications) ListUnread(ctx context.Context, recipientID uuid.UUID, offset, limit int) ([]*models.Notification, int, error) {
	var out []*models.Notification
	for _, n := range f.items {
		if n.RecipientID == recipientID && n.Unread {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

func (f *fakeNotifications) ListUnreadBetween(ctx context.Context, recipientID uuid.UUID, start, end time.Time) ([]*models.Notification, error) {
	var out []*models.Notification
	for _, n := range f.items {
		if n.RecipientID == recipientID && n.Unread && n.Timestamp.After(start) && n.Timestamp.Before(end) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotifications) CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error) {
	count := 0
	for _, n := range f.items {
		if n.RecipientID == recipientID && n.Unread {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotifications) MarkAllRead(ctx context.Context, recipientID uuid.UUID) error {
	for _, n := range f.items {
		if n.RecipientID == recipientID {
			n.Unread = false
		}
	}
	return nil
}

type fakeUsers struct {
	users       map[uuid.UUID]*models.User
	settings    map[uuid.UUID]*models.UserSettings
	status      map[uuid.UUID]*models.DigestStatus
	subscribers []*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		users:    make(map[uuid.UUID]*models.User),
		settings: make(map[uuid.UUID]*models.UserSettings),
		status:   make(map[uuid.UUID]*models.DigestStatus),
	}
}

func (f *fakeUsers) add(user *models.User) {
	f.users[user.ID] = user
}

func (f *fakeUsers) CreateUser(ctx context.Context, user *models.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUsers) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, errors.NotFound("user")
	}
	return user, nil
}

func (f *fakeUsers) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, errors.NotFound("user")
}

func (f *fakeUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, errors.NotFound("user")
}

func (f *fakeUsers) UpdateUser(ctx context.Context, user *models.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUsers) GetSettings(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error) {
	if s, ok := f.settings[userID]; ok {
		return s, nil
	}
	return &models.UserSettings{UserID: userID}, nil
}

func (f *fakeUsers) UpsertSettings(ctx context.Context, settings *models.UserSettings) error {
	f.settings[settings.UserID] = settings
	return nil
}

func (f *fakeUsers) ListDigestSubscribers(ctx context.Context, frequency models.DigestFrequency) ([]*models.User, error) {
	return f.subscribers, nil
}

func (f *fakeUsers) GetDigestStatus(ctx context.Context, userID uuid.UUID) (*models.DigestStatus, error) {
	return f.status[userID], nil
}

func (f *fakeUsers) UpsertDigestStatus(ctx context.Context, userID uuid.UUID, attempt time.Time, success bool) error {
	status := f.status[userID]
	if status == nil {
		status = &models.DigestStatus{UserID: userID}
		f.status[userID] = status
	}
	at := attempt
	status.LastAttempt = &at
	if success {
		status.LastSuccess = &at
	}
	return nil
}

type sentMail struct {
	to      string
	subject string
	text    string
	html    string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, text: textBody, html: htmlBody})
	return nil
}
