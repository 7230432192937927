package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openach/internal"
	"openach/internal/config"
	"openach/models"
)

type digestFixture struct {
	service       *DigestService
	users         *fakeUsers
	notifications *fakeNotifications
	boards        *fakeBoards
	mailer        *fakeMailer
}

func newDigestFixture() *digestFixture {
	f := &digestFixture{
		users:         newFakeUsers(),
		notifications: &fakeNotifications{},
		boards:        newFakeBoards(),
		mailer:        &fakeMailer{},
	}
	site := config.SiteConfig{Name: "Open Synthesis", Domain: "example.com"}
	logger := internal.NewLogger(internal.LogLevelError)
	f.service = NewDigestService(f.users, f.notifications, f.boards, f.mailer, site, logger)
	return f
}

func subscriber(username string, joined time.Time) *models.User {
	return &models.User{
		ID:         uuid.New(),
		Username:   username,
		Email:      username + "@example.com",
		IsActive:   true,
		DateJoined: joined,
	}
}

// TestBuildWindowStart tests that the digest window starts at the latest of
// the frequency window, the join date, and the last successful digest
func TestBuildWindowStart(t *testing.T) {
	end := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	longAgo := end.Add(-30 * 24 * time.Hour)
	recentJoin := end.Add(-6 * time.Hour)
	recentSuccess := end.Add(-3 * time.Hour)

	tests := []struct {
		name        string
		joined      time.Time
		lastSuccess *time.Time
		frequency   models.DigestFrequency
		wantStart   time.Time
	}{
		{"daily window", longAgo, nil, models.DigestDaily, end.Add(-24 * time.Hour)},
		{"weekly window", longAgo, nil, models.DigestWeekly, end.Add(-7 * 24 * time.Hour)},
		{"recent join narrows window", recentJoin, nil, models.DigestDaily, recentJoin},
		{"last success narrows window", longAgo, &recentSuccess, models.DigestDaily, recentSuccess},
		{"join after last success wins", recentJoin, &recentSuccess, models.DigestWeekly, recentSuccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDigestFixture()
			user := subscriber("analyst", tt.joined)
			f.users.add(user)
			if tt.lastSuccess != nil {
				f.users.status[user.ID] = &models.DigestStatus{UserID: user.ID, LastSuccess: tt.lastSuccess}
			}

			digest, err := f.service.Build(context.Background(), user, tt.frequency, end)
			require.NoError(t, err)
			assert.True(t, digest.Start.Equal(tt.wantStart), "digest start = %v, want %v", digest.Start, tt.wantStart)
		})
	}
}

// TestBuildRejectsNever tests that no digest can be built for users who
// opted out
func TestBuildRejectsNever(t *testing.T) {
	f := newDigestFixture()
	user := subscriber("analyst", time.Now().Add(-time.Hour))
	_, err := f.service.Build(context.Background(), user, models.DigestNever, time.Now())
	assert.Error(t, err)
}

// TestBuildGroupsNotifications tests that notifications group by board title
// and the user's own actions are excluded
func TestBuildGroupsNotifications(t *testing.T) {
	f := newDigestFixture()
	end := time.Now()
	user := subscriber("analyst", end.Add(-30*24*time.Hour))
	f.users.add(user)

	other := uuid.New()
	inWindow := end.Add(-2 * time.Hour)
	f.notifications.items = []*models.Notification{
		{ID: uuid.New(), RecipientID: user.ID, ActorID: other, ActorName: "colleague", Verb: models.VerbAdded, ObjectDesc: "new evidence", BoardTitle: "Board A", Unread: true, Timestamp: inWindow},
		{ID: uuid.New(), RecipientID: user.ID, ActorID: other, ActorName: "colleague", Verb: models.VerbEdited, ObjectDesc: "a hypothesis", BoardTitle: "Board B", Unread: true, Timestamp: inWindow},
		{ID: uuid.New(), RecipientID: user.ID, ActorID: user.ID, ActorName: "analyst", Verb: models.VerbAdded, ObjectDesc: "own change", BoardTitle: "Board A", Unread: true, Timestamp: inWindow},
		{ID: uuid.New(), RecipientID: user.ID, ActorID: other, ActorName: "colleague", Verb: models.VerbAdded, ObjectDesc: "stale", BoardTitle: "Board A", Unread: true, Timestamp: end.Add(-48 * time.Hour)},
	}

	digest, err := f.service.Build(context.Background(), user, models.DigestDaily, end)
	require.NoError(t, err)
	assert.Len(t, digest.Notifications["Board A"], 1)
	assert.Len(t, digest.Notifications["Board B"], 1)
	assert.Equal(t, []string{"Board A", "Board B"}, digest.BoardTitles())
	assert.False(t, digest.Empty())
}

// TestSendDigests tests that subscribers with activity get mail, quiet
// subscribers are skipped, and delivery status is recorded
func TestSendDigests(t *testing.T) {
	f := newDigestFixture()
	now := time.Now()
	active := subscriber("active", now.Add(-30*24*time.Hour))
	quiet := subscriber("quiet", now.Add(-30*24*time.Hour))
	f.users.add(active)
	f.users.add(quiet)
	f.users.subscribers = []*models.User{active, quiet}

	f.notifications.items = []*models.Notification{
		{ID: uuid.New(), RecipientID: active.ID, ActorID: uuid.New(), ActorName: "colleague", Verb: models.VerbAdded, ObjectDesc: "new evidence", BoardTitle: "Board A", Unread: true, Timestamp: now.Add(-time.Hour)},
	}

	result, err := f.service.SendDigests(context.Background(), models.DigestDaily, now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Failed)

	require.Len(t, f.mailer.sent, 1)
	mail := f.mailer.sent[0]
	assert.Equal(t, active.Email, mail.to)
	assert.Contains(t, mail.text, "Board A")
	assert.Contains(t, mail.html, "Board A")

	status := f.users.status[active.ID]
	require.NotNil(t, status)
	require.NotNil(t, status.LastSuccess)
	assert.True(t, status.LastSuccess.Equal(now))
	assert.Nil(t, f.users.status[quiet.ID], "status recorded for skipped subscriber")
}

// TestSendDigestsMailerFailure tests that a failed send is counted and the
// attempt recorded without a success timestamp
func TestSendDigestsMailerFailure(t *testing.T) {
	f := newDigestFixture()
	now := time.Now()
	user := subscriber("analyst", now.Add(-30*24*time.Hour))
	f.users.add(user)
	f.users.subscribers = []*models.User{user}
	f.mailer.err = context.DeadlineExceeded

	f.notifications.items = []*models.Notification{
		{ID: uuid.New(), RecipientID: user.ID, ActorID: uuid.New(), ActorName: "colleague", Verb: models.VerbAdded, ObjectDesc: "new evidence", BoardTitle: "Board A", Unread: true, Timestamp: now.Add(-time.Hour)},
	}

	result, err := f.service.SendDigests(context.Background(), models.DigestDaily, now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Succeeded)

	status := f.users.status[user.ID]
	require.NotNil(t, status)
	require.NotNil(t, status.LastAttempt)
	assert.Nil(t, status.LastSuccess, "failed send recorded a success timestamp")
}
