package app

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"openach/internal"
	"openach/internal/config"
	"openach/models"
	"openach/ports"
)

// maxConcurrentSends bounds the digest fan-out so a large subscriber list
// does not open unbounded SMTP connections
const maxConcurrentSends = 4

// DigestService assembles and sends email digests of board activity
type DigestService struct {
	users         ports.UserRepository
	notifications ports.NotificationRepository
	boards        ports.BoardRepository
	mailer        ports.Mailer
	site          config.SiteConfig
	logger        *internal.Logger
}

// NewDigestService creates a digest service
func NewDigestService(users ports.UserRepository, notifications ports.NotificationRepository, boards ports.BoardRepository, mailer ports.Mailer, site config.SiteConfig, logger *internal.Logger) *DigestService {
	return &DigestService{
		users:         users,
		notifications: notifications,
		boards:        boards,
		mailer:        mailer,
		site:          site,
		logger:        logger.Named("digest"),
	}
}

// Digest is the assembled digest content for one user
type Digest struct {
	User  *models.User
	Start time.Time
	End   time.Time

	// NewBoards holds readable boards created in the window, excluding the
	// user's own
	NewBoards []*models.Board

	// Notifications holds unread notifications from the window grouped by
	// board title, in board title order
	Notifications map[string][]*models.Notification
}

// Empty reports whether the digest has nothing to say
func (d *Digest) Empty() bool {
	return len(d.NewBoards) == 0 && len(d.Notifications) == 0
}

// BoardTitles returns the notification group titles in sorted order
func (d *Digest) BoardTitles() []string {
	titles := make([]string, 0, len(d.Notifications))
	for title := range d.Notifications {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles
}

// SendResult summarizes one digest run
type SendResult struct {
	Succeeded int
	Skipped   int
	Failed    int
}

// Build assembles the digest for a user. The window starts at the latest of
// the frequency window, the user's join date, and their last successful
// digest, so a new subscriber never receives stale activity and activity is
// never reported twice.
func (s *DigestService) Build(ctx context.Context, user *models.User, frequency models.DigestFrequency, end time.Time) (*Digest, error) {
	window, ok := frequency.Window()
	if !ok {
		return nil, fmt.Errorf("frequency %s has no digest window", frequency)
	}

	start := end.Add(-window)
	if user.DateJoined.After(start) {
		start = user.DateJoined
	}
	status, err := s.users.GetDigestStatus(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if status != nil && status.LastSuccess != nil && status.LastSuccess.After(start) {
		start = *status.LastSuccess
	}

	digest := &Digest{
		User:          user,
		Start:         start,
		End:           end,
		Notifications: make(map[string][]*models.Notification),
	}

	notifications, err := s.notifications.ListUnreadBetween(ctx, user.ID, start, end)
	if err != nil {
		return nil, err
	}
	for _, n := range notifications {
		if n.ActorID == user.ID {
			continue
		}
		digest.Notifications[n.BoardTitle] = append(digest.Notifications[n.BoardTitle], n)
	}

	digest.NewBoards, err = s.boards.ReadableCreatedBetween(ctx, user, start, end)
	if err != nil {
		return nil, err
	}
	return digest, nil
}

// SendDigests builds and sends digests to every subscriber at the given
// frequency. Users with nothing to report are skipped. Sends run
// concurrently with a bounded group; one failed send does not stop the run.
func (s *DigestService) SendDigests(ctx context.Context, frequency models.DigestFrequency, now time.Time) (*SendResult, error) {
	if _, ok := frequency.Window(); !ok {
		return nil, fmt.Errorf("cannot send digests for frequency %s", frequency)
	}

	subscribers, err := s.users.ListDigestSubscribers(ctx, frequency)
	if err != nil {
		return nil, err
	}
	s.logger.Info("sending %s digests to %d subscribers", frequency, len(subscribers))

	var mu sync.Mutex
	result := &SendResult{}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSends)
	for _, user := range subscribers {
		user := user
		g.Go(func() error {
			outcome := s.sendOne(ctx, user, frequency, now)
			mu.Lock()
			switch outcome {
			case sendSucceeded:
				result.Succeeded++
			case sendSkipped:
				result.Skipped++
			case sendFailed:
				result.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

type sendOutcome int

const (
	sendSucceeded sendOutcome = iota
	sendSkipped
	sendFailed
)

func (s *DigestService) sendOne(ctx context.Context, user *models.User, frequency models.DigestFrequency, now time.Time) sendOutcome {
	digest, err := s.Build(ctx, user, frequency, now)
	if err != nil {
		s.logger.Warn("failed to build digest for %s: %v", user.Username, err)
		return sendFailed
	}
	if digest.Empty() {
		return sendSkipped
	}

	subject := fmt.Sprintf("[%s] %s digest", s.site.Name, frequency)
	text, html := s.render(digest)
	if err := s.mailer.Send(ctx, user.Email, subject, text, html); err != nil {
		s.logger.Warn("failed to send digest to %s: %v", user.Username, err)
		if statusErr := s.users.UpsertDigestStatus(ctx, user.ID, now, false); statusErr != nil {
			s.logger.Warn("failed to record digest attempt for %s: %v", user.Username, statusErr)
		}
		return sendFailed
	}

	if err := s.users.UpsertDigestStatus(ctx, user.ID, now, true); err != nil {
		s.logger.Warn("failed to record digest success for %s: %v", user.Username, err)
	}
	return sendSucceeded
}

// render formats the digest as plain text and a minimal HTML alternative
func (s *DigestService) render(digest *Digest) (string, string) {
	var t, h strings.Builder
	fmt.Fprintf(&t, "Hello %s,\n\nHere's what happened on %s since %s.\n\n",
		digest.User.Username, s.site.Name, digest.Start.Format("Jan 2, 2006"))
	fmt.Fprintf(&h, "<p>Hello %s,</p><p>Here's what happened on %s since %s.</p>",
		html.EscapeString(digest.User.Username), html.EscapeString(s.site.Name), digest.Start.Format("Jan 2, 2006"))

	if len(digest.NewBoards) > 0 {
		t.WriteString("New boards:\n")
		h.WriteString("<h3>New boards</h3><ul>")
		for _, board := range digest.NewBoards {
			fmt.Fprintf(&t, "  - %s\n    https://%s%s\n", board.Title, s.site.Domain, board.URL())
			fmt.Fprintf(&h, `<li><a href="https://%s%s">%s</a></li>`, s.site.Domain, board.URL(), html.EscapeString(board.Title))
		}
		t.WriteString("\n")
		h.WriteString("</ul>")
	}

	for _, title := range digest.BoardTitles() {
		fmt.Fprintf(&t, "%s:\n", title)
		fmt.Fprintf(&h, "<h3>%s</h3><ul>", html.EscapeString(title))
		for _, n := range digest.Notifications[title] {
			fmt.Fprintf(&t, "  - %s %s %s\n", n.ActorName, n.Verb, n.ObjectDesc)
			fmt.Fprintf(&h, "<li>%s %s %s</li>",
				html.EscapeString(n.ActorName), n.Verb, html.EscapeString(n.ObjectDesc))
		}
		t.WriteString("\n")
		h.WriteString("</ul>")
	}

	fmt.Fprintf(&t, "Visit https://%s to catch up.\n", s.site.Domain)
	fmt.Fprintf(&h, `<p><a href="https://%s">Catch up on %s</a></p>`, s.site.Domain, s.site.Name)
	return t.String(), h.String()
}
