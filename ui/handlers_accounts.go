package ui

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"openach/app"
	"openach/internal/errors"
	"openach/models"
)

type userBoardsPage struct {
	basePage
	Query  string
	Boards []*models.Board
}

func (a *App) handleUserBoards(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		a.renderError(w, r, errors.NotFound("user"))
		return
	}
	query := r.URL.Query().Get("query")
	if query == "" {
		query = app.UserBoardsCreated
	}
	boards, err := a.boards.UserBoards(r.Context(), currentUser(r), userID, query)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.render(w, "user_boards.html", userBoardsPage{
		basePage: a.base(w, r),
		Query:    query,
		Boards:   boards,
	})
}

type notificationsPage struct {
	basePage
	Notifications []*models.Notification
	Page          Page
}

func (a *App) handleNotifications(w http.ResponseWriter, r *http.Request) {
	viewer := currentUser(r)
	count, err := a.notifications.UnreadCount(r.Context(), viewer.ID)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	page := Paginate(r.URL.Query().Get("page"), count)
	items, _, err := a.notifications.Unread(r.Context(), viewer.ID, page.Offset, page.Limit)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.render(w, "notifications.html", notificationsPage{
		basePage:      a.base(w, r),
		Notifications: items,
		Page:          page,
	})
}

func (a *App) handleNotificationsClear(w http.ResponseWriter, r *http.Request) {
	viewer := currentUser(r)
	if err := a.notifications.MarkAllRead(r.Context(), viewer.ID); err != nil {
		a.renderError(w, r, err)
		return
	}
	flash(w, "Notifications cleared.")
	http.Redirect(w, r, "/accounts/notifications/", http.StatusSeeOther)
}

type settingsPage struct {
	basePage
	Settings    *models.UserSettings
	Frequencies []models.DigestFrequency
	Error       string
}

func digestFrequencies() []models.DigestFrequency {
	return []models.DigestFrequency{models.DigestNever, models.DigestDaily, models.DigestWeekly}
}

func (a *App) handleSettingsForm(w http.ResponseWriter, r *http.Request) {
	viewer := currentUser(r)
	settings, err := a.auth.Settings(r.Context(), viewer.ID)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.render(w, "settings.html", settingsPage{
		basePage:    a.base(w, r),
		Settings:    settings,
		Frequencies: digestFrequencies(),
	})
}

func (a *App) handleSettings(w http.ResponseWriter, r *http.Request) {
	viewer := currentUser(r)
	frequency, ok := models.ParseDigestFrequency(r.PostFormValue("digest_frequency"))
	if !ok {
		a.renderError(w, r, errors.InvalidInput("unknown digest frequency"))
		return
	}
	settings := &models.UserSettings{
		UserID:          viewer.ID,
		DigestFrequency: frequency,
	}
	if err := a.auth.UpdateSettings(r.Context(), settings); err != nil {
		a.renderError(w, r, err)
		return
	}
	flash(w, "Settings saved.")
	http.Redirect(w, r, "/accounts/settings/", http.StatusSeeOther)
}
