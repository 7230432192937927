package ui

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"openach/app"
	"openach/internal/errors"
	"openach/models"
)

func teamID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "teamID"))
	if err != nil {
		return uuid.Nil, errors.NotFound("team")
	}
	return id, nil
}

type teamListingPage struct {
	basePage
	Teams []*models.Team
	Page  Page
}

func (a *App) handleTeamListing(w http.ResponseWriter, r *http.Request) {
	_, total, err := a.teams.ListPublic(r.Context(), 0, 0)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	page := Paginate(r.URL.Query().Get("page"), total)
	teams, _, err := a.teams.ListPublic(r.Context(), page.Offset, page.Limit)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.render(w, "team_listing.html", teamListingPage{
		basePage: a.base(w, r),
		Teams:    teams,
		Page:     page,
	})
}

type teamPage struct {
	basePage
	View  *app.TeamView
	Team  *models.Team
	Error string
}

func (a *App) handleTeamView(w http.ResponseWriter, r *http.Request) {
	id, err := teamID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	view, err := a.teams.View(r.Context(), currentUser(r), id)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.render(w, "team_detail.html", teamPage{
		basePage: a.base(w, r),
		View:     view,
		Team:     view.Team,
	})
}

func (a *App) handleTeamCreateForm(w http.ResponseWriter, r *http.Request) {
	a.render(w, "team_form.html", teamPage{basePage: a.base(w, r)})
}

func teamRequest(r *http.Request) app.CreateTeamRequest {
	return app.CreateTeamRequest{
		Name:               strings.TrimSpace(r.PostFormValue("name")),
		Description:        strings.TrimSpace(r.PostFormValue("description")),
		Public:             r.PostFormValue("public") == "on",
		InvitationRequired: r.PostFormValue("invitation_required") == "on",
	}
}

func (a *App) handleTeamCreate(w http.ResponseWriter, r *http.Request) {
	team, err := a.teams.CreateTeam(r.Context(), currentUser(r), teamRequest(r))
	if err != nil {
		page := teamPage{basePage: a.base(w, r), Error: err.Error()}
		w.WriteHeader(http.StatusBadRequest)
		a.render(w, "team_form.html", page)
		return
	}
	flash(w, "Team created.")
	http.Redirect(w, r, "/teams/"+team.ID.String()+"/", http.StatusSeeOther)
}

func (a *App) handleTeamEditForm(w http.ResponseWriter, r *http.Request) {
	id, err := teamID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	view, err := a.teams.View(r.Context(), currentUser(r), id)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	if !view.IsOwner {
		a.renderError(w, r, errors.PermissionDenied("only the team owner may edit the team"))
		return
	}
	a.render(w, "team_form.html", teamPage{
		basePage: a.base(w, r),
		Team:     view.Team,
	})
}

func (a *App) handleTeamEdit(w http.ResponseWriter, r *http.Request) {
	id, err := teamID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	team, err := a.teams.UpdateTeam(r.Context(), currentUser(r), id, teamRequest(r))
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	flash(w, "Team updated.")
	http.Redirect(w, r, "/teams/"+team.ID.String()+"/", http.StatusSeeOther)
}

func (a *App) handleTeamJoin(w http.ResponseWriter, r *http.Request) {
	id, err := teamID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	joined, err := a.teams.Join(r.Context(), currentUser(r), id)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	if joined {
		flash(w, "You joined the team.")
	} else {
		flash(w, "Membership requested. The team owner will review your request.")
	}
	http.Redirect(w, r, "/teams/"+id.String()+"/", http.StatusSeeOther)
}

func (a *App) handleTeamLeave(w http.ResponseWriter, r *http.Request) {
	id, err := teamID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	if err := a.teams.Leave(r.Context(), currentUser(r), id); err != nil {
		a.renderError(w, r, err)
		return
	}
	flash(w, "You left the team.")
	http.Redirect(w, r, "/teams/", http.StatusSeeOther)
}

func (a *App) handleTeamInvite(w http.ResponseWriter, r *http.Request) {
	id, err := teamID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	if err := a.teams.Invite(r.Context(), currentUser(r), id, username); err != nil {
		a.renderError(w, r, err)
		return
	}
	flash(w, "Invitation sent to "+username+".")
	http.Redirect(w, r, "/teams/"+id.String()+"/", http.StatusSeeOther)
}

func (a *App) handleTeamRevoke(w http.ResponseWriter, r *http.Request) {
	id, err := teamID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	memberID, err := uuid.Parse(chi.URLParam(r, "memberID"))
	if err != nil {
		a.renderError(w, r, errors.NotFound("member"))
		return
	}
	if err := a.teams.Revoke(r.Context(), currentUser(r), id, memberID); err != nil {
		a.renderError(w, r, err)
		return
	}
	flash(w, "Membership revoked.")
	http.Redirect(w, r, "/teams/"+id.String()+"/", http.StatusSeeOther)
}

func (a *App) handleTeamDecide(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		a.renderError(w, r, errors.NotFound("team request"))
		return
	}
	action := chi.URLParam(r, "action")
	if action != "accept" && action != "reject" {
		a.renderError(w, r, errors.InvalidInput("unknown decision"))
		return
	}
	if err := a.teams.Decide(r.Context(), currentUser(r), requestID, action == "accept"); err != nil {
		a.renderError(w, r, err)
		return
	}
	flash(w, "Request "+action+"ed.")
	http.Redirect(w, r, "/teams/", http.StatusSeeOther)
}
