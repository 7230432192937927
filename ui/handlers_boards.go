package ui

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"openach/app"
	"openach/internal/errors"
	"openach/models"
)

func boardID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "boardID"))
	if err != nil {
		return uuid.Nil, errors.NotFound("board")
	}
	return id, nil
}

type boardListingPage struct {
	basePage
	Boards []*app.BoardOverview
	Page   Page
}

func (a *App) handleBoardListing(w http.ResponseWriter, r *http.Request) {
	viewer := currentUser(r)

	// Resolve the page against the total before fetching the rows
	_, total, err := a.boards.Listing(r.Context(), viewer, 0, 0)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	page := Paginate(r.URL.Query().Get("page"), total)
	overviews, _, err := a.boards.Listing(r.Context(), viewer, page.Offset, page.Limit)
	if err != nil {
		a.renderError(w, r, err)
		return
	}

	a.render(w, "board_listing.html", boardListingPage{
		basePage: a.base(w, r),
		Boards:   overviews,
		Page:     page,
	})
}

type boardDetailPage struct {
	basePage
	Detail *app.BoardDetail
}

func (a *App) handleBoardDetail(w http.ResponseWriter, r *http.Request) {
	id, err := boardID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	detail, err := a.boards.Detail(r.Context(), currentUser(r), id, r.URL.Query().Get("view_type"))
	if err != nil {
		a.renderError(w, r, err)
		return
	}

	// Redirect to the canonical slug URL so stale links keep working
	slug := chi.URLParam(r, "slug")
	if detail.Board.Slug != "" && slug != detail.Board.Slug {
		http.Redirect(w, r, detail.Board.URL(), http.StatusMovedPermanently)
		return
	}

	a.render(w, "board_detail.html", boardDetailPage{
		basePage: a.base(w, r),
		Detail:   detail,
	})
}

type boardFormPage struct {
	basePage
	Board      *models.Board
	Hypotheses []string
	Levels     []models.AuthLevel
	Error      string
}

func boardLevels() []models.AuthLevel {
	return []models.AuthLevel{
		models.AuthAnyone,
		models.AuthRegistered,
		models.AuthCollaborators,
		models.AuthBoardCreator,
	}
}

func (a *App) handleBoardCreateForm(w http.ResponseWriter, r *http.Request) {
	a.render(w, "board_create.html", boardFormPage{
		basePage: a.base(w, r),
		Levels:   boardLevels(),
	})
}

func (a *App) handleBoardCreate(w http.ResponseWriter, r *http.Request) {
	level, err := strconv.Atoi(r.PostFormValue("read_level"))
	if err != nil {
		level = int(models.AuthAnyone)
	}
	req := app.CreateBoardRequest{
		Title:       strings.TrimSpace(r.PostFormValue("board_title")),
		Description: strings.TrimSpace(r.PostFormValue("board_desc")),
		Hypotheses: []string{
			strings.TrimSpace(r.PostFormValue("hypothesis1")),
			strings.TrimSpace(r.PostFormValue("hypothesis2")),
		},
		ReadLevel: models.AuthLevel(level),
	}
	board, err := a.boards.CreateBoard(r.Context(), currentUser(r), req)
	if err != nil {
		page := boardFormPage{basePage: a.base(w, r), Levels: boardLevels(), Error: err.Error()}
		w.WriteHeader(http.StatusBadRequest)
		a.render(w, "board_create.html", page)
		return
	}
	flash(w, "Board created.")
	http.Redirect(w, r, board.URL(), http.StatusSeeOther)
}

func (a *App) handleBoardEditForm(w http.ResponseWriter, r *http.Request) {
	id, err := boardID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	detail, err := a.boards.Detail(r.Context(), currentUser(r), id, "")
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	if !detail.Permissions.Has(models.PermEditBoard) {
		a.renderError(w, r, errors.PermissionDenied("you do not have permission to edit this board"))
		return
	}
	a.render(w, "board_edit.html", boardFormPage{
		basePage: a.base(w, r),
		Board:    detail.Board,
	})
}

func (a *App) handleBoardEdit(w http.ResponseWriter, r *http.Request) {
	id, err := boardID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	board, err := a.boards.UpdateBoard(r.Context(), currentUser(r), id,
		strings.TrimSpace(r.PostFormValue("board_title")),
		strings.TrimSpace(r.PostFormValue("board_desc")))
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	flash(w, "Board updated.")
	http.Redirect(w, r, board.URL(), http.StatusSeeOther)
}

func (a *App) handleBoardRemove(w http.ResponseWriter, r *http.Request) {
	id, err := boardID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	if err := a.boards.RemoveBoard(r.Context(), currentUser(r), id); err != nil {
		a.renderError(w, r, err)
		return
	}
	flash(w, "Board removed.")
	http.Redirect(w, r, "/boards/", http.StatusSeeOther)
}

type permissionsPage struct {
	basePage
	Board       *models.Board
	Permissions *models.BoardPermissions
	Levels      []models.AuthLevel
	Names       []models.PermissionName
	Error       string
}

func (a *App) handlePermissionsForm(w http.ResponseWriter, r *http.Request) {
	id, err := boardID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	perms, err := a.boards.Permissions(r.Context(), currentUser(r), id)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	detail, err := a.boards.Detail(r.Context(), currentUser(r), id, "")
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.render(w, "board_permissions.html", permissionsPage{
		basePage:    a.base(w, r),
		Board:       detail.Board,
		Permissions: perms,
		Levels:      boardLevels(),
		Names:       models.AllPermissions,
	})
}

func (a *App) handlePermissionsEdit(w http.ResponseWriter, r *http.Request) {
	id, err := boardID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}

	perms := &models.BoardPermissions{BoardID: id}
	levels := map[models.PermissionName]*models.AuthLevel{
		models.PermReadBoard:    &perms.ReadBoard,
		models.PermReadComments: &perms.ReadComments,
		models.PermAddComments:  &perms.AddComments,
		models.PermAddElements:  &perms.AddElements,
		models.PermEditElements: &perms.EditElements,
		models.PermEditBoard:    &perms.EditBoard,
	}
	for name, target := range levels {
		level, err := strconv.Atoi(r.PostFormValue(string(name)))
		if err != nil {
			a.renderError(w, r, errors.InvalidInput("invalid permission level"))
			return
		}
		*target = models.AuthLevel(level)
	}
	for _, raw := range strings.Fields(r.PostFormValue("collaborators")) {
		collaboratorID, err := uuid.Parse(raw)
		if err != nil {
			a.renderError(w, r, errors.InvalidInput("invalid collaborator"))
			return
		}
		perms.Collaborators = append(perms.Collaborators, collaboratorID)
	}

	if err := a.boards.UpdatePermissions(r.Context(), currentUser(r), perms); err != nil {
		a.renderError(w, r, err)
		return
	}
	flash(w, "Permissions updated.")
	http.Redirect(w, r, "/boards/"+id.String()+"/", http.StatusSeeOther)
}

type boardHistoryPage struct {
	basePage
	Board   *models.Board
	Changes []*models.FieldChange
}

func (a *App) handleBoardHistory(w http.ResponseWriter, r *http.Request) {
	id, err := boardID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	board, changes, err := a.boards.History(r.Context(), currentUser(r), id)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.render(w, "board_history.html", boardHistoryPage{
		basePage: a.base(w, r),
		Board:    board,
		Changes:  changes,
	})
}
