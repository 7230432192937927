package ui

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"openach/app"
	"openach/internal/errors"
	"openach/models"
)

func hypothesisID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "hypothesisID"))
	if err != nil {
		return uuid.Nil, errors.NotFound("hypothesis")
	}
	return id, nil
}

func evidenceID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "evidenceID"))
	if err != nil {
		return uuid.Nil, errors.NotFound("evidence")
	}
	return id, nil
}

type elementFormPage struct {
	basePage
	BoardID    uuid.UUID
	Hypothesis *models.Hypothesis
	Evidence   *models.Evidence
	Error      string
}

func (a *App) handleHypothesisAddForm(w http.ResponseWriter, r *http.Request) {
	id, err := boardID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.render(w, "hypothesis_form.html", elementFormPage{basePage: a.base(w, r), BoardID: id})
}

func (a *App) handleHypothesisAdd(w http.ResponseWriter, r *http.Request) {
	id, err := boardID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	text := strings.TrimSpace(r.PostFormValue("hypothesis_text"))
	if _, err := a.hypotheses.AddHypothesis(r.Context(), currentUser(r), id, text); err != nil {
		a.renderError(w, r, err)
		return
	}
	flash(w, "Hypothesis added.")
	http.Redirect(w, r, "/boards/"+id.String()+"/", http.StatusSeeOther)
}

func (a *App) handleHypothesisEditForm(w http.ResponseWriter, r *http.Request) {
	id, err := hypothesisID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	hypothesis, err := a.hypotheses.Hypothesis(r.Context(), currentUser(r), id)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.render(w, "hypothesis_form.html", elementFormPage{
		basePage:   a.base(w, r),
		BoardID:    hypothesis.BoardID,
		Hypothesis: hypothesis,
	})
}

func (a *App) handleHypothesisEdit(w http.ResponseWriter, r *http.Request) {
	id, err := hypothesisID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	text := strings.TrimSpace(r.PostFormValue("hypothesis_text"))
	hypothesis, err := a.hypotheses.EditHypothesis(r.Context(), currentUser(r), id, text)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	flash(w, "Hypothesis updated.")
	http.Redirect(w, r, "/boards/"+hypothesis.BoardID.String()+"/", http.StatusSeeOther)
}

func (a *App) handleHypothesisRemove(w http.ResponseWriter, r *http.Request) {
	id, err := hypothesisID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	if err := a.hypotheses.RemoveHypothesis(r.Context(), currentUser(r), id); err != nil {
		a.renderError(w, r, err)
		return
	}
	flash(w, "Hypothesis removed.")
	http.Redirect(w, r, "/boards/", http.StatusSeeOther)
}

func (a *App) handleEvidenceAddForm(w http.ResponseWriter, r *http.Request) {
	id, err := boardID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.render(w, "evidence_form.html", elementFormPage{basePage: a.base(w, r), BoardID: id})
}

func (a *App) handleEvidenceAdd(w http.ResponseWriter, r *http.Request) {
	id, err := boardID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	req := app.AddEvidenceRequest{
		BoardID:     id,
		Description: strings.TrimSpace(r.PostFormValue("evidence_desc")),
		EventDate:   parseDate(r.PostFormValue("event_date")),
		SourceURL:   strings.TrimSpace(r.PostFormValue("source_url")),
	}
	if d := parseDate(r.PostFormValue("source_date")); d != nil {
		req.SourceDate = *d
	} else if req.SourceURL != "" {
		req.SourceDate = time.Now()
	}
	if _, err := a.evidence.AddEvidence(r.Context(), currentUser(r), req); err != nil {
		a.renderError(w, r, err)
		return
	}
	flash(w, "Evidence added.")
	http.Redirect(w, r, "/boards/"+id.String()+"/", http.StatusSeeOther)
}

type evidenceDetailPage struct {
	basePage
	Detail *app.EvidenceDetail
}

func (a *App) handleEvidenceDetail(w http.ResponseWriter, r *http.Request) {
	id, err := evidenceID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	detail, err := a.evidence.Detail(r.Context(), currentUser(r), id)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.render(w, "evidence_detail.html", evidenceDetailPage{
		basePage: a.base(w, r),
		Detail:   detail,
	})
}

func (a *App) handleEvidenceEditForm(w http.ResponseWriter, r *http.Request) {
	id, err := evidenceID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	detail, err := a.evidence.Detail(r.Context(), currentUser(r), id)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.render(w, "evidence_form.html", elementFormPage{
		basePage: a.base(w, r),
		BoardID:  detail.Board.ID,
		Evidence: detail.Evidence,
	})
}

func (a *App) handleEvidenceEdit(w http.ResponseWriter, r *http.Request) {
	id, err := evidenceID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	evidence, err := a.evidence.EditEvidence(r.Context(), currentUser(r), id,
		strings.TrimSpace(r.PostFormValue("evidence_desc")),
		parseDate(r.PostFormValue("event_date")))
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	flash(w, "Evidence updated.")
	http.Redirect(w, r, evidence.CanonicalURL(), http.StatusSeeOther)
}

func (a *App) handleEvidenceRemove(w http.ResponseWriter, r *http.Request) {
	id, err := evidenceID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	if err := a.evidence.RemoveEvidence(r.Context(), currentUser(r), id); err != nil {
		a.renderError(w, r, err)
		return
	}
	flash(w, "Evidence removed.")
	http.Redirect(w, r, "/boards/", http.StatusSeeOther)
}

func (a *App) handleSourceAddForm(w http.ResponseWriter, r *http.Request) {
	id, err := evidenceID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	detail, err := a.evidence.Detail(r.Context(), currentUser(r), id)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.render(w, "source_form.html", elementFormPage{
		basePage: a.base(w, r),
		BoardID:  detail.Board.ID,
		Evidence: detail.Evidence,
	})
}

func (a *App) handleSourceAdd(w http.ResponseWriter, r *http.Request) {
	id, err := evidenceID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	req := app.AddSourceRequest{
		EvidenceID:    id,
		URL:           strings.TrimSpace(r.PostFormValue("source_url")),
		Corroborating: r.PostFormValue("corroborating") != "false",
	}
	if d := parseDate(r.PostFormValue("source_date")); d != nil {
		req.SourceDate = *d
	} else {
		req.SourceDate = time.Now()
	}
	if _, err := a.evidence.AddSource(r.Context(), currentUser(r), req); err != nil {
		a.renderError(w, r, err)
		return
	}
	flash(w, "Source added.")
	http.Redirect(w, r, "/evidence/"+id.String()+"/", http.StatusSeeOther)
}

func (a *App) handleSourceTag(w http.ResponseWriter, r *http.Request) {
	id, err := evidenceID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	sourceID, err := uuid.Parse(chi.URLParam(r, "sourceID"))
	if err != nil {
		a.renderError(w, r, errors.NotFound("source"))
		return
	}
	tagName := r.PostFormValue("tag")
	if _, err := a.evidence.ToggleSourceTag(r.Context(), currentUser(r), sourceID, tagName); err != nil {
		a.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/evidence/"+id.String()+"/", http.StatusSeeOther)
}

type evaluatePage struct {
	basePage
	Form    *app.VoteForm
	Choices []models.Eval
}

func (a *App) handleEvaluateForm(w http.ResponseWriter, r *http.Request) {
	bID, err := boardID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	eID, err := evidenceID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	form, err := a.evaluations.Form(r.Context(), currentUser(r), bID, eID)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.render(w, "evaluate.html", evaluatePage{
		basePage: a.base(w, r),
		Form:     form,
		Choices:  models.EvalChoices,
	})
}

func (a *App) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	bID, err := boardID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	eID, err := evidenceID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		a.renderError(w, r, errors.InvalidInput("invalid form submission"))
		return
	}

	choices := make(map[uuid.UUID]app.VoteChoice)
	for key, values := range r.PostForm {
		if !strings.HasPrefix(key, "hypothesis-") || len(values) == 0 {
			continue
		}
		hID, err := uuid.Parse(strings.TrimPrefix(key, "hypothesis-"))
		if err != nil {
			continue
		}
		switch values[0] {
		case "keep":
			choices[hID] = app.VoteChoice{Keep: true}
		case "remove":
			choices[hID] = app.VoteChoice{Remove: true}
		default:
			value, err := strconv.Atoi(values[0])
			if err != nil {
				a.renderError(w, r, errors.InvalidInput("invalid evaluation value"))
				return
			}
			choices[hID] = app.VoteChoice{Value: models.Eval(value)}
		}
	}

	if err := a.evaluations.Evaluate(r.Context(), currentUser(r), bID, eID, choices); err != nil {
		a.renderError(w, r, err)
		return
	}
	flash(w, "Evaluation recorded.")
	http.Redirect(w, r, "/boards/"+bID.String()+"/", http.StatusSeeOther)
}

func parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &t
}
