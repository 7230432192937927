package ui

import (
	"html/template"
	"net/http"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"openach/internal/errors"
	"openach/models"
)

// basePage carries the fields every template expects
type basePage struct {
	SiteName   string
	User       *models.User
	Flash      string
	PrivacyURL string
}

func (a *App) base(w http.ResponseWriter, r *http.Request) basePage {
	return basePage{
		SiteName:   a.site.Name,
		User:       currentUser(r),
		Flash:      popFlash(w, r),
		PrivacyURL: a.site.PrivacyURL,
	}
}

func (a *App) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.templates.ExecuteTemplate(w, name, data); err != nil {
		a.logger.Error("template %s: %v", name, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// renderError maps application error codes onto HTTP status pages
func (a *App) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.CodeNotFound:
		status = http.StatusNotFound
	case errors.CodePermissionDenied:
		status = http.StatusForbidden
	case errors.CodeUnauthenticated:
		http.Redirect(w, r, "/accounts/login/?next="+r.URL.Path, http.StatusSeeOther)
		return
	case errors.CodeValidationError, errors.CodeInvalidInput:
		status = http.StatusBadRequest
	case errors.CodeConflict:
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		a.logger.Error("%s %s: %v", r.Method, r.URL.Path, err)
		http.Error(w, "Internal server error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

// renderMarkdown converts trusted markdown (project news, about copy) to
// HTML for embedding in templates
func renderMarkdown(source string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank,
	})
	return template.HTML(markdown.ToHTML([]byte(source), p, renderer))
}

// evalClass returns the CSS class for rendering an evaluation cell
func evalClass(e models.Eval) string {
	switch e {
	case models.EvalVeryInconsistent:
		return "eval-very-inconsistent"
	case models.EvalInconsistent:
		return "eval-inconsistent"
	case models.EvalNeutral:
		return "eval-neutral"
	case models.EvalConsistent:
		return "eval-consistent"
	case models.EvalVeryConsistent:
		return "eval-very-consistent"
	default:
		return "eval-na"
	}
}
