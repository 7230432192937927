package ui

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"openach/adapters/excel"
	"openach/app"
	"openach/internal"
	"openach/internal/config"
	"openach/models"
	"openach/ports"
)

//go:embed templates/* static/*
var embeddedFiles embed.FS

// App is the server-rendered web application
type App struct {
	router    *chi.Mux
	templates *template.Template

	auth          *app.AuthService
	boards        *app.BoardService
	hypotheses    *app.HypothesisService
	evidence      *app.EvidenceService
	evaluations   *app.EvaluationService
	notifications *app.NotificationService
	teams         *app.TeamService
	news          ports.NewsRepository
	exporter      *excel.BoardExporter

	site   config.SiteConfig
	logger *internal.Logger
}

// Services bundles the application services the web app depends on
type Services struct {
	Auth          *app.AuthService
	Boards        *app.BoardService
	Hypotheses    *app.HypothesisService
	Evidence      *app.EvidenceService
	Evaluations   *app.EvaluationService
	Notifications *app.NotificationService
	Teams         *app.TeamService
	News          ports.NewsRepository
}

// NewApp creates the web application
func NewApp(services Services, site config.SiteConfig, logger *internal.Logger) (*App, error) {
	funcMap := template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"evalName": func(e models.Eval) string {
			return e.String()
		},
		"evalClass": evalClass,
		"markdown":  renderMarkdown,
		"can": func(s models.PermissionSet, name string) bool {
			return s.Has(models.PermissionName(name))
		},
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, err
	}

	a := &App{
		router:        chi.NewRouter(),
		templates:     templates,
		auth:          services.Auth,
		boards:        services.Boards,
		hypotheses:    services.Hypotheses,
		evidence:      services.Evidence,
		evaluations:   services.Evaluations,
		notifications: services.Notifications,
		teams:         services.Teams,
		news:          services.News,
		exporter:      excel.NewBoardExporter(),
		site:          site,
		logger:        logger.Named("ui"),
	}

	a.setupMiddleware()
	a.setupRoutes()
	return a, nil
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
	a.router.Use(a.sessionMiddleware)

	staticFS := http.FileServer(http.FS(embeddedFiles))
	a.router.Handle("/static/*", staticFS)
}

func (a *App) setupRoutes() {
	a.router.Get("/", a.handleIndex)
	a.router.Get("/about/", a.handleAbout)
	a.router.Get("/robots.txt", a.handleRobots)

	a.router.Get("/accounts/login/", a.handleLoginForm)
	a.router.Post("/accounts/login/", a.handleLogin)
	a.router.Post("/accounts/logout/", a.handleLogout)
	a.router.Get("/accounts/signup/", a.handleSignupForm)
	a.router.Post("/accounts/signup/", a.handleSignup)

	a.router.Group(func(r chi.Router) {
		if a.site.AccountRequired {
			r.Use(a.requireUser)
		}

		r.Get("/boards/", a.handleBoardListing)
		r.Get("/boards/{boardID}/", a.handleBoardDetail)
		r.Get("/boards/{boardID}/{slug}/", a.handleBoardDetail)
		r.Get("/boards/{boardID}/history/", a.handleBoardHistory)
		r.Get("/boards/{boardID}/export/", a.handleBoardExport)
		r.Get("/evidence/{evidenceID}/", a.handleEvidenceDetail)
		r.Get("/accounts/{userID}/boards/", a.handleUserBoards)
		r.Get("/teams/", a.handleTeamListing)
		r.Get("/teams/{teamID}/", a.handleTeamView)
	})

	a.router.Group(func(r chi.Router) {
		r.Use(a.requireUser)

		r.Get("/boards/create/", a.handleBoardCreateForm)
		r.Post("/boards/create/", a.handleBoardCreate)
		r.Get("/boards/{boardID}/edit/", a.handleBoardEditForm)
		r.Post("/boards/{boardID}/edit/", a.handleBoardEdit)
		r.Post("/boards/{boardID}/remove/", a.handleBoardRemove)
		r.Get("/boards/{boardID}/permissions/", a.handlePermissionsForm)
		r.Post("/boards/{boardID}/permissions/", a.handlePermissionsEdit)

		r.Get("/boards/{boardID}/hypotheses/add/", a.handleHypothesisAddForm)
		r.Post("/boards/{boardID}/hypotheses/add/", a.handleHypothesisAdd)
		r.Get("/hypotheses/{hypothesisID}/edit/", a.handleHypothesisEditForm)
		r.Post("/hypotheses/{hypothesisID}/edit/", a.handleHypothesisEdit)
		r.Post("/hypotheses/{hypothesisID}/remove/", a.handleHypothesisRemove)

		r.Get("/boards/{boardID}/evidence/add/", a.handleEvidenceAddForm)
		r.Post("/boards/{boardID}/evidence/add/", a.handleEvidenceAdd)
		r.Get("/evidence/{evidenceID}/edit/", a.handleEvidenceEditForm)
		r.Post("/evidence/{evidenceID}/edit/", a.handleEvidenceEdit)
		r.Post("/evidence/{evidenceID}/remove/", a.handleEvidenceRemove)
		r.Get("/evidence/{evidenceID}/sources/add/", a.handleSourceAddForm)
		r.Post("/evidence/{evidenceID}/sources/add/", a.handleSourceAdd)
		r.Post("/evidence/{evidenceID}/sources/{sourceID}/tag/", a.handleSourceTag)

		r.Get("/boards/{boardID}/evidence/{evidenceID}/evaluate/", a.handleEvaluateForm)
		r.Post("/boards/{boardID}/evidence/{evidenceID}/evaluate/", a.handleEvaluate)

		r.Get("/accounts/notifications/", a.handleNotifications)
		r.Post("/accounts/notifications/clear/", a.handleNotificationsClear)
		r.Get("/accounts/settings/", a.handleSettingsForm)
		r.Post("/accounts/settings/", a.handleSettings)

		r.Get("/teams/create/", a.handleTeamCreateForm)
		r.Post("/teams/create/", a.handleTeamCreate)
		r.Get("/teams/{teamID}/edit/", a.handleTeamEditForm)
		r.Post("/teams/{teamID}/edit/", a.handleTeamEdit)
		r.Post("/teams/{teamID}/join/", a.handleTeamJoin)
		r.Post("/teams/{teamID}/leave/", a.handleTeamLeave)
		r.Post("/teams/{teamID}/invite/", a.handleTeamInvite)
		r.Post("/teams/{teamID}/revoke/{memberID}/", a.handleTeamRevoke)
		r.Post("/teams/requests/{requestID}/{action}/", a.handleTeamDecide)
	})
}

// Router exposes the configured router for serving
func (a *App) Router() http.Handler {
	return a.router
}

// Start serves the web application on the given port
func (a *App) Start(port string) error {
	addr := ":" + port
	a.logger.Info("web app listening on %s", addr)
	return http.ListenAndServe(addr, a.router)
}
