// Package api serves the JSON endpoints backing the web app's typeahead
// search and notification badge, plus a read-only board detail endpoint.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"openach/app"
	"openach/internal"
	"openach/internal/config"
	"openach/internal/errors"
	"openach/models"
)

// sessionCookie matches the cookie issued by the web app so the API can
// authenticate the same browser session.
const sessionCookie = "openach_session"

// Server is the JSON API server
type Server struct {
	router *gin.Engine

	auth          *app.AuthService
	boards        *app.BoardService
	notifications *app.NotificationService

	site   config.SiteConfig
	logger *internal.Logger
}

// NewServer creates the API server
func NewServer(auth *app.AuthService, boards *app.BoardService, notifications *app.NotificationService, site config.SiteConfig, logger *internal.Logger) *Server {
	s := &Server{
		router:        gin.Default(),
		auth:          auth,
		boards:        boards,
		notifications: notifications,
		site:          site,
		logger:        logger.Named("api"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/api/boards", s.handleBoardSearch)
	s.router.GET("/api/boards/:boardID", s.handleBoardDetail)
	s.router.GET("/api/notifications/count", s.handleNotificationCount)
}

// Router exposes the configured router for serving
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves the API on the given port
func (s *Server) Start(port string) error {
	addr := ":" + port
	s.logger.Info("api listening on %s", addr)
	return s.router.Run(addr)
}

// viewer resolves the requesting user from the web app's session cookie.
// An absent or invalid session yields a nil viewer, not an error.
func (s *Server) viewer(c *gin.Context) *models.User {
	token, err := c.Cookie(sessionCookie)
	if err != nil || token == "" {
		return nil
	}
	user, err := s.auth.UserForSession(c.Request.Context(), token)
	if err != nil {
		return nil
	}
	return user
}

func (s *Server) renderError(c *gin.Context, err error) {
	switch errors.GetCode(err) {
	case errors.CodeNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.CodePermissionDenied:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.CodeUnauthenticated:
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.CodeValidationError, errors.CodeInvalidInput:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error("api error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type boardResult struct {
	Title       string `json:"board_title"`
	Description string `json:"board_desc"`
	URL         string `json:"url"`
}

func (s *Server) handleBoardSearch(c *gin.Context) {
	viewer := s.viewer(c)
	if s.site.AccountRequired && viewer == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	boards, err := s.boards.Search(c.Request.Context(), viewer, c.Query("query"))
	if err != nil {
		s.renderError(c, err)
		return
	}

	results := make([]boardResult, 0, len(boards))
	for _, board := range boards {
		results = append(results, boardResult{
			Title:       board.Title,
			Description: board.Description,
			URL:         board.URL(),
		})
	}
	c.JSON(http.StatusOK, results)
}

// cellResult is the consensus summary for one matrix cell
type cellResult struct {
	Consensus     models.Eval `json:"consensus"`
	ConsensusName string      `json:"consensus_name"`
	Disagreement  float64     `json:"disagreement"`
}

func (s *Server) handleBoardDetail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("boardID"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "board not found"})
		return
	}

	detail, err := s.boards.Detail(c.Request.Context(), s.viewer(c), id, app.VoteTypeAll)
	if err != nil {
		s.renderError(c, err)
		return
	}

	// Hypotheses and evidence arrive already ordered by their sort keys, so
	// the array order carries the board ranking.
	cells := make(map[string]map[string]cellResult, len(detail.Cells))
	for evidenceID, row := range detail.Cells {
		rated := make(map[string]cellResult, len(row))
		for hypothesisID, cell := range row {
			if !cell.HasConsensus {
				continue
			}
			rated[hypothesisID.String()] = cellResult{
				Consensus:     cell.Consensus,
				ConsensusName: cell.Consensus.String(),
				Disagreement:  cell.Disagreement,
			}
		}
		if len(rated) > 0 {
			cells[evidenceID.String()] = rated
		}
	}

	userVotes := make(map[string]map[string]models.Eval, len(detail.UserVotes))
	for evidenceID, row := range detail.UserVotes {
		votes := make(map[string]models.Eval, len(row))
		for hypothesisID, value := range row {
			votes[hypothesisID.String()] = value
		}
		userVotes[evidenceID.String()] = votes
	}

	c.JSON(http.StatusOK, gin.H{
		"board":      detail.Board,
		"hypotheses": detail.Hypotheses,
		"evidence":   detail.Evidence,
		"cells":      cells,
		"user_votes": userVotes,
		"vote_type":  detail.VoteType,
	})
}

func (s *Server) handleNotificationCount(c *gin.Context) {
	viewer := s.viewer(c)
	if viewer == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	count, err := s.notifications.UnreadCount(c.Request.Context(), viewer.ID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
