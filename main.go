package main

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"openach/adapters/postgres"
	"openach/adapters/sourcemeta"
	"openach/api"
	"openach/app"
	"openach/internal"
	"openach/internal/config"
	"openach/internal/errors"
	"openach/internal/migration"
	"openach/ui"
)

// initDatabase connects to PostgreSQL and applies pending migrations
func initDatabase(cfg *config.Config) (*sqlx.DB, error) {
	if cfg.Database.URL == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "database migration failed")
	}
	return db, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := internal.NewDefaultLogger()

	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	users := postgres.NewUserRepository(db)
	sessions := postgres.NewSessionRepository(db)
	boards := postgres.NewBoardRepository(db)
	permissions := postgres.NewPermissionRepository(db)
	followers := postgres.NewFollowerRepository(db)
	hypotheses := postgres.NewHypothesisRepository(db)
	evidence := postgres.NewEvidenceRepository(db)
	evaluations := postgres.NewEvaluationRepository(db)
	tags := postgres.NewSourceTagRepository(db)
	notifications := postgres.NewNotificationRepository(db)
	news := postgres.NewNewsRepository(db)
	history := postgres.NewHistoryRepository(db)
	teams := postgres.NewTeamRepository(db)

	notifier := app.NewNotificationService(notifications, followers, permissions, users, logger)
	authService := app.NewAuthService(users, sessions, cfg.Site, logger)
	boardService := app.NewBoardService(boards, permissions, followers, hypotheses, evidence, evaluations, history, notifier, cfg.Site, logger)
	hypothesisService := app.NewHypothesisService(hypotheses, boards, permissions, followers, history, notifier, cfg.Site, logger)
	evidenceService := app.NewEvidenceService(evidence, tags, boards, permissions, followers, history, notifier, sourcemeta.NewFetcher(), cfg.Site, logger)
	evaluationService := app.NewEvaluationService(evaluations, hypotheses, evidence, boards, permissions, followers, logger)
	teamService := app.NewTeamService(teams, users, logger)

	webApp, err := ui.NewApp(ui.Services{
		Auth:          authService,
		Boards:        boardService,
		Hypotheses:    hypothesisService,
		Evidence:      evidenceService,
		Evaluations:   evaluationService,
		Notifications: notifier,
		Teams:         teamService,
		News:          news,
	}, cfg.Site, logger)
	if err != nil {
		log.Fatalf("Failed to initialize web app: %v", err)
	}

	apiServer := api.NewServer(authService, boardService, notifier, cfg.Site, logger)
	go func() {
		if err := apiServer.Start(cfg.Server.APIPort); err != nil {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	if err := webApp.Start(cfg.Server.Port); err != nil {
		log.Fatalf("Web app failed: %v", err)
	}
}
