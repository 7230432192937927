// Command senddigest emails activity digests to subscribed users. It is
// intended to run from cron, daily and weekly.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"openach/adapters/postgres"
	"openach/adapters/smtp"
	"openach/app"
	"openach/internal"
	"openach/internal/config"
	"openach/models"
)

func main() {
	if len(os.Args) != 2 {
		log.Fatal("Usage: senddigest <daily|weekly>")
	}
	frequency, ok := models.ParseDigestFrequency(os.Args[1])
	if !ok || frequency == models.DigestNever {
		log.Fatalf("Unknown digest frequency %q", os.Args[1])
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.SMTP.Enabled {
		log.Fatal("SMTP is not configured; digests cannot be sent")
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	logger := internal.NewDefaultLogger()
	digests := app.NewDigestService(
		postgres.NewUserRepository(db),
		postgres.NewNotificationRepository(db),
		postgres.NewBoardRepository(db),
		smtp.NewMailer(cfg.SMTP),
		cfg.Site,
		logger,
	)

	result, err := digests.SendDigests(context.Background(), frequency, time.Now())
	if err != nil {
		log.Fatalf("Digest run failed: %v", err)
	}
	log.Printf("Digest run complete: %d sent, %d skipped, %d failed",
		result.Succeeded, result.Skipped, result.Failed)
}
