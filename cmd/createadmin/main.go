// Command createadmin provisions a staff account. On invite-only sites this
// is how the first accounts are created.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"openach/adapters/postgres"
	"openach/internal/config"
	"openach/models"
)

func main() {
	if len(os.Args) != 4 {
		log.Fatal("Usage: createadmin <username> <email> <password>")
	}
	username, email, password := os.Args[1], os.Args[2], os.Args[3]

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		IsStaff:      true,
		IsActive:     true,
		DateJoined:   time.Now(),
	}
	if err := postgres.NewUserRepository(db).CreateUser(context.Background(), user); err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}
	log.Printf("Created staff user %s (%s)", user.Username, user.ID)
}
