package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"englishqa/internal/auth"
	"englishqa/internal/config"
	"englishqa/internal/models"
	"englishqa/internal/storage"
)

// init-admin creates the bootstrap administrator account. It is idempotent:
// if the configured username already exists, nothing happens.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	username := os.Getenv("ADMIN_BOOTSTRAP_USERNAME")
	email := os.Getenv("ADMIN_BOOTSTRAP_EMAIL")
	password := os.Getenv("ADMIN_BOOTSTRAP_PASSWORD")

	if username == "" || email == "" || password == "" {
		fmt.Fprintln(os.Stderr, "ERROR: ADMIN_BOOTSTRAP_USERNAME, ADMIN_BOOTSTRAP_EMAIL and ADMIN_BOOTSTRAP_PASSWORD must be set")
		os.Exit(1)
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		fmt.Fprintf(os.Stderr, "ERROR: Invalid email format: %s\n", email)
		os.Exit(1)
	}
	if len(password) < 8 {
		fmt.Fprintln(os.Stderr, "ERROR: Password must be at least 8 characters long")
		os.Exit(1)
	}

	fmt.Println("Connecting to database...")
	db, err := storage.NewDB(storage.DBConfig{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		APIKeyCacheSize: 10,
		APIKeyCacheTTL:  5 * time.Minute,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := storage.NewUserRepository(db)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	existing, err := repo.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, storage.ErrUserNotFound) {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to check for existing user: %v\n", err)
		os.Exit(1)
	}
	if existing != nil {
		fmt.Printf("INFO: User %s already exists, nothing to do\n", username)
		os.Exit(0)
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to hash password: %v\n", err)
		os.Exit(1)
	}

	admin := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		IsAdmin:      true,
	}

	if err := repo.Create(ctx, admin); err != nil {
		if errors.Is(err, storage.ErrDuplicateUser) {
			fmt.Printf("INFO: User %s already exists, nothing to do\n", username)
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "ERROR: Failed to create admin user: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("SUCCESS: Bootstrap admin user created")
	fmt.Printf("Username: %s\n", admin.Username)
	fmt.Printf("ID: %s\n", admin.ID)
	fmt.Printf("Created: %s\n", admin.CreatedAt.Format(time.RFC3339))
	fmt.Println("Unset the ADMIN_BOOTSTRAP_* variables now that bootstrap is done.")
}
