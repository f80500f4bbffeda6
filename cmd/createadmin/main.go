package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/localsupportslocal/backend/internal/config"
	"github.com/localsupportslocal/backend/internal/realtor"
)

// createadmin is an operational bootstrap script, not part of the API. It
// creates an account that starts approved, bypassing the pending state, and
// is gated by direct database access rather than the API's authorization.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	email := flag.String("email", "", "admin email address")
	password := flag.String("password", "", "admin password")
	firstName := flag.String("first-name", "Admin", "first name")
	lastName := flag.String("last-name", "User", "last name")
	flag.Parse()

	if *email == "" || *password == "" {
		slog.Error("Both -email and -password are required")
		os.Exit(1)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := realtor.NewRepository(pool)
	svc := realtor.NewService(repo, nil, []byte(cfg.JWTSecret), cfg.FrontendURL)

	account, err := svc.CreateApproved(ctx, realtor.RegisterInput{
		Email:     *email,
		Password:  *password,
		FirstName: *firstName,
		LastName:  *lastName,
	}, true)
	if err != nil {
		slog.Error("Failed to create admin account", "error", err)
		os.Exit(1)
	}
	slog.Info("Admin account created", "id", account.ID, "email", account.Email)
}
