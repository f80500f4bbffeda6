package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/localsupportslocal/backend/internal/admin"
	"github.com/localsupportslocal/backend/internal/config"
	"github.com/localsupportslocal/backend/internal/grants"
	"github.com/localsupportslocal/backend/internal/mailer"
	"github.com/localsupportslocal/backend/internal/middleware"
	"github.com/localsupportslocal/backend/internal/notification"
	"github.com/localsupportslocal/backend/internal/period"
	"github.com/localsupportslocal/backend/internal/realtor"
	"github.com/localsupportslocal/backend/internal/router"
	"github.com/localsupportslocal/backend/internal/settlement"
	"github.com/localsupportslocal/backend/internal/uploads"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Missing .env is fine; production sets real environment variables.
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

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL (connection refused or invalid). Ensure Postgres is running, e.g. docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database")

	// River migrations (job queue tables only; app schema lives in migrations/).
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed. If the error is 'connection refused', start PostgreSQL first", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Email delivery runs through River so every message is enqueued in the
	// same transaction as the workflow writes that triggered it.
	sender := mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.FromEmail, cfg.FromName, logger)
	workers := river.NewWorkers()
	river.AddWorker(workers, mailer.NewSendEmailWorker(sender, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}
	insertEmail := func(ctx context.Context, tx pgx.Tx, args mailer.SendEmailArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	}

	// Repositories and services.
	realtorRepo := realtor.NewRepository(pool)
	notifRepo := notification.NewRepository(pool)
	periodRepo := period.NewRepository(pool)
	settlementRepo := settlement.NewRepository(pool)
	grantRepo := grants.NewRepository(pool)

	notifSvc := notification.NewService(notifRepo, insertEmail)
	realtorSvc := realtor.NewService(realtorRepo, notifSvc, []byte(cfg.JWTSecret), cfg.FrontendURL)
	adminSvc := admin.NewService(realtorRepo, notifSvc, cfg.FrontendURL)
	periodSvc := period.NewService(periodRepo, realtorRepo, notifSvc, cfg.FrontendURL)
	settlementSvc := settlement.NewService(settlementRepo, periodRepo, realtorRepo, notifSvc, cfg.FrontendURL)
	grantSvc := grants.NewService(grantRepo, realtorRepo, notifSvc, nil, cfg.FrontendURL)

	fileStore := uploads.NewStore(cfg.UploadDir)

	handlers := router.Handlers{
		Realtor:      realtor.NewHandler(realtorSvc, fileStore, logger),
		Admin:        admin.NewHandler(adminSvc, logger),
		Period:       period.NewHandler(periodSvc, logger),
		Settlement:   settlement.NewHandler(settlementSvc, logger),
		Notification: notification.NewHandler(notifSvc, logger),
		Grants:       grants.NewHandler(grantSvc, logger),
	}

	authMW := middleware.RealtorAuth(realtorSvc, realtorRepo)
	apiRouter := router.New(handlers, authMW, cfg.UploadDir)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
	}).Handler(apiRouter)

	// Start River client (delivers queued emails).
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	slog.Info("Starting HTTP server", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
