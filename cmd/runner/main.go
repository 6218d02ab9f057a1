package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mailrun/internal/adapter/postgres"
	"mailrun/internal/adapter/smtp"
	"mailrun/internal/config"
	"mailrun/internal/db"
	"mailrun/internal/runner"
)

// main is the entry point of the dispatch worker. It loads configuration,
// optionally runs database migrations, wires the Postgres repositories and
// the SMTP transport into the runner, and blocks in the dispatch loop until
// a termination signal arrives. Several workers may run against the same
// database.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	var logger *slog.Logger
	{
		var handler slog.Handler
		level := cfg.Log.SlogLevel()
		switch cfg.Log.SlogFormat() {
		case "json":
			handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		default:
			handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		}
		logger = slog.New(handler)
	}

	if cfg.Psql.RunMigrations {
		if err = db.Migrate(cfg.Psql.Addr.String()); err != nil {
			logger.Error("migration error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied successfully")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.Psql)
	if err != nil {
		logger.Error("database connection error", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	r := runner.New(
		postgres.NewCampaignRepository(pool),
		postgres.NewSenderRepository(pool),
		postgres.NewLedgerRepository(pool),
		postgres.NewQuotaRepository(pool),
		smtpadapter.New(cfg.SMTP.Host, int(cfg.SMTP.Port)),
		logger,
		runner.Config{
			PollInterval:   cfg.Runner.PollInterval,
			StaleThreshold: cfg.Runner.StaleThreshold,
			SendTimeout:    cfg.SMTP.SendTimeout,
			CycleBackoff:   cfg.Runner.CycleBackoff,
		},
	)

	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("dispatch loop stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("dispatch loop stopped")
}
