package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	githubadapter "github.com/ericfisherdev/overridebot/internal/adapter/driven/github"
	sqliteadapter "github.com/ericfisherdev/overridebot/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/overridebot/internal/application"
	"github.com/ericfisherdev/overridebot/internal/config"
)

// app holds the wired adapters and services shared by run and serve.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *sqliteadapter.DB
	runStore *sqliteadapter.RunRepo
	service  *application.OverrideService
}

// newApp loads configuration, opens the run store and wires the override service.
// dryRun forces dry-run mode on top of OVERRIDEBOT_DRY_RUN.
func newApp(ctx context.Context, dryRun bool) (*app, error) {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.DryRun = cfg.DryRun || dryRun

	logger := config.NewLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("config loaded",
		"repo", cfg.Repo,
		"db_path", cfg.DBPath,
		"poll_interval", cfg.PollInterval,
		"adaptive_poll", cfg.AdaptivePoll,
		"dry_run", cfg.DryRun,
		"concurrency", cfg.Concurrency,
	)

	// 2. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	// 3. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("database ready", "path", db.Path())

	// 4. Create GitHub client.
	ghClient, err := githubadapter.NewClient(cfg.GitHubToken, cfg.Repo)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create github client: %w", err)
	}
	if login, err := githubadapter.ValidateToken(ctx, cfg.GitHubToken); err != nil {
		logger.Warn("github token validation failed", "error", err)
	} else {
		logger.Info("github client created", "login", login, "repo", ghClient.RepoFullName())
	}

	// 5. Wire the pipeline.
	runStore := sqliteadapter.NewRunRepo(db)
	classifier := application.NewClassifier(
		cfg.Policy.Namespaces,
		cfg.Policy.ExcludedMarkers,
		cfg.Policy.KnownProviders,
	)
	reporter := application.NewReporter(cfg.Policy.Command)

	svc := application.NewOverrideService(
		ghClient,
		runStore,
		classifier,
		reporter,
		application.OverrideOptions{
			Repo:           cfg.Repo,
			OverrideMarker: cfg.Policy.OverrideMarker,
			DryRun:         cfg.DryRun,
			Concurrency:    cfg.Concurrency,
			Interval:       cfg.PollInterval,
			Adaptive:       cfg.AdaptivePoll,
		},
		logger,
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		runStore: runStore,
		service:  svc,
	}, nil
}

// Close releases the database.
func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}
