package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/tropicaldog17/replyqueue/internal/config"
	"github.com/tropicaldog17/replyqueue/internal/db"
	"github.com/tropicaldog17/replyqueue/internal/handlers"
	"github.com/tropicaldog17/replyqueue/internal/llm"
	"github.com/tropicaldog17/replyqueue/internal/notifier"
	"github.com/tropicaldog17/replyqueue/internal/platform"
	"github.com/tropicaldog17/replyqueue/internal/repositories"
	"github.com/tropicaldog17/replyqueue/internal/services"
)

// app holds the wired object graph shared by every subcommand.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	database *db.DB

	scan   *services.ScanService
	outbox *services.OutboxService
	admin  services.AdminService
}

func openDatabase(cfg *config.Config) (*db.DB, error) {
	database, err := db.Connect(&cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Health(); err != nil {
		database.Close()
		return nil, fmt.Errorf("database health check failed: %w", err)
	}
	return database, nil
}

func buildApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}

	model, err := llm.New(ctx, cfg.LLM, log)
	if err != nil {
		database.Close()
		return nil, err
	}
	notify, err := notifier.New(cfg.Notifier, log)
	if err != nil {
		database.Close()
		return nil, err
	}

	// Repositories
	stateRepo := repositories.NewStateRepository(database)
	reviewRepo := repositories.NewReviewRepository(database)
	outboxRepo := repositories.NewOutboxRepository(database)
	var vectorStore repositories.VectorCacheRepository
	if cfg.Bank.VectorCache == config.VectorCacheFile {
		vectorStore = repositories.NewFileVectorCache(cfg.Bank.VectorCachePath)
	} else {
		vectorStore = repositories.NewVectorCacheRepository(database)
	}

	// Services
	graph := platform.NewGraphClient(cfg.Platform, log)
	rnd := services.DefaultRandom()
	review := services.NewReviewService(stateRepo, reviewRepo, log)
	bank := services.NewFileAnswerBank(cfg.Bank.Path, log)
	cache := services.NewEmbeddingCache(vectorStore, model, log)
	proposer := services.NewProposalEngine(bank, cache, model, rnd, cfg.Proposal, log)
	links := services.NewLinkBuilder(cfg.Server.BaseURL, cfg.Server.AdminToken)
	outbox := services.NewOutboxService(reviewRepo, outboxRepo, graph, rnd, cfg.Outbox, log)

	log.Info("application wired",
		zap.String("llm", cfg.LLM.Provider),
		zap.String("notifier", cfg.Notifier.Kind),
		zap.String("vector_cache", cfg.Bank.VectorCache),
		zap.Bool("dry_run", cfg.Outbox.DryRun))

	return &app{
		cfg:      cfg,
		log:      log,
		database: database,
		scan:     services.NewScanService(review, graph, proposer, notify, links, cfg.Scan, log),
		outbox:   outbox,
		admin:    services.NewAdminService(review, outbox, log),
	}, nil
}

func (a *app) router() http.Handler {
	adminHandler := handlers.NewAdminHandler(a.admin, a.cfg.Server.AdminToken, a.log)
	return handlers.NewRouter(adminHandler, a.database.Health, a.log)
}

func (a *app) Close() error {
	return a.database.Close()
}

func (a *app) scanJob(ctx context.Context) error {
	res, err := a.scan.RunScan(ctx)
	if err != nil {
		return err
	}
	a.log.Info("scan finished",
		zap.String("batch_id", res.BatchID),
		zap.Bool("skipped", res.Skipped),
		zap.Int("items_added", res.ItemsAdded),
		zap.Int64("total_items", res.TotalItems),
		zap.Bool("locked", res.Locked),
		zap.String("interrupted", res.Interrupted))
	return nil
}

func (a *app) tickJob(ctx context.Context) error {
	res, err := a.outbox.Tick(ctx)
	if err != nil {
		return err
	}
	if res == nil {
		a.log.Debug("outbox tick: nothing due")
		return nil
	}
	a.log.Info("outbox tick",
		zap.String("outbox_id", res.EntryID),
		zap.String("comment_id", res.CommentID),
		zap.String("status", string(res.Status)),
		zap.Bool("dry_run", res.DryRun))
	return nil
}
