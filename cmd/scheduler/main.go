package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"renolead_backend/internal/events"
	"renolead_backend/internal/leads/ranking"
	leadrepo "renolead_backend/internal/leads/repository"
	"renolead_backend/internal/leads/scoring"
	"renolead_backend/internal/scheduler"
	"renolead_backend/platform/config"
	"renolead_backend/platform/db"
	"renolead_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	// Rescores from the worker keep the ranking current too.
	rdb, err := ranking.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Error("failed to connect lead ranking store", "error", err)
		panic("failed to connect lead ranking store: " + err.Error())
	}
	defer func() { _ = rdb.Close() }()
	ranking.New(rdb, cfg.GetRankingKey(), log).Subscribe(eventBus)

	tables, err := scoring.LoadTables(cfg.GetScoringTablesPath())
	if err != nil {
		log.Error("failed to load scoring tables", "error", err)
		panic("failed to load scoring tables: " + err.Error())
	}
	scorer := scoring.New(leadrepo.New(pool), scoring.NewCalculator(tables, time.Now), eventBus, log)

	worker, err := scheduler.NewWorker(cfg, scorer, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		periodic.Run(ctx)
	}()

	worker.Run(ctx)
	wg.Wait()
	eventBus.Wait()
}
