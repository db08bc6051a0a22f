package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"renolead_backend/internal/events"
	leadrepo "renolead_backend/internal/leads/repository"
	"renolead_backend/internal/leads/scoring"
	"renolead_backend/internal/scheduler"
	"renolead_backend/platform/config"
	"renolead_backend/platform/db"
	"renolead_backend/platform/logger"

	"github.com/google/uuid"
)

func main() {
	os.Exit(run())
}

func run() int {
	leadFlag := flag.String("lead", "", "rescore a single lead instead of every open lead")
	enqueue := flag.Bool("enqueue", false, "queue the work on the scheduler worker instead of running it here")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	var leadID uuid.UUID
	if *leadFlag != "" {
		leadID, err = uuid.Parse(*leadFlag)
		if err != nil {
			log.Error("invalid lead id", "lead", *leadFlag, "error", err)
			return 2
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *enqueue {
		if err := enqueueRescore(ctx, cfg, leadID); err != nil {
			log.Error("failed to enqueue rescore", "error", err)
			return 1
		}
		log.Info("rescore enqueued", "lead", *leadFlag)
		return 0
	}

	log.Info("starting lead rescore")
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		return 1
	}
	defer pool.Close()

	tables, err := scoring.LoadTables(cfg.GetScoringTablesPath())
	if err != nil {
		log.Error("failed to load scoring tables", "error", err)
		return 1
	}

	// Nothing subscribes here; the Redis ranking catches up on the next scheduled sweep.
	bus := events.NewInMemoryBus(log)
	scorer := scoring.New(leadrepo.New(pool), scoring.NewCalculator(tables, time.Now), bus, log)

	if leadID != uuid.Nil {
		scores, err := scorer.Recalculate(ctx, leadID)
		if err != nil {
			log.Error("rescore failed", "leadId", leadID, "error", err)
			return 1
		}
		log.Info("lead rescored", "leadId", leadID, "overall", scores.Overall, "priority", scores.Priority())
		return 0
	}

	result, err := scorer.RecalculateOpen(ctx)
	if err != nil {
		log.Error("rescore sweep aborted", "error", err, "updated", result.Updated)
		return 1
	}
	if result.Failed > 0 {
		return 1
	}
	return 0
}

func enqueueRescore(ctx context.Context, cfg config.SchedulerConfig, leadID uuid.UUID) error {
	client, err := scheduler.NewClient(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if leadID != uuid.Nil {
		return client.EnqueueLeadRescore(ctx, leadID)
	}
	return client.EnqueueRescoreSweep(ctx)
}
