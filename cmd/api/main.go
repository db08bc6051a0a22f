package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"renolead_backend/internal/adapters"
	"renolead_backend/internal/contractors"
	"renolead_backend/internal/email"
	"renolead_backend/internal/events"
	"renolead_backend/internal/feedback"
	apphttp "renolead_backend/internal/http"
	"renolead_backend/internal/http/router"
	"renolead_backend/internal/leads"
	"renolead_backend/internal/leads/ranking"
	"renolead_backend/internal/metrics"
	"renolead_backend/internal/notification"
	"renolead_backend/internal/notification/sse"
	"renolead_backend/internal/scheduler"
	"renolead_backend/platform/config"
	"renolead_backend/platform/db"
	"renolead_backend/platform/logger"
	"renolead_backend/platform/phone"
	"renolead_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	pool, err := db.Connect(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := db.WithRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	val := validator.New()
	phones := phone.NewNormalizer(cfg.GetPhoneDefaultRegion())

	appMetrics := metrics.New()
	appMetrics.RegisterHandlers(eventBus)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	contractorsModule := contractors.NewModule(pool, val, phones, log)
	directory := adapters.NewContractorDirectory(contractorsModule.Service())

	// Notification module sends assignment emails and feeds the live stream
	notificationModule := notification.New(sender, cfg, log)
	notificationModule.SetContractorDirectory(directory)
	notificationModule.RegisterHandlers(eventBus)

	liveFeed := sse.New(log)
	defer liveFeed.Close()
	notificationModule.SetSSE(liveFeed)

	leadsModule, err := leads.NewModule(pool, eventBus, val, cfg, leads.Dependencies{
		Contractors: directory,
		Stats:       directory,
		Notifier:    notificationModule,
	}, log)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}
	notificationModule.SetLeadReader(leadsModule.Repository())

	if closeRanking := initRanking(ctx, cfg, leadsModule, eventBus, log); closeRanking != nil {
		defer closeRanking()
	}
	if closeScheduler := initRescoreScheduler(cfg, leadsModule, log); closeScheduler != nil {
		defer closeScheduler()
	}

	feedbackModule := feedback.NewModule(pool, eventBus, val, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Metrics:  appMetrics,
		Modules: []apphttp.Module{
			leadsModule,
			contractorsModule,
			feedbackModule,
			notificationModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		liveFeed.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initRanking(ctx context.Context, cfg *config.Config, leadsModule *leads.Module, bus events.Bus, log *logger.Logger) func() {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; top-leads ranking served from Postgres")
		return nil
	}

	rdb, err := ranking.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Error("failed to connect lead ranking store", "error", err)
		return nil
	}

	leadsModule.SetRanking(ranking.New(rdb, cfg.GetRankingKey(), log), bus)
	return func() {
		_ = rdb.Close()
	}
}

func initRescoreScheduler(cfg config.SchedulerConfig, leadsModule *leads.Module, log *logger.Logger) func() {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; rescore sweeps run inline")
		return nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize rescore scheduler client", "error", err)
		return nil
	}

	leadsModule.SetRescoreScheduler(client)
	return func() {
		_ = client.Close()
	}
}
