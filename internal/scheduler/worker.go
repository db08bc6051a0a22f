package scheduler

import (
	"context"
	"fmt"

	"renolead_backend/internal/leads/domain"
	"renolead_backend/internal/leads/scoring"
	"renolead_backend/platform/apperr"
	"renolead_backend/platform/config"
	"renolead_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Rescorer is the scoring work the worker runs.
type Rescorer interface {
	Recalculate(ctx context.Context, leadID uuid.UUID) (domain.Scores, error)
	RecalculateOpen(ctx context.Context) (scoring.SweepResult, error)
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	rescorer Rescorer
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, rescorer Rescorer, log *logger.Logger) (*Worker, error) {
	opt, err := connOpt(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := &Worker{
		server:   server,
		mux:      asynq.NewServeMux(),
		rescorer: rescorer,
		log:      log,
	}
	w.mux.HandleFunc(TaskLeadRescore, w.handleLeadRescore)
	w.mux.HandleFunc(TaskRescoreSweep, w.handleRescoreSweep)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleLeadRescore(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadRescorePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	if _, err := w.rescorer.Recalculate(ctx, leadID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			w.log.Info("rescore skipped, lead no longer exists", "leadId", leadID)
			return nil
		}
		return err
	}
	return nil
}

func (w *Worker) handleRescoreSweep(ctx context.Context, _ *asynq.Task) error {
	_, err := w.rescorer.RecalculateOpen(ctx)
	return err
}
