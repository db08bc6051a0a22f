package scheduler

import (
	"context"

	"renolead_backend/platform/config"
	"renolead_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// DefaultRescoreSweepCron applies time decay four times a day.
const DefaultRescoreSweepCron = "0 */6 * * *"

// Periodic enqueues the rescore sweep on a cron schedule.
type Periodic struct {
	scheduler *asynq.Scheduler
	cron      string
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	opt, err := connOpt(cfg)
	if err != nil {
		return nil, err
	}

	cron := cfg.GetRescoreSweepCron()
	if cron == "" {
		cron = DefaultRescoreSweepCron
	}

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				log.Warn("periodic rescore sweep not enqueued", "error", err)
				return
			}
			log.Info("periodic rescore sweep enqueued", "taskId", info.ID)
		},
	})

	if _, err := scheduler.Register(cron, NewRescoreSweepTask(), asynq.Queue(queueName(cfg)), asynq.Unique(sweepUniqueWindow)); err != nil {
		return nil, err
	}

	return &Periodic{scheduler: scheduler, cron: cron, log: log}, nil
}

// Cron returns the active schedule.
func (p *Periodic) Cron() string { return p.cron }

func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.scheduler == nil {
		return
	}

	if err := p.scheduler.Start(); err != nil {
		p.log.Error("periodic scheduler failed to start", "error", err)
		return
	}
	p.log.Info("periodic scheduler started", "cron", p.cron)

	<-ctx.Done()
	p.scheduler.Shutdown()
}
