package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"renolead_backend/internal/leads/ports"
	"renolead_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	defaultQueue       = "default"
	sweepUniqueWindow  = 10 * time.Minute
	rescoreMaxRetry    = 3
	defaultConcurrency = 10
)

// Client enqueues rescoring work for the worker.
type Client struct {
	client *asynq.Client
	queue  string
}

var _ ports.RescoreScheduler = (*Client)(nil)

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, err := connOpt(cfg)
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueLeadRescore queues a single lead for rescoring.
func (c *Client) EnqueueLeadRescore(ctx context.Context, leadID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewLeadRescoreTask(LeadRescorePayload{LeadID: leadID.String()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(rescoreMaxRetry))
	return err
}

// EnqueueRescoreSweep queues a sweep of every open lead. A sweep already
// queued within the unique window makes this a no-op.
func (c *Client) EnqueueRescoreSweep(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}

	_, err := c.client.EnqueueContext(ctx, NewRescoreSweepTask(), asynq.Queue(c.queue), asynq.Unique(sweepUniqueWindow))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

func connOpt(cfg config.SchedulerConfig) (asynq.RedisClientOpt, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return asynq.RedisClientOpt{}, fmt.Errorf("redis url not configured")
	}
	return redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
}

func queueName(cfg config.SchedulerConfig) string {
	if q := cfg.GetAsynqQueueName(); q != "" {
		return q
	}
	return defaultQueue
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		tlsConfig = opt.TLSConfig.Clone()
		tlsConfig.InsecureSkipVerify = tlsInsecure
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
