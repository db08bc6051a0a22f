package db

import (
	"context"
	"fmt"
	"time"

	"renolead_backend/platform/config"
	"renolead_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	connectAttempts  = 5
	connectBaseDelay = 2 * time.Second
)

// WithRetry runs fn up to attempts times, sleeping attempt² × baseDelay between tries.
// It stops early when ctx is done. The last failure is wrapped with name.
func WithRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)

		if attempt == attempts {
			break
		}
		timer := time.NewTimer(time.Duration(attempt*attempt) * baseDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%s: %w", name, lastErr)
}

// Connect opens a pool, retrying while the database comes up.
func Connect(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	err := WithRetry(ctx, log, "database connection", connectAttempts, connectBaseDelay, func() error {
		p, err := NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	})
	return pool, err
}
