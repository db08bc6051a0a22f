package ports

import (
	"context"

	"renolead_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// ScoreRecalculator recomputes and persists a lead's scores.
type ScoreRecalculator interface {
	Recalculate(ctx context.Context, leadID uuid.UUID) (domain.Scores, error)
}

// RescoreScheduler queues background rescoring.
type RescoreScheduler interface {
	EnqueueLeadRescore(ctx context.Context, leadID uuid.UUID) error
	EnqueueRescoreSweep(ctx context.Context) error
}
