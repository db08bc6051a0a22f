package ports

import (
	"context"

	"renolead_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// ContractorNotifier tells a contractor about a newly routed lead.
// Any error is treated as a per-contractor delivery failure, never as a batch failure.
type ContractorNotifier interface {
	NotifyLeadAssigned(ctx context.Context, contractor Contractor, lead domain.Lead, assignmentID uuid.UUID) error
}
