// Package ports defines the interfaces that the leads domain requires from
// external systems. These interfaces form the Anti-Corruption Layer (ACL),
// ensuring the leads domain only knows about the data it needs, formatted
// the way it wants.
package ports

import (
	"context"

	"github.com/google/uuid"
)

// Contractor is the view of a contractor company the leads domain works with.
// This is defined by the leads domain, not by the contractors domain.
type Contractor struct {
	ID             uuid.UUID
	Name           string
	Email          string
	IsActive       bool
	ServesAllZips  bool
	ConversionRate float64
}

// ContractorDirectory resolves contractors for assignment and authorization.
// The implementation is provided by the composition root and wraps the contractors service.
type ContractorDirectory interface {
	// GetContractorsByIDs returns the contractors that exist. Missing IDs are silently omitted.
	GetContractorsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Contractor, error)

	// GetContractorByEmail resolves the contractor record behind a signed-in contractor user.
	// Returns an apperr NotFound error if no contractor uses the email.
	GetContractorByEmail(ctx context.Context, email string) (Contractor, error)

	// FindEligibleContractors returns active subscribers covering zip (or all zips),
	// best conversion rate first, at most limit entries.
	FindEligibleContractors(ctx context.Context, zip string, limit int) ([]Contractor, error)
}

// ContractorStats updates contractor performance counters.
type ContractorStats interface {
	RecordLeadsReceived(ctx context.Context, contractorIDs []uuid.UUID) error
	RecordConversion(ctx context.Context, contractorID uuid.UUID) error
}
