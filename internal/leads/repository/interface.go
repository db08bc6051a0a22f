package repository

import (
	"context"
	"time"

	"renolead_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	List(ctx context.Context, params ListParams) ([]domain.Lead, int, error)
	ListOpenIDs(ctx context.Context) ([]uuid.UUID, error)
	ListTopByScore(ctx context.Context, limit int) ([]domain.Lead, error)
}

// LeadWriter provides write operations for lead management.
type LeadWriter interface {
	Create(ctx context.Context, lead domain.Lead) (domain.Lead, error)
	IncrementRenderCount(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	UpdateScores(ctx context.Context, id uuid.UUID, scores domain.Scores) error
	MarkAssigned(ctx context.Context, id uuid.UUID, contractorID uuid.UUID, sentAt time.Time) error
	UpdateStatus(ctx context.Context, params StatusUpdateParams) (domain.Lead, error)
}

// ProfileReader resolves the account behind a lead.
type ProfileReader interface {
	GetProfileByID(ctx context.Context, id uuid.UUID) (domain.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (domain.Profile, error)
}

// AssignmentStore records lead-to-contractor routing events. Rows are never deleted.
type AssignmentStore interface {
	CreateAssignment(ctx context.Context, params CreateAssignmentParams) (domain.Assignment, error)
	MarkAssignmentEmailSent(ctx context.Context, id uuid.UUID) error
	RecordContractorResponse(ctx context.Context, leadID, contractorID uuid.UUID, responseTimeHours *int) error
	ListAssignmentsForLead(ctx context.Context, leadID uuid.UUID) ([]domain.Assignment, error)
}

// =====================================
// Composite Interface
// =====================================

// LeadsRepository defines the complete interface for leads data operations.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	ProfileReader
	AssignmentStore
}

var _ LeadsRepository = (*Repository)(nil)

// ListParams filters the lead list. Nil fields are not filtered on.
type ListParams struct {
	Status       *domain.Status
	Priority     *domain.Priority
	ContractorID *uuid.UUID
	Offset       int
	Limit        int
}

// StatusUpdateParams carries a validated status change.
// ConversionValue is cleared whenever Status is not converted.
type StatusUpdateParams struct {
	LeadID          uuid.UUID
	Status          domain.Status
	LastContactedAt *time.Time
	ConversionValue *float64
	ContractorNotes *string
	UpdatedAt       time.Time
}

// CreateAssignmentParams describes a new routing row. EmailSent always starts false.
type CreateAssignmentParams struct {
	LeadID       uuid.UUID
	ContractorID uuid.UUID
	Method       domain.AssignmentMethod
	AssignedAt   time.Time
}
