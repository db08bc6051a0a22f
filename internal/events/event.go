// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"renolead_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a lead is captured from a rendering session.
type LeadCreated struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	ZipCode    string    `json:"zipCode"`
	RoomType   string    `json:"roomType"`
	WantsQuote bool      `json:"wantsQuote"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadScored is published whenever a lead's scores are recomputed and persisted.
type LeadScored struct {
	BaseEvent
	LeadID             uuid.UUID `json:"leadId"`
	Status             string    `json:"status"`
	Engagement         int       `json:"engagement"`
	Intent             int       `json:"intent"`
	Quality            int       `json:"quality"`
	ProbabilityToClose int       `json:"probabilityToClose"`
	Overall            int       `json:"overall"`
	Priority           string    `json:"priority"`
}

func (e LeadScored) EventName() string { return "leads.lead.scored" }

// LeadAssigned is published after an assignment fan-out with at least one success.
type LeadAssigned struct {
	BaseEvent
	LeadID               uuid.UUID   `json:"leadId"`
	Method               string      `json:"method"`
	AssignedContractorID uuid.UUID   `json:"assignedContractorId"`
	SucceededContractors []uuid.UUID `json:"succeededContractors"`
	FailedContractors    []uuid.UUID `json:"failedContractors,omitempty"`
	ActorID              uuid.UUID   `json:"actorId"`
}

func (e LeadAssigned) EventName() string { return "leads.lead.assigned" }

// LeadStatusChanged is published after a status transition is persisted.
type LeadStatusChanged struct {
	BaseEvent
	LeadID          uuid.UUID  `json:"leadId"`
	OldStatus       string     `json:"oldStatus"`
	NewStatus       string     `json:"newStatus"`
	ActorID         uuid.UUID  `json:"actorId"`
	ActorRole       string     `json:"actorRole"`
	ContractorID    *uuid.UUID `json:"contractorId,omitempty"`
	ConversionValue *float64   `json:"conversionValue,omitempty"`
}

func (e LeadStatusChanged) EventName() string { return "leads.lead.status_changed" }

// =============================================================================
// Feedback Domain Events
// =============================================================================

// FeedbackSubmitted is published when a homeowner rates their experience.
type FeedbackSubmitted struct {
	BaseEvent
	FeedbackID uuid.UUID  `json:"feedbackId"`
	LeadID     *uuid.UUID `json:"leadId,omitempty"`
	Rating     int        `json:"rating"`
	Source     string     `json:"source"`
	Comment    string     `json:"comment,omitempty"`
}

func (e FeedbackSubmitted) EventName() string { return "feedback.submitted" }
