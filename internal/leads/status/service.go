// Package status guards lead status transitions: who may move a lead, and what
// a move stamps on the lead and its assignment rows.
//
// Concurrent updates to one lead are last-write-wins; there is no version column.
package status

import (
	"context"
	"errors"
	"math"
	"time"

	"renolead_backend/internal/events"
	"renolead_backend/internal/leads/domain"
	"renolead_backend/internal/leads/ports"
	"renolead_backend/internal/leads/repository"
	"renolead_backend/platform/apperr"
	"renolead_backend/platform/logger"
	"renolead_backend/platform/sanitize"

	"github.com/google/uuid"
)

const msgNotAuthorized = "not authorized to update this lead"

// Store is the persistence the guard needs.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	UpdateStatus(ctx context.Context, params repository.StatusUpdateParams) (domain.Lead, error)
	RecordContractorResponse(ctx context.Context, leadID, contractorID uuid.UUID, responseTimeHours *int) error
}

// Update is a requested transition. Status is raw caller input.
type Update struct {
	LeadID          uuid.UUID
	Status          string
	Notes           *string
	ConversionValue *float64
}

type Service struct {
	store     Store
	directory ports.ContractorDirectory
	stats     ports.ContractorStats
	scorer    ports.ScoreRecalculator
	bus       events.Bus
	log       *logger.Logger
	now       func() time.Time
}

func New(
	store Store,
	directory ports.ContractorDirectory,
	stats ports.ContractorStats,
	scorer ports.ScoreRecalculator,
	bus events.Bus,
	log *logger.Logger,
	now func() time.Time,
) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:     store,
		directory: directory,
		stats:     stats,
		scorer:    scorer,
		bus:       bus,
		log:       log,
		now:       now,
	}
}

// UpdateStatus validates, authorizes and applies a status transition.
// Nothing is written unless every check passes.
func (s *Service) UpdateStatus(ctx context.Context, req Update, actor domain.Actor) (domain.Lead, error) {
	next, err := validate(req)
	if err != nil {
		return domain.Lead{}, err
	}

	lead, contractorID, err := s.authorize(ctx, req.LeadID, actor)
	if err != nil {
		return domain.Lead{}, err
	}

	now := s.now().UTC()
	params := repository.StatusUpdateParams{
		LeadID:          lead.ID,
		Status:          next,
		ContractorNotes: sanitize.TextPtr(req.Notes),
		UpdatedAt:       now,
	}
	if next.MarksContact() {
		params.LastContactedAt = &now
	}
	if next == domain.StatusConverted {
		params.ConversionValue = req.ConversionValue
	}

	updated, err := s.store.UpdateStatus(ctx, params)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Lead{}, apperr.NotFound("lead not found")
		}
		return domain.Lead{}, err
	}

	log := s.log.WithContext(ctx)

	if contractorID != nil {
		var hours *int
		if lead.Status.AwaitingResponse() {
			h := responseHours(lead.ResponseClockStart(), now)
			hours = &h
		}
		if err := s.store.RecordContractorResponse(ctx, lead.ID, *contractorID, hours); err != nil {
			if errors.Is(err, repository.ErrAssignmentNotFound) {
				log.Warn("no assignment row to mark responded", "leadId", lead.ID, "contractorId", *contractorID)
			} else {
				log.Error("failed to record contractor response", "leadId", lead.ID, "error", err)
			}
		}
	}

	if next == domain.StatusConverted && lead.Status != domain.StatusConverted && updated.AssignedContractorID != nil {
		if err := s.stats.RecordConversion(ctx, *updated.AssignedContractorID); err != nil {
			log.Error("failed to record contractor conversion", "leadId", lead.ID, "error", err)
		}
	}

	if scores, err := s.scorer.Recalculate(ctx, lead.ID); err != nil {
		log.Error("failed to rescore lead after status change", "leadId", lead.ID, "error", err)
	} else {
		updated.Scores = scores
	}

	log.StatusTransition(lead.ID.String(), string(lead.Status), string(next), string(actor.Role))
	s.bus.Publish(ctx, events.LeadStatusChanged{
		BaseEvent:       events.NewBaseEvent(),
		LeadID:          lead.ID,
		OldStatus:       string(lead.Status),
		NewStatus:       string(next),
		ActorID:         actor.UserID,
		ActorRole:       string(actor.Role),
		ContractorID:    contractorID,
		ConversionValue: params.ConversionValue,
	})

	return updated, nil
}

func validate(req Update) (domain.Status, error) {
	if req.LeadID == uuid.Nil {
		return "", apperr.Validation("lead id is required")
	}
	if req.Status == "" {
		return "", apperr.Validation("status is required")
	}
	next, ok := domain.ParseStatus(req.Status)
	if !ok {
		return "", apperr.Validation("unknown status").WithDetails(domain.AllStatuses())
	}
	if req.ConversionValue != nil {
		if next != domain.StatusConverted {
			return "", apperr.Validation("conversion value is only accepted when converting a lead")
		}
		if *req.ConversionValue < 0 || math.IsNaN(*req.ConversionValue) || math.IsInf(*req.ConversionValue, 0) {
			return "", apperr.Validation("conversion value must be a non-negative amount")
		}
	}
	return next, nil
}

// authorize loads the lead and, for contractors, returns the acting contractor id.
// Non-admin callers never learn whether a lead exists.
func (s *Service) authorize(ctx context.Context, leadID uuid.UUID, actor domain.Actor) (domain.Lead, *uuid.UUID, error) {
	if !actor.IsAdmin() && !actor.IsContractor() {
		return domain.Lead{}, nil, apperr.Forbidden(msgNotAuthorized)
	}

	lead, err := s.store.GetByID(ctx, leadID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return domain.Lead{}, nil, err
		}
		if actor.IsAdmin() {
			return domain.Lead{}, nil, apperr.NotFound("lead not found")
		}
		return domain.Lead{}, nil, apperr.Forbidden(msgNotAuthorized)
	}

	if actor.IsAdmin() {
		return lead, nil, nil
	}

	contractor, err := s.directory.GetContractorByEmail(ctx, actor.NormalizedEmail())
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return domain.Lead{}, nil, apperr.Forbidden(msgNotAuthorized)
		}
		return domain.Lead{}, nil, err
	}
	if lead.AssignedContractorID == nil || *lead.AssignedContractorID != contractor.ID {
		return domain.Lead{}, nil, apperr.Forbidden(msgNotAuthorized)
	}
	return lead, &contractor.ID, nil
}

// responseHours rounds elapsed time to the nearest hour, never below zero.
func responseHours(start, now time.Time) int {
	h := now.Sub(start).Hours()
	if h < 0 {
		return 0
	}
	return int(math.Floor(h + 0.5))
}
