// Package assignment routes a lead to one or more contractors.
// Each contractor is handled by an independent task (create assignment row,
// notify, mark email sent). The lead row is written once, after all tasks finish.
package assignment

import (
	"context"
	"errors"
	"time"

	"renolead_backend/internal/events"
	"renolead_backend/internal/leads/domain"
	"renolead_backend/internal/leads/ports"
	"renolead_backend/internal/leads/repository"
	"renolead_backend/platform/apperr"
	"renolead_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency        = 8
	defaultMaxAutoContractors = 3
)

// Per-contractor failure messages. Underlying errors are logged, not returned to callers.
const (
	msgAssignmentNotSaved = "assignment could not be saved"
	msgNotificationFailed = "notification failed"
	msgEmailFlagNotSaved  = "notification sent but email_sent could not be recorded"
)

// Store is the persistence the assignment engine needs.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	MarkAssigned(ctx context.Context, id uuid.UUID, contractorID uuid.UUID, sentAt time.Time) error
	CreateAssignment(ctx context.Context, params repository.CreateAssignmentParams) (domain.Assignment, error)
	MarkAssignmentEmailSent(ctx context.Context, id uuid.UUID) error
}

// Outcome is the result of routing the lead to one contractor.
type Outcome struct {
	ContractorID   uuid.UUID  `json:"contractorId"`
	ContractorName string     `json:"contractorName"`
	Success        bool       `json:"success"`
	AssignmentID   *uuid.UUID `json:"assignmentId,omitempty"`
	EmailSent      bool       `json:"emailSent"`
	Error          string     `json:"error,omitempty"`
	err            error
}

// Err returns the underlying failure, if any.
func (o Outcome) Err() error { return o.err }

// Result reports every attempt. Outcomes are in input order.
type Result struct {
	LeadID               uuid.UUID               `json:"leadId"`
	Method               domain.AssignmentMethod `json:"method"`
	Outcomes             []Outcome               `json:"outcomes"`
	Succeeded            int                     `json:"succeeded"`
	Attempted            int                     `json:"attempted"`
	Unresolved           []uuid.UUID             `json:"unresolved,omitempty"`
	AssignedContractorID *uuid.UUID              `json:"assignedContractorId,omitempty"`
	Scores               *domain.Scores          `json:"scores,omitempty"`
}

// Options tunes the engine.
type Options struct {
	// Concurrency caps simultaneous contractor tasks.
	Concurrency int
	// MaxAutoContractors caps how many contractors automatic assignment picks.
	MaxAutoContractors int
	// Now is the clock; tests pin it.
	Now func() time.Time
}

type Service struct {
	store     Store
	directory ports.ContractorDirectory
	stats     ports.ContractorStats
	notifier  ports.ContractorNotifier
	scorer    ports.ScoreRecalculator
	bus       events.Bus
	log       *logger.Logger
	now       func() time.Time
	limit     int
	maxAuto   int
}

func New(
	store Store,
	directory ports.ContractorDirectory,
	stats ports.ContractorStats,
	notifier ports.ContractorNotifier,
	scorer ports.ScoreRecalculator,
	bus events.Bus,
	log *logger.Logger,
	opts Options,
) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.MaxAutoContractors <= 0 {
		opts.MaxAutoContractors = defaultMaxAutoContractors
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:     store,
		directory: directory,
		stats:     stats,
		notifier:  notifier,
		scorer:    scorer,
		bus:       bus,
		log:       log,
		now:       opts.Now,
		limit:     opts.Concurrency,
		maxAuto:   opts.MaxAutoContractors,
	}
}

// AssignManually routes a lead to the given contractors. Admin only.
//
// On at least one success the lead becomes assigned and assigned_contractor_id is
// set to the first resolved contractor in input order, whether or not that
// contractor's own attempt succeeded.
func (s *Service) AssignManually(ctx context.Context, leadID uuid.UUID, contractorIDs []uuid.UUID, actor domain.Actor) (Result, error) {
	if !actor.IsAdmin() {
		return Result{}, apperr.Forbidden("not authorized to assign leads")
	}
	contractorIDs = dedupe(contractorIDs)
	if len(contractorIDs) == 0 {
		return Result{}, apperr.Validation("at least one contractor is required")
	}

	lead, err := s.loadLead(ctx, leadID)
	if err != nil {
		return Result{}, err
	}

	found, err := s.directory.GetContractorsByIDs(ctx, contractorIDs)
	if err != nil {
		return Result{}, err
	}

	contractors := make([]ports.Contractor, 0, len(found))
	var unresolved []uuid.UUID
	for _, id := range contractorIDs {
		if c, ok := found[id]; ok {
			contractors = append(contractors, c)
		} else {
			unresolved = append(unresolved, id)
		}
	}
	if len(contractors) == 0 {
		return Result{}, apperr.NotFound("no valid contractors found")
	}

	result, err := s.run(ctx, lead, contractors, domain.AssignmentManual, actor)
	result.Unresolved = unresolved
	return result, err
}

// AssignAutomatically routes a new lead to the best-converting active contractors
// covering its zip code. Admins and the system actor may call it.
func (s *Service) AssignAutomatically(ctx context.Context, leadID uuid.UUID, actor domain.Actor) (Result, error) {
	if !actor.IsAdmin() {
		return Result{}, apperr.Forbidden("not authorized to assign leads")
	}

	lead, err := s.loadLead(ctx, leadID)
	if err != nil {
		return Result{}, err
	}
	if lead.Status != domain.StatusNew {
		return Result{}, apperr.Conflict("only new leads can be assigned automatically")
	}

	contractors, err := s.directory.FindEligibleContractors(ctx, lead.ZipCode, s.maxAuto)
	if err != nil {
		return Result{}, err
	}
	if len(contractors) == 0 {
		return Result{}, apperr.NotFound("no eligible contractors for this zip code")
	}

	return s.run(ctx, lead, contractors, domain.AssignmentAutomatic, actor)
}

func (s *Service) loadLead(ctx context.Context, leadID uuid.UUID) (domain.Lead, error) {
	lead, err := s.store.GetByID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, err
}

// run fans out one task per contractor, joins, then applies the single lead write.
func (s *Service) run(ctx context.Context, lead domain.Lead, contractors []ports.Contractor, method domain.AssignmentMethod, actor domain.Actor) (Result, error) {
	outcomes := s.fanOut(ctx, lead, contractors, method)

	result := Result{
		LeadID:    lead.ID,
		Method:    method,
		Outcomes:  outcomes,
		Attempted: len(outcomes),
	}

	log := s.log.WithContext(ctx)
	succeeded := make([]uuid.UUID, 0, len(outcomes))
	var failed []uuid.UUID
	for _, o := range outcomes {
		log.AssignmentOutcome(lead.ID.String(), o.ContractorID.String(), string(method), o.Success, o.err)
		if o.Success {
			succeeded = append(succeeded, o.ContractorID)
		} else {
			failed = append(failed, o.ContractorID)
		}
	}
	result.Succeeded = len(succeeded)

	if result.Succeeded == 0 {
		return result, nil
	}

	primary := contractors[0].ID
	if err := s.store.MarkAssigned(ctx, lead.ID, primary, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return result, apperr.NotFound("lead not found")
		}
		return result, err
	}
	result.AssignedContractorID = &primary

	if err := s.stats.RecordLeadsReceived(ctx, succeeded); err != nil {
		log.Error("failed to update contractor lead counts", "leadId", lead.ID, "error", err)
	}

	if scores, err := s.scorer.Recalculate(ctx, lead.ID); err != nil {
		log.Error("failed to rescore lead after assignment", "leadId", lead.ID, "error", err)
	} else {
		result.Scores = &scores
	}

	s.bus.Publish(ctx, events.LeadAssigned{
		BaseEvent:            events.NewBaseEvent(),
		LeadID:               lead.ID,
		Method:               string(method),
		AssignedContractorID: primary,
		SucceededContractors: succeeded,
		FailedContractors:    failed,
		ActorID:              actor.UserID,
	})

	return result, nil
}

// fanOut runs every contractor task to completion. Tasks never return errors, so
// one failure cannot cancel its siblings; each writes only its own slot.
func (s *Service) fanOut(ctx context.Context, lead domain.Lead, contractors []ports.Contractor, method domain.AssignmentMethod) []Outcome {
	outcomes := make([]Outcome, len(contractors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i, c := range contractors {
		g.Go(func() error {
			outcomes[i] = s.assignOne(gctx, lead, c, method)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (s *Service) assignOne(ctx context.Context, lead domain.Lead, c ports.Contractor, method domain.AssignmentMethod) Outcome {
	out := Outcome{ContractorID: c.ID, ContractorName: c.Name}

	a, err := s.store.CreateAssignment(ctx, repository.CreateAssignmentParams{
		LeadID:       lead.ID,
		ContractorID: c.ID,
		Method:       method,
		AssignedAt:   s.now(),
	})
	if err != nil {
		out.Error, out.err = msgAssignmentNotSaved, err
		return out
	}
	out.AssignmentID = &a.ID

	if err := s.notifier.NotifyLeadAssigned(ctx, c, lead, a.ID); err != nil {
		out.Error, out.err = msgNotificationFailed, apperr.Notification(err)
		return out
	}

	if err := s.store.MarkAssignmentEmailSent(ctx, a.ID); err != nil {
		out.Error, out.err = msgEmailFlagNotSaved, err
		return out
	}

	out.EmailSent = true
	out.Success = true
	return out
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
