package scoring

import (
	"context"
	"errors"

	"renolead_backend/internal/events"
	"renolead_backend/internal/leads/domain"
	"renolead_backend/internal/leads/repository"
	"renolead_backend/platform/apperr"
	"renolead_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence the rescoring service needs.
type Store interface {
	repository.ProfileReader
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	UpdateScores(ctx context.Context, id uuid.UUID, scores domain.Scores) error
	ListOpenIDs(ctx context.Context) ([]uuid.UUID, error)
}

// SweepResult summarizes a bulk rescoring pass.
type SweepResult struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// Service recomputes and persists lead scores.
type Service struct {
	store Store
	calc  *Calculator
	bus   events.Bus
	log   *logger.Logger
}

func New(store Store, calc *Calculator, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, calc: calc, bus: bus, log: log}
}

// Calculator exposes the calculator so callers can score leads before they are stored.
func (s *Service) Calculator() *Calculator { return s.calc }

// Score computes scores for a lead without persisting them, loading its profile if any.
func (s *Service) Score(ctx context.Context, lead domain.Lead) (domain.Scores, error) {
	profile, err := s.profileFor(ctx, lead)
	if err != nil {
		return domain.Scores{}, err
	}
	return s.calc.Compute(profile, lead), nil
}

// Recalculate loads a lead and its profile, recomputes all scores and persists them.
func (s *Service) Recalculate(ctx context.Context, leadID uuid.UUID) (domain.Scores, error) {
	lead, err := s.store.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Scores{}, apperr.NotFound("lead not found")
		}
		return domain.Scores{}, err
	}

	scores, err := s.Score(ctx, lead)
	if err != nil {
		return domain.Scores{}, err
	}

	if err := s.store.UpdateScores(ctx, leadID, scores); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Scores{}, apperr.NotFound("lead not found")
		}
		return domain.Scores{}, err
	}

	s.PublishScored(ctx, leadID, lead.Status, scores)
	return scores, nil
}

// PublishScored announces freshly persisted scores.
func (s *Service) PublishScored(ctx context.Context, leadID uuid.UUID, status domain.Status, scores domain.Scores) {
	s.bus.Publish(ctx, events.LeadScored{
		BaseEvent:          events.NewBaseEvent(),
		LeadID:             leadID,
		Status:             string(status),
		Engagement:         scores.Engagement,
		Intent:             scores.Intent,
		Quality:            scores.Quality,
		ProbabilityToClose: scores.ProbabilityToClose,
		Overall:            scores.Overall,
		Priority:           string(scores.Priority()),
	})
}

// RecalculateOpen rescores every non-terminal lead so time decay takes effect.
// A failure on one lead is logged and counted; the sweep continues.
func (s *Service) RecalculateOpen(ctx context.Context) (SweepResult, error) {
	ids, err := s.store.ListOpenIDs(ctx)
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{Scanned: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, err := s.Recalculate(ctx, id); err != nil {
			result.Failed++
			s.log.WithContext(ctx).Warn("rescore failed", "leadId", id, "error", err)
			continue
		}
		result.Updated++
	}

	s.log.WithContext(ctx).Info("rescore sweep finished",
		"scanned", result.Scanned, "updated", result.Updated, "failed", result.Failed)
	return result, nil
}

// profileFor resolves the account behind a lead by user id, then by email.
// Anonymous leads have no profile; that is not an error.
func (s *Service) profileFor(ctx context.Context, lead domain.Lead) (*domain.Profile, error) {
	if lead.UserID != nil {
		p, err := s.store.GetProfileByID(ctx, *lead.UserID)
		if err == nil {
			return &p, nil
		}
		if !errors.Is(err, repository.ErrProfileNotFound) {
			return nil, err
		}
	}
	if lead.HasEmail() {
		p, err := s.store.GetProfileByEmail(ctx, *lead.Email)
		if err == nil {
			return &p, nil
		}
		if !errors.Is(err, repository.ErrProfileNotFound) {
			return nil, err
		}
	}
	return nil, nil
}
