// Package management handles lead intake and read access.
// Scoring and assignment live in their own packages; this one captures leads
// from rendering sessions and decides who may see them.
package management

import (
	"context"
	"errors"
	"strings"
	"time"

	"renolead_backend/internal/events"
	"renolead_backend/internal/leads/domain"
	"renolead_backend/internal/leads/ports"
	"renolead_backend/internal/leads/ranking"
	"renolead_backend/internal/leads/repository"
	"renolead_backend/internal/leads/scoring"
	"renolead_backend/internal/leads/transport"
	"renolead_backend/platform/apperr"
	"renolead_backend/platform/logger"
	"renolead_backend/platform/phone"

	"github.com/google/uuid"
)

const (
	msgLeadNotFound  = "lead not found"
	msgNotAuthorized = "not authorized to view this lead"

	defaultPageSize    = 20
	defaultRankedLimit = 25

	rankingSourceRedis    = "redis"
	rankingSourceDatabase = "database"
)

// Repository is the data access management needs.
type Repository interface {
	repository.LeadReader
	Create(ctx context.Context, lead domain.Lead) (domain.Lead, error)
	IncrementRenderCount(ctx context.Context, id uuid.UUID) (domain.Lead, error)
}

// Scorer computes and persists scores.
type Scorer interface {
	Score(ctx context.Context, lead domain.Lead) (domain.Scores, error)
	Recalculate(ctx context.Context, leadID uuid.UUID) (domain.Scores, error)
	PublishScored(ctx context.Context, leadID uuid.UUID, status domain.Status, scores domain.Scores)
}

// Ranker serves the cached priority ranking.
type Ranker interface {
	Top(ctx context.Context, limit int) ([]ranking.Entry, error)
}

var _ Scorer = (*scoring.Service)(nil)
var _ Ranker = (*ranking.Store)(nil)

type Service struct {
	repo      Repository
	scorer    Scorer
	directory ports.ContractorDirectory
	phones    *phone.Normalizer
	ranker    Ranker
	bus       events.Bus
	log       *logger.Logger
	now       func() time.Time
}

func New(repo Repository, scorer Scorer, directory ports.ContractorDirectory, phones *phone.Normalizer, bus events.Bus, log *logger.Logger) *Service {
	if phones == nil {
		phones = phone.NewNormalizer(phone.DefaultRegion)
	}
	return &Service{
		repo:      repo,
		scorer:    scorer,
		directory: directory,
		phones:    phones,
		bus:       bus,
		log:       log,
		now:       time.Now,
	}
}

// SetRanker enables the Redis ranking. Without it RankedLeads reads Postgres.
func (s *Service) SetRanker(r Ranker) {
	s.ranker = r
}

// Create captures a lead, scores it and stores it in one write. userID links the
// lead to the caller's profile and is nil for anonymous submissions.
func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest, userID *uuid.UUID) (transport.LeadResponse, error) {
	now := s.now().UTC()
	lead := domain.Lead{
		ID:              uuid.New(),
		UserID:          userID,
		Name:            trimmed(req.Name),
		Email:           lowered(req.Email),
		ZipCode:         strings.TrimSpace(req.ZipCode),
		RoomType:        domain.NormalizeRoomType(req.RoomType),
		Style:           scoring.NormalizeStyle(req.Style),
		RenderCount:     req.RenderCount,
		WantsQuote:      req.WantsQuote,
		SocialEngaged:   req.SocialEngaged,
		IsRepeatVisitor: req.IsRepeatVisitor,
		Status:          domain.StatusNew,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if lead.RenderCount < 1 {
		lead.RenderCount = 1
	}
	if req.Phone != nil {
		if normalized := s.phones.NormalizeE164(*req.Phone); normalized != "" {
			lead.Phone = &normalized
		}
	}

	scores, err := s.scorer.Score(ctx, lead)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	lead.Scores = scores

	created, err := s.repo.Create(ctx, lead)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.scorer.PublishScored(ctx, created.ID, created.Status, created.Scores)
	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     created.ID,
		ZipCode:    created.ZipCode,
		RoomType:   string(created.RoomType),
		WantsQuote: created.WantsQuote,
	})

	return ToLeadResponse(created), nil
}

// RecordRender counts another rendering for the lead and rescores it.
func (s *Service) RecordRender(ctx context.Context, id uuid.UUID) (transport.PublicLeadResponse, error) {
	lead, err := s.repo.IncrementRenderCount(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.PublicLeadResponse{}, apperr.NotFound(msgLeadNotFound)
		}
		return transport.PublicLeadResponse{}, err
	}

	if _, err := s.scorer.Recalculate(ctx, id); err != nil {
		s.log.WithContext(ctx).Error("failed to rescore lead after render", "leadId", id, "error", err)
	}

	return transport.PublicLeadResponse{ID: lead.ID, RenderCount: lead.RenderCount, Status: string(lead.Status)}, nil
}

// GetByID returns a lead the actor may see.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID, actor domain.Actor) (transport.LeadResponse, error) {
	lead, err := s.visibleLead(ctx, id, actor)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return ToLeadResponse(lead), nil
}

// Scores computes the current scores for a lead without storing them.
func (s *Service) Scores(ctx context.Context, id uuid.UUID, actor domain.Actor) (transport.ScoresResponse, error) {
	lead, err := s.visibleLead(ctx, id, actor)
	if err != nil {
		return transport.ScoresResponse{}, err
	}
	scores, err := s.scorer.Score(ctx, lead)
	if err != nil {
		return transport.ScoresResponse{}, err
	}
	return ToScoresResponse(scores), nil
}

// List pages leads by overall score. Contractors only see leads assigned to them.
func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest, actor domain.Actor) (transport.LeadListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = defaultPageSize
	}

	params := repository.ListParams{
		Offset: (req.Page - 1) * req.PageSize,
		Limit:  req.PageSize,
	}
	if req.Status != "" {
		status, ok := domain.ParseStatus(req.Status)
		if !ok {
			return transport.LeadListResponse{}, apperr.Validation("unknown status")
		}
		params.Status = &status
	}
	if req.Priority != "" {
		priority, ok := domain.ParsePriority(req.Priority)
		if !ok {
			return transport.LeadListResponse{}, apperr.Validation("unknown priority")
		}
		params.Priority = &priority
	}

	switch {
	case actor.IsAdmin():
	case actor.IsContractor():
		contractor, err := s.directory.GetContractorByEmail(ctx, actor.NormalizedEmail())
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return transport.LeadListResponse{}, apperr.Forbidden("no contractor account for this user")
			}
			return transport.LeadListResponse{}, err
		}
		params.ContractorID = &contractor.ID
	default:
		return transport.LeadListResponse{}, apperr.Forbidden("not authorized to list leads")
	}

	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	items := make([]transport.LeadResponse, len(leads))
	for i, lead := range leads {
		items[i] = ToLeadResponse(lead)
	}

	totalPages := (total + req.PageSize - 1) / req.PageSize
	return transport.LeadListResponse{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages,
	}, nil
}

// Ranked returns the highest-priority open leads, from Redis when available.
func (s *Service) Ranked(ctx context.Context, limit int) (transport.RankedLeadsResponse, error) {
	if limit <= 0 {
		limit = defaultRankedLimit
	}

	if s.ranker != nil {
		leads, err := s.rankedFromCache(ctx, limit)
		if err == nil {
			return toRankedResponse(leads, rankingSourceRedis), nil
		}
		s.log.WithContext(ctx).Warn("ranking cache unavailable, falling back to database", "error", err)
	}

	leads, err := s.repo.ListTopByScore(ctx, limit)
	if err != nil {
		return transport.RankedLeadsResponse{}, err
	}
	return toRankedResponse(leads, rankingSourceDatabase), nil
}

func (s *Service) rankedFromCache(ctx context.Context, limit int) ([]domain.Lead, error) {
	entries, err := s.ranker.Top(ctx, limit)
	if err != nil {
		return nil, err
	}

	leads := make([]domain.Lead, 0, len(entries))
	for _, e := range entries {
		lead, err := s.repo.GetByID(ctx, e.LeadID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

// visibleLead loads a lead and checks the actor may read it.
// Admins see everything, contractors their assigned leads, homeowners their own.
func (s *Service) visibleLead(ctx context.Context, id uuid.UUID, actor domain.Actor) (domain.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return domain.Lead{}, err
		}
		if actor.IsAdmin() {
			return domain.Lead{}, apperr.NotFound(msgLeadNotFound)
		}
		return domain.Lead{}, apperr.Forbidden(msgNotAuthorized)
	}

	switch {
	case actor.IsAdmin():
		return lead, nil
	case actor.IsContractor():
		contractor, err := s.directory.GetContractorByEmail(ctx, actor.NormalizedEmail())
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return domain.Lead{}, apperr.Forbidden(msgNotAuthorized)
			}
			return domain.Lead{}, err
		}
		if lead.AssignedContractorID != nil && *lead.AssignedContractorID == contractor.ID {
			return lead, nil
		}
	default:
		if lead.UserID != nil && *lead.UserID == actor.UserID {
			return lead, nil
		}
	}
	return domain.Lead{}, apperr.Forbidden(msgNotAuthorized)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func lowered(s *string) *string {
	v := trimmed(s)
	if v == nil {
		return nil
	}
	lower := strings.ToLower(*v)
	return &lower
}
