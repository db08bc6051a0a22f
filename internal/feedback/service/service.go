package service

import (
	"context"
	"strings"
	"time"

	"renolead_backend/internal/events"
	"renolead_backend/internal/feedback/repository"
	"renolead_backend/internal/feedback/transport"
	"renolead_backend/platform/apperr"
	"renolead_backend/platform/logger"
	"renolead_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultSource   = "web"
	defaultPageSize = 20
	maxPageSize     = 100
)

type Repository interface {
	Create(ctx context.Context, f repository.Feedback) error
	List(ctx context.Context, params repository.ListParams) ([]repository.Feedback, repository.Summary, error)
}

var _ Repository = (*repository.Repository)(nil)

type Service struct {
	repo Repository
	bus  events.Bus
	log  *logger.Logger
	now  func() time.Time
}

func New(repo Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log, now: time.Now}
}

// Submit stores a rating and announces it. A blank comment is stored as NULL.
func (s *Service) Submit(ctx context.Context, req transport.SubmitFeedbackRequest) (transport.FeedbackResponse, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return transport.FeedbackResponse{}, apperr.Validation("rating must be between 1 and 5")
	}

	comment := sanitize.TextPtr(req.Comment)
	if comment != nil && *comment == "" {
		comment = nil
	}
	source := strings.ToLower(strings.TrimSpace(req.Source))
	if source == "" {
		source = defaultSource
	}

	f := repository.Feedback{
		ID:        uuid.New(),
		LeadID:    req.LeadID,
		Rating:    req.Rating,
		Comment:   comment,
		Source:    source,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return transport.FeedbackResponse{}, err
	}

	s.log.WithContext(ctx).Info("feedback submitted", "feedbackId", f.ID, "rating", f.Rating, "source", f.Source)
	s.bus.Publish(ctx, events.FeedbackSubmitted{
		BaseEvent:  events.NewBaseEvent(),
		FeedbackID: f.ID,
		LeadID:     f.LeadID,
		Rating:     f.Rating,
		Source:     f.Source,
		Comment:    deref(f.Comment),
	})
	return toResponse(f), nil
}

func (s *Service) List(ctx context.Context, req transport.ListFeedbackRequest) (transport.ListFeedbackResponse, error) {
	page := max(req.Page, 1)
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	pageSize = min(pageSize, maxPageSize)

	params := repository.ListParams{
		MaxRating: req.MaxRating,
		Offset:    (page - 1) * pageSize,
		Limit:     pageSize,
	}
	if req.LeadID != "" {
		id, err := uuid.Parse(req.LeadID)
		if err != nil {
			return transport.ListFeedbackResponse{}, apperr.BadRequest("invalid lead id")
		}
		params.LeadID = &id
	}

	items, summary, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.ListFeedbackResponse{}, err
	}

	resp := transport.ListFeedbackResponse{
		Items:         make([]transport.FeedbackResponse, 0, len(items)),
		Total:         summary.Total,
		AverageRating: summary.AverageRating,
		Page:          page,
		PageSize:      pageSize,
		TotalPages:    (summary.Total + pageSize - 1) / pageSize,
	}
	for _, f := range items {
		resp.Items = append(resp.Items, toResponse(f))
	}
	return resp, nil
}

func toResponse(f repository.Feedback) transport.FeedbackResponse {
	return transport.FeedbackResponse{
		ID:        f.ID,
		LeadID:    f.LeadID,
		Rating:    f.Rating,
		Comment:   f.Comment,
		Source:    f.Source,
		CreatedAt: f.CreatedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
