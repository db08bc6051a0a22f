// Package service holds contractor business rules: profile upkeep, zip
// coverage and the performance counters fed by lead routing.
package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"renolead_backend/internal/contractors/repository"
	"renolead_backend/internal/contractors/transport"
	"renolead_backend/platform/apperr"
	"renolead_backend/platform/logger"
	"renolead_backend/platform/phone"
	"renolead_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultTier     = "basic"
	defaultPageSize = 20
	maxPageSize     = 100
)

// Repository is the persistence the service needs.
type Repository interface {
	Create(ctx context.Context, c repository.Contractor) (repository.Contractor, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Contractor, error)
	GetByEmail(ctx context.Context, email string) (repository.Contractor, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]repository.Contractor, error)
	FindEligible(ctx context.Context, zip string, limit int) ([]repository.Contractor, error)
	List(ctx context.Context, params repository.ListParams) ([]repository.Contractor, int, error)
	Update(ctx context.Context, u repository.ContractorUpdate) (repository.Contractor, error)
	ReplaceZipCodes(ctx context.Context, id uuid.UUID, zips []string) error
	IncrementLeadsReceived(ctx context.Context, ids []uuid.UUID) error
	RecordConversion(ctx context.Context, id uuid.UUID) error
}

var _ Repository = (*repository.Repository)(nil)

type Service struct {
	repo   Repository
	phones *phone.Normalizer
	log    *logger.Logger
	now    func() time.Time
}

func New(repo Repository, phones *phone.Normalizer, log *logger.Logger) *Service {
	if phones == nil {
		phones = phone.NewNormalizer(phone.DefaultRegion)
	}
	return &Service{repo: repo, phones: phones, log: log, now: time.Now}
}

func (s *Service) Create(ctx context.Context, req transport.CreateContractorRequest) (transport.ContractorResponse, error) {
	now := s.now().UTC()
	active := true
	if req.IsActiveSubscriber != nil {
		active = *req.IsActiveSubscriber
	}
	tier := req.SubscriptionTier
	if tier == "" {
		tier = defaultTier
	}

	created, err := s.repo.Create(ctx, repository.Contractor{
		ID:                 uuid.New(),
		Name:               sanitize.Text(req.Name),
		Email:              normalizeEmail(req.Email),
		Phone:              s.normalizePhone(req.Phone),
		SubscriptionTier:   tier,
		IsActiveSubscriber: active,
		ServesAllZipCodes:  req.ServesAllZipCodes,
		ZipCodes:           NormalizeZipCodes(req.ZipCodes),
		CreatedAt:          now,
	})
	if err != nil {
		return transport.ContractorResponse{}, err
	}

	s.log.Info("contractor created", "contractorId", created.ID, "zipCodes", len(created.ZipCodes), "servesAll", created.ServesAllZipCodes)
	return toResponse(created), nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.ContractorResponse, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ContractorResponse{}, err
	}
	return toResponse(c), nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateContractorRequest) (transport.ContractorResponse, error) {
	update := repository.ContractorUpdate{
		ID:                 id,
		Phone:              s.normalizePhone(req.Phone),
		SubscriptionTier:   req.SubscriptionTier,
		IsActiveSubscriber: req.IsActiveSubscriber,
		ServesAllZipCodes:  req.ServesAllZipCodes,
		UpdatedAt:          s.now().UTC(),
	}
	if req.Name != nil {
		name := sanitize.Text(*req.Name)
		if name == "" {
			return transport.ContractorResponse{}, apperr.Validation("name must not be empty")
		}
		update.Name = &name
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		update.Email = &email
	}

	updated, err := s.repo.Update(ctx, update)
	if err != nil {
		return transport.ContractorResponse{}, err
	}
	return toResponse(updated), nil
}

func (s *Service) List(ctx context.Context, req transport.ListContractorsRequest) (transport.ListContractorsResponse, error) {
	page := max(req.Page, 1)
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	pageSize = min(pageSize, maxPageSize)

	items, total, err := s.repo.List(ctx, repository.ListParams{
		Search:     req.Search,
		ActiveOnly: req.ActiveOnly,
		Offset:     (page - 1) * pageSize,
		Limit:      pageSize,
	})
	if err != nil {
		return transport.ListContractorsResponse{}, err
	}

	resp := transport.ListContractorsResponse{
		Items:      make([]transport.ContractorResponse, 0, len(items)),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
	for _, c := range items {
		resp.Items = append(resp.Items, toResponse(c))
	}
	return resp, nil
}

// ReplaceZipCodes overwrites the contractor's coverage. An empty list clears it.
func (s *Service) ReplaceZipCodes(ctx context.Context, id uuid.UUID, req transport.ReplaceZipCodesRequest) (transport.ContractorResponse, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return transport.ContractorResponse{}, err
	}
	if err := s.repo.ReplaceZipCodes(ctx, id, NormalizeZipCodes(req.ZipCodes)); err != nil {
		return transport.ContractorResponse{}, err
	}
	return s.GetByID(ctx, id)
}

// GetByIDs is used by lead assignment to resolve candidates.
func (s *Service) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]repository.Contractor, error) {
	return s.repo.GetByIDs(ctx, ids)
}

// GetByEmail resolves the contractor record behind a signed-in contractor user.
func (s *Service) GetByEmail(ctx context.Context, email string) (repository.Contractor, error) {
	return s.repo.GetByEmail(ctx, normalizeEmail(email))
}

func (s *Service) FindEligible(ctx context.Context, zip string, limit int) ([]repository.Contractor, error) {
	zip = strings.TrimSpace(zip)
	if zip == "" || limit <= 0 {
		return nil, nil
	}
	return s.repo.FindEligible(ctx, zip, limit)
}

func (s *Service) RecordLeadsReceived(ctx context.Context, ids []uuid.UUID) error {
	return s.repo.IncrementLeadsReceived(ctx, ids)
}

func (s *Service) RecordConversion(ctx context.Context, id uuid.UUID) error {
	return s.repo.RecordConversion(ctx, id)
}

func (s *Service) normalizePhone(raw *string) *string {
	if raw == nil {
		return nil
	}
	normalized := s.phones.NormalizeE164(*raw)
	if normalized == "" {
		return nil
	}
	return &normalized
}

// NormalizeZipCodes trims, drops blanks and duplicates, and sorts.
func NormalizeZipCodes(zips []string) []string {
	out := make([]string, 0, len(zips))
	for _, z := range zips {
		z = strings.ToUpper(strings.TrimSpace(z))
		if z != "" {
			out = append(out, z)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toResponse(c repository.Contractor) transport.ContractorResponse {
	zips := c.ZipCodes
	if zips == nil {
		zips = []string{}
	}
	return transport.ContractorResponse{
		ID:                 c.ID,
		Name:               c.Name,
		Email:              c.Email,
		Phone:              c.Phone,
		SubscriptionTier:   c.SubscriptionTier,
		IsActiveSubscriber: c.IsActiveSubscriber,
		ServesAllZipCodes:  c.ServesAllZipCodes,
		ZipCodes:           zips,
		LeadsReceived:      c.LeadsReceived,
		LeadsConverted:     c.LeadsConverted,
		ConversionRate:     c.ConversionRate,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}
