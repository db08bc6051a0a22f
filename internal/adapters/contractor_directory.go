package adapters

import (
	"context"

	"renolead_backend/internal/contractors/repository"
	"renolead_backend/internal/contractors/service"
	"renolead_backend/internal/leads/ports"

	"github.com/google/uuid"
)

// ContractorDirectory adapts the contractors service for the leads domain.
// It implements ports.ContractorDirectory and ports.ContractorStats.
type ContractorDirectory struct {
	svc *service.Service
}

func NewContractorDirectory(svc *service.Service) *ContractorDirectory {
	return &ContractorDirectory{svc: svc}
}

var (
	_ ports.ContractorDirectory = (*ContractorDirectory)(nil)
	_ ports.ContractorStats     = (*ContractorDirectory)(nil)
)

func (d *ContractorDirectory) GetContractorsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ports.Contractor, error) {
	found, err := d.svc.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]ports.Contractor, len(found))
	for _, c := range found {
		out[c.ID] = toPortContractor(c)
	}
	return out, nil
}

func (d *ContractorDirectory) GetContractorByEmail(ctx context.Context, email string) (ports.Contractor, error) {
	c, err := d.svc.GetByEmail(ctx, email)
	if err != nil {
		return ports.Contractor{}, err
	}
	return toPortContractor(c), nil
}

func (d *ContractorDirectory) FindEligibleContractors(ctx context.Context, zip string, limit int) ([]ports.Contractor, error) {
	found, err := d.svc.FindEligible(ctx, zip, limit)
	if err != nil {
		return nil, err
	}
	out := make([]ports.Contractor, 0, len(found))
	for _, c := range found {
		out = append(out, toPortContractor(c))
	}
	return out, nil
}

func (d *ContractorDirectory) RecordLeadsReceived(ctx context.Context, contractorIDs []uuid.UUID) error {
	return d.svc.RecordLeadsReceived(ctx, contractorIDs)
}

func (d *ContractorDirectory) RecordConversion(ctx context.Context, contractorID uuid.UUID) error {
	return d.svc.RecordConversion(ctx, contractorID)
}

func toPortContractor(c repository.Contractor) ports.Contractor {
	return ports.Contractor{
		ID:             c.ID,
		Name:           c.Name,
		Email:          c.Email,
		IsActive:       c.IsActiveSubscriber,
		ServesAllZips:  c.ServesAllZipCodes,
		ConversionRate: c.ConversionRate,
	}
}
