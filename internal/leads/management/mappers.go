package management

import (
	"renolead_backend/internal/leads/domain"
	"renolead_backend/internal/leads/transport"
)

// ToLeadResponse converts a lead to its API shape.
func ToLeadResponse(lead domain.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:                   lead.ID,
		UserID:               lead.UserID,
		Name:                 lead.Name,
		Email:                lead.Email,
		Phone:                lead.Phone,
		ZipCode:              lead.ZipCode,
		RoomType:             string(lead.RoomType),
		Style:                lead.Style,
		RenderCount:          lead.RenderCount,
		WantsQuote:           lead.WantsQuote,
		SocialEngaged:        lead.SocialEngaged,
		IsRepeatVisitor:      lead.IsRepeatVisitor,
		Status:               string(lead.Status),
		Scores:               ToScoresResponse(lead.Scores),
		AssignedContractorID: lead.AssignedContractorID,
		SentAt:               lead.SentAt,
		LastContactedAt:      lead.LastContactedAt,
		ConversionValue:      lead.ConversionValue,
		ContractorNotes:      lead.ContractorNotes,
		CreatedAt:            lead.CreatedAt,
		UpdatedAt:            lead.UpdatedAt,
	}
}

func ToScoresResponse(s domain.Scores) transport.ScoresResponse {
	return transport.ScoresResponse{
		Engagement:         s.Engagement,
		Intent:             s.Intent,
		Quality:            s.Quality,
		ProbabilityToClose: s.ProbabilityToClose,
		Overall:            s.Overall,
		Priority:           string(s.Priority()),
	}
}

func toRankedResponse(leads []domain.Lead, source string) transport.RankedLeadsResponse {
	items := make([]transport.RankedLeadResponse, len(leads))
	for i, lead := range leads {
		items[i] = transport.RankedLeadResponse{Rank: i + 1, Lead: ToLeadResponse(lead)}
	}
	return transport.RankedLeadsResponse{Items: items, Source: source}
}
