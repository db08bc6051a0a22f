package transport

import (
	"time"

	"github.com/google/uuid"
)

type SubmitFeedbackRequest struct {
	LeadID  *uuid.UUID `json:"leadId"`
	Rating  int        `json:"rating" validate:"required,min=1,max=5"`
	Comment *string    `json:"comment" validate:"omitempty,max=2000"`
	Source  string     `json:"source" validate:"omitempty,max=50"`
}

type ListFeedbackRequest struct {
	LeadID    string `form:"leadId" validate:"omitempty,uuid"`
	MaxRating int    `form:"maxRating" validate:"omitempty,min=1,max=5"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type FeedbackResponse struct {
	ID        uuid.UUID  `json:"id"`
	LeadID    *uuid.UUID `json:"leadId,omitempty"`
	Rating    int        `json:"rating"`
	Comment   *string    `json:"comment,omitempty"`
	Source    string     `json:"source"`
	CreatedAt time.Time  `json:"createdAt"`
}

type ListFeedbackResponse struct {
	Items         []FeedbackResponse `json:"items"`
	Total         int                `json:"total"`
	AverageRating float64            `json:"averageRating"`
	Page          int                `json:"page"`
	PageSize      int                `json:"pageSize"`
	TotalPages    int                `json:"totalPages"`
}
