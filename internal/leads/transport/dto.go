package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

// CreateLeadRequest is posted by the rendering front end after the first render or email capture.
type CreateLeadRequest struct {
	Name            *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Email           *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone           *string `json:"phone,omitempty" validate:"omitempty,min=5,max=30"`
	ZipCode         string  `json:"zipCode" validate:"required,min=3,max=10"`
	RoomType        string  `json:"roomType" validate:"omitempty,roomtype"`
	Style           string  `json:"style" validate:"max=100"`
	RenderCount     int     `json:"renderCount" validate:"min=0,max=10000"`
	WantsQuote      bool    `json:"wantsQuote"`
	SocialEngaged   bool    `json:"socialEngaged"`
	IsRepeatVisitor bool    `json:"isRepeatVisitor"`
}

type ListLeadsRequest struct {
	Status   string `form:"status" validate:"omitempty,leadstatus"`
	Priority string `form:"priority" validate:"omitempty,oneof=high medium low"`
	Page     int    `form:"page" validate:"min=1"`
	PageSize int    `form:"pageSize" validate:"min=1,max=100"`
}

type RankedLeadsRequest struct {
	Limit int `form:"limit" validate:"min=1,max=200"`
}

type AssignLeadRequest struct {
	ContractorIDs []uuid.UUID `json:"contractorIds" validate:"required,min=1,max=50"`
}

type UpdateLeadStatusRequest struct {
	Status          string   `json:"status" validate:"required,leadstatus"`
	Notes           *string  `json:"notes,omitempty" validate:"omitempty,max=4000"`
	ConversionValue *float64 `json:"conversionValue,omitempty" validate:"omitempty,gte=0"`
}

// Response DTOs

type ScoresResponse struct {
	Engagement         int    `json:"engagement"`
	Intent             int    `json:"intent"`
	Quality            int    `json:"quality"`
	ProbabilityToClose int    `json:"probabilityToClose"`
	Overall            int    `json:"overall"`
	Priority           string `json:"priority"`
}

type LeadResponse struct {
	ID                   uuid.UUID      `json:"id"`
	UserID               *uuid.UUID     `json:"userId,omitempty"`
	Name                 *string        `json:"name,omitempty"`
	Email                *string        `json:"email,omitempty"`
	Phone                *string        `json:"phone,omitempty"`
	ZipCode              string         `json:"zipCode"`
	RoomType             string         `json:"roomType"`
	Style                string         `json:"style,omitempty"`
	RenderCount          int            `json:"renderCount"`
	WantsQuote           bool           `json:"wantsQuote"`
	SocialEngaged        bool           `json:"socialEngaged"`
	IsRepeatVisitor      bool           `json:"isRepeatVisitor"`
	Status               string         `json:"status"`
	Scores               ScoresResponse `json:"scores"`
	AssignedContractorID *uuid.UUID     `json:"assignedContractorId,omitempty"`
	SentAt               *time.Time     `json:"sentAt,omitempty"`
	LastContactedAt      *time.Time     `json:"lastContactedAt,omitempty"`
	ConversionValue      *float64       `json:"conversionValue,omitempty"`
	ContractorNotes      *string        `json:"contractorNotes,omitempty"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
}

// PublicLeadResponse is returned to anonymous callers; it carries no contact data.
type PublicLeadResponse struct {
	ID          uuid.UUID `json:"id"`
	RenderCount int       `json:"renderCount"`
	Status      string    `json:"status"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

type RankedLeadResponse struct {
	Rank int          `json:"rank"`
	Lead LeadResponse `json:"lead"`
}

type RankedLeadsResponse struct {
	Items  []RankedLeadResponse `json:"items"`
	Source string               `json:"source"`
}

type RescoreResponse struct {
	Queued bool `json:"queued"`
}
