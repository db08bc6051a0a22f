package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateContractorRequest struct {
	Name               string   `json:"name" validate:"required,min=1,max=200"`
	Email              string   `json:"email" validate:"required,email,max=254"`
	Phone              *string  `json:"phone,omitempty" validate:"omitempty,min=5,max=30"`
	SubscriptionTier   string   `json:"subscriptionTier" validate:"omitempty,oneof=basic pro premium"`
	IsActiveSubscriber *bool    `json:"isActiveSubscriber,omitempty"`
	ServesAllZipCodes  bool     `json:"servesAllZipCodes"`
	ZipCodes           []string `json:"zipCodes,omitempty" validate:"omitempty,max=500,dive,min=3,max=10"`
}

type UpdateContractorRequest struct {
	Name               *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Email              *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone              *string `json:"phone,omitempty" validate:"omitempty,min=5,max=30"`
	SubscriptionTier   *string `json:"subscriptionTier,omitempty" validate:"omitempty,oneof=basic pro premium"`
	IsActiveSubscriber *bool   `json:"isActiveSubscriber,omitempty"`
	ServesAllZipCodes  *bool   `json:"servesAllZipCodes,omitempty"`
}

type ReplaceZipCodesRequest struct {
	ZipCodes []string `json:"zipCodes" validate:"max=500,dive,min=3,max=10"`
}

type ListContractorsRequest struct {
	Search     string `form:"search" validate:"omitempty,max=100"`
	ActiveOnly bool   `form:"activeOnly"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	PageSize   int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type ContractorResponse struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Phone              *string   `json:"phone,omitempty"`
	SubscriptionTier   string    `json:"subscriptionTier"`
	IsActiveSubscriber bool      `json:"isActiveSubscriber"`
	ServesAllZipCodes  bool      `json:"servesAllZipCodes"`
	ZipCodes           []string  `json:"zipCodes"`
	LeadsReceived      int       `json:"leadsReceived"`
	LeadsConverted     int       `json:"leadsConverted"`
	ConversionRate     float64   `json:"conversionRate"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type ListContractorsResponse struct {
	Items      []ContractorResponse `json:"items"`
	Total      int                  `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"pageSize"`
	TotalPages int                  `json:"totalPages"`
}
