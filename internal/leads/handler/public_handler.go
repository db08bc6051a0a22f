package handler

import (
	"net/http"

	"renolead_backend/internal/leads/management"
	"renolead_backend/internal/leads/transport"
	"renolead_backend/platform/httpkit"
	"renolead_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PublicHandler serves the unauthenticated intake endpoints used by the rendering app.
type PublicHandler struct {
	mgmt *management.Service
	val  *validator.Validator
}

func NewPublicHandler(mgmt *management.Service, val *validator.Validator) *PublicHandler {
	return &PublicHandler{mgmt: mgmt, val: val}
}

// RegisterRoutes registers public lead routes under /public/leads.
func (h *PublicHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.POST("/:id/renders", h.RecordRender)
}

func (h *PublicHandler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Details(err))
		return
	}

	// Only a verified token links the lead to a profile.
	var userID *uuid.UUID
	if id := httpkit.GetIdentity(c); id.IsAuthenticated() {
		uid := id.UserID()
		userID = &uid
	}

	lead, err := h.mgmt.Create(c.Request.Context(), req, userID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.PublicLeadResponse{
		ID:          lead.ID,
		RenderCount: lead.RenderCount,
		Status:      lead.Status,
	})
}

func (h *PublicHandler) RecordRender(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	lead, err := h.mgmt.RecordRender(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}
