package handler

import (
	"context"
	"net/http"

	"renolead_backend/internal/leads/assignment"
	"renolead_backend/internal/leads/domain"
	"renolead_backend/internal/leads/management"
	"renolead_backend/internal/leads/ports"
	"renolead_backend/internal/leads/scoring"
	"renolead_backend/internal/leads/status"
	"renolead_backend/internal/leads/transport"
	"renolead_backend/platform/httpkit"
	"renolead_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Sweeper rescores every open lead in-process.
type Sweeper interface {
	RecalculateOpen(ctx context.Context) (scoring.SweepResult, error)
}

type Handler struct {
	mgmt      *management.Service
	assign    *assignment.Service
	status    *status.Service
	sweeper   Sweeper
	scheduler ports.RescoreScheduler
	val       *validator.Validator
}

func New(mgmt *management.Service, assign *assignment.Service, statusSvc *status.Service, sweeper Sweeper, val *validator.Validator) *Handler {
	return &Handler{mgmt: mgmt, assign: assign, status: statusSvc, sweeper: sweeper, val: val}
}

// SetRescoreScheduler queues sweeps on the background worker instead of running them in the request.
func (h *Handler) SetRescoreScheduler(s ports.RescoreScheduler) {
	h.scheduler = s
}

// RegisterRoutes mounts the authenticated lead routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := httpkit.RequireRole(httpkit.RoleAdmin)

	rg.GET("", h.List)
	rg.GET("/ranked", admin, h.Ranked)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/scores", h.Scores)
	rg.POST("/:id/assign", admin, h.Assign)
	rg.POST("/:id/auto-assign", admin, h.AutoAssign)
	rg.PATCH("/:id/status", httpkit.RequireRole(httpkit.RoleAdmin, httpkit.RoleContractor), h.UpdateStatus)
}

// RegisterAdminRoutes mounts maintenance routes on the admin group.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/leads/rescore", h.Rescore)
}

func (h *Handler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	req := transport.ListLeadsRequest{Page: 1, PageSize: 20}
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if !h.validate(c, req) {
		return
	}

	result, err := h.mgmt.List(c.Request.Context(), req, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Ranked(c *gin.Context) {
	req := transport.RankedLeadsRequest{Limit: 25}
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if !h.validate(c, req) {
		return
	}

	result, err := h.mgmt.Ranked(c.Request.Context(), req.Limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	lead, err := h.mgmt.GetByID(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) Scores(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	scores, err := h.mgmt.Scores(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, scores)
}

func (h *Handler) Assign(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req transport.AssignLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if !h.validate(c, req) {
		return
	}

	result, err := h.assign.AssignManually(c.Request.Context(), id, req.ContractorIDs, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) AutoAssign(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	result, err := h.assign.AssignAutomatically(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req transport.UpdateLeadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if !h.validate(c, req) {
		return
	}

	lead, err := h.status.UpdateStatus(c.Request.Context(), status.Update{
		LeadID:          id,
		Status:          req.Status,
		Notes:           req.Notes,
		ConversionValue: req.ConversionValue,
	}, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, management.ToLeadResponse(lead))
}

// Rescore queues a sweep when a worker is configured, otherwise runs it inline.
func (h *Handler) Rescore(c *gin.Context) {
	if h.scheduler != nil {
		if err := h.scheduler.EnqueueRescoreSweep(c.Request.Context()); httpkit.HandleError(c, err) {
			return
		}
		httpkit.JSON(c, http.StatusAccepted, transport.RescoreResponse{Queued: true})
		return
	}

	result, err := h.sweeper.RecalculateOpen(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) validate(c *gin.Context, req interface{}) bool {
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Details(err))
		return false
	}
	return true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}

func actorFrom(c *gin.Context) (domain.Actor, bool) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return domain.Actor{}, false
	}
	return domain.ActorFromRoles(id.UserID(), id.Email(), id.Roles()), true
}
