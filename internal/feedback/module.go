// Package feedback provides the homeowner satisfaction feedback module.
package feedback

import (
	"renolead_backend/internal/events"
	"renolead_backend/internal/feedback/handler"
	"renolead_backend/internal/feedback/repository"
	"renolead_backend/internal/feedback/service"
	apphttp "renolead_backend/internal/http"
	"renolead_backend/platform/db"
	"renolead_backend/platform/logger"
	"renolead_backend/platform/validator"
)

type Module struct {
	handler *handler.Handler
}

var _ apphttp.Module = (*Module)(nil)

func NewModule(pool db.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), bus, log)
	return &Module{handler: handler.New(svc, val)}
}

func (m *Module) Name() string {
	return "feedback"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Public.POST("/feedback", m.handler.Submit)
	ctx.Admin.GET("/feedback", m.handler.List)
}
