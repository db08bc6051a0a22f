// Package contractors provides the contractors bounded context module.
package contractors

import (
	"renolead_backend/internal/contractors/handler"
	"renolead_backend/internal/contractors/repository"
	"renolead_backend/internal/contractors/service"
	apphttp "renolead_backend/internal/http"
	"renolead_backend/platform/db"
	"renolead_backend/platform/logger"
	"renolead_backend/platform/phone"
	"renolead_backend/platform/validator"
)

// Module is the contractors bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool db.Pool, val *validator.Validator, phones *phone.Normalizer, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), phones, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "contractors"
}

// Service is exposed so the composition root can adapt it for lead routing.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the admin-only contractor routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin.Group("/contractors"))
}

var _ apphttp.Module = (*Module)(nil)
