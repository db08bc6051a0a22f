// Package leads provides the lead scoring and routing bounded context module.
// This file wires the scoring, assignment, status and intake services and
// registers their routes.
package leads

import (
	"context"
	"time"

	"renolead_backend/internal/events"
	apphttp "renolead_backend/internal/http"
	"renolead_backend/internal/leads/assignment"
	"renolead_backend/internal/leads/domain"
	"renolead_backend/internal/leads/handler"
	"renolead_backend/internal/leads/management"
	"renolead_backend/internal/leads/ports"
	"renolead_backend/internal/leads/ranking"
	"renolead_backend/internal/leads/repository"
	"renolead_backend/internal/leads/scoring"
	"renolead_backend/internal/leads/status"
	"renolead_backend/platform/apperr"
	"renolead_backend/platform/config"
	"renolead_backend/platform/db"
	"renolead_backend/platform/logger"
	"renolead_backend/platform/phone"
	"renolead_backend/platform/validator"
)

// Config is the configuration the leads module reads.
type Config interface {
	config.ScoringConfig
	config.AssignmentConfig
	config.PhoneConfig
}

// Dependencies are collaborators owned by other bounded contexts.
type Dependencies struct {
	Contractors ports.ContractorDirectory
	Stats       ports.ContractorStats
	Notifier    ports.ContractorNotifier
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	repo          *repository.Repository
	scoring       *scoring.Service
	assignment    *assignment.Service
	status        *status.Service
	management    *management.Service
	handler       *handler.Handler
	publicHandler *handler.PublicHandler
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool db.Pool, eventBus events.Bus, val *validator.Validator, cfg Config, deps Dependencies, log *logger.Logger) (*Module, error) {
	if err := RegisterValidators(val); err != nil {
		return nil, err
	}

	tables, err := scoring.LoadTables(cfg.GetScoringTablesPath())
	if err != nil {
		return nil, err
	}
	log.Info("scoring tables loaded", "region", tables.Region(), "path", cfg.GetScoringTablesPath())

	repo := repository.New(pool)
	scoringSvc := scoring.New(repo, scoring.NewCalculator(tables, time.Now), eventBus, log)
	assignSvc := assignment.New(repo, deps.Contractors, deps.Stats, deps.Notifier, scoringSvc, eventBus, log, assignment.Options{
		Concurrency:        cfg.GetAssignmentConcurrency(),
		MaxAutoContractors: cfg.GetAutoAssignMaxContractors(),
	})
	statusSvc := status.New(repo, deps.Contractors, deps.Stats, scoringSvc, eventBus, log, time.Now)
	mgmtSvc := management.New(repo, scoringSvc, deps.Contractors, phone.NewNormalizer(cfg.GetPhoneDefaultRegion()), eventBus, log)

	if cfg.GetAutoAssignOnQuote() {
		subscribeAutoAssign(eventBus, assignSvc, log)
	}

	return &Module{
		repo:          repo,
		scoring:       scoringSvc,
		assignment:    assignSvc,
		status:        statusSvc,
		management:    mgmtSvc,
		handler:       handler.New(mgmtSvc, assignSvc, statusSvc, scoringSvc, val),
		publicHandler: handler.NewPublicHandler(mgmtSvc, val),
	}, nil
}

// RegisterValidators adds the lead enum tags used by request DTOs.
func RegisterValidators(val *validator.Validator) error {
	if err := val.RegisterStringRule("leadstatus", func(s string) bool {
		_, ok := domain.ParseStatus(s)
		return ok
	}); err != nil {
		return err
	}
	return val.RegisterStringRule("roomtype", func(s string) bool {
		_, ok := domain.ParseRoomType(s)
		return ok
	})
}

// subscribeAutoAssign routes quote requests to eligible contractors as soon as the lead exists.
func subscribeAutoAssign(bus events.Bus, svc *assignment.Service, log *logger.Logger) {
	bus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadCreated)
		if !ok || !e.WantsQuote {
			return nil
		}

		result, err := svc.AssignAutomatically(ctx, e.LeadID, domain.SystemActor())
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				log.Info("no eligible contractors for quote request", "leadId", e.LeadID, "zipCode", e.ZipCode)
				return nil
			}
			return err
		}
		log.Info("quote request auto-assigned", "leadId", e.LeadID, "succeeded", result.Succeeded, "attempted", result.Attempted)
		return nil
	}))
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Repository exposes the leads repository for adapters and CLIs.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// ScoringService returns the rescoring service for the scheduler.
func (m *Module) ScoringService() *scoring.Service {
	return m.scoring
}

// AssignmentService returns the assignment engine.
func (m *Module) AssignmentService() *assignment.Service {
	return m.assignment
}

// StatusService returns the status transition guard.
func (m *Module) StatusService() *status.Service {
	return m.status
}

// ManagementService returns the lead intake service.
func (m *Module) ManagementService() *management.Service {
	return m.management
}

// SetRanking keeps the Redis ranking current and serves ranked reads from it.
func (m *Module) SetRanking(store *ranking.Store, bus events.Bus) {
	store.Subscribe(bus)
	m.management.SetRanker(store)
}

// SetRescoreScheduler hands rescore sweeps to the background worker.
func (m *Module) SetRescoreScheduler(s ports.RescoreScheduler) {
	m.handler.SetRescoreScheduler(s)
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.publicHandler.RegisterRoutes(ctx.Public.Group("/leads"))
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
