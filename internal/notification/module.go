// Package notification turns lead activity into outbound messages: the
// assignment email each contractor receives, admin alerts, and the live
// dashboard stream. Domain modules publish events and never see providers.
package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"renolead_backend/internal/email"
	"renolead_backend/internal/events"
	apphttp "renolead_backend/internal/http"
	"renolead_backend/internal/leads/domain"
	"renolead_backend/internal/leads/ports"
	"renolead_backend/internal/notification/sse"
	"renolead_backend/platform/apperr"
	"renolead_backend/platform/config"
	"renolead_backend/platform/httpkit"
	"renolead_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// lowRatingThreshold and below triggers an admin alert.
const lowRatingThreshold = 2

var errNoContractorEmail = errors.New("contractor has no email address")

// LeadReader loads the lead behind an event.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
}

// Module handles notification delivery and event subscriptions.
type Module struct {
	sender    email.Sender
	cfg       config.NotificationConfig
	log       *logger.Logger
	directory ports.ContractorDirectory
	leads     LeadReader
	sse       *sse.Service
}

var (
	_ ports.ContractorNotifier = (*Module)(nil)
	_ apphttp.Module           = (*Module)(nil)
)

func New(sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{sender: sender, cfg: cfg, log: log}
}

func (m *Module) Name() string { return "notification" }

// SetContractorDirectory enables contractor lookups for alerts and the live stream.
func (m *Module) SetContractorDirectory(d ports.ContractorDirectory) { m.directory = d }

// SetLeadReader enables lead lookups for conversion alerts.
func (m *Module) SetLeadReader(r LeadReader) { m.leads = r }

// SetSSE enables the live dashboard stream.
func (m *Module) SetSSE(s *sse.Service) { m.sse = s }

// RegisterRoutes mounts the live stream when SSE is enabled.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	if m.sse == nil {
		return
	}
	ctx.Protected.GET("/events/stream", m.sse.Handler(m.subscriber))
}

func (m *Module) subscriber(c *gin.Context) (sse.Subscriber, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return sse.Subscriber{}, false
	}
	sub := sse.Subscriber{UserID: identity.UserID()}

	switch {
	case identity.HasRole(httpkit.RoleAdmin):
		sub.Admin = true
		return sub, true
	case identity.HasRole(httpkit.RoleContractor) && m.directory != nil:
		contractor, err := m.directory.GetContractorByEmail(c.Request.Context(), identity.Email())
		if err == nil {
			sub.ContractorID = &contractor.ID
			return sub, true
		}
		if !apperr.Is(err, apperr.KindNotFound) {
			httpkit.HandleError(c, err)
			return sse.Subscriber{}, false
		}
	}
	httpkit.Error(c, http.StatusForbidden, "forbidden", nil)
	return sse.Subscriber{}, false
}

// NotifyLeadAssigned emails the contractor about a routed lead.
func (m *Module) NotifyLeadAssigned(ctx context.Context, contractor ports.Contractor, lead domain.Lead, assignmentID uuid.UUID) error {
	if contractor.Email == "" {
		return apperr.Notification(errNoContractorEmail)
	}

	err := m.sender.SendLeadAssignedEmail(ctx, contractor.Email, email.LeadAssigned{
		ContractorName: contractor.Name,
		ZipCode:        lead.ZipCode,
		RoomType:       string(lead.RoomType),
		Style:          lead.Style,
		Priority:       string(lead.Scores.Priority()),
		OverallScore:   lead.Scores.Overall,
		WantsQuote:     lead.WantsQuote,
		HomeownerName:  deref(lead.Name),
		HomeownerEmail: deref(lead.Email),
		HomeownerPhone: deref(lead.Phone),
		LeadURL:        m.contractorLeadURL(lead.ID, assignmentID),
	})
	if err != nil {
		return apperr.Notification(err)
	}
	return nil
}

// RegisterHandlers subscribes to the lead and feedback events.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), m)
	bus.Subscribe(events.LeadScored{}.EventName(), m)
	bus.Subscribe(events.LeadAssigned{}.EventName(), m)
	bus.Subscribe(events.LeadStatusChanged{}.EventName(), m)
	bus.Subscribe(events.FeedbackSubmitted{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadCreated:
		m.stream(sse.Event{Type: sse.EventLeadCreated, LeadID: e.LeadID, Data: e}, nil)
		return nil
	case events.LeadScored:
		m.stream(sse.Event{Type: sse.EventLeadScored, LeadID: e.LeadID, Data: e}, nil)
		return nil
	case events.LeadAssigned:
		return m.handleLeadAssigned(ctx, e)
	case events.LeadStatusChanged:
		return m.handleLeadStatusChanged(ctx, e)
	case events.FeedbackSubmitted:
		return m.handleFeedbackSubmitted(ctx, e)
	default:
		return nil
	}
}

func (m *Module) handleLeadAssigned(ctx context.Context, e events.LeadAssigned) error {
	if len(e.FailedContractors) > 0 {
		m.log.WithContext(ctx).Warn("lead assigned with failed contractors",
			"leadId", e.LeadID,
			"method", e.Method,
			"succeeded", len(e.SucceededContractors),
			"failed", len(e.FailedContractors),
		)
	}
	m.stream(sse.Event{Type: sse.EventLeadAssigned, LeadID: e.LeadID, Data: e}, e.SucceededContractors)
	return nil
}

func (m *Module) handleLeadStatusChanged(ctx context.Context, e events.LeadStatusChanged) error {
	var lead *domain.Lead
	if m.leads != nil {
		l, err := m.leads.GetByID(ctx, e.LeadID)
		if err != nil {
			m.log.WithContext(ctx).Error("failed to load lead for status notification", "leadId", e.LeadID, "error", err)
		} else {
			lead = &l
		}
	}

	var audience []uuid.UUID
	if lead != nil && lead.AssignedContractorID != nil {
		audience = []uuid.UUID{*lead.AssignedContractorID}
	}
	m.stream(sse.Event{Type: sse.EventLeadStatusChanged, LeadID: e.LeadID, Data: e}, audience)

	if e.NewStatus != string(domain.StatusConverted) || e.OldStatus == string(domain.StatusConverted) || lead == nil {
		return nil
	}
	return m.sendConversionAlert(ctx, *lead, e.ConversionValue)
}

func (m *Module) sendConversionAlert(ctx context.Context, lead domain.Lead, value *float64) error {
	to := m.cfg.GetAdminAlertEmail()
	if to == "" {
		return nil
	}

	contractorName := "An admin"
	if lead.AssignedContractorID != nil && m.directory != nil {
		found, err := m.directory.GetContractorsByIDs(ctx, []uuid.UUID{*lead.AssignedContractorID})
		if err == nil {
			if c, ok := found[*lead.AssignedContractorID]; ok {
				contractorName = c.Name
			}
		}
	}

	err := m.sender.SendLeadConvertedEmail(ctx, to, email.LeadConverted{
		ContractorName:  contractorName,
		ZipCode:         lead.ZipCode,
		RoomType:        string(lead.RoomType),
		ConversionValue: value,
		LeadURL:         m.adminLeadURL(lead.ID),
	})
	if err != nil {
		m.log.WithContext(ctx).Error("failed to send conversion alert", "leadId", lead.ID, "error", err)
		return err
	}
	return nil
}

func (m *Module) handleFeedbackSubmitted(ctx context.Context, e events.FeedbackSubmitted) error {
	m.stream(sse.Event{Type: sse.EventFeedbackSubmitted, Data: e}, nil)

	to := m.cfg.GetAdminAlertEmail()
	if e.Rating > lowRatingThreshold || to == "" {
		return nil
	}

	alert := email.FeedbackAlert{Rating: e.Rating, Source: e.Source, Comment: e.Comment}
	if e.LeadID != nil {
		alert.LeadURL = m.adminLeadURL(*e.LeadID)
	}
	if err := m.sender.SendFeedbackAlertEmail(ctx, to, alert); err != nil {
		m.log.WithContext(ctx).Error("failed to send feedback alert", "feedbackId", e.FeedbackID, "error", err)
		return err
	}
	return nil
}

// stream publishes to admins, plus the given contractors when audience is non-empty.
func (m *Module) stream(event sse.Event, audience []uuid.UUID) {
	if m.sse == nil {
		return
	}
	if len(audience) == 0 {
		m.sse.PublishToAdmins(event)
		return
	}
	m.sse.PublishToContractors(audience, event)
}

func (m *Module) contractorLeadURL(leadID, assignmentID uuid.UUID) string {
	return fmt.Sprintf("%s/contractor/leads/%s?assignment=%s", m.cfg.GetAppBaseURL(), leadID, assignmentID)
}

func (m *Module) adminLeadURL(leadID uuid.UUID) string {
	return fmt.Sprintf("%s/admin/leads/%s", m.cfg.GetAppBaseURL(), leadID)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
