// Package email delivers transactional mail to contractors and admins
// through Brevo's HTTP API or a plain SMTP server.
package email

import (
	"context"
	"net/http"
	"time"

	"renolead_backend/platform/config"
)

// Sender delivers the emails the lead engine sends.
type Sender interface {
	SendLeadAssignedEmail(ctx context.Context, toEmail string, data LeadAssigned) error
	SendLeadConvertedEmail(ctx context.Context, toEmail string, data LeadConverted) error
	SendFeedbackAlertEmail(ctx context.Context, toEmail string, data FeedbackAlert) error
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

// NoopSender drops every email. Used when EMAIL_ENABLED is false.
type NoopSender struct{}

func (NoopSender) SendLeadAssignedEmail(context.Context, string, LeadAssigned) error   { return nil }
func (NoopSender) SendLeadConvertedEmail(context.Context, string, LeadConverted) error { return nil }
func (NoopSender) SendFeedbackAlertEmail(context.Context, string, FeedbackAlert) error { return nil }
func (NoopSender) SendCustomEmail(context.Context, string, string, string) error       { return nil }

// NewSender picks the provider from config.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}
	if cfg.GetEmailProvider() == "smtp" {
		return NewSMTPSender(
			cfg.GetSMTPHost(),
			cfg.GetSMTPPort(),
			cfg.GetSMTPUsername(),
			cfg.GetSMTPPassword(),
			cfg.GetEmailFromAddress(),
			cfg.GetEmailFromName(),
		), nil
	}
	return &BrevoSender{
		apiKey:    cfg.GetBrevoAPIKey(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
		endpoint:  brevoEndpoint,
		client:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}
