package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// BrevoSender posts mail to Brevo's transactional API.
type BrevoSender struct {
	apiKey    string
	fromName  string
	fromEmail string
	endpoint  string
	client    *http.Client
}

type brevoAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoEmailRequest struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
	Tags        []string       `json:"tags,omitempty"`
}

func (b *BrevoSender) SendLeadAssignedEmail(ctx context.Context, toEmail string, data LeadAssigned) error {
	subject, content, err := composeLeadAssigned(data)
	if err != nil {
		return err
	}
	return b.send(ctx, toEmail, subject, content, "lead-assigned")
}

func (b *BrevoSender) SendLeadConvertedEmail(ctx context.Context, toEmail string, data LeadConverted) error {
	subject, content, err := composeLeadConverted(data)
	if err != nil {
		return err
	}
	return b.send(ctx, toEmail, subject, content, "lead-converted")
}

func (b *BrevoSender) SendFeedbackAlertEmail(ctx context.Context, toEmail string, data FeedbackAlert) error {
	subject, content, err := composeFeedbackAlert(data)
	if err != nil {
		return err
	}
	return b.send(ctx, toEmail, subject, content, "feedback-alert")
}

func (b *BrevoSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return b.send(ctx, toEmail, subject, htmlContent)
}

func (b *BrevoSender) send(ctx context.Context, toEmail, subject, htmlContent string, tags ...string) error {
	body, err := json.Marshal(brevoEmailRequest{
		Sender:      brevoAddress{Name: b.fromName, Email: b.fromEmail},
		To:          []brevoAddress{{Email: toEmail}},
		Subject:     subject,
		HTMLContent: htmlContent,
		Tags:        tags,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", b.apiKey)
	req.Header.Set("content-type", "application/json")
	req.Header.Set("accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("brevo send failed: status %d: %s", resp.StatusCode, string(data))
	}
	return nil
}
