package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

// LeadAssigned is what a contractor sees about a newly routed lead.
// Contact fields are empty when the homeowner did not share them.
type LeadAssigned struct {
	ContractorName string
	ZipCode        string
	RoomType       string
	Style          string
	Priority       string
	OverallScore   int
	WantsQuote     bool
	HomeownerName  string
	HomeownerEmail string
	HomeownerPhone string
	LeadURL        string
}

type LeadConverted struct {
	ContractorName  string
	ZipCode         string
	RoomType        string
	ConversionValue *float64
	LeadURL         string
}

type FeedbackAlert struct {
	Rating  int
	Source  string
	Comment string
	LeadURL string
}

type leadAssignedEmailData struct {
	baseEmailData
	LeadAssigned
	RoomLabel string
}

type leadConvertedEmailData struct {
	baseEmailData
	LeadConverted
	RoomLabel      string
	ValueFormatted string
}

type feedbackAlertEmailData struct {
	baseEmailData
	FeedbackAlert
}

func composeLeadAssigned(d LeadAssigned) (string, string, error) {
	room := roomLabel(d.RoomType)
	content, err := renderEmailTemplate("lead_assigned.html", leadAssignedEmailData{
		baseEmailData: baseEmailData{
			Title:      "New lead",
			Heading:    "You have a new lead",
			Subheading: fmt.Sprintf("%s project in %s", room, d.ZipCode),
			CTALabel:   "View lead",
			CTAURL:     d.LeadURL,
		},
		LeadAssigned: d,
		RoomLabel:    room,
	})
	return fmt.Sprintf(subjectLeadAssignedFmt, strings.ToLower(room), d.ZipCode), content, err
}

func composeLeadConverted(d LeadConverted) (string, string, error) {
	room := roomLabel(d.RoomType)
	value := ""
	if d.ConversionValue != nil {
		value = formatCurrencyUSD(*d.ConversionValue)
	}
	content, err := renderEmailTemplate("lead_converted.html", leadConvertedEmailData{
		baseEmailData: baseEmailData{
			Title:    "Lead converted",
			Heading:  "A lead was converted",
			CTALabel: "Open lead",
			CTAURL:   d.LeadURL,
		},
		LeadConverted:  d,
		RoomLabel:      room,
		ValueFormatted: value,
	})
	return fmt.Sprintf(subjectLeadConvertedFmt, d.ContractorName), content, err
}

func composeFeedbackAlert(d FeedbackAlert) (string, string, error) {
	content, err := renderEmailTemplate("feedback_alert.html", feedbackAlertEmailData{
		baseEmailData: baseEmailData{
			Title:    "Feedback alert",
			Heading:  "A homeowner left a low rating",
			CTALabel: "Open lead",
			CTAURL:   d.LeadURL,
		},
		FeedbackAlert: d,
	})
	return fmt.Sprintf(subjectFeedbackAlertFmt, d.Rating), content, err
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

// roomLabel turns "living_room" into "Living room".
func roomLabel(roomType string) string {
	label := strings.ReplaceAll(strings.TrimSpace(roomType), "_", " ")
	if label == "" {
		return "Renovation"
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

func formatCurrencyUSD(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}
