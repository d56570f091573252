package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"lead_pipeline_backend/internal/leads/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var emailTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type leadNotificationData struct {
	Lines []string
}

func renderEmailTemplate(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// LeadSubject is the notification subject line.
func LeadSubject(lead domain.Lead) string {
	city := strings.TrimSpace(lead.City)
	if city == "" {
		city = "Unknown"
	}
	name := lead.DisplayName()
	if name == "" {
		name = "New Lead"
	}
	prop := ""
	if lead.PropertyID != "" {
		prop = " — prop:" + lead.PropertyID
	}
	return fmt.Sprintf("[New Lead • %s] %s%s", city, name, prop)
}

// RenderLeadText renders the plain-text notification body, including the
// anti-bot signals so operators can audit borderline submissions.
func RenderLeadText(lead domain.Lead) string {
	agent := domain.Unassigned.Name
	if lead.AssignedAgent != nil && lead.AssignedAgent.Name != "" {
		agent = lead.AssignedAgent.Name
	}
	tags := strings.Join(lead.Tags, ", ")

	lines := []string{
		"New lead from Crown Coastal Homes:",
		"",
		"Name: " + lead.DisplayName(),
		"Email: " + or(lead.Email, "N/A"),
		"Phone: " + or(lead.Phone, "N/A"),
		"",
		fmt.Sprintf("City/State/County: %s / %s / %s", or(lead.City, "-"), or(lead.State, "-"), or(lead.County, "-")),
		"Property: " + or(lead.PropertyID, "-"),
		"Page: " + or(lead.PageURL, "-"),
		"",
		"Budget Max: " + formatNumber(lead.BudgetMax, "-"),
		"Timeframe: " + or(lead.Timeframe, "-"),
		"Wants Tour: " + yesNo(lead.WantsTour),
		"",
		fmt.Sprintf("Score: %d  Assigned: %s", lead.Score, agent),
		"Tags: " + or(tags, "-"),
		fmt.Sprintf("Source: %s / %s / %s",
			or(lead.UTMSource, or(lead.Source, "-")),
			or(lead.UTMMedium, or(lead.Medium, "-")),
			or(lead.UTMCampaign, or(lead.Campaign, "-")),
		),
		"Referrer: " + or(lead.Referrer, "-"),
		"",
		"Message:",
		or(lead.Message, "-"),
		"",
		fmt.Sprintf("Anti-bot: ms_on_page=%s honeypot=%s", formatNumber(lead.TimeOnPageMS, "0"), lead.Company),
	}
	return strings.Join(lines, "\n")
}

// RenderLeadHTML renders the text body as escaped HTML with line breaks.
func RenderLeadHTML(lead domain.Lead) (string, error) {
	return renderEmailTemplate("lead_notification.html", leadNotificationData{
		Lines: strings.Split(RenderLeadText(lead), "\n"),
	})
}

func or(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func formatNumber(v *float64, fallback string) string {
	if v == nil {
		return fallback
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
