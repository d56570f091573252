package email

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/platform/config"
)

func float(v float64) *float64 { return &v }

func sampleLead() domain.Lead {
	return domain.Lead{
		FullName:      "Jane Doe",
		Email:         "jane@example.com",
		Phone:         "+16195550143",
		City:          "Carlsbad",
		State:         "CA",
		PropertyID:    "MLS-42",
		BudgetMax:     float(450000),
		Timeframe:     "30d",
		WantsTour:     true,
		Tags:          []string{"buyer", "tour"},
		UTMSource:     "google",
		UTMMedium:     "cpc",
		Message:       "Is this <still> available?",
		TimeOnPageMS:  float(42000),
		Score:         80,
		AssignedAgent: &domain.AssignedAgent{Name: "Avery", Email: "avery@example.com"},
	}
}

func TestLeadSubject(t *testing.T) {
	cases := []struct {
		name string
		lead domain.Lead
		want string
	}{
		{"full", sampleLead(), "[New Lead • Carlsbad] Jane Doe — prop:MLS-42"},
		{"split name", domain.Lead{FirstName: "Sam", LastName: "Lee", City: " Vista "}, "[New Lead • Vista] Sam Lee"},
		{"empty", domain.Lead{}, "[New Lead • Unknown] New Lead"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LeadSubject(tc.lead); got != tc.want {
				t.Fatalf("LeadSubject() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRenderLeadText(t *testing.T) {
	text := RenderLeadText(sampleLead())

	for _, line := range []string{
		"New lead from Crown Coastal Homes:",
		"Name: Jane Doe",
		"City/State/County: Carlsbad / CA / -",
		"Budget Max: 450000",
		"Wants Tour: Yes",
		"Score: 80  Assigned: Avery",
		"Tags: buyer, tour",
		"Source: google / cpc / -",
		"Referrer: -",
		"Anti-bot: ms_on_page=42000 honeypot=",
	} {
		if !strings.Contains(text, line+"\n") && !strings.HasSuffix(text, line) {
			t.Fatalf("expected line %q in:\n%s", line, text)
		}
	}
}

func TestRenderLeadTextDefaults(t *testing.T) {
	text := RenderLeadText(domain.Lead{})
	for _, line := range []string{"Email: N/A", "Phone: N/A", "Budget Max: -", "Assigned: Unassigned", "Tags: -", "ms_on_page=0"} {
		if !strings.Contains(text, line) {
			t.Fatalf("expected %q in:\n%s", line, text)
		}
	}
}

func TestRenderLeadHTMLEscapes(t *testing.T) {
	html, err := RenderLeadHTML(sampleLead())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(html, `<div style="font-family: Arial, sans-serif; white-space: pre-wrap">`) {
		t.Fatalf("unexpected wrapper: %s", html)
	}
	if strings.Contains(html, "<still>") || !strings.Contains(html, "&lt;still&gt;") {
		t.Fatalf("expected message to be escaped: %s", html)
	}
	if !strings.Contains(html, "Crown Coastal Homes:<br/><br/>Name: Jane Doe") {
		t.Fatalf("expected newlines as <br/>: %s", html)
	}
}

func TestBuildMessageCopiesAgent(t *testing.T) {
	s := NewSMTPSender(&config.Config{EmailUser: "bot@example.com", EmailFromName: "Crown Coastal Homes"})
	msg, err := s.buildMessage(outgoing{to: "leads@example.com", cc: []string{"avery@example.com"}, subject: "s", text: "t"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	cc := msg.GetCcString()
	if len(cc) != 1 || !strings.Contains(cc[0], "avery@example.com") {
		t.Fatalf("expected agent cc, got %v", cc)
	}
	from := msg.GetFromString()
	if len(from) != 1 || !strings.Contains(from[0], "bot@example.com") {
		t.Fatalf("expected EMAIL_USER as from fallback, got %v", from)
	}
}

func TestSendRequiresSettings(t *testing.T) {
	s := NewSMTPSender(&config.Config{EmailEnabled: true})
	err := s.SendLeadNotification(context.Background(), "leads@example.com", sampleLead())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestNewSenderDisabled(t *testing.T) {
	if _, ok := NewSender(&config.Config{EmailEnabled: false}).(NoopSender); !ok {
		t.Fatal("expected NoopSender when email is disabled")
	}
	if _, ok := NewSender(&config.Config{EmailEnabled: true}).(*SMTPSender); !ok {
		t.Fatal("expected SMTPSender when email is enabled")
	}
}
