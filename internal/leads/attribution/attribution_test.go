package attribution

import (
	"net/url"
	"testing"

	"lead_pipeline_backend/internal/leads/domain"
)

func TestApplyNeverOverwritesExplicitUTM(t *testing.T) {
	lead := Apply(domain.Lead{UTMSource: "google", Source: "facebook", Medium: "cpc"})

	if lead.UTMSource != "google" {
		t.Fatalf("explicit utm_source overwritten: %q", lead.UTMSource)
	}
	if lead.UTMMedium != "cpc" {
		t.Fatalf("expected legacy medium alias to fill utm_medium, got %q", lead.UTMMedium)
	}
	if lead.Source != "google" {
		t.Fatalf("expected source derived from utm_source, got %q", lead.Source)
	}
	if lead.UTMCampaign != "" {
		t.Fatalf("expected unset campaign, got %q", lead.UTMCampaign)
	}
}

func TestApplyDefaultsSource(t *testing.T) {
	lead := Apply(domain.Lead{})
	if lead.Source != domain.DefaultSource {
		t.Fatalf("expected default source, got %q", lead.Source)
	}
}

func TestMergeRequestPrecedence(t *testing.T) {
	lead := domain.Lead{UTMSource: "payload"}
	fb := RequestFallbacks{
		Query:     url.Values{"utm_source": {"query"}, "utm_medium": {"query-medium"}},
		Cookies:   map[string]string{"utm_medium": "cookie-medium", "utm_campaign": "cookie-campaign", "gclid": "g-1"},
		Referer:   "https://www.google.com/",
		UserAgent: "Mozilla/5.0",
		IP:        "203.0.113.9",
	}

	got := MergeRequest(lead, fb)

	if got.UTMSource != "payload" {
		t.Errorf("payload should win, got %q", got.UTMSource)
	}
	if got.UTMMedium != "query-medium" {
		t.Errorf("query should beat cookie, got %q", got.UTMMedium)
	}
	if got.UTMCampaign != "cookie-campaign" {
		t.Errorf("cookie should fill gap, got %q", got.UTMCampaign)
	}
	if got.Gclid != "g-1" {
		t.Errorf("expected gclid from cookie, got %q", got.Gclid)
	}
	if got.Referrer != "https://www.google.com/" || got.PageURL != "https://www.google.com/" {
		t.Errorf("expected referer to fill referrer and pageUrl, got %q / %q", got.Referrer, got.PageURL)
	}
	if got.UserAgent != "Mozilla/5.0" || got.IP != "203.0.113.9" {
		t.Errorf("expected request metadata recorded, got %q / %q", got.UserAgent, got.IP)
	}
}

func TestMergeRequestIgnoresRelativeReferer(t *testing.T) {
	got := MergeRequest(domain.Lead{}, RequestFallbacks{Referer: "/homes"})
	if got.PageURL != "" {
		t.Fatalf("relative referer must not become pageUrl, got %q", got.PageURL)
	}
}
