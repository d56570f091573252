// Package attribution normalizes marketing attribution fields on a lead.
package attribution

import (
	"net/url"
	"strings"

	"lead_pipeline_backend/internal/leads/domain"
)

// Apply fills utm_* from the legacy aliases when the explicit field is
// empty and derives Source. Explicit UTM values are never overwritten.
func Apply(lead domain.Lead) domain.Lead {
	lead.UTMSource = firstNonEmpty(lead.UTMSource, lead.Source)
	lead.UTMMedium = firstNonEmpty(lead.UTMMedium, lead.Medium)
	lead.UTMCampaign = firstNonEmpty(lead.UTMCampaign, lead.Campaign)
	lead.UTMTerm = firstNonEmpty(lead.UTMTerm, lead.Term)
	lead.UTMContent = firstNonEmpty(lead.UTMContent, lead.Content)
	lead.Source = firstNonEmpty(lead.UTMSource, domain.DefaultSource)
	return lead
}

// RequestFallbacks carries request-level attribution collected by the HTTP layer.
type RequestFallbacks struct {
	Query     url.Values
	Cookies   map[string]string
	Referer   string
	UserAgent string
	IP        string
}

// MergeRequest fills attribution gaps from the request. Payload values win,
// then query parameters, then cookies.
func MergeRequest(lead domain.Lead, fb RequestFallbacks) domain.Lead {
	lookup := func(key string) string {
		if v := strings.TrimSpace(fb.Query.Get(key)); v != "" {
			return v
		}
		return strings.TrimSpace(fb.Cookies[key])
	}

	lead.UTMSource = firstNonEmpty(lead.UTMSource, lookup("utm_source"))
	lead.UTMMedium = firstNonEmpty(lead.UTMMedium, lookup("utm_medium"))
	lead.UTMCampaign = firstNonEmpty(lead.UTMCampaign, lookup("utm_campaign"))
	lead.UTMTerm = firstNonEmpty(lead.UTMTerm, lookup("utm_term"))
	lead.UTMContent = firstNonEmpty(lead.UTMContent, lookup("utm_content"))
	lead.Gclid = firstNonEmpty(lead.Gclid, lookup("gclid"))
	lead.Fbclid = firstNonEmpty(lead.Fbclid, lookup("fbclid"))

	referer := strings.TrimSpace(fb.Referer)
	lead.Referrer = firstNonEmpty(lead.Referrer, referer)
	if lead.PageURL == "" && isAbsoluteURL(referer) {
		lead.PageURL = referer
	}

	lead.UserAgent = firstNonEmpty(lead.UserAgent, strings.TrimSpace(fb.UserAgent))
	lead.IP = firstNonEmpty(lead.IP, strings.TrimSpace(fb.IP))
	return lead
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
