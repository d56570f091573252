package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/platform/config"
	"lead_pipeline_backend/platform/logger"
)

const (
	loftyTestModeID = "test-mode"
	bodyPreviewMax  = 400
)

// HTTPError is a non-2xx response from the CRM.
type HTTPError struct {
	Status     int
	StatusText string
	Body       string
}

func (e *HTTPError) Error() string {
	body := e.Body
	if body == "" {
		body = "no body"
	}
	if e.IsAuth() {
		return fmt.Sprintf("lofty push failed: %d auth error, check LOFTY_API_KEY value and permissions: %s", e.Status, body)
	}
	return fmt.Sprintf("lofty push failed: %d %s: %s", e.Status, e.StatusText, body)
}

// IsAuth reports whether the CRM rejected the credentials.
func (e *HTTPError) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// LoftyProvider pushes leads to the Lofty REST API.
type LoftyProvider struct {
	baseURL    string
	leadsPath  string
	apiKey     string
	authHeader string
	authScheme string
	testMode   bool
	client     *http.Client
	log        *logger.Logger
}

// NewLoftyProvider creates a Lofty client with its own request timeout.
func NewLoftyProvider(cfg config.CRMConfig, log *logger.Logger) *LoftyProvider {
	return &LoftyProvider{
		baseURL:    cfg.GetLoftyAPIBase(),
		leadsPath:  cfg.GetLoftyLeadsPath(),
		apiKey:     cfg.GetLoftyAPIKey(),
		authHeader: cfg.GetLoftyAuthHeader(),
		authScheme: cfg.GetLoftyAuthScheme(),
		testMode:   cfg.GetLoftyTestMode(),
		client:     &http.Client{Timeout: cfg.GetCRMTimeout()},
		log:        log,
	}
}

func (p *LoftyProvider) Name() string { return string(ProviderLofty) }

// URL returns the leads endpoint.
func (p *LoftyProvider) URL() string {
	path := p.leadsPath
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(p.baseURL, "/") + path
}

// PushLead creates the lead in Lofty. In test mode no request is made.
func (p *LoftyProvider) PushLead(ctx context.Context, lead domain.Lead) (PushResult, error) {
	if p.apiKey == "" {
		return PushResult{}, ErrMissingAPIKey
	}

	if p.testMode {
		p.log.Info("lofty test mode, push suppressed", "url", p.URL(), "authHeader", p.authHeader, "authScheme", p.authScheme)
		return PushResult{ID: loftyTestModeID, Raw: json.RawMessage(`{"test":true}`)}, nil
	}

	body, err := json.Marshal(toLoftyLead(lead))
	if err != nil {
		return PushResult{}, fmt.Errorf("encode lofty lead: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL(), bytes.NewReader(body))
	if err != nil {
		return PushResult{}, err
	}
	p.setHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return PushResult{}, fmt.Errorf("lofty push: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &HTTPError{Status: resp.StatusCode, StatusText: http.StatusText(resp.StatusCode), Body: preview(raw)}
		p.log.Warn("lofty push non-ok response",
			"status", resp.StatusCode,
			"url", p.URL(),
			"authHeader", p.authHeader,
			"authScheme", p.authScheme,
			"keyPreview", redactKey(p.apiKey),
			"bodyPreview", httpErr.Body,
		)
		return PushResult{}, httpErr
	}

	return PushResult{ID: extractLeadID(raw), Raw: json.RawMessage(raw)}, nil
}

// DiagnosticResult reports whether the configured credentials are accepted.
type DiagnosticResult struct {
	OK       bool
	TestMode bool
	Auth     *bool
	Status   int
	Body     string
}

// CheckCredentials issues an authenticated GET against the leads endpoint
// without creating a lead.
func (p *LoftyProvider) CheckCredentials(ctx context.Context) (DiagnosticResult, error) {
	if p.apiKey == "" {
		return DiagnosticResult{}, ErrMissingAPIKey
	}
	if p.testMode {
		return DiagnosticResult{OK: true, TestMode: true}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL(), nil)
	if err != nil {
		return DiagnosticResult{}, err
	}
	p.setHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return DiagnosticResult{}, fmt.Errorf("lofty diagnostic: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		authOK := false
		return DiagnosticResult{OK: false, Auth: &authOK, Status: resp.StatusCode, Body: truncate(string(raw), 300)}, nil
	}
	return DiagnosticResult{OK: true, Status: resp.StatusCode}, nil
}

func (p *LoftyProvider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", p.apiKey)
	if p.authHeader != "" {
		value := p.apiKey
		if p.authScheme != "" {
			value = p.authScheme + " " + p.apiKey
		}
		req.Header.Set(p.authHeader, value)
	}
}

func extractLeadID(raw []byte) string {
	var body struct {
		ID   any `json:"id"`
		Lead struct {
			ID any `json:"id"`
		} `json:"lead"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "unknown"
	}
	for _, candidate := range []any{body.ID, body.Lead.ID} {
		if candidate == nil {
			continue
		}
		switch v := candidate.(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		default:
			return fmt.Sprint(v)
		}
	}
	return "unknown"
}

func preview(raw []byte) string {
	return truncate(strings.TrimSpace(string(raw)), bodyPreviewMax)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func redactKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
