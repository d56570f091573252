package crm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/platform/config"
	"lead_pipeline_backend/platform/logger"
)

func loftyConfig(base string) *config.Config {
	return &config.Config{
		CRMProvider:     "lofty",
		LoftyAPIBase:    base,
		LoftyAPIKey:     "secret-key-1234",
		LoftyAuthHeader: "Authorization",
		LoftyAuthScheme: "Bearer",
		LoftyLeadsPath:  "leads",
		CRMTimeout:      2 * time.Second,
	}
}

func newTestProvider(t *testing.T, cfg *config.Config) *LoftyProvider {
	t.Helper()
	p := NewLoftyProvider(cfg, logger.Discard())
	t.Cleanup(p.client.CloseIdleConnections)
	return p
}

func TestLoftyPushLeadSendsMappedBody(t *testing.T) {
	var (
		gotAuth, gotAPIKey, gotPath string
		gotBody                     map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAPIKey = r.Header.Get("X-API-Key")
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"lead":{"id":98765}}`))
	}))
	defer srv.Close()

	p := newTestProvider(t, loftyConfig(srv.URL+"/v1/"))
	budget := 450000.0
	res, err := p.PushLead(context.Background(), domain.Lead{
		FullName:  "Jane Q Doe",
		Email:     "jane@example.com",
		UTMSource: "google",
		Source:    "google",
		BudgetMax: &budget,
		Score:     80,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.ID != "98765" {
		t.Fatalf("expected nested lead id, got %q", res.ID)
	}
	if gotPath != "/v1/leads" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer secret-key-1234" || gotAPIKey != "secret-key-1234" {
		t.Fatalf("unexpected auth headers %q / %q", gotAuth, gotAPIKey)
	}
	if gotBody["first_name"] != "Jane" || gotBody["last_name"] != "Q Doe" {
		t.Fatalf("expected name split from fullName, got %v %v", gotBody["first_name"], gotBody["last_name"])
	}
	if gotBody["budget_max"] != 450000.0 || gotBody["utm_source"] != "google" || gotBody["score"] != 80.0 {
		t.Fatalf("unexpected mapped body %v", gotBody)
	}
	if _, ok := gotBody["utm_medium"]; !ok || gotBody["utm_medium"] != nil {
		t.Fatalf("expected utm_medium to be sent as null, got %v", gotBody["utm_medium"])
	}
}

func TestLoftyRawKeyWhenSchemeEmpty(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Custom-Auth")
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	}))
	defer srv.Close()

	cfg := loftyConfig(srv.URL)
	cfg.LoftyAuthHeader = "X-Custom-Auth"
	cfg.LoftyAuthScheme = ""
	p := newTestProvider(t, cfg)

	res, err := p.PushLead(context.Background(), domain.Lead{Email: "a@b.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotHeader != "secret-key-1234" || res.ID != "abc" {
		t.Fatalf("expected raw key header and id abc, got %q / %q", gotHeader, res.ID)
	}
}

func TestLoftyNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"bad token"}`))
	}))
	defer srv.Close()

	p := newTestProvider(t, loftyConfig(srv.URL))
	_, err := p.PushLead(context.Background(), domain.Lead{})

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if !httpErr.IsAuth() || !strings.Contains(err.Error(), "auth error") || !strings.Contains(err.Error(), "bad token") {
		t.Fatalf("unexpected error message %q", err.Error())
	}
}

func TestLoftyTimeoutIsError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	cfg := loftyConfig(srv.URL)
	cfg.CRMTimeout = 50 * time.Millisecond
	p := newTestProvider(t, cfg)

	if _, err := p.PushLead(context.Background(), domain.Lead{}); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestLoftyMissingKeyAndTestMode(t *testing.T) {
	cfg := loftyConfig("http://127.0.0.1:1")
	cfg.LoftyAPIKey = ""
	if _, err := newTestProvider(t, cfg).PushLead(context.Background(), domain.Lead{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}

	cfg = loftyConfig("http://127.0.0.1:1")
	cfg.LoftyTestMode = true
	res, err := newTestProvider(t, cfg).PushLead(context.Background(), domain.Lead{})
	if err != nil || res.ID != "test-mode" {
		t.Fatalf("expected test-mode id without network, got %q, %v", res.ID, err)
	}
}

func TestLoftyCheckCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("forbidden"))
	}))
	defer srv.Close()

	res, err := newTestProvider(t, loftyConfig(srv.URL)).CheckCredentials(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OK || res.Auth == nil || *res.Auth || res.Status != http.StatusForbidden || res.Body != "forbidden" {
		t.Fatalf("unexpected diagnostic %+v", res)
	}
}

func TestNewProviderSelectsFromClosedSet(t *testing.T) {
	p, err := NewProvider(&config.Config{CRMProvider: "lofty"}, logger.Discard())
	if err != nil || p.Name() != "lofty" || !Enabled(p) {
		t.Fatalf("expected lofty provider, got %v, %v", p, err)
	}

	p, err = NewProvider(&config.Config{CRMProvider: "none"}, logger.Discard())
	if err != nil || Enabled(p) {
		t.Fatalf("expected disabled provider, got %v, %v", p, err)
	}

	if _, err := NewProvider(&config.Config{CRMProvider: "salesforce"}, logger.Discard()); !errors.Is(err, ErrUnsupportedTarget) {
		t.Fatalf("expected ErrUnsupportedTarget, got %v", err)
	}
}
