package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fetchgate/internal/enginetest"
	"fetchgate/pkg/config"
	"fetchgate/pkg/engine"
	"fetchgate/pkg/journal"
	"fetchgate/pkg/journal/storage"
	"fetchgate/pkg/providers"
	"fetchgate/pkg/telemetry/metrics"
)

func testServer(t *testing.T, mocks ...*enginetest.MockProvider) (*Server, *engine.Engine) {
	t.Helper()

	collector := metrics.NewCollector()
	e, err := engine.New(&engine.Config{
		Sleep:   func(ctx context.Context, d time.Duration) error { return ctx.Err() },
		Metrics: collector,
	})
	if err != nil {
		t.Fatalf("engine.New() error = %v", err)
	}
	t.Cleanup(func() { e.Close() })
	for _, m := range mocks {
		if err := e.Register(m); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	cfg := config.DefaultConfig()
	srv := New(&cfg.Server, Deps{
		Engine:  e,
		Metrics: collector,
	})
	return srv, e
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func get(handler http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleScrapeSuccess(t *testing.T) {
	srv, _ := testServer(t, enginetest.NewMockProvider("mock", providers.Capabilities{}))
	handler := srv.Handler()

	rec := postJSON(t, handler, "/v1/scrape", map[string]any{"url": "https://example.com/page"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp scrapeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Provider != "mock" {
		t.Errorf("Provider = %s, want mock", resp.Provider)
	}
	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if resp.RequestID == "" {
		t.Error("missing request_id")
	}
	if resp.ContentLength != len(resp.Content) {
		t.Errorf("ContentLength = %d, len(Content) = %d", resp.ContentLength, len(resp.Content))
	}

	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("missing X-Request-ID response header")
	}
}

func TestHandleScrapeErrorMapping(t *testing.T) {
	failing := enginetest.NewMockProvider("down", providers.Capabilities{})
	failing.FailAlways("unreachable")
	srv, _ := testServer(t, failing)
	handler := srv.Handler()

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantType   string
	}{
		{
			"missing url",
			map[string]any{},
			http.StatusBadRequest, "invalid_request",
		},
		{
			"bad scheme",
			map[string]any{"url": "ftp://example.com"},
			http.StatusBadRequest, "invalid_request",
		},
		{
			"unknown strategy",
			map[string]any{"url": "https://example.com", "strategy": "bogus"},
			http.StatusBadRequest, "invalid_request",
		},
		{
			"capability mismatch",
			map[string]any{"url": "https://example.com", "require_javascript": true},
			http.StatusServiceUnavailable, "no_suitable_providers",
		},
		{
			"all providers failed",
			map[string]any{"url": "https://example.com", "max_retries": 0},
			http.StatusBadGateway, "all_providers_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, handler, "/v1/scrape", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.Error.Type != tt.wantType {
				t.Errorf("error type = %s, want %s", resp.Error.Type, tt.wantType)
			}
		})
	}
}

func TestHandleProviders(t *testing.T) {
	healthy := enginetest.NewMockProvider("alpha", providers.Capabilities{JavaScript: true})
	srv, _ := testServer(t, healthy)

	rec := get(srv.Handler(), "/v1/providers")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var list []providerStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("providers = %d, want 1", len(list))
	}
	if list[0].Name != "alpha" || !list[0].Capabilities.JavaScript {
		t.Errorf("entry = %+v", list[0])
	}
	if !list[0].Healthy {
		t.Error("provider not reported healthy")
	}
}

func TestHandleProviderTest(t *testing.T) {
	srv, _ := testServer(t,
		enginetest.NewMockProvider("one", providers.Capabilities{}),
		enginetest.NewMockProvider("two", providers.Capabilities{}),
	)
	handler := srv.Handler()

	rec := postJSON(t, handler, "/v1/providers/two/test", map[string]any{"url": "https://example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp scrapeResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Provider != "two" {
		t.Errorf("Provider = %s, want two", resp.Provider)
	}

	rec = postJSON(t, handler, "/v1/providers/nope/test", map[string]any{"url": "https://example.com"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown provider status = %d, want 404", rec.Code)
	}
}

func TestHandleStats(t *testing.T) {
	srv, e := testServer(t, enginetest.NewMockProvider("mock", providers.Capabilities{}))
	if _, err := e.Scrape(context.Background(), "https://example.com", nil); err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}

	rec := get(srv.Handler(), "/v1/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var stats engine.StatsSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if stats.Scrapes != 1 || stats.Successes != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestHandleHealthz(t *testing.T) {
	srv, _ := testServer(t)
	rec := get(srv.Handler(), "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestHandleJournal(t *testing.T) {
	store := storage.NewMemoryStorage()
	t.Cleanup(func() { store.Close() })

	now := time.Now().UTC()
	for i, provider := range []string{"relay", "browser"} {
		err := store.Store(context.Background(), &journal.Record{
			ID:         string(rune('a' + i)),
			RequestID:  "req",
			URL:        "https://example.com",
			Provider:   provider,
			Strategy:   "cost-optimized",
			Success:    true,
			StartedAt:  now.Add(time.Duration(i) * time.Second),
			RecordedAt: now,
		})
		if err != nil {
			t.Fatalf("Store() error = %v", err)
		}
	}

	srv, _ := testServer(t)
	srv.deps.Journal = store
	handler := srv.Handler()

	rec := get(handler, "/v1/journal?provider=relay")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var records []*journal.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(records) != 1 || records[0].Provider != "relay" {
		t.Errorf("records = %+v", records)
	}

	rec = get(handler, "/v1/journal?since=not-a-time")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad since status = %d, want 400", rec.Code)
	}
}

func TestHandleJournalDisabled(t *testing.T) {
	srv, _ := testServer(t)
	rec := get(srv.Handler(), "/v1/journal")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, e := testServer(t, enginetest.NewMockProvider("mock", providers.Capabilities{}))
	if _, err := e.Scrape(context.Background(), "https://example.com", nil); err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}

	rec := get(srv.Handler(), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "fetchgate_") {
		t.Error("exposition does not contain fetchgate metrics")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	handler := RecoveryMiddleware(panicky)

	rec := get(handler, "/anything")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Error("panic detail leaked to the client")
	}
}

func TestRequestIDMiddlewarePreservesClientID(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(RequestIDHeader)
	})
	handler := RequestIDMiddleware(inner)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-supplied")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "client-supplied" {
		t.Errorf("request ID = %q, want client-supplied", seen)
	}
}

func TestStartAndShutdown(t *testing.T) {
	srv, _ := testServer(t)
	srv.config.ListenAddress = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	time.Sleep(100 * time.Millisecond)
	if !srv.IsRunning() {
		t.Error("server not running after Start")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	if srv.IsRunning() {
		t.Error("server still running after shutdown")
	}
}
