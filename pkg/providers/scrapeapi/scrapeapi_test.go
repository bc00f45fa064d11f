package scrapeapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fetchgate/internal/enginetest"
	"fetchgate/pkg/providers"
)

// apiServer is a minimal double for the hosted scraping API.
type apiServer struct {
	*httptest.Server

	scrapeStatus  int
	scrapeBody    scrapeResponse
	accountStatus int
	accountBody   accountResponse

	lastAuth    string
	lastRequest scrapeRequest
}

func newAPIServer(t *testing.T) *apiServer {
	t.Helper()
	s := &apiServer{
		scrapeStatus: http.StatusOK,
		scrapeBody: scrapeResponse{
			Content:     enginetest.DefaultContent,
			StatusCode:  200,
			ResolvedURL: "https://example.com/page",
			CreditsUsed: 1,
		},
		accountStatus: http.StatusOK,
		accountBody:   accountResponse{Active: true, CreditsRemaining: 1000},
	}
	mux := http.NewServeMux()
	mux.HandleFunc(scrapePath, func(w http.ResponseWriter, r *http.Request) {
		s.lastAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&s.lastRequest)
		w.WriteHeader(s.scrapeStatus)
		json.NewEncoder(w).Encode(s.scrapeBody)
	})
	mux.HandleFunc(accountPath, func(w http.ResponseWriter, r *http.Request) {
		s.lastAuth = r.Header.Get("Authorization")
		w.WriteHeader(s.accountStatus)
		json.NewEncoder(w).Encode(s.accountBody)
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Server.Close)
	return s
}

func newProvider(t *testing.T, srv *apiServer) *Provider {
	t.Helper()
	p, err := New(Config{BaseURL: srv.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func testRequest() *providers.Request {
	return &providers.Request{
		ID:  "test-request",
		URL: "https://example.com/page",
		Options: providers.Options{
			Timeout:   5 * time.Second,
			UserAgent: "fetchgate-test/1.0",
		},
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(Config{APIKey: "k"}); err == nil {
		t.Error("New() accepted a config without base_url")
	}
	if _, err := New(Config{BaseURL: "https://api.example"}); err == nil {
		t.Error("New() accepted a config without api_key")
	}
}

func TestFetchSuccess(t *testing.T) {
	srv := newAPIServer(t)
	p := newProvider(t, srv)

	req := testRequest()
	req.Options.WaitSelector = "body"

	res, err := p.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", res.StatusCode)
	}
	if res.Cost != DefaultCostPerRequest {
		t.Errorf("Cost = %v, want %v", res.Cost, DefaultCostPerRequest)
	}
	if res.Metadata.Extra["credits_used"] != "1" {
		t.Errorf("credits_used = %q, want 1", res.Metadata.Extra["credits_used"])
	}

	if srv.lastAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", srv.lastAuth)
	}
	if !srv.lastRequest.Render {
		t.Error("request did not ask for rendering")
	}
	if srv.lastRequest.WaitSelector != "body" {
		t.Errorf("wait_for = %q, want body", srv.lastRequest.WaitSelector)
	}
	if srv.lastRequest.URL != req.URL {
		t.Errorf("url = %q, want %q", srv.lastRequest.URL, req.URL)
	}
}

func TestFetchAPIError(t *testing.T) {
	srv := newAPIServer(t)
	srv.scrapeStatus = http.StatusPaymentRequired
	srv.scrapeBody = scrapeResponse{Error: "insufficient credits"}
	p := newProvider(t, srv)

	_, err := p.Fetch(context.Background(), testRequest())
	var fe *providers.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if fe.StatusCode != http.StatusPaymentRequired {
		t.Errorf("StatusCode = %d, want 402", fe.StatusCode)
	}
	if fe.Message != "insufficient credits" {
		t.Errorf("Message = %q, want the api error text", fe.Message)
	}
}

func TestFetchTargetPageFailure(t *testing.T) {
	// The API call itself succeeds but the target page returned 503.
	srv := newAPIServer(t)
	srv.scrapeBody = scrapeResponse{Content: enginetest.DefaultContent, StatusCode: 503}
	p := newProvider(t, srv)

	_, err := p.Fetch(context.Background(), testRequest())
	var fe *providers.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if fe.StatusCode != 503 {
		t.Errorf("StatusCode = %d, want 503", fe.StatusCode)
	}
}

func TestFetchUnparseableResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	p, err := New(Config{BaseURL: srv.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Close()

	_, err = p.Fetch(context.Background(), testRequest())
	var fe *providers.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
}

func TestCheckAvailability(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		account accountResponse
		wantErr bool
	}{
		{"healthy", http.StatusOK, accountResponse{Active: true, CreditsRemaining: 10}, false},
		{"bad key", http.StatusUnauthorized, accountResponse{}, true},
		{"inactive account", http.StatusOK, accountResponse{Active: false, CreditsRemaining: 10}, true},
		{"no credits", http.StatusOK, accountResponse{Active: true, CreditsRemaining: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newAPIServer(t)
			srv.accountStatus = tt.status
			srv.accountBody = tt.account
			p := newProvider(t, srv)

			err := p.CheckAvailability(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckAvailability() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var pe *providers.ProbeError
				if !errors.As(err, &pe) {
					t.Errorf("error type = %T, want *ProbeError", err)
				}
			}
		})
	}
}

func TestCapabilities(t *testing.T) {
	srv := newAPIServer(t)
	p := newProvider(t, srv)

	caps := p.Capabilities()
	if !caps.JavaScript || !caps.AntiBot || !caps.Commercial {
		t.Errorf("Capabilities = %+v, want JS+AntiBot+Commercial", caps)
	}
	if caps.CostPerRequest != DefaultCostPerRequest {
		t.Errorf("CostPerRequest = %v, want %v", caps.CostPerRequest, DefaultCostPerRequest)
	}
}
