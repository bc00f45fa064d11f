package relay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fetchgate/internal/enginetest"
	"fetchgate/pkg/providers"
)

func testRequest(url string) *providers.Request {
	return &providers.Request{
		ID:  "test-request",
		URL: url,
		Options: providers.Options{
			Timeout:   5 * time.Second,
			UserAgent: "fetchgate-test/1.0",
		},
	}
}

func TestFetchSuccess(t *testing.T) {
	var gotUA, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotHeader = r.Header.Get("X-Custom")
		w.Write([]byte(enginetest.DefaultContent))
	}))
	defer srv.Close()

	p, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Close()

	req := testRequest(srv.URL)
	req.Options.Headers = map[string]string{"X-Custom": "yes"}

	res, err := p.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", res.StatusCode)
	}
	if !strings.Contains(res.Content, "fixture") {
		t.Errorf("Content does not contain the served body")
	}
	if res.Provider != DefaultName {
		t.Errorf("Provider = %s, want %s", res.Provider, DefaultName)
	}
	if res.Cost != 0 {
		t.Errorf("Cost = %v, want 0", res.Cost)
	}
	if gotUA != "fetchgate-test/1.0" {
		t.Errorf("User-Agent = %s", gotUA)
	}
	if gotHeader != "yes" {
		t.Errorf("custom header not forwarded, got %q", gotHeader)
	}
}

func TestFetchNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	p, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Close()

	_, err = p.Fetch(context.Background(), testRequest(srv.URL))
	var fe *providers.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if fe.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", fe.StatusCode)
	}

	m := p.Metrics()
	if m.FailureCount != 1 || m.RequestCount != 1 {
		t.Errorf("metrics = %+v, want one failed request", m)
	}
}

func TestFetchTooShortBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tiny"))
	}))
	defer srv.Close()

	p, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Close()

	_, err = p.Fetch(context.Background(), testRequest(srv.URL))
	var ce *providers.ContentError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *ContentError", err)
	}
}

func TestFetchFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(enginetest.DefaultContent))
	})

	p, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Close()

	res, err := p.Fetch(context.Background(), testRequest(srv.URL+"/start"))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !strings.HasSuffix(res.Metadata.FinalURL, "/final") {
		t.Errorf("FinalURL = %s, want .../final", res.Metadata.FinalURL)
	}
	if res.Metadata.RedirectCount == 0 {
		t.Error("RedirectCount = 0 after a redirect")
	}
}

func TestFetchBodyCappedAtLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer srv.Close()

	p, err := New(Config{MaxBodyBytes: 1024})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Close()

	res, err := p.Fetch(context.Background(), testRequest(srv.URL))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(res.Content) != 1024 {
		t.Errorf("Content length = %d, want 1024", len(res.Content))
	}
}

func TestFetchContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	p, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = p.Fetch(ctx, testRequest(srv.URL))
	var te *providers.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want *TimeoutError", err)
	}
}

func TestCheckAvailability(t *testing.T) {
	t.Run("direct without probe URL", func(t *testing.T) {
		p, err := New(Config{})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer p.Close()
		if err := p.CheckAvailability(context.Background()); err != nil {
			t.Errorf("CheckAvailability() error = %v", err)
		}
	})

	t.Run("probe URL healthy", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		p, err := New(Config{ProbeURL: srv.URL})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer p.Close()
		if err := p.CheckAvailability(context.Background()); err != nil {
			t.Errorf("CheckAvailability() error = %v", err)
		}
	})

	t.Run("probe URL failing", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		p, err := New(Config{ProbeURL: srv.URL})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer p.Close()

		err = p.CheckAvailability(context.Background())
		var pe *providers.ProbeError
		if !errors.As(err, &pe) {
			t.Errorf("error = %v, want *ProbeError", err)
		}
	})

	t.Run("unreachable proxy", func(t *testing.T) {
		p, err := New(Config{ProxyAddrs: []string{"127.0.0.1:1"}})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer p.Close()

		if err := p.CheckAvailability(context.Background()); err == nil {
			t.Error("CheckAvailability() = nil for unreachable proxy")
		}
	})
}

func TestWaitSelectorValidated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(enginetest.DefaultContent))
	}))
	defer srv.Close()

	p, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Close()

	req := testRequest(srv.URL)
	req.Options.WaitSelector = "#does-not-exist"

	_, err = p.Fetch(context.Background(), req)
	var ce *providers.ContentError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *ContentError for missing selector", err)
	}
	if ce.Selector != "#does-not-exist" {
		t.Errorf("Selector = %q", ce.Selector)
	}
}
