package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordScrape(t *testing.T) {
	c := NewCollector()

	c.RecordScrape("relay", "cost-optimized", OutcomeSuccess, 200*time.Millisecond, 0)
	c.RecordScrape("scrapeapi", "cost-optimized", OutcomeSuccess, time.Second, 0.01)
	c.RecordScrape("relay", "cost-optimized", OutcomeFailure, 0, 0)

	if got := testutil.ToFloat64(c.scrapes.WithLabelValues("relay", "cost-optimized", OutcomeSuccess)); got != 1 {
		t.Errorf("relay success scrapes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.scrapes.WithLabelValues("relay", "cost-optimized", OutcomeFailure)); got != 1 {
		t.Errorf("relay failure scrapes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.requestCost.WithLabelValues("scrapeapi")); got != 0.01 {
		t.Errorf("scrapeapi cost = %v, want 0.01", got)
	}
	// Failures never feed cost or duration.
	if got := testutil.ToFloat64(c.requestCost.WithLabelValues("relay")); got != 0 {
		t.Errorf("relay cost = %v, want 0", got)
	}
}

func TestRecordAttemptAndFallback(t *testing.T) {
	c := NewCollector()

	c.RecordAttempt("relay", OutcomeFailure)
	c.RecordAttempt("relay", OutcomeFailure)
	c.RecordAttempt("browser", OutcomeSuccess)
	c.RecordFallback()

	if got := testutil.ToFloat64(c.attempts.WithLabelValues("relay", OutcomeFailure)); got != 2 {
		t.Errorf("relay failed attempts = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.fallbacks); got != 1 {
		t.Errorf("fallbacks = %v, want 1", got)
	}
}

func TestProviderGauges(t *testing.T) {
	c := NewCollector()

	c.SetProvidersRegistered(3)
	c.SetProviderHealthy("relay", true)
	c.SetProviderHealthy("browser", false)

	if got := testutil.ToFloat64(c.registered); got != 3 {
		t.Errorf("providers_registered = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.providerHealth.WithLabelValues("relay")); got != 1 {
		t.Errorf("relay health gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.providerHealth.WithLabelValues("browser")); got != 0 {
		t.Errorf("browser health gauge = %v, want 0", got)
	}
}

func TestNilCollectorIsNoOp(t *testing.T) {
	var c *Collector

	// None of these may panic.
	c.RecordScrape("relay", "cost-optimized", OutcomeSuccess, time.Second, 0.01)
	c.RecordAttempt("relay", OutcomeFailure)
	c.RecordFallback()
	c.SetProviderHealthy("relay", true)
	c.SetProvidersRegistered(1)
	c.ForgetProvider("relay")

	if c.Registry() != nil {
		t.Error("nil collector Registry() != nil")
	}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Errorf("nil collector handler status = %d, want 200", rec.Code)
	}
}

func TestHandlerExposition(t *testing.T) {
	c := NewCollector()
	c.RecordScrape("relay", "speed-optimized", OutcomeSuccess, 100*time.Millisecond, 0)
	c.SetProvidersRegistered(1)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "fetchgate_scrapes_total") {
		t.Error("exposition missing fetchgate_scrapes_total")
	}
	if !strings.Contains(body, "fetchgate_providers_registered 1") {
		t.Error("exposition missing providers_registered gauge")
	}
}

func TestForgetProvider(t *testing.T) {
	c := NewCollector()
	c.RecordAttempt("relay", OutcomeSuccess)
	c.SetProviderHealthy("relay", true)

	c.ForgetProvider("relay")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if strings.Contains(rec.Body.String(), `provider="relay"`) {
		t.Error("relay series still exported after ForgetProvider")
	}
}
