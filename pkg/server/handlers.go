package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"fetchgate/pkg/engine"
	"fetchgate/pkg/journal"
	"fetchgate/pkg/providers"
	"fetchgate/pkg/strategy"
)

// scrapeRequest is the POST /v1/scrape body.
type scrapeRequest struct {
	URL       string `json:"url"`
	Strategy  string `json:"strategy,omitempty"`
	TimeoutMS int64  `json:"timeout_ms,omitempty"`

	// MaxRetries overrides the engine default. Explicit 0 means no
	// retries; absent means the default, hence the pointer.
	MaxRetries *int `json:"max_retries,omitempty"`

	MaxCostPerRequest float64           `json:"max_cost_per_request,omitempty"`
	RequireJavaScript bool              `json:"require_javascript,omitempty"`
	RequireAntiBot    bool              `json:"require_anti_bot,omitempty"`
	UserAgent         string            `json:"user_agent,omitempty"`
	Headers           map[string]string `json:"headers,omitempty"`
	WaitSelector      string            `json:"wait_selector,omitempty"`
}

func (r *scrapeRequest) options() *providers.Options {
	opts := &providers.Options{
		Strategy:          r.Strategy,
		Timeout:           time.Duration(r.TimeoutMS) * time.Millisecond,
		MaxRetries:        -1,
		MaxCostPerRequest: r.MaxCostPerRequest,
		Require: providers.Requirements{
			JavaScript: r.RequireJavaScript,
			AntiBot:    r.RequireAntiBot,
		},
		UserAgent:    r.UserAgent,
		Headers:      r.Headers,
		WaitSelector: r.WaitSelector,
	}
	if r.MaxRetries != nil {
		opts.MaxRetries = *r.MaxRetries
	}
	return opts
}

// scrapeResponse is the POST /v1/scrape success body.
type scrapeResponse struct {
	RequestID      string  `json:"request_id"`
	Provider       string  `json:"provider"`
	StatusCode     int     `json:"status_code"`
	Content        string  `json:"content"`
	ContentLength  int     `json:"content_length"`
	Cost           float64 `json:"cost"`
	ResponseTimeMS int64   `json:"response_time_ms"`
	FinalURL       string  `json:"final_url,omitempty"`
	RedirectCount  int     `json:"redirect_count,omitempty"`
}

// errorResponse is the envelope for every non-2xx body.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body is not valid JSON: "+err.Error())
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "url is required")
		return
	}

	result, err := s.deps.Engine.Scrape(r.Context(), req.URL, req.options())
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toScrapeResponse(result))
}

func toScrapeResponse(result *providers.Result) scrapeResponse {
	return scrapeResponse{
		RequestID:      result.Metadata.RequestID,
		Provider:       result.Provider,
		StatusCode:     result.StatusCode,
		Content:        result.Content,
		ContentLength:  len(result.Content),
		Cost:           result.Cost,
		ResponseTimeMS: result.ResponseTime.Milliseconds(),
		FinalURL:       result.Metadata.FinalURL,
		RedirectCount:  result.Metadata.RedirectCount,
	}
}

// providerStatus is one entry of the GET /v1/providers response.
type providerStatus struct {
	Name         string                    `json:"name"`
	Capabilities providers.Capabilities    `json:"capabilities"`
	Healthy      bool                      `json:"healthy"`
	HealthMsg    string                    `json:"health_message,omitempty"`
	LastCheck    time.Time                 `json:"last_check"`
	Metrics      providers.MetricsSnapshot `json:"metrics"`
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	verdicts := s.deps.Engine.ProvidersHealth(r.Context())
	snapshots := s.deps.Engine.MetricsSnapshot()

	list := s.deps.Engine.Providers()
	out := make([]providerStatus, 0, len(list))
	for _, p := range list {
		status := providerStatus{
			Name:         p.Name(),
			Capabilities: p.Capabilities(),
			Metrics:      snapshots[p.Name()],
		}
		if v, ok := verdicts[p.Name()]; ok {
			status.Healthy = v.Healthy
			status.HealthMsg = v.Message
			status.LastCheck = v.LastCheck
		}
		out = append(out, status)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProviderTest(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body is not valid JSON: "+err.Error())
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "url is required")
		return
	}

	result, err := s.deps.Engine.TestProvider(r.Context(), name, req.URL, req.options())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toScrapeResponse(result))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Engine.Stats())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.deps.Journal == nil {
		writeError(w, http.StatusNotFound, "not_found", "journal is not enabled")
		return
	}

	query, err := journalQueryFromURL(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	records, err := s.deps.Journal.Query(r.Context(), &query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	if records == nil {
		records = []*journal.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func journalQueryFromURL(r *http.Request) (journal.Query, error) {
	q := journal.Query{Limit: 100}
	values := r.URL.Query()

	if v := values.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return q, errors.New("since must be RFC 3339")
		}
		q.Since = &t
	}
	if v := values.Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return q, errors.New("until must be RFC 3339")
		}
		q.Until = &t
	}
	q.Provider = values.Get("provider")
	q.Strategy = values.Get("strategy")
	if v := values.Get("success"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return q, errors.New("success must be a boolean")
		}
		q.Success = &b
	}
	if v := values.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return q, errors.New("limit must be a non-negative integer")
		}
		q.Limit = n
	}
	if v := values.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return q, errors.New("offset must be a non-negative integer")
		}
		q.Offset = n
	}
	return q, nil
}

// writeEngineError maps engine error categories onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	var ise *strategy.InvalidStrategyError
	switch {
	case errors.Is(err, engine.ErrInvalidInput) || errors.As(err, &ise):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, engine.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, engine.ErrNoSuitableProviders):
		writeError(w, http.StatusServiceUnavailable, "no_suitable_providers", err.Error())
	case errors.Is(err, engine.ErrAllProvidersFailed):
		writeError(w, http.StatusBadGateway, "all_providers_failed", err.Error())
	case errors.Is(err, engine.ErrEngineClosed):
		writeError(w, http.StatusServiceUnavailable, "shutting_down", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, errorResponse{Error: errorDetail{Type: errType, Message: message}})
}
