// Package scrapeapi implements the commercial provider: a hosted
// scraping API that renders JavaScript and negotiates anti-bot
// protection on our behalf, billed per request.
package scrapeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"fetchgate/pkg/providers"
)

// Defaults.
const (
	DefaultName             = "scrapeapi"
	DefaultCostPerRequest   = 0.002
	DefaultTimeout          = 60 * time.Second
	DefaultResponseTimeHint = 8 * time.Second
	DefaultMaxConcurrency   = 20
)

// API paths.
const (
	scrapePath  = "/v1/scrape"
	accountPath = "/v1/account"
)

// Config configures the scrapeapi provider.
type Config struct {
	// Name overrides the registry name.
	// Default: "scrapeapi"
	Name string `yaml:"name"`

	// BaseURL is the API endpoint, without trailing slash.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates against the API. Required.
	APIKey string `yaml:"api_key"`

	// CostPerRequest is the per-call price charged by the vendor.
	// Default: 0.002
	CostPerRequest float64 `yaml:"cost_per_request"`

	// Country requests a specific exit geography, if the plan has one.
	Country string `yaml:"country"`

	// Timeout bounds one whole API call. Rendered fetches are slow, so
	// this is deliberately generous.
	// Default: 60 seconds
	Timeout time.Duration `yaml:"timeout"`
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.CostPerRequest <= 0 {
		c.CostPerRequest = DefaultCostPerRequest
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

// Validate checks the fields that have no usable default.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("scrapeapi: base_url is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("scrapeapi: api_key is required")
	}
	return nil
}

// scrapeRequest is the API's request envelope.
type scrapeRequest struct {
	URL          string            `json:"url"`
	Render       bool              `json:"render"`
	WaitSelector string            `json:"wait_for,omitempty"`
	UserAgent    string            `json:"user_agent,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	Country      string            `json:"country,omitempty"`
}

// scrapeResponse is the API's response envelope.
type scrapeResponse struct {
	Content       string `json:"content"`
	StatusCode    int    `json:"status_code"`
	ResolvedURL   string `json:"resolved_url"`
	RedirectCount int    `json:"redirect_count"`
	CreditsUsed   int    `json:"credits_used"`
	Error         string `json:"error,omitempty"`
}

// accountResponse is the API's account status envelope.
type accountResponse struct {
	Active           bool `json:"active"`
	CreditsRemaining int  `json:"credits_remaining"`
}

// Provider calls a hosted scraping API. It implements
// providers.Provider.
type Provider struct {
	*providers.Base

	config Config
	client *http.Client
}

// New creates a scrapeapi provider.
func New(config Config) (*Provider, error) {
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Provider{
		Base: providers.NewBase(config.Name, providers.Capabilities{
			JavaScript:       true,
			AntiBot:          true,
			Commercial:       true,
			CostPerRequest:   config.CostPerRequest,
			MaxConcurrency:   DefaultMaxConcurrency,
			ResponseTimeHint: DefaultResponseTimeHint,
		}, providers.DefaultMinContentLength),
		config: config,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
			Timeout: config.Timeout,
		},
	}, nil
}

// Fetch implements providers.Provider.
func (p *Provider) Fetch(ctx context.Context, req *providers.Request) (*providers.Result, error) {
	return p.Instrument(ctx, req, func() (*providers.Result, error) {
		payload, err := json.Marshal(scrapeRequest{
			URL:          req.URL,
			Render:       true,
			WaitSelector: req.Options.WaitSelector,
			UserAgent:    req.Options.UserAgent,
			Headers:      req.Options.Headers,
			Country:      p.config.Country,
		})
		if err != nil {
			return nil, providers.NewFetchError(p.Name(), 0, "encoding request", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+scrapePath, bytes.NewReader(payload))
		if err != nil {
			return nil, providers.NewFetchError(p.Name(), 0, "building request", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)

		resp, err := p.client.Do(httpReq)
		if err != nil {
			return nil, providers.NewFetchError(p.Name(), 0, "api call failed", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, providers.NewFetchError(p.Name(), resp.StatusCode, "reading api response", err)
		}

		var env scrapeResponse
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, providers.NewFetchError(p.Name(), resp.StatusCode, "unparseable api response", err)
		}

		// The API distinguishes its own failures (resp.StatusCode)
		// from the target page's status (env.StatusCode).
		if resp.StatusCode != http.StatusOK {
			msg := env.Error
			if msg == "" {
				msg = fmt.Sprintf("api returned status %d", resp.StatusCode)
			}
			return nil, providers.NewFetchError(p.Name(), resp.StatusCode, msg, nil)
		}

		result := &providers.Result{
			Content:    env.Content,
			StatusCode: env.StatusCode,
		}
		result.Metadata.FinalURL = env.ResolvedURL
		result.Metadata.RedirectCount = env.RedirectCount
		if env.CreditsUsed > 0 {
			result.Metadata.Extra = map[string]string{
				"credits_used": fmt.Sprintf("%d", env.CreditsUsed),
			}
		}
		return result, nil
	})
}

// CheckAvailability implements providers.Provider. It verifies the API
// key is accepted and the account has credits left.
func (p *Provider) CheckAvailability(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.BaseURL+accountPath, nil)
	if err != nil {
		return &providers.ProbeError{Provider: p.Name(), Cause: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return &providers.ProbeError{Provider: p.Name(), Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &providers.ProbeError{
			Provider: p.Name(),
			Cause:    fmt.Errorf("account check returned status %d", resp.StatusCode),
		}
	}

	var acct accountResponse
	if err := json.NewDecoder(resp.Body).Decode(&acct); err != nil {
		return &providers.ProbeError{Provider: p.Name(), Cause: fmt.Errorf("unparseable account response: %w", err)}
	}
	if !acct.Active {
		return &providers.ProbeError{Provider: p.Name(), Cause: fmt.Errorf("account is inactive")}
	}
	if acct.CreditsRemaining <= 0 {
		return &providers.ProbeError{Provider: p.Name(), Cause: fmt.Errorf("no credits remaining")}
	}
	return nil
}

// HealthStatus implements providers.Provider.
func (p *Provider) HealthStatus(ctx context.Context) providers.HealthStatus {
	return p.ComposeHealth(ctx, p.CheckAvailability)
}

// Close implements providers.Provider.
func (p *Provider) Close() error {
	if t, ok := p.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
	return nil
}
