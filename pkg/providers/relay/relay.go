// Package relay implements the zero-cost provider: direct HTTP fetching,
// optionally through a rotating pool of SOCKS5 proxies. It has no
// JavaScript or anti-bot capability and exists to be ranked first by the
// cost-optimized strategy.
package relay

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/net/proxy"

	"fetchgate/pkg/providers"
)

// Defaults.
const (
	DefaultName             = "relay"
	DefaultTimeout          = 30 * time.Second
	DefaultMaxBodyBytes     = 10 << 20
	DefaultMaxRedirects     = 10
	DefaultResponseTimeHint = 2 * time.Second
	DefaultMaxConcurrency   = 50
)

// Config configures the relay provider.
type Config struct {
	// Name overrides the registry name.
	// Default: "relay"
	Name string `yaml:"name"`

	// ProxyAddrs lists SOCKS5 proxy addresses (host:port) to rotate
	// through. Empty means direct connections.
	ProxyAddrs []string `yaml:"proxy_addrs"`

	// ProxyUser and ProxyPass authenticate against the proxies.
	ProxyUser string `yaml:"proxy_user"`
	ProxyPass string `yaml:"proxy_pass"`

	// Timeout bounds one whole fetch including body download.
	// Default: 30 seconds
	Timeout time.Duration `yaml:"timeout"`

	// MaxBodyBytes caps how much of a response body is read.
	// Default: 10 MiB
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// ProbeURL is fetched by availability checks. Empty means probes
	// only verify proxy reachability (or succeed outright when direct).
	ProbeURL string `yaml:"probe_url"`
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
}

// Provider fetches pages with plain HTTP, rotating across the
// configured proxy pool round-robin. It implements providers.Provider.
type Provider struct {
	*providers.Base

	config  Config
	clients []*http.Client
	next    atomic.Uint64
}

// New creates a relay provider. Each proxy gets its own pooled client
// so a dead proxy never poisons the others' connections.
func New(config Config) (*Provider, error) {
	config.applyDefaults()

	p := &Provider{
		Base: providers.NewBase(config.Name, providers.Capabilities{
			JavaScript:       false,
			AntiBot:          false,
			Commercial:       false,
			CostPerRequest:   0,
			MaxConcurrency:   DefaultMaxConcurrency,
			ResponseTimeHint: DefaultResponseTimeHint,
		}, providers.DefaultMinContentLength),
		config: config,
	}

	if len(config.ProxyAddrs) == 0 {
		p.clients = []*http.Client{newClient(nil, config.Timeout)}
		return p, nil
	}

	var auth *proxy.Auth
	if config.ProxyUser != "" {
		auth = &proxy.Auth{User: config.ProxyUser, Password: config.ProxyPass}
	}
	for _, addr := range config.ProxyAddrs {
		dialer, err := proxy.SOCKS5("tcp", addr, auth, &net.Dialer{Timeout: config.Timeout})
		if err != nil {
			return nil, providers.NewFetchError(config.Name, 0, fmt.Sprintf("socks5 dialer for %s", addr), err)
		}
		p.clients = append(p.clients, newClient(dialer, config.Timeout))
	}
	return p, nil
}

func newClient(dialer proxy.Dialer, timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	if dialer != nil {
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= DefaultMaxRedirects {
				return fmt.Errorf("stopped after %d redirects", DefaultMaxRedirects)
			}
			return nil
		},
	}
}

// client returns the next client in round-robin order.
func (p *Provider) client() *http.Client {
	n := p.next.Add(1)
	return p.clients[int(n-1)%len(p.clients)]
}

// Fetch implements providers.Provider.
func (p *Provider) Fetch(ctx context.Context, req *providers.Request) (*providers.Result, error) {
	return p.Instrument(ctx, req, func() (*providers.Result, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
		if err != nil {
			return nil, providers.NewFetchError(p.Name(), 0, "building request", err)
		}
		httpReq.Header.Set("User-Agent", req.Options.UserAgent)
		httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		for k, v := range req.Options.Headers {
			httpReq.Header.Set(k, v)
		}

		resp, err := p.client().Do(httpReq)
		if err != nil {
			return nil, providers.NewFetchError(p.Name(), 0, "request failed", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, p.config.MaxBodyBytes))
		if err != nil {
			return nil, providers.NewFetchError(p.Name(), resp.StatusCode, "reading body", err)
		}

		result := &providers.Result{
			Content:    string(body),
			StatusCode: resp.StatusCode,
		}
		result.Metadata.FinalURL = resp.Request.URL.String()
		if result.Metadata.FinalURL != req.URL {
			result.Metadata.RedirectCount = 1
		}
		return result, nil
	})
}

// CheckAvailability implements providers.Provider. With proxies it
// verifies the next proxy accepts TCP connections; direct mode probes
// ProbeURL when configured and otherwise succeeds.
func (p *Provider) CheckAvailability(ctx context.Context) error {
	if len(p.config.ProxyAddrs) > 0 {
		n := p.next.Load()
		addr := p.config.ProxyAddrs[int(n)%len(p.config.ProxyAddrs)]
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return &providers.ProbeError{Provider: p.Name(), Cause: err}
		}
		conn.Close()
		return nil
	}

	if p.config.ProbeURL == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.config.ProbeURL, nil)
	if err != nil {
		return &providers.ProbeError{Provider: p.Name(), Cause: err}
	}
	resp, err := p.client().Do(req)
	if err != nil {
		return &providers.ProbeError{Provider: p.Name(), Cause: err}
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return &providers.ProbeError{Provider: p.Name(), Cause: fmt.Errorf("probe returned status %d", resp.StatusCode)}
	}
	return nil
}

// HealthStatus implements providers.Provider.
func (p *Provider) HealthStatus(ctx context.Context) providers.HealthStatus {
	return p.ComposeHealth(ctx, p.CheckAvailability)
}

// Close implements providers.Provider.
func (p *Provider) Close() error {
	for _, c := range p.clients {
		if t, ok := c.Transport.(*http.Transport); ok {
			t.CloseIdleConnections()
		}
	}
	return nil
}
