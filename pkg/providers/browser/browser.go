// Package browser implements the headless-browser provider: a local
// Chromium driven over the DevTools protocol, with stealth patches
// applied to every page. It renders JavaScript at zero marginal cost
// but is the slowest provider in the pool.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"golang.org/x/sync/semaphore"

	"fetchgate/pkg/providers"
)

// Defaults.
const (
	DefaultName             = "browser"
	DefaultMaxPages         = 4
	DefaultResponseTimeHint = 6 * time.Second
)

// Config configures the browser provider.
type Config struct {
	// Name overrides the registry name.
	// Default: "browser"
	Name string `yaml:"name"`

	// ControlURL is the DevTools endpoint of an already-running
	// browser. Empty means launch a local headless Chromium on first
	// use.
	ControlURL string `yaml:"control_url"`

	// MaxPages caps how many pages render concurrently.
	// Default: 4
	MaxPages int `yaml:"max_pages"`
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
}

// Provider renders pages in headless Chromium. It implements
// providers.Provider. The browser process starts lazily on the first
// fetch or probe and is shared by all pages; Close shuts it down.
type Provider struct {
	*providers.Base

	config Config
	slots  *semaphore.Weighted

	mu     sync.Mutex
	br     *rod.Browser
	launch *launcher.Launcher
}

// New creates a browser provider. No browser process is started yet.
func New(config Config) *Provider {
	config.applyDefaults()

	return &Provider{
		Base: providers.NewBase(config.Name, providers.Capabilities{
			JavaScript:       true,
			AntiBot:          true,
			Commercial:       false,
			CostPerRequest:   0,
			MaxConcurrency:   config.MaxPages,
			ResponseTimeHint: DefaultResponseTimeHint,
		}, providers.DefaultMinContentLength),
		config: config,
		slots:  semaphore.NewWeighted(int64(config.MaxPages)),
	}
}

// browser returns the shared browser, launching and connecting on
// first use.
func (p *Provider) browser() (*rod.Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.br != nil {
		return p.br, nil
	}

	controlURL := p.config.ControlURL
	var launch *launcher.Launcher
	if controlURL == "" {
		launch = launcher.New().Headless(true)
		u, err := launch.Launch()
		if err != nil {
			return nil, fmt.Errorf("launching browser: %w", err)
		}
		controlURL = u
	}

	br := rod.New().ControlURL(controlURL)
	if err := br.Connect(); err != nil {
		if launch != nil {
			launch.Kill()
		}
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	p.br = br
	p.launch = launch
	p.Logger().Info("browser connected", "control_url", controlURL)
	return br, nil
}

// Fetch implements providers.Provider.
func (p *Provider) Fetch(ctx context.Context, req *providers.Request) (*providers.Result, error) {
	return p.Instrument(ctx, req, func() (*providers.Result, error) {
		br, err := p.browser()
		if err != nil {
			return nil, providers.NewFetchError(p.Name(), 0, "browser unavailable", err)
		}

		if err := p.slots.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer p.slots.Release(1)

		page, err := stealth.Page(br)
		if err != nil {
			return nil, providers.NewFetchError(p.Name(), 0, "opening page", err)
		}
		defer page.Close()
		page = page.Context(ctx)

		if ua := req.Options.UserAgent; ua != "" {
			if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
				return nil, providers.NewFetchError(p.Name(), 0, "setting user agent", err)
			}
		}

		// The document response event carries the status code and the
		// post-redirect URL; page.MustHTML alone loses both.
		var statusCode int
		var finalURL string
		waitResponse := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
			if e.Type == proto.NetworkResourceTypeDocument {
				statusCode = e.Response.Status
				finalURL = e.Response.URL
				return true
			}
			return false
		})

		var html string
		err = rod.Try(func() {
			page.MustNavigate(req.URL)
			waitResponse()
			page.MustWaitLoad()
			if sel := req.Options.WaitSelector; sel != "" {
				page.MustElement(sel)
			}
			html = page.MustHTML()
		})
		if err != nil {
			return nil, providers.NewFetchError(p.Name(), statusCode, "rendering page", err)
		}

		result := &providers.Result{
			Content:    html,
			StatusCode: statusCode,
		}
		result.Metadata.FinalURL = finalURL
		result.Metadata.Extra = map[string]string{"renderer": "chromium"}
		return result, nil
	})
}

// CheckAvailability implements providers.Provider. The first probe
// starts the browser; later probes verify the DevTools connection is
// still alive.
func (p *Provider) CheckAvailability(ctx context.Context) error {
	br, err := p.browser()
	if err != nil {
		return &providers.ProbeError{Provider: p.Name(), Cause: err}
	}
	if _, err := (proto.BrowserGetVersion{}).Call(br); err != nil {
		return &providers.ProbeError{Provider: p.Name(), Cause: fmt.Errorf("devtools connection lost: %w", err)}
	}
	return nil
}

// HealthStatus implements providers.Provider.
func (p *Provider) HealthStatus(ctx context.Context) providers.HealthStatus {
	return p.ComposeHealth(ctx, p.CheckAvailability)
}

// Close implements providers.Provider. It shuts the browser down and
// kills the launched process, if any.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.br == nil {
		return nil
	}
	err := p.br.Close()
	if p.launch != nil {
		p.launch.Kill()
	}
	p.br = nil
	p.launch = nil
	return err
}
