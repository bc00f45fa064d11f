// Package robots implements an optional robots.txt gate evaluated
// before any provider is touched. Disallowed URLs are rejected as
// invalid input; the fallback loop never sees them.
package robots

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// Config contains configuration for the robots gate.
type Config struct {
	// Enabled turns the gate on. Disabled by default: the engine's
	// documented behavior has no robots gate, so operators opt in.
	// Default: false
	Enabled bool

	// UserAgent is the agent evaluated against robots rules when the
	// request carries none.
	// Default: "fetchgate"
	UserAgent string

	// CacheTTL is how long a fetched robots.txt stays cached per host.
	// Default: 1 hour
	CacheTTL time.Duration

	// FetchTimeout bounds one robots.txt fetch.
	// Default: 10 seconds
	FetchTimeout time.Duration
}

// DefaultConfig returns the default robots configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      false,
		UserAgent:    "fetchgate",
		CacheTTL:     time.Hour,
		FetchTimeout: 10 * time.Second,
	}
}

type cacheEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

// Gate fetches, caches, and evaluates robots.txt per host. Safe for
// concurrent use. Fetch failures are treated as allow: an unreachable
// robots.txt must not block the whole workload.
type Gate struct {
	config *Config
	client *http.Client
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]*cacheEntry
}

// NewGate creates a Gate from config.
func NewGate(config *Config) *Gate {
	if config == nil {
		config = DefaultConfig()
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultConfig().UserAgent
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = DefaultConfig().CacheTTL
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = DefaultConfig().FetchTimeout
	}
	return &Gate{
		config: config,
		client: &http.Client{Timeout: config.FetchTimeout},
		logger: slog.Default().With("component", "robots"),
		cache:  make(map[string]*cacheEntry),
	}
}

// Allowed reports whether userAgent may fetch rawURL under the target
// host's robots rules. A disabled gate allows everything.
func (g *Gate) Allowed(ctx context.Context, rawURL, userAgent string) (bool, error) {
	if g == nil || !g.config.Enabled {
		return true, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("parsing target URL: %w", err)
	}
	if userAgent == "" {
		userAgent = g.config.UserAgent
	}

	data, err := g.robotsFor(ctx, u)
	if err != nil {
		// Allow on fetch failure; robots enforcement is advisory.
		g.logger.DebugContext(ctx, "robots.txt unavailable, allowing",
			"host", u.Host,
			"error", err,
		)
		return true, nil
	}

	return data.TestAgent(u.Path, userAgent), nil
}

func (g *Gate) robotsFor(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	key := u.Scheme + "://" + u.Host

	g.mu.Lock()
	entry, ok := g.cache[key]
	g.mu.Unlock()
	if ok && time.Since(entry.fetchedAt) < g.config.CacheTTL {
		return entry.data, nil
	}

	data, err := g.fetch(ctx, key+"/robots.txt")
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.cache[key] = &cacheEntry{data: data, fetchedAt: time.Now()}
	g.mu.Unlock()
	return data, nil
}

func (g *Gate) fetch(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", g.config.UserAgent)

	res, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	// FromResponse handles the status-code semantics: 4xx means
	// everything is allowed, 5xx means everything is disallowed.
	return robotstxt.FromStatusAndBytes(res.StatusCode, body)
}

// Invalidate drops the cached robots.txt for host, forcing a refetch.
func (g *Gate) Invalidate(host string) {
	g.mu.Lock()
	for key := range g.cache {
		if u, err := url.Parse(key); err == nil && u.Host == host {
			delete(g.cache, key)
		}
	}
	g.mu.Unlock()
}
