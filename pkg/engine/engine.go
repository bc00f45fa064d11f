package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"fetchgate/pkg/health"
	"fetchgate/pkg/journal"
	"fetchgate/pkg/providers"
	"fetchgate/pkg/robots"
	"fetchgate/pkg/strategy"
	"fetchgate/pkg/telemetry/logging"
	"fetchgate/pkg/telemetry/metrics"
)

// Configuration defaults.
const (
	DefaultStrategy   = strategy.CostOptimized
	DefaultMaxRetries = 2
	DefaultTimeout    = 30 * time.Second
	DefaultUserAgent  = "fetchgate/1.0"
)

// Config contains the engine's construction-time configuration. All
// fields are optional; the zero value yields a working engine with
// defaults.
type Config struct {
	// Strategy is the default ranking strategy name.
	// Default: "cost-optimized"
	Strategy string

	// MaxCostPerRequest is the default cost budget. Providers above
	// it are ranked last, never removed: correctness outranks budget.
	// Zero disables the budget.
	MaxCostPerRequest float64

	// EnabledProviders is an allow-list of provider names. Empty
	// means all registered providers are eligible.
	EnabledProviders []string

	// MaxRetries is the default number of extra attempts per provider
	// after the first. Negative disables retries.
	// Default: 2
	MaxRetries int

	// DefaultTimeout bounds one fetch attempt when the caller sets no
	// timeout.
	// Default: 30 seconds
	DefaultTimeout time.Duration

	// UserAgent is the default User-Agent header.
	// Default: "fetchgate/1.0"
	UserAgent string

	// Backoff is the inter-attempt delay schedule.
	Backoff Backoff

	// Sleep waits between attempts. Tests inject a recording
	// implementation; nil means real waiting.
	Sleep SleepFunc

	// HealthTTL is how long a cached health verdict stays fresh.
	HealthTTL time.Duration

	// ProbeTimeout bounds one availability probe.
	ProbeTimeout time.Duration

	// Journal receives one record per scrape call. Nil disables
	// journaling.
	Journal *journal.Recorder

	// Metrics receives engine telemetry. Nil disables it.
	Metrics *metrics.Collector

	// Robots, when set, rejects robots-disallowed URLs before any
	// provider is touched.
	Robots *robots.Gate
}

type registration struct {
	provider providers.Provider
	seq      int
}

// Engine is the provider manager and fallback orchestrator. Scrape
// calls are independent and may run concurrently; the only shared
// mutable state is each provider's own metrics and the registry, which
// is read-locked per call.
type Engine struct {
	mu       sync.RWMutex
	registry map[string]*registration
	order    []string
	nextSeq  int
	closed   bool

	// runtime-updatable settings, guarded by mu
	strategyName string
	enabled      map[string]bool
	maxCost      float64

	config  *Config
	monitor *health.Monitor
	stats   *Stats
	sleep   SleepFunc
	logger  *slog.Logger
}

// New creates an Engine from config.
func New(config *Config) (*Engine, error) {
	if config == nil {
		config = &Config{}
	}

	strategyName := config.Strategy
	if strategyName == "" {
		strategyName = DefaultStrategy
	}
	if _, err := strategy.New(strategyName); err != nil {
		return nil, err
	}

	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	} else if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = DefaultTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	sleep := config.Sleep
	if sleep == nil {
		sleep = sleepWithContext
	}

	e := &Engine{
		registry:     make(map[string]*registration),
		strategyName: strategyName,
		enabled:      allowList(config.EnabledProviders),
		maxCost:      config.MaxCostPerRequest,
		config:       config,
		monitor:      health.NewMonitor(config.HealthTTL, config.ProbeTimeout),
		stats:        NewStats(),
		sleep:        sleep,
		logger:       slog.Default().With("component", "engine"),
	}
	return e, nil
}

func allowList(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Register adds a provider to the registry. Registering a name that
// already exists replaces the previous instance and closes it; the
// replacement keeps the original registration order.
func (e *Engine) Register(p providers.Provider) error {
	if p == nil || p.Name() == "" {
		return fmt.Errorf("cannot register a provider without a name")
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}

	var replaced providers.Provider
	if existing, ok := e.registry[p.Name()]; ok {
		replaced = existing.provider
		e.registry[p.Name()] = &registration{provider: p, seq: existing.seq}
	} else {
		e.registry[p.Name()] = &registration{provider: p, seq: e.nextSeq}
		e.order = append(e.order, p.Name())
		e.nextSeq++
	}
	count := len(e.registry)
	e.mu.Unlock()

	e.config.Metrics.SetProvidersRegistered(count)

	if replaced != nil {
		if err := replaced.Close(); err != nil {
			e.logger.Warn("closing replaced provider", "provider", p.Name(), "error", err)
		}
		e.logger.Info("provider replaced", "provider", p.Name())
		return nil
	}

	e.logger.Info("provider registered",
		"provider", p.Name(),
		"cost_per_request", p.Capabilities().CostPerRequest,
		"javascript", p.Capabilities().JavaScript,
	)
	return nil
}

// Deregister removes a provider and closes it.
func (e *Engine) Deregister(name string) error {
	e.mu.Lock()
	reg, ok := e.registry[name]
	if !ok {
		available := append([]string(nil), e.order...)
		e.mu.Unlock()
		return &ProviderNotFoundError{Name: name, Available: available}
	}
	delete(e.registry, name)
	for i, n := range e.order {
		if n == name {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	count := len(e.registry)
	e.mu.Unlock()

	e.monitor.Forget(name)
	e.config.Metrics.ForgetProvider(name)
	e.config.Metrics.SetProvidersRegistered(count)

	e.logger.Info("provider deregistered", "provider", name)
	return reg.provider.Close()
}

// Providers returns the registered providers in registration order.
func (e *Engine) Providers() []providers.Provider {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]providers.Provider, 0, len(e.order))
	for _, name := range e.order {
		out = append(out, e.registry[name].provider)
	}
	return out
}

// RuntimeUpdate is the narrow set of settings that can change without
// restarting the engine. Nil fields are left unchanged.
type RuntimeUpdate struct {
	// Strategy replaces the default ranking strategy.
	Strategy *string

	// EnabledProviders replaces the allow-list; an empty slice means
	// all providers.
	EnabledProviders *[]string

	// MaxCostPerRequest replaces the default cost budget.
	MaxCostPerRequest *float64
}

// ApplyRuntime applies a runtime configuration update. The strategy
// name is validated before anything changes.
func (e *Engine) ApplyRuntime(update RuntimeUpdate) error {
	if update.Strategy != nil {
		if _, err := strategy.New(*update.Strategy); err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if update.Strategy != nil {
		e.strategyName = *update.Strategy
	}
	if update.EnabledProviders != nil {
		e.enabled = allowList(*update.EnabledProviders)
	}
	if update.MaxCostPerRequest != nil {
		e.maxCost = *update.MaxCostPerRequest
	}

	e.logger.Info("runtime configuration applied",
		"strategy", e.strategyName,
		"enabled_providers", len(e.enabled),
		"max_cost_per_request", e.maxCost,
	)
	return nil
}

// Scrape fetches url through the best available provider, falling back
// across the ranked candidates until one succeeds or all are
// exhausted.
func (e *Engine) Scrape(ctx context.Context, rawURL string, opts *providers.Options) (*providers.Result, error) {
	startedAt := time.Now()

	if err := e.validateURL(rawURL); err != nil {
		return nil, err
	}

	options, strategyName, ranker, err := e.normalizeOptions(opts)
	if err != nil {
		return nil, err
	}

	if allowed, err := e.config.Robots.Allowed(ctx, rawURL, options.UserAgent); err == nil && !allowed {
		return nil, &InvalidInputError{URL: rawURL, Reason: "disallowed by robots.txt"}
	}

	requestID := uuid.New().String()
	ctx = logging.WithRequestID(ctx, requestID)

	e.stats.recordScrape(strategyName)

	candidates, err := e.eligibleCandidates(options)
	if err != nil {
		return nil, err
	}
	candidates = e.excludeUnhealthy(ctx, candidates)

	budget := options.MaxCostPerRequest
	if budget <= 0 {
		e.mu.RLock()
		budget = e.maxCost
		e.mu.RUnlock()
	}
	ranked := applyCostGate(ranker.Rank(candidates), budget)

	e.logger.DebugContext(ctx, "providers ranked",
		"url", rawURL,
		"strategy", strategyName,
		"candidates", candidateNames(ranked),
	)

	req := &providers.Request{ID: requestID, URL: rawURL, Options: options}
	result, attempts, depth, err := e.fallbackLoop(ctx, req, ranked)
	e.stats.recordAttempts(len(attempts) + btoi(result != nil))

	record := &journal.Record{
		RequestID: requestID,
		URL:       rawURL,
		Strategy:  strategyName,
		Attempts:  len(attempts) + btoi(result != nil),
		StartedAt: startedAt,
	}

	if err != nil {
		e.stats.recordFailure()
		record.Success = false
		record.Error = logging.RedactString(err.Error())
		if n := len(attempts); n > 0 {
			record.Provider = attempts[n-1].Provider
			record.FallbackDepth = depth
		}
		e.config.Metrics.RecordScrape(record.Provider, strategyName, metrics.OutcomeFailure, 0, 0)
		e.recordJournal(record)
		return nil, err
	}

	e.stats.recordSuccess(result.Provider)
	if depth > 0 {
		e.stats.recordFallback()
		e.config.Metrics.RecordFallback()
	}

	record.Success = true
	record.Provider = result.Provider
	record.StatusCode = result.StatusCode
	record.FallbackDepth = depth
	record.ResponseTime = result.ResponseTime
	record.Cost = result.Cost
	record.ContentLength = len(result.Content)
	record.OverBudget = budget > 0 && result.Cost > budget

	e.config.Metrics.RecordScrape(result.Provider, strategyName, metrics.OutcomeSuccess, result.ResponseTime, result.Cost)
	e.recordJournal(record)

	e.logger.InfoContext(ctx, "scrape succeeded",
		"url", rawURL,
		"provider", result.Provider,
		"strategy", strategyName,
		"status", result.StatusCode,
		"elapsed_ms", result.ResponseTime.Milliseconds(),
		"fallback_depth", depth,
		"cost", result.Cost,
	)
	return result, nil
}

// fallbackLoop walks the ranked candidates in order, running the
// bounded retry loop for each, and returns the first success together
// with the accumulated failed attempts and the index of the winning
// provider.
func (e *Engine) fallbackLoop(ctx context.Context, req *providers.Request, ranked []strategy.Candidate) (*providers.Result, []Attempt, int, error) {
	var attempts []Attempt

	maxRetries := req.Options.MaxRetries
	backoff := e.config.Backoff

	for depth, cand := range ranked {
		p, ok := e.lookup(cand.Name)
		if !ok {
			// Deregistered between ranking and attempt; skip.
			continue
		}

		pctx := logging.WithProvider(ctx, cand.Name)

		for attempt := 1; attempt <= maxRetries+1; attempt++ {
			if err := ctx.Err(); err != nil {
				return nil, attempts, depth, fmt.Errorf("scrape cancelled: %w", err)
			}

			attemptStart := time.Now()
			result, err := e.runAttempt(ctx, p, req)
			elapsed := time.Since(attemptStart)

			if err == nil {
				e.config.Metrics.RecordAttempt(cand.Name, metrics.OutcomeSuccess)
				return result, attempts, depth, nil
			}

			e.config.Metrics.RecordAttempt(cand.Name, metrics.OutcomeFailure)
			attempts = append(attempts, Attempt{
				Provider: cand.Name,
				Number:   attempt,
				Error:    logging.RedactString(err.Error()),
				Elapsed:  elapsed,
			})

			e.logger.WarnContext(pctx, "fetch attempt failed",
				"url", req.URL,
				"attempt", attempt,
				"max_attempts", maxRetries+1,
				"error", err,
			)

			// A caller-level cancellation aborts the whole loop; a
			// per-attempt timeout only this attempt.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, attempts, depth, fmt.Errorf("scrape cancelled: %w", ctxErr)
			}

			if attempt <= maxRetries {
				if err := e.sleep(ctx, backoff.Delay(attempt)); err != nil {
					return nil, attempts, depth, fmt.Errorf("scrape cancelled: %w", err)
				}
			}
		}
	}

	return nil, attempts, len(ranked) - 1, &AllProvidersFailedError{URL: req.URL, Attempts: attempts}
}

// runAttempt runs one fetch attempt under the per-attempt timeout.
func (e *Engine) runAttempt(ctx context.Context, p providers.Provider, req *providers.Request) (*providers.Result, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, req.Options.Timeout)
	defer cancel()
	return p.Fetch(attemptCtx, req)
}

// TestProvider exercises exactly one named provider, bypassing
// filtering, ranking, and fallback. Diagnostic tooling only; metrics
// update normally because the fetch is real.
func (e *Engine) TestProvider(ctx context.Context, name, rawURL string, opts *providers.Options) (*providers.Result, error) {
	if err := e.validateURL(rawURL); err != nil {
		return nil, err
	}

	options, _, _, err := e.normalizeOptions(opts)
	if err != nil {
		return nil, err
	}

	p, ok := e.lookup(name)
	if !ok {
		e.mu.RLock()
		available := append([]string(nil), e.order...)
		e.mu.RUnlock()
		return nil, &ProviderNotFoundError{Name: name, Available: available}
	}

	req := &providers.Request{ID: uuid.New().String(), URL: rawURL, Options: options}
	ctx = logging.WithRequestID(ctx, req.ID)
	return e.runAttempt(ctx, p, req)
}

// ProvidersHealth probes every registered provider concurrently and
// returns the verdicts keyed by name.
func (e *Engine) ProvidersHealth(ctx context.Context) map[string]providers.HealthStatus {
	verdicts := e.monitor.Snapshot(ctx, e.Providers())
	for name, status := range verdicts {
		e.config.Metrics.SetProviderHealthy(name, status.Healthy)
	}
	return verdicts
}

// Monitor returns the engine's health monitor, for background pollers.
func (e *Engine) Monitor() *health.Monitor {
	return e.monitor
}

// MetricsSnapshot returns a copy of every provider's rolling metrics,
// keyed by name. Idempotent between scrape calls.
func (e *Engine) MetricsSnapshot() map[string]providers.MetricsSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]providers.MetricsSnapshot, len(e.registry))
	for name, reg := range e.registry {
		out[name] = reg.provider.Metrics()
	}
	return out
}

// Stats returns a snapshot of the engine-level counters.
func (e *Engine) Stats() StatsSnapshot {
	return e.stats.Snapshot()
}

// Close releases every registered provider. Guaranteed resource
// release on shutdown; the engine is unusable afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	regs := make([]*registration, 0, len(e.registry))
	for _, reg := range e.registry {
		regs = append(regs, reg)
	}
	e.registry = make(map[string]*registration)
	e.order = nil
	e.mu.Unlock()

	var errs []error
	for _, reg := range regs {
		if err := reg.provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing provider %s: %w", reg.provider.Name(), err))
		}
	}

	e.logger.Info("engine closed", "providers", len(regs))
	return errors.Join(errs...)
}

func (e *Engine) validateURL(rawURL string) error {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return ErrEngineClosed
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return &InvalidInputError{URL: rawURL, Reason: fmt.Sprintf("unparseable URL: %v", err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &InvalidInputError{URL: rawURL, Reason: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}
	if u.Host == "" {
		return &InvalidInputError{URL: rawURL, Reason: "missing host"}
	}
	return nil
}

// normalizeOptions applies engine defaults to the caller's options and
// resolves the ranking strategy.
func (e *Engine) normalizeOptions(opts *providers.Options) (providers.Options, string, strategy.Strategy, error) {
	var options providers.Options
	if opts != nil {
		options = *opts
	}

	if options.Timeout <= 0 {
		options.Timeout = e.config.DefaultTimeout
	}
	if opts == nil || options.MaxRetries < 0 {
		options.MaxRetries = e.config.MaxRetries
	}
	if options.UserAgent == "" {
		options.UserAgent = e.config.UserAgent
	}

	name := options.Strategy
	if name == "" {
		e.mu.RLock()
		name = e.strategyName
		e.mu.RUnlock()
	}
	ranker, err := strategy.New(name)
	if err != nil {
		return options, name, nil, err
	}
	return options, name, ranker, nil
}

// eligibleCandidates applies the allow-list and capability filters and
// returns the survivors as strategy candidates in registration order.
func (e *Engine) eligibleCandidates(options providers.Options) ([]strategy.Candidate, error) {
	e.mu.RLock()
	enabled := e.enabled
	regs := make([]*registration, 0, len(e.order))
	for _, name := range e.order {
		regs = append(regs, e.registry[name])
	}
	e.mu.RUnlock()

	if len(regs) == 0 {
		return nil, &NoSuitableProvidersError{Reason: "no providers registered", Require: options.Require}
	}

	var afterAllowList int
	candidates := make([]strategy.Candidate, 0, len(regs))
	for _, reg := range regs {
		name := reg.provider.Name()
		if enabled != nil && !enabled[name] {
			continue
		}
		afterAllowList++
		if !options.Require.SatisfiedBy(reg.provider.Capabilities()) {
			continue
		}
		candidates = append(candidates, strategy.Candidate{
			Name:         name,
			Capabilities: reg.provider.Capabilities(),
			Metrics:      reg.provider.Metrics(),
			Seq:          reg.seq,
		})
	}

	if len(candidates) == 0 {
		reason := "no provider satisfies the required capabilities"
		if afterAllowList == 0 {
			reason = "no registered provider is on the enabled list"
		}
		return nil, &NoSuitableProvidersError{Reason: reason, Require: options.Require}
	}
	return candidates, nil
}

// excludeUnhealthy drops candidates whose cached health verdict is
// fresh and unhealthy. Exclusion lasts only as long as the verdict:
// stale or missing verdicts count as healthy. When exclusion would
// empty the set, the full set is kept; attempting beats refusing.
func (e *Engine) excludeUnhealthy(ctx context.Context, candidates []strategy.Candidate) []strategy.Candidate {
	kept := make([]strategy.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if verdict, ok := e.monitor.Verdict(c.Name); ok && !verdict.Healthy {
			e.logger.DebugContext(ctx, "provider excluded by health verdict",
				"provider", c.Name,
				"message", verdict.Message,
			)
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		return candidates
	}
	return kept
}

// applyCostGate moves candidates above the budget to the end of the
// ranking, preserving relative order in both groups. Over-budget
// providers are never removed: the call must still succeed through one
// of them when nothing cheaper works.
func applyCostGate(ranked []strategy.Candidate, budget float64) []strategy.Candidate {
	if budget <= 0 {
		return ranked
	}

	within := make([]strategy.Candidate, 0, len(ranked))
	over := make([]strategy.Candidate, 0)
	for _, c := range ranked {
		if c.Capabilities.CostPerRequest > budget {
			over = append(over, c)
		} else {
			within = append(within, c)
		}
	}
	return append(within, over...)
}

func (e *Engine) lookup(name string) (providers.Provider, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	reg, ok := e.registry[name]
	if !ok {
		return nil, false
	}
	return reg.provider, true
}

func (e *Engine) recordJournal(record *journal.Record) {
	if e.config.Journal != nil {
		e.config.Journal.Record(record)
	}
}

func candidateNames(candidates []strategy.Candidate) []string {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	return names
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
