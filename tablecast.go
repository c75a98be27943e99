package tablecast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aretw0/tablecast/pkg/adapters/memory"
	redislimiter "github.com/aretw0/tablecast/pkg/adapters/redis"
	"github.com/aretw0/tablecast/pkg/config"
	"github.com/aretw0/tablecast/pkg/domain"
	"github.com/aretw0/tablecast/pkg/normalize"
	"github.com/aretw0/tablecast/pkg/observability"
	"github.com/aretw0/tablecast/pkg/orchestrator"
	"github.com/aretw0/tablecast/pkg/ports"
	"github.com/aretw0/tablecast/pkg/registry"
	"github.com/aretw0/tablecast/pkg/strategy/browser"
	cdpdriver "github.com/aretw0/tablecast/pkg/strategy/browser/chromedp"
	pwdriver "github.com/aretw0/tablecast/pkg/strategy/browser/playwright"
	roddriver "github.com/aretw0/tablecast/pkg/strategy/browser/rod"
	"github.com/aretw0/tablecast/pkg/strategy/httpprobe"
	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
)

// Renderer is the high-level entry point: it owns the strategy chain built from a
// Config and the resources behind it (browser drivers, session limiter).
// Safe for concurrent use.
type Renderer struct {
	cfg          config.Config
	normalizer   *normalize.Normalizer
	orchestrator *orchestrator.Orchestrator
	limiter      ports.SessionLimiter
	closers      []io.Closer

	logger     *slog.Logger
	hooks      domain.LifecycleHooks
	drivers    map[string]browser.Driver
	redis      backend.UniversalClient
	httpClient *http.Client
	registerer prometheus.Registerer
}

var _ ports.Renderer = (*Renderer)(nil)

// Option defines a functional option for configuring the Renderer.
type Option func(*Renderer)

// WithLogger sets the structured logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. Multiple calls are merged.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Renderer) {
		r.hooks = r.hooks.Merge(hooks)
	}
}

// WithDriver serves browser strategies configured with driver name using d instead
// of the built-in driver of that name.
func WithDriver(name string, d browser.Driver) Option {
	return func(r *Renderer) {
		r.drivers[name] = d
	}
}

// WithLimiter replaces the session limiter built from the limiter configuration.
func WithLimiter(l ports.SessionLimiter) Option {
	return func(r *Renderer) {
		r.limiter = l
	}
}

// WithRedisClient injects the client used by the redis limiter backend.
// The Renderer does not close an injected client.
func WithRedisClient(c backend.UniversalClient) Option {
	return func(r *Renderer) {
		r.redis = c
	}
}

// WithHTTPClient sets the client used by HTTP probes and image downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Renderer) {
		r.httpClient = c
	}
}

// WithRegisterer enables Prometheus metrics, registering the collectors with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(r *Renderer) {
		r.registerer = reg
	}
}

// New validates cfg and builds the strategy chain.
func New(cfg config.Config, opts ...Option) (*Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	r := &Renderer{
		cfg:     cfg,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		drivers: make(map[string]browser.Driver),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.normalizer = normalize.New(
		normalize.WithTrigger(cfg.Chat.Trigger),
		normalize.WithMaxSize(cfg.MaxInputSize),
	)

	if r.registerer != nil {
		metrics, err := observability.NewMetrics(r.registerer)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		r.hooks = r.hooks.Merge(metrics.Hooks())
	}

	reg, err := r.buildRegistry()
	if err != nil {
		r.Close()
		return nil, err
	}

	r.orchestrator = orchestrator.New(reg,
		orchestrator.WithLogger(r.logger),
		orchestrator.WithChecker(cfg.Image),
		orchestrator.WithHooks(r.hooks),
	)
	return r, nil
}

func (r *Renderer) buildRegistry() (*registry.Registry, error) {
	reg := registry.NewRegistry()
	for _, sc := range r.cfg.Strategies {
		var (
			s   ports.Strategy
			err error
		)
		switch sc.Type {
		case config.TypeHTTP:
			s, err = r.httpStrategy(sc)
		case config.TypeBrowser:
			s, err = r.browserStrategy(sc)
		default:
			err = fmt.Errorf("strategy %q: unknown type %q", sc.Name, sc.Type)
		}
		if err != nil {
			return nil, err
		}
		if err := reg.Register(s, sc.Timeout); err != nil {
			return nil, err
		}
		r.logger.Debug("strategy registered", "strategy", sc.Name, "type", sc.Type, "timeout", sc.Timeout)
	}
	return reg, nil
}

func (r *Renderer) httpStrategy(sc config.StrategyConfig) (ports.Strategy, error) {
	opts := []httpprobe.Option{
		httpprobe.WithChecker(r.cfg.Image),
		httpprobe.WithLogger(r.logger),
	}
	if r.httpClient != nil {
		opts = append(opts, httpprobe.WithHTTPClient(r.httpClient))
	}
	return httpprobe.New(sc.Name, sc.HTTP, opts...)
}

func (r *Renderer) browserStrategy(sc config.StrategyConfig) (ports.Strategy, error) {
	driver, err := r.driver(sc.Driver)
	if err != nil {
		return nil, fmt.Errorf("strategy %q: %w", sc.Name, err)
	}
	limiter, err := r.sessionLimiter()
	if err != nil {
		return nil, err
	}
	opts := []browser.Option{
		browser.WithLimiter(limiter),
		browser.WithChecker(r.cfg.Image),
		browser.WithLogger(r.logger),
	}
	if r.httpClient != nil {
		opts = append(opts, browser.WithHTTPClient(r.httpClient))
	}
	return browser.New(sc.Name, sc.Browser, driver, opts...)
}

// driver returns the shared driver for name, creating the built-in one on first use.
func (r *Renderer) driver(name string) (browser.Driver, error) {
	if d, ok := r.drivers[name]; ok {
		return d, nil
	}
	var d browser.Driver
	switch name {
	case roddriver.Name:
		d = roddriver.New()
	case cdpdriver.Name:
		d = cdpdriver.New()
	case pwdriver.Name:
		pd := pwdriver.New()
		r.closers = append(r.closers, pd)
		d = pd
	default:
		return nil, fmt.Errorf("unknown driver %q", name)
	}
	r.drivers[name] = d
	return d, nil
}

// sessionLimiter returns the limiter shared by all browser strategies.
func (r *Renderer) sessionLimiter() (ports.SessionLimiter, error) {
	if r.limiter != nil {
		return r.limiter, nil
	}
	lc := r.cfg.Limiter
	switch lc.Backend {
	case config.BackendRedis:
		client := r.redis
		if client == nil {
			client = backend.NewUniversalClient(&backend.UniversalOptions{
				Addrs:    []string{lc.Redis.Addr},
				Password: lc.Redis.Password,
				DB:       lc.Redis.DB,
			})
			r.closers = append(r.closers, client)
		}
		r.limiter = redislimiter.NewLimiter(client, lc.MaxSessions,
			redislimiter.WithPrefix(lc.Redis.Prefix),
			redislimiter.WithTTL(lc.Redis.TTL),
			redislimiter.WithLogger(r.logger),
		)
	default:
		l := memory.NewLimiter(lc.MaxSessions)
		r.closers = append(r.closers, l)
		r.limiter = l
	}
	return r.limiter, nil
}

// Render normalizes and validates text, then runs the strategy chain.
// Input rejections wrap domain.ErrInvalidInput and never reach a strategy.
// On total failure the error is a *domain.Failure.
func (r *Renderer) Render(ctx context.Context, text string) (*domain.Success, error) {
	payload, err := r.normalizer.Normalize(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if err := normalize.ValidateShape(payload); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	req, err := domain.NewRenderRequest(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return r.orchestrator.Render(ctx, req)
}

// Strategies returns the registered strategy names in attempt order.
func (r *Renderer) Strategies() []string {
	return r.orchestrator.Strategies()
}

// Normalizer returns the normalizer built from the chat configuration.
func (r *Renderer) Normalizer() *normalize.Normalizer {
	return r.normalizer
}

// Config returns the configuration the Renderer was built from.
func (r *Renderer) Config() config.Config {
	return r.cfg
}

// Close releases drivers and limiter resources owned by the Renderer.
// In-flight renders must have returned.
func (r *Renderer) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
