package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/tablecast/pkg/domain"
	"github.com/aretw0/tablecast/pkg/imagecheck"
	"github.com/aretw0/tablecast/pkg/ports"
)

// Strategy renders through a headless browser session.
type Strategy struct {
	name    string
	cfg     Config
	driver  Driver
	limiter ports.SessionLimiter
	client  *http.Client
	checker imagecheck.Checker
	logger  *slog.Logger
}

// Option configures a Strategy.
type Option func(*Strategy)

// WithLimiter bounds concurrent sessions. Without one, sessions are not limited.
func WithLimiter(l ports.SessionLimiter) Option {
	return func(s *Strategy) {
		s.limiter = l
	}
}

// WithHTTPClient overrides the client used to fetch image sources.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Strategy) {
		s.client = c
	}
}

// WithChecker overrides the thresholds used to accept fetched image sources.
func WithChecker(c imagecheck.Checker) Option {
	return func(s *Strategy) {
		s.checker = c
	}
}

// WithLogger configures the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Strategy) {
		s.logger = l
	}
}

// New validates cfg and builds the strategy over driver.
func New(name string, cfg Config, driver Driver, opts ...Option) (*Strategy, error) {
	if driver == nil {
		return nil, fmt.Errorf("browser %q: driver is nil", name)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("browser %q: %w", name, err)
	}
	if cfg.NavigationTimeout == 0 {
		cfg.NavigationTimeout = DefaultNavigationTimeout
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.Fallback == "" {
		cfg.Fallback = FallbackHalfPage
	}

	s := &Strategy{
		name:    name,
		cfg:     cfg,
		driver:  driver,
		client:  &http.Client{},
		checker: imagecheck.Default(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Strategy) Name() string { return s.name }

// Driver returns the name of the underlying browser driver.
func (s *Strategy) Driver() string { return s.driver.Name() }

// Attempt runs the state machine once. Whatever the outcome, the session is closed
// and the limiter slot returned before Attempt returns.
func (s *Strategy) Attempt(ctx context.Context, req domain.RenderRequest) ([]byte, error) {
	log := s.logger.With("request_id", req.ID, "strategy", s.name, "driver", s.driver.Name())

	// Acquire
	if s.limiter != nil {
		release, err := s.limiter.Acquire(ctx)
		if err != nil {
			return nil, s.fail(domain.KindLaunchFailed, "no session slot", err)
		}
		defer release()
	}

	// Launch
	raw, err := s.driver.Launch(ctx, s.cfg.launchOptions())
	if err != nil {
		return nil, s.fail(domain.KindLaunchFailed, "launch", err)
	}
	sess := &onceSession{Session: raw}
	stop := context.AfterFunc(ctx, func() {
		log.Debug("attempt context done, closing session")
		_ = sess.Close()
	})

	// Teardown
	defer func() {
		stop()
		if err := sess.Close(); err != nil {
			log.Debug("session close", "err", err)
		}
	}()

	// Navigate
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	err = sess.Navigate(navCtx, s.cfg.URL)
	cancel()
	if err != nil {
		return nil, s.fail(domain.KindNavigationFailed, s.cfg.URL, err)
	}
	s.prepare(ctx, sess, log)

	// LocateInput
	input, sel, err := s.locate(ctx, sess, RoleInput)
	if err != nil {
		if ctx.Err() != nil {
			return nil, s.fail(domain.KindRenderTimeout, "probing input", err)
		}
		return nil, s.fail(domain.KindInputSurfaceNotFound, "no input candidate matched", err)
	}
	log.Debug("input surface found", "selector", sel)

	// InjectText
	if err := input.Fill(ctx, req.Payload); err != nil {
		return nil, s.fail(domain.KindInjectionFailed, sel, err)
	}

	// AwaitRender
	if err := sleep(ctx, s.cfg.SettleDelay); err != nil {
		return nil, s.fail(domain.KindRenderTimeout, "awaiting render", err)
	}

	// LocateOutput
	return s.capture(ctx, sess, log)
}

// prepare injects CSS and dismisses consent pop-ups. Failures are logged only.
func (s *Strategy) prepare(ctx context.Context, sess Session, log *slog.Logger) {
	if s.cfg.CSS != "" {
		if err := sess.Eval(ctx, InjectCSSScript, s.cfg.CSS); err != nil {
			log.Debug("css injection failed", "err", err)
		}
	}
	if len(s.cfg.ConsentKeywords) > 0 {
		if err := sess.Eval(ctx, DismissConsentScript, s.cfg.ConsentKeywords); err != nil {
			log.Debug("consent dismissal failed", "err", err)
		}
		if err := sess.Eval(ctx, PressEscapeScript, nil); err != nil {
			log.Debug("escape failed", "err", err)
		}
	}
}

// locate probes the candidates of role in order. The first existing element wins.
func (s *Strategy) locate(ctx context.Context, sess Session, role Role) (Element, string, error) {
	var lastErr error = domain.ErrNoElement
	for _, sel := range selectors(s.cfg.Selectors, role) {
		el, err := sess.Find(ctx, sel)
		if err == nil {
			return el, sel, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", fmt.Errorf("probing %q: %w", sel, ctxErr)
		}
		if !errors.Is(err, domain.ErrNoElement) {
			s.logger.Debug("selector probe failed", "strategy", s.name, "selector", sel, "err", err)
			lastErr = err
		}
	}
	return nil, "", lastErr
}

func (s *Strategy) capture(ctx context.Context, sess Session, log *slog.Logger) ([]byte, error) {
	el, sel, err := s.locate(ctx, sess, RoleOutput)
	if err == nil {
		log.Debug("output surface found", "selector", sel)
		if s.cfg.PreferImageSource {
			if img, ok := s.imageSource(ctx, el, log); ok {
				return img, nil
			}
		}
		img, err := el.Screenshot(ctx)
		if err != nil {
			return nil, s.fail(domain.KindCaptureFailed, "element screenshot "+sel, err)
		}
		return img, nil
	}
	if ctx.Err() != nil {
		return nil, s.fail(domain.KindRenderTimeout, "probing output", err)
	}

	log.Warn("output surface not found, using degraded capture",
		"kind", domain.KindOutputSurfaceNotFound,
		"fallback", s.cfg.Fallback)

	switch s.cfg.Fallback {
	case FallbackNone:
		return nil, s.fail(domain.KindOutputSurfaceNotFound, "no output candidate matched", err)
	case FallbackPage:
		img, err := sess.Screenshot(ctx, s.cfg.FullPage)
		if err != nil {
			return nil, s.fail(domain.KindCaptureFailed, "page screenshot", err)
		}
		return img, nil
	default:
		img, err := sess.Screenshot(ctx, false)
		if err != nil {
			return nil, s.fail(domain.KindCaptureFailed, "page screenshot", err)
		}
		half, err := imagecheck.CropTopHalf(img)
		if err != nil {
			return nil, s.fail(domain.KindCaptureFailed, "crop", err)
		}
		return half, nil
	}
}

func (s *Strategy) fail(kind domain.ErrorKind, msg string, err error) *domain.RenderError {
	re := domain.NewRenderError(kind, msg, err)
	re.Strategy = s.name
	return re
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// onceSession makes Close idempotent, since both the AfterFunc and the deferred
// teardown close the session.
type onceSession struct {
	Session
	once sync.Once
	err  error
}

func (o *onceSession) Close() error {
	o.once.Do(func() {
		o.err = o.Session.Close()
	})
	return o.err
}
