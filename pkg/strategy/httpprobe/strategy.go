package httpprobe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/aretw0/tablecast/pkg/domain"
	"github.com/aretw0/tablecast/pkg/imagecheck"
)

// DefaultCallTimeout bounds each candidate request.
const DefaultCallTimeout = 10 * time.Second

// Config describes one HTTP-probe strategy.
type Config struct {
	BaseURL     string        `mapstructure:"base_url"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	Candidates  []Candidate   `mapstructure:"candidates"`
}

// Strategy probes the candidates of Config in order.
type Strategy struct {
	name    string
	base    *url.URL
	cfg     Config
	client  *http.Client
	checker imagecheck.Checker
	logger  *slog.Logger
}

// Option configures a Strategy.
type Option func(*Strategy)

// WithHTTPClient overrides the client used for candidate requests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Strategy) {
		s.client = c
	}
}

// WithChecker overrides the image acceptance thresholds.
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

// Validate reports configuration errors.
func (c Config) Validate() error {
	base, err := url.Parse(c.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return fmt.Errorf("invalid base_url %q", c.BaseURL)
	}
	if len(c.Candidates) == 0 {
		return errors.New("no candidates")
	}
	for _, cand := range c.Candidates {
		if err := cand.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// New validates cfg and builds the strategy.
func New(name string, cfg Config, opts ...Option) (*Strategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("httpprobe %q: %w", name, err)
	}
	base, _ := url.Parse(cfg.BaseURL)
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}

	s := &Strategy{
		name:    name,
		base:    base,
		cfg:     cfg,
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

// Attempt tries every candidate in order and returns the first acceptable image.
// When all fail the error is an all_endpoints_failed RenderError listing each candidate.
func (s *Strategy) Attempt(ctx context.Context, req domain.RenderRequest) ([]byte, error) {
	failures := make([]domain.CandidateFailure, 0, len(s.cfg.Candidates))
	for _, c := range s.cfg.Candidates {
		if err := ctx.Err(); err != nil {
			return nil, &domain.RenderError{
				Kind:       domain.KindRenderTimeout,
				Strategy:   s.name,
				Msg:        fmt.Sprintf("stopped before %s", c.Label()),
				Err:        err,
				Candidates: failures,
			}
		}

		body, failure := s.try(ctx, c, req.Payload)
		if failure == nil {
			s.logger.Debug("candidate accepted", "request_id", req.ID, "candidate", c.Label(), "bytes", len(body))
			return body, nil
		}
		s.logger.Debug("candidate rejected",
			"request_id", req.ID,
			"candidate", failure.Candidate,
			"status", failure.Status,
			"reason", failure.Reason)
		failures = append(failures, *failure)
	}

	return nil, &domain.RenderError{
		Kind:       domain.KindAllEndpointsFailed,
		Strategy:   s.name,
		Msg:        fmt.Sprintf("%d candidates rejected", len(failures)),
		Candidates: failures,
	}
}

func (s *Strategy) try(ctx context.Context, c Candidate, payload string) ([]byte, *domain.CandidateFailure) {
	fail := func(status int, format string, args ...any) *domain.CandidateFailure {
		return &domain.CandidateFailure{Candidate: c.Label(), Status: status, Reason: fmt.Sprintf(format, args...)}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	httpReq, err := c.NewRequest(callCtx, s.base, payload)
	if err != nil {
		return nil, fail(0, "build request: %v", err)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fail(0, "timeout after %s", s.cfg.CallTimeout)
		}
		return nil, fail(0, "request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fail(resp.StatusCode, "unexpected status")
	}

	limit := s.checker.Limit()
	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(limit)+1))
	if err != nil {
		return nil, fail(resp.StatusCode, "read body: %v", err)
	}
	if len(body) > limit {
		return nil, fail(resp.StatusCode, "body exceeds %d bytes", limit)
	}
	if _, err := s.checker.Validate(body); err != nil {
		return nil, fail(resp.StatusCode, "not an image: %v", err)
	}
	return body, nil
}
