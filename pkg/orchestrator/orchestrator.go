package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/tablecast/pkg/domain"
	"github.com/aretw0/tablecast/pkg/imagecheck"
	"github.com/aretw0/tablecast/pkg/ports"
	"github.com/aretw0/tablecast/pkg/registry"
)

// Orchestrator tries every registered strategy until one yields a valid image.
type Orchestrator struct {
	registry *registry.Registry
	checker  imagecheck.Checker
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
}

// New creates an Orchestrator over the given registry.
func New(reg *registry.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: reg,
		checker:  imagecheck.Default(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Strategies returns the registered strategy names in attempt order.
func (o *Orchestrator) Strategies() []string {
	entries := o.registry.Entries()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}

// Render runs the strategy chain for req. The payload is not re-validated: callers
// build req with domain.NewRenderRequest.
//
// Exactly one of the results is non-nil. On total failure the error is a *domain.Failure.
func (o *Orchestrator) Render(ctx context.Context, req domain.RenderRequest) (*domain.Success, error) {
	start := time.Now()
	entries := o.registry.Entries()
	attempts := make([]domain.AttemptOutcome, 0, len(entries))

	for i, entry := range entries {
		image, outcome := o.attempt(ctx, req, i, entry)
		if outcome == nil {
			o.logger.Info("render succeeded",
				"request_id", req.ID,
				"strategy", entry.Name(),
				"attempts", i+1,
				"bytes", len(image),
				"duration", time.Since(start))
			o.fireRenderEnd(ctx, req, entry.Name(), i+1, start, true)
			return &domain.Success{
				Image:    image,
				Strategy: entry.Name(),
				Attempts: attempts,
			}, nil
		}
		attempts = append(attempts, *outcome)
	}

	o.logger.Warn("render failed",
		"request_id", req.ID,
		"attempts", len(attempts),
		"duration", time.Since(start))
	o.fireRenderEnd(ctx, req, "", len(attempts), start, false)
	return nil, &domain.Failure{Attempts: attempts}
}

// attempt runs one strategy under its own timeout. A nil outcome means success.
func (o *Orchestrator) attempt(ctx context.Context, req domain.RenderRequest, index int, entry registry.Entry) ([]byte, *domain.AttemptOutcome) {
	name := entry.Name()
	log := o.logger.With("request_id", req.ID, "strategy", name, "index", index)

	// A caller that gave up still gets one outcome per strategy, without invoking it.
	if err := ctx.Err(); err != nil {
		log.Debug("attempt skipped", "err", err)
		return nil, &domain.AttemptOutcome{
			Strategy: name,
			Kind:     domain.KindRenderTimeout,
			Message:  "skipped: " + err.Error(),
		}
	}

	if o.hooks.OnAttemptStart != nil {
		o.hooks.OnAttemptStart(ctx, &domain.AttemptEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventAttemptStart, RequestID: req.ID},
			Strategy:  name,
			Index:     index,
		})
	}
	log.Debug("attempt started", "timeout", entry.Timeout)

	attemptCtx, cancel := context.WithTimeout(ctx, entry.Timeout)
	start := time.Now()
	image, err := invoke(attemptCtx, entry.Strategy, req)
	deadline := errors.Is(attemptCtx.Err(), context.DeadlineExceeded)
	cancel()
	elapsed := time.Since(start)

	if err == nil {
		if _, verr := o.checker.Validate(image); verr != nil {
			err = domain.NewRenderError(domain.KindInvalidResponseShape, "rejected image", verr)
		}
	}

	var kind domain.ErrorKind
	if err != nil {
		kind = domain.KindOf(err)
		if kind == domain.KindInternal && deadline {
			kind = domain.KindRenderTimeout
		}
	}

	if o.hooks.OnAttemptEnd != nil {
		o.hooks.OnAttemptEnd(ctx, &domain.AttemptEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventAttemptEnd, RequestID: req.ID},
			Strategy:  name,
			Index:     index,
			Duration:  elapsed,
			Bytes:     len(image),
			Kind:      kind,
			Err:       err,
		})
	}

	if err == nil {
		log.Debug("attempt succeeded", "bytes", len(image), "duration", elapsed)
		return image, nil
	}

	log.Warn("attempt failed", "kind", kind, "duration", elapsed, "err", err)
	return nil, &domain.AttemptOutcome{
		Strategy: name,
		Kind:     kind,
		Message:  err.Error(),
		Duration: elapsed,
	}
}

// invoke calls the strategy, turning a panic into an internal RenderError.
func invoke(ctx context.Context, s ports.Strategy, req domain.RenderRequest) (image []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			image = nil
			err = domain.NewRenderError(domain.KindInternal, fmt.Sprintf("strategy panicked: %v", r), nil)
		}
	}()
	return s.Attempt(ctx, req)
}

func (o *Orchestrator) fireRenderEnd(ctx context.Context, req domain.RenderRequest, winner string, attempts int, start time.Time, ok bool) {
	if o.hooks.OnRenderEnd == nil {
		return
	}
	o.hooks.OnRenderEnd(ctx, &domain.RenderEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventRenderEnd, RequestID: req.ID},
		Strategy:  winner,
		Attempts:  attempts,
		Duration:  time.Since(start),
		OK:        ok,
	})
}
