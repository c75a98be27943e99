package orchestrator

import (
	"log/slog"

	"github.com/aretw0/tablecast/pkg/domain"
	"github.com/aretw0/tablecast/pkg/imagecheck"
)

// Option defines a functional option for configuring the Orchestrator.
type Option func(*Orchestrator)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithChecker overrides the image acceptance thresholds.
func WithChecker(c imagecheck.Checker) Option {
	return func(o *Orchestrator) {
		o.checker = c
	}
}

// WithHooks registers lifecycle callbacks. Multiple calls are merged in order.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(o *Orchestrator) {
		o.hooks = o.hooks.Merge(hooks)
	}
}
