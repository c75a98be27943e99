package ports

import (
	"context"

	"github.com/aretw0/tablecast/pkg/domain"
)

// Strategy is a self-contained procedure that attempts the full input-to-image pipeline
// against one integration surface.
//
// Implementations hold no state across invocations. Attempt must honor ctx cancellation
// and must have released every resource it acquired (browser sessions, connections)
// by the time it returns, whatever the outcome.
type Strategy interface {
	// Name identifies the strategy in diagnostics and metrics.
	Name() string

	// Attempt returns the rendered image bytes or an error, preferably a *domain.RenderError.
	Attempt(ctx context.Context, req domain.RenderRequest) ([]byte, error)
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc struct {
	ID string
	Fn func(ctx context.Context, req domain.RenderRequest) ([]byte, error)
}

func (s StrategyFunc) Name() string { return s.ID }

func (s StrategyFunc) Attempt(ctx context.Context, req domain.RenderRequest) ([]byte, error) {
	return s.Fn(ctx, req)
}
