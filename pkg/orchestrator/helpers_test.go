package orchestrator_test

import (
	"context"

	"github.com/aretw0/tablecast/pkg/domain"
	"github.com/aretw0/tablecast/pkg/ports"
)

func strategyFunc(name string, fn func(ctx context.Context) ([]byte, error)) ports.Strategy {
	return ports.StrategyFunc{ID: name, Fn: func(ctx context.Context, _ domain.RenderRequest) ([]byte, error) {
		return fn(ctx)
	}}
}
