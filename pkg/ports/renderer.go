package ports

import (
	"context"

	"github.com/aretw0/tablecast/pkg/domain"
)

// Renderer is the inbound port used by adapters (HTTP, MCP, chat).
// Input rejections wrap domain.ErrInvalidInput; on total failure the error is a
// *domain.Failure.
type Renderer interface {
	Render(ctx context.Context, text string) (*domain.Success, error)
	// Strategies lists the registered strategy names in attempt order.
	Strategies() []string
}
