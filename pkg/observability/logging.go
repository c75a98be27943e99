package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/tablecast/pkg/domain"
)

// LogHooks returns hooks writing one structured record per lifecycle event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnAttemptStart: func(ctx context.Context, e *domain.AttemptEvent) {
			logger.DebugContext(ctx, "attempt_start",
				"request_id", e.RequestID,
				"strategy", e.Strategy,
				"index", e.Index)
		},
		OnAttemptEnd: func(ctx context.Context, e *domain.AttemptEvent) {
			if e.Err != nil {
				logger.InfoContext(ctx, "attempt_end",
					"request_id", e.RequestID,
					"strategy", e.Strategy,
					"kind", e.Kind,
					"duration", e.Duration,
					"err", e.Err)
				return
			}
			logger.InfoContext(ctx, "attempt_end",
				"request_id", e.RequestID,
				"strategy", e.Strategy,
				"bytes", e.Bytes,
				"duration", e.Duration)
		},
		OnRenderEnd: func(ctx context.Context, e *domain.RenderEvent) {
			logger.InfoContext(ctx, "render_end",
				"request_id", e.RequestID,
				"ok", e.OK,
				"strategy", e.Strategy,
				"attempts", e.Attempts,
				"duration", e.Duration)
		},
	}
}
