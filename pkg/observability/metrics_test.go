package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/tablecast/pkg/domain"
	"github.com/aretw0/tablecast/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	h := m.Hooks()
	ctx := context.Background()

	h.OnAttemptStart(ctx, &domain.AttemptEvent{Strategy: "http-api"})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InFlight))
	h.OnAttemptEnd(ctx, &domain.AttemptEvent{Strategy: "http-api", Kind: domain.KindAllEndpointsFailed, Duration: time.Second})
	h.OnAttemptStart(ctx, &domain.AttemptEvent{Strategy: "browser"})
	h.OnAttemptEnd(ctx, &domain.AttemptEvent{Strategy: "browser", Duration: 2 * time.Second})
	h.OnRenderEnd(ctx, &domain.RenderEvent{Strategy: "browser", OK: true, Attempts: 2, Duration: 3 * time.Second})

	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Attempts.WithLabelValues("http-api", "all_endpoints_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Attempts.WithLabelValues("browser", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Renders.WithLabelValues("success", "browser")))

	// Registering twice on the same registry fails.
	_, err = observability.NewMetrics(reg)
	assert.Error(t, err)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	hooks := observability.LogHooks(logger)
	hooks.OnAttemptEnd(context.Background(), &domain.AttemptEvent{
		EventBase: domain.EventBase{RequestID: "req-1"},
		Strategy:  "browser-gb2",
		Kind:      domain.KindNavigationFailed,
		Err:       domain.NewRenderError(domain.KindNavigationFailed, "goto", nil),
	})

	out := buf.String()
	assert.Contains(t, out, "attempt_end")
	assert.Contains(t, out, "request_id=req-1")
	assert.Contains(t, out, "kind=navigation_failed")
}
