package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventAttemptStart EventType = "attempt_start"
	EventAttemptEnd   EventType = "attempt_end"
	EventRenderEnd    EventType = "render_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RequestID string    `json:"request_id"`
}

// AttemptEvent represents the start or end of one strategy attempt.
type AttemptEvent struct {
	EventBase
	Strategy string        `json:"strategy"`
	Index    int           `json:"index"`
	Duration time.Duration `json:"duration,omitempty"`
	Bytes    int           `json:"bytes,omitempty"`
	Kind     ErrorKind     `json:"kind,omitempty"` // empty on success
	Err      error         `json:"-"`
}

// RenderEvent represents the end of a whole render invocation.
type RenderEvent struct {
	EventBase
	Strategy string        `json:"strategy,omitempty"` // winning strategy, empty on failure
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
	OK       bool          `json:"ok"`
}

// LifecycleHooks defines callbacks for orchestrator observability.
// Any field may be nil.
type LifecycleHooks struct {
	OnAttemptStart func(context.Context, *AttemptEvent)
	OnAttemptEnd   func(context.Context, *AttemptEvent)
	OnRenderEnd    func(context.Context, *RenderEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnAttemptStart: chain(h.OnAttemptStart, other.OnAttemptStart),
		OnAttemptEnd:   chain(h.OnAttemptEnd, other.OnAttemptEnd),
		OnRenderEnd:    chain(h.OnRenderEnd, other.OnRenderEnd),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
