package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyPayload is returned when a render request is built from blank text.
var ErrEmptyPayload = errors.New("empty payload")

// ErrInvalidInput wraps every input rejection that happens before rendering, so
// adapters can answer with a client error.
var ErrInvalidInput = errors.New("invalid input")

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// ErrNoElement is returned by browser sessions when a selector matches nothing.
var ErrNoElement = errors.New("no element matches selector")

// ErrLimiterClosed is returned when a session limiter no longer hands out slots.
var ErrLimiterClosed = errors.New("session limiter closed")

// ErrorKind classifies why a strategy attempt failed.
type ErrorKind string

const (
	KindLaunchFailed          ErrorKind = "launch_failed"
	KindNavigationFailed      ErrorKind = "navigation_failed"
	KindInputSurfaceNotFound  ErrorKind = "input_surface_not_found"
	KindOutputSurfaceNotFound ErrorKind = "output_surface_not_found"
	KindInjectionFailed       ErrorKind = "injection_failed"
	KindCaptureFailed         ErrorKind = "capture_failed"
	KindRenderTimeout         ErrorKind = "render_timeout"
	KindAllEndpointsFailed    ErrorKind = "all_endpoints_failed"
	KindInvalidResponseShape  ErrorKind = "invalid_response_shape"
	KindInternal              ErrorKind = "internal"
)

// CandidateFailure records why one HTTP candidate was rejected.
type CandidateFailure struct {
	Candidate string `json:"candidate"`
	Status    int    `json:"status,omitempty"` // HTTP status, 0 when no response was received
	Reason    string `json:"reason"`
}

func (c CandidateFailure) String() string {
	if c.Status != 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", c.Candidate, c.Status, c.Reason)
	}
	return fmt.Sprintf("%s: %s", c.Candidate, c.Reason)
}

// RenderError is the typed error returned by strategies.
type RenderError struct {
	Kind     ErrorKind
	Strategy string
	Msg      string
	Err      error

	// Candidates is set for KindAllEndpointsFailed, in candidate order.
	Candidates []CandidateFailure
}

// NewRenderError builds a RenderError wrapping err.
func NewRenderError(kind ErrorKind, msg string, err error) *RenderError {
	return &RenderError{Kind: kind, Msg: msg, Err: err}
}

func (e *RenderError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	for _, c := range e.Candidates {
		b.WriteString("; ")
		b.WriteString(c.String())
	}
	return b.String()
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// KindOf classifies any error returned by a strategy.
// The kind of a RenderError wins over the cause it wraps, so a navigation that hit
// its own deadline stays a navigation failure. Bare deadline errors are timeouts.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var re *RenderError
	if errors.As(err, &re) && re.Kind != "" {
		return re.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindRenderTimeout
	}
	return KindInternal
}
