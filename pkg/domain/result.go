package domain

import (
	"fmt"
	"strings"
	"time"
)

// AttemptOutcome records one failed strategy attempt.
type AttemptOutcome struct {
	Strategy string        `json:"strategy"`
	Kind     ErrorKind     `json:"kind"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration"`
}

// Success is the outcome of a render that produced an image.
type Success struct {
	Image    []byte
	Strategy string
	// Attempts lists the strategies that failed before Strategy succeeded.
	Attempts []AttemptOutcome
}

// Failure is the outcome of a render where every registered strategy failed.
// It implements error so callers can use errors.As on the render error.
type Failure struct {
	Attempts []AttemptOutcome `json:"attempts"`
}

func (f *Failure) Error() string {
	if len(f.Attempts) == 0 {
		return "render failed: no strategies registered"
	}
	parts := make([]string, 0, len(f.Attempts))
	for _, a := range f.Attempts {
		parts = append(parts, fmt.Sprintf("%s (%s)", a.Strategy, a.Kind))
	}
	return fmt.Sprintf("render failed after %d attempts: %s", len(f.Attempts), strings.Join(parts, ", "))
}

// Summary renders the attempts as a Markdown list, one line per strategy in attempt order.
// It is meant for users and operators diagnosing a changed external contract.
func (f *Failure) Summary() string {
	var b strings.Builder
	b.WriteString("**Rendering failed.** Strategies tried:\n\n")
	if len(f.Attempts) == 0 {
		b.WriteString("_none registered_\n")
		return b.String()
	}
	for i, a := range f.Attempts {
		fmt.Fprintf(&b, "%d. `%s`: **%s** after %s", i+1, a.Strategy, a.Kind, a.Duration.Round(time.Millisecond))
		if a.Message != "" {
			fmt.Fprintf(&b, ": %s", a.Message)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Kinds returns the error kind of every attempt, in order.
func (f *Failure) Kinds() []ErrorKind {
	kinds := make([]ErrorKind, len(f.Attempts))
	for i, a := range f.Attempts {
		kinds[i] = a.Kind
	}
	return kinds
}
