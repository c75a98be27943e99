package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/tablecast/pkg/ports"
)

// DefaultTimeout is the execution budget of an entry registered without one.
const DefaultTimeout = 60 * time.Second

var (
	ErrDuplicateName = errors.New("strategy already registered")
	ErrNilStrategy   = errors.New("strategy is nil")
)

// Entry is a registered strategy with its own execution budget.
type Entry struct {
	Strategy ports.Strategy
	Timeout  time.Duration
}

// Name returns the name of the wrapped strategy.
func (e Entry) Name() string {
	return e.Strategy.Name()
}

// Registry holds the ordered list of strategies tried for every render.
// Registration order is attempt order.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
	names   map[string]struct{}
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		names: make(map[string]struct{}),
	}
}

// Register appends a strategy with the given timeout.
// A non-positive timeout falls back to DefaultTimeout. Names must be unique.
func (r *Registry) Register(s ports.Strategy, timeout time.Duration) error {
	if s == nil {
		return ErrNilStrategy
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, ok := r.names[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	r.names[name] = struct{}{}
	r.entries = append(r.entries, Entry{Strategy: s, Timeout: timeout})
	return nil
}

// MustRegister is like Register but panics on error. Intended for tests and static wiring.
func (r *Registry) MustRegister(s ports.Strategy, timeout time.Duration) {
	if err := r.Register(s, timeout); err != nil {
		panic(err)
	}
}

// Entries returns a snapshot of the registered strategies in attempt order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of registered strategies.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
