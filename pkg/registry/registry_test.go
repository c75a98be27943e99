package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tablecast/pkg/domain"
	"github.com/aretw0/tablecast/pkg/ports"
	"github.com/aretw0/tablecast/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func named(name string) ports.Strategy {
	return ports.StrategyFunc{ID: name, Fn: func(context.Context, domain.RenderRequest) ([]byte, error) {
		return nil, nil
	}}
}

func TestRegistry_PreservesOrder(t *testing.T) {
	r := registry.NewRegistry()
	require.NoError(t, r.Register(named("http-api"), time.Second))
	require.NoError(t, r.Register(named("browser-gb2"), 0))
	require.NoError(t, r.Register(named("browser-gb"), 5*time.Second))

	entries := r.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "http-api", entries[0].Name())
	assert.Equal(t, "browser-gb2", entries[1].Name())
	assert.Equal(t, "browser-gb", entries[2].Name())
	assert.Equal(t, registry.DefaultTimeout, entries[1].Timeout)
	assert.Equal(t, 5*time.Second, entries[2].Timeout)
}

func TestRegistry_RejectsDuplicatesAndNil(t *testing.T) {
	r := registry.NewRegistry()
	require.NoError(t, r.Register(named("a"), time.Second))
	assert.ErrorIs(t, r.Register(named("a"), time.Second), registry.ErrDuplicateName)
	assert.ErrorIs(t, r.Register(nil, time.Second), registry.ErrNilStrategy)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_EntriesIsSnapshot(t *testing.T) {
	r := registry.NewRegistry()
	r.MustRegister(named("a"), time.Second)
	snap := r.Entries()
	r.MustRegister(named("b"), time.Second)
	assert.Len(t, snap, 1)
	assert.Equal(t, 2, r.Len())
}
