package gateway

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBackend(key, name string) Backend {
	cfg := BaseConfig()
	cfg.Name = name
	cfg.URLs[EndpointCreate] = "http://gateway.test/create"
	b := NewBase(key, cfg)
	return &b
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	reg := NewRegistry()
	a := testBackend("alpha", "Alpha")
	b := testBackend("beta", "Beta")

	require.NoError(t, reg.Register(a))
	require.NoError(t, reg.Register(b))
	require.ErrorIs(t, reg.Register(testBackend("alpha", "Alpha again")), ErrAlreadyRegistered)

	got, ok := reg.Get("beta")
	require.True(t, ok)
	require.Same(t, b, got)

	_, ok = reg.Get("gamma")
	require.False(t, ok)
	_, err := reg.Resolve("gamma")
	require.ErrorIs(t, err, ErrNotRegistered)

	require.Equal(t, []Choice{{Key: "alpha", Name: "Alpha"}, {Key: "beta", Name: "Beta"}}, reg.Choices())
}

func TestRegistry_Unregister(t *testing.T) {
	reg := NewRegistry()
	a := testBackend("alpha", "Alpha")
	require.NoError(t, reg.Register(a))
	require.True(t, reg.IsRegistered(a))

	require.NoError(t, reg.Unregister(a))
	require.False(t, reg.IsRegistered(a))
	require.Empty(t, reg.Choices())
	require.ErrorIs(t, reg.Unregister(a), ErrNotRegistered)
}

func TestRegistry_ChoicesIsACopy(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(testBackend("alpha", "Alpha")))

	choices := reg.Choices()
	choices[0].Name = "mutated"
	require.Equal(t, "Alpha", reg.Choices()[0].Name)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			assert.NoError(t, reg.Register(testBackend(key, key)))
			_, ok := reg.Get(key)
			assert.True(t, ok)
			_ = reg.Choices()
		}(i)
	}
	wg.Wait()
	require.Len(t, reg.Choices(), 16)
}
