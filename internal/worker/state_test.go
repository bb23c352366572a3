package worker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_CurrentFile(t *testing.T) {
	s := New(nil)

	_, ok := s.CurrentFile()
	assert.False(t, ok, "new state has no current file")

	s.SetCurrentFile("a.test.ts")
	file, ok := s.CurrentFile()
	require.True(t, ok)
	assert.Equal(t, "a.test.ts", file)

	s.ClearCurrentFile()
	_, ok = s.CurrentFile()
	assert.False(t, ok)
}

func TestState_Close(t *testing.T) {
	s := New([]string{"runtime:"})
	s.SetCurrentFile("a.test.ts")
	s.Mocks.Register("fs", "fake")
	s.Modules.Store("runtime:core", 1)
	s.Modules.Store("src/app.ts", 2)

	s.Close()

	_, ok := s.CurrentFile()
	assert.False(t, ok)
	assert.Zero(t, s.Mocks.Len())
	assert.Equal(t, 1, s.Modules.Len(), "kept modules survive close")
}

func TestMockRegistry(t *testing.T) {
	r := NewMockRegistry()
	r.Register("b", 2)
	r.Register("a", 1)
	r.Register("a", 3)

	impl, ok := r.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, 3, impl, "later registration replaces earlier one")
	assert.Equal(t, []string{"a", "b"}, r.keys())

	r.Clear()
	_, ok = r.Lookup("a")
	assert.False(t, ok)
	assert.Zero(t, r.Len())
}

func TestModuleCache_Reset(t *testing.T) {
	tests := []struct {
		name      string
		full      bool
		remaining []string
		discarded int
	}{
		{
			name:      "full reset keeps only kept prefixes",
			full:      true,
			remaining: []string{"runtime:core"},
			discarded: 2,
		},
		{
			name:      "partial reset also keeps mock entries",
			full:      false,
			remaining: []string{"runtime:core", "mock:fs"},
			discarded: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewModuleCache([]string{"runtime:"})
			c.Store("runtime:core", "core")
			c.Store("mock:fs", "fake fs")
			c.Store("src/app.ts", "app")

			assert.Equal(t, tt.discarded, c.Reset(tt.full))
			assert.Equal(t, len(tt.remaining), c.Len())
			for _, id := range tt.remaining {
				_, ok := c.Load(id)
				assert.True(t, ok, "expected %s to survive", id)
			}
		})
	}
}

func TestModuleCache_GetOrLoad(t *testing.T) {
	c := NewModuleCache(nil)
	loads := 0
	load := func() (any, error) {
		loads++
		return "evaluated", nil
	}

	for i := 0; i < 3; i++ {
		m, err := c.GetOrLoad("src/app.ts", load)
		require.NoError(t, err)
		assert.Equal(t, "evaluated", m)
	}
	assert.Equal(t, 1, loads, "module is evaluated once while cached")

	c.Reset(true)
	_, err := c.GetOrLoad("src/app.ts", load)
	require.NoError(t, err)
	assert.Equal(t, 2, loads, "reset forces re-evaluation")

	boom := errors.New("boom")
	_, err = c.GetOrLoad("broken.ts", func() (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	_, ok := c.Load("broken.ts")
	assert.False(t, ok, "failed loads are not cached")
}
