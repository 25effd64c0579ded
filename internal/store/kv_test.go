package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storages runs the same contract against both implementations.
func storages(t *testing.T) map[string]Storage {
	return map[string]Storage{
		"sqlite": createTestStore(t),
		"memory": NewMemory(),
	}
}

func TestStorage_GetMissing(t *testing.T) {
	for name, s := range storages(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(context.Background(), "nope")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStorage_SetOverwrites(t *testing.T) {
	for name, s := range storages(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Set(ctx, "k", []byte("one")))
			require.NoError(t, s.Set(ctx, "k", []byte("two")))

			got, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "two", string(got))
		})
	}
}

func TestStorage_Delete(t *testing.T) {
	for name, s := range storages(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Set(ctx, "k", []byte("v")))
			require.NoError(t, s.Delete(ctx, "k"))
			require.NoError(t, s.Delete(ctx, "k"), "deleting a missing key is not an error")

			_, err := s.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStorage_KeysByPrefix(t *testing.T) {
	for name, s := range storages(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, k := range []string{"tracker_cache_2", "tracker_cache_10", "habit_completion_offline_queue", "tracker%"} {
				require.NoError(t, s.Set(ctx, k, []byte("{}")))
			}

			keys, err := s.Keys(ctx, "tracker_cache_")
			require.NoError(t, err)
			assert.Equal(t, []string{"tracker_cache_10", "tracker_cache_2"}, keys)

			keys, err = s.Keys(ctx, "nothing_")
			require.NoError(t, err)
			assert.Empty(t, keys)
		})
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.db")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Set(ctx, "habit_completion_offline_queue", []byte(`[]`)))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(ctx, "habit_completion_offline_queue")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
}

func TestMemory_ReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	v := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", v))
	v[0] = 'z'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}
