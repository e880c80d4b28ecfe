package dedupdb

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestStoreRoundtrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "dedup.db")

	s, err := Open(path)
	assert.NoError(t, err)
	assert.NotZero(t, s.RunID())

	assert.NoError(t, s.Save(ctx, []string{"a", "b"}))
	assert.NoError(t, s.Close())

	// Reopen and read back what the first run saved.
	s2, err := Open(path)
	assert.NoError(t, err)
	defer s2.Close()
	assert.NotEqual(t, s.RunID(), s2.RunID())

	set, err := s2.Load(ctx)
	assert.NoError(t, err)
	keys := set.Keys()
	sort.Strings(keys)
	assert.Equal(t, []string{"a", "b"}, keys)
	assert.True(t, set.Has("a"))
	assert.False(t, set.Has("c"))
}

func TestStoreSaveIdempotent(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "dedup.db"))
	assert.NoError(t, err)
	defer s.Close()

	assert.NoError(t, s.Save(ctx, []string{"a"}))
	assert.NoError(t, s.Save(ctx, []string{"a", "b"}))

	set, err := s.Load(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(set.Keys()))
}

func TestStoreEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "dedup.db"))
	assert.NoError(t, err)
	defer s.Close()

	set, err := s.Load(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, len(set.Keys()))
}
