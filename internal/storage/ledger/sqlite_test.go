package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/pulse/internal/dedup"
)

var (
	_ dedup.Store = (*SQLite)(nil)
	_ dedup.Store = (*Redis)(nil)
)

func newTestSQLite(t *testing.T, retention time.Duration) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "ledger.db"), retention)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_SaveLoad(t *testing.T) {
	s := newTestSQLite(t, 0)
	ctx := context.Background()

	keys, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, s.Save(ctx, []string{"text|b", "text|a"}))
	require.NoError(t, s.Save(ctx, []string{"text|a", "price|SOLUSDT|LONG|1"}))

	keys, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"price|SOLUSDT|LONG|1", "text|a", "text|b"}, keys)
}

func TestSQLite_Retention(t *testing.T) {
	s := newTestSQLite(t, time.Hour)
	ctx := context.Background()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return start }
	require.NoError(t, s.Save(ctx, []string{"old"}))

	s.now = func() time.Time { return start.Add(90 * time.Minute) }
	keys, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys, "expired key should not seed the ledger")

	require.NoError(t, s.Save(ctx, []string{"new"}))
	keys, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, keys)
}

func TestSQLite_FirstSeenTimeKept(t *testing.T) {
	s := newTestSQLite(t, time.Hour)
	ctx := context.Background()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return start }
	require.NoError(t, s.Save(ctx, []string{"k"}))

	// saving again later must not extend the key's life
	s.now = func() time.Time { return start.Add(30 * time.Minute) }
	require.NoError(t, s.Save(ctx, []string{"k"}))

	s.now = func() time.Time { return start.Add(61 * time.Minute) }
	keys, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSQLite_SeedsLedger(t *testing.T) {
	s := newTestSQLite(t, 0)
	ctx := context.Background()

	first := dedup.New()
	first.Admit("text|headline")
	require.NoError(t, s.Save(ctx, first.Keys()))

	seed, err := s.Load(ctx)
	require.NoError(t, err)
	second := dedup.New(seed...)
	assert.False(t, second.Admit("text|headline"))
}
