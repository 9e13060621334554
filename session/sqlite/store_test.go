package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scenemesh/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.ErrorContains(t, err, "storage path is required")
}

func TestStore_GetMissing(t *testing.T) {
	s := openTestStore(t)
	got, err := s.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_SetReplacesAndRoundTrips(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Set(ctx, "u1", &core.Session{CurrentScene: "a", Data: map[string]any{"x": "1", "y": "2"}}))
	require.NoError(t, s.Set(ctx, "u1", &core.Session{CurrentScene: "greet", Data: map[string]any{"step": 1}}))

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "greet", got.CurrentScene)
	assert.Equal(t, map[string]any{"step": float64(1)}, got.Data)
}

func TestStore_NoSceneStoredAsNull(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Set(ctx, "u1", &core.Session{Data: map[string]any{"kept": true}}))

	var isNull bool
	require.NoError(t, s.sqlDB.QueryRow(`SELECT current_scene IS NULL FROM scene_sessions WHERE user_id = ?`, "u1").Scan(&isNull))
	assert.True(t, isNull)

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, got.InScene())
	assert.Equal(t, true, got.Data["kept"])
}

func TestStore_UpdatedAtUsesClock(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.Set(ctx, "u1", core.NewSession()))

	var updated int64
	require.NoError(t, s.sqlDB.QueryRow(`SELECT updated_at FROM scene_sessions WHERE user_id = ?`, "u1").Scan(&updated))
	assert.Equal(t, fixed.UnixMilli(), updated)
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Set(ctx, "u1", core.NewSession()))
	require.NoError(t, s.Delete(ctx, "u1"))
	require.NoError(t, s.Delete(ctx, "u1"))

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_CancelledContext(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Get(ctx, "u1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Set(ctx, "u1", nil), context.Canceled)
	assert.ErrorIs(t, s.Delete(ctx, "u1"), context.Canceled)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "u1", &core.Session{CurrentScene: "a", Data: map[string]any{"k": "v"}}))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	got, err := s2.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "a", got.CurrentScene)
	assert.Equal(t, "v", got.Data["k"])
}

func TestStore_NilStoreNotConfigured(t *testing.T) {
	var s *Store
	_, err := s.Get(context.Background(), "u1")
	assert.ErrorContains(t, err, "storage is not configured")
	assert.NoError(t, s.Close())
}
