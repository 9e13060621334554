package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scenemesh/session"
)

func TestSessionBuilder(t *testing.T) {
	s := NewSessionBuilder().Scene("greet").Data("step", 1).Build()
	assert.Equal(t, "greet", s.CurrentScene)
	assert.Equal(t, map[string]any{"step": 1}, s.Data)
}

func TestRecordingStore_Journal(t *testing.T) {
	rec := NewRecordingStore(session.NewInMemoryStore())
	ctx := context.Background()

	NewSessionBuilder().Scene("a").Seed(rec, "u1")
	_, err := rec.Get(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, rec.Delete(ctx, "u1"))

	assert.Len(t, rec.Ops(), 3)
	assert.Equal(t, []string{"set(u1,a)", "delete(u1)"}, rec.Writes())

	rec.Reset()
	assert.Empty(t, rec.Ops())
}
