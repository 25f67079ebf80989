package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *SQLiteHistoryStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetHistory(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveHistory(ctx, Record{MemoryID: "m1", Event: EventAdd, NewValue: "likes go"}))
	require.NoError(t, s.SaveHistory(ctx, Record{MemoryID: "m1", Event: EventUpdate, OldValue: "likes go", NewValue: "likes go and rust"}))
	require.NoError(t, s.SaveHistory(ctx, Record{MemoryID: "m2", Event: EventAdd, NewValue: "lives in berlin"}))

	history, err := s.GetHistoryByMemoryID(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, EventAdd, history[0].Event)
	assert.Equal(t, EventUpdate, history[1].Event)
	assert.Equal(t, "likes go", history[1].OldValue)
	assert.False(t, history[0].CreatedAt.IsZero())
}

func TestGetHistoryUnknownID(t *testing.T) {
	s := newTestStorage(t)

	history, err := s.GetHistoryByMemoryID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestReset(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveHistory(ctx, Record{MemoryID: "m1", Event: EventAdd, NewValue: "x"}))
	require.NoError(t, s.Reset(ctx))

	history, err := s.GetHistoryByMemoryID(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, history)
}
