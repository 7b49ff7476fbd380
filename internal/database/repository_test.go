package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStorageSetGetRemove(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(openTestDB(t), "tab-1")

	_, ok, err := s.GetItem(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetItem(ctx, "k", "v1"))
	require.NoError(t, s.SetItem(ctx, "k", "v2"))

	value, ok, err := s.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", value)

	require.NoError(t, s.RemoveItem(ctx, "k"))
	_, ok, err = s.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStorageIsScopedByTab(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	a := NewStorage(db, "tab-a")
	b := NewStorage(db, "tab-b")

	require.NoError(t, a.SetItems(ctx, map[string]string{"x": "1", "y": "2"}))

	_, ok, err := b.GetItem(ctx, "x")
	require.NoError(t, err)
	assert.False(t, ok)

	value, ok, err := a.GetItem(ctx, "y")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", value)
}

func TestTallyAndSentiment(t *testing.T) {
	var tally SentimentTally
	tally.Add(Positive)
	tally.Add(Negative)
	tally.Add(Sentiment("ecstatic"))
	tally.Add("")

	assert.Equal(t, SentimentTally{Positive: 1, Neutral: 2, Negative: 1}, tally)
	assert.Equal(t, 4, tally.Total())
	assert.Equal(t, Neutral, Sentiment("weird").Normalize())
	assert.Equal(t, 1, ClampMood(-3))
	assert.Equal(t, 5, ClampMood(9))
	assert.Equal(t, 4, ClampMood(4))
}
