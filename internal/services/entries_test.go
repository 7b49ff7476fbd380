package services

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"zenpulse/internal/api"
	"zenpulse/internal/database"
)

func TestFetchReplacesEntries(t *testing.T) {
	backend := &fakeBackend{list: staticEntries(
		entry("2024-01-01", 2, database.Negative),
		entry("2024-01-02", 4, database.Positive),
	)}
	store := NewEntryStore(backend, zap.NewNop())

	var notified int32
	store.Subscribe(func() { atomic.AddInt32(&notified, 1) })

	require.NoError(t, store.Fetch(context.Background()))
	assert.Len(t, store.Entries(), 2)
	assert.Equal(t, uint64(1), store.Version())
	assert.Equal(t, int32(1), atomic.LoadInt32(&notified))
	assert.NoError(t, store.Err())
	assert.False(t, store.Loading())
}

func TestFetchFailureKeepsPreviousEntries(t *testing.T) {
	backend := &fakeBackend{list: staticEntries(entry("2024-01-01", 2, ""))}
	store := NewEntryStore(backend, zap.NewNop())
	require.NoError(t, store.Fetch(context.Background()))
	before := store.Entries()

	backend.list = nil
	err := store.Fetch(context.Background())

	require.Error(t, err)
	assert.True(t, api.IsNetworkError(err))
	assert.Equal(t, err, store.Err())
	assert.Empty(t, cmp.Diff(before, store.Entries()))
}

func TestUpsertReplacesSameDate(t *testing.T) {
	backend := &fakeBackend{
		list: staticEntries(
			entry("2024-01-01", 2, ""),
			entry("2024-01-02", 3, ""),
		),
		upsert: func(_ context.Context, in database.EntryInput) (database.Entry, error) {
			e := entry("2024-01-02", *in.Mood, database.Positive)
			return e, nil
		},
	}
	store := NewEntryStore(backend, zap.NewNop())
	require.NoError(t, store.Fetch(context.Background()))

	mood := 5
	saved, err := store.Upsert(context.Background(), database.EntryInput{Mood: &mood})
	require.NoError(t, err)
	assert.Equal(t, database.Positive, saved.Sentiment, "server fields win")

	entries := store.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "2024-01-02", entries[0].DateKey())
	assert.Equal(t, 5, entries[0].Mood)
	assert.Equal(t, "2024-01-01", entries[1].DateKey())
}

func TestUpsertNetworkFailureLeavesEntriesUnchanged(t *testing.T) {
	backend := &fakeBackend{list: staticEntries(
		entry("2024-01-01", 2, database.Negative),
		entry("2024-01-02", 4, ""),
	)}
	store := NewEntryStore(backend, zap.NewNop())
	require.NoError(t, store.Fetch(context.Background()))
	before := store.Entries()
	version := store.Version()

	mood := 1
	_, err := store.Upsert(context.Background(), database.EntryInput{Mood: &mood})

	require.Error(t, err)
	assert.True(t, api.IsNetworkError(err))
	assert.Empty(t, cmp.Diff(before, store.Entries()))
	assert.Equal(t, version, store.Version())
	assert.False(t, store.Saving())
}

func TestUpsertRejectsOutOfRangeMood(t *testing.T) {
	called := false
	backend := &fakeBackend{upsert: func(context.Context, database.EntryInput) (database.Entry, error) {
		called = true
		return database.Entry{}, nil
	}}
	store := NewEntryStore(backend, zap.NewNop())

	mood := 6
	_, err := store.Upsert(context.Background(), database.EntryInput{Mood: &mood})
	assert.True(t, api.IsValidationError(err))
	assert.False(t, called)
}

func TestAutoUpdateMoodForcesFlag(t *testing.T) {
	backend := &fakeBackend{auto: func(_ context.Context, mood int) (database.Entry, error) {
		return entry("2024-01-03", mood, ""), nil
	}}
	store := NewEntryStore(backend, zap.NewNop())

	saved, err := store.AutoUpdateMood(context.Background(), 4)
	require.NoError(t, err)
	assert.True(t, saved.MoodAutoUpdated)
	assert.True(t, store.Entries()[0].MoodAutoUpdated)
}

func TestStaleFetchIsDropped(t *testing.T) {
	slowRelease := make(chan struct{})
	slowStarted := make(chan struct{})
	var calls int32

	backend := &fakeBackend{list: func(ctx context.Context) ([]database.Entry, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(slowStarted)
			<-slowRelease
			return []database.Entry{entry("2024-01-01", 1, "")}, nil
		}
		return []database.Entry{entry("2024-01-01", 5, "")}, nil
	}}
	store := NewEntryStore(backend, zap.NewNop())

	done := make(chan error)
	go func() { done <- store.Fetch(context.Background()) }()
	<-slowStarted

	require.NoError(t, store.Fetch(context.Background()))
	close(slowRelease)
	require.NoError(t, <-done)

	entries := store.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, 5, entries[0].Mood, "older response must not overwrite newer one")
}

func TestFetchIssuedBeforeWriteIsDropped(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	backend := &fakeBackend{
		list: func(ctx context.Context) ([]database.Entry, error) {
			close(started)
			<-release
			return []database.Entry{entry("2024-01-01", 2, "")}, nil
		},
		auto: func(_ context.Context, mood int) (database.Entry, error) {
			return entry("2024-01-01", mood, ""), nil
		},
	}
	store := NewEntryStore(backend, zap.NewNop())

	done := make(chan error)
	go func() { done <- store.Fetch(context.Background()) }()
	<-started

	_, err := store.AutoUpdateMood(context.Background(), 5)
	require.NoError(t, err)
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, 5, store.Entries()[0].Mood)
}

func TestUnsubscribe(t *testing.T) {
	backend := &fakeBackend{list: staticEntries()}
	store := NewEntryStore(backend, zap.NewNop())

	count := 0
	cancel := store.Subscribe(func() { count++ })
	require.NoError(t, store.Fetch(context.Background()))
	cancel()
	require.NoError(t, store.Fetch(context.Background()))

	assert.Equal(t, 1, count)
}

func TestStaleFetchFailureKeepsNewerState(t *testing.T) {
	slowRelease := make(chan struct{})
	slowStarted := make(chan struct{})
	var calls int32

	backend := &fakeBackend{list: func(ctx context.Context) ([]database.Entry, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(slowStarted)
			<-slowRelease
			return nil, errUnreachable
		}
		return []database.Entry{entry("2024-01-01", 4, "")}, nil
	}}
	store := NewEntryStore(backend, zap.NewNop())

	done := make(chan error)
	go func() { done <- store.Fetch(context.Background()) }()
	<-slowStarted

	require.NoError(t, store.Fetch(context.Background()))
	close(slowRelease)
	require.Error(t, <-done)

	assert.NoError(t, store.Err())
	assert.Len(t, store.Entries(), 1)
}

func TestReadThroughFailuresLeaveErrAlone(t *testing.T) {
	backend := &fakeBackend{list: staticEntries(entry("2024-01-01", 3, ""))}
	store := NewEntryStore(backend, zap.NewNop())
	require.NoError(t, store.Fetch(context.Background()))

	_, err := store.Stats(context.Background())
	require.Error(t, err)
	_, err = store.WeeklySummary(context.Background())
	require.Error(t, err)
	_, err = store.AutoUpdateMood(context.Background(), 4)
	require.Error(t, err)

	assert.NoError(t, store.Err())
}

func TestUpsertFailureIsReported(t *testing.T) {
	store := NewEntryStore(&fakeBackend{}, zap.NewNop())
	mood := 4

	_, err := store.Upsert(context.Background(), database.EntryInput{Mood: &mood})
	require.Error(t, err)
	assert.Equal(t, err, store.Err())
}
