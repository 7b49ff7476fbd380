package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"zenpulse/internal/api"
	"zenpulse/internal/database"
)

// EntryAPI is the part of the backend the entry store depends on.
type EntryAPI interface {
	ListEntries(ctx context.Context) ([]database.Entry, error)
	UpsertEntry(ctx context.Context, input database.EntryInput) (database.Entry, error)
	AutoMood(ctx context.Context, mood int) (database.Entry, error)
	Stats(ctx context.Context) (*database.Stats, error)
	WeeklySummary(ctx context.Context) (string, error)
}

// EntryStore owns the local copy of the server's daily entries. Nothing else
// writes to the collection.
type EntryStore struct {
	api EntryAPI
	log *zap.Logger
	now func() time.Time

	mu         sync.RWMutex
	entries    []database.Entry
	version    uint64
	lastUpdate time.Time
	err        error
	fetching   int
	saving     int

	// Generations order fetches and writes. applied is the newest generation
	// reflected in entries; fetch responses older than it are dropped.
	issued  uint64
	applied uint64

	subMu       sync.Mutex
	nextSubID   int
	subscribers map[int]func()
}

func NewEntryStore(client EntryAPI, log *zap.Logger) *EntryStore {
	return &EntryStore{
		api:         client,
		log:         log.Named("entries"),
		now:         time.Now,
		lastUpdate:  time.Now(),
		subscribers: make(map[int]func()),
	}
}

// Fetch replaces the collection with the server's. On failure the previous
// collection stays and the error is kept for Err.
func (s *EntryStore) Fetch(ctx context.Context) error {
	s.mu.Lock()
	s.issued++
	gen := s.issued
	s.fetching++
	s.mu.Unlock()

	entries, err := s.api.ListEntries(ctx)

	s.mu.Lock()
	s.fetching--
	if err != nil {
		// a newer fetch or write already landed; its state stands
		if gen > s.applied {
			s.err = err
		}
		s.mu.Unlock()
		s.log.Error("fetch entries failed", zap.Uint64("generation", gen), zap.Error(err))
		return err
	}
	if gen < s.applied {
		s.mu.Unlock()
		s.log.Debug("dropping stale entries response",
			zap.Uint64("generation", gen), zap.Uint64("applied", s.applied))
		return nil
	}
	s.applied = gen
	s.entries = entries
	s.err = nil
	s.touchLocked()
	s.mu.Unlock()

	s.log.Debug("entries refreshed", zap.Int("count", len(entries)), zap.Uint64("generation", gen))
	s.notify()
	return nil
}

// Upsert saves partial fields for today. The server's entry replaces any
// local entry with the same date.
func (s *EntryStore) Upsert(ctx context.Context, input database.EntryInput) (database.Entry, error) {
	if input.Mood != nil && (*input.Mood < database.MinMood || *input.Mood > database.MaxMood) {
		return database.Entry{}, &api.ValidationError{Field: "mood", Message: fmt.Sprintf("must be between %d and %d", database.MinMood, database.MaxMood)}
	}
	return s.mutate(ctx, "upsert", true, func(ctx context.Context) (database.Entry, error) {
		return s.api.UpsertEntry(ctx, input)
	})
}

// AutoUpdateMood saves a mood inferred from chat sentiment.
func (s *EntryStore) AutoUpdateMood(ctx context.Context, mood int) (database.Entry, error) {
	if mood < database.MinMood || mood > database.MaxMood {
		return database.Entry{}, &api.ValidationError{Field: "mood", Message: fmt.Sprintf("must be between %d and %d", database.MinMood, database.MaxMood)}
	}
	return s.mutate(ctx, "auto mood", false, func(ctx context.Context) (database.Entry, error) {
		entry, err := s.api.AutoMood(ctx, mood)
		if err != nil {
			return entry, err
		}
		entry.MoodAutoUpdated = true
		return entry, nil
	})
}

// mutate applies a single-entry write. A failure is kept for Err only when
// reportErr is set; otherwise it is logged and left to the caller.
func (s *EntryStore) mutate(ctx context.Context, op string, reportErr bool, call func(context.Context) (database.Entry, error)) (database.Entry, error) {
	s.mu.Lock()
	s.saving++
	s.mu.Unlock()

	entry, err := call(ctx)

	s.mu.Lock()
	s.saving--
	if err != nil {
		if reportErr {
			s.err = err
		}
		s.mu.Unlock()
		s.log.Warn(op+" failed", zap.Error(err))
		return database.Entry{}, err
	}

	key := entry.DateKey()
	updated := make([]database.Entry, 0, len(s.entries)+1)
	updated = append(updated, entry)
	for _, e := range s.entries {
		if e.DateKey() != key {
			updated = append(updated, e)
		}
	}
	s.entries = updated
	// the write takes its own generation so fetches issued before it, which
	// may not contain it, are dropped
	s.issued++
	s.applied = s.issued
	s.touchLocked()
	s.mu.Unlock()

	s.log.Info(op+" saved", zap.String("date", key), zap.Int("mood", entry.Mood), zap.Bool("auto", entry.MoodAutoUpdated))
	s.notify()
	return entry, nil
}

// Stats and WeeklySummary are read-through; their failures go to the caller
// and never touch Err.
func (s *EntryStore) Stats(ctx context.Context) (*database.Stats, error) {
	stats, err := s.api.Stats(ctx)
	if err != nil {
		s.log.Debug("stats failed", zap.Error(err))
		return nil, err
	}
	return stats, nil
}

func (s *EntryStore) WeeklySummary(ctx context.Context) (string, error) {
	summary, err := s.api.WeeklySummary(ctx)
	if err != nil {
		s.log.Debug("weekly summary failed", zap.Error(err))
		return "", err
	}
	return summary, nil
}

// Entries returns a copy of the collection.
func (s *EntryStore) Entries() []database.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]database.Entry(nil), s.entries...)
}

func (s *EntryStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *EntryStore) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}

// Err is the last entry fetch or user write failure, cleared by the next
// successful fetch.
func (s *EntryStore) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *EntryStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetching > 0
}

func (s *EntryStore) Saving() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saving > 0
}

// Subscribe registers fn to run after every successful change. The returned
// func removes it.
func (s *EntryStore) Subscribe(fn func()) func() {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

func (s *EntryStore) touchLocked() {
	s.version++
	s.lastUpdate = s.now()
}

func (s *EntryStore) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
