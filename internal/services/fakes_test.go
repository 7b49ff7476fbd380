package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"zenpulse/internal/api"
	"zenpulse/internal/database"
)

var errUnreachable = &api.NetworkError{Op: "test", Err: errors.New("connection refused")}

// fakeBackend answers from func fields; nil funcs fail with a network error.
type fakeBackend struct {
	mu    sync.Mutex
	token string

	list    func(ctx context.Context) ([]database.Entry, error)
	upsert  func(ctx context.Context, in database.EntryInput) (database.Entry, error)
	auto    func(ctx context.Context, mood int) (database.Entry, error)
	stats   func(ctx context.Context) (*database.Stats, error)
	summary func(ctx context.Context) (string, error)
	chat    func(ctx context.Context, msg string) (api.ChatReply, error)
	login   func(ctx context.Context, email, password string) (api.LoginResult, error)
	reg     func(ctx context.Context, in api.RegisterInput) error
	me      func(ctx context.Context) (database.User, error)

	autoCalls []int
}

func (f *fakeBackend) ListEntries(ctx context.Context) ([]database.Entry, error) {
	if f.list == nil {
		return nil, errUnreachable
	}
	return f.list(ctx)
}

func (f *fakeBackend) UpsertEntry(ctx context.Context, in database.EntryInput) (database.Entry, error) {
	if f.upsert == nil {
		return database.Entry{}, errUnreachable
	}
	return f.upsert(ctx, in)
}

func (f *fakeBackend) AutoMood(ctx context.Context, mood int) (database.Entry, error) {
	f.mu.Lock()
	f.autoCalls = append(f.autoCalls, mood)
	f.mu.Unlock()
	if f.auto == nil {
		return database.Entry{}, errUnreachable
	}
	return f.auto(ctx, mood)
}

func (f *fakeBackend) Stats(ctx context.Context) (*database.Stats, error) {
	if f.stats == nil {
		return nil, errUnreachable
	}
	return f.stats(ctx)
}

func (f *fakeBackend) WeeklySummary(ctx context.Context) (string, error) {
	if f.summary == nil {
		return "", errUnreachable
	}
	return f.summary(ctx)
}

func (f *fakeBackend) Chat(ctx context.Context, msg string) (api.ChatReply, error) {
	if f.chat == nil {
		return api.ChatReply{}, errUnreachable
	}
	return f.chat(ctx, msg)
}

func (f *fakeBackend) Login(ctx context.Context, email, password string) (api.LoginResult, error) {
	if f.login == nil {
		return api.LoginResult{}, errUnreachable
	}
	return f.login(ctx, email, password)
}

func (f *fakeBackend) Register(ctx context.Context, in api.RegisterInput) error {
	if f.reg == nil {
		return errUnreachable
	}
	return f.reg(ctx, in)
}

func (f *fakeBackend) Me(ctx context.Context) (database.User, error) {
	if f.me == nil {
		return database.User{}, errUnreachable
	}
	return f.me(ctx)
}

func (f *fakeBackend) SetToken(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

func (f *fakeBackend) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

// memStorage is an in-memory SessionStorage.
type memStorage struct {
	mu    sync.Mutex
	items map[string]string
	fail  bool
}

func newMemStorage() *memStorage {
	return &memStorage{items: make(map[string]string)}
}

func (m *memStorage) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memStorage) SetItems(_ context.Context, items map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("disk full")
	}
	for k, v := range items {
		m.items[k] = v
	}
	return nil
}

func (m *memStorage) RemoveItem(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

func day(s string) time.Time {
	t, err := time.ParseInLocation(database.DateLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func entry(date string, mood int, sentiment database.Sentiment) database.Entry {
	return database.Entry{Date: day(date), Mood: mood, Sentiment: sentiment}
}

func staticEntries(entries ...database.Entry) func(context.Context) ([]database.Entry, error) {
	return func(context.Context) ([]database.Entry, error) {
		return append([]database.Entry(nil), entries...), nil
	}
}
