package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"zenpulse/internal/database"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second, time.UTC, zap.NewNop())
}

func TestListEntries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/entries", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		io.WriteString(w, `[
			{"id":1,"entry_date":"2024-01-01","mood":2,"sentiment":"negative"},
			{"id":2,"entry_date":"2024-01-02T00:00:00.000Z","mood":9,"mood_auto_updated":true},
			{"id":3,"entry_date":"bogus","mood":3}
		]`)
	})
	c.SetToken("tok")

	entries, err := c.ListEntries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "2024-01-01", entries[0].DateKey())
	assert.Equal(t, database.Negative, entries[0].Sentiment)
	assert.Equal(t, 5, entries[1].Mood, "mood is clamped into range")
	assert.True(t, entries[1].MoodAutoUpdated)
}

func TestUpsertEntrySendsPartialFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"mood": float64(4), "moodAutoUpdated": false}, body)
		io.WriteString(w, `{"id":5,"entry_date":"2024-02-10","mood":4,"sentiment":"positive"}`)
	})

	mood, auto := 4, false
	entry, err := c.UpsertEntry(context.Background(), database.EntryInput{Mood: &mood, MoodAutoUpdated: &auto})
	require.NoError(t, err)
	assert.Equal(t, 5, entry.ID)
	assert.Equal(t, database.Positive, entry.Sentiment)
}

func TestAutoMood(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/entries/auto-mood", r.URL.Path)
		var body map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 1, body["mood"])
		io.WriteString(w, `{"entry_date":"2024-02-10","mood":1,"mood_auto_updated":true}`)
	})

	entry, err := c.AutoMood(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Mood)
	assert.True(t, entry.MoodAutoUpdated)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "server error is network error",
			status: http.StatusBadGateway,
			check: func(t *testing.T, err error) {
				assert.True(t, IsNetworkError(err))
			},
		},
		{
			name:   "client error carries message",
			status: http.StatusUnauthorized,
			body:   `{"error":"invalid token"}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, "invalid token", apiErr.Message)
				assert.False(t, IsNetworkError(err))
			},
		},
		{
			name:   "bad json is malformed data",
			status: http.StatusOK,
			body:   `{"summary":`,
			check: func(t *testing.T, err error) {
				var md *MalformedDataError
				assert.True(t, errors.As(err, &md))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			_, err := c.WeeklySummary(context.Background())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, time.UTC, zap.NewNop())
	_, err := c.ListEntries(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
}

func TestChatAndStats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chat":
			var req chatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "hello", req.Message)
			io.WriteString(w, `{"response":"hi there","sentiment":"positive"}`)
		case "/entries/stats":
			io.WriteString(w, `{"burnoutRisk":{"risk":true,"streakDays":["2024-01-01","2024-01-02","2024-01-03"]},"entries":[{"entry_date":"2024-01-01","mood":1}]}`)
		default:
			http.NotFound(w, r)
		}
	})

	reply, err := c.Chat(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", reply.Response)
	assert.Equal(t, database.Positive, reply.Sentiment)

	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.True(t, stats.BurnoutRisk.Risk)
	assert.Len(t, stats.BurnoutRisk.StreakDays, 3)
	assert.Len(t, stats.Entries, 1)
}
