package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"zenpulse/internal/api"
	"zenpulse/internal/database"
)

func TestPepTalkUsesNewestEntry(t *testing.T) {
	older := entry("2024-01-01", 3, "")
	older.AIPepTalk = "yesterday's words"
	newest := entry("2024-01-02", 4, "")
	newest.AIPepTalk = "Keep going."

	src := fixedSource{}
	assert.Equal(t, "Keep going.", PepTalk([]database.Entry{older, newest}, NewMoodMapper(&src)))
}

func TestPepTalkFallsBackToList(t *testing.T) {
	tests := []struct {
		name    string
		entries []database.Entry
		draw    float64
		want    string
	}{
		{name: "no entries", draw: 0, want: PepTalks[0]},
		{name: "newest without pep talk", entries: []database.Entry{entry("2024-01-02", 3, "")}, draw: 0.99, want: PepTalks[len(PepTalks)-1]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := fixedSource{tt.draw}
			assert.Equal(t, tt.want, PepTalk(tt.entries, NewMoodMapper(&src)))
		})
	}
}

func TestIntnStaysInRange(t *testing.T) {
	src := fixedSource{0, 0.5, 0.999999}
	m := NewMoodMapper(&src)
	assert.Equal(t, 0, m.Intn(8))
	assert.Equal(t, 4, m.Intn(8))
	assert.Equal(t, 7, m.Intn(8))
	assert.Equal(t, 0, m.Intn(0))
}

func TestJourney(t *testing.T) {
	a := entry("2024-01-01", 5, database.Positive)
	a.TasksCompleted = 3
	b := entry("2024-01-02", 4, database.Neutral)
	b.TasksCompleted = 2
	c := entry("2024-01-03", 1, database.Positive)

	assert.Equal(t, JourneyStats{TotalEntries: 3, PositiveDays: 2, GreatDays: 2, AvgTasks: 2}, Journey([]database.Entry{a, b, c}))
	assert.Equal(t, JourneyStats{}, Journey(nil))
}

func TestFailedAutoMoodStaysOffDashboard(t *testing.T) {
	today := time.Now().UTC().Format(database.DateLayout)
	backend := &fakeBackend{
		list: staticEntries(entry(today, 3, "")),
		chat: func(context.Context, string) (api.ChatReply, error) {
			return api.ChatReply{Response: "That sounds heavy.", Sentiment: database.Negative}, nil
		},
	}
	sm := NewServiceManager(context.Background(), backend, newMemStorage(), nil, time.UTC, zap.NewNop())
	_, err := sm.Refresh(context.Background())
	require.NoError(t, err)

	res, err := sm.SendChat(context.Background(), "bad day")
	require.NoError(t, err)
	require.Equal(t, TurnMoodUpdateFailed, res.State)

	d := sm.Dashboard()
	assert.Empty(t, d.Error)
	assert.Equal(t, 3, d.CurrentMood)
}

func TestOverviewSummaryFailureStaysOffDashboard(t *testing.T) {
	backend := &fakeBackend{list: staticEntries(entry("2024-01-01", 4, ""))}
	sm := NewServiceManager(context.Background(), backend, newMemStorage(), nil, time.UTC, zap.NewNop())

	ov, err := sm.Overview(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ov.Summary)
	assert.Empty(t, ov.Dashboard.Error)
	assert.NotEmpty(t, ov.PepTalk)
}
