package cli

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zenpulse/internal/api/apitest"
	"zenpulse/internal/database"
	"zenpulse/internal/services"
)

func init() {
	color.NoColor = true
}

func setEnv(t *testing.T, baseURL string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "session.db")
	t.Setenv("API_BASE_URL", baseURL)
	t.Setenv("API_TOKEN", "")
	t.Setenv("TG_TOKEN", "")
	t.Setenv("SESSION_DB_PATH", dbPath)
	t.Setenv("SESSION_TAB_ID", "cli")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("ZENPULSE_CONFIG", "")
	return dbPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "zenpulse version "+Version+"\n", out)
}

func TestDashboardCommand(t *testing.T) {
	backend := apitest.New(t)
	setEnv(t, backend.URL)
	today := time.Now().UTC().Format("2006-01-02")
	backend.Seed(
		apitest.Entry{EntryDate: "2024-01-01", Mood: 2, Sentiment: "negative"},
		apitest.Entry{EntryDate: today, Mood: 4, Sentiment: "positive"},
	)

	out, err := execute(t, "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "🧘 ZenPulse · "+today)
	assert.Contains(t, out, "Mood: 🙂 4/5 (Good)")
	assert.Contains(t, out, "Last 7 days")
	assert.Contains(t, out, "2024-01-01 😕 2")
	assert.Contains(t, out, "A calm week.")
	assert.Contains(t, out, "2 entries · 1 positive days · 1 great days")
	assert.Contains(t, out, "💝 ")
}

func TestDashboardCommandDuringOutage(t *testing.T) {
	backend := apitest.New(t)
	setEnv(t, backend.URL)
	backend.SetDown(true)

	out, err := execute(t, "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "showing last loaded data")
	assert.Contains(t, out, "Mood: 😐 3/5 (Neutral)")
}

func TestClearSessionCommand(t *testing.T) {
	backend := apitest.New(t)
	setEnv(t, backend.URL)

	out, err := execute(t, "clear-session")
	require.NoError(t, err)
	assert.Contains(t, out, `cleared 0 messages for tab "cli"`)
}

func TestRenderMessagesShowsRecentTurns(t *testing.T) {
	var messages []database.SessionMessage
	at := time.Date(2024, 1, 3, 14, 5, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		messages = append(messages, database.SessionMessage{
			Sender:    database.SenderUser,
			Text:      string(rune('a' + i)),
			Timestamp: at,
		})
	}
	messages = append(messages, database.SessionMessage{
		Sender:    database.SenderAI,
		Text:      "hello",
		Sentiment: database.Positive,
		Timestamp: at,
	})

	var out bytes.Buffer
	renderMessages(&out, messages, time.UTC)

	assert.NotContains(t, out.String(), "You: a\n")
	assert.Contains(t, out.String(), "[14:05] You: g")
	assert.Contains(t, out.String(), "ZenPulse: hello 🟢")
}

func TestRenderOverviewBurnout(t *testing.T) {
	o := services.Overview{
		Dashboard: services.Dashboard{Date: "2024-01-03", CurrentMood: 2, DisplayMood: 2, MoodLabel: "Low"},
		Burnout:   database.BurnoutRisk{Risk: true, StreakDays: []string{"2024-01-01", "2024-01-02", "2024-01-03"}},
		Insights:  []string{"take a walk"},
	}

	var out bytes.Buffer
	renderOverview(&out, o, time.UTC)

	assert.Contains(t, out.String(), "Low mood streak: 2024-01-01, 2024-01-02, 2024-01-03")
	assert.Contains(t, out.String(), "  • take a walk")
	assert.NotContains(t, out.String(), "Session mood")
}

func TestRegisterCommandValidatesBeforeSending(t *testing.T) {
	backend := apitest.New(t)
	setEnv(t, backend.URL)

	_, err := execute(t, "register", "--name", "Ana", "--email", "ana@example.com", "--password", "a", "--confirm-password", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "passwords do not match")

	out, err := execute(t, "register", "--name", "Ana", "--email", "ana@example.com", "--password", "a", "--confirm-password", "a")
	require.NoError(t, err)
	assert.Contains(t, out, "registered ana@example.com")
}

func TestLoginThenWhoami(t *testing.T) {
	backend := apitest.New(t)
	setEnv(t, backend.URL)

	out, err := execute(t, "login", "--email", "ana@example.com", "--password", "secret")
	require.NoError(t, err)
	assert.Contains(t, out, "API_TOKEN="+apitest.Token)

	_, err = execute(t, "whoami")
	require.Error(t, err, "token is not stored between runs")

	t.Setenv("API_TOKEN", apitest.Token)
	out, err = execute(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Test <test@example.com>")
}
