package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"zenpulse/internal/database"
	"zenpulse/internal/services"
	"zenpulse/internal/utils"
)

// recentMessages is how many session messages the terminal dashboard shows.
const recentMessages = 5

var (
	heading = color.New(color.FgCyan, color.Bold)
	warning = color.New(color.FgYellow)
	failure = color.New(color.FgRed)
	muted   = color.New(color.Faint)
)

// renderOverview prints a terminal version of the dashboard.
func renderOverview(w io.Writer, o services.Overview, loc *time.Location) {
	d := o.Dashboard

	heading.Fprintf(w, "🧘 ZenPulse · %s\n", d.Date)
	if d.Error != "" {
		failure.Fprintf(w, "⚠️  %s (showing last loaded data)\n", d.Error)
	}

	auto := ""
	if d.MoodAutoUpdated {
		auto = " [auto]"
	}
	fmt.Fprintf(w, "Mood: %s %d/5 (%s)%s\n",
		utils.GetMoodEmoji(d.CurrentMood, d.MoodAutoUpdated), d.CurrentMood, utils.GetMoodLabel(d.CurrentMood), auto)
	if d.DisplayMood != d.CurrentMood {
		fmt.Fprintf(w, "Session mood: %d/5 (%s)\n", d.DisplayMood, d.MoodLabel)
	}

	s := d.SentimentStats
	fmt.Fprintf(w, "Sentiment: %s %d  %s %d  %s %d  (%d%% positive)\n",
		utils.GetSentimentEmoji(string(database.Positive)), s.Positive,
		utils.GetSentimentEmoji(string(database.Neutral)), s.Neutral,
		utils.GetSentimentEmoji(string(database.Negative)), s.Negative,
		d.PositiveRate)

	if len(d.MoodHistory) > 0 {
		heading.Fprintln(w, "\nLast 7 days")
		for _, e := range d.MoodHistory {
			fmt.Fprintf(w, "  %s %s %d\n", e.DateKey(), utils.GetMoodEmoji(e.Mood, e.MoodAutoUpdated), e.Mood)
		}
		j := d.Journey
		muted.Fprintf(w, "  %d entries · %d positive days · %d great days · %d tasks/day\n",
			j.TotalEntries, j.PositiveDays, j.GreatDays, j.AvgTasks)
	}

	if o.Burnout.Risk {
		warning.Fprintf(w, "\n⚠️  Low mood streak: %s\n", strings.Join(o.Burnout.StreakDays, ", "))
	}
	if o.Summary != "" {
		heading.Fprintln(w, "\nWeekly summary")
		fmt.Fprintf(w, "  %s\n", o.Summary)
	}

	if o.PepTalk != "" {
		fmt.Fprintf(w, "\n💝 %s\n", o.PepTalk)
	}

	if len(o.Insights) > 0 {
		heading.Fprintln(w, "\nInsights")
		for _, line := range o.Insights {
			fmt.Fprintf(w, "  • %s\n", line)
		}
	}

	renderMessages(w, d.SessionMessages, loc)
}

func renderMessages(w io.Writer, messages []database.SessionMessage, loc *time.Location) {
	if len(messages) == 0 {
		return
	}
	if len(messages) > recentMessages {
		messages = messages[len(messages)-recentMessages:]
	}

	heading.Fprintln(w, "\nRecent chat")
	for _, m := range messages {
		who := "You"
		if m.Sender == database.SenderAI {
			who = "ZenPulse"
		}
		muted.Fprintf(w, "  [%s] ", utils.FormatClock(m.Timestamp, loc))
		fmt.Fprintf(w, "%s: %s", who, m.Text)
		if m.HasSentiment() {
			fmt.Fprintf(w, " %s", utils.GetSentimentEmoji(string(m.Sentiment)))
		}
		fmt.Fprintln(w)
	}
}
