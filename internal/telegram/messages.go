package telegram

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"zenpulse/internal/api"
	"zenpulse/internal/database"
	"zenpulse/internal/services"
	"zenpulse/internal/utils"
)

const welcomeText = `🧘 <b>ZenPulse</b>

Track your mood and talk through your day.

/mood - Log today's mood (1-5)
/journal [text] - Add to today's journal
/today - Today's mood and session
/history - Mood over the last week
/stats - Sentiment statistics
/summary - Weekly summary
/insights - Personal insights
/peptalk - A few kind words
/clear - Start a fresh chat session
/refresh - Reload entries
/help - Help

Anything else you write goes to the AI assistant.`

const helpText = `📚 <b>Commands</b>

<b>Mood:</b>
/mood - Pick a mood from the keyboard
/mood [1-5] [journal] - Log a mood directly
Example: /mood 4 Good run this morning
/journal [text] - Save journal text without changing the mood

<b>Overview:</b>
/today - Today's mood, chat sentiments and session chart
/history - Last 7 logged days
/stats - Sentiment statistics
/summary - Weekly summary from the server
/insights - Burnout check and insights
/peptalk - Encouragement from your latest entry

<b>Session:</b>
/clear - Clear this chat session
/refresh - Reload entries from the server

<b>Mood scale:</b>
😞 1 Very Low · 😕 2 Low · 😐 3 Neutral · 🙂 4 Good · 😄 5 Excellent
🤖 marks a mood set from chat sentiment`

// parseMoodArgs reads "/mood N [journal...]" arguments.
func parseMoodArgs(args string) (int, string, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, "", &api.ValidationError{Field: "mood", Message: "is required"}
	}
	mood, err := strconv.Atoi(fields[0])
	if err != nil || mood < database.MinMood || mood > database.MaxMood {
		return 0, "", &api.ValidationError{Field: "mood", Message: fmt.Sprintf("must be between %d and %d", database.MinMood, database.MaxMood)}
	}
	journal := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(args), fields[0]))
	return mood, journal, nil
}

func moodKeyboard() tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, database.MaxMood)
	for level := database.MinMood; level <= database.MaxMood; level++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%s %d", utils.GetMoodEmoji(level, false), level),
			fmt.Sprintf("mood_%d", level),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func clearKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🧹 Clear", "clear_confirm"),
			tgbotapi.NewInlineKeyboardButtonData("↩️ Keep", "clear_cancel"),
		),
	)
}

func pepTalkKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Another", "peptalk_another"),
		),
	)
}

func formatPepTalk(text string) string {
	return "💝 <b>Gentle encouragement</b>\n\n" + html.EscapeString(text)
}

func formatSavedEntry(e database.Entry) string {
	msg := fmt.Sprintf("✅ Saved for %s\n%s Mood: %d/5 (%s)",
		e.DateKey(), utils.GetMoodEmoji(e.Mood, e.MoodAutoUpdated), e.Mood, utils.GetMoodLabel(e.Mood))
	if e.Journal != "" {
		msg += fmt.Sprintf("\n📝 <i>%s</i>", html.EscapeString(e.Journal))
	}
	return msg
}

func formatToday(d services.Dashboard) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 <b>Today, %s</b>\n\n", d.Date)

	if d.TodayEntry != nil {
		fmt.Fprintf(&b, "%s Logged mood: %d/5 (%s)\n",
			utils.GetMoodEmoji(d.CurrentMood, d.MoodAutoUpdated), d.CurrentMood, utils.GetMoodLabel(d.CurrentMood))
		if d.TodayEntry.Journal != "" {
			fmt.Fprintf(&b, "📝 <i>%s</i>\n", html.EscapeString(d.TodayEntry.Journal))
		}
	} else {
		b.WriteString("📭 No mood logged yet. Use /mood\n")
	}
	fmt.Fprintf(&b, "%s Right now: %s\n", utils.GetMoodEmoji(d.DisplayMood, false), d.MoodLabel)

	t := d.SessionTally
	fmt.Fprintf(&b, "\n<b>This session:</b> %d messages\n", len(d.SessionMessages))
	fmt.Fprintf(&b, "🟢 %d · 🟡 %d · 🔴 %d\n", t.Positive, t.Neutral, t.Negative)

	if len(d.SessionChart) > 1 {
		b.WriteString("\n<b>Session mood:</b>\n")
		for _, p := range d.SessionChart {
			fmt.Fprintf(&b, "%-8s %s\n", p.Label, strings.Repeat("▇", p.Mood))
		}
	}

	if d.Error != "" {
		fmt.Fprintf(&b, "\n⚠️ <i>%s</i>", html.EscapeString(d.Error))
	}
	return b.String()
}

func formatHistory(history []database.Entry) string {
	if len(history) == 0 {
		return "📭 No entries yet"
	}

	var b strings.Builder
	b.WriteString("📈 <b>Mood history</b>\n\n")
	for _, e := range history {
		fmt.Fprintf(&b, "%s %s %s %d\n",
			e.DateKey(), utils.GetMoodEmoji(e.Mood, e.MoodAutoUpdated), strings.Repeat("▇", e.Mood), e.Mood)
	}
	return b.String()
}

func formatStats(d services.Dashboard) string {
	s := d.SentimentStats
	return fmt.Sprintf(
		"🧠 <b>Sentiment statistics</b>\n\n"+
			"%s Positive: %d\n"+
			"%s Neutral: %d\n"+
			"%s Negative: %d\n\n"+
			"Total analyses: %d\n"+
			"🎯 Positive rate: %d%%\n\n"+
			"📊 <b>Your journey</b>\n"+
			"Entries: %d · Positive days: %d · Great days: %d\n"+
			"Avg tasks/day: %d",
		utils.GetSentimentEmoji(string(database.Positive)), s.Positive,
		utils.GetSentimentEmoji(string(database.Neutral)), s.Neutral,
		utils.GetSentimentEmoji(string(database.Negative)), s.Negative,
		d.TotalAnalyses,
		d.PositiveRate,
		d.Journey.TotalEntries, d.Journey.PositiveDays, d.Journey.GreatDays,
		d.Journey.AvgTasks,
	)
}

func formatTurn(res services.TurnResult) string {
	msg := html.EscapeString(res.Reply.Text)
	if res.Degraded {
		return msg
	}
	if res.Reply.Sentiment != "" {
		msg += fmt.Sprintf("\n\n%s <i>%s</i>", utils.GetSentimentEmoji(string(res.Reply.Sentiment)), res.Reply.Sentiment)
	}
	if res.State == services.TurnMoodApplied {
		msg += fmt.Sprintf(" · 🤖 mood set to %d (%s)", res.Mood, utils.GetMoodLabel(res.Mood))
	}
	return msg
}

func formatInsights(ov services.Overview) string {
	var b strings.Builder
	b.WriteString("💡 <b>Insights</b>\n\n")
	for _, line := range ov.Insights {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if ov.Summary != "" {
		fmt.Fprintf(&b, "\n<b>This week:</b>\n%s\n", html.EscapeString(ov.Summary))
	}
	if ov.PepTalk != "" {
		fmt.Fprintf(&b, "\n💝 %s", html.EscapeString(ov.PepTalk))
	}
	return b.String()
}

// userError turns a service error into a reply.
func userError(err error) string {
	var verr *api.ValidationError
	var aerr *api.APIError
	switch {
	case errors.As(err, &verr):
		return "❌ " + html.EscapeString(verr.Error())
	case api.IsNetworkError(err):
		return "📡 Can't reach the server right now. Please try again later."
	case errors.As(err, &aerr):
		return "❌ " + html.EscapeString(aerr.Message)
	default:
		return "❌ Something went wrong"
	}
}
