package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"zenpulse/internal/database"
	"zenpulse/internal/utils"
)

// burnoutStreak is the number of consecutive low-mood days that signals risk.
const burnoutStreak = 3

type InsightsService struct {
	entries *EntryStore
	log     *zap.Logger
}

func NewInsightsService(entries *EntryStore, log *zap.Logger) *InsightsService {
	return &InsightsService{entries: entries, log: log.Named("insights")}
}

// DetectBurnout scans entries oldest first and reports the first run of
// burnoutStreak entries with mood 2 or lower.
func DetectBurnout(entries []database.Entry) database.BurnoutRisk {
	sorted := append([]database.Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var streak []string
	for _, e := range sorted {
		if e.Mood <= 2 {
			streak = append(streak, e.DateKey())
		} else {
			streak = nil
		}
		if len(streak) >= burnoutStreak {
			return database.BurnoutRisk{Risk: true, StreakDays: streak}
		}
	}
	return database.BurnoutRisk{Risk: false, StreakDays: []string{}}
}

// CheckBurnout asks the backend first and falls back to scanning the local
// entries when the stats call fails.
func (is *InsightsService) CheckBurnout(ctx context.Context) database.BurnoutRisk {
	stats, err := is.entries.Stats(ctx)
	if err != nil {
		is.log.Warn("stats unavailable, using local burnout check", zap.Error(err))
		return DetectBurnout(is.entries.Entries())
	}
	return stats.BurnoutRisk
}

// Insights turns a dashboard and burnout result into short readable lines.
func Insights(d Dashboard, risk database.BurnoutRisk) []string {
	var insights []string

	if risk.Risk {
		insights = append(insights, fmt.Sprintf(
			"⚠️ Burnout risk! Low mood streak: %s", strings.Join(risk.StreakDays, ", ")))
	}

	if d.TotalAnalyses == 0 {
		insights = append(insights, "📊 Not enough data yet. Chat or log your mood to get insights!")
		return insights
	}

	insights = append(insights, fmt.Sprintf("🧠 %d sentiment analyses so far", d.TotalAnalyses))

	switch rate := d.PositiveRate; {
	case rate >= 60:
		insights = append(insights, fmt.Sprintf("🎯 %d%% positive. Keep it up!", rate))
	case rate < 30:
		insights = append(insights, fmt.Sprintf("💪 Only %d%% positive. Be gentle with yourself today", rate))
	default:
		insights = append(insights, fmt.Sprintf("📈 %d%% positive. Steady progress", rate))
	}

	if d.SentimentStats.Negative > d.SentimentStats.Positive {
		insights = append(insights, "🌧 Negative moments outweigh positive ones. Consider a short break")
	}

	insights = append(insights, fmt.Sprintf("%s Current mood: %s",
		utils.GetMoodEmoji(d.DisplayMood, d.MoodAutoUpdated), utils.GetMoodLabel(d.DisplayMood)))

	return insights
}
