package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"zenpulse/internal/utils"
)

// NotificationSender delivers formatted (HTML) text to the user.
type NotificationSender interface {
	SendMessage(text string) error
}

// NotificationService pushes scheduled reminders and alerts. Without a sender
// every call is a no-op.
type NotificationService struct {
	sender     NotificationSender
	insights   *InsightsService
	aggregator *Aggregator
	log        *zap.Logger
	now        func() time.Time
}

func NewNotificationService(insights *InsightsService, aggregator *Aggregator, log *zap.Logger) *NotificationService {
	return &NotificationService{
		insights:   insights,
		aggregator: aggregator,
		log:        log.Named("notifications"),
		now:        time.Now,
	}
}

func (ns *NotificationService) SetSender(sender NotificationSender) {
	ns.sender = sender
}

// SendMoodReminder nudges the user when today has no entry yet. It returns
// whether a reminder went out.
func (ns *NotificationService) SendMoodReminder() bool {
	if ns.sender == nil {
		return false
	}
	d := ns.aggregator.Snapshot(ns.now())
	if d.TodayEntry != nil {
		ns.log.Debug("mood already logged today, no reminder", zap.String("date", d.Date))
		return false
	}

	msg := "📝 You haven't logged your mood today.\nUse /mood 1-5 or just tell me how your day went."
	if err := ns.sender.SendMessage(msg); err != nil {
		ns.log.Error("send mood reminder failed", zap.Error(err))
		return false
	}
	return true
}

// SendBurnoutAlert runs the burnout check and alerts on risk.
func (ns *NotificationService) SendBurnoutAlert(ctx context.Context) bool {
	if ns.sender == nil {
		return false
	}
	risk := ns.insights.CheckBurnout(ctx)
	if !risk.Risk {
		return false
	}

	msg := fmt.Sprintf(
		"⚠️ <b>Burnout risk</b>\n\n"+
			"Your mood has been low on %s.\n"+
			"Consider taking a break, and talk to someone you trust. 💙",
		strings.Join(risk.StreakDays, ", "),
	)
	if err := ns.sender.SendMessage(msg); err != nil {
		ns.log.Error("send burnout alert failed", zap.Error(err))
		return false
	}
	return true
}

// SendDailySummary sends the end-of-day recap.
func (ns *NotificationService) SendDailySummary() bool {
	if ns.sender == nil {
		return false
	}
	d := ns.aggregator.Snapshot(ns.now())

	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Day summary %s</b>\n\n", d.Date)
	if d.TodayEntry != nil {
		fmt.Fprintf(&b, "%s Mood: %d/5 (%s)\n",
			utils.GetMoodEmoji(d.CurrentMood, d.MoodAutoUpdated), d.CurrentMood, utils.GetMoodLabel(d.CurrentMood))
	} else {
		b.WriteString("📭 No mood logged today\n")
	}
	fmt.Fprintf(&b, "💬 Chat analyses this session: %d\n", d.SessionTally.Total())
	fmt.Fprintf(&b, "🎯 Positive rate: %d%%\n\n", d.PositiveRate)
	b.WriteString("Tomorrow is a new day! 🌅")

	if err := ns.sender.SendMessage(b.String()); err != nil {
		ns.log.Error("send daily summary failed", zap.Error(err))
		return false
	}
	return true
}
