package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"

	"zenpulse/internal/database"
	"zenpulse/internal/utils"
)

// historyDays is how many of the most recent entries feed the mood chart.
const historyDays = 7

type TimelineKind string

const (
	TimelineEntry   TimelineKind = "entry"
	TimelineMessage TimelineKind = "message"
)

// TimelineItem is one element of the combined entry and message timeline.
// At is the canonical timestamp the timeline is sorted by.
type TimelineItem struct {
	Kind    TimelineKind             `json:"kind"`
	At      time.Time                `json:"at"`
	Entry   *database.Entry          `json:"entry,omitempty"`
	Message *database.SessionMessage `json:"message,omitempty"`
}

// ChartPoint is one point of the session mood chart. Sentiment is 1
// (negative), 2 (neutral) or 3 (positive).
type ChartPoint struct {
	Label     string `json:"label"`
	Mood      int    `json:"mood"`
	Sentiment int    `json:"sentiment"`
}

// TodayEntry returns the entry for now's calendar day in loc, or nil.
func TodayEntry(entries []database.Entry, now time.Time, loc *time.Location) *database.Entry {
	today := utils.TodayKey(now, loc)
	for i := range entries {
		if entries[i].DateKey() == today {
			e := entries[i]
			return &e
		}
	}
	return nil
}

func CurrentMood(entries []database.Entry, now time.Time, loc *time.Location) int {
	if e := TodayEntry(entries, now, loc); e != nil && e.Mood != 0 {
		return database.ClampMood(e.Mood)
	}
	return database.DefaultMood
}

// MoodHistory returns the most recent entries, oldest first.
func MoodHistory(entries []database.Entry) []database.Entry {
	sorted := append([]database.Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})
	if len(sorted) > historyDays {
		sorted = sorted[:historyDays]
	}
	for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
		sorted[i], sorted[j] = sorted[j], sorted[i]
	}
	return sorted
}

// SentimentStats adds the entry sentiments (missing labels count as neutral)
// to the session tally.
func SentimentStats(entries []database.Entry, session database.SentimentTally) database.SentimentTally {
	var stats database.SentimentTally
	for _, e := range entries {
		stats.Add(e.Sentiment)
	}
	return stats.Plus(session)
}

// AllMessages merges entries and session messages into one timeline sorted by
// time. On equal times entries come first, then messages in send order.
func AllMessages(entries []database.Entry, messages []database.SessionMessage) []TimelineItem {
	items := make([]TimelineItem, 0, len(entries)+len(messages))
	for i := range entries {
		e := entries[i]
		items = append(items, TimelineItem{Kind: TimelineEntry, At: e.Date, Entry: &e})
	}
	for i := range messages {
		m := messages[i]
		items = append(items, TimelineItem{Kind: TimelineMessage, At: m.Timestamp, Message: &m})
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.At.Equal(b.At) {
			return a.At.Before(b.At)
		}
		if a.Kind != b.Kind {
			return a.Kind == TimelineEntry
		}
		if a.Kind == TimelineMessage {
			return a.Message.Seq < b.Message.Seq
		}
		return false
	})
	return items
}

// latestSentimentMessage finds the newest AI message carrying a sentiment.
func latestSentimentMessage(messages []database.SessionMessage) (database.SessionMessage, bool) {
	var latest database.SessionMessage
	found := false
	for _, m := range messages {
		if !m.HasSentiment() {
			continue
		}
		if !found || m.Timestamp.After(latest.Timestamp) ||
			(m.Timestamp.Equal(latest.Timestamp) && m.Seq > latest.Seq) {
			latest = m
			found = true
		}
	}
	return latest, found
}

// DisplayMood is the mood shown right now: the latest chat sentiment mapped
// to a level, or today's entry mood when the session has none.
func DisplayMood(messages []database.SessionMessage, currentMood int, mapper *MoodMapper) int {
	if latest, ok := latestSentimentMessage(messages); ok {
		return mapper.Map(latest.Sentiment)
	}
	return database.ClampMood(currentMood)
}

func sentimentScore(s database.Sentiment) int {
	switch s {
	case database.Positive:
		return 3
	case database.Negative:
		return 1
	default:
		return 2
	}
}

func moodScore(mood int) int {
	switch {
	case mood >= 4:
		return 3
	case mood <= 2:
		return 1
	default:
		return 2
	}
}

// SessionChart builds the session mood timeline: one point per sentiment
// reply plus a closing "Current" point, or a single "Start" point.
func SessionChart(messages []database.SessionMessage, currentMood, displayMood int, mapper *MoodMapper) []ChartPoint {
	var replies []database.SessionMessage
	for _, m := range messages {
		if m.HasSentiment() {
			replies = append(replies, m)
		}
	}
	if len(replies) == 0 {
		return []ChartPoint{{Label: "Start", Mood: database.ClampMood(currentMood), Sentiment: 2}}
	}

	sort.SliceStable(replies, func(i, j int) bool {
		if !replies[i].Timestamp.Equal(replies[j].Timestamp) {
			return replies[i].Timestamp.Before(replies[j].Timestamp)
		}
		return replies[i].Seq < replies[j].Seq
	})

	points := make([]ChartPoint, 0, len(replies)+1)
	for i, m := range replies {
		points = append(points, ChartPoint{
			Label:     fmt.Sprintf("Msg %d", i+1),
			Mood:      mapper.Map(m.Sentiment),
			Sentiment: sentimentScore(m.Sentiment),
		})
	}
	points = append(points, ChartPoint{Label: "Current", Mood: displayMood, Sentiment: moodScore(displayMood)})
	return points
}

// JourneyStats are the all-time entry counts shown on the history view.
type JourneyStats struct {
	TotalEntries int `json:"totalEntries"`
	PositiveDays int `json:"positiveDays"`
	GreatDays    int `json:"greatDays"`
	AvgTasks     int `json:"avgTasksPerDay"`
}

// Journey counts entries, positive-sentiment days and days at mood 4 or
// better, and averages completed tasks per entry.
func Journey(entries []database.Entry) JourneyStats {
	var js JourneyStats
	tasks := 0
	for _, e := range entries {
		if e.Sentiment == database.Positive {
			js.PositiveDays++
		}
		if e.Mood >= 4 {
			js.GreatDays++
		}
		tasks += e.TasksCompleted
	}
	js.TotalEntries = len(entries)
	js.AvgTasks = int(math.Round(float64(tasks) / float64(max(len(entries), 1))))
	return js
}

// PositiveRate is the rounded share of positive sentiments in percent.
func PositiveRate(stats database.SentimentTally) int {
	total := stats.Total()
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(stats.Positive) / float64(total) * 100))
}

// Dashboard is everything the presentation layer reads.
type Dashboard struct {
	Date            string                    `json:"date"`
	TodayEntry      *database.Entry           `json:"todayEntry,omitempty"`
	CurrentMood     int                       `json:"currentMood"`
	DisplayMood     int                       `json:"displayMood"`
	MoodLabel       string                    `json:"moodLabel"`
	MoodAutoUpdated bool                      `json:"moodAutoUpdated"`
	MoodHistory     []database.Entry          `json:"moodHistory"`
	Journey         JourneyStats              `json:"journey"`
	SentimentStats  database.SentimentTally   `json:"sentimentStats"`
	SessionTally    database.SentimentTally   `json:"sessionSentiments"`
	TotalAnalyses   int                       `json:"totalAnalyses"`
	PositiveRate    int                       `json:"positiveRate"`
	AllMessages     []TimelineItem            `json:"allMessages"`
	SessionMessages []database.SessionMessage `json:"sessionMessages"`
	SessionChart    []ChartPoint              `json:"sessionChart"`
	LastUpdate      time.Time                 `json:"lastUpdate"`
	Loading         bool                      `json:"loading"`
	Saving          bool                      `json:"saving"`
	Error           string                    `json:"error,omitempty"`
}

// Aggregator derives dashboards from the entry store and session cache.
// Results are memoized by the versions of both sources and the current day.
type Aggregator struct {
	entries *EntryStore
	session *SessionCache
	mapper  *MoodMapper
	loc     *time.Location
	memo    *cache.Cache
}

func NewAggregator(entries *EntryStore, session *SessionCache, mapper *MoodMapper, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	a := &Aggregator{
		entries: entries,
		session: session,
		mapper:  mapper,
		loc:     loc,
		memo:    cache.New(10*time.Minute, 15*time.Minute),
	}
	// older keys can never be asked for again once the entries change
	entries.Subscribe(a.memo.Flush)
	return a
}

func (a *Aggregator) Snapshot(now time.Time) Dashboard {
	// versions first: data read afterwards is at least as new as the key
	key := fmt.Sprintf("%d:%d:%s", a.entries.Version(), a.session.Version(), utils.TodayKey(now, a.loc))

	var d Dashboard
	if cached, ok := a.memo.Get(key); ok {
		d = cached.(Dashboard)
	} else {
		d = a.build(now)
		a.memo.Set(key, d, cache.DefaultExpiration)
	}

	d.LastUpdate = a.entries.LastUpdate()
	d.Loading = a.entries.Loading()
	d.Saving = a.entries.Saving()
	d.Error = ""
	if err := a.entries.Err(); err != nil {
		d.Error = err.Error()
	}
	return d
}

func (a *Aggregator) build(now time.Time) Dashboard {
	entries := a.entries.Entries()
	messages := a.session.Messages()
	tally := a.session.Tally()

	today := TodayEntry(entries, now, a.loc)
	current := CurrentMood(entries, now, a.loc)
	display := DisplayMood(messages, current, a.mapper)
	stats := SentimentStats(entries, tally)

	return Dashboard{
		Date:            utils.TodayKey(now, a.loc),
		TodayEntry:      today,
		CurrentMood:     current,
		DisplayMood:     display,
		MoodLabel:       utils.GetMoodLabel(display),
		MoodAutoUpdated: today != nil && today.MoodAutoUpdated,
		MoodHistory:     MoodHistory(entries),
		Journey:         Journey(entries),
		SentimentStats:  stats,
		SessionTally:    tally,
		TotalAnalyses:   stats.Total(),
		PositiveRate:    PositiveRate(stats),
		AllMessages:     AllMessages(entries, messages),
		SessionMessages: messages,
		SessionChart:    SessionChart(messages, current, display, a.mapper),
	}
}
