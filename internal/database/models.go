package database

import "time"

const DateLayout = "2006-01-02"

type Sentiment string

const (
	Positive Sentiment = "positive"
	Neutral  Sentiment = "neutral"
	Negative Sentiment = "negative"
)

func (s Sentiment) Valid() bool {
	switch s {
	case Positive, Neutral, Negative:
		return true
	}
	return false
}

// Normalize maps unknown or empty labels to neutral. Used for counting only;
// messages keep the raw label.
func (s Sentiment) Normalize() Sentiment {
	if s.Valid() {
		return s
	}
	return Neutral
}

type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

type DeliveryState string

const (
	StatePending      DeliveryState = "pending"
	StateAcknowledged DeliveryState = "acknowledged"
)

// Mood levels run 1 (worst) to 5 (best).
const (
	MinMood     = 1
	MaxMood     = 5
	DefaultMood = 3
)

func ClampMood(level int) int {
	switch {
	case level < MinMood:
		return MinMood
	case level > MaxMood:
		return MaxMood
	}
	return level
}

// Entry is one persisted daily record. Date is the civil day at local
// midnight; at most one entry exists per day.
type Entry struct {
	ID              int       `json:"id,omitempty"`
	Date            time.Time `json:"date"`
	Mood            int       `json:"mood"`
	Journal         string    `json:"journal,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	Sentiment       Sentiment `json:"sentiment,omitempty"`
	MoodAutoUpdated bool      `json:"mood_auto_updated"`
	TasksCompleted  int       `json:"tasks_completed,omitempty"`
	AIPepTalk       string    `json:"ai_pep_talk,omitempty"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
}

func (e Entry) DateKey() string {
	return e.Date.Format(DateLayout)
}

// EntryInput carries the partial fields of an upsert. Nil fields are left to
// the server.
type EntryInput struct {
	Mood            *int    `json:"mood,omitempty"`
	Journal         *string `json:"journal,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	MoodAutoUpdated *bool   `json:"moodAutoUpdated,omitempty"`
}

// SessionMessage is one chat turn held for the lifetime of a tab session.
// Seq is the session-local ordering key and never repeats within a session.
type SessionMessage struct {
	ID        string        `json:"id"`
	Sender    Sender        `json:"sender"`
	Text      string        `json:"text"`
	Sentiment Sentiment     `json:"sentiment,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Seq       uint64        `json:"sessionTimestamp"`
	State     DeliveryState `json:"state"`
}

// HasSentiment reports whether the message is an AI reply carrying a label.
func (m SessionMessage) HasSentiment() bool {
	return m.Sender == SenderAI && m.Sentiment != ""
}

type SentimentTally struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

func (t *SentimentTally) Add(s Sentiment) {
	switch s.Normalize() {
	case Positive:
		t.Positive++
	case Negative:
		t.Negative++
	default:
		t.Neutral++
	}
}

func (t SentimentTally) Plus(o SentimentTally) SentimentTally {
	return SentimentTally{
		Positive: t.Positive + o.Positive,
		Neutral:  t.Neutral + o.Neutral,
		Negative: t.Negative + o.Negative,
	}
}

func (t SentimentTally) Total() int {
	return t.Positive + t.Neutral + t.Negative
}

type BurnoutRisk struct {
	Risk       bool     `json:"risk"`
	StreakDays []string `json:"streakDays"`
}

type Stats struct {
	BurnoutRisk BurnoutRisk `json:"burnoutRisk"`
	Entries     []Entry     `json:"entries"`
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
