package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"zenpulse/internal/api"
	"zenpulse/internal/database"
)

// ApologyText is the reply shown when the chat backend cannot be reached.
const ApologyText = "🤖 I'm having trouble connecting right now. Let's try again in a moment."

// GreetingText opens a new session.
const GreetingText = "👋 Hi! I'm your ZenPulse AI assistant. How are you feeling today? I can help with mood tracking, productivity tips, or just chat about your habits."

type ChatAPI interface {
	Chat(ctx context.Context, message string) (api.ChatReply, error)
}

// TurnState is where a chat turn ended up.
type TurnState string

const (
	TurnComposing        TurnState = "composing"
	TurnSent             TurnState = "sent"
	TurnAcknowledged     TurnState = "acknowledged"
	TurnMoodRequested    TurnState = "mood_auto_update_requested"
	TurnMoodApplied      TurnState = "mood_auto_update_applied"
	TurnMoodUpdateFailed TurnState = "mood_auto_update_failed"
)

type TurnResult struct {
	State       TurnState               `json:"state"`
	UserMessage database.SessionMessage `json:"userMessage"`
	Reply       database.SessionMessage `json:"reply"`
	Degraded    bool                    `json:"degraded"`
	Mood        int                     `json:"mood,omitempty"`
	Entry       *database.Entry         `json:"entry,omitempty"`
}

// ChatService runs chat turns: send, record the reply and its sentiment, then
// push the inferred mood to today's entry.
type ChatService struct {
	chat    ChatAPI
	entries *EntryStore
	session *SessionCache
	mapper  *MoodMapper
	log     *zap.Logger
}

func NewChatService(chat ChatAPI, entries *EntryStore, session *SessionCache, mapper *MoodMapper, log *zap.Logger) *ChatService {
	return &ChatService{
		chat:    chat,
		entries: entries,
		session: session,
		mapper:  mapper,
		log:     log.Named("chat"),
	}
}

// Greet adds the opening AI message when the session is empty.
func (s *ChatService) Greet() {
	if len(s.session.Messages()) > 0 {
		return
	}
	s.session.AppendMessage(database.SessionMessage{Sender: database.SenderAI, Text: GreetingText})
}

// Send runs one turn. A backend failure is not an error: the turn ends with
// an apology reply and Degraded set. A failed mood update is logged only.
func (s *ChatService) Send(ctx context.Context, text string) (TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return TurnResult{State: TurnComposing}, &api.ValidationError{Field: "message", Message: "must not be empty"}
	}

	user := s.session.AppendMessage(database.SessionMessage{
		Sender: database.SenderUser,
		Text:   text,
		State:  database.StatePending,
	})
	result := TurnResult{State: TurnSent, UserMessage: user}

	reply, err := s.chat.Chat(ctx, text)
	s.session.Acknowledge(user.ID)
	user.State = database.StateAcknowledged
	result.UserMessage = user

	if err != nil {
		s.log.Warn("chat request failed, replying with apology", zap.Error(err))
		result.Reply = s.session.AppendMessage(database.SessionMessage{
			Sender: database.SenderAI,
			Text:   ApologyText,
		})
		result.State = TurnAcknowledged
		result.Degraded = true
		return result, nil
	}

	label := reply.Sentiment
	if label == "" {
		label = database.Neutral
	}
	result.Reply = s.session.AppendMessage(database.SessionMessage{
		Sender:    database.SenderAI,
		Text:      reply.Response,
		Sentiment: label,
	})
	s.session.RecordSentiment(label)
	result.State = TurnAcknowledged

	mood := s.mapper.Map(label)
	result.Mood = mood
	result.State = TurnMoodRequested
	s.log.Debug("mapped sentiment to mood", zap.String("sentiment", string(label)), zap.Int("mood", mood))

	entry, err := s.entries.AutoUpdateMood(ctx, mood)
	if err != nil {
		s.log.Error("auto mood update failed", zap.Int("mood", mood), zap.Error(err))
		result.State = TurnMoodUpdateFailed
		return result, nil
	}

	result.Entry = &entry
	result.State = TurnMoodApplied
	return result, nil
}
