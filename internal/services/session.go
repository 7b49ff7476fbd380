package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"zenpulse/internal/api"
	"zenpulse/internal/database"
	"zenpulse/internal/utils"
)

const (
	sessionMessagesKey   = "zenpulse_session_messages"
	sessionSentimentsKey = "zenpulse_session_sentiments"

	storageTimeout = 5 * time.Second
)

// SessionStorage is the per-tab key/value space the session is mirrored to.
type SessionStorage interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItems(ctx context.Context, items map[string]string) error
	RemoveItem(ctx context.Context, keys ...string) error
}

// storedMessage is the storage form of a SessionMessage. Timestamp stays a
// string so a bad value can be replaced instead of failing the whole load.
type storedMessage struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Sentiment string `json:"sentiment,omitempty"`
	Timestamp string `json:"timestamp"`
	Seq       uint64 `json:"sessionTimestamp"`
	State     string `json:"state,omitempty"`
}

// SessionCache accumulates the chat messages and sentiment tally of one tab
// session, independent of the server entries.
type SessionCache struct {
	storage SessionStorage
	log     *zap.Logger
	now     func() time.Time

	// persistMu orders storage writes; each write snapshots the state after
	// taking it, so the last write always holds the newest state.
	persistMu sync.Mutex

	mu       sync.RWMutex
	messages []database.SessionMessage
	tally    database.SentimentTally
	nextSeq  uint64
	version  uint64
}

// LoadSessionCache restores the session from storage. Unreadable data is
// logged and replaced by an empty session.
func LoadSessionCache(ctx context.Context, storage SessionStorage, log *zap.Logger) *SessionCache {
	c := &SessionCache{
		storage: storage,
		log:     log.Named("session"),
		now:     time.Now,
		nextSeq: 1,
	}
	c.messages = c.loadMessages(ctx)
	c.tally = c.loadTally(ctx)
	for _, m := range c.messages {
		if m.Seq >= c.nextSeq {
			c.nextSeq = m.Seq + 1
		}
	}
	return c
}

func (c *SessionCache) loadMessages(ctx context.Context) []database.SessionMessage {
	raw, ok, err := c.storage.GetItem(ctx, sessionMessagesKey)
	if err != nil {
		c.log.Warn("read session messages failed", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	var stored []storedMessage
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		c.log.Warn("discarding session messages",
			zap.Error(&api.MalformedDataError{Source: "session messages", Err: err}))
		return nil
	}

	now := c.now()
	var maxSeq uint64
	for _, s := range stored {
		if s.Seq > maxSeq {
			maxSeq = s.Seq
		}
	}

	messages := make([]database.SessionMessage, 0, len(stored))
	for _, s := range stored {
		ts, fellBack := utils.ParseTimestamp(s.Timestamp, now)
		if fellBack {
			c.log.Debug("session message timestamp defaulted", zap.String("id", s.ID), zap.String("raw", s.Timestamp))
		}
		seq := s.Seq
		if seq == 0 {
			maxSeq++
			seq = maxSeq
		}
		state := database.DeliveryState(s.State)
		if state == "" {
			state = database.StateAcknowledged
		}
		id := s.ID
		if id == "" {
			id = uuid.NewString()
		}
		messages = append(messages, database.SessionMessage{
			ID:        id,
			Sender:    database.Sender(s.Sender),
			Text:      s.Text,
			Sentiment: database.Sentiment(s.Sentiment),
			Timestamp: ts,
			Seq:       seq,
			State:     state,
		})
	}
	return messages
}

func (c *SessionCache) loadTally(ctx context.Context) database.SentimentTally {
	var tally database.SentimentTally

	raw, ok, err := c.storage.GetItem(ctx, sessionSentimentsKey)
	if err != nil {
		c.log.Warn("read session sentiments failed", zap.Error(err))
		return tally
	}
	if !ok {
		return tally
	}
	if err := json.Unmarshal([]byte(raw), &tally); err != nil {
		c.log.Warn("discarding session sentiments",
			zap.Error(&api.MalformedDataError{Source: "session sentiments", Err: err}))
		return database.SentimentTally{}
	}
	if tally.Positive < 0 || tally.Neutral < 0 || tally.Negative < 0 {
		c.log.Warn("discarding negative session sentiments")
		return database.SentimentTally{}
	}
	return tally
}

// AppendMessage adds a message at the end of the session and returns it with
// its ID, sequence number, timestamp and state filled in.
func (c *SessionCache) AppendMessage(msg database.SessionMessage) database.SessionMessage {
	c.mu.Lock()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = c.now()
	}
	if msg.State == "" {
		msg.State = database.StateAcknowledged
		if msg.Sender == database.SenderUser {
			msg.State = database.StatePending
		}
	}
	msg.Seq = c.nextSeq
	c.nextSeq++
	c.messages = append(c.messages, msg)
	c.version++
	c.mu.Unlock()

	c.persist()
	return msg
}

// Acknowledge moves a pending message to acknowledged. It reports whether a
// message changed.
func (c *SessionCache) Acknowledge(id string) bool {
	c.mu.Lock()
	changed := false
	for i := range c.messages {
		if c.messages[i].ID == id && c.messages[i].State == database.StatePending {
			c.messages[i].State = database.StateAcknowledged
			changed = true
			break
		}
	}
	if changed {
		c.version++
	}
	c.mu.Unlock()

	if changed {
		c.persist()
	}
	return changed
}

// RecordSentiment counts one sentiment. Unknown labels count as neutral.
func (c *SessionCache) RecordSentiment(label database.Sentiment) {
	c.mu.Lock()
	c.tally.Add(label)
	c.version++
	c.mu.Unlock()

	c.persist()
}

// Clear empties the session. Calling it on an empty session is harmless.
func (c *SessionCache) Clear() {
	c.mu.Lock()
	c.messages = nil
	c.tally = database.SentimentTally{}
	c.version++
	c.mu.Unlock()

	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	if err := c.storage.RemoveItem(ctx, sessionMessagesKey, sessionSentimentsKey); err != nil {
		c.log.Warn("clear session storage failed", zap.Error(err))
	}
}

func (c *SessionCache) Messages() []database.SessionMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]database.SessionMessage(nil), c.messages...)
}

func (c *SessionCache) Tally() database.SentimentTally {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tally
}

func (c *SessionCache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// persist mirrors both structures to storage in one write.
func (c *SessionCache) persist() {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.RLock()
	stored := make([]storedMessage, len(c.messages))
	for i, m := range c.messages {
		stored[i] = storedMessage{
			ID:        m.ID,
			Sender:    string(m.Sender),
			Text:      m.Text,
			Sentiment: string(m.Sentiment),
			Timestamp: m.Timestamp.UTC().Format(time.RFC3339Nano),
			Seq:       m.Seq,
			State:     string(m.State),
		}
	}
	tally := c.tally
	c.mu.RUnlock()

	messagesJSON, err := json.Marshal(stored)
	if err != nil {
		c.log.Error("encode session messages", zap.Error(err))
		return
	}
	tallyJSON, err := json.Marshal(tally)
	if err != nil {
		c.log.Error("encode session sentiments", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	err = c.storage.SetItems(ctx, map[string]string{
		sessionMessagesKey:   string(messagesJSON),
		sessionSentimentsKey: string(tallyJSON),
	})
	if err != nil {
		c.log.Warn("mirror session to storage failed", zap.Error(err))
	}
}
