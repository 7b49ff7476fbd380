package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"zenpulse/internal/database"
	"zenpulse/internal/utils"
)

// Client talks to the mood tracking backend.
type Client struct {
	baseURL string
	http    *http.Client
	loc     *time.Location
	log     *zap.Logger

	mu    sync.RWMutex
	token string
}

func NewClient(baseURL string, timeout time.Duration, loc *time.Location, log *zap.Logger) *Client {
	if loc == nil {
		loc = time.Local
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		loc:     loc,
		log:     log.Named("api"),
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// --- Wire types (internal to this package) ---

type entryDTO struct {
	ID              int    `json:"id"`
	EntryDate       string `json:"entry_date"`
	Mood            int    `json:"mood"`
	Journal         string `json:"journal"`
	Notes           string `json:"notes"`
	Sentiment       string `json:"sentiment"`
	MoodAutoUpdated bool   `json:"mood_auto_updated"`
	TasksCompleted  int    `json:"tasks_completed"`
	AIPepTalk       string `json:"ai_pep_talk"`
	CreatedAt       string `json:"created_at"`
}

type statsDTO struct {
	BurnoutRisk database.BurnoutRisk `json:"burnoutRisk"`
	Entries     []entryDTO           `json:"entries"`
}

type summaryDTO struct {
	Summary string `json:"summary"`
}

type chatRequest struct {
	Message string `json:"message"`
}

// ChatReply is the backend's answer to one chat message. Sentiment is passed
// through as received.
type ChatReply struct {
	Response  string             `json:"response"`
	Sentiment database.Sentiment `json:"sentiment"`
}

type LoginResult struct {
	Token string        `json:"token"`
	User  database.User `json:"user"`
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) toEntry(dto entryDTO) (database.Entry, error) {
	day, err := utils.ParseDay(dto.EntryDate, c.loc)
	if err != nil {
		return database.Entry{}, err
	}

	mood := database.DefaultMood
	if dto.Mood != 0 {
		mood = database.ClampMood(dto.Mood)
	}

	entry := database.Entry{
		ID:              dto.ID,
		Date:            day,
		Mood:            mood,
		Journal:         dto.Journal,
		Notes:           dto.Notes,
		Sentiment:       database.Sentiment(dto.Sentiment),
		MoodAutoUpdated: dto.MoodAutoUpdated,
		TasksCompleted:  dto.TasksCompleted,
		AIPepTalk:       dto.AIPepTalk,
	}
	if created, fellBack := utils.ParseTimestamp(dto.CreatedAt, time.Time{}); !fellBack {
		entry.CreatedAt = created
	}
	return entry, nil
}

func (c *Client) toEntries(op string, dtos []entryDTO) []database.Entry {
	entries := make([]database.Entry, 0, len(dtos))
	for _, dto := range dtos {
		entry, err := c.toEntry(dto)
		if err != nil {
			c.log.Warn("skipping entry with bad date",
				zap.String("op", op), zap.Error(&MalformedDataError{Source: "entry", Err: err}))
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// --- Entries ---

func (c *Client) ListEntries(ctx context.Context) ([]database.Entry, error) {
	var dtos []entryDTO
	if err := c.do(ctx, "list entries", http.MethodGet, "/entries", nil, &dtos); err != nil {
		return nil, err
	}
	return c.toEntries("list entries", dtos), nil
}

func (c *Client) UpsertEntry(ctx context.Context, input database.EntryInput) (database.Entry, error) {
	var dto entryDTO
	if err := c.do(ctx, "upsert entry", http.MethodPost, "/entries", input, &dto); err != nil {
		return database.Entry{}, err
	}
	entry, err := c.toEntry(dto)
	if err != nil {
		return database.Entry{}, &MalformedDataError{Source: "upsert entry response", Err: err}
	}
	return entry, nil
}

func (c *Client) AutoMood(ctx context.Context, mood int) (database.Entry, error) {
	var dto entryDTO
	body := map[string]int{"mood": mood}
	if err := c.do(ctx, "auto mood", http.MethodPost, "/entries/auto-mood", body, &dto); err != nil {
		return database.Entry{}, err
	}
	entry, err := c.toEntry(dto)
	if err != nil {
		return database.Entry{}, &MalformedDataError{Source: "auto mood response", Err: err}
	}
	return entry, nil
}

func (c *Client) Stats(ctx context.Context) (*database.Stats, error) {
	var dto statsDTO
	if err := c.do(ctx, "entry stats", http.MethodGet, "/entries/stats", nil, &dto); err != nil {
		return nil, err
	}
	if dto.BurnoutRisk.StreakDays == nil {
		dto.BurnoutRisk.StreakDays = []string{}
	}
	return &database.Stats{
		BurnoutRisk: dto.BurnoutRisk,
		Entries:     c.toEntries("entry stats", dto.Entries),
	}, nil
}

func (c *Client) WeeklySummary(ctx context.Context) (string, error) {
	var dto summaryDTO
	if err := c.do(ctx, "weekly summary", http.MethodGet, "/entries/summary", nil, &dto); err != nil {
		return "", err
	}
	return dto.Summary, nil
}

// --- Chat ---

func (c *Client) Chat(ctx context.Context, message string) (ChatReply, error) {
	var reply ChatReply
	err := c.do(ctx, "chat", http.MethodPost, "/chat", chatRequest{Message: message}, &reply)
	return reply, err
}

// --- Auth ---

func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var res LoginResult
	body := map[string]string{"email": email, "password": password}
	err := c.do(ctx, "login", http.MethodPost, "/auth/login", body, &res)
	return res, err
}

func (c *Client) Register(ctx context.Context, input RegisterInput) error {
	return c.do(ctx, "register", http.MethodPost, "/auth/register", input, nil)
}

func (c *Client) Me(ctx context.Context) (database.User, error) {
	var user database.User
	err := c.do(ctx, "current user", http.MethodGet, "/auth/me", nil, &user)
	return user, err
}

// do sends one JSON request and decodes the JSON answer into out.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return &NetworkError{Op: op, Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	case resp.StatusCode >= http.StatusBadRequest:
		var eb errorBody
		_ = json.Unmarshal(data, &eb)
		msg := eb.Error
		if msg == "" {
			msg = eb.Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Op: op, Status: resp.StatusCode, Message: msg}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &MalformedDataError{Source: op + " response", Err: err}
	}
	return nil
}
