// Package apitest runs an in-memory stand-in for the mood tracking backend.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"
)

// Entry is an entry in the backend's wire format.
type Entry struct {
	ID              int    `json:"id"`
	EntryDate       string `json:"entry_date"`
	Mood            int    `json:"mood"`
	Journal         string `json:"journal,omitempty"`
	Notes           string `json:"notes,omitempty"`
	Sentiment       string `json:"sentiment,omitempty"`
	MoodAutoUpdated bool   `json:"mood_auto_updated"`
	TasksCompleted  int    `json:"tasks_completed,omitempty"`
	AIPepTalk       string `json:"ai_pep_talk,omitempty"`
}

// Server keeps entries in memory and answers chat with a fixed reply.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	entries   map[string]Entry
	nextID    int
	down      bool
	chatDown  bool
	autoDown  bool
	reply     string
	sentiment string
	summary   string
	burnout   bool
	users     map[string]string
	today     func() string
}

// Token is the bearer token issued by login.
const Token = "test-token"

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		entries:   make(map[string]Entry),
		reply:     "Thanks for sharing!",
		sentiment: "neutral",
		summary:   "A calm week.",
		users:     make(map[string]string),
		today:     func() string { return time.Now().UTC().Format("2006-01-02") },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /entries", s.listEntries)
	mux.HandleFunc("POST /entries", s.upsertEntry)
	mux.HandleFunc("POST /entries/auto-mood", s.autoMood)
	mux.HandleFunc("GET /entries/stats", s.stats)
	mux.HandleFunc("GET /entries/summary", s.weeklySummary)
	mux.HandleFunc("POST /chat", s.chat)
	mux.HandleFunc("POST /auth/login", s.login)
	mux.HandleFunc("POST /auth/register", s.register)
	mux.HandleFunc("GET /auth/me", s.me)

	s.Server = httptest.NewServer(s.guard(mux))
	t.Cleanup(s.Close)
	return s
}

// Seed stores entries as-is.
func (s *Server) Seed(entries ...Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.nextID++
		if e.ID == 0 {
			e.ID = s.nextID
		}
		s.entries[e.EntryDate] = e
	}
}

// SetDown makes every endpoint answer 503.
func (s *Server) SetDown(down bool) {
	s.mu.Lock()
	s.down = down
	s.mu.Unlock()
}

// SetChatDown makes only the chat endpoint answer 503.
func (s *Server) SetChatDown(down bool) {
	s.mu.Lock()
	s.chatDown = down
	s.mu.Unlock()
}

// SetAutoMoodDown makes only the auto-mood endpoint answer 503.
func (s *Server) SetAutoMoodDown(down bool) {
	s.mu.Lock()
	s.autoDown = down
	s.mu.Unlock()
}

func (s *Server) SetReply(text, sentiment string) {
	s.mu.Lock()
	s.reply, s.sentiment = text, sentiment
	s.mu.Unlock()
}

func (s *Server) SetBurnout(risk bool) {
	s.mu.Lock()
	s.burnout = risk
	s.mu.Unlock()
}

// Entry returns the stored entry for a date.
func (s *Server) Entry(date string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[date]
	return e, ok
}

func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		down := s.down
		s.mu.Unlock()
		if down {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "maintenance"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) sorted() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryDate > out[j].EntryDate })
	return out
}

func (s *Server) listEntries(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.sorted())
}

func (s *Server) upsertEntry(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Mood            *int    `json:"mood"`
		Journal         *string `json:"journal"`
		Notes           *string `json:"notes"`
		MoodAutoUpdated *bool   `json:"moodAutoUpdated"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.todayLocked()
	if in.Mood != nil {
		e.Mood = *in.Mood
	}
	if in.Journal != nil {
		e.Journal = *in.Journal
	}
	if in.Notes != nil {
		e.Notes = *in.Notes
	}
	if in.MoodAutoUpdated != nil {
		e.MoodAutoUpdated = *in.MoodAutoUpdated
	}
	s.entries[e.EntryDate] = e
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) autoMood(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Mood int `json:"mood"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Mood < 1 || in.Mood > 5 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "mood must be 1-5"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.autoDown {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "maintenance"})
		return
	}
	e := s.todayLocked()
	e.Mood = in.Mood
	e.MoodAutoUpdated = true
	s.entries[e.EntryDate] = e
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) todayLocked() Entry {
	date := s.today()
	e, ok := s.entries[date]
	if !ok {
		s.nextID++
		e = Entry{ID: s.nextID, EntryDate: date, Mood: 3}
	}
	return e
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	streak := []string{}
	if s.burnout {
		streak = []string{"2024-01-01", "2024-01-02", "2024-01-03"}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"burnoutRisk": map[string]any{"risk": s.burnout, "streakDays": streak},
		"entries":     s.sorted(),
	})
}

func (s *Server) weeklySummary(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"summary": s.summary})
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chatDown {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "model offline"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": s.reply, "sentiment": s.sentiment})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Password != "secret" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": Token,
		"user":  map[string]string{"id": "1", "name": "Test", "email": in.Email},
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.users[in.Email]; taken {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
		return
	}
	s.users[in.Email] = in.Name
	writeJSON(w, http.StatusCreated, map[string]string{"message": "registered"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+Token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": "1", "name": "Test", "email": "test@example.com"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
