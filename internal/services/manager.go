package services

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"zenpulse/internal/database"
)

// Backend is everything the services need from the collaborator API.
type Backend interface {
	EntryAPI
	ChatAPI
	AuthAPI
}

type ServiceManager struct {
	Entries      *EntryStore
	Session      *SessionCache
	Mapper       *MoodMapper
	Aggregator   *Aggregator
	Chat         *ChatService
	Insights     *InsightsService
	Auth         *AuthService
	Notification *NotificationService

	log *zap.Logger
	now func() time.Time
}

func NewServiceManager(ctx context.Context, backend Backend, storage SessionStorage, rng RandomSource, loc *time.Location, log *zap.Logger) *ServiceManager {
	entries := NewEntryStore(backend, log)
	session := LoadSessionCache(ctx, storage, log)
	mapper := NewMoodMapper(rng)
	aggregator := NewAggregator(entries, session, mapper, loc)
	insights := NewInsightsService(entries, log)

	return &ServiceManager{
		Entries:      entries,
		Session:      session,
		Mapper:       mapper,
		Aggregator:   aggregator,
		Chat:         NewChatService(backend, entries, session, mapper, log),
		Insights:     insights,
		Auth:         NewAuthService(backend, log),
		Notification: NewNotificationService(insights, aggregator, log),
		log:          log,
		now:          time.Now,
	}
}

func (sm *ServiceManager) SetNotificationSender(sender NotificationSender) {
	sm.Notification.SetSender(sender)
}

func (sm *ServiceManager) Dashboard() Dashboard {
	return sm.Aggregator.Snapshot(sm.now())
}

// SaveMood stores a mood the user picked, clearing the auto-update flag.
func (sm *ServiceManager) SaveMood(ctx context.Context, mood int, journal, notes *string) (database.Entry, error) {
	auto := false
	return sm.Entries.Upsert(ctx, database.EntryInput{
		Mood:            &mood,
		Journal:         journal,
		Notes:           notes,
		MoodAutoUpdated: &auto,
	})
}

// SaveJournal stores journal text for today without touching the mood.
func (sm *ServiceManager) SaveJournal(ctx context.Context, journal string) (database.Entry, error) {
	return sm.Entries.Upsert(ctx, database.EntryInput{Journal: &journal})
}

// SendChat runs one chat turn.
func (sm *ServiceManager) SendChat(ctx context.Context, text string) (TurnResult, error) {
	return sm.Chat.Send(ctx, text)
}

// Refresh fetches entries now and returns how many are held.
func (sm *ServiceManager) Refresh(ctx context.Context) (int, error) {
	if err := sm.Entries.Fetch(ctx); err != nil {
		return 0, err
	}
	return len(sm.Entries.Entries()), nil
}

// PepTalk returns the newest entry's pep talk, or a random one when another
// is asked for.
func (sm *ServiceManager) PepTalk(another bool) string {
	if another {
		return RandomPepTalk(sm.Mapper)
	}
	return PepTalk(sm.Entries.Entries(), sm.Mapper)
}

func (sm *ServiceManager) Register(ctx context.Context, name, email, password, confirm string) error {
	return sm.Auth.Register(ctx, name, email, password, confirm)
}

// Login signs in and keeps the token for later requests of this process.
func (sm *ServiceManager) Login(ctx context.Context, email, password string) (database.User, error) {
	return sm.Auth.Login(ctx, email, password)
}

func (sm *ServiceManager) CurrentUser(ctx context.Context) (database.User, error) {
	return sm.Auth.Me(ctx)
}

func (sm *ServiceManager) Logout() {
	sm.Auth.Logout()
	sm.log.Info("signed out")
}

func (sm *ServiceManager) ClearSession() {
	sm.Session.Clear()
	sm.log.Info("session cleared")
}

type Overview struct {
	Dashboard Dashboard            `json:"dashboard"`
	Burnout   database.BurnoutRisk `json:"burnoutRisk"`
	Summary   string               `json:"summary,omitempty"`
	PepTalk   string               `json:"pepTalk"`
	Insights  []string             `json:"insights"`
}

// Overview refreshes entries and loads the burnout check and weekly summary
// in parallel. Only a failed entry fetch is returned as an error; the
// overview is still built from the previous entries.
func (sm *ServiceManager) Overview(ctx context.Context) (Overview, error) {
	var (
		risk    database.BurnoutRisk
		summary string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sm.Entries.Fetch(gctx)
	})
	g.Go(func() error {
		risk = sm.Insights.CheckBurnout(gctx)
		return nil
	})
	g.Go(func() error {
		s, err := sm.Entries.WeeklySummary(gctx)
		if err != nil {
			sm.log.Warn("weekly summary unavailable", zap.Error(err))
			return nil
		}
		summary = s
		return nil
	})
	err := g.Wait()

	d := sm.Dashboard()
	return Overview{
		Dashboard: d,
		Burnout:   risk,
		Summary:   summary,
		PepTalk:   PepTalk(sm.Entries.Entries(), sm.Mapper),
		Insights:  Insights(d, risk),
	}, err
}
