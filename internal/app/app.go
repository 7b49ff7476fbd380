package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"zenpulse/internal/api"
	"zenpulse/internal/config"
	"zenpulse/internal/database"
	"zenpulse/internal/server"
	"zenpulse/internal/services"
	"zenpulse/internal/telegram"
)

const (
	moodReminderSpec = "0 20 * * *"
	burnoutCheckSpec = "0 9 * * *"
	daySummarySpec   = "55 21 * * *"

	shutdownTimeout = 10 * time.Second
)

type Application struct {
	config    *config.Config
	db        *database.Database
	bot       *telegram.Bot
	server    *server.Server
	services  *services.ServiceManager
	scheduler *scheduler
	log       *zap.Logger

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// New wires storage, the backend client, services and the optional front
// ends. Nothing runs until Start.
func New(cfg *config.Config, log *zap.Logger) (*Application, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db, err := database.New(cfg.Session.Path)
	if err != nil {
		return nil, err
	}

	client := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout, loc, log)
	if cfg.API.Token != "" {
		client.SetToken(cfg.API.Token)
	}

	ctx, cancel := context.WithCancel(context.Background())
	serviceManager := services.NewServiceManager(ctx, client, database.NewStorage(db, cfg.Session.TabID), nil, loc, log)

	app := &Application{
		config:     cfg,
		db:         db,
		services:   serviceManager,
		scheduler:  newScheduler(loc, log),
		log:        log,
		ctx:        ctx,
		cancelFunc: cancel,
	}

	if cfg.TelegramEnabled() {
		bot, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.ChatID, serviceManager, log)
		if err != nil {
			cancel()
			db.Close()
			return nil, err
		}
		app.bot = bot
		serviceManager.SetNotificationSender(bot)
	}

	if cfg.ServerEnabled() {
		app.server = server.NewServer(server.Config{Addr: ":" + cfg.Server.Port}, serviceManager, log)
	}

	if err := app.setupCronJobs(); err != nil {
		cancel()
		db.Close()
		return nil, err
	}

	return app, nil
}

func (a *Application) Services() *services.ServiceManager {
	return a.services
}

func (a *Application) Start() error {
	a.log.Info("🚀 starting zenpulse")

	if a.services.Auth.SignedIn() {
		if exp, ok := a.services.Auth.TokenExpiry(); ok && time.Until(exp) < 24*time.Hour {
			a.log.Warn("API token expires soon", zap.Time("expires_at", exp))
		}
	}

	if err := a.refresh(); err != nil {
		a.log.Warn("initial fetch failed, will retry on schedule", zap.Error(err))
	}
	a.services.Chat.Greet()

	if a.bot != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.bot.Start(a.ctx)
		}()
	}

	if a.server != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.server.Run(a.ctx); err != nil {
				a.log.Error("local API stopped", zap.Error(err))
			}
		}()
	}

	a.scheduler.start()

	if a.bot != nil {
		a.sendWelcomeMessage()
		a.log.Info("✅ bot running", zap.String("username", a.bot.GetUsername()))
	}
	if a.server != nil {
		a.log.Info("🌐 local API enabled", zap.String("port", a.config.Server.Port))
	}
	return nil
}

func (a *Application) Stop() error {
	a.log.Info("🛑 stopping zenpulse")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.cancelFunc()
	a.scheduler.stop(ctx)
	a.wg.Wait()

	var errs []error
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close session db: %w", err))
	}
	if err := a.log.Sync(); err != nil {
		a.log.Debug("log sync failed", zap.Error(err))
	}

	a.log.Info("✅ stopped")
	return errors.Join(errs...)
}

func (a *Application) refresh() error {
	ctx, cancel := context.WithTimeout(a.ctx, a.config.API.Timeout)
	defer cancel()
	return a.services.Entries.Fetch(ctx)
}

func (a *Application) setupCronJobs() error {
	if err := a.scheduler.add(a.config.Refresh.Schedule, "entry refresh", func() {
		if err := a.refresh(); err != nil {
			a.log.Debug("scheduled refresh failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	if err := a.scheduler.add(moodReminderSpec, "mood reminder", func() {
		a.services.Notification.SendMoodReminder()
	}); err != nil {
		return err
	}

	if err := a.scheduler.add(burnoutCheckSpec, "burnout check", func() {
		ctx, cancel := context.WithTimeout(a.ctx, a.config.API.Timeout)
		defer cancel()
		a.services.Notification.SendBurnoutAlert(ctx)
	}); err != nil {
		return err
	}

	return a.scheduler.add(daySummarySpec, "day summary", func() {
		a.services.Notification.SendDailySummary()
	})
}

func (a *Application) sendWelcomeMessage() {
	d := a.services.Dashboard()
	message := fmt.Sprintf(`🧘 <b>ZenPulse</b> is running

Today: %s
Current mood: %d/5 (%s)

/today - today's overview
/mood - log your mood
/help - all commands`, d.Date, d.DisplayMood, d.MoodLabel)

	a.bot.SendMessageOrLogError(message)
}
