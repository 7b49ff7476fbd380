package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"zenpulse/internal/services"
)

// requestTimeout bounds each backend call made on behalf of one update.
const requestTimeout = 20 * time.Second

// botClient is the part of *tgbotapi.BotAPI the bot uses.
type botClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Bot struct {
	api      botClient
	username string
	chatID   int64
	services *services.ServiceManager
	handlers map[string]func(context.Context, *tgbotapi.Message)
	log      *zap.Logger

	// chat turns run outside the update loop
	turns sync.WaitGroup
}

func NewBot(token string, chatID int64, serviceManager *services.ServiceManager, log *zap.Logger) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	bot := newBot(botAPI, botAPI.Self.UserName, chatID, serviceManager, log)
	bot.log.Info("bot initialized", zap.String("username", bot.username))
	return bot, nil
}

func newBot(client botClient, username string, chatID int64, serviceManager *services.ServiceManager, log *zap.Logger) *Bot {
	bot := &Bot{
		api:      client,
		username: username,
		chatID:   chatID,
		services: serviceManager,
		handlers: make(map[string]func(context.Context, *tgbotapi.Message)),
		log:      log.Named("telegram"),
	}
	bot.registerHandlers()
	return bot
}

func (b *Bot) registerHandlers() {
	b.handlers["start"] = b.handleStart
	b.handlers["help"] = b.handleHelp
	b.handlers["mood"] = b.handleMood
	b.handlers["journal"] = b.handleJournal
	b.handlers["today"] = b.handleToday
	b.handlers["history"] = b.handleHistory
	b.handlers["stats"] = b.handleStats
	b.handlers["summary"] = b.handleSummary
	b.handlers["insights"] = b.handleInsights
	b.handlers["peptalk"] = b.handlePepTalk
	b.handlers["clear"] = b.handleClear
	b.handlers["refresh"] = b.handleRefresh
}

// SendMessage sends HTML text to the owner chat.
func (b *Bot) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendMessageOrLogError(text string) {
	if err := b.SendMessage(text); err != nil {
		b.log.Error("send message failed", zap.Error(err))
	}
}

func (b *Bot) sendWithKeyboard(text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send keyboard failed", zap.Error(err))
	}
}

func (b *Bot) GetUsername() string {
	return b.username
}

// Start consumes updates until ctx is done, then waits for running chat turns.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	defer b.turns.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallbackQuery(ctx, update.CallbackQuery)
		return
	}

	if update.Message == nil {
		return
	}

	if update.Message.Chat.ID != b.chatID {
		b.log.Warn("message from unknown chat", zap.Int64("chat_id", update.Message.Chat.ID))
		denied := tgbotapi.NewMessage(update.Message.Chat.ID, "⛔ Access denied")
		if _, err := b.api.Send(denied); err != nil {
			b.log.Debug("send access denied failed", zap.Error(err))
		}
		return
	}

	b.handleMessage(ctx, update.Message)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if !msg.IsCommand() {
		b.startTurn(ctx, text)
		return
	}

	if handler, exists := b.handlers[msg.Command()]; exists {
		handler(ctx, msg)
		return
	}
	b.SendMessageOrLogError("❌ Unknown command. Use /help")
}

// startTurn runs a chat turn in its own goroutine so a slow reply does not
// hold up mood commands.
func (b *Bot) startTurn(ctx context.Context, text string) {
	b.turns.Add(1)
	go func() {
		defer b.turns.Done()
		b.handleChat(ctx, text)
	}()
}

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	defer func() {
		if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "✅")); err != nil {
			b.log.Debug("answer callback failed", zap.Error(err))
		}
	}()

	if callback.Message == nil || callback.Message.Chat.ID != b.chatID {
		return
	}

	data := callback.Data
	b.log.Debug("received callback", zap.String("data", data))

	switch {
	case strings.HasPrefix(data, "mood_"):
		mood, err := strconv.Atoi(strings.TrimPrefix(data, "mood_"))
		if err != nil {
			b.SendMessageOrLogError("❌ Could not read that choice")
			return
		}
		b.safeDeleteMessage(callback.Message.MessageID)
		b.saveMood(ctx, mood, "")
	case data == "clear_confirm":
		b.safeDeleteMessage(callback.Message.MessageID)
		b.services.ClearSession()
		b.SendMessageOrLogError("🧹 Session cleared. Say hi to start again!")
	case data == "clear_cancel":
		b.safeDeleteMessage(callback.Message.MessageID)
	case data == "peptalk_another":
		b.safeDeleteMessage(callback.Message.MessageID)
		b.sendWithKeyboard(formatPepTalk(b.services.PepTalk(true)), pepTalkKeyboard())
	}
}

func (b *Bot) safeDeleteMessage(messageID int) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(b.chatID, messageID)); err != nil {
		b.log.Warn("delete message failed", zap.Int("message_id", messageID), zap.Error(err))
	}
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, requestTimeout)
}
