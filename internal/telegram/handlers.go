package telegram

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (b *Bot) handleStart(_ context.Context, _ *tgbotapi.Message) {
	b.SendMessageOrLogError(welcomeText)

	b.services.Chat.Greet()
	if msgs := b.services.Session.Messages(); len(msgs) > 0 {
		b.SendMessageOrLogError(html.EscapeString(msgs[len(msgs)-1].Text))
	}
}

func (b *Bot) handleHelp(_ context.Context, _ *tgbotapi.Message) {
	b.SendMessageOrLogError(helpText)
}

func (b *Bot) handleMood(ctx context.Context, msg *tgbotapi.Message) {
	args := msg.CommandArguments()
	if strings.TrimSpace(args) == "" {
		b.sendWithKeyboard("😶 How are you feeling today?", moodKeyboard())
		return
	}

	mood, journal, err := parseMoodArgs(args)
	if err != nil {
		b.SendMessageOrLogError(userError(err) + "\nFormat: /mood [1-5] [journal]")
		return
	}
	b.saveMood(ctx, mood, journal)
}

func (b *Bot) saveMood(ctx context.Context, mood int, journal string) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var journalPtr *string
	if journal != "" {
		journalPtr = &journal
	}
	entry, err := b.services.SaveMood(ctx, mood, journalPtr, nil)
	if err != nil {
		b.log.Warn("save mood failed", zap.Int("mood", mood), zap.Error(err))
		b.SendMessageOrLogError(userError(err))
		return
	}
	b.SendMessageOrLogError(formatSavedEntry(entry))
}

func (b *Bot) handleJournal(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		b.SendMessageOrLogError("❌ Format: /journal [text]")
		return
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	entry, err := b.services.SaveJournal(ctx, text)
	if err != nil {
		b.log.Warn("save journal failed", zap.Error(err))
		b.SendMessageOrLogError(userError(err))
		return
	}
	b.SendMessageOrLogError(formatSavedEntry(entry))
}

func (b *Bot) handleToday(_ context.Context, _ *tgbotapi.Message) {
	b.SendMessageOrLogError(formatToday(b.services.Dashboard()))
}

func (b *Bot) handleHistory(_ context.Context, _ *tgbotapi.Message) {
	b.SendMessageOrLogError(formatHistory(b.services.Dashboard().MoodHistory))
}

func (b *Bot) handleStats(_ context.Context, _ *tgbotapi.Message) {
	b.SendMessageOrLogError(formatStats(b.services.Dashboard()))
}

func (b *Bot) handleSummary(ctx context.Context, _ *tgbotapi.Message) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	summary, err := b.services.Entries.WeeklySummary(ctx)
	if err != nil {
		b.SendMessageOrLogError(userError(err))
		return
	}
	if summary == "" {
		b.SendMessageOrLogError("📭 No summary for this week yet")
		return
	}
	b.SendMessageOrLogError("🗓 <b>Weekly summary</b>\n\n" + html.EscapeString(summary))
}

func (b *Bot) handleInsights(ctx context.Context, _ *tgbotapi.Message) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	overview, err := b.services.Overview(ctx)
	if err != nil {
		b.log.Warn("overview refresh failed, showing cached entries", zap.Error(err))
	}
	b.SendMessageOrLogError(formatInsights(overview))
}

func (b *Bot) handlePepTalk(_ context.Context, _ *tgbotapi.Message) {
	b.sendWithKeyboard(formatPepTalk(b.services.PepTalk(false)), pepTalkKeyboard())
}

func (b *Bot) handleClear(_ context.Context, _ *tgbotapi.Message) {
	n := len(b.services.Session.Messages())
	if n == 0 {
		b.SendMessageOrLogError("✨ The session is already empty")
		return
	}
	b.sendWithKeyboard(fmt.Sprintf("🧹 Clear %d session messages and sentiments?", n), clearKeyboard())
}

func (b *Bot) handleRefresh(ctx context.Context, _ *tgbotapi.Message) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	count, err := b.services.Refresh(ctx)
	if err != nil {
		b.SendMessageOrLogError(userError(err))
		return
	}
	b.SendMessageOrLogError(fmt.Sprintf("🔄 Loaded %d entries", count))
}

func (b *Bot) handleChat(ctx context.Context, text string) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(b.chatID, tgbotapi.ChatTyping)); err != nil {
		b.log.Debug("send typing action failed", zap.Error(err))
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := b.services.SendChat(ctx, text)
	if err != nil {
		b.SendMessageOrLogError(userError(err))
		return
	}
	b.SendMessageOrLogError(formatTurn(res))
}
