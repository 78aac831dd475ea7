package notify

import (
	"context"
	"fmt"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"stock-noti-bot/internal/interfaces"
	"stock-noti-bot/internal/logger"
)

// maxMessageLength stays under Telegram's 4096-char limit with room for
// the truncation marker.
const maxMessageLength = 4000

// TelegramMessenger delivers formatted alerts via the Telegram Bot API.
type TelegramMessenger struct {
	bot *tgbotapi.BotAPI
}

var _ interfaces.Messenger = (*TelegramMessenger)(nil)

func NewTelegramMessenger(token string) (*TelegramMessenger, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &TelegramMessenger{bot: bot}, nil
}

// Bot exposes the underlying API client for the update poller.
func (m *TelegramMessenger) Bot() *tgbotapi.BotAPI {
	return m.bot
}

// Send delivers one message. Markdown formatting is attempted first; if
// Telegram rejects it (model output routinely breaks entity parsing) the
// message is retried as plain text.
func (m *TelegramMessenger) Send(ctx context.Context, chatID int64, text string) error {
	text = Truncate(text)

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	msg.DisableWebPagePreview = true

	if _, err := m.bot.Send(msg); err != nil {
		logger.Warn(ctx, "Markdown parsing failed, retrying without formatting", "chat_id", chatID)
		plain := tgbotapi.NewMessage(chatID, text)
		plain.DisableWebPagePreview = true
		if _, err := m.bot.Send(plain); err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
	}
	return nil
}

// TestConnection verifies the bot token against the Telegram API.
func (m *TelegramMessenger) TestConnection(ctx context.Context) error {
	me, err := m.bot.GetMe()
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	logger.Info(ctx, "Telegram connection verified", "bot_username", me.UserName)
	return nil
}

// Truncate enforces the transport limit, marking cut messages. The cut
// lands on a rune boundary so multi-byte text never yields an invalid
// sequence.
func Truncate(text string) string {
	if len(text) <= maxMessageLength {
		return text
	}
	cut := maxMessageLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "\n\n... (truncated)"
}
