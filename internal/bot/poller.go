package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"stock-noti-bot/internal/logger"
)

const (
	pollInterval   = 2 * time.Second
	pollTimeout    = 10 // seconds, Telegram long-poll
	pollErrBackoff = 5 * time.Second
)

// Poller pulls updates from Telegram and feeds them to the dispatcher.
// Transport errors back off and retry; the loop only stops when the
// context is cancelled.
type Poller struct {
	bot        *tgbotapi.BotAPI
	dispatcher *Dispatcher
	offset     int
}

func NewPoller(bot *tgbotapi.BotAPI, dispatcher *Dispatcher) *Poller {
	return &Poller{bot: bot, dispatcher: dispatcher}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	logger.Info(ctx, "Interactive bot polling started")

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Interactive bot polling stopped")
			return
		default:
		}

		cfg := tgbotapi.NewUpdate(p.offset)
		cfg.Timeout = pollTimeout

		updates, err := p.bot.GetUpdates(cfg)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to get updates", err)
			sleepCtx(ctx, pollErrBackoff)
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= p.offset {
				p.offset = update.UpdateID + 1
			}
			p.handleUpdate(ctx, update)
		}

		sleepCtx(ctx, pollInterval)
	}
}

func (p *Poller) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	user := "User"
	if update.Message.From != nil && update.Message.From.FirstName != "" {
		user = update.Message.From.FirstName
	}

	p.dispatcher.HandleMessage(ctx, update.Message.Chat.ID, update.Message.MessageID, update.Message.Text, user)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
