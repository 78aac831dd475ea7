package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stock-noti-bot/internal/interfaces"
	"stock-noti-bot/internal/logger"
	"stock-noti-bot/internal/news"
	"stock-noti-bot/internal/notify"
	"stock-noti-bot/internal/store"
	"stock-noti-bot/internal/types"
)

// commandNewsWindow is wider than the monitoring window so a chat lookup
// still shows yesterday's stories.
const commandNewsWindow = 48 * time.Hour

type handlerFunc func(ctx context.Context, chatID int64, args []string)

// Dispatcher routes incoming chat messages to command handlers. Messages
// without a leading slash are treated as free-form questions with symbol
// detection.
type Dispatcher struct {
	cfg        *store.Config
	settings   *store.Settings
	fetcher    interfaces.Fetcher
	classifier interfaces.Classifier
	messenger  interfaces.Messenger
	engine     interfaces.Engine
	contexts   *news.ContextCache
	dedup      *messageDedup

	commands map[string]handlerFunc
}

func NewDispatcher(
	cfg *store.Config,
	settings *store.Settings,
	fetcher interfaces.Fetcher,
	classifier interfaces.Classifier,
	messenger interfaces.Messenger,
	engine interfaces.Engine,
	contexts *news.ContextCache,
) *Dispatcher {
	d := &Dispatcher{
		cfg:        cfg,
		settings:   settings,
		fetcher:    fetcher,
		classifier: classifier,
		messenger:  messenger,
		engine:     engine,
		contexts:   contexts,
		dedup:      newMessageDedup(),
	}
	d.commands = map[string]handlerFunc{
		"/start":     d.handleHelp,
		"/help":      d.handleHelp,
		"/stocks":    d.handleStocks,
		"/ask":       d.handleAsk,
		"/deep":      d.handleDeep,
		"/price":     d.handlePrice,
		"/news":      d.handleNews,
		"/add":       d.handleAdd,
		"/remove":    d.handleRemove,
		"/watchlist": d.handleWatchlist,
		"/interval":  d.handleInterval,
		"/lang":      d.handleLang,
		"/now":       d.handleNow,
	}
	return d
}

// HandleMessage processes one incoming chat message. Redelivered updates
// are dropped here, so every handler runs at most once per message.
func (d *Dispatcher) HandleMessage(ctx context.Context, chatID int64, messageID int, text, user string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if d.dedup.Seen(chatID, messageID) {
		logger.Debug(ctx, "Skipping duplicate message", "chat_id", chatID, "message_id", messageID)
		return
	}

	logger.Info(ctx, "Message received", "user", user, "text", text)

	if strings.HasPrefix(text, "/") {
		parts := strings.Fields(text)
		command := strings.ToLower(parts[0])
		args := parts[1:]

		handler, ok := d.commands[command]
		if !ok {
			d.reply(ctx, chatID, fmt.Sprintf("Unknown command: %s\nSend /help for available commands.", command))
			return
		}
		handler(ctx, chatID, args)
		return
	}

	d.handleQuestion(ctx, chatID, text)
}

func (d *Dispatcher) handleHelp(ctx context.Context, chatID int64, _ []string) {
	d.reply(ctx, chatID, notify.FormatHelp(d.settings.Watchlist(), d.settings.IntervalMinutes(), d.settings.Language()))
}

func (d *Dispatcher) handleStocks(ctx context.Context, chatID int64, _ []string) {
	watchlist := d.settings.Watchlist()
	if len(watchlist) == 0 {
		d.reply(ctx, chatID, "Your watchlist is empty. Use /add <symbol> to add stocks.")
		return
	}

	var b strings.Builder
	b.WriteString("📊 *Your Watchlist*\n\n")
	for _, symbol := range watchlist {
		name := d.cfg.StockName(symbol)
		snap, err := d.fetcher.Quote(ctx, symbol)
		if err != nil || snap == nil {
			fmt.Fprintf(&b, "*%s* - %s\n\n", symbol, name)
			continue
		}
		pct := 0.0
		if snap.ChangePercent != nil {
			pct = *snap.ChangePercent
		}
		direction := "🔺"
		if pct < 0 {
			direction = "🔻"
		}
		fmt.Fprintf(&b, "*%s* - %s\n  $%.2f %s %.2f%%\n\n", symbol, name, snap.Price, direction, absFloat(pct))
	}
	d.reply(ctx, chatID, b.String())
}

func (d *Dispatcher) handleAsk(ctx context.Context, chatID int64, args []string) {
	if len(args) < 2 {
		d.reply(ctx, chatID, "Usage: /ask <symbol> <question>\nExample: /ask NVDA What's the outlook?")
		return
	}
	symbol := strings.ToUpper(args[0])
	question := strings.Join(args[1:], " ")
	d.answerQuestion(ctx, chatID, symbol, question)
}

func (d *Dispatcher) handleDeep(ctx context.Context, chatID int64, args []string) {
	if len(args) < 2 {
		d.reply(ctx, chatID, "Usage: /deep <symbol> <topic>\nTopics: earnings, competition, risks, outlook, catalysts\nExample: /deep NVDA competition")
		return
	}
	symbol := strings.ToUpper(args[0])
	topic := strings.Join(args[1:], " ")

	d.reply(ctx, chatID, fmt.Sprintf("🔍 Analyzing %s for %s...", topic, symbol))

	snap, _ := d.fetcher.Quote(ctx, symbol)
	headlines := d.contextNews(ctx, symbol)

	result, err := d.classifier.DeepDive(ctx, symbol, d.cfg.StockName(symbol), topic, snap, headlines)
	if err != nil {
		d.reply(ctx, chatID, "Error: "+err.Error())
		return
	}
	d.reply(ctx, chatID, notify.FormatDeepDive(symbol, result))
}

func (d *Dispatcher) handlePrice(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		d.reply(ctx, chatID, "Usage: /price <symbol>\nExample: /price NVDA")
		return
	}
	symbol := strings.ToUpper(args[0])

	snap, err := d.fetcher.Quote(ctx, symbol)
	if err != nil || snap == nil {
		d.reply(ctx, chatID, fmt.Sprintf("Could not fetch price for %s", symbol))
		return
	}
	d.reply(ctx, chatID, notify.FormatSnapshot(snap, d.cfg.StockName(symbol)))
}

func (d *Dispatcher) handleNews(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		d.reply(ctx, chatID, "Usage: /news <symbol>\nExample: /news NVDA")
		return
	}
	symbol := strings.ToUpper(args[0])

	headlines, err := d.fetcher.News(ctx, symbol, commandNewsWindow)
	if err != nil || len(headlines) == 0 {
		d.reply(ctx, chatID, fmt.Sprintf("No recent news for %s", symbol))
		return
	}
	d.reply(ctx, chatID, notify.FormatNewsList(symbol, d.cfg.StockName(symbol), headlines))
}

func (d *Dispatcher) handleAdd(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		d.reply(ctx, chatID, "Usage: /add <symbol>\nExample: /add AAPL")
		return
	}
	symbol := strings.ToUpper(args[0])

	added, err := d.settings.AddToWatchlist(symbol)
	if err != nil {
		d.reply(ctx, chatID, "Failed to save watchlist: "+err.Error())
		return
	}
	if !added {
		d.reply(ctx, chatID, fmt.Sprintf("%s is already in your watchlist.", symbol))
		return
	}
	d.reply(ctx, chatID, fmt.Sprintf("✅ Added %s to watchlist!\n\nCurrent: %s", symbol, strings.Join(d.settings.Watchlist(), ", ")))
}

func (d *Dispatcher) handleRemove(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		d.reply(ctx, chatID, "Usage: /remove <symbol>\nExample: /remove AAPL")
		return
	}
	symbol := strings.ToUpper(args[0])

	removed, err := d.settings.RemoveFromWatchlist(symbol)
	if err != nil {
		d.reply(ctx, chatID, "Failed to save watchlist: "+err.Error())
		return
	}
	if !removed {
		d.reply(ctx, chatID, fmt.Sprintf("%s is not in your watchlist.", symbol))
		return
	}
	d.reply(ctx, chatID, fmt.Sprintf("✅ Removed %s from watchlist.\n\nCurrent: %s", symbol, strings.Join(d.settings.Watchlist(), ", ")))
}

func (d *Dispatcher) handleWatchlist(ctx context.Context, chatID int64, _ []string) {
	d.reply(ctx, chatID, notify.FormatWatchlist(d.settings.Watchlist(), d.settings.IntervalMinutes(), d.settings.Language()))
}

func (d *Dispatcher) handleInterval(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		d.reply(ctx, chatID, fmt.Sprintf("Current interval: %d minutes\n\nUsage: /interval <minutes>\nExample: /interval 30\n\nMin: 5, Max: 1440 (24 hours)", d.settings.IntervalMinutes()))
		return
	}

	minutes, err := strconv.Atoi(args[0])
	if err != nil {
		d.reply(ctx, chatID, "Please enter a valid number.\nExample: /interval 30")
		return
	}
	if minutes < 5 || minutes > 1440 {
		d.reply(ctx, chatID, "Interval must be between 5 and 1440 minutes (24 hours).")
		return
	}

	stored, err := d.settings.SetInterval(minutes)
	if err != nil {
		d.reply(ctx, chatID, "Failed to save interval: "+err.Error())
		return
	}
	d.reply(ctx, chatID, fmt.Sprintf("✅ Interval set to %d minutes.", stored))
}

func (d *Dispatcher) handleLang(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		current := "English"
		if d.settings.Language() == "zh" {
			current = "中文"
		}
		d.reply(ctx, chatID, fmt.Sprintf("Current language: %s\n\nUsage: /lang zh\n or /lang en", current))
		return
	}

	lang, ok := store.ParseLanguage(args[0])
	if !ok {
		d.reply(ctx, chatID, "Please use 'zh' for Chinese or 'en' for English.")
		return
	}
	if err := d.settings.SetLanguage(lang); err != nil {
		d.reply(ctx, chatID, "Failed to save language: "+err.Error())
		return
	}
	if lang == "zh" {
		d.reply(ctx, chatID, "✅ 语言已设置为中文。")
	} else {
		d.reply(ctx, chatID, "✅ Language set to English.")
	}
}

func (d *Dispatcher) handleNow(ctx context.Context, chatID int64, _ []string) {
	watchlist := d.settings.Watchlist()
	if len(watchlist) == 0 {
		d.reply(ctx, chatID, "Your watchlist is empty. Use /add <symbol> first.")
		return
	}

	d.reply(ctx, chatID, fmt.Sprintf("🔄 Fetching news for: %s...", strings.Join(watchlist, ", ")))
	d.engine.CycleNow(ctx)
	d.reply(ctx, chatID, fmt.Sprintf("✅ Done! Next auto update in %d minutes.", d.settings.IntervalMinutes()))
}

// handleQuestion treats a plain message as a question, routing it to the
// detected symbol or nudging the user toward /ask.
func (d *Dispatcher) handleQuestion(ctx context.Context, chatID int64, text string) {
	symbol := d.detectSymbol(text)
	if symbol == "" {
		d.reply(ctx, chatID, `I'd be happy to help! Try:

• /ask <symbol> <question> - Ask about a specific stock
• /stocks - See monitored stocks
• Or include a stock symbol in your question

Example: "What's the outlook for NVDA?"`)
		return
	}
	d.answerQuestion(ctx, chatID, symbol, text)
}

func (d *Dispatcher) answerQuestion(ctx context.Context, chatID int64, symbol, question string) {
	d.reply(ctx, chatID, fmt.Sprintf("🤔 Thinking about %s...", symbol))

	var prior *types.Analysis
	var headlines []types.NewsItem
	if cached, ok := d.contexts.Get(symbol); ok {
		prior = &cached.Analysis
		headlines = cached.News
	}

	result, err := d.classifier.Ask(ctx, symbol, d.cfg.StockName(symbol), question, prior, headlines)
	if err != nil {
		d.reply(ctx, chatID, fmt.Sprintf("Sorry, I couldn't process your question. Error: %s", err.Error()))
		return
	}
	d.reply(ctx, chatID, notify.FormatAnswer(symbol, result))
}

// detectSymbol resolves a symbol mentioned in free text. Watchlist
// symbols win, then configured symbols and their keywords, then symbols
// with a recent alert.
func (d *Dispatcher) detectSymbol(text string) string {
	upper := strings.ToUpper(text)

	for _, symbol := range d.settings.Watchlist() {
		if strings.Contains(upper, symbol) {
			return symbol
		}
	}
	for _, stock := range d.cfg.Stocks {
		if strings.Contains(upper, stock.Symbol) {
			return stock.Symbol
		}
		for _, keyword := range stock.Keywords {
			if strings.Contains(upper, strings.ToUpper(keyword)) {
				return stock.Symbol
			}
		}
	}
	for _, symbol := range d.contexts.Symbols() {
		if strings.Contains(upper, symbol) {
			return symbol
		}
	}
	return ""
}

// contextNews prefers cached alert headlines, falling back to a fresh
// fetch.
func (d *Dispatcher) contextNews(ctx context.Context, symbol string) []types.NewsItem {
	if cached, ok := d.contexts.Get(symbol); ok && len(cached.News) > 0 {
		return cached.News
	}
	headlines, err := d.fetcher.News(ctx, symbol, commandNewsWindow)
	if err != nil {
		return nil
	}
	return headlines
}

func (d *Dispatcher) reply(ctx context.Context, chatID int64, text string) {
	if err := d.messenger.Send(ctx, chatID, text); err != nil {
		logger.ErrorWithErr(ctx, "Failed to send reply", err, "chat_id", chatID)
	}
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
