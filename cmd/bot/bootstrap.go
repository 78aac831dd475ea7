package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"stock-noti-bot/internal/bot"
	"stock-noti-bot/internal/engine"
	"stock-noti-bot/internal/engine/engineobs"
	"stock-noti-bot/internal/interfaces"
	"stock-noti-bot/internal/llm"
	"stock-noti-bot/internal/llm/llmobs"
	"stock-noti-bot/internal/logger"
	"stock-noti-bot/internal/market"
	"stock-noti-bot/internal/news"
	"stock-noti-bot/internal/notify"
	"stock-noti-bot/internal/sched"
	"stock-noti-bot/internal/store"
	"stock-noti-bot/internal/trace"
)

// initializeSystem initializes environment, logger and tracer
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	// Initialize logger
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Initialize tracer
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

// loadConfig loads and returns the deployment configuration
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// application holds the wired component graph
type application struct {
	cfg        *store.Config
	settings   *store.Settings
	fetcher    interfaces.Fetcher
	classifier interfaces.Classifier
	chatter    llm.Chatter
	messenger  *notify.TelegramMessenger
	engine     interfaces.Engine
	contexts   *news.ContextCache
	chatID     int64
}

// buildApplication wires every component. A non-empty singleSymbol
// replaces the persisted watchlist with an in-memory one holding just
// that symbol.
func buildApplication(ctx context.Context, cfg *store.Config, singleSymbol string) (*application, error) {
	chatID, err := cfg.ChatID()
	if err != nil {
		return nil, err
	}

	settings := initializeSettings(ctx, cfg, singleSymbol)
	fetcher := market.NewFetcher()
	chatter := llm.NewChatter(cfg)
	classifier := llmobs.Wrap(news.NewAnalyzer(chatter, cfg))

	messenger, err := notify.NewTelegramMessenger(cfg.Telegram.BotToken)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize Telegram", err)
		return nil, err
	}

	contexts := news.NewContextCache(100)
	eng := engineobs.Wrap(engine.New(cfg, settings, fetcher, classifier, messenger, contexts, chatID))

	logger.Info(ctx, "Application initialized",
		"provider", cfg.AI.Provider,
		"model", cfg.AI.Model,
		"watchlist", strings.Join(settings.Watchlist(), ","),
	)

	return &application{
		cfg:        cfg,
		settings:   settings,
		fetcher:    fetcher,
		classifier: classifier,
		chatter:    chatter,
		messenger:  messenger,
		engine:     eng,
		contexts:   contexts,
		chatID:     chatID,
	}, nil
}

// initializeSettings loads the persisted user settings, or builds a
// throwaway single-symbol watchlist for --symbol runs.
func initializeSettings(ctx context.Context, cfg *store.Config, singleSymbol string) *store.Settings {
	if singleSymbol == "" {
		return store.LoadSettings(cfg.SettingsFile)
	}

	settings := store.LoadSettings(filepath.Join(os.TempDir(), "stock-noti-single.json"))
	for _, sym := range settings.Watchlist() {
		if _, err := settings.RemoveFromWatchlist(sym); err != nil {
			logger.Warn(ctx, "Failed to reset single-symbol watchlist", "error", err)
		}
	}
	if _, err := settings.AddToWatchlist(singleSymbol); err != nil {
		logger.Warn(ctx, "Failed to build single-symbol watchlist", "error", err)
	}
	logger.Info(ctx, "Single-symbol mode", "symbol", strings.ToUpper(singleSymbol))
	return settings
}

// runConnectionTests verifies Telegram and the AI provider, returning
// true when both pass.
func runConnectionTests(ctx context.Context, app *application, quiet bool) bool {
	if !quiet {
		fmt.Println("Testing connections...")
	}

	telegramOK := app.messenger.TestConnection(ctx) == nil

	aiOK := false
	if out, err := app.chatter.Complete(ctx, "You are a connectivity probe.", "Respond with: OK"); err == nil {
		aiOK = strings.Contains(strings.ToUpper(out), "OK")
	} else {
		logger.ErrorWithErr(ctx, "AI connection test failed", err)
	}

	if !quiet {
		fmt.Printf("Telegram: %s\n", checkmark(telegramOK))
		fmt.Printf("AI API: %s\n", checkmark(aiOK))
	}

	if telegramOK && aiOK && !quiet {
		if err := app.messenger.Send(ctx, app.chatID, "✅ Stock noti bot test successful!"); err != nil {
			logger.ErrorWithErr(ctx, "Failed to send test message", err)
		}
	}
	return telegramOK && aiOK
}

func checkmark(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}

// runInteractiveBot starts the chat poller alongside the interval
// scheduler and blocks until ctx is cancelled.
func runInteractiveBot(ctx context.Context, app *application, sendHelp bool) {
	dispatcher := bot.NewDispatcher(app.cfg, app.settings, app.fetcher, app.classifier, app.messenger, app.engine, app.contexts)

	if sendHelp {
		help := notify.FormatHelp(app.settings.Watchlist(), app.settings.IntervalMinutes(), app.settings.Language())
		if err := app.messenger.Send(ctx, app.chatID, help); err != nil {
			logger.ErrorWithErr(ctx, "Failed to send startup help", err)
		}
	}

	scheduler := sched.New(app.settings, app.engine)
	go scheduler.RunInterval(ctx)

	poller := bot.NewPoller(app.messenger.Bot(), dispatcher)
	poller.Run(ctx)
}

// runNewsAlerts runs a one-shot news pass and prints a per-symbol
// summary.
func runNewsAlerts(ctx context.Context, app *application, minScore int) {
	results := app.engine.SendNewsAlerts(ctx, minScore)

	fmt.Println("\nNews alerts sent:")
	for _, r := range results {
		status := "⏭️ Skipped"
		if r.Sent {
			status = "✅ Sent"
		}
		if r.Err != "" {
			status = "❌ " + r.Err
		}
		fmt.Printf("  %s: %s (score: %d)\n", r.Symbol, status, r.ImportanceScore)
	}
}

// runScheduled blocks on the configured cron schedule.
func runScheduled(ctx context.Context, app *application) error {
	scheduler := sched.New(app.settings, app.engine)
	return scheduler.RunCron(ctx, app.cfg.Schedule.Cron, app.cfg.Schedule.Timezone)
}
