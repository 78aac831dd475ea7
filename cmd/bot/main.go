package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"stock-noti-bot/internal/logger"
	"stock-noti-bot/internal/store"
	"stock-noti-bot/internal/types"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	once := flag.Bool("once", false, "Run a single monitoring cycle and exit")
	test := flag.Bool("test", false, "Test Telegram and AI connections and exit")
	quiet := flag.Bool("quiet", false, "Suppress console output")
	newsOnly := flag.Bool("news", false, "Send news alerts once and exit")
	botMode := flag.Bool("bot", false, "Run the interactive chat bot")
	sendHelp := flag.Bool("send-help", false, "Send the help message on bot startup")
	symbol := flag.String("symbol", "", "Monitor a single symbol instead of the watchlist")
	minScore := flag.Int("min-score", 0, "Minimum importance score for --news mode (0 uses alert_settings.min_importance)")
	flag.Parse()

	if err := initializeSystem(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info(ctx, "Received shutdown signal", "signal", sig.String())
		cancel()
	}()

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if *symbol != "" {
		cfg.Stocks = []store.StockConfig{{
			Symbol: strings.ToUpper(*symbol),
			Name:   strings.ToUpper(*symbol),
		}}
	}

	app, err := buildApplication(ctx, cfg, *symbol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *test:
		if runConnectionTests(ctx, app, *quiet) {
			os.Exit(0)
		}
		os.Exit(1)

	case *botMode:
		fmt.Println("🤖 Starting interactive bot...")
		runInteractiveBot(ctx, app, *sendHelp)

	case *newsOnly:
		runNewsAlerts(ctx, app, *minScore)

	case *once || !cfg.Schedule.Enabled:
		printResults(app.engine.Cycle(ctx), *quiet)

	default:
		if err := runScheduled(ctx, app); err != nil {
			fmt.Fprintf(os.Stderr, "Scheduler error: %v\n", err)
			os.Exit(1)
		}
	}
}

func printResults(results []types.SymbolResult, quiet bool) {
	if quiet {
		return
	}
	fmt.Println("\nCycle complete:")
	for _, r := range results {
		switch {
		case r.Err != "":
			fmt.Printf("  %s: ❌ %s\n", r.Symbol, r.Err)
		case r.Sent:
			fmt.Printf("  %s: ✅ Sent (score: %d, %s)\n", r.Symbol, r.ImportanceScore, r.Sentiment)
		default:
			fmt.Printf("  %s: ⏭️ Skipped (%s, score: %d)\n", r.Symbol, r.Reason, r.ImportanceScore)
		}
		if r.PriceAlert {
			fmt.Printf("  %s: ⚠️ Price alert sent\n", r.Symbol)
		}
	}
}
