package engine

import (
	"context"
	"sync"
	"time"

	"stock-noti-bot/internal/interfaces"
	"stock-noti-bot/internal/logger"
	"stock-noti-bot/internal/market"
	"stock-noti-bot/internal/news"
	"stock-noti-bot/internal/notify"
	"stock-noti-bot/internal/store"
	"stock-noti-bot/internal/types"
)

// Engine is the notification decision core. Each cycle walks the
// watchlist, fetches market data and headlines, scores them through the
// classifier, and pushes alerts that clear both the throttle gate and the
// importance gate. Failures on one symbol never stop the rest.
type Engine struct {
	cfg        *store.Config
	settings   *store.Settings
	fetcher    interfaces.Fetcher
	classifier interfaces.Classifier
	messenger  interfaces.Messenger
	contexts   *news.ContextCache
	chatID     int64

	mu             sync.Mutex
	lastPriceAlert map[string]time.Time

	now func() time.Time
}

var _ interfaces.Engine = (*Engine)(nil)

func New(
	cfg *store.Config,
	settings *store.Settings,
	fetcher interfaces.Fetcher,
	classifier interfaces.Classifier,
	messenger interfaces.Messenger,
	contexts *news.ContextCache,
	chatID int64,
) *Engine {
	return &Engine{
		cfg:            cfg,
		settings:       settings,
		fetcher:        fetcher,
		classifier:     classifier,
		messenger:      messenger,
		contexts:       contexts,
		chatID:         chatID,
		lastPriceAlert: map[string]time.Time{},
		now:            time.Now,
	}
}

// Decide applies the notification gates for a symbol in order: the
// per-symbol throttle first, then the importance threshold. Only an
// eligible verdict may lead to a delivery.
func (e *Engine) Decide(symbol string, score int, now time.Time) types.Verdict {
	if !e.settings.ShouldSend(symbol, now) {
		return types.Verdict{Emit: false, Reason: types.ReasonThrottled}
	}
	return scoreGate(score, e.cfg.AlertSettings.MinImportance)
}

// scoreGate applies the importance threshold alone. Explicit-request
// paths use it directly since they bypass the throttle.
func scoreGate(score, minScore int) types.Verdict {
	if score < minScore {
		return types.Verdict{Emit: false, Reason: types.ReasonLowScore}
	}
	return types.Verdict{Emit: true, Reason: types.ReasonEligible}
}

// Cycle runs one full monitoring pass over the watchlist.
func (e *Engine) Cycle(ctx context.Context) []types.SymbolResult {
	logger.Info(ctx, "Starting monitoring cycle", "watchlist_size", len(e.settings.Watchlist()))

	results := []types.SymbolResult{}
	for _, symbol := range e.settings.Watchlist() {
		if ctx.Err() != nil {
			logger.Warn(ctx, "Cycle stopped early", "completed", len(results))
			return results
		}
		results = append(results, e.processSymbol(ctx, symbol, false, e.cfg.AlertSettings.MinImportance, true, true))
	}

	logger.Info(ctx, "Monitoring cycle complete", "symbols", len(results))
	return results
}

// CycleNow is the explicit-request variant: the throttle gate is
// bypassed, and last-sent advances for every watchlist symbol so the
// next automatic cycle starts a fresh interval.
func (e *Engine) CycleNow(ctx context.Context) []types.SymbolResult {
	logger.Info(ctx, "Starting on-demand cycle")

	results := []types.SymbolResult{}
	for _, symbol := range e.settings.Watchlist() {
		if ctx.Err() != nil {
			return results
		}
		results = append(results, e.processSymbol(ctx, symbol, true, e.cfg.AlertSettings.MinImportance, true, true))
		if err := e.settings.SetLastSent(symbol, e.now()); err != nil {
			logger.ErrorWithErr(ctx, "Failed to persist last-sent", err, "symbol", symbol)
		}
	}
	return results
}

// SendNewsAlerts runs a news-only pass with an explicit score threshold.
// It skips price-move checks and never advances the throttle state, so a
// scripted run doesn't silence the scheduled one.
func (e *Engine) SendNewsAlerts(ctx context.Context, minScore int) []types.SymbolResult {
	if minScore <= 0 {
		minScore = e.cfg.AlertSettings.MinImportance
	}
	logger.Info(ctx, "Sending news alerts", "min_score", minScore)

	results := []types.SymbolResult{}
	for _, symbol := range e.settings.Watchlist() {
		if ctx.Err() != nil {
			return results
		}
		results = append(results, e.processSymbol(ctx, symbol, true, minScore, false, false))
	}
	return results
}

// processSymbol runs the fetch-classify-decide-notify pipeline for one
// symbol. bypassThrottle skips the rate gate; checkPrice enables the
// price-move detector; advanceThrottle records last-sent after a
// successful news delivery (news-only passes leave it alone so they
// never silence the next scheduled cycle).
func (e *Engine) processSymbol(ctx context.Context, symbol string, bypassThrottle bool, minScore int, checkPrice, advanceThrottle bool) types.SymbolResult {
	result := types.SymbolResult{Symbol: symbol}
	logger.Debug(ctx, "Processing symbol", "symbol", symbol)

	snap, err := e.fetcher.Quote(ctx, symbol)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch quote", err, "symbol", symbol)
		result.Err = err.Error()
		return result
	}
	if snap == nil {
		logger.Warn(ctx, "Could not resolve symbol", "symbol", symbol)
		result.Err = "could not fetch data"
		return result
	}

	window := time.Duration(e.cfg.AlertSettings.NewsTimeframeHours) * time.Hour
	headlines, err := e.fetcher.News(ctx, symbol, window)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch news", err, "symbol", symbol)
		headlines = nil
	}
	result.NewsCount = len(headlines)

	name := e.cfg.StockName(symbol)
	keywords := e.stockKeywords(symbol)

	analysis, err := e.classifier.Analyze(ctx, symbol, name, snap, headlines, keywords)
	if err != nil {
		// A dead classifier must not kill the cycle. The degraded
		// result scores zero so nothing false gets pushed.
		analysis = news.DegradedAnalysis(err)
	}
	result.ImportanceScore = analysis.ImportanceScore
	result.Sentiment = analysis.Sentiment

	e.contexts.Put(symbol, news.AlertContext{
		Analysis: analysis,
		News:     headlines,
		Snapshot: snap,
	})

	var verdict types.Verdict
	if bypassThrottle {
		verdict = scoreGate(analysis.ImportanceScore, minScore)
	} else {
		verdict = e.Decide(symbol, analysis.ImportanceScore, e.now())
	}
	result.Reason = verdict.Reason
	logger.Alert(ctx, symbol, verdict.Emit, verdict.Reason, analysis.ImportanceScore)

	if verdict.Emit {
		msg := notify.FormatNewsAlert(symbol, name, snap, analysis, headlines)
		if err := e.messenger.Send(ctx, e.chatID, msg); err != nil {
			logger.ErrorWithErr(ctx, "Failed to deliver news alert", err, "symbol", symbol)
			result.Err = err.Error()
		} else {
			result.Sent = true
			if advanceThrottle {
				if err := e.settings.SetLastSent(symbol, e.now()); err != nil {
					logger.ErrorWithErr(ctx, "Failed to persist last-sent", err, "symbol", symbol)
				}
			}
			logger.Info(ctx, "Sent news alert", "symbol", symbol, "score", analysis.ImportanceScore)
		}
	}

	if checkPrice {
		if alert, ok := e.CheckPriceMove(ctx, snap); ok {
			msg := notify.FormatPriceAlert(alert, name)
			if err := e.messenger.Send(ctx, e.chatID, msg); err != nil {
				logger.ErrorWithErr(ctx, "Failed to deliver price alert", err, "symbol", symbol)
			} else {
				result.PriceAlert = true
				logger.Info(ctx, "Sent price alert", "symbol", symbol, "change_percent", alert.ChangePercent)
			}
		}
	}

	return result
}

// CheckPriceMove reports whether the snapshot's move warrants a price
// alert right now. Price alerts run outside the news throttle; the
// optional cooldown (alert_settings.price_alert_cooldown_minutes) only
// suppresses repeats within its window. Zero cooldown means every cycle
// re-alerts while the move persists.
func (e *Engine) CheckPriceMove(ctx context.Context, snap *types.Snapshot) (types.PriceAlert, bool) {
	alert, ok := market.CheckPriceAlert(snap, e.cfg.AlertSettings.PriceChangeThreshold)
	if !ok {
		return types.PriceAlert{}, false
	}

	cooldown := time.Duration(e.cfg.AlertSettings.PriceAlertCooldownMinutes) * time.Minute
	if cooldown <= 0 {
		return alert, true
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	if last, exists := e.lastPriceAlert[snap.Symbol]; exists && now.Sub(last) < cooldown {
		logger.Debug(ctx, "Price alert suppressed by cooldown", "symbol", snap.Symbol)
		return types.PriceAlert{}, false
	}
	e.lastPriceAlert[snap.Symbol] = now
	return alert, true
}

func (e *Engine) stockKeywords(symbol string) []string {
	for _, s := range e.cfg.Stocks {
		if s.Symbol == symbol {
			return s.Keywords
		}
	}
	return nil
}
