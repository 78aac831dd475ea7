package bot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"stock-noti-bot/internal/logger"
	"stock-noti-bot/internal/news"
	"stock-noti-bot/internal/store"
	"stock-noti-bot/internal/types"
)

func TestMain(m *testing.M) {
	logger.InitWithConfig(logger.LogConfig{Level: "ERROR", Format: "text"})
	os.Exit(m.Run())
}

type fakeFetcher struct {
	snaps map[string]*types.Snapshot
	news  map[string][]types.NewsItem
}

func (f *fakeFetcher) Quote(_ context.Context, symbol string) (*types.Snapshot, error) {
	return f.snaps[symbol], nil
}

func (f *fakeFetcher) News(_ context.Context, symbol string, _ time.Duration) ([]types.NewsItem, error) {
	return f.news[symbol], nil
}

type fakeClassifier struct {
	answer     types.QAResult
	deep       types.DeepDiveResult
	err        error
	lastSymbol string
	lastPrior  *types.Analysis
}

func (f *fakeClassifier) Analyze(_ context.Context, _, _ string, _ *types.Snapshot, _ []types.NewsItem, _ []string) (types.Analysis, error) {
	return types.Analysis{}, errors.New("not used")
}

func (f *fakeClassifier) Ask(_ context.Context, symbol, _, _ string, prior *types.Analysis, _ []types.NewsItem) (types.QAResult, error) {
	f.lastSymbol = symbol
	f.lastPrior = prior
	return f.answer, f.err
}

func (f *fakeClassifier) DeepDive(_ context.Context, symbol, _, _ string, _ *types.Snapshot, _ []types.NewsItem) (types.DeepDiveResult, error) {
	f.lastSymbol = symbol
	return f.deep, f.err
}

type fakeMessenger struct {
	sent []string
}

func (f *fakeMessenger) Send(_ context.Context, _ int64, text string) error {
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeMessenger) last() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

type fakeEngine struct {
	nowCalls int
}

func (f *fakeEngine) Cycle(context.Context) []types.SymbolResult { return nil }
func (f *fakeEngine) CycleNow(context.Context) []types.SymbolResult {
	f.nowCalls++
	return nil
}
func (f *fakeEngine) SendNewsAlerts(context.Context, int) []types.SymbolResult { return nil }

type botRig struct {
	dispatcher *Dispatcher
	settings   *store.Settings
	fetcher    *fakeFetcher
	classifier *fakeClassifier
	messenger  *fakeMessenger
	engine     *fakeEngine
	contexts   *news.ContextCache
}

func newBotRig(t *testing.T) *botRig {
	t.Helper()

	cfg := &store.Config{}
	cfg.Stocks = []store.StockConfig{
		{Symbol: "TSLA", Name: "Tesla", Keywords: []string{"musk", "特斯拉"}},
	}

	settings := store.LoadSettings(filepath.Join(t.TempDir(), "settings.json"))
	fetcher := &fakeFetcher{snaps: map[string]*types.Snapshot{}, news: map[string][]types.NewsItem{}}
	classifier := &fakeClassifier{}
	messenger := &fakeMessenger{}
	eng := &fakeEngine{}
	contexts := news.NewContextCache(100)

	return &botRig{
		dispatcher: NewDispatcher(cfg, settings, fetcher, classifier, messenger, eng, contexts),
		settings:   settings,
		fetcher:    fetcher,
		classifier: classifier,
		messenger:  messenger,
		engine:     eng,
		contexts:   contexts,
	}
}

func (r *botRig) send(text string) {
	r.sendAs(text, 1)
}

var nextMessageID = 100

func (r *botRig) sendAs(text string, _ int) {
	nextMessageID++
	r.dispatcher.HandleMessage(context.Background(), 42, nextMessageID, text, "Tester")
}

func TestDuplicateMessageHandledOnce(t *testing.T) {
	rig := newBotRig(t)

	rig.dispatcher.HandleMessage(context.Background(), 42, 7, "/watchlist", "Tester")
	rig.dispatcher.HandleMessage(context.Background(), 42, 7, "/watchlist", "Tester")

	if len(rig.messenger.sent) != 1 {
		t.Errorf("replayed update must produce a single reply, got %d", len(rig.messenger.sent))
	}
}

func TestUnknownCommand(t *testing.T) {
	rig := newBotRig(t)
	rig.send("/frobnicate")

	if !strings.Contains(rig.messenger.last(), "Unknown command: /frobnicate") {
		t.Errorf("expected unknown-command reply, got %q", rig.messenger.last())
	}
	if !strings.Contains(rig.messenger.last(), "/help") {
		t.Error("unknown-command reply should point at /help")
	}
}

func TestAddRemoveWatchlist(t *testing.T) {
	rig := newBotRig(t)

	rig.send("/add aapl")
	if !strings.Contains(rig.messenger.last(), "Added AAPL") {
		t.Errorf("expected add confirmation, got %q", rig.messenger.last())
	}

	rig.send("/add AAPL")
	if !strings.Contains(rig.messenger.last(), "already in your watchlist") {
		t.Errorf("expected duplicate rejection, got %q", rig.messenger.last())
	}

	rig.send("/remove aapl")
	if !strings.Contains(rig.messenger.last(), "Removed AAPL") {
		t.Errorf("expected remove confirmation, got %q", rig.messenger.last())
	}

	rig.send("/remove MSFT")
	if !strings.Contains(rig.messenger.last(), "not in your watchlist") {
		t.Errorf("expected absent-symbol reply, got %q", rig.messenger.last())
	}

	rig.send("/add")
	if !strings.Contains(rig.messenger.last(), "Usage: /add") {
		t.Errorf("expected usage reply, got %q", rig.messenger.last())
	}
}

func TestIntervalValidation(t *testing.T) {
	rig := newBotRig(t)

	rig.send("/interval 30")
	if !strings.Contains(rig.messenger.last(), "Interval set to 30 minutes") {
		t.Errorf("expected confirmation, got %q", rig.messenger.last())
	}
	if rig.settings.IntervalMinutes() != 30 {
		t.Errorf("interval not persisted, got %d", rig.settings.IntervalMinutes())
	}

	rig.send("/interval abc")
	if !strings.Contains(rig.messenger.last(), "valid number") {
		t.Errorf("expected non-numeric rejection, got %q", rig.messenger.last())
	}

	rig.send("/interval 2")
	if !strings.Contains(rig.messenger.last(), "between 5 and 1440") {
		t.Errorf("expected range rejection, got %q", rig.messenger.last())
	}
	if rig.settings.IntervalMinutes() != 30 {
		t.Error("rejected interval must not change the setting")
	}

	rig.send("/interval")
	if !strings.Contains(rig.messenger.last(), "Current interval: 30 minutes") {
		t.Errorf("expected current-value reply, got %q", rig.messenger.last())
	}
}

func TestLangCommand(t *testing.T) {
	rig := newBotRig(t)

	rig.send("/lang en")
	if !strings.Contains(rig.messenger.last(), "Language set to English") {
		t.Errorf("expected english confirmation, got %q", rig.messenger.last())
	}
	if rig.settings.Language() != "en" {
		t.Error("language not persisted")
	}

	rig.send("/lang chinese")
	if !strings.Contains(rig.messenger.last(), "中文") {
		t.Errorf("expected chinese confirmation, got %q", rig.messenger.last())
	}

	rig.send("/lang fr")
	if !strings.Contains(rig.messenger.last(), "'zh' for Chinese or 'en' for English") {
		t.Errorf("expected rejection, got %q", rig.messenger.last())
	}
	if rig.settings.Language() != "zh" {
		t.Error("rejected language must not change the setting")
	}
}

func TestPriceCommand(t *testing.T) {
	rig := newBotRig(t)
	change, pct := 5.0, 5.26
	rig.fetcher.snaps["NVDA"] = &types.Snapshot{
		Symbol: "NVDA", Price: 100, PreviousClose: 95,
		Change: &change, ChangePercent: &pct,
	}

	rig.send("/price nvda")
	if !strings.Contains(rig.messenger.last(), "$100.00") {
		t.Errorf("expected price reply, got %q", rig.messenger.last())
	}

	rig.send("/price ZZZZ")
	if !strings.Contains(rig.messenger.last(), "Could not fetch price for ZZZZ") {
		t.Errorf("expected fetch-failure reply, got %q", rig.messenger.last())
	}
}

func TestNewsCommand(t *testing.T) {
	rig := newBotRig(t)
	rig.fetcher.news["NVDA"] = []types.NewsItem{
		{Title: "Story 1"}, {Title: "Story 2"}, {Title: "Story 3"},
		{Title: "Story 4"}, {Title: "Story 5"}, {Title: "Story 6"},
	}

	rig.send("/news NVDA")
	reply := rig.messenger.last()
	if !strings.Contains(reply, "Story 5") {
		t.Error("reply should include the fifth headline")
	}
	if strings.Contains(reply, "Story 6") {
		t.Error("reply should cap at five headlines")
	}

	rig.send("/news ZZZZ")
	if !strings.Contains(rig.messenger.last(), "No recent news for ZZZZ") {
		t.Errorf("expected empty-news reply, got %q", rig.messenger.last())
	}
}

func TestAskUsesCachedContext(t *testing.T) {
	rig := newBotRig(t)
	rig.contexts.Put("NVDA", news.AlertContext{
		Analysis: types.Analysis{ImportanceScore: 8, Summary: "Beat."},
	})
	rig.classifier.answer = types.QAResult{Answer: "Strong quarter."}

	rig.send("/ask NVDA why did it move?")

	if rig.classifier.lastSymbol != "NVDA" {
		t.Errorf("classifier asked about %q", rig.classifier.lastSymbol)
	}
	if rig.classifier.lastPrior == nil || rig.classifier.lastPrior.ImportanceScore != 8 {
		t.Error("cached analysis should flow into the question context")
	}
	if !strings.Contains(rig.messenger.last(), "Strong quarter.") {
		t.Errorf("expected formatted answer, got %q", rig.messenger.last())
	}

	rig.send("/ask NVDA")
	if !strings.Contains(rig.messenger.last(), "Usage: /ask") {
		t.Errorf("expected usage reply, got %q", rig.messenger.last())
	}
}

func TestFreeFormSymbolDetectionPriority(t *testing.T) {
	rig := newBotRig(t)
	rig.classifier.answer = types.QAResult{Answer: "ok"}

	// Watchlist symbol (NVDA is a default) wins.
	rig.send("what is going on with NVDA today?")
	if rig.classifier.lastSymbol != "NVDA" {
		t.Errorf("expected watchlist detection, got %q", rig.classifier.lastSymbol)
	}

	// Config keywords resolve to the configured symbol.
	rig.send("is musk selling again?")
	if rig.classifier.lastSymbol != "TSLA" {
		t.Errorf("expected keyword detection, got %q", rig.classifier.lastSymbol)
	}

	// Recent-alert symbols are the last resort.
	rig.contexts.Put("AMD", news.AlertContext{})
	rig.send("thoughts on AMD?")
	if rig.classifier.lastSymbol != "AMD" {
		t.Errorf("expected recent-alert detection, got %q", rig.classifier.lastSymbol)
	}

	// No symbol at all gets the generic hint.
	rig.send("what should I buy?")
	if !strings.Contains(rig.messenger.last(), "include a stock symbol") {
		t.Errorf("expected generic hint, got %q", rig.messenger.last())
	}
}

func TestNowCommand(t *testing.T) {
	rig := newBotRig(t)

	rig.send("/now")
	if rig.engine.nowCalls != 1 {
		t.Errorf("expected one on-demand cycle, got %d", rig.engine.nowCalls)
	}
	if !strings.Contains(rig.messenger.last(), "Done!") {
		t.Errorf("expected completion reply, got %q", rig.messenger.last())
	}

	// Empty watchlist short-circuits.
	for _, sym := range rig.settings.Watchlist() {
		rig.settings.RemoveFromWatchlist(sym)
	}
	rig.send("/now")
	if rig.engine.nowCalls != 1 {
		t.Error("empty watchlist must not start a cycle")
	}
	if !strings.Contains(rig.messenger.last(), "watchlist is empty") {
		t.Errorf("expected empty-watchlist reply, got %q", rig.messenger.last())
	}
}

func TestStocksCommand(t *testing.T) {
	rig := newBotRig(t)
	pct := 1.5
	rig.fetcher.snaps["NVDA"] = &types.Snapshot{Symbol: "NVDA", Price: 100, ChangePercent: &pct}

	rig.send("/stocks")
	reply := rig.messenger.last()
	if !strings.Contains(reply, "*NVDA*") || !strings.Contains(reply, "$100.00") {
		t.Errorf("expected watchlist prices, got %q", reply)
	}
	// LUNR has no snapshot but still shows up.
	if !strings.Contains(reply, "*LUNR*") {
		t.Errorf("unfetchable symbol should still be listed, got %q", reply)
	}
}
