package market

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/piquette/finance-go/equity"

	"stock-noti-bot/internal/logger"
	"stock-noti-bot/internal/types"
)

// snapshotCacheTTL bounds how stale a quote can be. Price-move checks run
// every cycle, so anything shorter than the cycle interval is fine.
const snapshotCacheTTL = 5 * time.Minute

// Fetcher retrieves quotes and headlines from Yahoo Finance. Quotes are
// cached briefly so a monitoring cycle and a chat command issued at the
// same moment don't hit the API twice.
type Fetcher struct {
	news  *newsClient
	cache *snapshotCache
}

// NewFetcher creates a market data gateway.
func NewFetcher() *Fetcher {
	return &Fetcher{
		news:  newNewsClient(),
		cache: newSnapshotCache(snapshotCacheTTL),
	}
}

// Quote returns a point-in-time snapshot for the symbol. An unresolvable
// symbol yields (nil, nil); transport failures yield an error.
func (f *Fetcher) Quote(ctx context.Context, symbol string) (*types.Snapshot, error) {
	if cached, ok := f.cache.get(symbol); ok {
		logger.Debug(ctx, "Using cached snapshot", "symbol", symbol,
			"age_seconds", time.Since(cached.FetchedAt).Seconds())
		return cached, nil
	}

	q, err := equity.Get(symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch quote for %s: %w", symbol, err)
	}
	if q == nil || q.RegularMarketPrice == 0 {
		return nil, nil
	}

	snap := &types.Snapshot{
		Symbol:        symbol,
		Name:          q.ShortName,
		Price:         q.RegularMarketPrice,
		PreviousClose: q.RegularMarketPreviousClose,
		Open:          q.RegularMarketOpen,
		DayHigh:       q.RegularMarketDayHigh,
		DayLow:        q.RegularMarketDayLow,
		Volume:        int64(q.RegularMarketVolume),
		AvgVolume:     int64(q.AverageDailyVolume3Month),
		MarketCap:     q.MarketCap,
		PERatio:       q.TrailingPE,
		Week52High:    q.FiftyTwoWeekHigh,
		Week52Low:     q.FiftyTwoWeekLow,
		FetchedAt:     time.Now(),
	}
	if snap.Name == "" {
		snap.Name = symbol
	}
	deriveChange(snap)

	f.cache.set(symbol, snap)
	return snap, nil
}

// News returns headlines for the symbol published within the window,
// newest first. Yahoo's search feed is the primary source; Google News
// HTML is the fallback when it comes back empty.
func (f *Fetcher) News(ctx context.Context, symbol string, window time.Duration) ([]types.NewsItem, error) {
	items, err := f.news.yahooSearch(ctx, symbol, window)
	if err != nil {
		logger.ErrorWithErr(ctx, "Yahoo news fetch failed, trying Google News", err, "symbol", symbol)
		return f.news.googleNews(ctx, symbol, window)
	}
	if len(items) == 0 {
		logger.Debug(ctx, "No Yahoo headlines, trying Google News", "symbol", symbol)
		if fallback, ferr := f.news.googleNews(ctx, symbol, window); ferr == nil && len(fallback) > 0 {
			return fallback, nil
		}
	}
	return items, nil
}

// deriveChange fills Change/ChangePercent when both inputs are present.
func deriveChange(s *types.Snapshot) {
	if s.Price == 0 || s.PreviousClose == 0 {
		return
	}
	change := s.Price - s.PreviousClose
	pct := change / s.PreviousClose * 100
	s.Change = &change
	s.ChangePercent = &pct
}

// CheckPriceAlert reports whether the snapshot's move exceeds the
// threshold (absolute percent). Snapshots without a derived change never
// alert.
func CheckPriceAlert(snap *types.Snapshot, threshold float64) (types.PriceAlert, bool) {
	if snap == nil || snap.Change == nil || snap.ChangePercent == nil {
		return types.PriceAlert{}, false
	}
	if math.Abs(*snap.ChangePercent) < threshold {
		return types.PriceAlert{}, false
	}
	return types.PriceAlert{
		Symbol:        snap.Symbol,
		Price:         snap.Price,
		Change:        *snap.Change,
		ChangePercent: *snap.ChangePercent,
		Threshold:     threshold,
	}, true
}

// snapshotCache stores recent quotes per symbol.
type snapshotCache struct {
	mu   sync.RWMutex
	data map[string]*types.Snapshot
	ttl  time.Duration
}

func newSnapshotCache(ttl time.Duration) *snapshotCache {
	return &snapshotCache{
		data: make(map[string]*types.Snapshot),
		ttl:  ttl,
	}
}

func (c *snapshotCache) get(symbol string) (*types.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap, exists := c.data[symbol]
	if !exists {
		return nil, false
	}
	if time.Since(snap.FetchedAt) > c.ttl {
		return nil, false
	}
	return snap, true
}

func (c *snapshotCache) set(symbol string, snap *types.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[symbol] = snap
}
