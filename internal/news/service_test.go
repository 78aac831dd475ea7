package news

import (
	"testing"
	"time"

	"stock-noti-bot/internal/types"
)

func TestContextCachePutGet(t *testing.T) {
	cache := NewContextCache(10)

	cache.Put("NVDA", AlertContext{
		Analysis: types.Analysis{ImportanceScore: 8, Sentiment: types.SentimentBullish},
	})

	got, ok := cache.Get("NVDA")
	if !ok {
		t.Fatal("expected cached context for NVDA")
	}
	if got.Analysis.ImportanceScore != 8 {
		t.Errorf("expected score 8, got %d", got.Analysis.ImportanceScore)
	}
	if got.StoredAt.IsZero() {
		t.Error("StoredAt should be filled on Put")
	}

	if _, ok := cache.Get("MSFT"); ok {
		t.Error("unknown symbol should miss")
	}
}

func TestContextCacheMostRecentWins(t *testing.T) {
	cache := NewContextCache(10)

	cache.Put("NVDA", AlertContext{Analysis: types.Analysis{ImportanceScore: 3}})
	cache.Put("NVDA", AlertContext{Analysis: types.Analysis{ImportanceScore: 9}})

	got, _ := cache.Get("NVDA")
	if got.Analysis.ImportanceScore != 9 {
		t.Errorf("expected latest analysis to win, got score %d", got.Analysis.ImportanceScore)
	}
	if len(cache.Symbols()) != 1 {
		t.Errorf("expected a single cached symbol, got %v", cache.Symbols())
	}
}

func TestContextCacheEvictsOldest(t *testing.T) {
	cache := NewContextCache(2)
	base := time.Now()

	cache.Put("NVDA", AlertContext{StoredAt: base.Add(-3 * time.Hour)})
	cache.Put("LUNR", AlertContext{StoredAt: base.Add(-1 * time.Hour)})
	cache.Put("TSLA", AlertContext{StoredAt: base})

	if _, ok := cache.Get("NVDA"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := cache.Get("LUNR"); !ok {
		t.Error("newer entry should survive eviction")
	}
	if _, ok := cache.Get("TSLA"); !ok {
		t.Error("newest entry should be present")
	}
}
