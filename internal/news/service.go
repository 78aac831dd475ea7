package news

import (
	"sync"
	"time"

	"stock-noti-bot/internal/types"
)

// AlertContext is what the chat side remembers about a symbol's last
// analysis, so follow-up questions can be answered without re-fetching.
type AlertContext struct {
	Analysis types.Analysis
	News     []types.NewsItem
	Snapshot *types.Snapshot
	StoredAt time.Time
}

// ContextCache keeps the most recent alert context per symbol, bounded so
// a long-running process can't grow it without limit. Eviction drops the
// oldest entry.
type ContextCache struct {
	mu       sync.RWMutex
	data     map[string]*AlertContext
	capacity int
}

// NewContextCache creates a cache holding at most capacity symbols.
func NewContextCache(capacity int) *ContextCache {
	if capacity < 1 {
		capacity = 1
	}
	return &ContextCache{
		data:     make(map[string]*AlertContext),
		capacity: capacity,
	}
}

// Put stores the latest context for a symbol, most recent wins.
func (c *ContextCache) Put(symbol string, ctx AlertContext) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ctx.StoredAt.IsZero() {
		ctx.StoredAt = time.Now()
	}
	if _, exists := c.data[symbol]; !exists && len(c.data) >= c.capacity {
		c.evictOldest()
	}
	c.data[symbol] = &ctx
}

// Get retrieves the stored context for a symbol.
func (c *ContextCache) Get(symbol string) (AlertContext, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.data[symbol]
	if !exists {
		return AlertContext{}, false
	}
	return *entry, true
}

// Symbols returns every symbol with stored context.
func (c *ContextCache) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	symbols := make([]string, 0, len(c.data))
	for symbol := range c.data {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// evictOldest removes the entry with the oldest StoredAt. Caller must hold
// the write lock.
func (c *ContextCache) evictOldest() {
	var oldest string
	var oldestAt time.Time
	for symbol, entry := range c.data {
		if oldest == "" || entry.StoredAt.Before(oldestAt) {
			oldest = symbol
			oldestAt = entry.StoredAt
		}
	}
	if oldest != "" {
		delete(c.data, oldest)
	}
}
