package market

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stock-noti-bot/internal/types"
)

func snapshotWithMove(price, prevClose float64) *types.Snapshot {
	s := &types.Snapshot{
		Symbol:        "NVDA",
		Price:         price,
		PreviousClose: prevClose,
		FetchedAt:     time.Now(),
	}
	deriveChange(s)
	return s
}

func TestDeriveChange(t *testing.T) {
	s := snapshotWithMove(105, 100)
	if s.Change == nil || *s.Change != 5 {
		t.Fatalf("expected change 5, got %v", s.Change)
	}
	if s.ChangePercent == nil || *s.ChangePercent != 5 {
		t.Fatalf("expected change percent 5, got %v", s.ChangePercent)
	}

	// Missing previous close leaves the derived fields nil.
	s = snapshotWithMove(105, 0)
	if s.Change != nil || s.ChangePercent != nil {
		t.Error("expected nil change when previous close is missing")
	}
}

func TestCheckPriceAlert(t *testing.T) {
	cases := []struct {
		price, prev, threshold float64
		want                   bool
	}{
		{95.9, 100, 3.0, true},  // -4.1% drop
		{103.5, 100, 3.0, true}, // rises alert too
		{102, 100, 3.0, false},
		{103, 100, 3.0, true}, // exactly at threshold
	}
	for _, c := range cases {
		alert, ok := CheckPriceAlert(snapshotWithMove(c.price, c.prev), c.threshold)
		if ok != c.want {
			t.Errorf("price %.1f prev %.1f threshold %.1f: alert=%v, want %v",
				c.price, c.prev, c.threshold, ok, c.want)
			continue
		}
		if ok && alert.Symbol != "NVDA" {
			t.Errorf("alert should carry the symbol, got %q", alert.Symbol)
		}
	}

	if _, ok := CheckPriceAlert(nil, 3.0); ok {
		t.Error("nil snapshot should never alert")
	}
	if _, ok := CheckPriceAlert(snapshotWithMove(95, 0), 3.0); ok {
		t.Error("snapshot without derived change should never alert")
	}
}

func TestSnapshotCacheExpiry(t *testing.T) {
	cache := newSnapshotCache(time.Minute)

	fresh := snapshotWithMove(100, 99)
	cache.set("NVDA", fresh)
	if _, ok := cache.get("NVDA"); !ok {
		t.Error("fresh snapshot should be served from cache")
	}

	stale := snapshotWithMove(100, 99)
	stale.FetchedAt = time.Now().Add(-2 * time.Minute)
	cache.set("LUNR", stale)
	if _, ok := cache.get("LUNR"); ok {
		t.Error("expired snapshot should not be served")
	}

	if _, ok := cache.get("MSFT"); ok {
		t.Error("unknown symbol should miss")
	}
}

func TestYahooSearch(t *testing.T) {
	now := time.Now()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/finance/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "NVDA" {
			t.Errorf("expected q=NVDA, got %s", got)
		}
		fmt.Fprintf(w, `{"news":[
			{"title":"Old story","publisher":"Reuters","link":"https://example.com/old","providerPublishTime":%d},
			{"title":"Fresh story","publisher":"Bloomberg","link":"https://example.com/fresh","providerPublishTime":%d}
		]}`, now.Add(-48*time.Hour).Unix(), now.Add(-time.Hour).Unix())
	}))
	defer server.Close()

	c := newNewsClient()
	c.yahoo.SetBaseURL(server.URL)

	items, err := c.yahooSearch(context.Background(), "NVDA", 24*time.Hour)
	if err != nil {
		t.Fatalf("yahooSearch failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 headline inside the window, got %d", len(items))
	}
	if items[0].Title != "Fresh story" || items[0].Publisher != "Bloomberg" {
		t.Errorf("unexpected headline: %+v", items[0])
	}
}

func TestGoogleNewsFallback(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<rss><channel>
			<item><title>Chip demand surges</title><link>https://example.com/a</link><pubDate>%s</pubDate><source>CNBC</source></item>
			<item><title>Ancient news</title><link>https://example.com/b</link><pubDate>%s</pubDate><source>WSJ</source></item>
		</channel></rss>`,
			now.Add(-2*time.Hour).Format(time.RFC1123),
			now.Add(-72*time.Hour).Format(time.RFC1123))
	}))
	defer server.Close()

	c := newNewsClient()
	c.google.SetBaseURL(server.URL)

	items, err := c.googleNews(context.Background(), "NVDA", 24*time.Hour)
	if err != nil {
		t.Fatalf("googleNews failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 headline inside the window, got %d", len(items))
	}
	if items[0].Title != "Chip demand surges" {
		t.Errorf("unexpected headline: %+v", items[0])
	}
	if items[0].URL != "https://example.com/a" {
		t.Errorf("expected link text recovered from sibling node, got %q", items[0].URL)
	}
}
