package market

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"stock-noti-bot/internal/types"
)

const (
	yahooBaseURL      = "https://query1.finance.yahoo.com"
	googleNewsBaseURL = "https://news.google.com"
	newsFetchTimeout  = 10 * time.Second
	maxHeadlines      = 20

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// newsClient fetches headlines from Yahoo's search feed, with Google News
// RSS as a fallback source.
type newsClient struct {
	yahoo  *resty.Client
	google *resty.Client
}

func newNewsClient() *newsClient {
	return &newsClient{
		yahoo: resty.New().
			SetBaseURL(yahooBaseURL).
			SetTimeout(newsFetchTimeout).
			SetHeader("User-Agent", userAgent),
		google: resty.New().
			SetBaseURL(googleNewsBaseURL).
			SetTimeout(newsFetchTimeout).
			SetHeader("User-Agent", userAgent),
	}
}

// yahooSearchResponse is the slice of Yahoo's search payload we care about.
type yahooSearchResponse struct {
	News []struct {
		Title               string `json:"title"`
		Publisher           string `json:"publisher"`
		Link                string `json:"link"`
		ProviderPublishTime int64  `json:"providerPublishTime"`
	} `json:"news"`
}

func (c *newsClient) yahooSearch(ctx context.Context, symbol string, window time.Duration) ([]types.NewsItem, error) {
	resp, err := c.yahoo.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":           symbol,
			"newsCount":   fmt.Sprintf("%d", maxHeadlines),
			"quotesCount": "0",
		}).
		Get("/v1/finance/search")
	if err != nil {
		return nil, fmt.Errorf("yahoo news search for %s: %w", symbol, err)
	}
	if resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("yahoo news search for %s: status %d", symbol, resp.StatusCode())
	}

	var payload yahooSearchResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("yahoo news search for %s: %w", symbol, err)
	}

	cutoff := time.Now().Add(-window)
	items := []types.NewsItem{}
	for _, n := range payload.News {
		published := time.Unix(n.ProviderPublishTime, 0)
		if published.Before(cutoff) {
			continue
		}
		items = append(items, types.NewsItem{
			Title:     n.Title,
			URL:       n.Link,
			Publisher: n.Publisher,
			Published: published,
		})
	}
	sortNewestFirst(items)
	return items, nil
}

// googleNews parses the Google News RSS feed. The HTML parser treats
// <link> as a void element, so the URL text lands in the sibling node.
func (c *newsClient) googleNews(ctx context.Context, symbol string, window time.Duration) ([]types.NewsItem, error) {
	resp, err := c.google.R().
		SetContext(ctx).
		SetQueryParam("q", symbol+" stock").
		Get("/rss/search")
	if err != nil {
		return nil, fmt.Errorf("google news for %s: %w", symbol, err)
	}
	if resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("google news for %s: status %d", symbol, resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(resp.Body())))
	if err != nil {
		return nil, fmt.Errorf("google news for %s: %w", symbol, err)
	}

	cutoff := time.Now().Add(-window)
	items := []types.NewsItem{}
	doc.Find("item").Each(func(_ int, s *goquery.Selection) {
		if len(items) >= maxHeadlines {
			return
		}
		title := strings.TrimSpace(s.Find("title").First().Text())
		if title == "" {
			return
		}

		published, err := time.Parse(time.RFC1123, strings.TrimSpace(s.Find("pubdate").First().Text()))
		if err != nil || published.Before(cutoff) {
			return
		}

		item := types.NewsItem{
			Title:     title,
			Publisher: strings.TrimSpace(s.Find("source").First().Text()),
			Published: published,
		}
		if link := s.Find("link").First(); link.Length() > 0 {
			if node := link.Get(0); node.NextSibling != nil {
				item.URL = strings.TrimSpace(node.NextSibling.Data)
			}
		}
		items = append(items, item)
	})
	sortNewestFirst(items)
	return items, nil
}

func sortNewestFirst(items []types.NewsItem) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].Published.After(items[j].Published)
	})
}
