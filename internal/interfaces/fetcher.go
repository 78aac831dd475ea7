package interfaces

import (
	"context"
	"time"

	"stock-noti-bot/internal/types"
)

// Fetcher is the market data gateway. Quote returns (nil, nil) when the
// symbol cannot be resolved; News may return an empty slice.
type Fetcher interface {
	Quote(ctx context.Context, symbol string) (*types.Snapshot, error)
	News(ctx context.Context, symbol string, window time.Duration) ([]types.NewsItem, error)
}
