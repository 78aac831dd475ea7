package interfaces

import (
	"context"

	"stock-noti-bot/internal/types"
)

// Engine runs notification cycles over the watchlist.
type Engine interface {
	// Cycle runs one full monitoring pass: fetch, classify, decide, notify.
	Cycle(ctx context.Context) []types.SymbolResult
	// CycleNow bypasses the throttle gate (explicit user request) and
	// advances last-sent for every watchlist symbol.
	CycleNow(ctx context.Context) []types.SymbolResult
	// SendNewsAlerts runs a news-only pass with an explicit score threshold.
	SendNewsAlerts(ctx context.Context, minScore int) []types.SymbolResult
}
