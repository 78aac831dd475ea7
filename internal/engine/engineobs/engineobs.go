package engineobs

import (
	"context"

	"stock-noti-bot/internal/interfaces"
	"stock-noti-bot/internal/logger"
	"stock-noti-bot/internal/trace"
	"stock-noti-bot/internal/types"
)

// observableEngine wraps an Engine with observability (logging & tracing)
type observableEngine struct {
	engine interfaces.Engine
}

// Compile-time interface check
var _ interfaces.Engine = (*observableEngine)(nil)

// Wrap wraps an engine with observability middleware
func Wrap(engine interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: engine,
	}
}

// Cycle runs one monitoring pass with observability
func (oe *observableEngine) Cycle(ctx context.Context) []types.SymbolResult {
	ctx, span := trace.StartSpan(ctx, "engine.Cycle")
	defer span.End()

	timer := logger.StartOperation(ctx, "monitoring_cycle")
	results := oe.engine.Cycle(timer.GetContext())
	timer.End("symbols", len(results), "sent", countSent(results))

	return results
}

// CycleNow runs an on-demand pass with observability
func (oe *observableEngine) CycleNow(ctx context.Context) []types.SymbolResult {
	ctx, span := trace.StartSpan(ctx, "engine.CycleNow")
	defer span.End()

	timer := logger.StartOperation(ctx, "on_demand_cycle")
	results := oe.engine.CycleNow(timer.GetContext())
	timer.End("symbols", len(results), "sent", countSent(results))

	return results
}

// SendNewsAlerts runs a news-only pass with observability
func (oe *observableEngine) SendNewsAlerts(ctx context.Context, minScore int) []types.SymbolResult {
	ctx, span := trace.StartSpan(ctx, "engine.SendNewsAlerts")
	defer span.End()

	timer := logger.StartOperation(ctx, "news_alerts", "min_score", minScore)
	results := oe.engine.SendNewsAlerts(timer.GetContext(), minScore)
	timer.End("symbols", len(results), "sent", countSent(results))

	return results
}

func countSent(results []types.SymbolResult) int {
	sent := 0
	for _, r := range results {
		if r.Sent {
			sent++
		}
	}
	return sent
}
