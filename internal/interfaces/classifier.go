package interfaces

import (
	"context"

	"stock-noti-bot/internal/types"
)

// Classifier scores news relevance and answers follow-up questions.
type Classifier interface {
	Analyze(ctx context.Context, symbol, name string, snap *types.Snapshot, news []types.NewsItem, keywords []string) (types.Analysis, error)
	Ask(ctx context.Context, symbol, name, question string, prior *types.Analysis, news []types.NewsItem) (types.QAResult, error)
	DeepDive(ctx context.Context, symbol, name, topic string, snap *types.Snapshot, news []types.NewsItem) (types.DeepDiveResult, error)
}
