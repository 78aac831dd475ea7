package llmobs

import (
	"context"

	"stock-noti-bot/internal/interfaces"
	"stock-noti-bot/internal/logger"
	"stock-noti-bot/internal/trace"
	"stock-noti-bot/internal/types"
)

// observableClassifier wraps a Classifier with observability (logging & tracing)
type observableClassifier struct {
	classifier interfaces.Classifier
}

// Compile-time interface check
var _ interfaces.Classifier = (*observableClassifier)(nil)

// Wrap wraps a classifier with observability middleware
func Wrap(classifier interfaces.Classifier) interfaces.Classifier {
	return &observableClassifier{
		classifier: classifier,
	}
}

// Analyze scores recent news with observability
func (oc *observableClassifier) Analyze(
	ctx context.Context,
	symbol, name string,
	snap *types.Snapshot,
	news []types.NewsItem,
	keywords []string,
) (types.Analysis, error) {
	ctx, span := trace.StartSymbolSpan(ctx, "llm.Analyze", symbol)
	defer span.End()

	// Use DebugSkip(1) to report the actual caller, not this middleware wrapper
	logger.DebugSkip(ctx, 1, "Requesting news analysis",
		"symbol", symbol,
		"headlines", len(news),
	)

	analysis, err := oc.classifier.Analyze(ctx, symbol, name, snap, news, keywords)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to get news analysis", err,
			"symbol", symbol,
		)
		return types.Analysis{}, err
	}

	logger.InfoSkip(ctx, 1, "News analysis received",
		"symbol", symbol,
		"importance_score", analysis.ImportanceScore,
		"sentiment", analysis.Sentiment,
	)

	return analysis, nil
}

// Ask answers a free-form question with observability
func (oc *observableClassifier) Ask(
	ctx context.Context,
	symbol, name, question string,
	prior *types.Analysis,
	news []types.NewsItem,
) (types.QAResult, error) {
	ctx, span := trace.StartSymbolSpan(ctx, "llm.Ask", symbol)
	defer span.End()

	logger.DebugSkip(ctx, 1, "Requesting question answer",
		"symbol", symbol,
		"question_length", len(question),
	)

	result, err := oc.classifier.Ask(ctx, symbol, name, question, prior, news)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to answer question", err,
			"symbol", symbol,
		)
		return types.QAResult{}, err
	}

	logger.InfoSkip(ctx, 1, "Question answered",
		"symbol", symbol,
		"answer_length", len(result.Answer),
	)

	return result, nil
}

// DeepDive produces a topic deep dive with observability
func (oc *observableClassifier) DeepDive(
	ctx context.Context,
	symbol, name, topic string,
	snap *types.Snapshot,
	news []types.NewsItem,
) (types.DeepDiveResult, error) {
	ctx, span := trace.StartSymbolSpan(ctx, "llm.DeepDive", symbol)
	defer span.End()

	logger.DebugSkip(ctx, 1, "Requesting deep dive",
		"symbol", symbol,
		"topic", topic,
	)

	result, err := oc.classifier.DeepDive(ctx, symbol, name, topic, snap, news)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to get deep dive", err,
			"symbol", symbol,
			"topic", topic,
		)
		return types.DeepDiveResult{}, err
	}

	logger.InfoSkip(ctx, 1, "Deep dive received",
		"symbol", symbol,
		"topic", topic,
		"key_points", len(result.KeyPoints),
	)

	return result, nil
}
