package news

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kaptinlin/jsonrepair"

	"stock-noti-bot/internal/interfaces"
	"stock-noti-bot/internal/llm"
	"stock-noti-bot/internal/store"
	"stock-noti-bot/internal/types"
)

const (
	maxNewsInPrompt    = 6
	maxContextNews     = 3
	maxSummaryInPrompt = 500
)

// Analyzer turns headlines into structured judgements via the configured
// model. It owns prompt construction and output parsing; the wire format
// lives in the llm package.
type Analyzer struct {
	chatter llm.Chatter
	cfg     *store.Config
}

var _ interfaces.Classifier = (*Analyzer)(nil)

func NewAnalyzer(chatter llm.Chatter, cfg *store.Config) *Analyzer {
	return &Analyzer{chatter: chatter, cfg: cfg}
}

// Analyze scores the importance and sentiment of recent news for a symbol.
// An empty headline list short-circuits to a zero-score result without
// touching the model.
func (a *Analyzer) Analyze(ctx context.Context, symbol, name string, snap *types.Snapshot, news []types.NewsItem, keywords []string) (types.Analysis, error) {
	if len(news) == 0 {
		return types.Analysis{
			ImportanceScore: 0,
			Sentiment:       types.SentimentNeutral,
			Summary:         "No recent news found.",
			KeyPoints:       []string{},
			PriceImpact:     "neutral",
			Recommendation:  types.Recommendation{Action: "watch", Confidence: "high", Reasoning: "No action needed"},
		}, nil
	}

	out, err := a.chatter.Complete(ctx, analystSystemPrompt, buildAnalyzePrompt(symbol, name, snap, news, keywords))
	if err != nil {
		return types.Analysis{}, fmt.Errorf("analyze %s: %w", symbol, err)
	}

	var analysis types.Analysis
	if err := parseModelJSON(out, &analysis); err != nil {
		// Unparseable output still carries signal. Mid score forces a
		// human look without drowning the chat in false alarms.
		return types.Analysis{
			ImportanceScore: 5,
			Sentiment:       types.SentimentNeutral,
			Summary:         truncate(out, 200),
			KeyPoints:       []string{},
			PriceImpact:     "neutral",
			Recommendation:  types.Recommendation{Action: "watch", Confidence: "low", Reasoning: "Review manually"},
		}, nil
	}
	normalizeAnalysis(&analysis)
	return analysis, nil
}

// Ask answers a free-form question, optionally grounded on a prior
// analysis and recent headlines.
func (a *Analyzer) Ask(ctx context.Context, symbol, name, question string, prior *types.Analysis, news []types.NewsItem) (types.QAResult, error) {
	out, err := a.chatter.Complete(ctx, analystSystemPrompt, buildAskPrompt(symbol, name, question, prior, news))
	if err != nil {
		return types.QAResult{}, fmt.Errorf("ask about %s: %w", symbol, err)
	}

	var result types.QAResult
	if err := parseModelJSON(out, &result); err != nil {
		return types.QAResult{Answer: truncate(out, 500)}, nil
	}
	return result, nil
}

// DeepDive produces a topic-focused analysis for a symbol.
func (a *Analyzer) DeepDive(ctx context.Context, symbol, name, topic string, snap *types.Snapshot, news []types.NewsItem) (types.DeepDiveResult, error) {
	out, err := a.chatter.Complete(ctx, analystSystemPrompt, buildDeepDivePrompt(symbol, name, topic, snap, news))
	if err != nil {
		return types.DeepDiveResult{}, fmt.Errorf("deep dive on %s: %w", symbol, err)
	}

	var result types.DeepDiveResult
	if err := parseModelJSON(out, &result); err != nil {
		return types.DeepDiveResult{}, fmt.Errorf("deep dive on %s: unparseable model output", symbol)
	}
	if result.Topic == "" {
		result.Topic = topic
	}
	return result, nil
}

// DegradedAnalysis is the stand-in result when classification fails
// outright. The zero score keeps it below any alert threshold.
func DegradedAnalysis(err error) types.Analysis {
	return types.Analysis{
		ImportanceScore: 0,
		Sentiment:       types.SentimentNeutral,
		Summary:         "Analysis failed: " + err.Error(),
		KeyPoints:       []string{},
		PriceImpact:     "unknown",
		Recommendation:  types.Recommendation{Action: "watch", Confidence: "low", Reasoning: "Manual review needed"},
	}
}

const analystSystemPrompt = "You are an expert financial analyst with deep knowledge of stock markets, earnings analysis, and news impact assessment. Respond ONLY with valid JSON."

func buildAnalyzePrompt(symbol, name string, snap *types.Snapshot, news []types.NewsItem, keywords []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Provide a comprehensive analysis of the following news for %s.\n\n", symbol)
	b.WriteString(formatSnapshotContext(symbol, name, snap))

	b.WriteString("\nRECENT NEWS (last 24-48 hours):\n")
	for i, item := range news {
		if i >= maxNewsInPrompt {
			break
		}
		fmt.Fprintf(&b, "\n%s\nNEWS %d:\nTitle: %s\n", strings.Repeat("=", 50), i+1, item.Title)
		if item.Summary != "" {
			fmt.Fprintf(&b, "Content: %s\n", truncate(item.Summary, maxSummaryInPrompt))
		}
		fmt.Fprintf(&b, "Source: %s\nPublished: %s\n", item.Publisher, item.Published.Format("2006-01-02 15:04"))
	}

	keywordsStr := "N/A"
	if len(keywords) > 0 {
		keywordsStr = strings.Join(keywords, ", ")
	}
	fmt.Fprintf(&b, "\nRELEVANT KEYWORDS: %s\n", keywordsStr)

	b.WriteString(`
Provide a detailed analysis in JSON format:
{
  "importance_score": <0-10 integer>,
  "sentiment": "<bullish|bearish|neutral>",
  "summary": "<detailed 3-4 sentence summary of what happened and why it matters>",
  "key_points": ["<point 1 with detail>", "<point 2 with detail>", "<point 3>"],
  "price_impact": "<positive|negative|neutral|volatile>",
  "recommendation": {
    "action": "<buy|hold|sell|watch>",
    "confidence": "<high|medium|low>",
    "reasoning": "<detailed reasoning>"
  }
}

Scoring guide:
- 9-10: Major event (M&A, blockbuster earnings, FDA approval, major lawsuit/settlement)
- 7-8: Important (analyst upgrade/downgrade with PT change, large contract win, guidance update, earnings preview)
- 5-6: Moderate (sector news affecting stock, peer news, minor announcements)
- 3-4: Low (routine news, general market commentary)
- 0-2: Not relevant

Be thorough but concise. Focus on actionable insights for an investor. Respond ONLY with valid JSON.`)
	return b.String()
}

func buildAskPrompt(symbol, name, question string, prior *types.Analysis, news []types.NewsItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A user is asking about %s (%s).\n", symbol, name)

	if prior != nil {
		fmt.Fprintf(&b, "\nPrevious Analysis:\n- Importance: %d/10\n- Sentiment: %s\n- Summary: %s\n- Recommendation: %s\n",
			prior.ImportanceScore, prior.Sentiment, prior.Summary, prior.Recommendation.Action)
	}
	if len(news) > 0 {
		b.WriteString("\nRelevant News:\n")
		for i, item := range news {
			if i >= maxContextNews {
				break
			}
			fmt.Fprintf(&b, "%d. %s\n", i+1, item.Title)
		}
	}

	fmt.Fprintf(&b, "\nUser Question: %s\n", question)
	b.WriteString(`
Provide a helpful, informative response in JSON format:
{
  "answer": "<direct answer to the question, 2-4 sentences>",
  "detailed_explanation": "<more detailed explanation if needed>",
  "key_takeaways": ["<takeaway 1>", "<takeaway 2>"],
  "related_risks": ["<risk to consider 1>", "<risk 2>"],
  "suggested_follow_up": "<suggested question the user might want to ask next>"
}

Be helpful, accurate, and focus on what the user wants to know. If you don't have enough information, say so and suggest what additional info would help. Respond ONLY with valid JSON.`)
	return b.String()
}

func buildDeepDivePrompt(symbol, name, topic string, snap *types.Snapshot, news []types.NewsItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Provide a deep dive analysis on %s for %s (%s).\n\n", topic, symbol, name)
	if snap != nil {
		b.WriteString(formatSnapshotContext(symbol, name, snap))
	}
	if len(news) > 0 {
		b.WriteString("\nRecent News for Context:\n")
		for i, item := range news {
			if i >= maxContextNews {
				break
			}
			fmt.Fprintf(&b, "- %s\n", item.Title)
		}
	}

	fmt.Fprintf(&b, "\nTopic: %s\n", topic)
	fmt.Fprintf(&b, `
Provide a comprehensive analysis in JSON format:
{
  "topic": "%s",
  "overview": "<2-3 sentence overview of this topic for %s>",
  "key_points": [
    {"point": "<point 1>", "explanation": "<why this matters>"},
    {"point": "<point 2>", "explanation": "<why this matters>"}
  ],
  "bull_case": "<positive scenario and potential upside>",
  "bear_case": "<negative scenario and potential downside>",
  "catalysts": ["<event that could impact this topic>"],
  "investor_action": "<what should investor do regarding this topic>"
}

Be thorough, balanced, and actionable. Respond ONLY with valid JSON.`, topic, symbol)
	return b.String()
}

func formatSnapshotContext(symbol, name string, snap *types.Snapshot) string {
	if snap == nil {
		return fmt.Sprintf("Stock: %s (%s)\n", name, symbol)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Stock: %s (%s)\nCurrent Price: $%.2f\n", name, symbol, snap.Price)
	if snap.Change != nil && snap.ChangePercent != nil {
		fmt.Fprintf(&b, "Change: %+.2f (%+.2f%%)\n", *snap.Change, *snap.ChangePercent)
	}
	if snap.Volume > 0 {
		fmt.Fprintf(&b, "Volume: %d\n", snap.Volume)
	}
	if snap.MarketCap > 0 {
		fmt.Fprintf(&b, "Market Cap: %d\n", snap.MarketCap)
	}
	if snap.PERatio > 0 {
		fmt.Fprintf(&b, "P/E Ratio: %.2f\n", snap.PERatio)
	}
	if snap.Week52High > 0 {
		fmt.Fprintf(&b, "52W High: $%.2f\n52W Low: $%.2f\n", snap.Week52High, snap.Week52Low)
	}
	return b.String()
}

// parseModelJSON tolerates code fences and mildly broken JSON, which small
// models emit routinely.
func parseModelJSON(out string, v any) error {
	s := strings.TrimSpace(out)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.Index(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}
	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return fmt.Errorf("repair model output: %w", err)
	}
	return json.Unmarshal([]byte(repaired), v)
}

func normalizeAnalysis(a *types.Analysis) {
	if a.ImportanceScore < 0 {
		a.ImportanceScore = 0
	}
	if a.ImportanceScore > 10 {
		a.ImportanceScore = 10
	}
	switch strings.ToLower(a.Sentiment) {
	case types.SentimentBullish, types.SentimentBearish:
		a.Sentiment = strings.ToLower(a.Sentiment)
	default:
		a.Sentiment = types.SentimentNeutral
	}
	if a.KeyPoints == nil {
		a.KeyPoints = []string{}
	}
}

// truncate cuts at a rune boundary at or below n bytes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
