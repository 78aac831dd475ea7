package types

import "time"

// Snapshot is a point-in-time read of price/volume/fundamentals for a symbol.
// Change and ChangePercent are derived from Price and PreviousClose and are
// nil when either input is missing.
type Snapshot struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	PreviousClose float64   `json:"previous_close"`
	Open          float64   `json:"open,omitempty"`
	DayHigh       float64   `json:"day_high,omitempty"`
	DayLow        float64   `json:"day_low,omitempty"`
	Volume        int64     `json:"volume,omitempty"`
	AvgVolume     int64     `json:"avg_volume,omitempty"`
	MarketCap     int64     `json:"market_cap,omitempty"`
	PERatio       float64   `json:"pe_ratio,omitempty"`
	Week52High    float64   `json:"52_week_high,omitempty"`
	Week52Low     float64   `json:"52_week_low,omitempty"`
	Change        *float64  `json:"change"`
	ChangePercent *float64  `json:"change_percent"`
	FetchedAt     time.Time `json:"timestamp"`
}

// NewsItem is a single headline returned by the market data gateway.
type NewsItem struct {
	Title     string    `json:"title"`
	Summary   string    `json:"summary,omitempty"`
	URL       string    `json:"url,omitempty"`
	Publisher string    `json:"publisher,omitempty"`
	Published time.Time `json:"published"`
}

// Sentiment values produced by the classifier.
const (
	SentimentBullish = "bullish"
	SentimentBearish = "bearish"
	SentimentNeutral = "neutral"
)

// Recommendation is the structured action attached to an Analysis.
type Recommendation struct {
	Action     string `json:"action"`
	Confidence string `json:"confidence"`
	Reasoning  string `json:"reasoning,omitempty"`
}

// Analysis is the classifier's judgement of recent news for one symbol.
// Transient: held for one decision cycle and optionally cached in memory
// for chat-context follow-up.
type Analysis struct {
	ImportanceScore int            `json:"importance_score"`
	Sentiment       string         `json:"sentiment"`
	Summary         string         `json:"summary"`
	KeyPoints       []string       `json:"key_points"`
	PriceImpact     string         `json:"price_impact,omitempty"`
	Recommendation  Recommendation `json:"recommendation"`
}

// QAResult is the classifier's answer to a free-form question.
type QAResult struct {
	Answer              string   `json:"answer"`
	DetailedExplanation string   `json:"detailed_explanation,omitempty"`
	KeyTakeaways        []string `json:"key_takeaways,omitempty"`
	RelatedRisks        []string `json:"related_risks,omitempty"`
	SuggestedFollowUp   string   `json:"suggested_follow_up,omitempty"`
}

// DeepDivePoint is one key point of a deep dive with its explanation.
type DeepDivePoint struct {
	Point       string `json:"point"`
	Explanation string `json:"explanation,omitempty"`
}

// DeepDiveResult is the classifier's topic deep dive for a symbol.
type DeepDiveResult struct {
	Topic          string          `json:"topic"`
	Overview       string          `json:"overview"`
	KeyPoints      []DeepDivePoint `json:"key_points,omitempty"`
	BullCase       string          `json:"bull_case,omitempty"`
	BearCase       string          `json:"bear_case,omitempty"`
	Catalysts      []string        `json:"catalysts,omitempty"`
	InvestorAction string          `json:"investor_action,omitempty"`
}

// Verdict is the decision engine's per-symbol output.
type Verdict struct {
	Emit   bool   `json:"emit"`
	Reason string `json:"reason"`
}

// Decision reasons.
const (
	ReasonEligible  = "eligible"
	ReasonThrottled = "throttled"
	ReasonLowScore  = "low_score"
)

// PriceAlert is the price-move detector's output when a snapshot's move
// exceeds the configured threshold.
type PriceAlert struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Threshold     float64 `json:"threshold"`
}

// SymbolResult records what one cycle did for one symbol.
type SymbolResult struct {
	Symbol          string `json:"symbol"`
	NewsCount       int    `json:"news_count"`
	ImportanceScore int    `json:"importance_score"`
	Sentiment       string `json:"sentiment"`
	Sent            bool   `json:"sent"`
	PriceAlert      bool   `json:"price_alert"`
	Reason          string `json:"reason,omitempty"`
	Err             string `json:"error,omitempty"`
}
