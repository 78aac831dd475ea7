package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"stock-noti-bot/internal/types"
)

const (
	maxAlertNews      = 5
	maxAlertKeyPoints = 4
	maxTitleLength    = 70
)

// FormatNewsAlert renders the push notification for a scored news batch.
func FormatNewsAlert(symbol, name string, snap *types.Snapshot, analysis types.Analysis, news []types.NewsItem) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📰 *%s* - %s\n", symbol, name)
	fmt.Fprintf(&b, "Score: %s %d/10 | Sentiment: %s %s\n",
		scoreEmoji(analysis.ImportanceScore), analysis.ImportanceScore,
		sentimentEmoji(analysis.Sentiment), strings.ToUpper(analysis.Sentiment))
	b.WriteString(strings.Repeat("─", 20) + "\n")

	if snap != nil && snap.Price > 0 {
		pct := 0.0
		if snap.ChangePercent != nil {
			pct = *snap.ChangePercent
		}
		fmt.Fprintf(&b, "\n💰 Price: $%.2f %s %.2f%%\n", snap.Price, directionEmoji(pct), abs(pct))
	}

	if analysis.Summary != "" {
		fmt.Fprintf(&b, "\n📋 Summary:\n%s\n", cleanMarkdown(analysis.Summary))
	}

	if len(analysis.KeyPoints) > 0 {
		b.WriteString("\n📊 Key Points:\n")
		for _, point := range lo.Slice(analysis.KeyPoints, 0, maxAlertKeyPoints) {
			fmt.Fprintf(&b, "• %s\n", clip(cleanMarkdown(point), 150))
		}
	}

	if len(news) > 0 {
		b.WriteString("\n📰 News:\n")
		for i, item := range lo.Slice(news, 0, maxAlertNews) {
			fmt.Fprintf(&b, "\n*%d. %s*\n", i+1, clip(cleanMarkdown(item.Title), maxTitleLength))
			if item.Publisher != "" {
				fmt.Fprintf(&b, "📍 %s", item.Publisher)
			}
			if !item.Published.IsZero() {
				fmt.Fprintf(&b, " | %s", item.Published.Format("01/02 15:04"))
			}
			if item.URL != "" {
				fmt.Fprintf(&b, "\n🔗 [View Article](%s)", item.URL)
			}
			b.WriteString("\n")
		}
	}

	if analysis.Recommendation.Action != "" {
		fmt.Fprintf(&b, "\n⚡ Action: *%s*", strings.ToUpper(analysis.Recommendation.Action))
	}

	fmt.Fprintf(&b, "\n\n⏰ %s", time.Now().Format("2006-01-02 15:04"))
	return b.String()
}

// FormatPriceAlert renders an unusual-move notification.
func FormatPriceAlert(alert types.PriceAlert, name string) string {
	emoji := "⚠️"
	if abs(alert.ChangePercent) >= 5 {
		emoji = "🔥"
	}
	return fmt.Sprintf(`%s *PRICE ALERT: %s*

%s

$%.2f %s %.2f%%

Threshold: %g%%

⏰ %s`,
		emoji, alert.Symbol, name,
		alert.Price, directionEmoji(alert.ChangePercent), abs(alert.ChangePercent),
		alert.Threshold, time.Now().Format("2006-01-02 15:04"))
}

// FormatSnapshot renders the /price reply.
func FormatSnapshot(snap *types.Snapshot, name string) string {
	change, pct := 0.0, 0.0
	if snap.Change != nil {
		change = *snap.Change
	}
	if snap.ChangePercent != nil {
		pct = *snap.ChangePercent
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 *%s* %s\n\n", snap.Symbol, name)
	fmt.Fprintf(&b, "💰 Price: $%.2f\n", snap.Price)
	fmt.Fprintf(&b, "%s Change: %.2f (%.2f%%)\n\n", directionEmoji(change), abs(change), abs(pct))
	if snap.Volume > 0 {
		fmt.Fprintf(&b, "📊 Volume: %d\n", snap.Volume)
	}
	if snap.MarketCap > 0 {
		fmt.Fprintf(&b, "📈 Market Cap: %d\n", snap.MarketCap)
	}
	if snap.PERatio > 0 {
		fmt.Fprintf(&b, "📐 P/E: %.2f\n", snap.PERatio)
	}
	if snap.Week52High > 0 {
		fmt.Fprintf(&b, "\n52W High: $%.2f\n52W Low: $%.2f\n", snap.Week52High, snap.Week52Low)
	}
	fmt.Fprintf(&b, "\n⏰ %s", time.Now().Format("2006-01-02 15:04"))
	return b.String()
}

// FormatNewsList renders the /news reply.
func FormatNewsList(symbol, name string, news []types.NewsItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📰 *%s* %s\n\n*Recent News:*\n\n", symbol, name)
	for i, item := range lo.Slice(news, 0, maxAlertNews) {
		fmt.Fprintf(&b, "*%d. %s*\n", i+1, clip(cleanMarkdown(item.Title), maxTitleLength))
		publisher := item.Publisher
		if publisher == "" {
			publisher = "Unknown"
		}
		fmt.Fprintf(&b, "📍 %s\n", publisher)
		if item.URL != "" {
			fmt.Fprintf(&b, "🔗 [Link](%s)\n", item.URL)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatAnswer renders a Q&A reply.
func FormatAnswer(symbol string, result types.QAResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *%s*\n\n💡 %s", symbol, result.Answer)

	if result.DetailedExplanation != "" {
		fmt.Fprintf(&b, "\n\n📝 %s", result.DetailedExplanation)
	}
	if len(result.KeyTakeaways) > 0 {
		b.WriteString("\n\n*Key Points:*")
		for _, t := range lo.Slice(result.KeyTakeaways, 0, 3) {
			fmt.Fprintf(&b, "\n• %s", t)
		}
	}
	if len(result.RelatedRisks) > 0 {
		b.WriteString("\n\n⚠️ *Risks:*")
		for _, r := range lo.Slice(result.RelatedRisks, 0, 2) {
			fmt.Fprintf(&b, "\n• %s", r)
		}
	}
	if result.SuggestedFollowUp != "" {
		fmt.Fprintf(&b, "\n\n❓ You might also ask: %s", result.SuggestedFollowUp)
	}
	return b.String()
}

// FormatDeepDive renders a deep dive reply.
func FormatDeepDive(symbol string, result types.DeepDiveResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 *Deep Dive: %s*\n📊 *%s*\n\n", result.Topic, symbol)
	fmt.Fprintf(&b, "📖 *Overview*\n%s\n\n", result.Overview)

	if len(result.KeyPoints) > 0 {
		b.WriteString("*Key Points:*\n")
		for _, kp := range lo.Slice(result.KeyPoints, 0, 4) {
			fmt.Fprintf(&b, "• %s\n", kp.Point)
		}
		b.WriteString("\n")
	}
	if result.BullCase != "" {
		fmt.Fprintf(&b, "🐂 *Bull Case*\n%s\n\n", result.BullCase)
	}
	if result.BearCase != "" {
		fmt.Fprintf(&b, "🐻 *Bear Case*\n%s\n\n", result.BearCase)
	}
	if len(result.Catalysts) > 0 {
		b.WriteString("*Catalysts to Watch:*\n")
		for _, c := range lo.Slice(result.Catalysts, 0, 3) {
			fmt.Fprintf(&b, "• %s\n", c)
		}
		b.WriteString("\n")
	}
	if result.InvestorAction != "" {
		fmt.Fprintf(&b, "⚡ *Action:* %s", result.InvestorAction)
	}
	return b.String()
}

// FormatWatchlist renders the /watchlist reply.
func FormatWatchlist(watchlist []string, intervalMinutes int, lang string) string {
	stocks := "None"
	if len(watchlist) > 0 {
		stocks = strings.Join(watchlist, ", ")
	}

	var b strings.Builder
	b.WriteString("📊 *Your Watchlist*\n\n")
	fmt.Fprintf(&b, "📌 *Stocks:* %s\n", stocks)
	fmt.Fprintf(&b, "⏱ *Interval:* Every %d minutes\n", intervalMinutes)
	fmt.Fprintf(&b, "🌐 *Language:* %s\n\n", languageName(lang))
	b.WriteString("*Commands:*\n")
	b.WriteString("• /add <symbol> - Add stock\n")
	b.WriteString("• /remove <symbol> - Remove stock\n")
	b.WriteString("• /interval <minutes> - Set interval\n")
	b.WriteString("• /lang zh/en - Set language")
	return b.String()
}

// FormatHelp renders the /help and /start reply with current settings.
func FormatHelp(watchlist []string, intervalMinutes int, lang string) string {
	stocks := "未设置"
	if len(watchlist) > 0 {
		stocks = strings.Join(watchlist, ", ")
	}

	return fmt.Sprintf(`🤖 *Stock Noti Bot - 使用指南*

━━━━━━━━━━━━━━━━━━━━
📊 *监控管理*
━━━━━━━━━━━━━━━━━━━━

`+"`/watchlist`"+` - 查看你的设置
`+"`/add <股票>`"+` - 添加监控
  示例: `+"`/add TSLA`"+`

`+"`/remove <股票>`"+` - 移除监控
  示例: `+"`/remove TSLA`"+`

`+"`/interval <分钟>`"+` - 设置推送间隔
  示例: `+"`/interval 30`"+` → 每30分钟

`+"`/lang zh`"+` - 切换中文
`+"`/lang en`"+` - 切换英文

`+"`/now`"+` - 立即获取新闻（不用等定时）

━━━━━━━━━━━━━━━━━━━━
📈 *股票信息*
━━━━━━━━━━━━━━━━━━━━

`+"`/stocks`"+` - 查看监控的所有股票价格
`+"`/price <股票>`"+` - 查询实时价格
  示例: `+"`/price NVDA`"+`

`+"`/news <股票>`"+` - 获取最新新闻
  示例: `+"`/news NVDA`"+`

━━━━━━━━━━━━━━━━━━━━
🤖 *AI 智能分析*
━━━━━━━━━━━━━━━━━━━━

`+"`/ask <股票> <问题>`"+` - 问任何问题
  示例: `+"`/ask NVDA 财报前应该买入吗？`"+`

`+"`/deep <股票> <主题>`"+` - 深度分析
  可用主题: earnings, competition, risks, outlook
  示例: `+"`/deep NVDA 竞争分析`"+`

━━━━━━━━━━━━━━━━━━━━
💬 *直接提问*
━━━━━━━━━━━━━━━━━━━━

你也可以直接发消息，我会自动识别股票：
  示例: "NVDA的财报怎么样？"

━━━━━━━━━━━━━━━━━━━━
⚙️ *当前设置*

📌 监控股票: %s
⏱ 推送间隔: 每 %d 分钟
🌐 语言: %s

━━━━━━━━━━━━━━━━━━━━
⚡ 快速开始:
1. 用 /add 添加你想监控的股票
2. 用 /interval 设置推送间隔
3. 机器人会自动推送新闻分析！`, stocks, intervalMinutes, languageName(lang))
}

func languageName(lang string) string {
	if lang == "zh" {
		return "中文"
	}
	return "English"
}

func sentimentEmoji(sentiment string) string {
	switch strings.ToLower(sentiment) {
	case types.SentimentBullish:
		return "🟢"
	case types.SentimentBearish:
		return "🔴"
	case types.SentimentNeutral:
		return "🟡"
	}
	return "⚪"
}

func scoreEmoji(score int) string {
	switch {
	case score >= 8:
		return "🔥"
	case score >= 6:
		return "⚡"
	case score >= 4:
		return "📊"
	}
	return "📎"
}

func directionEmoji(change float64) string {
	if change >= 0 {
		return "🔺"
	}
	return "🔻"
}

// cleanMarkdown strips the formatting characters that break Telegram's
// Markdown entity parser when they arrive unbalanced from model output.
func cleanMarkdown(s string) string {
	r := strings.NewReplacer("*", "", "_", "", "[", "", "]", "")
	return r.Replace(s)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
