package notifier

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"MarketPulse/internal/model"
)

var biasIcon = map[model.Bias]string{
	model.Bullish:     "🟢",
	model.Bearish:     "🔴",
	model.Neutral:     "⚪",
	model.Unavailable: "⚫",
}

// FormatSnapshot formats a resolved snapshot into a Telegram message.
func FormatSnapshot(s model.Snapshot) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s <b>%s</b> %.2f (%+.2f%%)\n", biasIcon[s.Bias], html.EscapeString(s.Symbol), s.Price, s.ChangePct))
	b.WriteString(fmt.Sprintf("Bias: %s | Trend: %s\n", s.Bias, s.Trend))
	b.WriteString(fmt.Sprintf("Source: %s | Mode: %s\n", s.SourceTier, s.Mode))

	if s.Bias != model.Unavailable {
		b.WriteString(fmt.Sprintf("Support: %.2f | Resistance: %.2f\n\n", s.Support, s.Resistance))
		b.WriteString(fmt.Sprintf("💰 <b>%s plan</b>\n", html.EscapeString(s.Strategy)))
		b.WriteString(fmt.Sprintf("   Entry: %.2f\n", s.Plan.Entry))
		b.WriteString(fmt.Sprintf("   Stop: %.2f\n", s.Plan.Stop))
		for i, tgt := range s.Plan.Targets {
			b.WriteString(fmt.Sprintf("   T%d: %.2f\n", i+1, tgt))
		}
	}

	if len(s.RiskNotes) > 0 {
		b.WriteString("\n⚠️ <b>Risk</b>\n")
		for _, n := range s.RiskNotes {
			b.WriteString("• " + html.EscapeString(n) + "\n")
		}
	}

	if s.Reasoning != "" {
		b.WriteString("\n" + html.EscapeString(s.Reasoning) + "\n")
	}
	if s.SourceTier == model.TierCached {
		b.WriteString("\n<i>" + html.EscapeString(s.Summary) + "</i>\n")
	}
	return b.String()
}

// FormatMovers formats the movers ranking.
func FormatMovers(movers []model.Mover, lastScan time.Time) string {
	if len(movers) == 0 {
		return "No movers yet: the scanner has not completed a cycle."
	}

	var b strings.Builder
	b.WriteString("🚀 <b>Top movers</b>")
	if !lastScan.IsZero() {
		b.WriteString(" | " + lastScan.In(model.ExchangeLocation()).Format("2006-01-02 15:04 MST"))
	}
	b.WriteString("\n\n")
	for i, m := range movers {
		arrow := "▲"
		if m.ChangePct < 0 {
			arrow = "▼"
		}
		b.WriteString(fmt.Sprintf("%2d. %-6s %10.2f %s %+.2f%%\n", i+1, m.Symbol, m.Price, arrow, m.ChangePct))
	}
	return b.String()
}

// FormatDigest formats the post-scan alert, or "" when the top mover is below
// minChange.
func FormatDigest(movers []model.Mover, lastScan time.Time, minChange float64, top int) string {
	if len(movers) == 0 || math.Abs(movers[0].ChangePct) < minChange {
		return ""
	}
	if top > 0 && len(movers) > top {
		movers = movers[:top]
	}
	return "📣 <b>Movers alert</b>\n\n" + FormatMovers(movers, lastScan)
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	return "Available commands:\n" +
		"• /quote SYMBOL [strategy] [mode]\n" +
		"   strategy: scalp, day, swing, momentum, mean, default\n" +
		"   mode: intraday, daily, point\n" +
		"• /movers\n" +
		"• /help"
}
