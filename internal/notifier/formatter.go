package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"CryptoBoard/internal/model"
	"CryptoBoard/internal/render"
)

// marketRows is the number of assets shown in the Telegram market table.
const marketRows = 10

// FormatChart formats a chart card as a Telegram HTML message.
func FormatChart(slot string, chart *model.ChartData) string {
	var b strings.Builder
	s := chart.Series
	ind := chart.Indicators

	b.WriteString(fmt.Sprintf("%s <b>%s</b> %s | %s\n\n", signalEmoji(chart.Signal.Label),
		html.EscapeString(s.Symbol), html.EscapeString(s.Window.String()), html.EscapeString(slot)))
	b.WriteString(fmt.Sprintf("Price: %s (%s %s)\n", render.Currency(ind.LastPrice), render.Percent(ind.ChangePct), render.Arrow(ind.ChangePct)))
	b.WriteString(fmt.Sprintf("Range: %s ~ %s\n", render.Currency(ind.Low), render.Currency(ind.High)))
	b.WriteString(fmt.Sprintf("<code>%s</code>\n", render.Sparkline(s.Prices, 24)))

	for _, a := range chart.Averages {
		if n := len(a.Points); n > 0 && a.Points[n-1].Valid {
			b.WriteString(fmt.Sprintf("MA%d: %s\n", a.Period, render.Currency(a.Points[n-1].Value)))
		}
	}
	if ind.RSIValid {
		b.WriteString(fmt.Sprintf("RSI: %.1f\n", ind.RSI))
	}

	b.WriteString(fmt.Sprintf("\n<b>Signal: %s</b> (%+.1f)\n", chart.Signal.Label, chart.Signal.Score))
	for _, f := range chart.Signal.Factors {
		b.WriteString(fmt.Sprintf("  %s: %+.1f %s\n", f.Name, f.Score, html.EscapeString(f.Commentary)))
	}
	return b.String()
}

// FormatMarket formats the market overview as a Telegram HTML message.
func FormatMarket(snap *model.MarketSnapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>Market</b> | %s\n\n", snapTime(snap).Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("<pre>%s</pre>", html.EscapeString(render.FormatSnapshot(snap, marketRows))))
	return b.String()
}

// FormatError formats a user-facing error for a slot or the market table.
func FormatError(target string, err error) string {
	return fmt.Sprintf("⚠️ <b>%s</b>: %s", html.EscapeString(target), html.EscapeString(render.ErrorText(err)))
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	var b strings.Builder
	b.WriteString("🤖 <b>CryptoBoard</b>\n\n")
	b.WriteString("/market - market overview\n")
	b.WriteString("/chart SYMBOL [WINDOW] - price chart, e.g. /chart ETH 90 or /chart BTC 1y\n")
	b.WriteString("/help - this message\n")
	return b.String()
}

func signalEmoji(l model.SignalLabel) string {
	switch l {
	case model.SignalBuy:
		return "🟢"
	case model.SignalSell:
		return "🔴"
	default:
		return "⚪"
	}
}

func snapTime(snap *model.MarketSnapshot) time.Time {
	if snap.FetchedAt.IsZero() {
		return time.Now()
	}
	return snap.FetchedAt
}
