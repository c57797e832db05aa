package render

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"CryptoBoard/internal/collector"
	"CryptoBoard/internal/model"
)

const sparkWidth = 48

// Text writes charts and market tables as plain text, e.g. to stdout.
type Text struct {
	mu sync.Mutex
	w  io.Writer
}

func NewText(w io.Writer) *Text { return &Text{w: w} }

func (t *Text) Name() string { return "text" }

func (t *Text) DrawChart(_ context.Context, slot string, chart *model.ChartData) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := io.WriteString(t.w, FormatChart(slot, chart)); err != nil {
		return nil, fmt.Errorf("write chart: %w", err)
	}
	return NopHandle{}, nil
}

func (t *Text) DrawSnapshot(_ context.Context, snap *model.MarketSnapshot) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := io.WriteString(t.w, FormatSnapshot(snap, 0)); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func (t *Text) ShowError(_ context.Context, target string, cause error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintf(t.w, "[%s] %s\n", target, ErrorText(cause))
	return err
}

// ErrorText turns a fetch error into a short user-facing message.
func ErrorText(err error) string {
	switch collector.KindOf(err) {
	case collector.KindRateLimited:
		return "price API is rate limiting requests, try again later"
	case collector.KindInvalidShape:
		return "price API returned data in an unexpected format"
	case collector.KindEmpty:
		return "no data available"
	case collector.KindNetwork:
		return "could not reach the price API: " + err.Error()
	}
	return err.Error()
}

// FormatChart renders a chart card: headline numbers, a sparkline,
// moving averages and the signal breakdown.
func FormatChart(slot string, chart *model.ChartData) string {
	var b strings.Builder
	s := chart.Series
	ind := chart.Indicators

	fmt.Fprintf(&b, "== %s %s (%s) ==\n", s.Symbol, s.Window, slot)
	fmt.Fprintf(&b, "Last %s  %s %s\n", Currency(ind.LastPrice), Percent(ind.ChangePct), Arrow(ind.ChangePct))
	fmt.Fprintf(&b, "High %s  Low %s\n", Currency(ind.High), Currency(ind.Low))
	fmt.Fprintf(&b, "%s\n", Sparkline(s.Prices, sparkWidth))

	var mas []string
	for _, a := range chart.Averages {
		v := "-"
		if n := len(a.Points); n > 0 && a.Points[n-1].Valid {
			v = Currency(a.Points[n-1].Value)
		}
		mas = append(mas, fmt.Sprintf("MA%d %s", a.Period, v))
	}
	if len(mas) > 0 {
		b.WriteString(strings.Join(mas, "  ") + "\n")
	}
	if ind.RSIValid {
		fmt.Fprintf(&b, "RSI %.1f\n", ind.RSI)
	}
	if n := len(s.Volumes); n > 0 {
		fmt.Fprintf(&b, "Volume %s\n", Abbrev(s.Volumes[n-1].Volume))
	}

	fmt.Fprintf(&b, "Signal %s (%+.1f)\n", chart.Signal.Label, chart.Signal.Score)
	for _, f := range chart.Signal.Factors {
		fmt.Fprintf(&b, "  %-9s %+.1f  %s\n", f.Name, f.Score, f.Commentary)
	}
	return b.String()
}

// FormatSnapshot renders the market overview table. limit caps the number
// of rows; zero shows all.
func FormatSnapshot(snap *model.MarketSnapshot, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Market cap %s  Volume 24h %s  BTC dominance %.1f%%  Active %d\n",
		Abbrev(snap.TotalMarketCap), Abbrev(snap.TotalVolume), snap.BTCDominancePct, snap.ActiveCount)

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\tSymbol\tPrice\t24h\t7d\tMarket cap\tVolume 24h\t")
	for i, a := range snap.Assets {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			Rank(a.Rank), a.Symbol, Currency(a.PriceUSD),
			Percent(a.PercentChange24h), Percent(a.PercentChange7d),
			Abbrev(a.MarketCap), Abbrev(a.Volume24h))
	}
	tw.Flush()
	return b.String()
}
