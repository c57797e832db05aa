package render

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"CryptoBoard/internal/model"
)

// Currency formats a USD amount with thousands separators. Amounts below
// one dollar keep up to six significant decimals.
func Currency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	if v > 0 && v < 1 {
		s := strconv.FormatFloat(v, 'f', 6, 64)
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
		return sign + "$" + s
	}
	return sign + "$" + humanize.CommafWithDigits(v, 2)
}

// Abbrev formats a large USD amount as e.g. "$1.23T" or "$456.7B".
func Abbrev(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	if v < 1000 {
		return sign + "$" + strconv.FormatFloat(v, 'f', 2, 64)
	}
	value, prefix := humanize.ComputeSI(v)
	switch prefix {
	case "k":
		prefix = "K"
	case "G":
		prefix = "B"
	}
	return sign + "$" + humanize.FtoaWithDigits(value, 2) + prefix
}

// Percent formats a signed percentage with two decimals.
func Percent(pct float64) string {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return "-"
	}
	s := strconv.FormatFloat(pct, 'f', 2, 64) + "%"
	if pct > 0 {
		return "+" + s
	}
	return s
}

// Arrow marks the direction of a change.
func Arrow(pct float64) string {
	switch {
	case pct > 0:
		return "▲"
	case pct < 0:
		return "▼"
	default:
		return "•"
	}
}

// Rank formats an optional market-cap rank.
func Rank(r *int) string {
	if r == nil {
		return "-"
	}
	return strconv.Itoa(*r)
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws prices as a one-line bar chart of at most width runes,
// sampling evenly when there are more points than columns.
func Sparkline(prices []model.PricePoint, width int) string {
	if len(prices) == 0 || width <= 0 {
		return ""
	}
	n := len(prices)
	if n > width {
		n = width
	}
	samples := make([]float64, n)
	for i := range samples {
		idx := i * (len(prices) - 1)
		if n > 1 {
			idx /= n - 1
		}
		samples[i] = prices[idx].Price
	}

	lo, hi := samples[0], samples[0]
	for _, v := range samples {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	var b strings.Builder
	for _, v := range samples {
		level := len(sparkRunes) / 2
		if hi > lo {
			level = int((v - lo) / (hi - lo) * float64(len(sparkRunes)-1))
		}
		b.WriteRune(sparkRunes[level])
	}
	return b.String()
}
