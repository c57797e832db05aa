package calculator

import (
	"math"
	"sort"
	"strings"

	"CryptoBoard/internal/model"
)

// DominanceSymbol is the asset whose share of total market cap is reported.
const DominanceSymbol = "BTC"

// Aggregate builds a MarketSnapshot from asset rows. Rows are stably sorted
// by market cap descending; rows without a rank get their 1-based position.
// The input slice is not modified.
func Aggregate(assets []model.AssetSummary) *model.MarketSnapshot {
	rows := make([]model.AssetSummary, len(assets))
	copy(rows, assets)

	snap := &model.MarketSnapshot{}
	var dominanceCap float64
	for i := range rows {
		rows[i].MarketCap = finiteOrZero(rows[i].MarketCap)
		rows[i].Volume24h = finiteOrZero(rows[i].Volume24h)

		snap.TotalMarketCap += rows[i].MarketCap
		snap.TotalVolume += rows[i].Volume24h
		if rows[i].MarketCap > 0 {
			snap.ActiveCount++
		}
		if strings.EqualFold(rows[i].Symbol, DominanceSymbol) {
			dominanceCap = rows[i].MarketCap
		}
	}
	snap.BTCDominancePct = Dominance(dominanceCap, snap.TotalMarketCap)

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].MarketCap > rows[j].MarketCap })
	for i := range rows {
		if rows[i].Rank == nil {
			rank := i + 1
			rows[i].Rank = &rank
		}
	}
	snap.Assets = rows
	return snap
}

// Dominance returns part as a percentage of total, 0 when total is 0.
func Dominance(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
