package strategy

import "CryptoBoard/internal/model"

const (
	buyThreshold  = 1.0
	sellThreshold = -1.0
	// a drop this large over the window is a sell regardless of the other factors
	capitulationPct = -6.0
)

// Evaluate computes the price-only signal from chart indicators.
func Evaluate(ind model.ChartIndicators) model.Signal {
	factors := []model.FactorScore{
		scoreTrend(ind),
		scoreRSI(ind),
		scoreMomentum(ind),
		scorePosition(ind),
	}

	total := 0.0
	for _, f := range factors {
		total += f.Score
	}

	label := model.SignalHold
	switch {
	case ind.ChangePct < capitulationPct || total <= sellThreshold:
		label = model.SignalSell
	case total >= buyThreshold:
		label = model.SignalBuy
	}

	return model.Signal{Label: label, Score: total, Factors: factors}
}
