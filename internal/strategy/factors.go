package strategy

import (
	"fmt"
	"math"

	"CryptoBoard/internal/calculator"
	"CryptoBoard/internal/model"
)

// scoreTrend scores MA alignment and proximity to the window extremes.
// Bull alignment: price > MA20 > MA50
// Bear alignment: price < MA20 < MA50
func scoreTrend(ind model.ChartIndicators) model.FactorScore {
	if ind.MA20 == 0 || ind.MA50 == 0 {
		return model.FactorScore{Name: "trend", Score: 0, Commentary: "not enough history for MA20/MA50"}
	}
	bullish := ind.LastPrice > ind.MA20 && ind.MA20 > ind.MA50
	bearish := ind.LastPrice < ind.MA20 && ind.MA20 < ind.MA50

	nearHigh := ind.High > 0 && math.Abs(ind.LastPrice-ind.High)/ind.High < 0.01
	nearLow := ind.Low > 0 && math.Abs(ind.LastPrice-ind.Low)/ind.Low < 0.01

	var score float64
	var commentary string
	switch {
	case bullish && nearHigh:
		score = 1.5
		commentary = "bullish alignment at window high"
	case bullish:
		score = 1.0
		commentary = "bullish alignment"
	case bearish && nearLow:
		score = -1.0
		commentary = "bearish alignment at window low"
	case bearish:
		score = -0.5
		commentary = "bearish alignment"
	default:
		commentary = "ranging"
	}
	return model.FactorScore{Name: "trend", Score: score, Commentary: commentary}
}

// scoreRSI scores the RSI zone: oversold favours buying, overbought selling.
func scoreRSI(ind model.ChartIndicators) model.FactorScore {
	if !ind.RSIValid {
		return model.FactorScore{Name: "rsi", Score: 0, Commentary: "not enough history"}
	}
	rsi := ind.RSI
	var score float64
	switch {
	case rsi <= 20:
		score = 1.5
	case rsi <= 30:
		score = 1.0
	case rsi < 70:
		score = 0
	case rsi < 80:
		score = -1.0
	default:
		score = -1.5
	}
	return model.FactorScore{Name: "rsi", Score: score, Commentary: fmt.Sprintf("RSI=%.0f", rsi)}
}

// scoreMomentum scores the change over the window.
func scoreMomentum(ind model.ChartIndicators) model.FactorScore {
	chg := ind.ChangePct
	var score float64
	switch {
	case chg > 2:
		score = 0.5
	case chg < -2:
		score = -0.5
	}
	return model.FactorScore{Name: "momentum", Score: score, Commentary: fmt.Sprintf("%+.1f%% over window", chg)}
}

// scorePosition scores where the last price sits in the window range.
func scorePosition(ind model.ChartIndicators) model.FactorScore {
	pos, err := calculator.RangePosition(ind.LastPrice, ind.High, ind.Low)
	if err != nil {
		return model.FactorScore{Name: "position", Commentary: "range unavailable"}
	}
	var score float64
	switch {
	case pos <= 0.1:
		score = 0.5
	case pos >= 0.9:
		score = -0.5
	}
	return model.FactorScore{Name: "position", Score: score, Commentary: fmt.Sprintf("%.0f%% of window range", pos*100)}
}
