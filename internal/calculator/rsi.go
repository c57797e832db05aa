package calculator

import (
	"errors"

	"CryptoBoard/internal/model"
)

// DefaultRSIPeriod is the look-back used for chart RSI.
const DefaultRSIPeriod = 14

// CalculateRSI computes the Wilder-smoothed RSI over the given period.
// Requires at least period+1 points. Returns 50.0 and ok=false if data is insufficient.
func CalculateRSI(prices []model.PricePoint, period int) (rsi float64, ok bool, err error) {
	if period <= 0 {
		return 0, false, errors.New("period must be positive")
	}
	if len(prices) < period+1 {
		return 50.0, false, nil
	}

	closes := extractPrices(prices)

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder smoothing for remaining points
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100.0, true, nil
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs), true, nil
}
