package calculator

import (
	"errors"

	"CryptoBoard/internal/model"
)

// DefaultMAPeriods are the moving averages drawn on a chart.
var DefaultMAPeriods = []int{7, 20, 50, 200}

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// MovingAverage returns the SMA series aligned to prices. Points before the
// window fills (i < period-1) are marked invalid.
func MovingAverage(prices []model.PricePoint, period int) (model.MovingAverageSeries, error) {
	if period <= 0 {
		return model.MovingAverageSeries{}, errors.New("period must be positive")
	}
	closes := extractPrices(prices)
	points := make([]model.MAPoint, len(prices))
	for i, p := range prices {
		points[i].Time = p.Time
		if i < period-1 {
			continue
		}
		v, err := CalculateSMA(closes[:i+1], period)
		if err != nil {
			return model.MovingAverageSeries{}, err
		}
		points[i].Value = v
		points[i].Valid = true
	}
	return model.MovingAverageSeries{Period: period, Points: points}, nil
}

// LatestSMA returns the most recent valid value of the series.
func LatestSMA(s model.MovingAverageSeries) (float64, bool) {
	for i := len(s.Points) - 1; i >= 0; i-- {
		if s.Points[i].Valid {
			return s.Points[i].Value, true
		}
	}
	return 0, false
}

func extractPrices(points []model.PricePoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Price
	}
	return out
}
