package calculator

import (
	"math"

	"CryptoBoard/internal/model"
)

// PercentChange returns (last-first)/first*100. A zero or non-finite first
// value yields 0 rather than a division error.
func PercentChange(first, last float64) float64 {
	if first == 0 || math.IsNaN(first) || math.IsInf(first, 0) {
		return 0
	}
	return (last - first) / first * 100
}

// SeriesPercentChange is PercentChange between the first and last price.
// An empty series has no first value and yields 0.
func SeriesPercentChange(prices []model.PricePoint) float64 {
	if len(prices) == 0 {
		return 0
	}
	return PercentChange(prices[0].Price, prices[len(prices)-1].Price)
}
