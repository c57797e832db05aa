// Package chart assembles chart data from price history and owns the
// render handle of each chart slot on the board.
package chart

import (
	"errors"
	"log"

	"CryptoBoard/internal/calculator"
	"CryptoBoard/internal/model"
	"CryptoBoard/internal/strategy"
)

// Build computes moving averages, indicators and the signal for a series.
// Periods that are not positive are skipped.
func Build(res *model.SeriesResult, periods []int, rsiPeriod int) (*model.ChartData, error) {
	if res == nil || len(res.Prices) == 0 {
		return nil, errors.New("no prices to chart")
	}
	if rsiPeriod <= 0 {
		rsiPeriod = calculator.DefaultRSIPeriod
	}

	chart := &model.ChartData{Series: res}
	for _, p := range periods {
		ma, err := calculator.MovingAverage(res.Prices, p)
		if err != nil {
			log.Printf("[WARN] %s MA%d: %v", res.Symbol, p, err)
			continue
		}
		chart.Averages = append(chart.Averages, ma)
	}

	ind := model.ChartIndicators{
		LastPrice: res.Prices[len(res.Prices)-1].Price,
		ChangePct: calculator.SeriesPercentChange(res.Prices),
	}
	ind.High, ind.Low, _ = calculator.WindowRange(res.Prices)
	if rsi, ok, err := calculator.CalculateRSI(res.Prices, rsiPeriod); err == nil {
		ind.RSI, ind.RSIValid = rsi, ok
	}
	ind.MA20 = latestMA(chart, 20)
	ind.MA50 = latestMA(chart, 50)

	chart.Indicators = ind
	chart.Signal = strategy.Evaluate(ind)
	return chart, nil
}

// latestMA returns the newest value of the period's average, computing it
// when the chart does not draw that period. Zero means not enough history.
func latestMA(chart *model.ChartData, period int) float64 {
	if ma, ok := chart.Average(period); ok {
		v, _ := calculator.LatestSMA(ma)
		return v
	}
	v, err := calculator.CalculateSMA(chart.Series.Closes(), period)
	if err != nil {
		return 0
	}
	return v
}
