package model

// SignalLabel is the overall reading of a chart.
type SignalLabel string

const (
	SignalBuy  SignalLabel = "BUY"
	SignalHold SignalLabel = "HOLD"
	SignalSell SignalLabel = "SELL"
)

// FactorScore represents a single factor's contribution to a signal.
type FactorScore struct {
	Name       string
	Score      float64
	Commentary string
}

// Signal is the price-only reading derived from chart indicators.
type Signal struct {
	Label   SignalLabel
	Score   float64
	Factors []FactorScore
}

// ChartIndicators holds the scalar indicators shown next to a chart.
type ChartIndicators struct {
	LastPrice float64
	ChangePct float64
	High      float64
	Low       float64
	RSI       float64
	RSIValid  bool
	MA20      float64 // latest value, 0 when not enough history
	MA50      float64
}

// ChartData is everything a render sink needs to draw one chart.
type ChartData struct {
	Series     *SeriesResult
	Averages   []MovingAverageSeries
	Indicators ChartIndicators
	Signal     Signal
}

// Average returns the moving average with the given period, if computed.
func (c *ChartData) Average(period int) (MovingAverageSeries, bool) {
	for _, a := range c.Averages {
		if a.Period == period {
			return a, true
		}
	}
	return MovingAverageSeries{}, false
}
