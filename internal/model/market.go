package model

import "time"

// PricePoint is a single observation of an asset price.
type PricePoint struct {
	Time  time.Time
	Price float64
}

// VolumePoint is a single observation of traded volume.
type VolumePoint struct {
	Time   time.Time
	Volume float64
}

// MAPoint is one value of a moving-average series. Valid is false while
// the trailing window is not yet full.
type MAPoint struct {
	Time  time.Time
	Value float64
	Valid bool
}

// MovingAverageSeries holds a simple moving average aligned to a price series.
type MovingAverageSeries struct {
	Period int
	Points []MAPoint
}

// SeriesResult holds validated price history for one symbol and window.
// Prices and Volumes are ascending by time with unique timestamps.
type SeriesResult struct {
	Symbol    string
	Window    Window
	Prices    []PricePoint
	Volumes   []VolumePoint
	SMA       []MAPoint // server-computed average, when the endpoint supplies one
	FetchedAt time.Time
}

// Closes returns the price values in series order.
func (s *SeriesResult) Closes() []float64 {
	out := make([]float64, len(s.Prices))
	for i, p := range s.Prices {
		out[i] = p.Price
	}
	return out
}

// AssetSummary is one row of the market overview table.
type AssetSummary struct {
	Symbol           string  `json:"symbol"`
	Rank             *int    `json:"rank,omitempty"`
	PriceUSD         float64 `json:"price_usd"`
	PercentChange24h float64 `json:"percent_change_24h"`
	PercentChange7d  float64 `json:"percent_change_7d"`
	MarketCap        float64 `json:"market_cap"`
	Volume24h        float64 `json:"volume_24h"`
}

// MarketSnapshot is the market table plus its derived aggregates.
// It is rebuilt on every fetch.
type MarketSnapshot struct {
	Assets          []AssetSummary `json:"assets"`
	TotalMarketCap  float64        `json:"total_market_cap"`
	TotalVolume     float64        `json:"total_volume"`
	BTCDominancePct float64        `json:"btc_dominance_pct"`
	ActiveCount     int            `json:"active_count"`
	FetchedAt       time.Time      `json:"fetched_at"`
}
