package collector

import (
	"context"
	"strings"
	"time"

	"CryptoBoard/internal/calculator"
	"CryptoBoard/internal/model"
)

// MockFetcher returns controllable synthetic data for development and testing.
type MockFetcher struct {
	Price  float64
	Series *model.SeriesResult
	Assets []model.AssetSummary
	Err    error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchSeries(ctx context.Context, symbol string, window model.Window) (*model.SeriesResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrInvalidSymbol
	}
	if m.Series != nil {
		res := *m.Series
		res.Symbol, res.Window = symbol, window
		return &res, nil
	}
	days := window.Days
	if days <= 0 {
		days = model.DefaultWindowDays
	}
	prices, volumes := generateMockSeries(m.Price, days)
	return &model.SeriesResult{
		Symbol:    symbol,
		Window:    window,
		Prices:    prices,
		Volumes:   volumes,
		FetchedAt: time.Now(),
	}, nil
}

func (m *MockFetcher) FetchSnapshot(ctx context.Context) (*model.MarketSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	assets := m.Assets
	if assets == nil {
		assets = []model.AssetSummary{
			{Symbol: "BTC", PriceUSD: m.Price, MarketCap: m.Price * 19.7e6, Volume24h: 3.1e10, PercentChange24h: 1.2, PercentChange7d: -0.8},
			{Symbol: "ETH", PriceUSD: m.Price / 20, MarketCap: m.Price / 20 * 120e6, Volume24h: 1.5e10, PercentChange24h: -0.4, PercentChange7d: 2.5},
			{Symbol: "SOL", PriceUSD: m.Price / 400, MarketCap: m.Price / 400 * 460e6, Volume24h: 2.4e9, PercentChange24h: 3.1, PercentChange7d: 6.0},
		}
	}
	if len(assets) == 0 {
		return nil, &FetchError{Kind: KindEmpty, Endpoint: endpointCryptoPrices, Msg: "asset list is empty"}
	}
	snap := calculator.Aggregate(assets)
	snap.FetchedAt = time.Now()
	return snap, nil
}

func generateMockSeries(basePrice float64, days int) ([]model.PricePoint, []model.VolumePoint) {
	if basePrice <= 0 {
		basePrice = 100
	}
	end := time.Now().UTC().Truncate(24 * time.Hour)
	prices := make([]model.PricePoint, days)
	volumes := make([]model.VolumePoint, days)
	for i := 0; i < days; i++ {
		ts := end.AddDate(0, 0, -(days - 1 - i))
		p := basePrice * (1 + float64(i-days/2)*0.001)
		prices[i] = model.PricePoint{Time: ts, Price: p}
		volumes[i] = model.VolumePoint{Time: ts, Volume: 1000000}
	}
	return prices, volumes
}
