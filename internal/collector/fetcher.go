package collector

import (
	"context"

	"CryptoBoard/internal/model"
)

// SeriesFetcher fetches validated price history.
type SeriesFetcher interface {
	FetchSeries(ctx context.Context, symbol string, window model.Window) (*model.SeriesResult, error)
	Name() string
}

// SnapshotFetcher fetches the market overview.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) (*model.MarketSnapshot, error)
	Name() string
}

var (
	_ SeriesFetcher   = (*Client)(nil)
	_ SnapshotFetcher = (*Client)(nil)
	_ SeriesFetcher   = (*MockFetcher)(nil)
	_ SnapshotFetcher = (*MockFetcher)(nil)
)
