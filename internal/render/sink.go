// Package render defines the boundary between the data layer and whatever
// draws charts and market tables, plus the sinks shipped with CryptoBoard.
package render

import (
	"context"

	"CryptoBoard/internal/model"
)

// Handle is a live chart owned by a chart slot. Destroy releases it.
type Handle interface {
	Destroy(ctx context.Context) error
}

// Sink draws charts and market tables. Implementations must not modify
// the data they are given.
type Sink interface {
	Name() string
	// DrawChart draws a chart for slot and returns a handle to it.
	DrawChart(ctx context.Context, slot string, chart *model.ChartData) (Handle, error)
	DrawSnapshot(ctx context.Context, snap *model.MarketSnapshot) error
	// ShowError displays a user-facing error for target (a slot name or "market").
	ShowError(ctx context.Context, target string, err error) error
}

// NopHandle is a handle with nothing to release.
type NopHandle struct{}

func (NopHandle) Destroy(context.Context) error { return nil }

// Nop discards everything.
type Nop struct{}

func (Nop) Name() string { return "nop" }

func (Nop) DrawChart(context.Context, string, *model.ChartData) (Handle, error) {
	return NopHandle{}, nil
}

func (Nop) DrawSnapshot(context.Context, *model.MarketSnapshot) error { return nil }

func (Nop) ShowError(context.Context, string, error) error { return nil }
