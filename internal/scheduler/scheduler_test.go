package scheduler

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CryptoBoard/internal/chart"
	"CryptoBoard/internal/collector"
	"CryptoBoard/internal/model"
	"CryptoBoard/internal/render"
)

// countingSink counts what it was asked to draw.
type countingSink struct {
	mu        sync.Mutex
	charts    []string
	snapshots int
	errors    []string
}

func (c *countingSink) Name() string { return "counting" }

func (c *countingSink) DrawChart(_ context.Context, slot string, d *model.ChartData) (render.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.charts = append(c.charts, slot+"/"+d.Series.Symbol+"/"+d.Series.Window.String())
	return render.NopHandle{}, nil
}

func (c *countingSink) DrawSnapshot(context.Context, *model.MarketSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots++
	return nil
}

func (c *countingSink) ShowError(_ context.Context, target string, _ error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, target)
	return nil
}

// blockingMarket blocks FetchSnapshot until release is closed.
type blockingMarket struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingMarket) Name() string { return "blocking" }

func (b *blockingMarket) FetchSnapshot(ctx context.Context) (*model.MarketSnapshot, error) {
	close(b.started)
	<-b.release
	return (&collector.MockFetcher{Price: 100}).FetchSnapshot(ctx)
}

func newTestScheduler(market collector.SnapshotFetcher, sink *countingSink, slotNames ...string) *Scheduler {
	fetcher := &collector.MockFetcher{Price: 100}
	var slots []*chart.Slot
	for _, name := range slotNames {
		slots = append(slots, chart.NewSlot(name, fetcher, sink, "BTC", model.Days(10), chart.Options{}))
	}
	return NewScheduler(context.Background(), market, slots, sink)
}

func TestRefreshMarket(t *testing.T) {
	t.Parallel()

	sink := &countingSink{}
	s := newTestScheduler(&collector.MockFetcher{Price: 50000}, sink)

	snap, err := s.RefreshMarket(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, snap.ActiveCount)
	assert.Same(t, snap, s.LastMarket())
	assert.Equal(t, 1, sink.snapshots)
}

func TestRefreshMarket_SkipsWhileInFlight(t *testing.T) {
	t.Parallel()

	market := &blockingMarket{started: make(chan struct{}), release: make(chan struct{})}
	sink := &countingSink{}
	s := newTestScheduler(market, sink)

	done := make(chan error, 1)
	go func() {
		_, err := s.RefreshMarket(context.Background())
		done <- err
	}()
	<-market.started

	_, err := s.RefreshMarket(context.Background())
	assert.ErrorIs(t, err, ErrRefreshInFlight)
	assert.Contains(t, s.HandleCommand(context.Background(), "/market"), "already running")

	close(market.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, sink.snapshots)
}

func TestHandleCommand_MarketInFlightRepliesWithLastSnapshot(t *testing.T) {
	t.Parallel()

	market := &blockingMarket{started: make(chan struct{}), release: make(chan struct{})}
	s := newTestScheduler(market, &countingSink{})
	s.lastMarket.Store(&model.MarketSnapshot{TotalMarketCap: 2.5e12, BTCDominancePct: 52.4, ActiveCount: 3})

	done := make(chan error, 1)
	go func() {
		_, err := s.RefreshMarket(context.Background())
		done <- err
	}()
	<-market.started

	reply := s.HandleCommand(context.Background(), "/market")
	assert.Contains(t, reply, "already running")
	assert.Contains(t, reply, "cap $2.5T, BTC dominance 52.4%, 3 active")

	close(market.release)
	require.NoError(t, <-done)
	assert.Equal(t, 3, s.LastMarket().ActiveCount)
}

func TestRefreshMarket_ErrorShownOnSink(t *testing.T) {
	t.Parallel()

	sink := &countingSink{}
	s := newTestScheduler(&collector.MockFetcher{Assets: []model.AssetSummary{}}, sink)

	_, err := s.RefreshMarket(context.Background())
	assert.ErrorIs(t, err, collector.ErrEmpty)
	assert.Equal(t, []string{"market"}, sink.errors)
	assert.Nil(t, s.LastMarket())
	assert.Equal(t, "❌ no data available", s.HandleCommand(context.Background(), "/market"))
}

func TestRefreshCharts(t *testing.T) {
	t.Parallel()

	sink := &countingSink{}
	s := newTestScheduler(&collector.MockFetcher{}, sink, "main", "side")
	s.RefreshCharts(context.Background())

	assert.ElementsMatch(t, []string{"main/BTC/10d", "side/BTC/10d"}, sink.charts)
}

func TestHandleCommand(t *testing.T) {
	t.Parallel()

	sink := &countingSink{}
	s := newTestScheduler(&collector.MockFetcher{Price: 100}, sink, "main")
	ctx := context.Background()

	assert.Contains(t, s.HandleCommand(ctx, "/market"), "✅ Market updated")
	assert.Contains(t, s.HandleCommand(ctx, "/help"), "/chart SYMBOL [WINDOW]")
	assert.Contains(t, s.HandleCommand(ctx, "/nope"), "Unknown command")
	assert.Equal(t, "", s.HandleCommand(ctx, "   "))

	assert.Equal(t, "", s.HandleCommand(ctx, "/chart eth 90"))
	assert.Equal(t, "", s.HandleCommand(ctx, "/Chart@BoardBot sol 1Y"))
	assert.Equal(t, []string{"main/ETH/90d", "main/SOL/1y"}, sink.charts)

	assert.Contains(t, s.HandleCommand(ctx, "/chart"), "Usage")
	assert.Contains(t, s.HandleCommand(ctx, "/chart btc 0"), "must be positive")
}

func TestRegisterAll(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(&collector.MockFetcher{}, &countingSink{})
	require.NoError(t, s.RegisterAll("@every 60s", "0 */5 * * * *"))
	assert.Len(t, s.Cron.Entries(), 2)

	assert.Error(t, s.RegisterAll("bogus", "@every 5m"))
}

func TestRunAllNow(t *testing.T) {
	t.Parallel()

	sink := &countingSink{}
	s := newTestScheduler(&collector.MockFetcher{Price: 100}, sink, "main")
	s.Start()
	s.RunAllNow()
	s.Stop()

	assert.Equal(t, 1, sink.snapshots)
	assert.Len(t, sink.charts, 1)
}
