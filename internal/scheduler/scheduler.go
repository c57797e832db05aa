package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"CryptoBoard/internal/chart"
	"CryptoBoard/internal/collector"
	"CryptoBoard/internal/metrics"
	"CryptoBoard/internal/model"
	"CryptoBoard/internal/notifier"
	"CryptoBoard/internal/render"
)

// ErrRefreshInFlight is returned when a market refresh is requested while
// another one is still running.
var ErrRefreshInFlight = errors.New("market refresh already in flight")

// Scheduler drives periodic market and chart refreshes and handles commands.
type Scheduler struct {
	Cron   *cron.Cron
	Market collector.SnapshotFetcher
	Slots  []*chart.Slot
	Sink   render.Sink
	Ctx    context.Context

	marketBusy atomic.Bool
	lastMarket atomic.Pointer[model.MarketSnapshot]
}

// NewScheduler creates a new Scheduler. Cron jobs recover from panics and
// are skipped while their previous run is still going.
func NewScheduler(ctx context.Context, market collector.SnapshotFetcher, slots []*chart.Slot, sink render.Sink) *Scheduler {
	logger := cron.PrintfLogger(log.Default())
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		Market: market,
		Slots:  slots,
		Sink:   sink,
		Ctx:    ctx,
	}
}

// RegisterAll registers the market and chart refresh tasks.
func (s *Scheduler) RegisterAll(marketCron, chartCron string) error {
	if _, err := s.Cron.AddFunc(marketCron, s.marketTask); err != nil {
		return fmt.Errorf("register market task: %w", err)
	}
	if _, err := s.Cron.AddFunc(chartCron, s.chartTask); err != nil {
		return fmt.Errorf("register chart task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunAllNow refreshes the market table and every chart once (RUN_ON_START).
func (s *Scheduler) RunAllNow() {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); s.marketTask() }()
	go func() { defer wg.Done(); s.chartTask() }()
	wg.Wait()
}

func (s *Scheduler) marketTask() {
	if _, err := s.RefreshMarket(s.Ctx); err != nil && !errors.Is(err, ErrRefreshInFlight) {
		log.Printf("[ERROR] market refresh: %v", err)
	}
}

func (s *Scheduler) chartTask() {
	s.RefreshCharts(s.Ctx)
}

// RefreshMarket fetches the market snapshot and draws it. Only one refresh
// runs at a time; a concurrent request gets ErrRefreshInFlight.
func (s *Scheduler) RefreshMarket(ctx context.Context) (*model.MarketSnapshot, error) {
	if !s.marketBusy.CompareAndSwap(false, true) {
		metrics.SkippedRefreshes.Inc()
		log.Println("[INFO] market refresh skipped, previous one still running")
		return nil, ErrRefreshInFlight
	}
	defer s.marketBusy.Store(false)

	cycle := newCycleID()
	log.Printf("[INFO] market refresh %s: fetching from %s", cycle, s.Market.Name())
	snap, err := s.Market.FetchSnapshot(ctx)
	if err != nil {
		if showErr := s.Sink.ShowError(ctx, "market", err); showErr != nil {
			log.Printf("[WARN] market refresh %s: show error: %v", cycle, showErr)
		}
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	s.lastMarket.Store(snap)

	if err := s.Sink.DrawSnapshot(ctx, snap); err != nil {
		log.Printf("[ERROR] market refresh %s: draw: %v", cycle, err)
	}
	log.Printf("[INFO] market refresh %s: %d assets, BTC dominance %.1f%%", cycle, len(snap.Assets), snap.BTCDominancePct)
	return snap, nil
}

// LastMarket returns the most recent snapshot, or nil.
func (s *Scheduler) LastMarket() *model.MarketSnapshot { return s.lastMarket.Load() }

// RefreshCharts reloads every slot concurrently.
func (s *Scheduler) RefreshCharts(ctx context.Context) {
	cycle := newCycleID()
	log.Printf("[INFO] chart refresh %s: %d slots", cycle, len(s.Slots))

	var wg sync.WaitGroup
	for _, slot := range s.Slots {
		wg.Add(1)
		go func(slot *chart.Slot) {
			defer wg.Done()
			if _, err := slot.Refresh(ctx); err != nil && !errors.Is(err, chart.ErrStale) {
				log.Printf("[WARN] chart refresh %s: slot %s: %v", cycle, slot.Name(), err)
			}
		}(slot)
	}
	wg.Wait()
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	// "/chart@BoardBot" in group chats
	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	args := fields[1:]

	switch name {
	case "/market":
		snap, err := s.RefreshMarket(ctx)
		switch {
		case errors.Is(err, ErrRefreshInFlight):
			if last := s.LastMarket(); last != nil {
				return "⏳ Market refresh already running. Last update: " + marketSummary(last)
			}
			return "⏳ Market refresh already running."
		case err != nil:
			return "❌ " + render.ErrorText(err)
		}
		return "✅ Market updated: " + marketSummary(snap)
	case "/chart":
		return s.handleChart(ctx, args)
	case "/help", "/start":
		return notifier.FormatHelp()
	default:
		return "Unknown command.\n\n" + notifier.FormatHelp()
	}
}

func (s *Scheduler) handleChart(ctx context.Context, args []string) string {
	if len(args) == 0 || len(args) > 2 {
		return "Usage: /chart SYMBOL [WINDOW]"
	}
	if len(s.Slots) == 0 {
		return "❌ No chart slots configured."
	}
	window := model.Days(model.DefaultWindowDays)
	if len(args) == 2 {
		w, err := model.ParseWindow(args[1])
		if err != nil {
			return "❌ " + err.Error()
		}
		window = w
	}

	slot := s.Slots[0]
	_, err := slot.Load(ctx, args[0], window)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, chart.ErrStale):
		return "⏭ Superseded by a newer /chart request."
	case errors.Is(err, collector.ErrInvalidSymbol):
		return "Usage: /chart SYMBOL [WINDOW]"
	case collector.KindOf(err) != 0:
		// the slot already showed it through the sinks
		return ""
	default:
		// drawn, but a sink failed
		return "⚠️ Chart updated with errors: " + err.Error()
	}
}

func marketSummary(snap *model.MarketSnapshot) string {
	return fmt.Sprintf("cap %s, BTC dominance %.1f%%, %d active",
		render.Abbrev(snap.TotalMarketCap), snap.BTCDominancePct, snap.ActiveCount)
}

func newCycleID() string { return uuid.NewString()[:8] }
