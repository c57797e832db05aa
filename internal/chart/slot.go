package chart

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"CryptoBoard/internal/calculator"
	"CryptoBoard/internal/collector"
	"CryptoBoard/internal/metrics"
	"CryptoBoard/internal/model"
	"CryptoBoard/internal/render"
)

// ErrStale is returned by Load when a newer load was issued for the slot
// before this one finished. Its result is discarded.
var ErrStale = errors.New("superseded by a newer load")

// Options configures the indicators computed for a slot.
type Options struct {
	MAPeriods []int
	RSIPeriod int
}

// Slot is one chart position on the board. It owns at most one live
// render handle; a new chart replaces the previous one.
type Slot struct {
	name    string
	fetcher collector.SeriesFetcher
	sink    render.Sink
	opts    Options

	// seq is bumped by every Load; only the newest load may draw.
	seq      atomic.Uint64
	inflight atomic.Int32

	mu      sync.Mutex
	handle  render.Handle
	current *model.ChartData
	// symbol and window are the latest request, which Refresh repeats.
	symbol string
	window model.Window
}

// NewSlot creates a slot that shows symbol over window until told otherwise.
func NewSlot(name string, fetcher collector.SeriesFetcher, sink render.Sink, symbol string, window model.Window, opts Options) *Slot {
	if opts.MAPeriods == nil {
		opts.MAPeriods = calculator.DefaultMAPeriods
	}
	if opts.RSIPeriod <= 0 {
		opts.RSIPeriod = calculator.DefaultRSIPeriod
	}
	if window.IsZero() {
		window = model.Days(model.DefaultWindowDays)
	}
	return &Slot{
		name:    name,
		fetcher: fetcher,
		sink:    sink,
		opts:    opts,
		symbol:  strings.ToUpper(symbol),
		window:  window,
	}
}

func (s *Slot) Name() string { return s.name }

// Load fetches symbol over window and draws it into the slot.
//
// Fetch errors are shown through the sink and returned; the previous chart
// stays on screen. If a newer Load was issued meanwhile, ErrStale is
// returned and nothing is drawn. A render failure is returned together
// with the chart, which is still the slot's current data.
func (s *Slot) Load(ctx context.Context, symbol string, window model.Window) (*model.ChartData, error) {
	s.inflight.Add(1)
	defer s.inflight.Add(-1)

	s.mu.Lock()
	seq := s.seq.Add(1)
	s.symbol, s.window = strings.ToUpper(strings.TrimSpace(symbol)), window
	s.mu.Unlock()

	res, err := s.fetcher.FetchSeries(ctx, symbol, window)
	if err != nil {
		if s.superseded(seq) {
			return nil, ErrStale
		}
		s.restoreRequest()
		log.Printf("[ERROR] chart %s: fetch %s %s: %v", s.name, symbol, window, err)
		if showErr := s.sink.ShowError(ctx, s.name, err); showErr != nil {
			log.Printf("[WARN] chart %s: show error: %v", s.name, showErr)
		}
		return nil, fmt.Errorf("load %s: %w", symbol, err)
	}

	chart, err := Build(res, s.opts.MAPeriods, s.opts.RSIPeriod)
	if err != nil {
		return nil, fmt.Errorf("build %s chart: %w", res.Symbol, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.superseded(seq) {
		metrics.StaleDiscards.WithLabelValues(s.name).Inc()
		log.Printf("[INFO] chart %s: discarding stale %s %s", s.name, res.Symbol, res.Window)
		return nil, ErrStale
	}

	if s.handle != nil {
		if err := s.handle.Destroy(ctx); err != nil {
			log.Printf("[WARN] chart %s: destroy previous chart: %v", s.name, err)
		}
		s.handle = nil
	}
	s.current = chart

	h, err := s.sink.DrawChart(ctx, s.name, chart)
	if h != nil {
		s.handle = h
	}
	if err != nil {
		log.Printf("[ERROR] chart %s: draw %s: %v", s.name, res.Symbol, err)
		return chart, fmt.Errorf("draw %s: %w", res.Symbol, err)
	}
	return chart, nil
}

// Refresh reloads the slot's latest request. It does nothing while a load
// is in flight, since that load will draw newer data anyway.
func (s *Slot) Refresh(ctx context.Context) (*model.ChartData, error) {
	if s.inflight.Load() > 0 {
		return s.Current(), nil
	}
	s.mu.Lock()
	symbol, window := s.symbol, s.window
	s.mu.Unlock()
	return s.Load(ctx, symbol, window)
}

// restoreRequest points the slot back at the chart on display after a
// failed fetch, so refreshes do not keep retrying a bad request.
func (s *Slot) restoreRequest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.symbol, s.window = s.current.Series.Symbol, s.current.Series.Window
	}
}

// Current returns the chart on display, or nil.
func (s *Slot) Current() *model.ChartData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Close destroys the live chart. Loads still in flight are discarded.
func (s *Slot) Close(ctx context.Context) error {
	s.seq.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return nil
	}
	err := s.handle.Destroy(ctx)
	s.handle = nil
	s.current = nil
	return err
}

func (s *Slot) superseded(seq uint64) bool { return s.seq.Load() != seq }
