package render

import (
	"context"
	"errors"
	"fmt"

	"CryptoBoard/internal/metrics"
	"CryptoBoard/internal/model"
)

// Multi fans out to several sinks. A failing sink does not stop the others;
// their errors are joined.
type Multi struct {
	sinks []Sink
}

// NewMulti creates a fan-out sink, skipping nil entries.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *Multi) Name() string { return "multi" }

// Len returns the number of sinks.
func (m *Multi) Len() int { return len(m.sinks) }

// DrawChart returns a handle covering every sink that drew successfully,
// even when others failed.
func (m *Multi) DrawChart(ctx context.Context, slot string, chart *model.ChartData) (Handle, error) {
	var handles multiHandle
	var errs []error
	for _, s := range m.sinks {
		h, err := s.DrawChart(ctx, slot, chart)
		if err != nil {
			errs = append(errs, sinkErr(s, err))
			continue
		}
		if h != nil {
			handles = append(handles, h)
		}
	}
	return handles, errors.Join(errs...)
}

func (m *Multi) DrawSnapshot(ctx context.Context, snap *model.MarketSnapshot) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.DrawSnapshot(ctx, snap); err != nil {
			errs = append(errs, sinkErr(s, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) ShowError(ctx context.Context, target string, cause error) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.ShowError(ctx, target, cause); err != nil {
			errs = append(errs, sinkErr(s, err))
		}
	}
	return errors.Join(errs...)
}

func sinkErr(s Sink, err error) error {
	metrics.RenderErrors.WithLabelValues(s.Name()).Inc()
	return fmt.Errorf("%s: %w", s.Name(), err)
}

type multiHandle []Handle

func (hs multiHandle) Destroy(ctx context.Context) error {
	var errs []error
	for _, h := range hs {
		if err := h.Destroy(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
