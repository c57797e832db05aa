package recorder

import (
	"context"

	"CryptoBoard/internal/model"
	"CryptoBoard/internal/render"
)

// Recorder appends board output to storage read by external dashboards.
// Nothing recorded is read back by CryptoBoard.
type Recorder interface {
	RecordSnapshot(snap *model.MarketSnapshot) error
	RecordChart(slot string, chart *model.ChartData) error
	RecordError(target string, err error) error
	Close() error
}

// Sink adapts a Recorder to a render sink. Recorded charts are history,
// so their handles release nothing.
type Sink struct {
	r Recorder
}

func NewSink(r Recorder) *Sink { return &Sink{r: r} }

func (s *Sink) Name() string { return "recorder" }

func (s *Sink) DrawChart(_ context.Context, slot string, chart *model.ChartData) (render.Handle, error) {
	if err := s.r.RecordChart(slot, chart); err != nil {
		return nil, err
	}
	return render.NopHandle{}, nil
}

func (s *Sink) DrawSnapshot(_ context.Context, snap *model.MarketSnapshot) error {
	return s.r.RecordSnapshot(snap)
}

func (s *Sink) ShowError(_ context.Context, target string, err error) error {
	return s.r.RecordError(target, err)
}
