package recorder

import "CryptoBoard/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured
// or fails to open.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSnapshot(_ *model.MarketSnapshot) error   { return nil }
func (n *NoopRecorder) RecordChart(_ string, _ *model.ChartData) error { return nil }
func (n *NoopRecorder) RecordError(_ string, _ error) error            { return nil }
func (n *NoopRecorder) Close() error                                   { return nil }
