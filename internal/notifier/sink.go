package notifier

import (
	"context"
	"fmt"
	"log"
	"sync"

	"CryptoBoard/internal/model"
	"CryptoBoard/internal/render"
)

// Sink draws the board into a Telegram chat. Each chart is one message,
// deleted when its slot draws a new one. The market table is a single
// message edited in place.
type Sink struct {
	tg *TelegramNotifier

	mu       sync.Mutex
	marketID int
}

func NewSink(tg *TelegramNotifier) *Sink { return &Sink{tg: tg} }

func (s *Sink) Name() string { return "telegram" }

func (s *Sink) DrawChart(ctx context.Context, slot string, chart *model.ChartData) (render.Handle, error) {
	id, err := s.tg.SendWithRetry(ctx, FormatChart(slot, chart), s.tg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("send chart: %w", err)
	}
	return &messageHandle{tg: s.tg, id: id}, nil
}

func (s *Sink) DrawSnapshot(ctx context.Context, snap *model.MarketSnapshot) error {
	text := FormatMarket(snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.marketID != 0 {
		err := s.tg.Edit(ctx, s.marketID, text)
		if err == nil {
			return nil
		}
		log.Printf("[WARN] edit market message %d: %v, sending a new one", s.marketID, err)
	}
	id, err := s.tg.SendWithRetry(ctx, text, s.tg.MaxRetries)
	if err != nil {
		return fmt.Errorf("send market: %w", err)
	}
	s.marketID = id
	return nil
}

func (s *Sink) ShowError(ctx context.Context, target string, cause error) error {
	if _, err := s.tg.Send(ctx, FormatError(target, cause)); err != nil {
		return fmt.Errorf("send error: %w", err)
	}
	return nil
}

type messageHandle struct {
	tg *TelegramNotifier
	id int
}

func (h *messageHandle) Destroy(ctx context.Context) error {
	if err := h.tg.Delete(ctx, h.id); err != nil {
		return fmt.Errorf("delete message %d: %w", h.id, err)
	}
	return nil
}
