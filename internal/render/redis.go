package render

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"CryptoBoard/internal/collector"
	"CryptoBoard/internal/model"
)

const DefaultRedisPrefix = "cryptoboard"

// Redis publishes charts and snapshots for browser dashboards subscribed
// over pub/sub. The latest chart of each slot is also kept under its key
// until the slot replaces it.
type Redis struct {
	rdb    redis.Cmdable
	prefix string
}

func NewRedis(rdb redis.Cmdable, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) chartKey(slot string) string { return r.prefix + ":chart:" + slot }

func (r *Redis) DrawChart(ctx context.Context, slot string, chart *model.ChartData) (Handle, error) {
	payload, err := chartPayloadFor(slot, chart)
	if err != nil {
		return nil, err
	}
	key := r.chartKey(slot)
	if err := r.rdb.Set(ctx, key, payload, 0).Err(); err != nil {
		return nil, fmt.Errorf("set %s: %w", key, err)
	}
	if err := r.rdb.Publish(ctx, key, payload).Err(); err != nil {
		return nil, fmt.Errorf("publish %s: %w", key, err)
	}
	return &redisHandle{rdb: r.rdb, key: key}, nil
}

func (r *Redis) DrawSnapshot(ctx context.Context, snap *model.MarketSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	channel := r.prefix + ":snapshot"
	if err := r.rdb.Publish(ctx, channel, string(b)).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

func (r *Redis) ShowError(ctx context.Context, target string, cause error) error {
	payload, err := errorPayloadFor(target, cause)
	if err != nil {
		return err
	}
	channel := r.prefix + ":errors"
	if err := r.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

type redisHandle struct {
	rdb redis.Cmdable
	key string
}

func (h *redisHandle) Destroy(ctx context.Context) error {
	if err := h.rdb.Del(ctx, h.key).Err(); err != nil {
		return fmt.Errorf("del %s: %w", h.key, err)
	}
	return nil
}

// chartPayload is the JSON pushed to dashboards. Points are
// [epoch ms, value] pairs; moving-average gaps are null.
type chartPayload struct {
	Slot      string        `json:"slot"`
	Symbol    string        `json:"symbol"`
	Window    string        `json:"window"`
	Prices    [][2]float64  `json:"prices"`
	Volumes   [][2]float64  `json:"volumes,omitempty"`
	Averages  []averageJSON `json:"moving_averages,omitempty"`
	Last      float64       `json:"last_price"`
	ChangePct float64       `json:"change_pct"`
	High      float64       `json:"high"`
	Low       float64       `json:"low"`
	RSI       *float64      `json:"rsi"`
	Signal    signalJSON    `json:"signal"`
	FetchedAt time.Time     `json:"fetched_at"`
}

type averageJSON struct {
	Period int        `json:"period"`
	Values []*float64 `json:"values"`
}

type signalJSON struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func chartPayloadFor(slot string, chart *model.ChartData) (string, error) {
	s := chart.Series
	ind := chart.Indicators
	p := chartPayload{
		Slot:      slot,
		Symbol:    s.Symbol,
		Window:    s.Window.String(),
		Prices:    make([][2]float64, len(s.Prices)),
		Last:      ind.LastPrice,
		ChangePct: ind.ChangePct,
		High:      ind.High,
		Low:       ind.Low,
		Signal:    signalJSON{Label: string(chart.Signal.Label), Score: chart.Signal.Score},
		FetchedAt: s.FetchedAt,
	}
	for i, pt := range s.Prices {
		p.Prices[i] = [2]float64{float64(pt.Time.UnixMilli()), pt.Price}
	}
	for _, v := range s.Volumes {
		p.Volumes = append(p.Volumes, [2]float64{float64(v.Time.UnixMilli()), v.Volume})
	}
	for _, a := range chart.Averages {
		vals := make([]*float64, len(a.Points))
		for i, pt := range a.Points {
			if pt.Valid {
				v := pt.Value
				vals[i] = &v
			}
		}
		p.Averages = append(p.Averages, averageJSON{Period: a.Period, Values: vals})
	}
	if ind.RSIValid {
		rsi := ind.RSI
		p.RSI = &rsi
	}

	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal chart: %w", err)
	}
	return string(b), nil
}

func errorPayloadFor(target string, cause error) (string, error) {
	kind := "error"
	if k := collector.KindOf(cause); k != 0 {
		kind = k.String()
	}
	b, err := json.Marshal(map[string]string{
		"target":  target,
		"kind":    kind,
		"message": ErrorText(cause),
	})
	if err != nil {
		return "", fmt.Errorf("marshal error: %w", err)
	}
	return string(b), nil
}
