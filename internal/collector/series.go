package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"CryptoBoard/internal/metrics"
	"CryptoBoard/internal/model"
)

const endpointPriceHistory = "price_history"

// priceHistoryBody is the response of GET /price-history/{symbol}.
// Fields stay raw so shape problems can be told apart from bad points.
type priceHistoryBody struct {
	Prices       json.RawMessage `json:"prices"`
	TotalVolumes json.RawMessage `json:"total_volumes"`
	Volumes      json.RawMessage `json:"volumes"`
	SMA          json.RawMessage `json:"sma"`
	Error        json.RawMessage `json:"error"`
}

// FetchSeries fetches and validates price history for symbol over window.
func (c *Client) FetchSeries(ctx context.Context, symbol string, window model.Window) (*model.SeriesResult, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrInvalidSymbol
	}
	if window.IsZero() {
		window = model.Days(model.DefaultWindowDays)
	}

	path := "/price-history/" + url.PathEscape(symbol)
	body, err := c.get(ctx, endpointPriceHistory, path, window.Query())
	if err != nil {
		countFetch(endpointPriceHistory, err)
		return nil, err
	}

	res, err := decodeSeries(body)
	if err != nil {
		countFetch(endpointPriceHistory, err)
		return nil, err
	}
	res.Symbol = symbol
	res.Window = window
	res.FetchedAt = time.Now()
	countFetch(endpointPriceHistory, nil)
	return res, nil
}

func decodeSeries(body []byte) (*model.SeriesResult, error) {
	shapeErr := func(msg string) error {
		return &FetchError{Kind: KindInvalidShape, Endpoint: endpointPriceHistory, Msg: msg}
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, shapeErr("response is not a JSON object")
	}
	var raw priceHistoryBody
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, &FetchError{Kind: KindInvalidShape, Endpoint: endpointPriceHistory, Err: fmt.Errorf("decode: %w", err)}
	}
	if msg := rawMessageText(raw.Error); msg != "" {
		return nil, &FetchError{Kind: KindNetwork, Endpoint: endpointPriceHistory, Msg: msg}
	}

	priceItems, ok := rawArray(raw.Prices)
	if !ok {
		return nil, shapeErr(`"prices" is missing or not a list`)
	}

	volField := raw.TotalVolumes
	if isAbsent(volField) {
		volField = raw.Volumes
	}
	var volItems []json.RawMessage
	if !isAbsent(volField) {
		if volItems, ok = rawArray(volField); !ok {
			return nil, shapeErr(`"total_volumes" is not a list`)
		}
	}

	prices := make([]model.PricePoint, 0, len(priceItems))
	for _, item := range priceItems {
		if ts, v, ok := parsePair(item); ok {
			prices = append(prices, model.PricePoint{Time: ts, Price: v})
		}
	}
	if dropped := len(priceItems) - len(prices); dropped > 0 {
		log.Printf("[WARN] price history: dropped %d malformed price points", dropped)
	}
	prices = normalize(prices, func(p model.PricePoint) time.Time { return p.Time })
	if len(prices) == 0 {
		return nil, &FetchError{Kind: KindEmpty, Endpoint: endpointPriceHistory, Msg: "no valid price points"}
	}

	volumes := make([]model.VolumePoint, 0, len(volItems))
	for _, item := range volItems {
		if ts, v, ok := parsePair(item); ok {
			volumes = append(volumes, model.VolumePoint{Time: ts, Volume: v})
		}
	}
	volumes = normalize(volumes, func(p model.VolumePoint) time.Time { return p.Time })

	return &model.SeriesResult{
		Prices:  prices,
		Volumes: volumes,
		SMA:     decodeSMA(raw.SMA),
	}, nil
}

// decodeSMA reads an optional server-computed average. Bad entries are dropped;
// a null value marks a point whose window is not yet full.
func decodeSMA(field json.RawMessage) []model.MAPoint {
	items, ok := rawArray(field)
	if !ok {
		return nil
	}
	out := make([]model.MAPoint, 0, len(items))
	for _, item := range items {
		var entry struct {
			Timestamp json.RawMessage `json:"timestamp"`
			Value     json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(item, &entry); err != nil {
			continue
		}
		ts, ok := parseTimestamp(entry.Timestamp)
		if !ok {
			continue
		}
		v := bytes.TrimSpace(entry.Value)
		if len(v) == 0 || bytes.Equal(v, []byte("null")) {
			out = append(out, model.MAPoint{Time: ts})
			continue
		}
		f, ok := parseNumber(v)
		if !ok {
			continue
		}
		out = append(out, model.MAPoint{Time: ts, Value: f, Valid: true})
	}
	return normalize(out, func(p model.MAPoint) time.Time { return p.Time })
}

// isAbsent reports whether a field is missing or null.
func isAbsent(field json.RawMessage) bool {
	v := bytes.TrimSpace(field)
	return len(v) == 0 || bytes.Equal(v, []byte("null"))
}

func rawArray(field json.RawMessage) ([]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(field)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, false
	}
	return items, true
}

// parsePair reads a [timestamp, value] pair.
func parsePair(item json.RawMessage) (time.Time, float64, bool) {
	var pair []json.RawMessage
	if err := json.Unmarshal(item, &pair); err != nil || len(pair) != 2 {
		return time.Time{}, 0, false
	}
	ts, ok := parseTimestamp(pair[0])
	if !ok {
		return time.Time{}, 0, false
	}
	v, ok := parseNumber(pair[1])
	if !ok {
		return time.Time{}, 0, false
	}
	return ts, v, true
}

// parseTimestamp accepts epoch milliseconds (number or numeric string) or RFC 3339.
func parseTimestamp(raw json.RawMessage) (time.Time, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return time.Time{}, false
	}
	switch t := v.(type) {
	case float64:
		if !finite(t) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(t)).UTC(), true
	case string:
		s := strings.TrimSpace(t)
		if ms, err := strconv.ParseFloat(s, 64); err == nil {
			if !finite(ms) {
				return time.Time{}, false
			}
			return time.UnixMilli(int64(ms)).UTC(), true
		}
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseNumber accepts a finite JSON number or numeric string.
func parseNumber(raw json.RawMessage) (float64, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, finite(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, finite(f)
	default:
		return 0, false
	}
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// normalize sorts points ascending by time, keeping the first of any
// duplicate timestamps. Already-ordered input keeps its order.
func normalize[T any](points []T, at func(T) time.Time) []T {
	sort.SliceStable(points, func(i, j int) bool { return at(points[i]).Before(at(points[j])) })
	out := points[:0]
	for i, p := range points {
		if i > 0 && at(p).Equal(at(out[len(out)-1])) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func countFetch(endpoint string, err error) {
	result := "ok"
	if err != nil {
		if k := KindOf(err); k != 0 {
			result = k.String()
		} else {
			result = "error"
		}
	}
	metrics.FetchTotal.WithLabelValues(endpoint, result).Inc()
}
