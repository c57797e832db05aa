package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"math"
	"strings"
	"time"

	"CryptoBoard/internal/calculator"
	"CryptoBoard/internal/model"
)

const endpointCryptoPrices = "crypto_prices"

// assetRow is one element of GET /crypto-prices. Numeric fields tolerate
// strings, nulls and junk, which all decode to zero.
type assetRow struct {
	Symbol           flexString `json:"symbol"`
	Rank             flexRank   `json:"rank"`
	PriceUSD         flexFloat  `json:"price_usd"`
	PercentChange24h flexFloat  `json:"percent_change_24h"`
	PercentChange7d  flexFloat  `json:"percent_change_7d"`
	MarketCap        flexFloat  `json:"market_cap"`
	Volume24h        flexFloat  `json:"volume_24h"`
}

// FetchSnapshot fetches the asset list and derives the market aggregates.
func (c *Client) FetchSnapshot(ctx context.Context) (*model.MarketSnapshot, error) {
	body, err := c.get(ctx, endpointCryptoPrices, "/crypto-prices", nil)
	if err != nil {
		countFetch(endpointCryptoPrices, err)
		return nil, err
	}
	assets, err := decodeAssets(body)
	if err != nil {
		countFetch(endpointCryptoPrices, err)
		return nil, err
	}
	snap := calculator.Aggregate(assets)
	snap.FetchedAt = time.Now()
	countFetch(endpointCryptoPrices, nil)
	return snap, nil
}

func decodeAssets(body []byte) ([]model.AssetSummary, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if msg := errorMessage(trimmed); msg != "" {
			return nil, &FetchError{Kind: KindNetwork, Endpoint: endpointCryptoPrices, Msg: msg}
		}
	}
	items, ok := rawArray(trimmed)
	if !ok {
		return nil, &FetchError{Kind: KindEmpty, Endpoint: endpointCryptoPrices, Msg: "asset list is not a list"}
	}

	assets := make([]model.AssetSummary, 0, len(items))
	for _, item := range items {
		if trimmed := bytes.TrimSpace(item); len(trimmed) == 0 || trimmed[0] != '{' {
			continue
		}
		var row assetRow
		if err := json.Unmarshal(item, &row); err != nil {
			continue
		}
		assets = append(assets, model.AssetSummary{
			Symbol:           strings.TrimSpace(string(row.Symbol)),
			Rank:             row.Rank.ptr(),
			PriceUSD:         float64(row.PriceUSD),
			PercentChange24h: float64(row.PercentChange24h),
			PercentChange7d:  float64(row.PercentChange7d),
			MarketCap:        float64(row.MarketCap),
			Volume24h:        float64(row.Volume24h),
		})
	}
	if skipped := len(items) - len(assets); skipped > 0 {
		log.Printf("[WARN] crypto prices: skipped %d non-object entries", skipped)
	}
	if len(assets) == 0 {
		return nil, &FetchError{Kind: KindEmpty, Endpoint: endpointCryptoPrices, Msg: "asset list is empty"}
	}
	return assets, nil
}

type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	*f = 0
	if v, ok := parseNumber(b); ok {
		*f = flexFloat(v)
	}
	return nil
}

type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	*s = ""
	var v string
	if err := json.Unmarshal(b, &v); err == nil {
		*s = flexString(v)
	}
	return nil
}

type flexRank struct {
	n  int
	ok bool
}

func (r *flexRank) UnmarshalJSON(b []byte) error {
	*r = flexRank{}
	v, ok := parseNumber(b)
	if !ok || v < 1 || v != math.Trunc(v) || v > math.MaxInt32 {
		return nil
	}
	r.n, r.ok = int(v), true
	return nil
}

func (r flexRank) ptr() *int {
	if !r.ok {
		return nil
	}
	n := r.n
	return &n
}
