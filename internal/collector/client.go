package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"CryptoBoard/internal/metrics"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryAfter  = 30 * time.Second
	DefaultTimeout     = 30 * time.Second
	// MaxRetryAfter caps the wait advertised by a server.
	MaxRetryAfter = 10 * time.Minute
)

// Config holds settings for the price API client.
type Config struct {
	BaseURL           string
	APIKey            string
	Proxy             string
	Timeout           time.Duration
	MaxAttempts       int           // total attempts on HTTP 429, including the first
	DefaultRetryAfter time.Duration // wait used when Retry-After is absent or unparseable
}

// Client talks to the price API (or a proxy in front of it).
// It holds no mutable state and is safe for concurrent use.
type Client struct {
	BaseURL           string
	APIKey            string
	HTTP              *http.Client
	MaxAttempts       int
	DefaultRetryAfter time.Duration

	// Sleep waits between rate-limited attempts. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewClient creates a Client with optional proxy support.
func NewClient(cfg Config) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	if cfg.Proxy != "" {
		if u, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return newClient(cfg, &http.Client{Timeout: timeout, Transport: transport})
}

func newClient(cfg Config, hc *http.Client) *Client {
	c := &Client{
		BaseURL:           strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:            cfg.APIKey,
		HTTP:              hc,
		MaxAttempts:       cfg.MaxAttempts,
		DefaultRetryAfter: cfg.DefaultRetryAfter,
		Sleep:             sleepContext,
		now:               time.Now,
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.DefaultRetryAfter <= 0 {
		c.DefaultRetryAfter = DefaultRetryAfter
	}
	return c
}

func (c *Client) Name() string { return "price-api" }

// get issues a GET and returns the body of a 2xx response. HTTP 429 is
// retried after the advertised Retry-After, up to MaxAttempts in total.
func (c *Client) get(ctx context.Context, endpoint, path string, q url.Values) ([]byte, error) {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	start := time.Now()
	defer func() { metrics.FetchDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, &FetchError{Kind: KindNetwork, Endpoint: endpoint, Err: err}
		}
		req.Header.Set("Accept", "application/json")
		if c.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.APIKey)
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			return nil, &FetchError{Kind: KindNetwork, Endpoint: endpoint, Err: fmt.Errorf("%s fetch: %w", endpoint, err)}
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, &FetchError{Kind: KindNetwork, Endpoint: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("%s read body: %w", endpoint, err)}
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := c.retryAfter(resp.Header.Get("Retry-After"))
			if attempt >= c.MaxAttempts {
				return nil, &FetchError{
					Kind:     KindRateLimited,
					Endpoint: endpoint,
					Status:   resp.StatusCode,
					Msg:      fmt.Sprintf("still rate limited after %d attempts", attempt),
				}
			}
			metrics.RateLimitRetries.WithLabelValues(endpoint).Inc()
			log.Printf("[WARN] %s rate limited (attempt %d/%d), retrying in %v", endpoint, attempt, c.MaxAttempts, wait)
			if err := c.Sleep(ctx, wait); err != nil {
				return nil, &FetchError{Kind: KindNetwork, Endpoint: endpoint, Err: err}
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			msg := errorMessage(body)
			if msg == "" {
				msg = http.StatusText(resp.StatusCode)
			}
			return nil, &FetchError{Kind: KindNetwork, Endpoint: endpoint, Status: resp.StatusCode, Msg: msg}
		}
		return body, nil
	}
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func (c *Client) retryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return c.DefaultRetryAfter
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return c.DefaultRetryAfter
		}
		if secs > int(MaxRetryAfter/time.Second) {
			return MaxRetryAfter
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(c.now()); d > 0 {
			return min(d, MaxRetryAfter)
		}
		return 0
	}
	return c.DefaultRetryAfter
}

// errorMessage extracts a top-level "error" field from a JSON object body.
func errorMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ""
	}
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return ""
	}
	return rawMessageText(envelope.Error)
}

func rawMessageText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil && !b {
		return ""
	}
	return string(raw)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
