package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Fetch outcomes per endpoint ("price_history", "crypto_prices") and result kind.
	FetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptoboard_fetch_total",
		Help: "Price API fetches by endpoint and result.",
	}, []string{"endpoint", "result"})

	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cryptoboard_fetch_duration_seconds",
		Help:    "Duration of price API fetches including retry waits.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	RateLimitRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptoboard_rate_limit_retries_total",
		Help: "Retries scheduled after an HTTP 429.",
	}, []string{"endpoint"})

	StaleDiscards = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptoboard_chart_stale_discards_total",
		Help: "Chart loads discarded because a newer load was issued for the slot.",
	}, []string{"slot"})

	SkippedRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cryptoboard_market_refresh_skipped_total",
		Help: "Market refreshes skipped because one was already in flight.",
	})

	RenderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptoboard_render_errors_total",
		Help: "Render sink failures by sink.",
	}, []string{"sink"})
)

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] metrics server shutdown: %v", err)
		}
	}()

	log.Printf("[INFO] metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
