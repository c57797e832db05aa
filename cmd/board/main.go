package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"CryptoBoard/internal/chart"
	"CryptoBoard/internal/collector"
	"CryptoBoard/internal/config"
	"CryptoBoard/internal/metrics"
	"CryptoBoard/internal/notifier"
	"CryptoBoard/internal/recorder"
	"CryptoBoard/internal/render"
	"CryptoBoard/internal/scheduler"
)

// fetcher serves both price history and the market table.
type fetcher interface {
	collector.SeriesFetcher
	collector.SnapshotFetcher
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] CryptoBoard starting...")

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("[WARN] %v", err)
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init fetcher
	var src fetcher
	if cfg.API.BaseURL != "" {
		src = collector.NewClient(collector.Config{
			BaseURL:           cfg.API.BaseURL,
			APIKey:            cfg.API.APIKey,
			Proxy:             cfg.Proxy,
			Timeout:           cfg.API.Timeout,
			MaxAttempts:       cfg.API.MaxAttempts,
			DefaultRetryAfter: cfg.API.DefaultRetryAfter,
		})
	} else {
		log.Println("[WARN] api.base_url not set, using synthetic data")
		src = &collector.MockFetcher{Price: 60000}
	}
	log.Printf("[INFO] data source: %s", src.Name())

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init render sinks
	var sinks []render.Sink
	if !cfg.Console.Disabled {
		sinks = append(sinks, render.NewText(os.Stdout))
	}

	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sinks = append(sinks, notifier.NewSink(tn))
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()
	sinks = append(sinks, recorder.NewSink(rec))

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			log.Printf("[WARN] redis %s unreachable, skipping: %v", cfg.Redis.Addr, err)
			rdb.Close()
		} else {
			defer rdb.Close()
			sinks = append(sinks, render.NewRedis(rdb, cfg.Redis.Prefix))
			log.Printf("[INFO] publishing to redis %s (prefix %s)", cfg.Redis.Addr, cfg.Redis.Prefix)
		}
	}

	board := render.NewMulti(sinks...)
	log.Printf("[INFO] %d render sinks", board.Len())

	// Init chart slots
	opts := chart.Options{MAPeriods: cfg.Charts.MAPeriods, RSIPeriod: cfg.Charts.RSIPeriod}
	var slots []*chart.Slot
	for _, sc := range cfg.Charts.Slots {
		w, _ := sc.ParsedWindow()
		slots = append(slots, chart.NewSlot(sc.Name, src, board, sc.Symbol, w, opts))
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		for _, slot := range slots {
			if err := slot.Close(closeCtx); err != nil {
				log.Printf("[WARN] close chart %s: %v", slot.Name(), err)
			}
		}
	}()

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				log.Printf("[ERROR] metrics server: %v", err)
			}
		}()
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, src, slots, board)
	if err := sched.RegisterAll(cfg.Schedule.MarketCron, cfg.Schedule.ChartCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	if os.Getenv("RUN_ON_START") != "false" {
		go sched.RunAllNow()
	}

	log.Println("[INFO] CryptoBoard is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
}
