package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"CryptoBoard/internal/model"
)

// SlotConfig describes one chart position on the board.
type SlotConfig struct {
	Name   string `yaml:"name"`
	Symbol string `yaml:"symbol"`
	Window string `yaml:"window"` // day count ("30") or timeframe token ("1y")
}

// ParsedWindow returns the slot's window.
func (s SlotConfig) ParsedWindow() (model.Window, error) {
	return model.ParseWindow(s.Window)
}

// Config holds all application configuration.
type Config struct {
	API struct {
		BaseURL           string        `yaml:"base_url"`
		APIKey            string        `yaml:"api_key"`
		Timeout           time.Duration `yaml:"timeout"`
		MaxAttempts       int           `yaml:"max_attempts"`
		DefaultRetryAfter time.Duration `yaml:"default_retry_after"`
	} `yaml:"api"`
	Charts struct {
		Slots     []SlotConfig `yaml:"slots"`
		MAPeriods []int        `yaml:"ma_periods"`
		RSIPeriod int          `yaml:"rsi_period"`
	} `yaml:"charts"`
	Schedule struct {
		MarketCron string `yaml:"market_cron"`
		ChartCron  string `yaml:"chart_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Console struct {
		Disabled bool `yaml:"disabled"`
	} `yaml:"console"`
	Proxy string `yaml:"proxy"`
}

// LoadDotEnv loads environment variables from a .env file if it exists.
// Variables already set in the environment win.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("CRYPTOBOARD_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("CRYPTOBOARD_API_KEY"); v != "" {
		cfg.API.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("CRON_MARKET"); v != "" {
		cfg.Schedule.MarketCron = v
	}

	// Defaults
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 30 * time.Second
	}
	if cfg.API.MaxAttempts == 0 {
		cfg.API.MaxAttempts = 3
	}
	if cfg.API.DefaultRetryAfter == 0 {
		cfg.API.DefaultRetryAfter = 30 * time.Second
	}
	if len(cfg.Charts.Slots) == 0 {
		cfg.Charts.Slots = []SlotConfig{{Name: "main", Symbol: "BTC", Window: "30"}}
	}
	if len(cfg.Charts.MAPeriods) == 0 {
		cfg.Charts.MAPeriods = []int{7, 20, 50, 200}
	}
	if cfg.Charts.RSIPeriod == 0 {
		cfg.Charts.RSIPeriod = 14
	}
	if cfg.Schedule.MarketCron == "" {
		cfg.Schedule.MarketCron = "@every 60s"
	}
	if cfg.Schedule.ChartCron == "" {
		cfg.Schedule.ChartCron = "@every 5m"
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "cryptoboard"
	}

	return cfg, nil
}

// cronParser matches the scheduler's cron.WithSeconds parser.
var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
		}
	}
	if c.API.MaxAttempts < 1 {
		return fmt.Errorf("api.max_attempts must be at least 1")
	}
	if c.API.Timeout < 0 || c.API.DefaultRetryAfter < 0 {
		return fmt.Errorf("api durations must not be negative")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}

	seen := make(map[string]bool, len(c.Charts.Slots))
	for i, s := range c.Charts.Slots {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("charts.slots[%d].name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("charts.slots: duplicate name %q", s.Name)
		}
		seen[s.Name] = true
		if strings.TrimSpace(s.Symbol) == "" {
			return fmt.Errorf("charts.slots[%d].symbol is required", i)
		}
		if _, err := s.ParsedWindow(); err != nil {
			return fmt.Errorf("charts.slots[%d].window: %w", i, err)
		}
	}
	for _, p := range c.Charts.MAPeriods {
		if p <= 0 {
			return fmt.Errorf("charts.ma_periods must be positive, got %d", p)
		}
	}
	if c.Charts.RSIPeriod < 1 {
		return fmt.Errorf("charts.rsi_period must be positive")
	}

	if _, err := cronParser.Parse(c.Schedule.MarketCron); err != nil {
		return fmt.Errorf("schedule.market_cron: %w", err)
	}
	if _, err := cronParser.Parse(c.Schedule.ChartCron); err != nil {
		return fmt.Errorf("schedule.chart_cron: %w", err)
	}
	return nil
}
