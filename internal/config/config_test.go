package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CryptoBoard/internal/model"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 3, cfg.API.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.API.DefaultRetryAfter)
	assert.Equal(t, []SlotConfig{{Name: "main", Symbol: "BTC", Window: "30"}}, cfg.Charts.Slots)
	assert.Equal(t, []int{7, 20, 50, 200}, cfg.Charts.MAPeriods)
	assert.Equal(t, 14, cfg.Charts.RSIPeriod)
	assert.Equal(t, "@every 60s", cfg.Schedule.MarketCron)
	assert.Equal(t, "@every 5m", cfg.Schedule.ChartCron)
	assert.Equal(t, "cryptoboard", cfg.Redis.Prefix)
	assert.Empty(t, cfg.Database.SQLitePath)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
api:
  base_url: https://prices.example.com/api
  timeout: 10s
  default_retry_after: 45s
charts:
  slots:
    - name: main
      symbol: eth
      window: 1y
    - name: side
      symbol: SOL
      window: "7"
  ma_periods: [20, 50]
schedule:
  market_cron: "*/30 * * * * *"
redis:
  addr: localhost:6379
  db: 2
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://prices.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 45*time.Second, cfg.API.DefaultRetryAfter)
	require.Len(t, cfg.Charts.Slots, 2)
	w, err := cfg.Charts.Slots[0].ParsedWindow()
	require.NoError(t, err)
	assert.Equal(t, model.Timeframe("1y"), w)
	w, err = cfg.Charts.Slots[1].ParsedWindow()
	require.NoError(t, err)
	assert.Equal(t, model.Days(7), w)
	assert.Equal(t, []int{20, 50}, cfg.Charts.MAPeriods)
	assert.Equal(t, "*/30 * * * * *", cfg.Schedule.MarketCron)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", `
api:
  base_url: https://from-file.example.com
telegram:
  bot_token: file-token
  chat_id: "1"
`)
	t.Setenv("CRYPTOBOARD_BASE_URL", "https://from-env.example.com")
	t.Setenv("CRYPTOBOARD_API_KEY", "secret")
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("SQLITE_PATH", "/tmp/board.db")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("METRICS_ADDR", ":9100")
	t.Setenv("CRON_MARKET", "@every 2m")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://from-env.example.com", cfg.API.BaseURL)
	assert.Equal(t, "secret", cfg.API.APIKey)
	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	assert.Equal(t, "1", cfg.Telegram.ChatID)
	assert.Equal(t, "/tmp/board.db", cfg.Database.SQLitePath)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
	assert.Equal(t, "@every 2m", cfg.Schedule.MarketCron)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeFile(t, "config.yaml", "api: [unclosed"))
	assert.ErrorContains(t, err, "parse config")
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("CRYPTOBOARD_API_KEY", "")
	os.Unsetenv("CRYPTOBOARD_API_KEY")

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))

	path := writeFile(t, ".env", "CRYPTOBOARD_API_KEY=from-dotenv\n")
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-dotenv", os.Getenv("CRYPTOBOARD_API_KEY"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad base url", func(c *Config) { c.API.BaseURL = "ftp://x" }, "api.base_url"},
		{"zero attempts", func(c *Config) { c.API.MaxAttempts = -1 }, "max_attempts"},
		{"token without chat", func(c *Config) { c.Telegram.BotToken = "t" }, "must be set together"},
		{"duplicate slot", func(c *Config) {
			c.Charts.Slots = append(c.Charts.Slots, SlotConfig{Name: "main", Symbol: "ETH"})
		}, "duplicate name"},
		{"missing symbol", func(c *Config) { c.Charts.Slots[0].Symbol = " " }, "symbol is required"},
		{"bad window", func(c *Config) { c.Charts.Slots[0].Window = "-3" }, "window"},
		{"bad period", func(c *Config) { c.Charts.MAPeriods = []int{20, 0} }, "ma_periods"},
		{"bad cron", func(c *Config) { c.Schedule.ChartCron = "every day" }, "chart_cron"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
