package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CryptoBoard/internal/collector"
	"CryptoBoard/internal/model"
)

type botCall struct {
	Method  string
	Payload map[string]any
}

// fakeBot is a minimal Bot API. failures[method] makes that many calls fail.
type fakeBot struct {
	mu       sync.Mutex
	calls    []botCall
	nextID   int
	failures map[string]int
	failDesc string
	updates  string
}

func (b *fakeBot) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		method := strings.TrimPrefix(r.URL.Path, "/botTOKEN/")
		b.mu.Lock()
		defer b.mu.Unlock()

		if method == "getUpdates" {
			updates := b.updates
			b.updates = `[]`
			fmt.Fprintf(w, `{"ok":true,"result":%s}`, updates)
			return
		}

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		b.calls = append(b.calls, botCall{Method: method, Payload: payload})

		if b.failures[method] > 0 {
			b.failures[method]--
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, `{"ok":false,"description":%q}`, b.failDesc)
			return
		}
		switch method {
		case "sendMessage":
			b.nextID++
			fmt.Fprintf(w, `{"ok":true,"result":{"message_id":%d}}`, b.nextID)
		default:
			fmt.Fprint(w, `{"ok":true,"result":true}`)
		}
	}
}

func (b *fakeBot) methods() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, c := range b.calls {
		out = append(out, c.Method)
	}
	return out
}

func newTestNotifier(t *testing.T, bot *fakeBot) *TelegramNotifier {
	t.Helper()
	server := httptest.NewServer(bot.handler(t))
	t.Cleanup(server.Close)

	tg := NewTelegramNotifier("TOKEN", "42", "")
	tg.APIBase = server.URL
	tg.Client = server.Client()
	tg.MaxRetries = 2
	tg.backoff = func(int) time.Duration { return 0 }
	return tg
}

func testChart() *model.ChartData {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &model.ChartData{
		Series: &model.SeriesResult{
			Symbol: "BTC",
			Window: model.Days(2),
			Prices: []model.PricePoint{{Time: base, Price: 100}, {Time: base.Add(time.Hour), Price: 104}},
		},
		Indicators: model.ChartIndicators{LastPrice: 104, ChangePct: 4, High: 104, Low: 100},
		Signal: model.Signal{
			Label:   model.SignalBuy,
			Score:   1.5,
			Factors: []model.FactorScore{{Name: "trend", Score: 1, Commentary: "price <above> MAs"}},
		},
	}
}

func TestSend(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{}
	tg := newTestNotifier(t, bot)

	id, err := tg.Send(context.Background(), "<b>hi</b>")
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	require.Len(t, bot.calls, 1)
	assert.Equal(t, "42", bot.calls[0].Payload["chat_id"])
	assert.Equal(t, "HTML", bot.calls[0].Payload["parse_mode"])
	assert.Equal(t, "<b>hi</b>", bot.calls[0].Payload["text"])
}

func TestSendWithRetry(t *testing.T) {
	t.Parallel()

	t.Run("recovers", func(t *testing.T) {
		t.Parallel()
		bot := &fakeBot{failures: map[string]int{"sendMessage": 2}, failDesc: "flood"}
		tg := newTestNotifier(t, bot)

		id, err := tg.SendWithRetry(context.Background(), "x", 2)
		require.NoError(t, err)
		assert.Equal(t, 1, id)
		assert.Len(t, bot.methods(), 3)
	})

	t.Run("exhausted", func(t *testing.T) {
		t.Parallel()
		bot := &fakeBot{failures: map[string]int{"sendMessage": 5}, failDesc: "chat not found"}
		tg := newTestNotifier(t, bot)

		_, err := tg.SendWithRetry(context.Background(), "x", 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "all 2 retries exhausted")
		assert.Contains(t, err.Error(), "chat not found")
		var apiErr *apiError
		assert.True(t, errors.As(err, &apiErr))
	})
}

func TestSink_ChartHandleDeletesMessage(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{}
	sink := NewSink(newTestNotifier(t, bot))
	ctx := context.Background()

	h, err := sink.DrawChart(ctx, "main", testChart())
	require.NoError(t, err)
	require.NoError(t, h.Destroy(ctx))

	assert.Equal(t, []string{"sendMessage", "deleteMessage"}, bot.methods())
	text := bot.calls[0].Payload["text"].(string)
	assert.Contains(t, text, "<b>BTC</b> 2d | main")
	assert.Contains(t, text, "Signal: BUY")
	assert.Contains(t, text, "price &lt;above&gt; MAs")
	assert.Equal(t, float64(1), bot.calls[1].Payload["message_id"])
}

func TestSink_MarketEditedInPlace(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{}
	sink := NewSink(newTestNotifier(t, bot))
	ctx := context.Background()
	one := 1
	snap := &model.MarketSnapshot{
		Assets:         []model.AssetSummary{{Symbol: "BTC", Rank: &one, PriceUSD: 64000, MarketCap: 1.2e12}},
		TotalMarketCap: 1.2e12,
		ActiveCount:    1,
	}

	require.NoError(t, sink.DrawSnapshot(ctx, snap))
	require.NoError(t, sink.DrawSnapshot(ctx, snap))
	assert.Equal(t, []string{"sendMessage", "editMessageText"}, bot.methods())
	assert.Equal(t, float64(1), bot.calls[1].Payload["message_id"])
	assert.Contains(t, bot.calls[0].Payload["text"], "$64,000")

	// a lost message falls back to sending a new one
	bot.mu.Lock()
	bot.failures = map[string]int{"editMessageText": 1}
	bot.failDesc = "message to edit not found"
	bot.mu.Unlock()
	require.NoError(t, sink.DrawSnapshot(ctx, snap))
	assert.Equal(t, []string{"sendMessage", "editMessageText", "editMessageText", "sendMessage"}, bot.methods())
}

func TestEdit_NotModifiedIsSuccess(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{failures: map[string]int{"editMessageText": 1}, failDesc: "Bad Request: message is not modified"}
	tg := newTestNotifier(t, bot)
	assert.NoError(t, tg.Edit(context.Background(), 7, "same"))
}

func TestSink_ShowError(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{}
	sink := NewSink(newTestNotifier(t, bot))
	err := sink.ShowError(context.Background(), "main", &collector.FetchError{Kind: collector.KindEmpty})
	require.NoError(t, err)
	assert.Contains(t, bot.calls[0].Payload["text"], "⚠️ <b>main</b>: no data available")
}

func TestStartPolling(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{updates: `[
		{"update_id": 10, "message": {"text": "/help", "chat": {"id": 42}}},
		{"update_id": 11, "message": {"text": "/market", "chat": {"id": 7}}},
		{"update_id": 12}
	]`}
	tg := newTestNotifier(t, bot)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})
	go func() {
		tg.StartPolling(ctx, func(_ context.Context, cmd string) string {
			mu.Lock()
			got = append(got, cmd)
			mu.Unlock()
			return "reply to " + cmd
		})
		close(done)
	}()

	require.Eventually(t, func() bool {
		for _, m := range bot.methods() {
			if m == "sendMessage" {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/help"}, got)
	bot.mu.Lock()
	defer bot.mu.Unlock()
	assert.Equal(t, "reply to /help", bot.calls[0].Payload["text"])
}

func TestStartPolling_SlowCommandDoesNotBlockNext(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{updates: `[
		{"update_id": 1, "message": {"text": "/chart BTC", "chat": {"id": 42}}},
		{"update_id": 2, "message": {"text": "/chart ETH", "chat": {"id": 42}}}
	]`}
	tg := newTestNotifier(t, bot)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	secondDone := make(chan struct{})
	done := make(chan struct{})
	go func() {
		tg.StartPolling(ctx, func(ctx context.Context, cmd string) string {
			if cmd == "/chart ETH" {
				close(secondDone)
				return "ETH drawn"
			}
			// the first command only finishes once the second has run
			select {
			case <-secondDone:
				return "BTC superseded"
			case <-ctx.Done():
				return ""
			}
		})
		close(done)
	}()

	require.Eventually(t, func() bool { return len(bot.methods()) == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	bot.mu.Lock()
	defer bot.mu.Unlock()
	var texts []string
	for _, c := range bot.calls {
		texts = append(texts, c.Payload["text"].(string))
	}
	assert.Equal(t, []string{"ETH drawn", "BTC superseded"}, texts)
}

func TestFormatHelp(t *testing.T) {
	t.Parallel()
	assert.Contains(t, FormatHelp(), "/chart SYMBOL [WINDOW]")
}
