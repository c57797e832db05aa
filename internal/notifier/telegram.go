package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultAPIBase = "https://api.telegram.org"

// TelegramNotifier talks to a single chat via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	APIBase  string
	Client   *http.Client
	// MaxRetries is the number of resends after a failed send.
	MaxRetries int

	backoff func(attempt int) time.Duration
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		BotToken:   botToken,
		ChatID:     chatID,
		APIBase:    DefaultAPIBase,
		MaxRetries: 3,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (t *TelegramNotifier) methodURL(method string) string {
	base := strings.TrimRight(t.APIBase, "/")
	if base == "" {
		base = DefaultAPIBase
	}
	return fmt.Sprintf("%s/bot%s/%s", base, t.BotToken, method)
}

// apiError is a Bot API call that returned ok=false.
type apiError struct {
	Method      string
	Status      int
	Description string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("telegram %s: status %d: %s", e.Method, e.Status, e.Description)
}

// call posts payload to a Bot API method and decodes the result into out.
func (t *TelegramNotifier) call(ctx context.Context, method string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}

	var envelope struct {
		OK          bool            `json:"ok"`
		Description string          `json:"description"`
		Result      json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil || resp.StatusCode != http.StatusOK || !envelope.OK {
		desc := envelope.Description
		if desc == "" {
			desc = strings.TrimSpace(string(respBody))
		}
		return &apiError{Method: method, Status: resp.StatusCode, Description: desc}
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

// Send sends an HTML message to the configured chat and returns its id.
func (t *TelegramNotifier) Send(ctx context.Context, text string) (int, error) {
	var msg struct {
		MessageID int `json:"message_id"`
	}
	err := t.call(ctx, "sendMessage", map[string]any{
		"chat_id":                  t.ChatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}, &msg)
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// Edit replaces the text of a message sent earlier.
func (t *TelegramNotifier) Edit(ctx context.Context, messageID int, text string) error {
	err := t.call(ctx, "editMessageText", map[string]any{
		"chat_id":    t.ChatID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": "HTML",
	}, nil)
	if isNotModified(err) {
		return nil
	}
	return err
}

// Delete removes a message sent earlier.
func (t *TelegramNotifier) Delete(ctx context.Context, messageID int) error {
	return t.call(ctx, "deleteMessage", map[string]any{
		"chat_id":    t.ChatID,
		"message_id": messageID,
	}, nil)
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) (int, error) {
	backoff := t.backoff
	if backoff == nil {
		backoff = func(i int) time.Duration { return time.Duration(1<<uint(i)) * time.Second }
	}
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		id, err := t.Send(ctx, text)
		if err == nil {
			return id, nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		wait := backoff(i)
		log.Printf("[WARN] Telegram send failed (attempt %d/%d): %v, retrying in %v", i+1, maxRetries+1, err, wait)
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(wait):
		}
	}
	return 0, fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}

func isNotModified(err error) bool {
	e, ok := err.(*apiError)
	return ok && strings.Contains(e.Description, "message is not modified")
}
