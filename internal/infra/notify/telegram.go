package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/alert"
)

// TelegramSink pushes events to a Telegram chat via the bot API
type TelegramSink struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

// NewTelegramSink creates a Telegram sink. An empty baseURL selects the
// public bot API.
func NewTelegramSink(botToken, chatID, baseURL string) *TelegramSink {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &TelegramSink{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Name identifies the sink in delivery logs
func (s *TelegramSink) Name() string { return "telegram" }

// Deliver sends the event as a Markdown message with up to 3 attempts
// and linear backoff between them
func (s *TelegramSink) Deliver(ctx context.Context, ev alert.Event) error {
	if s.botToken == "" || s.chatID == "" {
		return fmt.Errorf("telegram sink not configured")
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)

	payload := map[string]interface{}{
		"chat_id":    s.chatID,
		"text":       formatMessage(ev),
		"parse_mode": "Markdown",
	}
	body, _ := json.Marshal(payload)

	var lastErr error
	for i := 0; i < 3; i++ {
		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
			if !sleepBackoff(ctx, i) {
				return ctx.Err()
			}
			continue
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode/100 == 2 {
			return nil
		}
		lastErr = fmt.Errorf("telegram status=%d", resp.StatusCode)
		if !sleepBackoff(ctx, i) {
			return ctx.Err()
		}
	}
	return lastErr
}

// sleepBackoff waits (attempt+1) seconds, honoring cancellation
func sleepBackoff(ctx context.Context, attempt int) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(time.Duration(attempt+1) * time.Second):
		return true
	}
}

// formatMessage renders one event as a compact Telegram message
func formatMessage(ev alert.Event) string {
	icon := "ℹ️"
	switch ev.Severity {
	case alert.SeverityWarning:
		icon = "⚠️"
	case alert.SeverityCritical:
		icon = "🚨"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s*", icon, ev.Type)
	if ev.Symbol != "" {
		fmt.Fprintf(&b, " `%s`", ev.Symbol)
	}
	fmt.Fprintf(&b, "\n%s", ev.Message)

	if len(ev.Details) > 0 {
		keys := make([]string, 0, len(ev.Details))
		for k := range ev.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n• %s: %s", k, ev.Details[k])
		}
	}
	return b.String()
}
