package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// WebhookChannel posts notifications as JSON to an HTTP endpoint.
type WebhookChannel struct {
	url     string
	enabled bool
	client  *http.Client
}

// NewWebhookChannel creates a webhook channel. An empty URL disables
// it.
func NewWebhookChannel(url string, enabled bool) *WebhookChannel {
	return &WebhookChannel{
		url:     url,
		enabled: enabled && url != "",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (w *WebhookChannel) Name() string {
	return "webhook"
}

func (w *WebhookChannel) IsEnabled() bool {
	return w.enabled
}

func (w *WebhookChannel) Send(ctx context.Context, n Notification) error {
	if !w.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"type":      n.Type,
		"title":     n.Title,
		"message":   n.Message,
		"data":      n.Data,
		"timestamp": n.Timestamp.Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "MarketScanner/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// TelegramChannel sends notifications through a Telegram bot.
type TelegramChannel struct {
	botToken string
	chatID   string
	enabled  bool
	client   *http.Client
}

// NewTelegramChannel creates a Telegram channel. Missing credentials
// disable it.
func NewTelegramChannel(botToken, chatID string, enabled bool) *TelegramChannel {
	return &TelegramChannel{
		botToken: botToken,
		chatID:   chatID,
		enabled:  enabled && botToken != "" && chatID != "",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (t *TelegramChannel) Name() string {
	return "telegram"
}

func (t *TelegramChannel) IsEnabled() bool {
	return t.enabled
}

func (t *TelegramChannel) Send(ctx context.Context, n Notification) error {
	if !t.enabled {
		return nil
	}

	text := fmt.Sprintf("<b>%s</b>\n\n%s", escapeHTML(n.Title), escapeHTML(n.Message))
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)

	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "HTML",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling telegram payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}

// escapeHTML escapes HTML special characters for Telegram parse mode.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// LogChannel writes notifications to the structured log. Always
// enabled; it is the default channel when no external transport is
// configured.
type LogChannel struct {
	logger zerolog.Logger
}

// NewLogChannel creates a log-backed channel.
func NewLogChannel(logger zerolog.Logger) *LogChannel {
	return &LogChannel{logger: logger.With().Str("component", "notify").Logger()}
}

func (l *LogChannel) Name() string {
	return "log"
}

func (l *LogChannel) IsEnabled() bool {
	return true
}

func (l *LogChannel) Send(_ context.Context, n Notification) error {
	l.logger.Info().
		Str("type", string(n.Type)).
		Str("title", n.Title).
		Interface("data", n.Data).
		Msg(n.Message)
	return nil
}
