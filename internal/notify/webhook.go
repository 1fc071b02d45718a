// Package notify forwards wallet and transaction events to an external
// webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fathia/miniapp/internal/events"
	"go.uber.org/zap"
)

// Message is the body POSTed to the webhook.
type Message struct {
	Stream  string         `json:"stream"`
	Type    string         `json:"type"`
	Text    string         `json:"text"`
	Payload map[string]any `json:"payload,omitempty"`
}

type WebhookClient struct {
	url        string
	httpClient *http.Client
	log        *zap.Logger
}

func NewWebhookClient(url string, log *zap.Logger) *WebhookClient {
	return &WebhookClient{
		url: url,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

// Forward posts event to the webhook. Any non-2xx answer is an error.
func (c *WebhookClient) Forward(ctx context.Context, stream string, event events.Event) error {
	body, err := json.Marshal(Message{
		Stream:  stream,
		Type:    event.Type,
		Text:    Text(event),
		Payload: event.Payload,
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

// Text renders a one-line summary of event.
func Text(event events.Event) string {
	str := func(key string) string {
		s, _ := event.Payload[key].(string)
		return s
	}

	switch event.Type {
	case events.EventWalletNotification:
		if d := str("description"); d != "" {
			return fmt.Sprintf("%s: %s", str("title"), d)
		}
		return str("title")
	case events.EventTxStatusChanged:
		text := fmt.Sprintf("Transaction %s is %s", str("hash"), str("status"))
		if u := str("explorer_url"); u != "" {
			text += " (" + u + ")"
		}
		return text
	case events.EventSessionChanged:
		if addr := str("address"); addr != "" {
			return fmt.Sprintf("Wallet %s is %s", addr, str("state"))
		}
		return "Wallet is " + str("state")
	}
	return "Event: " + event.Type
}
