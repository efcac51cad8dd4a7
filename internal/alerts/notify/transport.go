package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Transport delivers an alert over one channel.
type Transport interface {
	Send(ctx context.Context, channel, recipient, title, message string) error
}

// WebhookTransport posts deliveries as JSON to per-channel webhook URLs.
// Email, sms and push each hand off to a downstream gateway behind its URL.
type WebhookTransport struct {
	urls   map[string]string
	client *http.Client
}

type webhookPayload struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	Title     string `json:"title"`
	Message   string `json:"message"`
}

// NewWebhookTransport constructs a transport from channel -> URL. Channels
// without a URL fail at send time.
func NewWebhookTransport(urls map[string]string, timeout time.Duration) *WebhookTransport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	copied := make(map[string]string, len(urls))
	for channel, url := range urls {
		copied[channel] = url
	}
	return &WebhookTransport{
		urls:   copied,
		client: &http.Client{Timeout: timeout},
	}
}

// Send posts the delivery to the channel's webhook.
func (t *WebhookTransport) Send(ctx context.Context, channel, recipient, title, message string) error {
	url := t.urls[channel]
	if url == "" {
		return fmt.Errorf("webhook transport: no url for channel %q", channel)
	}

	body, err := json.Marshal(webhookPayload{
		Channel:   channel,
		Recipient: recipient,
		Title:     title,
		Message:   message,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.New("webhook transport: non-2xx")
	}
	return nil
}
