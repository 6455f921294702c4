package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	SignatureHeader = "X-Facegate-Signature"
	EventHeader     = "X-Facegate-Event"
)

// Webhook POSTs every event as JSON. With a secret, SignatureHeader carries
// an HMAC-SHA256 over the event timestamp and body (see Sign). Delivery is
// attempted once.
type Webhook struct {
	url    string
	secret string
	client *http.Client
}

func NewWebhook(url, secret string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		url:    url,
		secret: secret,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (w *Webhook) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventHeader, string(event.Type))
	req.Header.Set("User-Agent", "Facegate-Webhook/1.0")
	if w.secret != "" {
		at := event.Timestamp
		if at.IsZero() {
			at = time.Now()
		}
		req.Header.Set(SignatureHeader, Sign(w.secret, at, payload))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}

	return nil
}
