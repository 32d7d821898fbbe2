package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Webhook posts summaries to a Discord-compatible webhook URL.
type Webhook struct {
	url        string
	username   string
	httpClient *http.Client
}

// NewWebhook creates a webhook sink. username is an optional display-name
// override; empty keeps the webhook's default.
func NewWebhook(httpClient *http.Client, url, username string) *Webhook {
	return &Webhook{
		url:        url,
		username:   username,
		httpClient: httpClient,
	}
}

type webhookBody struct {
	Content         string           `json:"content"`
	Username        string           `json:"username,omitempty"`
	AllowedMentions *allowedMentions `json:"allowed_mentions,omitempty"`
}

// allowedMentions with an empty parse list suppresses pings entirely.
type allowedMentions struct {
	Parse []string `json:"parse"`
}

// Send posts the content. Any non-success status is an error; unlike geocode
// failures, a failed notification is operationally visible.
func (w *Webhook) Send(ctx context.Context, content string) error {
	payload, err := json.Marshal(webhookBody{
		Content:         content,
		Username:        w.username,
		AllowedMentions: &allowedMentions{Parse: []string{}},
	})
	if err != nil {
		return fmt.Errorf("marshal webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, body)
	}
	return nil
}
