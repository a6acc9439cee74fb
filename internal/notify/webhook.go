package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/statuspulse/statuspulse/internal/database"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookSender posts notifications as a JSON body to an arbitrary endpoint.
type WebhookSender struct {
	httpClient *http.Client
}

// NewWebhookSender creates a generic webhook sender.
func NewWebhookSender(timeout time.Duration) *WebhookSender {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookSender{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Type returns the channel type.
func (s *WebhookSender) Type() database.ChannelType {
	return database.ChannelTypeWebhook
}

type webhookPayload struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	SentAt  string `json:"sent_at"`
}

// Send posts {subject, body} as JSON to the URL in n.Target.
func (s *WebhookSender) Send(ctx context.Context, n Notification) error {
	if n.Target == "" {
		return errors.New("webhook URL is empty")
	}

	payload := webhookPayload{
		Subject: n.Subject,
		Body:    n.Body,
		SentAt:  time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.Target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
