package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/statuspulse/statuspulse/internal/database"
)

// SlackSender posts notifications to a Slack incoming webhook. The webhook
// URL is carried per-notification in Target, so a single sender serves every
// rule.
type SlackSender struct{}

// NewSlackSender creates a Slack webhook sender.
func NewSlackSender() *SlackSender {
	return &SlackSender{}
}

// Type returns the channel type.
func (s *SlackSender) Type() database.ChannelType {
	return database.ChannelTypeSlack
}

// Send posts the notification text to the webhook URL in n.Target.
func (s *SlackSender) Send(ctx context.Context, n Notification) error {
	if n.Target == "" {
		return errors.New("slack webhook URL is empty")
	}

	text := n.Body
	if n.Subject != "" {
		text = fmt.Sprintf("*%s*\n%s", n.Subject, n.Body)
	}

	msg := &slack.WebhookMessage{Text: text}
	if err := slack.PostWebhookContext(ctx, n.Target, msg); err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	return nil
}
