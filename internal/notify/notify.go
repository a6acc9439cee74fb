// Package notify delivers alert and incident notifications over the
// configured channels: plain email, Slack incoming webhooks, and generic
// JSON webhooks.
package notify

import (
	"context"
	"fmt"

	"github.com/statuspulse/statuspulse/internal/database"
	"github.com/statuspulse/statuspulse/internal/metrics"
)

// Notification is one message to deliver. Target is channel-specific: an
// email address for EMAIL, a webhook URL for SLACK and WEBHOOK.
type Notification struct {
	Target  string
	Subject string
	Body    string
}

// Sender delivers notifications over one channel type.
type Sender interface {
	Type() database.ChannelType
	Send(ctx context.Context, n Notification) error
}

// Dispatcher routes notifications to the sender registered for each
// channel type.
type Dispatcher struct {
	senders map[database.ChannelType]Sender
}

// NewDispatcher creates a dispatcher over the given senders.
func NewDispatcher(senders ...Sender) *Dispatcher {
	d := &Dispatcher{senders: make(map[database.ChannelType]Sender)}
	for _, s := range senders {
		d.senders[s.Type()] = s
	}
	return d
}

// Dispatch sends one notification over the given channel.
func (d *Dispatcher) Dispatch(ctx context.Context, channel database.ChannelType, n Notification) error {
	sender, ok := d.senders[channel]
	if !ok {
		metrics.NotificationSent(string(channel), "error")
		return fmt.Errorf("no sender registered for channel %s", channel)
	}

	if err := sender.Send(ctx, n); err != nil {
		metrics.NotificationSent(string(channel), "error")
		return err
	}
	metrics.NotificationSent(string(channel), "sent")
	return nil
}
