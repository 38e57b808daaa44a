package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NotifySubjectPrefix is the subject prefix for published notifications.
// The full subject is "leadscout.notify.<channel-id>".
const NotifySubjectPrefix = "leadscout.notify"

// notifyMessage is the wire format for published notifications.
type notifyMessage struct {
	ChannelID string    `json:"channel_id"`
	Content   string    `json:"content"`
	ReplyTo   string    `json:"reply_to,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

// NATSChannel publishes notifications to a NATS subject so that other
// services can subscribe to job progress.
type NATSChannel struct {
	nc *nats.Conn
}

// NewNATSChannel creates a channel backed by an existing NATS connection.
func NewNATSChannel(nc *nats.Conn) *NATSChannel {
	return &NATSChannel{nc: nc}
}

// Send publishes a notification. A nil connection is a no-op so the
// channel degrades gracefully when NATS is not configured.
func (n *NATSChannel) Send(_ context.Context, msg OutgoingMessage) error {
	if n.nc == nil {
		return nil
	}

	data, err := json.Marshal(notifyMessage{
		ChannelID: msg.ChannelID,
		Content:   msg.Content,
		ReplyTo:   msg.ReplyTo,
		SentAt:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", NotifySubjectPrefix, msg.ChannelID)
	if err := n.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	return nil
}
