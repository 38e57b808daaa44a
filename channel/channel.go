// Package channel defines the outbound notification surface and its
// concrete adapters. Pollers and the orchestrator send progress updates
// through a Channel without knowing where they land.
package channel

import (
	"context"
	"time"
)

// IncomingMessage is a user message received from a chat surface.
type IncomingMessage struct {
	ChannelID  string
	UserID     string
	Username   string
	Content    string
	ReceivedAt time.Time
}

// OutgoingMessage is a notification destined for a single conversation.
type OutgoingMessage struct {
	ChannelID string
	Content   string
	ReplyTo   string
}

// Channel delivers messages to a chat surface. Implementations must be
// safe for concurrent use; multiple pollers share one channel.
type Channel interface {
	Send(ctx context.Context, msg OutgoingMessage) error
}
