// Package channel defines the bridge between messaging platforms and the router.
// It provides the Channel interface, typing indicators, message chunking,
// allow-list filtering and a dispatcher for outbound messages.
package channel

import (
	"context"

	"github.com/flemzord/sigma/internal/core"
	"github.com/flemzord/sigma/pkg/message"
)

// Channel is the bridge between a messaging platform and the router.
//
// A channel receives messages from its platform, checks the allow-list, and
// pushes them to the router via the inbox callback. It receives replies from
// the router via Send.
type Channel interface {
	core.Module

	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg message.OutboundMessage) error

	// SetInbox gives the channel a function to push inbound messages to the router.
	// The router calls this during wiring, before Start().
	SetInbox(fn func(msg message.InboundMessage) error)
}

// TypingChannel is implemented by channels that can show a typing indicator
// while a reply is being generated.
type TypingChannel interface {
	Channel

	// SendTyping sends a single typing indicator to the platform.
	SendTyping(ctx context.Context, chat message.Chat) error
}
