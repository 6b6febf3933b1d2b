// Package channeltest provides test doubles for the channel package.
package channeltest

import (
	"context"
	"sync"

	"github.com/flemzord/sigma/internal/channel"
	"github.com/flemzord/sigma/internal/core"
	"github.com/flemzord/sigma/pkg/message"
)

// MockChannel implements channel.TypingChannel. It records sent messages
// and typing indicators, and simulates inbound traffic via SimulateMessage.
type MockChannel struct {
	name      string
	allowList *channel.AllowList

	mu          sync.Mutex
	inbox       func(msg message.InboundMessage) error
	sent        []message.OutboundMessage
	typingChats []message.Chat
	sentCh      chan message.OutboundMessage

	// SendFunc, if set, is called instead of the default recording behavior.
	SendFunc func(ctx context.Context, msg message.OutboundMessage) error
}

var _ channel.TypingChannel = (*MockChannel)(nil)

// NewMockChannel creates a MockChannel registered as "channel.<name>".
// A nil allowList admits everyone.
func NewMockChannel(name string, allowList *channel.AllowList) *MockChannel {
	return &MockChannel{
		name:      name,
		allowList: allowList,
		sentCh:    make(chan message.OutboundMessage, 64),
	}
}

// ID returns the channel name messages are tagged with.
func (m *MockChannel) ID() string {
	return "channel." + m.name
}

// ModuleInfo implements core.Module.
func (m *MockChannel) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID: core.ModuleID(m.ID()),
		New: func() core.Module {
			return NewMockChannel(m.name, m.allowList)
		},
	}
}

// Send records the outbound message. If SendFunc is set, it delegates to it.
func (m *MockChannel) Send(ctx context.Context, msg message.OutboundMessage) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	select {
	case m.sentCh <- msg:
	default:
	}
	return nil
}

// SendTyping records the chat.
func (m *MockChannel) SendTyping(_ context.Context, chat message.Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typingChats = append(m.typingChats, chat)
	return nil
}

// SetInbox stores the inbox callback provided by the router.
func (m *MockChannel) SetInbox(fn func(msg message.InboundMessage) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbox = fn
}

// SimulateMessage pushes an inbound message through the allow-list and into
// the inbox, tagged with this channel's ID.
func (m *MockChannel) SimulateMessage(msg message.InboundMessage) error {
	m.mu.Lock()
	inbox := m.inbox
	m.mu.Unlock()

	if !m.allowList.IsAllowed(msg) {
		return channel.ErrDenied
	}
	if inbox == nil {
		return channel.ErrNoInbox
	}

	msg.Channel = m.ID()
	return inbox(msg)
}

// Sent returns a channel receiving every recorded outbound message.
func (m *MockChannel) Sent() <-chan message.OutboundMessage {
	return m.sentCh
}

// SentMessages returns a copy of all outbound messages recorded by Send.
func (m *MockChannel) SentMessages() []message.OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]message.OutboundMessage, len(m.sent))
	copy(cp, m.sent)
	return cp
}

// TypingChats returns a copy of all chats that received typing indicators.
func (m *MockChannel) TypingChats() []message.Chat {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]message.Chat, len(m.typingChats))
	copy(cp, m.typingChats)
	return cp
}
