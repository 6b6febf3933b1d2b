package channel

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/flemzord/sigma/pkg/message"
)

// Dispatcher routes outbound messages to the channel they came from.
// It implements router.ResponseSender and router.TypingIndicator.
type Dispatcher struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		channels: make(map[string]Channel),
	}
}

// Register adds a channel under the given name.
func (d *Dispatcher) Register(name string, ch Channel) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.channels[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateChannel, name)
	}
	d.channels[name] = ch
	return nil
}

// Get returns the channel registered under name.
func (d *Dispatcher) Get(name string) (Channel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ch, ok := d.channels[name]
	return ch, ok
}

// Send dispatches msg to the channel named by msg.Channel.
func (d *Dispatcher) Send(ctx context.Context, msg message.OutboundMessage) error {
	ch, ok := d.Get(msg.Channel)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoChannel, msg.Channel)
	}
	return ch.Send(ctx, msg)
}

// Typing starts a typing indicator on the named channel if it supports one.
// The returned function stops it; it is a no-op when nothing was started.
func (d *Dispatcher) Typing(ctx context.Context, name string, chat message.Chat) (stop func()) {
	ch, ok := d.Get(name)
	if !ok {
		return func() {}
	}
	tc, ok := ch.(TypingChannel)
	if !ok {
		return func() {}
	}
	return KeepTyping(ctx, tc, chat, DefaultTypingInterval)
}

// Channels returns the sorted names of all registered channels.
func (d *Dispatcher) Channels() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.channels))
	for name := range d.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
