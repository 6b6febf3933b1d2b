package channel

import (
	"context"
	"time"

	"github.com/flemzord/sigma/pkg/message"
)

// DefaultTypingInterval is shorter than Telegram's five second indicator
// lifetime so the indicator does not flicker.
const DefaultTypingInterval = 4 * time.Second

// KeepTyping sends a typing indicator immediately and then every interval
// until the returned stop function is called. stop blocks until the loop
// has exited and is safe to call more than once.
func KeepTyping(ctx context.Context, ch TypingChannel, chat message.Chat, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = DefaultTypingInterval
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		_ = ch.SendTyping(ctx, chat)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = ch.SendTyping(ctx, chat)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
