package router

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/flemzord/sigma/internal/conversation"
	"github.com/flemzord/sigma/internal/metrics"
	"github.com/flemzord/sigma/pkg/message"
)

const defaultInboxSize = 256

// DefaultGreeting answers /start.
const DefaultGreeting = "Hey! Just talk to me like a friend."

// Commands the router answers. Any other command is ignored.
const (
	CommandStart = "start"
	CommandSigma = "sigma"
)

// Replier produces the reply to one user message.
type Replier interface {
	Reply(ctx context.Context, req conversation.Request) string
}

// ResponseSender delivers outbound messages to their channel.
type ResponseSender interface {
	Send(ctx context.Context, msg message.OutboundMessage) error
}

// TypingIndicator shows a typing indicator in a chat until stop is called.
type TypingIndicator interface {
	Typing(ctx context.Context, channel string, chat message.Chat) (stop func())
}

// Config holds the configuration for a Router.
type Config struct {
	WorkerCount    int
	InboxSize      int
	Greeting       string
	Replier        Replier
	ResponseSender ResponseSender

	// Typing, if non-nil, shows a typing indicator while a reply is built.
	Typing  TypingIndicator
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.WorkerCount <= 0 {
		c.WorkerCount = DefaultWorkerCount
	}
	if c.InboxSize <= 0 {
		c.InboxSize = defaultInboxSize
	}
	if c.Greeting == "" {
		c.Greeting = DefaultGreeting
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Router receives messages from channels, routes commands and hands plain
// text to the Replier. Per-user ordering is enforced by the Replier, so
// the pool may process messages from different users in parallel.
type Router struct {
	config   Config
	inbox    chan message.InboundMessage
	inboxMu  sync.RWMutex
	pool     *WorkerPool
	cancel   context.CancelFunc
	stopOnce sync.Once
	stopped  atomic.Bool
	logger   *slog.Logger
}

// NewRouter creates a new Router with the given configuration.
func NewRouter(cfg Config) (*Router, error) {
	cfg = cfg.withDefaults()

	if cfg.Replier == nil {
		return nil, ErrNoReplier
	}
	if cfg.ResponseSender == nil {
		return nil, ErrNoResponseSender
	}

	return &Router{
		config: cfg,
		inbox:  make(chan message.InboundMessage, cfg.InboxSize),
		pool:   NewWorkerPool(cfg.WorkerCount),
		logger: cfg.Logger,
	}, nil
}

// Start launches the worker pool.
func (r *Router) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.inboxMu.Lock()
	if r.stopped.Load() {
		r.inboxMu.Unlock()
		cancel()
		r.logger.Warn("router: start ignored, router already stopped")
		return
	}
	r.cancel = cancel
	r.inboxMu.Unlock()

	r.pool.Start(ctx, r.inbox, r.handle)
	r.logger.Info("router: started", "workers", r.config.WorkerCount, "inbox_size", r.config.InboxSize)
}

// Submit enqueues an inbound message. It never blocks: when the inbox is
// full the message is dropped and ErrInboxFull returned.
func (r *Router) Submit(msg message.InboundMessage) error {
	r.inboxMu.RLock()
	defer r.inboxMu.RUnlock()

	if r.stopped.Load() {
		return ErrRouterStopped
	}

	select {
	case r.inbox <- msg:
		return nil
	default:
		r.config.Metrics.InboxDropped()
		r.logger.Warn("router: inbox full, message dropped",
			"channel", msg.Channel,
			"chat_id", msg.Chat.ID,
		)
		return ErrInboxFull
	}
}

// Stop closes the inbox and waits for workers to answer the queued
// messages. When ctx expires first, in-flight replies are cancelled and
// whatever is still queued is answered with a cancelled context.
func (r *Router) Stop(ctx context.Context) {
	r.stopOnce.Do(func() {
		r.logger.Info("router: stopping")

		r.inboxMu.Lock()
		r.stopped.Store(true)
		close(r.inbox)
		cancel := r.cancel
		r.inboxMu.Unlock()

		if cancel == nil {
			return
		}
		defer cancel()

		drained := make(chan struct{})
		go func() {
			r.pool.Wait()
			close(drained)
		}()

		select {
		case <-drained:
			r.logger.Info("router: stopped")
		case <-ctx.Done():
			r.logger.Warn("router: shutdown deadline reached, cancelling in-flight replies",
				"pending", len(r.inbox),
			)
			cancel()
			<-drained
			r.logger.Info("router: stopped")
		}
	})
}

// handle routes one message and sends the reply, if any.
func (r *Router) handle(ctx context.Context, msg message.InboundMessage) {
	reply, ok := r.respond(ctx, msg)
	if !ok {
		return
	}
	if err := r.config.ResponseSender.Send(ctx, message.ReplyTo(msg, reply)); err != nil {
		r.logger.Error("router: send failed",
			"channel", msg.Channel,
			"chat_id", msg.Chat.ID,
			"error", err,
		)
	}
}

// respond decides what to answer. ok is false when the message gets no reply.
func (r *Router) respond(ctx context.Context, msg message.InboundMessage) (string, bool) {
	text := msg.Text
	if msg.Command != nil {
		if msg.Command.Foreign {
			r.logger.Debug("router: ignoring command for another bot", "command", msg.Command.Name)
			return "", false
		}
		switch msg.Command.Name {
		case CommandStart:
			return r.config.Greeting, true
		case CommandSigma:
			// A bare /sigma reaches the conversation as typed.
			if msg.Command.Args != "" {
				text = msg.Command.Args
			}
		default:
			r.logger.Debug("router: ignoring unknown command", "command", msg.Command.Name)
			return "", false
		}
	}

	userID, err := strconv.ParseInt(msg.Sender.ID, 10, 64)
	if err != nil {
		r.logger.Warn("router: dropping message with non-numeric sender",
			"channel", msg.Channel,
			"sender", msg.Sender.ID,
		)
		return "", false
	}

	if r.config.Typing != nil {
		stop := r.config.Typing.Typing(ctx, msg.Channel, msg.Chat)
		defer stop()
	}

	return r.config.Replier.Reply(ctx, conversation.Request{
		UserID:      userID,
		DisplayName: msg.Sender.DisplayName,
		ChatType:    string(msg.Chat.Type),
		Text:        text,
	}), true
}
