package telegram

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/flemzord/sigma/internal/channel"
	"github.com/flemzord/sigma/pkg/message"
)

const (
	maxConsecutivePollingErrors = 5
	errorPauseDuration          = 30 * time.Second
)

// Poller implements long-polling for receiving Telegram updates.
type Poller struct {
	client      *Client
	inbox       func(message.InboundMessage) error
	allowList   *channel.AllowList
	logger      *slog.Logger
	botUsername string
	channelName string
	timeout     int
	pause       time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewPoller creates a new Poller.
func NewPoller(client *Client, inbox func(message.InboundMessage) error, allowList *channel.AllowList, logger *slog.Logger, botUsername, channelName string, timeout int) *Poller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		client:      client,
		inbox:       inbox,
		allowList:   allowList,
		logger:      logger,
		botUsername: botUsername,
		channelName: channelName,
		timeout:     timeout,
		pause:       errorPauseDuration,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Start launches the polling loop in a goroutine.
func (p *Poller) Start() {
	go p.loop()
}

// Stop cancels the in-flight getUpdates call and waits for the loop to
// finish. It is safe to call Stop multiple times.
func (p *Poller) Stop() {
	p.stopOnce.Do(p.cancel)
	<-p.done
}

func (p *Poller) loop() {
	defer close(p.done)

	var offset int
	var consecutiveErrors int

	for p.ctx.Err() == nil {
		updates, err := p.client.GetUpdates(p.ctx, GetUpdatesRequest{
			Offset:         offset,
			Timeout:        p.timeout,
			AllowedUpdates: allowedUpdates,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || p.ctx.Err() != nil {
				return
			}
			consecutiveErrors++
			p.logger.Error("polling getUpdates failed",
				"error", err,
				"consecutive_errors", consecutiveErrors,
			)

			if consecutiveErrors >= maxConsecutivePollingErrors {
				p.logger.Warn("polling paused after consecutive errors",
					"pause", p.pause,
				)
				select {
				case <-p.ctx.Done():
					return
				case <-time.After(p.pause):
				}
				consecutiveErrors = 0
			}
			continue
		}

		consecutiveErrors = 0

		for i := range updates {
			offset = updates[i].UpdateID + 1
			p.handleUpdate(&updates[i])
		}
	}
}

// handleUpdate processes a single update.
func (p *Poller) handleUpdate(update *Update) {
	deliver(update, p.botUsername, p.channelName, p.allowList, p.inbox, p.logger)
}

// deliver converts an update, applies the allow list and hands the result
// to the inbox. Skipped and denied updates are logged at debug level.
func deliver(update *Update, botUsername, channelName string, allowList *channel.AllowList, inbox func(message.InboundMessage) error, logger *slog.Logger) {
	msg, err := convertInbound(update, botUsername, channelName)
	if err != nil {
		logger.Debug("skipping update", "update_id", update.UpdateID, "reason", err)
		return
	}

	if !allowList.IsAllowed(msg) {
		logger.Debug("update denied by allow list",
			"update_id", update.UpdateID,
			"sender", msg.Sender.ID,
			"chat", msg.Chat.ID,
		)
		return
	}

	if err := inbox(msg); err != nil {
		logger.Error("failed to deliver update to inbox",
			"update_id", update.UpdateID,
			"error", err,
		)
	}
}
