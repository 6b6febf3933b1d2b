package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/flemzord/sigma/internal/channel"
	"github.com/flemzord/sigma/pkg/message"
)

// secretHeader is the header Telegram sets when a webhook secret is configured.
const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// errInvalidSecret is returned when the webhook secret header does not match.
var errInvalidSecret = errors.New("telegram: invalid webhook secret token")

// WebhookReceiver processes incoming Telegram webhook payloads.
// It implements gateway.WebhookHandler.
type WebhookReceiver struct {
	inbox       func(message.InboundMessage) error
	allowList   *channel.AllowList
	logger      *slog.Logger
	botUsername string
	channelName string
	secret      string
}

// NewWebhookReceiver creates a new WebhookReceiver.
func NewWebhookReceiver(inbox func(message.InboundMessage) error, allowList *channel.AllowList, logger *slog.Logger, botUsername, channelName, secret string) *WebhookReceiver {
	return &WebhookReceiver{
		inbox:       inbox,
		allowList:   allowList,
		logger:      logger,
		botUsername: botUsername,
		channelName: channelName,
		secret:      secret,
	}
}

// HandleWebhook validates the secret token header, decodes the update and
// pushes the resulting message to the inbox. Updates that are skipped or
// denied are acknowledged so Telegram does not redeliver them.
func (w *WebhookReceiver) HandleWebhook(_ context.Context, _ string, body []byte, headers http.Header) error {
	if w.secret != "" {
		token := headers.Get(secretHeader)
		if subtle.ConstantTimeCompare([]byte(w.secret), []byte(token)) != 1 {
			return errInvalidSecret
		}
	}

	var update Update
	if err := json.Unmarshal(body, &update); err != nil {
		return fmt.Errorf("telegram: invalid update JSON: %w", err)
	}

	deliver(&update, w.botUsername, w.channelName, w.allowList, w.inbox, w.logger)
	return nil
}
