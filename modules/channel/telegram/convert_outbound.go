package telegram

import (
	"context"
	"fmt"
	"strconv"

	"github.com/flemzord/sigma/internal/channel"
	"github.com/flemzord/sigma/pkg/message"
)

// sendOutbound delivers a plain-text message, split into as many
// sendMessage calls as the configured length limit requires.
func (t *Telegram) sendOutbound(ctx context.Context, msg message.OutboundMessage) error {
	chatID, err := strconv.ParseInt(msg.Chat.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat ID %q: %w", msg.Chat.ID, err)
	}

	for _, chunk := range channel.SplitMessage(msg, channel.ChunkConfig{MaxLength: t.config.MaxMessageLength}) {
		req := SendMessageRequest{
			ChatID: chatID,
			Text:   chunk.Text,
		}
		if chunk.ReplyToID != "" {
			if id, err := strconv.Atoi(chunk.ReplyToID); err == nil {
				req.ReplyToMessageID = id
			}
		}
		if _, err := t.client.SendMessage(ctx, req); err != nil {
			return fmt.Errorf("telegram: send message: %w", err)
		}
	}
	return nil
}
