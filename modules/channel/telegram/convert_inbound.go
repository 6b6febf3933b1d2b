package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"time"
	"unicode/utf16"

	"github.com/flemzord/sigma/pkg/message"
)

// errNotText marks updates that carry no text message; they are skipped.
var errNotText = errors.New("telegram: not a text message")

// convertInbound transforms a Telegram Update into a platform-agnostic
// InboundMessage. Updates without a text message, or from a sender that
// cannot be identified, are rejected.
func convertInbound(update *Update, botUsername, channelName string) (message.InboundMessage, error) {
	msg := update.Message
	if msg == nil || msg.Text == "" {
		return message.InboundMessage{}, fmt.Errorf("%w: update %d", errNotText, update.UpdateID)
	}
	if msg.From == nil {
		return message.InboundMessage{}, fmt.Errorf("telegram: update %d has no sender", update.UpdateID)
	}

	inbound := message.InboundMessage{
		ID:        strconv.Itoa(msg.MessageID),
		Timestamp: time.Unix(int64(msg.Date), 0),
		Channel:   channelName,
		Sender:    convertSender(msg.From),
		Chat:      convertChat(msg.Chat),
		Text:      msg.Text,
	}
	if msg.ReplyToMessage != nil {
		inbound.ReplyToID = strconv.Itoa(msg.ReplyToMessage.MessageID)
	}
	inbound.Command = extractCommand(msg, botUsername)

	return inbound, nil
}

// convertSender maps a Telegram User to a platform-agnostic Sender. The
// display name is the first name, which is how the user is addressed in
// the conversation context.
func convertSender(user *User) message.Sender {
	return message.Sender{
		ID:          strconv.FormatInt(user.ID, 10),
		Username:    user.Username,
		DisplayName: user.FirstName,
	}
}

// convertChat maps a Telegram Chat to a platform-agnostic Chat.
func convertChat(chat Chat) message.Chat {
	return message.Chat{
		ID:    strconv.FormatInt(chat.ID, 10),
		Type:  mapChatType(chat.Type),
		Title: chat.Title,
	}
}

// mapChatType converts Telegram chat type strings to message.ChatType.
func mapChatType(tgType string) message.ChatType {
	switch tgType {
	case "private":
		return message.ChatDM
	case "channel":
		return message.ChatBroadcast
	default:
		return message.ChatGroup
	}
}

// extractCommand returns the command when the message starts with a
// bot_command entity. Commands addressed to another bot come back marked
// Foreign.
func extractCommand(msg *Message, botUsername string) *message.Command {
	for _, ent := range msg.Entities {
		if ent.Type != "bot_command" || ent.Offset != 0 {
			continue
		}
		head := extractEntityText(msg.Text, ent.Offset, ent.Length)
		rest := msg.Text[len(head):]
		text := head + " " + rest
		if cmd, ok := message.ParseCommand(text, botUsername); ok {
			return cmd
		}
		cmd, ok := message.ParseCommand(text, "")
		if !ok {
			return nil
		}
		cmd.Foreign = true
		return cmd
	}
	return nil
}

// extractEntityText extracts a substring using UTF-16 offsets, which is
// what Telegram uses for entity offsets and lengths.
func extractEntityText(text string, offset, length int) string {
	encoded := utf16.Encode([]rune(text))
	if offset >= len(encoded) {
		return ""
	}
	end := min(offset+length, len(encoded))
	return string(utf16.Decode(encoded[offset:end]))
}
