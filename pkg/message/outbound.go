package message

// OutboundMessage represents a text message to be sent through a channel.
type OutboundMessage struct {
	Channel   string `json:"channel"`
	Chat      Chat   `json:"chat"`
	ReplyToID string `json:"reply_to_id,omitempty"`
	Text      string `json:"text"`
}

// NewTextMessage creates an outbound message for chat on the named channel.
func NewTextMessage(channel string, chat Chat, text string) OutboundMessage {
	return OutboundMessage{
		Channel: channel,
		Chat:    chat,
		Text:    text,
	}
}

// ReplyTo creates an outbound message answering in.
func ReplyTo(in InboundMessage, text string) OutboundMessage {
	return OutboundMessage{
		Channel:   in.Channel,
		Chat:      in.Chat,
		ReplyToID: in.ID,
		Text:      text,
	}
}
