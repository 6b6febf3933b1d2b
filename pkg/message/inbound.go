package message

import (
	"strings"
	"time"
)

// InboundMessage represents a text message received from a channel.
type InboundMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Channel   string    `json:"channel"`
	Sender    Sender    `json:"sender"`
	Chat      Chat      `json:"chat"`
	ReplyToID string    `json:"reply_to_id,omitempty"`
	Text      string    `json:"text"`

	// Command is set when the message starts with a bot command.
	Command *Command `json:"command,omitempty"`
}

// IsCommand reports whether the message carries the named command.
func (m *InboundMessage) IsCommand(name string) bool {
	return m.Command != nil && m.Command.Name == strings.ToLower(name)
}

// IsGroup reports whether the message was sent in a group chat.
func (m *InboundMessage) IsGroup() bool {
	return m.Chat.IsGroup()
}

// IsDirectMessage reports whether the message is a direct message.
func (m *InboundMessage) IsDirectMessage() bool {
	return m.Chat.IsDirectMessage()
}

// ParseCommand extracts a leading "/name[@bot] args" command from text.
// A command addressed to another bot (an "@suffix" different from
// botUsername) is not returned. botUsername may be empty, in which case any
// suffix is accepted.
func ParseCommand(text, botUsername string) (*Command, bool) {
	if !strings.HasPrefix(text, "/") {
		return nil, false
	}

	head, args, _ := strings.Cut(text[1:], " ")
	if i := strings.IndexAny(head, "\n\t"); i >= 0 {
		args = head[i+1:] + " " + args
		head = head[:i]
	}

	name, target, addressed := strings.Cut(head, "@")
	if name == "" {
		return nil, false
	}
	if addressed && botUsername != "" && !strings.EqualFold(target, botUsername) {
		return nil, false
	}

	return &Command{
		Name: strings.ToLower(name),
		Args: strings.TrimSpace(args),
	}, true
}
