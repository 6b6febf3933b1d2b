// Package message defines the platform-agnostic data contract between chat
// channels and the router. Messages are plain text; an inbound message may
// additionally carry a bot command.
package message

// ChatType indicates the kind of conversation.
type ChatType string

const (
	// ChatDM is a direct (one-to-one) conversation.
	ChatDM ChatType = "dm"
	// ChatGroup is a multi-participant group conversation.
	ChatGroup ChatType = "group"
	// ChatBroadcast is a one-to-many broadcast channel.
	ChatBroadcast ChatType = "broadcast"
)

// Sender identifies the author of an inbound message.
type Sender struct {
	ID          string `json:"id"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID    string   `json:"id"`
	Type  ChatType `json:"type"`
	Title string   `json:"title,omitempty"`
}

// IsGroup reports whether the chat is a group conversation.
func (c Chat) IsGroup() bool {
	return c.Type == ChatGroup
}

// IsDirectMessage reports whether the chat is a direct message.
func (c Chat) IsDirectMessage() bool {
	return c.Type == ChatDM
}

// Command is a bot command found at the start of a message, e.g. "/start".
type Command struct {
	// Name is lowercased and has neither the leading slash nor any
	// "@botname" suffix.
	Name string `json:"name"`

	// Args is the remaining text after the command, trimmed.
	Args string `json:"args,omitempty"`

	// Foreign is set when the command is addressed to another bot
	// ("/name@otherbot").
	Foreign bool `json:"foreign,omitempty"`
}
