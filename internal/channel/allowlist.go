package channel

import (
	"strings"

	"github.com/flemzord/sigma/pkg/message"
)

// AllowList restricts which users and groups may talk to the bot.
// An empty AllowList, or a nil one, admits everyone.
type AllowList struct {
	users  map[string]struct{}
	groups map[string]struct{}
}

// NewAllowList creates an AllowList. Keys are trimmed and lowercased at
// construction time so that IsAllowed can use direct map lookups. Blank
// entries are ignored.
func NewAllowList(users, groups []string) *AllowList {
	a := &AllowList{
		users:  make(map[string]struct{}, len(users)),
		groups: make(map[string]struct{}, len(groups)),
	}
	for _, u := range users {
		if k := normalize(u); k != "" {
			a.users[k] = struct{}{}
		}
	}
	for _, g := range groups {
		if k := normalize(g); k != "" {
			a.groups[k] = struct{}{}
		}
	}
	return a
}

// Open reports whether the list admits everyone.
func (a *AllowList) Open() bool {
	return a == nil || (len(a.users) == 0 && len(a.groups) == 0)
}

// IsAllowed reports whether the message sender or chat is permitted.
// Users match by ID or username; groups match by chat ID.
func (a *AllowList) IsAllowed(msg message.InboundMessage) bool {
	if a.Open() {
		return true
	}

	if _, ok := a.users[normalize(msg.Sender.ID)]; ok {
		return true
	}
	if msg.Sender.Username != "" {
		if _, ok := a.users[normalize(msg.Sender.Username)]; ok {
			return true
		}
	}
	if _, ok := a.groups[normalize(msg.Chat.ID)]; ok {
		return true
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "@"))
}
