// Package dialogue turns a user's rolling history into the ordered turn list
// sent to the completion endpoint.
package dialogue

import "github.com/flemzord/sigma/internal/session"

// Roles recognized by the completion endpoint.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Part is a single text segment of a turn.
type Part struct {
	Text string `json:"text"`
}

// Turn is one role-tagged entry in the request context.
type Turn struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Build converts history into alternating turns and appends the current
// message as a final user turn of the form "<displayName>: <message>".
//
// Only the last session.MaxHistory entries are considered. Roles follow
// position parity inside that window: even indices are user turns, odd
// indices are model turns. The role is not derived from the "Bot: " prefix,
// so a history that breaks strict alternation (for example after a merged
// pending thought) is labelled by position alone.
func Build(history []string, displayName, message string) []Turn {
	window := history
	if len(window) > session.MaxHistory {
		window = window[len(window)-session.MaxHistory:]
	}

	turns := make([]Turn, 0, len(window)+1)
	for i, entry := range window {
		role := RoleUser
		if i%2 == 1 {
			role = RoleModel
		}
		turns = append(turns, textTurn(role, entry))
	}
	return append(turns, textTurn(RoleUser, displayName+": "+message))
}

func textTurn(role, text string) Turn {
	return Turn{Role: role, Parts: []Part{{Text: text}}}
}
