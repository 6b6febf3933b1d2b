// Package session holds per-user conversation state: the Session record, the
// in-memory cache that mirrors the persistent store for the life of the
// process, and the per-user lock that serializes read-modify-write cycles.
package session

import (
	"context"
	"maps"
	"slices"
)

// MaxHistory is the number of history entries kept per user. Older entries
// are dropped first.
const MaxHistory = 50

// BotPrefix marks history entries produced by the bot.
const BotPrefix = "Bot: "

// Session is the persisted conversational state of one user.
type Session struct {
	UserID int64

	// History is ordered oldest first. It mixes user utterances and bot
	// replies (prefixed with BotPrefix).
	History []string

	// Facts is persisted but not derived from conversation yet.
	Facts map[string]string

	// PendingThought holds a message that looked like an incomplete
	// expression. Empty means no pending thought.
	PendingThought string
}

// New returns an empty session for userID.
func New(userID int64) *Session {
	return &Session{
		UserID:  userID,
		History: []string{},
		Facts:   map[string]string{},
	}
}

// Append adds entry to the history and truncates it to MaxHistory.
func (s *Session) Append(entry string) {
	s.History = Truncate(append(s.History, entry), MaxHistory)
}

// HasPendingThought reports whether a follow-up is awaited.
func (s *Session) HasPendingThought() bool {
	return s.PendingThought != ""
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	cp := &Session{
		UserID:         s.UserID,
		History:        slices.Clone(s.History),
		Facts:          maps.Clone(s.Facts),
		PendingThought: s.PendingThought,
	}
	if cp.History == nil {
		cp.History = []string{}
	}
	if cp.Facts == nil {
		cp.Facts = map[string]string{}
	}
	return cp
}

// Truncate returns the last max entries of history. The returned slice does
// not alias the dropped prefix, so the backing array does not grow without
// bound across appends.
func Truncate(history []string, max int) []string {
	if max <= 0 {
		return []string{}
	}
	if len(history) <= max {
		return history
	}
	return slices.Clone(history[len(history)-max:])
}

// Store is the durable backing for sessions. Each user's record is
// independent; Save writes one row atomically.
type Store interface {
	// LoadAll reads every persisted session.
	LoadAll(ctx context.Context) (map[int64]*Session, error)

	// Save upserts the full session record keyed by UserID.
	Save(ctx context.Context, s *Session) error
}
