package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/flemzord/sigma/internal/session"
)

// SessionStore persists sessions in the memory table, one row per user.
type SessionStore struct {
	db *sql.DB
}

var _ session.Store = (*SessionStore)(nil)

// LoadAll reads every row and rebuilds the session map. NULL or empty
// history and facts load as empty values.
func (s *SessionStore) LoadAll(ctx context.Context) (map[int64]*session.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, history, facts, pending_thought FROM memory`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[int64]*session.Session)
	for rows.Next() {
		var (
			userID  int64
			history sql.NullString
			facts   sql.NullString
			pending sql.NullString
		)
		if err := rows.Scan(&userID, &history, &facts, &pending); err != nil {
			return nil, fmt.Errorf("sqlite: scan session: %w", err)
		}

		sess := session.New(userID)
		if history.Valid && history.String != "" {
			if err := json.Unmarshal([]byte(history.String), &sess.History); err != nil {
				return nil, fmt.Errorf("sqlite: decode history for user %d: %w", userID, err)
			}
			if sess.History == nil {
				sess.History = []string{}
			}
		}
		if facts.Valid && facts.String != "" {
			if err := json.Unmarshal([]byte(facts.String), &sess.Facts); err != nil {
				return nil, fmt.Errorf("sqlite: decode facts for user %d: %w", userID, err)
			}
			if sess.Facts == nil {
				sess.Facts = map[string]string{}
			}
		}
		sess.PendingThought = pending.String

		out[userID] = sess
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate sessions: %w", err)
	}
	return out, nil
}

// Save writes the session's row in a single statement, replacing any
// previous row for the same user.
func (s *SessionStore) Save(ctx context.Context, sess *session.Session) error {
	history := sess.History
	if history == nil {
		history = []string{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("sqlite: marshal history: %w", err)
	}

	facts := sess.Facts
	if facts == nil {
		facts = map[string]string{}
	}
	factsJSON, err := json.Marshal(facts)
	if err != nil {
		return fmt.Errorf("sqlite: marshal facts: %w", err)
	}

	var pending sql.NullString
	if sess.PendingThought != "" {
		pending = sql.NullString{String: sess.PendingThought, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO memory (user_id, history, facts, pending_thought)
		VALUES (?, ?, ?, ?)`,
		sess.UserID, string(historyJSON), string(factsJSON), pending,
	)
	if err != nil {
		return fmt.Errorf("sqlite: save session %d: %w", sess.UserID, err)
	}
	return nil
}

// Count returns the number of persisted sessions.
func (s *SessionStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM memory").Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count sessions: %w", err)
	}
	return n, nil
}

// Checkpoint folds the WAL back into the main database file and truncates it.
func (s *SessionStore) Checkpoint(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("sqlite: checkpoint: %w", err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *SessionStore) Close() error {
	return s.db.Close()
}
