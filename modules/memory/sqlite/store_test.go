package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"testing"

	"github.com/flemzord/sigma/internal/session"
)

func newTestStore(t *testing.T) (*SessionStore, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "memory.db")
	s, err := Open(context.Background(), Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "memory.db")

	s, err := Open(context.Background(), Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = s.Close() }()

	if n, err := s.Count(context.Background()); err != nil || n != 0 {
		t.Errorf("Count = %d, %v; want 0, nil", n, err)
	}
}

func TestOpen_RejectsNegativeBusyTimeout(t *testing.T) {
	_, err := Open(context.Background(), Config{
		Path:        filepath.Join(t.TempDir(), "memory.db"),
		BusyTimeout: -1,
	})
	if err == nil {
		t.Fatal("expected error for negative busy_timeout")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for range 3 {
		if err := migrate(ctx, s.db); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		t.Fatal(err)
	}
	if version != schemaVersion {
		t.Errorf("schema version = %d, want %d", version, schemaVersion)
	}
}

func TestSaveAndLoadAll(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	alice := session.New(1)
	alice.History = []string{"Hi", "Bot: Hello!"}
	alice.Facts["name"] = "Alice"

	bob := session.New(2)
	bob.History = []string{"2 + x"}
	bob.PendingThought = "2 + x"

	for _, sess := range []*session.Session{alice, bob} {
		if err := s.Save(ctx, sess); err != nil {
			t.Fatalf("Save(%d): %v", sess.UserID, err)
		}
	}

	got, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d sessions, want 2", len(got))
	}

	a := got[1]
	if !slices.Equal(a.History, alice.History) || a.Facts["name"] != "Alice" || a.HasPendingThought() {
		t.Errorf("alice = %+v", a)
	}
	b := got[2]
	if b.PendingThought != "2 + x" || len(b.Facts) != 0 || b.Facts == nil {
		t.Errorf("bob = %+v", b)
	}
}

func TestSave_ReplacesRow(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	sess := session.New(9)
	sess.PendingThought = "x * 3"
	if err := s.Save(ctx, sess); err != nil {
		t.Fatal(err)
	}

	sess.PendingThought = ""
	sess.History = []string{"x * 3 x=2"}
	if err := s.Save(ctx, sess); err != nil {
		t.Fatal(err)
	}

	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}

	var pending *string
	if err := s.db.QueryRowContext(ctx, "SELECT pending_thought FROM memory WHERE user_id = 9").Scan(&pending); err != nil {
		t.Fatal(err)
	}
	if pending != nil {
		t.Errorf("pending_thought = %q, want NULL", *pending)
	}
}

func TestLoadAll_NullColumns(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	rows := []string{
		`INSERT INTO memory (user_id, history, facts, pending_thought) VALUES (10, NULL, NULL, NULL)`,
		`INSERT INTO memory (user_id, history, facts, pending_thought) VALUES (11, '["hi"]', '', NULL)`,
		`INSERT INTO memory (user_id, history, facts, pending_thought) VALUES (12, 'null', 'null', '')`,
	}
	for _, q := range rows {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	for id, wantHistory := range map[int64]int{10: 0, 11: 1, 12: 0} {
		sess := got[id]
		if sess == nil {
			t.Fatalf("user %d missing", id)
		}
		if sess.History == nil || len(sess.History) != wantHistory {
			t.Errorf("user %d history = %#v", id, sess.History)
		}
		if sess.Facts == nil || len(sess.Facts) != 0 {
			t.Errorf("user %d facts = %#v", id, sess.Facts)
		}
		if sess.HasPendingThought() {
			t.Errorf("user %d has pending thought %q", id, sess.PendingThought)
		}
	}
}

func TestLoadAll_CorruptHistory(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.db.ExecContext(ctx, `INSERT INTO memory (user_id, history) VALUES (1, '{not json')`); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadAll(ctx); err == nil {
		t.Fatal("expected decode error")
	}
}

// Reloading from the same file yields the same sessions.
func TestReload_Idempotent(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	for i := range int64(5) {
		sess := session.New(i)
		for j := range 60 {
			sess.Append(fmt.Sprintf("u%d-m%d", i, j))
		}
		if i%2 == 0 {
			sess.PendingThought = fmt.Sprintf("a + b%d", i)
		}
		if err := s.Save(ctx, sess); err != nil {
			t.Fatal(err)
		}
	}
	first, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	s2, err := Open(ctx, Config{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s2.Close() }()

	second, err := s2.LoadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != len(second) {
		t.Fatalf("reload size %d != %d", len(second), len(first))
	}
	for id, a := range first {
		b := second[id]
		if !slices.Equal(a.History, b.History) || a.PendingThought != b.PendingThought {
			t.Errorf("user %d differs after reload", id)
		}
		if len(b.History) != session.MaxHistory {
			t.Errorf("user %d history len = %d", id, len(b.History))
		}
	}
}

func TestCheckpoint(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, session.New(1)); err != nil {
		t.Fatal(err)
	}
	if err := s.Checkpoint(ctx); err != nil {
		t.Errorf("Checkpoint: %v", err)
	}
}
