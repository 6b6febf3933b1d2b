// Package completiontest provides test helpers for the completion package.
package completiontest

import (
	"context"
	"slices"
	"sync"

	"github.com/flemzord/sigma/internal/completion"
	"github.com/flemzord/sigma/internal/dialogue"
)

// MockCompleter is a configurable test double for completion.Completer.
// When CompleteFunc is nil, Complete returns a success with Text.
// All methods are safe for concurrent use.
type MockCompleter struct {
	CompleteFunc func(ctx context.Context, turns []dialogue.Turn) completion.Result
	Text         string

	mu    sync.Mutex
	calls [][]dialogue.Turn
}

// Complete records the turns and delegates to CompleteFunc.
func (m *MockCompleter) Complete(ctx context.Context, turns []dialogue.Turn) completion.Result {
	m.mu.Lock()
	m.calls = append(m.calls, slices.Clone(turns))
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, turns)
	}
	return completion.Success(m.Text)
}

// Calls returns the number of Complete invocations.
func (m *MockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastTurns returns the turns passed to the most recent call, or nil.
func (m *MockCompleter) LastTurns() []dialogue.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

var _ completion.Completer = (*MockCompleter)(nil)
