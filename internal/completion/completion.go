// Package completion defines the contract between the conversation handler
// and a text-generation backend.
//
// A Completer never returns a Go error to its caller. Every call yields a
// Result: either generated text, or a fallback reason whose user-visible
// reply is one of the fixed strings below.
package completion

import (
	"context"

	"github.com/flemzord/sigma/internal/dialogue"
)

// Fixed replies used when a completion cannot be produced.
const (
	// FallbackFailure covers transport errors, timeouts and non-200 statuses.
	FallbackFailure = "Uh-oh, I messed up. Try again!"

	// FallbackMalformed covers a 200 response without usable text.
	FallbackMalformed = "Huh? That didn't make sense."
)

// Completer produces a reply for an ordered list of turns.
type Completer interface {
	Complete(ctx context.Context, turns []dialogue.Turn) Result
}

// Reason classifies why a completion fell back to a fixed reply.
type Reason int

// Fallback reasons.
const (
	ReasonNone Reason = iota
	ReasonTransport
	ReasonStatus
	ReasonMalformed
)

// String returns the metric label for r.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "ok"
	case ReasonTransport:
		return "transport_error"
	case ReasonStatus:
		return "bad_status"
	case ReasonMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Result is the outcome of a single completion call.
type Result struct {
	// Text is the generated reply. Empty unless Fallback is ReasonNone.
	Text string

	// Fallback is ReasonNone on success.
	Fallback Reason

	// Err carries the underlying cause of a fallback, for logging only.
	Err error
}

// Success wraps generated text.
func Success(text string) Result {
	return Result{Text: text}
}

// Failure builds a fallback result.
func Failure(reason Reason, err error) Result {
	return Result{Fallback: reason, Err: err}
}

// OK reports whether the result carries generated text.
func (r Result) OK() bool {
	return r.Fallback == ReasonNone
}

// Reply returns the text to send to the user.
func (r Result) Reply() string {
	switch r.Fallback {
	case ReasonNone:
		return r.Text
	case ReasonMalformed:
		return FallbackMalformed
	default:
		return FallbackFailure
	}
}
