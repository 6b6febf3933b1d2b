// Package router dispatches inbound chat messages to the conversation
// handler through a bounded inbox and a fixed worker pool.
package router

import "errors"

// Sentinel errors for router operations.
var (
	// ErrInboxFull indicates the router's message inbox is at capacity
	// and the incoming message was dropped.
	ErrInboxFull = errors.New("router: inbox full, message dropped")

	// ErrRouterStopped indicates the router has been shut down and is
	// no longer accepting messages.
	ErrRouterStopped = errors.New("router: stopped")

	// ErrNoReplier indicates no conversation handler has been configured.
	ErrNoReplier = errors.New("router: no replier configured")

	// ErrNoResponseSender indicates no response sender has been configured.
	ErrNoResponseSender = errors.New("router: no response sender configured")
)
