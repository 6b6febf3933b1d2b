// Package conversation implements the per-message flow: load or create the
// user's session, merge any pending thought, decide between asking for
// missing values and calling the completion backend, then persist.
package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/flemzord/sigma/internal/completion"
	"github.com/flemzord/sigma/internal/dialogue"
	"github.com/flemzord/sigma/internal/metrics"
	"github.com/flemzord/sigma/internal/session"
	"github.com/flemzord/sigma/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// FollowUpPrompt is sent when a message looks like an unfinished expression.
const FollowUpPrompt = "Oh! What are the missing values? Let me know! 😃"

// Sentinel errors returned by New.
var (
	ErrNoStore     = errors.New("conversation: store is required")
	ErrNoCompleter = errors.New("conversation: completer is required")
)

// Request is one inbound user message.
type Request struct {
	UserID      int64
	DisplayName string

	// ChatType is only logged.
	ChatType string
	Text     string
}

// Config holds the dependencies of a Handler.
type Config struct {
	Store     session.Store
	Completer completion.Completer

	// Sessions seeds the cache, typically from Store.LoadAll.
	Sessions map[int64]*session.Session

	Metrics *metrics.Metrics
	Tracer  *tracing.Tracer
	Logger  *slog.Logger
}

// Handler owns the session cache and serializes work per user.
type Handler struct {
	store     session.Store
	completer completion.Completer
	cache     *session.Cache
	locks     *session.KeyLock
	metrics   *metrics.Metrics
	tracer    *tracing.Tracer
	logger    *slog.Logger
}

// New creates a Handler from cfg.
func New(cfg Config) (*Handler, error) {
	if cfg.Store == nil {
		return nil, ErrNoStore
	}
	if cfg.Completer == nil {
		return nil, ErrNoCompleter
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	h := &Handler{
		store:     cfg.Store,
		completer: cfg.Completer,
		cache:     session.NewCache(cfg.Sessions),
		locks:     session.NewKeyLock(),
		metrics:   cfg.Metrics,
		tracer:    cfg.Tracer,
		logger:    cfg.Logger,
	}
	h.metrics.SetSessions(h.cache.Len())
	return h, nil
}

// Load reads every persisted session from cfg.Store and returns a Handler
// seeded with them. A store that cannot be read is a start-up failure.
func Load(ctx context.Context, cfg Config) (*Handler, error) {
	if cfg.Store == nil {
		return nil, ErrNoStore
	}
	loaded, err := cfg.Store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	cfg.Sessions = loaded
	return New(cfg)
}

// Sessions returns the number of sessions held in memory.
func (h *Handler) Sessions() int {
	return h.cache.Len()
}

// Reply processes one message and returns the text to send back. It never
// fails: completion problems surface as fixed fallback replies and
// persistence problems are logged.
func (h *Handler) Reply(ctx context.Context, req Request) string {
	text := strings.TrimSpace(req.Text)

	ctx, span := h.tracer.Start(ctx, "conversation.reply",
		attribute.Int64("user.id", req.UserID),
		attribute.String("chat.type", req.ChatType),
	)
	defer span.End()

	h.metrics.MessageReceived()
	h.logger.Info("message received",
		"user_id", req.UserID,
		"chat_type", req.ChatType,
		"length", len(text),
	)

	h.locks.Acquire(req.UserID)
	defer h.locks.Release(req.UserID)

	sess, created := h.cache.Get(req.UserID)
	if created {
		h.metrics.SetSessions(h.cache.Len())
		h.logger.Debug("session created", "user_id", req.UserID)
	}

	effective := text
	if sess.HasPendingThought() {
		effective = sess.PendingThought + " " + text
		sess.PendingThought = ""
	}
	preceding := sess.History
	sess.Append(effective)

	// The heuristic looks at the new text only; the merged entry is what gets held.
	if LooksIncomplete(text) {
		sess.PendingThought = effective
		h.persist(ctx, sess)
		h.metrics.PendingThoughtStored()
		span.SetAttributes(attribute.Bool("conversation.pending", true))
		return FollowUpPrompt
	}

	// Match the stored window: at most MaxHistory-1 entries precede the message.
	if len(preceding) >= session.MaxHistory {
		preceding = preceding[len(preceding)-session.MaxHistory+1:]
	}
	turns := dialogue.Build(preceding, req.DisplayName, effective)

	res := h.completer.Complete(ctx, turns)
	if !res.OK() {
		h.logger.Warn("completion fell back",
			"user_id", req.UserID,
			"reason", res.Fallback.String(),
			"error", res.Err,
		)
	}
	reply := res.Reply()

	sess.Append(session.BotPrefix + reply)
	h.persist(ctx, sess)
	return reply
}

func (h *Handler) persist(ctx context.Context, sess *session.Session) {
	if err := h.store.Save(ctx, sess); err != nil {
		h.metrics.PersistFailed()
		h.logger.Error("session save failed", "user_id", sess.UserID, "error", err)
	}
}
