// Package gateway implements the gateway.http module: health, metrics,
// status and webhook endpoints for sigma.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/flemzord/sigma/internal/core"
	"github.com/flemzord/sigma/internal/metrics"
	"github.com/flemzord/sigma/internal/security"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Service names the gateway resolves at Start.
const (
	storeService    = "memory.sessions"
	sessionsService = "conversation.handler"
	modelService    = "provider.gemini"
	auditService    = "security.audit"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SessionCounter reports the number of sessions held in memory.
type SessionCounter interface {
	Sessions() int
}

// ModelNamer reports the completion model in use.
type ModelNamer interface {
	ModelName() string
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)

// Gateway is the HTTP gateway module. Nothing imports it; it discovers what
// it reports on through the service registry.
type Gateway struct {
	config     Config
	appCtx     *core.AppContext
	logger     *slog.Logger
	server     *http.Server
	dispatcher *WebhookDispatcher
	limiter    *security.RateLimiter
	startedAt  time.Time

	// Resolved lazily at Start() via service registry.
	store    Pinger
	sessions SessionCounter
	model    ModelNamer
	metrics  *metrics.Metrics
	audit    *security.AuditLogger
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return fmt.Errorf("gateway: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner. It publishes the webhook
// dispatcher so channel modules can register receivers before Start.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.dispatcher = NewWebhookDispatcher(g.logger)
	g.dispatcher.maxBody = g.config.MaxBodyBytes
	g.limiter = security.NewRateLimiter(map[string]security.Limit{
		authRateBucket: {Count: g.config.AuthPerMinute, Window: time.Minute},
	})

	ctx.RegisterService(DispatcherServiceName, g.dispatcher)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return fmt.Errorf("gateway: invalid bind address %q: %w", g.config.Bind, err)
	}
	return g.config.validate()
}

// Start implements core.Starter. It resolves optional services and starts
// the HTTP server. Missing services degrade the matching endpoint only.
func (g *Gateway) Start() error {
	g.resolveServices()
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:              g.config.Bind,
		Handler:           g.buildRouter(),
		ReadTimeout:       g.config.ReadTimeout,
		ReadHeaderTimeout: g.config.ReadTimeout,
		WriteTimeout:      g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen failed: %w", err)
	}

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

func (g *Gateway) resolveServices() {
	if svc, ok := g.appCtx.GetService(storeService); ok {
		g.store, _ = svc.(Pinger)
	}
	if svc, ok := g.appCtx.GetService(sessionsService); ok {
		g.sessions, _ = svc.(SessionCounter)
	}
	if svc, ok := g.appCtx.GetService(modelService); ok {
		g.model, _ = svc.(ModelNamer)
	}
	if svc, ok := g.appCtx.GetService(metrics.ServiceName); ok {
		g.metrics, _ = svc.(*metrics.Metrics)
		g.dispatcher.metrics = g.metrics
	}
	if svc, ok := g.appCtx.GetService(auditService); ok {
		g.audit, _ = svc.(*security.AuditLogger)
	}
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
