package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/flemzord/sigma/internal/channel"
	"github.com/flemzord/sigma/internal/completion"
	"github.com/flemzord/sigma/internal/config"
	"github.com/flemzord/sigma/internal/conversation"
	"github.com/flemzord/sigma/internal/core"
	"github.com/flemzord/sigma/internal/cron"
	"github.com/flemzord/sigma/internal/metrics"
	"github.com/flemzord/sigma/internal/router"
	"github.com/flemzord/sigma/internal/security"
	"github.com/flemzord/sigma/internal/session"
	"github.com/flemzord/sigma/internal/tracing"
	"github.com/flemzord/sigma/modules/memory/sqlite"
	"github.com/flemzord/sigma/modules/provider/gemini"
	"gopkg.in/yaml.v3"
)

// Service keys published on the AppContext in addition to the ones the
// modules register themselves.
const (
	HandlerServiceName = "conversation.handler"
	AuditServiceName   = "security.audit"
)

// secretKeys are module config keys whose values are added to the log
// redactor verbatim.
var secretKeys = map[string]bool{
	"api_key":        true,
	"token":          true,
	"webhook_secret": true,
	"secret":         true,
	"bearer_token":   true,
	"password":       true,
	"basic_pass":     true,
}

// Options tunes Build beyond what the config file holds.
type Options struct {
	DataDir string

	// LogLevel, if non-nil, overrides log.level.
	LogLevel *slog.Level

	// LogOutput receives log records. Defaults to os.Stderr.
	LogOutput io.Writer
}

// Runtime is a fully wired, not yet started sigma process.
type Runtime struct {
	app       *core.App
	appCtx    *core.AppContext
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    *tracing.Tracer
	handler   *conversation.Handler
	router    *router.Router
	scheduler *cron.Scheduler
	closers   []io.Closer
}

// Build loads every configured module, seeds the conversation handler from
// the session store and wires channels to the router. A store that cannot
// be read aborts the build.
func Build(ctx context.Context, cfg *config.Config, opts Options) (_ *Runtime, err error) {
	rt := &Runtime{}
	defer func() {
		if err != nil {
			rt.close()
		}
	}()

	redactor := security.NewRedactor()
	for _, secret := range collectSecrets(cfg.Modules) {
		redactor.AddLiteral(secret)
	}

	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != nil {
		level = *opts.LogLevel
	}
	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	rt.logger = security.NewLogger(out, level, cfg.Log.Format, redactor)
	rt.metrics = metrics.New()

	rt.tracer, err = tracing.New(ctx, cfg.Tracing)
	switch {
	case errors.Is(err, tracing.ErrDisabled):
		rt.tracer = nil
	case err != nil:
		return nil, err
	default:
		rt.logger.Info("tracing enabled", "endpoint", cfg.Tracing.Endpoint)
	}

	audit, err := rt.auditLogger(cfg.Security.Audit, redactor)
	if err != nil {
		return nil, err
	}

	rt.appCtx = core.NewAppContext(rt.logger, opts.DataDir).WithModuleConfigs(cfg.Modules)
	rt.appCtx.RegisterService(metrics.ServiceName, rt.metrics)
	if rt.tracer != nil {
		rt.appCtx.RegisterService(tracing.ServiceName, rt.tracer)
	}
	if audit != nil {
		rt.appCtx.RegisterService(AuditServiceName, audit)
	}

	rt.app = core.NewApp(rt.appCtx)
	ids := config.Resolve(cfg)
	if err := rt.app.LoadModules(ids); err != nil {
		return nil, err
	}

	if err := rt.wireConversation(ctx); err != nil {
		rt.app.Stop()
		return nil, err
	}
	if err := rt.wireRouter(ids, cfg.Bot); err != nil {
		rt.app.Stop()
		return nil, err
	}
	if err := rt.wireCron(cfg.Cron); err != nil {
		rt.app.Stop()
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) auditLogger(cfg config.AuditConfig, redactor *security.Redactor) (*security.AuditLogger, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	var w io.Writer = os.Stderr
	if cfg.Path != "" {
		f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("opening audit log: %w", err)
		}
		rt.closers = append(rt.closers, f)
		w = f
	}
	return security.NewAuditLogger(security.AuditLoggerConfig{
		Writer:   w,
		Redactor: redactor,
	}), nil
}

// wireConversation builds the handler from the store and completer the
// modules published during Provision.
func (rt *Runtime) wireConversation(ctx context.Context) error {
	svc, ok := rt.appCtx.GetService(sqlite.ServiceName)
	if !ok {
		return fmt.Errorf("no session store: module memory.sqlite is not loaded")
	}
	store, ok := svc.(session.Store)
	if !ok {
		return fmt.Errorf("service %s is %T, not a session store", sqlite.ServiceName, svc)
	}

	svc, ok = rt.appCtx.GetService(gemini.ServiceName)
	if !ok {
		return fmt.Errorf("no completer: module provider.gemini is not loaded")
	}
	completer, ok := svc.(completion.Completer)
	if !ok {
		return fmt.Errorf("service %s is %T, not a completer", gemini.ServiceName, svc)
	}

	h, err := conversation.Load(ctx, conversation.Config{
		Store:     store,
		Completer: completer,
		Metrics:   rt.metrics,
		Tracer:    rt.tracer,
		Logger:    rt.logger.With("component", "conversation"),
	})
	if err != nil {
		return fmt.Errorf("loading sessions: %w", err)
	}
	rt.handler = h
	rt.appCtx.RegisterService(HandlerServiceName, h)
	rt.logger.Info("sessions loaded", "count", h.Sessions())
	return nil
}

// wireRouter registers every loaded channel on a dispatcher, points each
// channel's inbox at the router and appends the router to the lifecycle.
func (rt *Runtime) wireRouter(ids []string, bot config.BotConfig) error {
	dispatcher := channel.NewDispatcher()
	var channels []channel.Channel

	for _, id := range ids {
		mod, ok := rt.app.Module(id)
		if !ok {
			continue
		}
		ch, ok := mod.(channel.Channel)
		if !ok {
			continue
		}
		// Channels tag inbound messages with their module ID.
		if err := dispatcher.Register(id, ch); err != nil {
			return fmt.Errorf("registering channel %s: %w", id, err)
		}
		channels = append(channels, ch)
		rt.logger.Info("router: registered channel", "channel", id)
	}
	if len(channels) == 0 {
		return errors.New("router: at least one channel module is required")
	}

	r, err := router.NewRouter(router.Config{
		WorkerCount:    bot.Workers,
		InboxSize:      bot.InboxSize,
		Greeting:       bot.Greeting,
		Replier:        rt.handler,
		ResponseSender: dispatcher,
		Typing:         dispatcher,
		Metrics:        rt.metrics,
		Logger:         rt.logger.With("component", "router"),
	})
	if err != nil {
		return fmt.Errorf("creating router: %w", err)
	}
	for _, ch := range channels {
		ch.SetInbox(r.Submit)
	}

	rt.router = r
	rt.app.AppendModule("router", &routerModule{router: r, ctx: context.Background()})
	rt.logger.Info("router: wired", "channels", len(channels))
	return nil
}

// wireCron schedules the maintenance jobs.
func (rt *Runtime) wireCron(cfg config.CronConfig) error {
	s := cron.NewScheduler(rt.logger.With("component", "cron"))

	if svc, ok := rt.appCtx.GetService(sqlite.ServiceName); ok {
		if cp, ok := svc.(cron.Checkpointer); ok {
			if err := s.RegisterJob(&cron.CheckpointJob{
				Store:        cp,
				Logger:       rt.logger,
				ScheduleExpr: cfg.Checkpoint,
			}); err != nil {
				return err
			}
		}
	}
	if err := s.RegisterJob(&cron.SessionGaugeJob{
		Sessions:     rt.handler,
		Metrics:      rt.metrics,
		ScheduleExpr: cfg.SessionGauge,
	}); err != nil {
		return err
	}

	rt.scheduler = s
	rt.app.AppendModule("cron", &cronModule{scheduler: s})
	return nil
}

// Start starts modules, the router and the scheduler.
func (rt *Runtime) Start() error {
	return rt.app.Start()
}

// Stop stops everything in reverse start order and flushes traces.
func (rt *Runtime) Stop(ctx context.Context) {
	rt.app.Stop()
	if err := rt.tracer.Shutdown(ctx); err != nil {
		rt.logger.Error("tracing shutdown failed", "error", err)
	}
	rt.close()
}

// Logger returns the redacting process logger.
func (rt *Runtime) Logger() *slog.Logger { return rt.logger }

// Router returns the message router.
func (rt *Runtime) Router() *router.Router { return rt.router }

// Handler returns the conversation handler.
func (rt *Runtime) Handler() *conversation.Handler { return rt.handler }

func (rt *Runtime) close() {
	for _, c := range rt.closers {
		_ = c.Close()
	}
	rt.closers = nil
}

// routerModule wraps a *router.Router to satisfy core.Module, core.Starter,
// and core.Stopper, so the router participates in the App lifecycle.
type routerModule struct {
	router *router.Router
	ctx    context.Context
}

func (m *routerModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "router"}
}

func (m *routerModule) Start() error {
	m.router.Start(m.ctx)
	return nil
}

func (m *routerModule) Stop(ctx context.Context) error {
	m.router.Stop(ctx)
	return nil
}

// cronModule runs the scheduler inside the App lifecycle.
type cronModule struct {
	scheduler *cron.Scheduler
}

func (m *cronModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "cron"}
}

func (m *cronModule) Start() error {
	return m.scheduler.Start(context.Background())
}

func (m *cronModule) Stop(ctx context.Context) error {
	return m.scheduler.Stop(ctx)
}

// collectSecrets returns the values of secretKeys found anywhere in the
// module configuration trees.
func collectSecrets(modules map[string]yaml.Node) []string {
	var secrets []string
	var walk func(n *yaml.Node)
	walk = func(n *yaml.Node) {
		switch n.Kind {
		case yaml.MappingNode:
			for i := 0; i+1 < len(n.Content); i += 2 {
				key, val := n.Content[i], n.Content[i+1]
				if val.Kind == yaml.ScalarNode && secretKeys[strings.ToLower(key.Value)] && val.Value != "" {
					secrets = append(secrets, val.Value)
					continue
				}
				walk(val)
			}
		case yaml.SequenceNode, yaml.DocumentNode:
			for _, c := range n.Content {
				walk(c)
			}
		}
	}
	for id := range modules {
		node := modules[id]
		walk(&node)
	}
	return secrets
}
