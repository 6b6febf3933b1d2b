// Package sqlite implements the memory.sqlite module: persistent per-user
// sessions in a single SQLite table, using modernc.org/sqlite (pure Go, no
// CGO) in WAL mode.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/flemzord/sigma/internal/core"
	"gopkg.in/yaml.v3"
)

// ServiceName is the key the session store registers itself under.
const ServiceName = "memory.sessions"

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module owns the session database for the process lifetime.
type Module struct {
	config Config
	logger *slog.Logger
	store  *SessionStore
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "memory.sqlite",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("sqlite: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner. A database that cannot be opened
// or migrated aborts start-up.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if m.config.Path == "" {
		m.config.Path = defaultDBFile
	}
	if !filepath.IsAbs(m.config.Path) && ctx.DataDir != "" {
		m.config.Path = filepath.Join(ctx.DataDir, m.config.Path)
	}

	store, err := Open(context.TODO(), m.config)
	if err != nil {
		return err
	}
	m.store = store

	ctx.RegisterService(ServiceName, m.store)

	m.logger.Info("sqlite session store provisioned",
		"path", m.config.Path,
		"wal", m.config.walEnabled(),
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}
	if err := m.store.Ping(context.TODO()); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	if _, err := m.store.Count(context.TODO()); err != nil {
		return err
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	if m.store == nil {
		return nil
	}
	m.logger.Info("sqlite session store stopping")
	return m.store.Close()
}

// Store returns the session store.
func (m *Module) Store() *SessionStore {
	return m.store
}
