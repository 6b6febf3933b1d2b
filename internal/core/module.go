// Package core provides the module system sigma is assembled from: a global
// registry of module constructors, an AppContext shared during provisioning,
// and an App that drives the Configure → Provision → Validate → Start → Stop
// lifecycle.
package core

import (
	"context"

	"gopkg.in/yaml.v3"
)

// ModuleID is a dotted module identifier such as "channel.telegram".
type ModuleID string

// Namespace returns the part of the ID before the first dot.
func (id ModuleID) Namespace() string {
	for i := 0; i < len(id); i++ {
		if id[i] == '.' {
			return string(id[:i])
		}
	}
	return ""
}

// ModuleInfo describes a registrable module.
type ModuleInfo struct {
	ID  ModuleID
	New func() Module
}

// Module is implemented by every sigma module.
type Module interface {
	ModuleInfo() ModuleInfo
}

// Configurable is implemented by modules that accept YAML configuration.
// Called after instantiation and before Provision().
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner is implemented by modules that need setup after instantiation:
// opening files, building clients, registering services.
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator is implemented by modules that can verify their configuration.
// Called after Provision(). Validate should be read-only.
type Validator interface {
	Validate() error
}

// Starter is implemented by modules that run background work.
type Starter interface {
	Start() error
}

// Stopper is implemented by modules that hold resources.
// Called during shutdown in reverse order of Start().
type Stopper interface {
	Stop(ctx context.Context) error
}
