// Package gemini implements the provider.gemini module: a completion.Completer
// backed by the Gemini generateContent REST endpoint.
package gemini

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/flemzord/sigma/internal/completion"
	"github.com/flemzord/sigma/internal/core"
	"github.com/flemzord/sigma/internal/metrics"
	"github.com/flemzord/sigma/internal/tracing"
	"gopkg.in/yaml.v3"
)

// ServiceName is the key the provider registers itself under.
const ServiceName = "provider.gemini"

func init() {
	core.RegisterModule(&Provider{})
}

// Compile-time interface guards.
var (
	_ completion.Completer = (*Provider)(nil)
	_ core.Module          = (*Provider)(nil)
	_ core.Configurable    = (*Provider)(nil)
	_ core.Provisioner     = (*Provider)(nil)
	_ core.Validator       = (*Provider)(nil)
)

// Provider sends conversation turns to Gemini and returns the first
// candidate's text.
type Provider struct {
	config  Config
	logger  *slog.Logger
	client  *http.Client
	metrics *metrics.Metrics
	tracer  *tracing.Tracer
}

// ModuleInfo implements core.Module.
func (p *Provider) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.gemini",
		New: func() core.Module { return &Provider{} },
	}
}

// Configure implements core.Configurable.
func (p *Provider) Configure(node *yaml.Node) error {
	if err := node.Decode(&p.config); err != nil {
		return err
	}
	p.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (p *Provider) Provision(ctx *core.AppContext) error {
	p.logger = ctx.Logger
	p.config.defaults()

	// The client timeout bounds the whole call, body included.
	p.client = &http.Client{Timeout: p.config.parsedTimeout()}

	if svc, ok := ctx.GetService(metrics.ServiceName); ok {
		p.metrics, _ = svc.(*metrics.Metrics)
	}
	if svc, ok := ctx.GetService(tracing.ServiceName); ok {
		p.tracer, _ = svc.(*tracing.Tracer)
	}

	ctx.RegisterService(ServiceName, p)
	return nil
}

// Validate implements core.Validator.
func (p *Provider) Validate() error {
	if p.config.APIKey == "" {
		return errors.New("provider.gemini: api_key is required")
	}
	return p.config.validateTimeout()
}

// ModelName returns the configured model identifier.
func (p *Provider) ModelName() string {
	return p.config.Model
}
