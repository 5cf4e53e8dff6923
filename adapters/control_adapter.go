// Package adapters
//
// Control adapter implementing api.Control interface using control package primitives.
// Backs bridge.Context's observability surface: queue depth, drop counters,
// and registered-socket counts are exposed here as debug probes and metrics.

package adapters

import (
	"github.com/momentics/zmqbridge/api"
	"github.com/momentics/zmqbridge/control"
)

type ControlAdapter struct {
	config  *control.ConfigStore
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
}

// Ensure compile-time compliance with api.Control.
var _ api.Control = (*ControlAdapter)(nil)

// NewControlAdapter constructs a ControlAdapter with an empty config,
// metrics registry, and debug probe set. Returned as a concrete type so
// callers that need the bridge-specific IncrMetric/SetMetric affordances
// (not part of api.Control) can use them directly.
func NewControlAdapter() *ControlAdapter {
	adapter := &ControlAdapter{
		config:  control.NewConfigStore(),
		metrics: control.NewMetricsRegistry(),
		debug:   control.NewDebugProbes(),
	}
	control.RegisterPlatformProbes(adapter.debug)
	return adapter
}

func (c *ControlAdapter) GetConfig() map[string]any {
	return c.config.GetSnapshot()
}
func (c *ControlAdapter) SetConfig(cfg map[string]any) error {
	c.config.SetConfig(cfg)
	return nil
}
func (c *ControlAdapter) Stats() map[string]any {
	stats := c.metrics.GetSnapshot()
	debugStats := c.debug.DumpState()
	combined := make(map[string]any)
	for k, v := range stats {
		combined[k] = v
	}
	for k, v := range debugStats {
		combined["debug."+k] = v
	}
	return combined
}
func (c *ControlAdapter) OnReload(fn func()) {
	c.config.OnReload(fn)
}
func (c *ControlAdapter) SetMetric(key string, value any) {
	c.metrics.Set(key, value)
}

// IncrMetric bumps a monotonic counter, used by the channel loop for
// drop/delivery counts where a point-in-time Set would lose history.
func (c *ControlAdapter) IncrMetric(key string, delta int64) {
	c.metrics.Incr(key, delta)
}

func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}
