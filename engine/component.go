package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/clientengine/component"
)

// Component wraps an engine with lifecycle management.
// The engine is built in Start.
type Component struct {
	name    string
	factory *Factory
	config  ClientConfiguration

	mu     sync.RWMutex
	engine *Engine
}

// compile-time assertions
var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// NewComponent creates a component building cfg with factory on Start.
func NewComponent(name string, factory *Factory, cfg ClientConfiguration) *Component {
	if name == "" {
		name = "engine"
	}
	return &Component{name: name, factory: factory, config: cfg}
}

// Name returns the component name.
func (c *Component) Name() string {
	return c.name
}

// Start builds the engine.
func (c *Component) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engine != nil {
		return nil
	}
	e, err := c.factory.Build(c.config)
	if err != nil {
		return err
	}
	c.engine = e
	return nil
}

// Stop closes the engine.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	e := c.engine
	c.engine = nil
	c.mu.Unlock()
	if e == nil {
		return nil
	}
	return e.Close(ctx)
}

// Health reports healthy while an open engine exists.
func (c *Component) Health(_ context.Context) component.Health {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.engine == nil || c.engine.isClosed() {
		return component.Health{Name: c.name, Status: component.StatusUnhealthy, Message: "engine not started"}
	}
	return component.Health{Name: c.name, Status: component.StatusHealthy}
}

// Describe returns a one-line summary of the engine configuration.
func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("tls=%s cookies=%s redirects=%s",
		onOff(c.config.TLSConfig != nil),
		onOff(c.config.CookieManagementEnabled),
		onOff(c.config.FollowRedirects),
	)
	if proxy := c.config.proxyAddress(); proxy != "" {
		details = "proxy=" + proxy + " " + details
	}
	return component.Description{
		Name:    c.name,
		Type:    "http-client",
		Details: details,
	}
}

// Engine returns the running engine, or nil before Start.
func (c *Component) Engine() *Engine {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.engine
}
