// Package facade is the only surface callers use: per-kind views (tools,
// environments, agents) over one shared registry, invocation engine, cache,
// and resilience executor, grouped into a Runtime.
package facade

import (
	"context"

	"caprun/internal/capability"
	"caprun/internal/cache"
	"caprun/internal/invoke"
	"caprun/internal/resilience"
)

// Facade exposes one component kind. All execution goes through the shared
// invocation engine, so validation, caching, retries, and health tracking
// apply uniformly.
type Facade struct {
	reg            *capability.Registry
	eng            *invoke.Engine
	maxConcurrency int
}

func newFacade(kind capability.Kind, store cache.Store, exec *resilience.Executor, maxConcurrency int) *Facade {
	reg := capability.NewRegistry(kind)
	if store != nil {
		reg.SetCacheInvalidator(func(component string) { store.InvalidateComponent(component) })
	}
	return &Facade{
		reg:            reg,
		eng:            invoke.New(reg, store, exec),
		maxConcurrency: maxConcurrency,
	}
}

// Kind returns the component kind this facade manages.
func (f *Facade) Kind() capability.Kind { return f.reg.Kind() }

// RegisterType registers a component factory under a type tag.
func (f *Facade) RegisterType(typeTag string, factory capability.Factory) error {
	return f.reg.RegisterType(typeTag, factory)
}

// Create instantiates a component from a registered type.
func (f *Facade) Create(name, typeTag string, config map[string]any) (capability.Descriptor, error) {
	return f.reg.Create(name, typeTag, config)
}

// Attach registers an already-constructed component, bypassing factories.
func (f *Facade) Attach(name, typeTag string, handle capability.Component) (capability.Descriptor, error) {
	return f.reg.Attach(name, typeTag, handle)
}

// Initialize initializes the named components, reporting the resulting
// status per name. It stops at the first unknown name.
func (f *Facade) Initialize(ctx context.Context, names ...string) (map[string]capability.Status, error) {
	statuses := make(map[string]capability.Status, len(names))
	for _, name := range names {
		status, err := f.reg.Initialize(ctx, name)
		if err != nil {
			return statuses, err
		}
		statuses[name] = status
	}
	return statuses, nil
}

// List returns a sorted snapshot of all component descriptors.
func (f *Facade) List() []capability.Descriptor { return f.reg.List() }

// Get returns the descriptor for a named component.
func (f *Facade) Get(name string) (capability.Descriptor, error) { return f.reg.Get(name) }

// Remove tears the named component down and frees its name.
func (f *Facade) Remove(ctx context.Context, name string) error { return f.reg.Remove(ctx, name) }

// Execute runs one action invocation. Failures are captured in the result.
func (f *Facade) Execute(ctx context.Context, name, action string, args []any, kwargs map[string]any) invoke.Result {
	return f.eng.Invoke(ctx, invoke.Request{
		Component: name,
		Action:    action,
		Args:      args,
		Kwargs:    kwargs,
	})
}

// ExecuteMultiple runs the requests concurrently under the facade's
// concurrency limit, returning results in request order.
func (f *Facade) ExecuteMultiple(ctx context.Context, reqs []invoke.Request) []invoke.Result {
	return f.eng.InvokeMany(ctx, reqs, f.maxConcurrency)
}
