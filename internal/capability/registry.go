package capability

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"caprun/internal/logging"
)

// CacheInvalidator is called when a component transitions to Degraded so its
// cached results are not served while the component is known unhealthy. Keeps
// the registry cache-agnostic.
type CacheInvalidator func(component string)

// Registry holds named, typed components of one kind and drives their
// lifecycle. It is safe for concurrent use; operations on unrelated names
// never block each other beyond map access.
type Registry struct {
	kind Kind

	mu         sync.RWMutex
	factories  map[string]Factory
	components map[string]*Descriptor

	invalidate CacheInvalidator
}

// NewRegistry creates an empty registry for one component kind.
func NewRegistry(kind Kind) *Registry {
	return &Registry{
		kind:       kind,
		factories:  make(map[string]Factory),
		components: make(map[string]*Descriptor),
	}
}

// Kind returns the component kind this registry manages.
func (r *Registry) Kind() Kind { return r.kind }

// SetCacheInvalidator installs the hook fired on Degraded transitions.
func (r *Registry) SetCacheInvalidator(fn CacheInvalidator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidate = fn
}

// RegisterType registers a factory under a type tag. Re-registering a tag
// replaces the factory; instances already created are unaffected.
func (r *Registry) RegisterType(typeTag string, factory Factory) error {
	if typeTag == "" {
		return fmt.Errorf("%w: empty type tag", ErrValidation)
	}
	if factory == nil {
		return fmt.Errorf("%w: nil factory for type %q", ErrValidation, typeTag)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[typeTag] = factory
	logging.Get(logging.CategoryRegistry).Debugf("registered type %q (kind=%s)", typeTag, r.kind)
	return nil
}

// MustRegisterType registers a factory and panics on error. For static
// registration at startup.
func (r *Registry) MustRegisterType(typeTag string, factory Factory) {
	if err := r.RegisterType(typeTag, factory); err != nil {
		panic(fmt.Sprintf("failed to register type %s: %v", typeTag, err))
	}
}

// Create instantiates a component from a registered type and records it
// under name in the Uninitialized state.
func (r *Registry) Create(name, typeTag string, config map[string]any) (Descriptor, error) {
	if name == "" {
		return Descriptor{}, fmt.Errorf("%w: empty component name", ErrValidation)
	}

	r.mu.Lock()
	factory, ok := r.factories[typeTag]
	if !ok {
		r.mu.Unlock()
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownType, typeTag)
	}
	if _, taken := r.components[name]; taken {
		r.mu.Unlock()
		return Descriptor{}, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	// Reserve the name before constructing so two concurrent Creates of the
	// same name cannot both succeed.
	placeholder := &Descriptor{Name: name, Kind: r.kind, TypeTag: typeTag, Status: StatusUninitialized}
	r.components[name] = placeholder
	r.mu.Unlock()

	handle, err := factory(name, config)
	if err != nil {
		r.mu.Lock()
		delete(r.components, name)
		r.mu.Unlock()
		return Descriptor{}, fmt.Errorf("creating %q from type %q: %w", name, typeTag, err)
	}

	r.mu.Lock()
	placeholder.Handle = handle
	placeholder.CreatedAt = time.Now()
	desc := *placeholder
	r.mu.Unlock()

	logging.Get(logging.CategoryRegistry).Debugf("created component %q (type=%s, kind=%s)", name, typeTag, r.kind)
	return desc, nil
}

// Attach registers an already-constructed component, bypassing factories.
// Transformation adapters use this to expose adapted components.
func (r *Registry) Attach(name, typeTag string, handle Component) (Descriptor, error) {
	if name == "" {
		return Descriptor{}, fmt.Errorf("%w: empty component name", ErrValidation)
	}
	if handle == nil {
		return Descriptor{}, fmt.Errorf("%w: nil component handle", ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.components[name]; taken {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	desc := &Descriptor{
		Name:      name,
		Kind:      r.kind,
		TypeTag:   typeTag,
		Status:    StatusUninitialized,
		CreatedAt: time.Now(),
		Handle:    handle,
	}
	r.components[name] = desc
	return *desc, nil
}

// Initialize moves a component to Ready, or to Degraded with a recorded
// cause when the underlying setup fails. Idempotent: initializing an
// already-Ready component is a no-op returning Ready. A setup failure is
// reported through the returned status, not as an error.
func (r *Registry) Initialize(ctx context.Context, name string) (Status, error) {
	r.mu.RLock()
	desc, ok := r.components[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: component %q", ErrNotFound, name)
	}

	r.mu.RLock()
	status := desc.Status
	handle := desc.Handle
	r.mu.RUnlock()
	if status == StatusReady {
		return StatusReady, nil
	}

	err := handle.Initialize(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if desc.Status == StatusRemoved {
		return "", fmt.Errorf("%w: component %q", ErrNotFound, name)
	}
	if err != nil {
		desc.Status = StatusDegraded
		desc.Cause = err
		logging.Get(logging.CategoryRegistry).Warnf("component %q degraded during initialize: %v", name, err)
		return StatusDegraded, nil
	}
	desc.Status = StatusReady
	desc.Cause = nil
	return StatusReady, nil
}

// Get returns the descriptor for a named component.
func (r *Registry) Get(name string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.components[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: component %q", ErrNotFound, name)
	}
	return *desc, nil
}

// Has reports whether a component is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.components[name]
	return ok
}

// List returns a snapshot of all descriptors sorted by name. Later registry
// mutation does not affect the returned slice.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.components))
	for _, desc := range r.components {
		out = append(out, *desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns all registered component names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered components.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.components)
}

// Remove tears the component down and destroys its descriptor. Removal is
// terminal: removing an absent or already-removed name fails NotFound, and
// the freed name may be reused by a later Create.
func (r *Registry) Remove(ctx context.Context, name string) error {
	r.mu.Lock()
	desc, ok := r.components[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: component %q", ErrNotFound, name)
	}
	desc.Status = StatusRemoved
	handle := desc.Handle
	delete(r.components, name)
	r.mu.Unlock()

	if handle != nil {
		if err := handle.Teardown(ctx); err != nil {
			logging.Get(logging.CategoryRegistry).Warnf("teardown of %q reported: %v", name, err)
		}
	}
	logging.Get(logging.CategoryRegistry).Debugf("removed component %q", name)
	return nil
}

// MarkDegraded records a health failure observed by the invocation engine
// and fires the cache invalidation hook. No-op for unknown names.
func (r *Registry) MarkDegraded(name string, cause error) {
	r.mu.Lock()
	desc, ok := r.components[name]
	var fire CacheInvalidator
	if ok && desc.Status != StatusRemoved && desc.Status != StatusDegraded {
		desc.Status = StatusDegraded
		desc.Cause = cause
		fire = r.invalidate
	}
	r.mu.Unlock()

	if fire != nil {
		fire(name)
		logging.Get(logging.CategoryRegistry).Warnf("component %q degraded: %v", name, cause)
	}
}

// MarkReady records recovery observed by the invocation engine.
func (r *Registry) MarkReady(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if desc, ok := r.components[name]; ok && desc.Status == StatusDegraded {
		desc.Status = StatusReady
		desc.Cause = nil
	}
}
