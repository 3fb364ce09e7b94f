// Package capability defines the descriptor model and typed registry that
// every caprun component lives behind.
//
// A component is any implementation of the Component interface: a Tool
// (exactly one action), an Environment (a set of related actions), or an
// Agent (a "run" entrypoint, optionally incremental via Stepper). The
// registry owns component lifecycle; the invocation engine owns execution
// and status health transitions.
package capability

import (
	"context"
	"time"
)

// Kind classifies a component.
type Kind string

const (
	KindTool        Kind = "tool"
	KindEnvironment Kind = "environment"
	KindAgent       Kind = "agent"
)

// Status is the lifecycle state of a registered component.
//
// Transitions: Uninitialized -> {Ready, Degraded}; Ready <-> Degraded
// (transient health, flipped only by the invocation engine); any -> Removed
// (terminal, registry only).
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusReady         Status = "ready"
	StatusDegraded      Status = "degraded"
	StatusRemoved       Status = "removed"
)

// ParamSpec describes one parameter of an action.
type ParamSpec struct {
	Type        string `json:"type" yaml:"type"`
	Required    bool   `json:"required" yaml:"required"`
	Default     any    `json:"default,omitempty" yaml:"default,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ParameterSchema maps parameter name to its spec.
type ParameterSchema map[string]ParamSpec

// ActionDescriptor describes one schema-validated action of a component.
type ActionDescriptor struct {
	// Name is unique within the owning component.
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  ParameterSchema `json:"parameters,omitempty"`

	// Order lists parameter names in declaration order. Positional
	// arguments bind in this order.
	Order []string `json:"order,omitempty"`

	// Component is the owning component name. Filled in by the registry
	// and by transformation adapters.
	Component string `json:"component,omitempty"`

	// CacheCategory selects the cache tier for results of this action.
	// Empty means the action is not cacheable.
	CacheCategory string `json:"cache_category,omitempty"`
}

// Component is the fixed capability set every component must satisfy.
// Implementations must be safe for concurrent ExecuteAction calls.
type Component interface {
	// Initialize prepares the component for execution. Must be idempotent.
	Initialize(ctx context.Context) error

	// Actions returns the component's action descriptors.
	Actions() []ActionDescriptor

	// ExecuteAction runs one action with bound keyword arguments.
	ExecuteAction(ctx context.Context, action string, kwargs map[string]any) (any, error)

	// Teardown releases the underlying handle. Called once on removal.
	Teardown(ctx context.Context) error
}

// Stepper is the optional incremental interface for agents. A2E requires it.
type Stepper interface {
	// Step advances the agent by one increment. done reports whether the
	// agent considers its current task finished.
	Step(ctx context.Context, input any) (output any, done bool, err error)

	// Reset clears conversational state.
	Reset(ctx context.Context) error
}

// Factory constructs a component instance from its creation config.
type Factory func(name string, config map[string]any) (Component, error)

// Descriptor is the registry's metadata record for one component.
type Descriptor struct {
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	TypeTag   string    `json:"type_tag"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`

	// Cause records why the component is Degraded. Nil while healthy.
	Cause error `json:"-"`

	// Handle is the opaque underlying implementation.
	Handle Component `json:"-"`
}

// Action returns the descriptor for a named action, or false.
func (d *Descriptor) Action(name string) (ActionDescriptor, bool) {
	if d.Handle == nil {
		return ActionDescriptor{}, false
	}
	for _, a := range d.Handle.Actions() {
		if a.Name == name {
			a.Component = d.Name
			return a, true
		}
	}
	return ActionDescriptor{}, false
}
