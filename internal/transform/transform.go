// Package transform implements the six structural adapters that re-expose a
// component of one kind as another kind: A2T, T2A, E2T, T2E, A2E, E2A.
//
// Adapters operate purely on the descriptor model and delegate execution to
// the source component; validation, caching, and resilience still happen in
// the invocation engine once the adapted component is registered. A
// transformation that cannot be applied always fails with
// ErrIncompatibleCapability naming the missing structural feature.
package transform

import (
	"context"
	"fmt"

	"caprun/internal/capability"
)

// Spec describes one transformation: its direction, the structural
// requirement it imposes on the source, and how descriptors map.
type Spec struct {
	Name        string
	Source      capability.Kind
	Target      capability.Kind
	Requirement string
	Mapping     string
}

// Catalog lists all supported transformations.
var Catalog = []Spec{
	{"a2t", capability.KindAgent, capability.KindTool,
		"agent exposes a run action",
		"the run action becomes the tool's single action"},
	{"t2a", capability.KindTool, capability.KindAgent,
		"tool exposes exactly one action",
		"each run is exactly one tool invocation"},
	{"e2t", capability.KindEnvironment, capability.KindTool,
		"none",
		"each environment action becomes one single-action tool, name and schema preserved"},
	{"t2e", capability.KindTool, capability.KindEnvironment,
		"tools expose exactly one action each, with distinct names",
		"each tool becomes one environment action"},
	{"a2e", capability.KindAgent, capability.KindEnvironment,
		"agent supports incremental stepping",
		"step and reset become the environment's actions"},
	{"e2a", capability.KindEnvironment, capability.KindAgent,
		"a decision policy selects one action per step",
		"run repeats choose-then-execute until the terminal action or the step budget"},
}

// RunAction is the conventional entrypoint action every agent exposes.
const RunAction = "run"

// incompatible builds the uniform transformation failure.
func incompatible(transformation, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", capability.ErrIncompatibleCapability,
		transformation, fmt.Sprintf(format, args...))
}

// findAction returns a source action descriptor by name.
func findAction(source capability.Component, name string) (capability.ActionDescriptor, bool) {
	for _, a := range source.Actions() {
		if a.Name == name {
			return a, true
		}
	}
	return capability.ActionDescriptor{}, false
}

// adapted is the shared delegating component: a fixed action set routed onto
// source actions. Teardown is a no-op because the source's lifecycle is
// owned by its own registry entry.
type adapted struct {
	name    string
	source  capability.Component
	actions []capability.ActionDescriptor
	route   map[string]string // adapter action -> source action
}

func (a *adapted) Initialize(ctx context.Context) error {
	return a.source.Initialize(ctx)
}

func (a *adapted) Actions() []capability.ActionDescriptor {
	out := make([]capability.ActionDescriptor, len(a.actions))
	for i, act := range a.actions {
		act.Component = a.name
		out[i] = act
	}
	return out
}

func (a *adapted) ExecuteAction(ctx context.Context, action string, kwargs map[string]any) (any, error) {
	target, ok := a.route[action]
	if !ok {
		return nil, fmt.Errorf("%w: action %q", capability.ErrNotFound, action)
	}
	return a.source.ExecuteAction(ctx, target, kwargs)
}

func (a *adapted) Teardown(ctx context.Context) error { return nil }
