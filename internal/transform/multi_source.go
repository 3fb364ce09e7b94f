package transform

import (
	"context"
	"fmt"

	"caprun/internal/capability"
)

// multiSource is the T2E component: one action set routed onto several
// source tools.
type multiSource struct {
	name    string
	actions []capability.ActionDescriptor
	sources []capability.Component
	route   map[string]int // action name -> index into sources
}

func (m *multiSource) Initialize(ctx context.Context) error {
	for _, src := range m.sources {
		if err := src.Initialize(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (m *multiSource) Actions() []capability.ActionDescriptor {
	out := make([]capability.ActionDescriptor, len(m.actions))
	for i, act := range m.actions {
		act.Component = m.name
		out[i] = act
	}
	return out
}

func (m *multiSource) ExecuteAction(ctx context.Context, action string, kwargs map[string]any) (any, error) {
	idx, ok := m.route[action]
	if !ok {
		return nil, fmt.Errorf("%w: action %q", capability.ErrNotFound, action)
	}
	return m.sources[idx].ExecuteAction(ctx, action, kwargs)
}

func (m *multiSource) Teardown(ctx context.Context) error { return nil }
