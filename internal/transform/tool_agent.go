package transform

import (
	"context"
	"sync"

	"caprun/internal/capability"
)

// AgentToTool produces a single-action tool whose one action forwards to the
// agent's run entrypoint and returns its final output.
func AgentToTool(name string, agent capability.Component) (capability.Component, error) {
	run, ok := findAction(agent, RunAction)
	if !ok {
		return nil, incompatible("a2t", "source agent has no %q action", RunAction)
	}

	return &adapted{
		name:    name,
		source:  agent,
		actions: []capability.ActionDescriptor{run},
		route:   map[string]string{RunAction: RunAction},
	}, nil
}

// ToolToAgent produces a trivial agent whose run behavior is exactly one
// tool invocation per request. The resulting agent also supports stepping:
// each step is one invocation that immediately completes.
func ToolToAgent(name string, tool capability.Component) (capability.Component, error) {
	actions := tool.Actions()
	if len(actions) != 1 {
		return nil, incompatible("t2a", "source tool must expose exactly one action, has %d", len(actions))
	}

	run := actions[0]
	run.Name = RunAction
	return &toolAgent{
		adapted: adapted{
			name:    name,
			source:  tool,
			actions: []capability.ActionDescriptor{run},
			route:   map[string]string{RunAction: actions[0].Name},
		},
	}, nil
}

// toolAgent adds the Stepper interface on top of the delegating base.
type toolAgent struct {
	adapted

	mu   sync.Mutex
	last any
}

// Step performs one tool invocation. The agent is done after every step.
func (t *toolAgent) Step(ctx context.Context, input any) (any, bool, error) {
	kwargs, _ := input.(map[string]any)
	out, err := t.adapted.ExecuteAction(ctx, RunAction, kwargs)
	if err != nil {
		return nil, false, err
	}
	t.mu.Lock()
	t.last = out
	t.mu.Unlock()
	return out, true, nil
}

// Reset clears the remembered output.
func (t *toolAgent) Reset(ctx context.Context) error {
	t.mu.Lock()
	t.last = nil
	t.mu.Unlock()
	return nil
}
