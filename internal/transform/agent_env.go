package transform

import (
	"context"
	"fmt"
	"sync"

	"caprun/internal/capability"
)

// AgentToEnvironment exposes a stepping agent as an environment with two
// actions: step, which advances the agent by one increment, and reset, which
// returns it to its initial state. Agents that cannot step incrementally are
// incompatible.
func AgentToEnvironment(name string, agent capability.Component) (capability.Component, error) {
	stepper, ok := agent.(capability.Stepper)
	if !ok {
		return nil, incompatible("a2e", "source agent does not support incremental stepping")
	}

	return &steppedEnv{name: name, source: agent, stepper: stepper}, nil
}

// steppedEnv drives a Stepper through environment-shaped actions. Teardown is
// a no-op because the source's lifecycle is owned by its own registry entry.
type steppedEnv struct {
	name    string
	source  capability.Component
	stepper capability.Stepper
}

func (e *steppedEnv) Initialize(ctx context.Context) error {
	return e.source.Initialize(ctx)
}

func (e *steppedEnv) Actions() []capability.ActionDescriptor {
	return []capability.ActionDescriptor{
		{
			Name:        "step",
			Description: "advance the agent by one increment",
			Parameters: capability.ParameterSchema{
				"input": {Type: "object", Description: "observation passed to the agent"},
			},
			Order:     []string{"input"},
			Component: e.name,
		},
		{
			Name:        "reset",
			Description: "return the agent to its initial state",
			Parameters:  capability.ParameterSchema{},
			Component:   e.name,
		},
	}
}

func (e *steppedEnv) ExecuteAction(ctx context.Context, action string, kwargs map[string]any) (any, error) {
	switch action {
	case "step":
		out, done, err := e.stepper.Step(ctx, kwargs["input"])
		if err != nil {
			return nil, err
		}
		return map[string]any{"output": out, "done": done}, nil
	case "reset":
		return nil, e.stepper.Reset(ctx)
	default:
		return nil, fmt.Errorf("%w: action %q", capability.ErrNotFound, action)
	}
}

func (e *steppedEnv) Teardown(ctx context.Context) error { return nil }

// Policy selects the environment action to take next given the last
// observation and the actions on offer.
type Policy func(ctx context.Context, observation any, actions []capability.ActionDescriptor) (action string, kwargs map[string]any, err error)

// EnvironmentToAgent wraps an environment in a decision loop: each run
// repeatedly asks the policy for an action, executes it, and feeds the result
// back as the next observation. The loop ends when the policy selects
// terminal, or after maxSteps iterations.
func EnvironmentToAgent(name string, env capability.Component, policy Policy, terminal string, maxSteps int) (capability.Component, error) {
	if policy == nil {
		return nil, incompatible("e2a", "no decision policy given")
	}
	if len(env.Actions()) == 0 {
		return nil, incompatible("e2a", "source environment exposes no actions")
	}
	if maxSteps <= 0 {
		maxSteps = defaultStepBudget
	}

	return &policyAgent{
		name:     name,
		source:   env,
		policy:   policy,
		terminal: terminal,
		maxSteps: maxSteps,
	}, nil
}

const defaultStepBudget = 25

// policyAgent is the E2A component. It exposes the conventional run action
// and also supports stepping, where each step is one choose-then-execute
// round.
type policyAgent struct {
	name     string
	source   capability.Component
	policy   Policy
	terminal string
	maxSteps int

	mu    sync.Mutex
	obs   any
	steps int
}

func (p *policyAgent) Initialize(ctx context.Context) error {
	return p.source.Initialize(ctx)
}

func (p *policyAgent) Actions() []capability.ActionDescriptor {
	return []capability.ActionDescriptor{{
		Name:        RunAction,
		Description: "run the decision loop over the source environment",
		Parameters: capability.ParameterSchema{
			"input": {Type: "object", Description: "initial observation"},
		},
		Order:     []string{"input"},
		Component: p.name,
	}}
}

func (p *policyAgent) ExecuteAction(ctx context.Context, action string, kwargs map[string]any) (any, error) {
	if action != RunAction {
		return nil, fmt.Errorf("%w: action %q", capability.ErrNotFound, action)
	}

	obs := any(kwargs["input"])
	for i := 0; i < p.maxSteps; i++ {
		next, done, err := p.round(ctx, obs)
		if err != nil {
			return nil, err
		}
		obs = next
		if done {
			return obs, nil
		}
	}
	return obs, nil
}

func (p *policyAgent) Teardown(ctx context.Context) error { return nil }

// Step performs one choose-then-execute round against the source
// environment. Done is reported when the policy selects the terminal action
// or the step budget is spent.
func (p *policyAgent) Step(ctx context.Context, input any) (any, bool, error) {
	p.mu.Lock()
	obs := p.obs
	steps := p.steps
	p.mu.Unlock()

	if input != nil {
		obs = input
	}
	if steps >= p.maxSteps {
		return obs, true, nil
	}

	next, done, err := p.round(ctx, obs)
	if err != nil {
		return nil, false, err
	}

	p.mu.Lock()
	p.obs = next
	p.steps = steps + 1
	if p.steps >= p.maxSteps {
		done = true
	}
	p.mu.Unlock()
	return next, done, nil
}

// Reset clears the loop state.
func (p *policyAgent) Reset(ctx context.Context) error {
	p.mu.Lock()
	p.obs = nil
	p.steps = 0
	p.mu.Unlock()
	return nil
}

func (p *policyAgent) round(ctx context.Context, obs any) (any, bool, error) {
	action, kwargs, err := p.policy(ctx, obs, p.source.Actions())
	if err != nil {
		return nil, false, fmt.Errorf("policy: %w", err)
	}
	if action == p.terminal {
		return obs, true, nil
	}
	out, err := p.source.ExecuteAction(ctx, action, kwargs)
	if err != nil {
		return nil, false, err
	}
	return out, false, nil
}
