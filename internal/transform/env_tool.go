package transform

import (
	"caprun/internal/capability"
)

// NamedComponent pairs an adapted component with the name it should be
// registered under.
type NamedComponent struct {
	Name      string
	Component capability.Component
}

// EnvironmentToTools maps each environment action 1:1 to a single-action
// tool, preserving action name and parameter schema exactly. Tool names are
// "<prefix>_<action>".
func EnvironmentToTools(prefix string, env capability.Component) ([]NamedComponent, error) {
	actions := env.Actions()
	if len(actions) == 0 {
		return nil, incompatible("e2t", "source environment exposes no actions")
	}

	out := make([]NamedComponent, 0, len(actions))
	for _, act := range actions {
		toolName := prefix + "_" + act.Name
		out = append(out, NamedComponent{
			Name: toolName,
			Component: &adapted{
				name:    toolName,
				source:  env,
				actions: []capability.ActionDescriptor{act},
				route:   map[string]string{act.Name: act.Name},
			},
		})
	}
	return out, nil
}

// ToolsToEnvironment groups a set of single-action tools into one
// environment; each tool's action becomes one environment action with its
// schema preserved exactly.
func ToolsToEnvironment(name string, tools []capability.Component) (capability.Component, error) {
	if len(tools) == 0 {
		return nil, incompatible("t2e", "no source tools given")
	}

	env := &multiSource{name: name}
	seen := make(map[string]bool)
	for _, tool := range tools {
		actions := tool.Actions()
		if len(actions) != 1 {
			return nil, incompatible("t2e", "source tool must expose exactly one action, has %d", len(actions))
		}
		act := actions[0]
		if seen[act.Name] {
			return nil, incompatible("t2e", "duplicate action name %q across source tools", act.Name)
		}
		seen[act.Name] = true
		env.actions = append(env.actions, act)
		env.sources = append(env.sources, tool)
		if env.route == nil {
			env.route = make(map[string]int)
		}
		env.route[act.Name] = len(env.sources) - 1
	}
	return env, nil
}
