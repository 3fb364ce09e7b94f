package components

import (
	"context"
	"fmt"

	"caprun/internal/capability"
)

// NewCalc is the factory for the calc environment: stateless arithmetic over
// a handful of actions.
func NewCalc(name string, config map[string]any) (capability.Component, error) {
	return &calc{name: name}, nil
}

type calc struct {
	name string
}

func (c *calc) Initialize(ctx context.Context) error { return nil }

func (c *calc) Actions() []capability.ActionDescriptor {
	binary := func(action, desc string) capability.ActionDescriptor {
		return capability.ActionDescriptor{
			Name:        action,
			Description: desc,
			Parameters: capability.ParameterSchema{
				"a": {Type: "number", Required: true},
				"b": {Type: "number", Required: true},
			},
			Order:     []string{"a", "b"},
			Component: c.name,
		}
	}
	return []capability.ActionDescriptor{
		binary("add", "a + b"),
		binary("subtract", "a - b"),
		binary("multiply", "a * b"),
		binary("divide", "a / b"),
	}
}

func (c *calc) ExecuteAction(ctx context.Context, action string, kwargs map[string]any) (any, error) {
	a, aok := toFloat(kwargs["a"])
	b, bok := toFloat(kwargs["b"])
	if !aok || !bok {
		return nil, fmt.Errorf("%w: operands must be numbers", capability.ErrValidation)
	}

	switch action {
	case "add":
		return a + b, nil
	case "subtract":
		return a - b, nil
	case "multiply":
		return a * b, nil
	case "divide":
		if b == 0 {
			return nil, fmt.Errorf("%w: division by zero", capability.ErrValidation)
		}
		return a / b, nil
	default:
		return nil, fmt.Errorf("%w: action %q", capability.ErrNotFound, action)
	}
}

func (c *calc) Teardown(ctx context.Context) error { return nil }

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
