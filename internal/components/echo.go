package components

import (
	"context"

	"caprun/internal/capability"
)

// NewEcho is the factory for the echo tool, the smallest useful component:
// say(text) returns text unchanged.
func NewEcho(name string, config map[string]any) (capability.Component, error) {
	e := &echo{name: name}
	if prefix, ok := config["prefix"].(string); ok {
		e.prefix = prefix
	}
	return e, nil
}

type echo struct {
	name   string
	prefix string
}

func (e *echo) Initialize(ctx context.Context) error { return nil }

func (e *echo) Actions() []capability.ActionDescriptor {
	return []capability.ActionDescriptor{{
		Name:        "say",
		Description: "return the given text unchanged",
		Parameters: capability.ParameterSchema{
			"text": {Type: "string", Required: true, Description: "text to echo"},
		},
		Order:     []string{"text"},
		Component: e.name,
	}}
}

func (e *echo) ExecuteAction(ctx context.Context, action string, kwargs map[string]any) (any, error) {
	text, _ := kwargs["text"].(string)
	return e.prefix + text, nil
}

func (e *echo) Teardown(ctx context.Context) error { return nil }
