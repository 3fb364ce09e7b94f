package components

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"caprun/internal/capability"
	"caprun/internal/provider"
)

// NewLLMChatFactory builds the factory for the llm_chat agent. Each instance
// keeps its own conversation history; config key "system" seeds it.
func NewLLMChatFactory(client provider.LLMClient) capability.Factory {
	return func(name string, config map[string]any) (capability.Component, error) {
		if client == nil {
			return nil, fmt.Errorf("%w: llm_chat requires an LLM client", capability.ErrValidation)
		}
		a := &llmChat{name: name, client: client}
		if system, ok := config["system"].(string); ok {
			a.system = system
		}
		return a, nil
	}
}

type llmChat struct {
	name   string
	client provider.LLMClient
	system string

	mu      sync.Mutex
	history []string
}

func (a *llmChat) Initialize(ctx context.Context) error { return nil }

func (a *llmChat) Actions() []capability.ActionDescriptor {
	return []capability.ActionDescriptor{{
		Name:        "run",
		Description: "send a prompt and return the completion",
		Parameters: capability.ParameterSchema{
			"prompt": {Type: "string", Required: true},
		},
		Order:     []string{"prompt"},
		Component: a.name,
	}}
}

func (a *llmChat) ExecuteAction(ctx context.Context, action string, kwargs map[string]any) (any, error) {
	if action != "run" {
		return nil, fmt.Errorf("%w: action %q", capability.ErrNotFound, action)
	}
	prompt, _ := kwargs["prompt"].(string)
	return a.complete(ctx, prompt)
}

func (a *llmChat) Teardown(ctx context.Context) error { return nil }

// Step sends one conversational turn. The agent never reports done on its
// own; the caller decides when the conversation ends.
func (a *llmChat) Step(ctx context.Context, input any) (any, bool, error) {
	prompt := fmt.Sprintf("%v", input)
	if m, ok := input.(map[string]any); ok {
		if p, ok := m["prompt"].(string); ok {
			prompt = p
		}
	}
	out, err := a.complete(ctx, prompt)
	if err != nil {
		return nil, false, err
	}
	return out, false, nil
}

// Reset drops the conversation history.
func (a *llmChat) Reset(ctx context.Context) error {
	a.mu.Lock()
	a.history = nil
	a.mu.Unlock()
	return nil
}

func (a *llmChat) complete(ctx context.Context, prompt string) (string, error) {
	a.mu.Lock()
	var b strings.Builder
	if a.system != "" {
		b.WriteString(a.system)
		b.WriteString("\n\n")
	}
	for _, turn := range a.history {
		b.WriteString(turn)
		b.WriteString("\n")
	}
	b.WriteString(prompt)
	full := b.String()
	a.mu.Unlock()

	reply, err := a.client.Complete(ctx, full)
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	a.history = append(a.history, prompt, reply)
	a.mu.Unlock()
	return reply, nil
}
