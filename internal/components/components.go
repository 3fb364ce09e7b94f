// Package components provides the built-in component types: the echo tool,
// the calc environment, and provider-backed components for chat, search, and
// REST access.
package components

import (
	"caprun/internal/facade"
	"caprun/internal/provider"
)

// Providers carries the backend clients the built-in components need.
type Providers struct {
	LLM    provider.LLMClient
	Search provider.SearchClient
	REST   provider.RESTClient
}

// RegisterDefaults registers every built-in component type on the runtime.
// Types whose backend client is missing are skipped.
func RegisterDefaults(rt *facade.Runtime, deps Providers) error {
	if err := rt.Tools.RegisterType("echo", NewEcho); err != nil {
		return err
	}
	if err := rt.Environments.RegisterType("calc", NewCalc); err != nil {
		return err
	}
	if deps.LLM != nil {
		if err := rt.Agents.RegisterType("llm_chat", NewLLMChatFactory(deps.LLM)); err != nil {
			return err
		}
	}
	if deps.Search != nil {
		if err := rt.Tools.RegisterType("web_search", NewWebSearchFactory(deps.Search)); err != nil {
			return err
		}
	}
	if deps.REST != nil {
		if err := rt.Environments.RegisterType("rest_api", NewRESTAPIFactory(deps.REST)); err != nil {
			return err
		}
	}
	return nil
}
