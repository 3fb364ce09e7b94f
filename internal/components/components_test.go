package components

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"caprun/internal/capability"
	"caprun/internal/facade"
	"caprun/internal/provider"
)

func TestRegisterDefaults(t *testing.T) {
	rt := facade.NewRuntime(facade.Options{})
	defer rt.Close()

	deps := Providers{
		LLM:    provider.NewScriptedLLM("ok"),
		Search: provider.NewScriptedSearch(nil),
		REST:   provider.NewScriptedREST(nil),
	}
	require.NoError(t, RegisterDefaults(rt, deps))

	_, err := rt.Tools.Create("e1", "echo", nil)
	require.NoError(t, err)
	_, err = rt.Environments.Create("c1", "calc", nil)
	require.NoError(t, err)
	_, err = rt.Agents.Create("a1", "llm_chat", nil)
	require.NoError(t, err)
	_, err = rt.Tools.Create("s1", "web_search", nil)
	require.NoError(t, err)
	_, err = rt.Environments.Create("r1", "rest_api", nil)
	require.NoError(t, err)
}

func TestRegisterDefaultsWithoutProviders(t *testing.T) {
	rt := facade.NewRuntime(facade.Options{})
	defer rt.Close()

	require.NoError(t, RegisterDefaults(rt, Providers{}))

	// Provider-backed types were skipped.
	_, err := rt.Agents.Create("a1", "llm_chat", nil)
	require.ErrorIs(t, err, capability.ErrUnknownType)
}

func TestEchoPrefix(t *testing.T) {
	comp, err := NewEcho("e1", map[string]any{"prefix": "> "})
	require.NoError(t, err)

	out, err := comp.ExecuteAction(context.Background(), "say", map[string]any{"text": "hi"})
	require.NoError(t, err)
	require.Equal(t, "> hi", out)
}

func TestCalc(t *testing.T) {
	comp, err := NewCalc("c1", nil)
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		action string
		a, b   float64
		want   float64
	}{
		{"add", 2, 3, 5},
		{"subtract", 10, 4, 6},
		{"multiply", 3, 3, 9},
		{"divide", 8, 2, 4},
	}
	for _, tt := range tests {
		out, err := comp.ExecuteAction(ctx, tt.action, map[string]any{"a": tt.a, "b": tt.b})
		require.NoError(t, err, tt.action)
		require.Equal(t, tt.want, out, tt.action)
	}

	_, err = comp.ExecuteAction(ctx, "divide", map[string]any{"a": 1.0, "b": 0.0})
	require.ErrorIs(t, err, capability.ErrValidation)
}

func TestLLMChatKeepsHistory(t *testing.T) {
	llm := provider.NewScriptedLLM("hello there", "I remember")
	factory := NewLLMChatFactory(llm)
	comp, err := factory("a1", map[string]any{"system": "be brief"})
	require.NoError(t, err)
	ctx := context.Background()

	out, err := comp.ExecuteAction(ctx, "run", map[string]any{"prompt": "hi"})
	require.NoError(t, err)
	require.Equal(t, "hello there", out)

	_, err = comp.ExecuteAction(ctx, "run", map[string]any{"prompt": "what did I say"})
	require.NoError(t, err)

	// The second prompt carries the system seed and the first exchange.
	require.Len(t, llm.Prompts, 2)
	require.Contains(t, llm.Prompts[1], "be brief")
	require.Contains(t, llm.Prompts[1], "hi")
	require.Contains(t, llm.Prompts[1], "hello there")

	// Reset drops history but keeps the system seed.
	stepper := comp.(capability.Stepper)
	require.NoError(t, stepper.Reset(ctx))
}

func TestWebSearchTruncatesResults(t *testing.T) {
	hits := []provider.SearchResult{
		{Title: "one"}, {Title: "two"}, {Title: "three"},
	}
	search := provider.NewScriptedSearch(map[string][]provider.SearchResult{"go": hits})
	comp, err := NewWebSearchFactory(search)("s1", nil)
	require.NoError(t, err)

	out, err := comp.ExecuteAction(context.Background(), "search", map[string]any{
		"query": "go", "max_results": float64(2),
	})
	require.NoError(t, err)
	require.Len(t, out.([]provider.SearchResult), 2)
}

func TestWebSearchIsCacheable(t *testing.T) {
	comp, err := NewWebSearchFactory(provider.NewScriptedSearch(nil))("s1", nil)
	require.NoError(t, err)

	actions := comp.Actions()
	require.Len(t, actions, 1)
	require.Equal(t, "search", actions[0].CacheCategory)
}

func TestRESTAPIDecodesJSON(t *testing.T) {
	rest := provider.NewScriptedREST(map[string]provider.RESTResponse{
		"GET /user": {Status: 200, Body: []byte(`{"login":"octocat","id":1}`)},
	})
	comp, err := NewRESTAPIFactory(rest)("r1", nil)
	require.NoError(t, err)

	out, err := comp.ExecuteAction(context.Background(), "get", map[string]any{"path": "/user"})
	require.NoError(t, err)
	require.Equal(t, "octocat", out.(map[string]any)["login"])

	// Only reads are cacheable.
	for _, act := range comp.Actions() {
		switch act.Name {
		case "get":
			require.Equal(t, "content", act.CacheCategory)
		case "post":
			require.Empty(t, act.CacheCategory)
		}
	}
}
