package components

import (
	"context"
	"fmt"

	"caprun/internal/capability"
	"caprun/internal/provider"
)

// NewWebSearchFactory builds the factory for the web_search tool. Results
// are cached under the search tier.
func NewWebSearchFactory(client provider.SearchClient) capability.Factory {
	return func(name string, config map[string]any) (capability.Component, error) {
		if client == nil {
			return nil, fmt.Errorf("%w: web_search requires a search client", capability.ErrValidation)
		}
		return &webSearch{name: name, client: client}, nil
	}
}

type webSearch struct {
	name   string
	client provider.SearchClient
}

func (w *webSearch) Initialize(ctx context.Context) error { return nil }

func (w *webSearch) Actions() []capability.ActionDescriptor {
	return []capability.ActionDescriptor{{
		Name:        "search",
		Description: "query the web and return ranked results",
		Parameters: capability.ParameterSchema{
			"query":       {Type: "string", Required: true},
			"max_results": {Type: "integer", Default: 5},
		},
		Order:         []string{"query", "max_results"},
		Component:     w.name,
		CacheCategory: "search",
	}}
}

func (w *webSearch) ExecuteAction(ctx context.Context, action string, kwargs map[string]any) (any, error) {
	query, _ := kwargs["query"].(string)
	hits, err := w.client.Search(ctx, query, kwargs)
	if err != nil {
		return nil, err
	}

	max := 5
	if n, ok := toFloat(kwargs["max_results"]); ok && n > 0 {
		max = int(n)
	}
	if len(hits) > max {
		hits = hits[:max]
	}
	return hits, nil
}

func (w *webSearch) Teardown(ctx context.Context) error { return nil }
