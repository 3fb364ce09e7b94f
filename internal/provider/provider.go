// Package provider defines the external backend clients components build on:
// LLM completion, web search, and REST APIs. Implementations surface rate
// limiting through resilience.RateLimitError so the executor can honor the
// backend's reset hint.
package provider

import (
	"context"
	"encoding/json"
	"net/http"
)

// LLMClient completes prompts against a language model backend.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// SearchResult is one hit from a search backend.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// SearchClient queries a web search backend.
type SearchClient interface {
	Search(ctx context.Context, query string, params map[string]any) ([]SearchResult, error)
}

// RESTClient issues requests against a JSON REST API. The response headers
// are returned so callers can inspect rate-limit state.
type RESTClient interface {
	Request(ctx context.Context, method, path string, body any) (json.RawMessage, http.Header, error)
}
