package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// ScriptedLLM replays a fixed sequence of completions. Tests use it to drive
// agents deterministically.
type ScriptedLLM struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	Prompts []string
}

// NewScriptedLLM builds a client that returns the given replies in order.
func NewScriptedLLM(replies ...string) *ScriptedLLM {
	return &ScriptedLLM{replies: replies}
}

// FailWith queues an error returned before any remaining replies.
func (s *ScriptedLLM) FailWith(err error) *ScriptedLLM {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
	return s
}

func (s *ScriptedLLM) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Prompts = append(s.Prompts, prompt)

	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return "", err
	}
	if len(s.replies) == 0 {
		return "", fmt.Errorf("scripted llm: no reply queued for prompt %q", prompt)
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

// ScriptedSearch returns canned results keyed by query.
type ScriptedSearch struct {
	mu      sync.Mutex
	results map[string][]SearchResult
	err     error
	Queries []string
}

// NewScriptedSearch builds a client over a query -> results table.
func NewScriptedSearch(results map[string][]SearchResult) *ScriptedSearch {
	return &ScriptedSearch{results: results}
}

// FailWith makes every subsequent search return err.
func (s *ScriptedSearch) FailWith(err error) *ScriptedSearch {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

func (s *ScriptedSearch) Search(ctx context.Context, query string, params map[string]any) ([]SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Queries = append(s.Queries, query)

	if s.err != nil {
		return nil, s.err
	}
	return s.results[query], nil
}

// ScriptedREST replays canned responses keyed by "METHOD path".
type ScriptedREST struct {
	mu        sync.Mutex
	responses map[string]RESTResponse
	Calls     []string
}

// RESTResponse is one canned REST exchange.
type RESTResponse struct {
	Status int
	Body   json.RawMessage
	Header http.Header
}

// NewScriptedREST builds a client over a "METHOD path" -> response table.
func NewScriptedREST(responses map[string]RESTResponse) *ScriptedREST {
	return &ScriptedREST{responses: responses}
}

func (s *ScriptedREST) Request(ctx context.Context, method, path string, body any) (json.RawMessage, http.Header, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	key := method + " " + path
	s.mu.Lock()
	resp, ok := s.responses[key]
	s.Calls = append(s.Calls, key)
	s.mu.Unlock()

	if !ok {
		return nil, nil, fmt.Errorf("scripted rest: no response for %s", key)
	}
	if err := RateLimited("rest", resp.Status, resp.Header); err != nil {
		return nil, resp.Header, err
	}
	if resp.Status >= 400 {
		return nil, resp.Header, fmt.Errorf("rest: %s returned %d", key, resp.Status)
	}
	return resp.Body, resp.Header, nil
}
