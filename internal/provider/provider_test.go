package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"caprun/internal/resilience"
)

func TestRateLimited(t *testing.T) {
	fixed := time.Unix(1_700_000_000, 0)
	now = func() time.Time { return fixed }
	defer func() { now = time.Now }()

	tests := []struct {
		name    string
		status  int
		header  http.Header
		want    time.Duration
		limited bool
	}{
		{
			name:    "429 with Retry-After",
			status:  429,
			header:  http.Header{"Retry-After": {"30"}},
			want:    30 * time.Second,
			limited: true,
		},
		{
			name:    "429 without hint",
			status:  429,
			header:  http.Header{},
			limited: true,
		},
		{
			name:   "403 with remaining quota",
			status: 403,
			header: http.Header{"X-Ratelimit-Remaining": {"12"}},
		},
		{
			name:   "403 exhausted with reset",
			status: 403,
			header: http.Header{
				"X-Ratelimit-Remaining": {"0"},
				"X-Ratelimit-Reset":     {"1700000090"},
			},
			want:    90 * time.Second,
			limited: true,
		},
		{
			name:   "403 exhausted with stale reset",
			status: 403,
			header: http.Header{
				"X-Ratelimit-Remaining": {"0"},
				"X-Ratelimit-Reset":     {"1699999000"},
			},
			limited: true,
		},
		{
			name:   "200 never limited",
			status: 200,
			header: http.Header{"X-Ratelimit-Remaining": {"0"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RateLimited("github", tt.status, tt.header)
			if !tt.limited {
				if err != nil {
					t.Fatalf("got %v, want no rate limit", err)
				}
				return
			}
			var rl *resilience.RateLimitError
			if !errors.As(err, &rl) {
				t.Fatalf("got %v, want RateLimitError", err)
			}
			if rl.Provider != "github" {
				t.Errorf("provider = %q, want github", rl.Provider)
			}
			if rl.RetryAfter != tt.want {
				t.Errorf("RetryAfter = %v, want %v", rl.RetryAfter, tt.want)
			}
		})
	}
}

func TestScriptedLLM(t *testing.T) {
	llm := NewScriptedLLM("first", "second")

	out, err := llm.Complete(context.Background(), "p1")
	if err != nil || out != "first" {
		t.Fatalf("got (%q, %v), want first", out, err)
	}
	out, _ = llm.Complete(context.Background(), "p2")
	if out != "second" {
		t.Errorf("got %q, want second", out)
	}

	// Exhausted script fails loudly.
	if _, err := llm.Complete(context.Background(), "p3"); err == nil {
		t.Error("exhausted script should fail")
	}

	if len(llm.Prompts) != 3 || llm.Prompts[0] != "p1" {
		t.Errorf("recorded prompts %v", llm.Prompts)
	}
}

func TestScriptedLLMQueuedError(t *testing.T) {
	boom := errors.New("backend down")
	llm := NewScriptedLLM("after").FailWith(boom)

	if _, err := llm.Complete(context.Background(), "p"); !errors.Is(err, boom) {
		t.Fatalf("got %v, want queued error", err)
	}
	if out, err := llm.Complete(context.Background(), "p"); err != nil || out != "after" {
		t.Errorf("got (%q, %v), want reply after the queued error", out, err)
	}
}

func TestScriptedSearch(t *testing.T) {
	search := NewScriptedSearch(map[string][]SearchResult{
		"golang": {{Title: "The Go Programming Language", URL: "https://go.dev"}},
	})

	hits, err := search.Search(context.Background(), "golang", nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].URL != "https://go.dev" {
		t.Errorf("got %+v", hits)
	}

	hits, err = search.Search(context.Background(), "unknown", nil)
	if err != nil || len(hits) != 0 {
		t.Errorf("unknown query: got (%v, %v), want empty", hits, err)
	}
}

func TestScriptedRESTRateLimit(t *testing.T) {
	rest := NewScriptedREST(map[string]RESTResponse{
		"GET /user": {
			Status: 200,
			Body:   json.RawMessage(`{"login":"octocat"}`),
			Header: http.Header{"X-Ratelimit-Remaining": {"58"}},
		},
		"GET /rate_limited": {
			Status: 429,
			Header: http.Header{"Retry-After": {"7"}},
		},
	})

	body, header, err := rest.Request(context.Background(), "GET", "/user", nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if string(body) != `{"login":"octocat"}` {
		t.Errorf("body = %s", body)
	}
	if header.Get("X-RateLimit-Remaining") != "58" {
		t.Errorf("header not surfaced: %v", header)
	}

	_, _, err = rest.Request(context.Background(), "GET", "/rate_limited", nil)
	var rl *resilience.RateLimitError
	if !errors.As(err, &rl) || rl.RetryAfter != 7*time.Second {
		t.Fatalf("got %v, want RateLimitError with 7s hint", err)
	}
}
