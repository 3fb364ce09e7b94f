// Package invoke implements the invocation engine: schema-validated single
// and concurrently-batched action execution against registry components,
// with caching and resilience applied per call.
package invoke

import (
	"time"

	"caprun/internal/capability"
)

// Request targets one action of one component.
type Request struct {
	Component string         `json:"component"`
	Action    string         `json:"action"`
	Args      []any          `json:"args,omitempty"`
	Kwargs    map[string]any `json:"kwargs,omitempty"`

	// Timeout bounds this invocation only. Zero means no per-request bound.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// ErrorInfo is the captured failure of one invocation.
type ErrorInfo struct {
	Kind    capability.ErrorKind `json:"kind"`
	Message string               `json:"message"`
}

// Result is the outcome of one invocation. Exactly one of Value and Err is
// populated. Errors during invocation are captured here, never raised across
// the facade boundary.
type Result struct {
	Success bool       `json:"success"`
	Value   any        `json:"value,omitempty"`
	Err     *ErrorInfo `json:"error,omitempty"`

	// Elapsed is wall time for the whole invocation including retries.
	Elapsed time.Duration `json:"elapsed"`

	// Attempts counts external call attempts. Zero for cache hits and
	// failures before execution.
	Attempts int `json:"attempts"`

	// Cached reports that the value was served from the cache.
	Cached bool `json:"cached,omitempty"`
}

// failure builds an error result from a classified error.
func failure(err error, attempts int, elapsed time.Duration) Result {
	return Result{
		Success:  false,
		Err:      &ErrorInfo{Kind: capability.Classify(err), Message: err.Error()},
		Elapsed:  elapsed,
		Attempts: attempts,
	}
}
