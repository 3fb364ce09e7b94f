package facade

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"caprun/internal/capability"
	"caprun/internal/invoke"
)

// Wire operations accepted by Handle.
const (
	OpCall       = "call"
	OpBatch      = "batch"
	OpList       = "list"
	OpInitialize = "initialize"
	OpRemove     = "remove"
)

// Request is the JSON wire envelope for one runtime operation.
type Request struct {
	ID        string           `json:"id,omitempty"`
	Operation string           `json:"operation"`
	Kind      capability.Kind  `json:"kind,omitempty"`
	Component string           `json:"component,omitempty"`
	Action    string           `json:"action,omitempty"`
	Args      []any            `json:"args,omitempty"`
	Kwargs    map[string]any   `json:"kwargs,omitempty"`
	Batch     []invoke.Request `json:"batch,omitempty"`
}

// Response is the JSON wire envelope for one operation's outcome. ID echoes
// the request's, generated when the request carried none.
type Response struct {
	ID      string            `json:"id"`
	Success bool              `json:"success"`
	Result  any               `json:"result,omitempty"`
	Error   *invoke.ErrorInfo `json:"error,omitempty"`
	Elapsed time.Duration     `json:"elapsed"`
}

// NewID returns a fresh envelope identifier.
func NewID() string { return uuid.NewString() }

// Handle dispatches one wire request against the runtime. Unknown kinds and
// operations fail with a validation error in the response; Handle itself
// never returns an error.
func (r *Runtime) Handle(ctx context.Context, req Request) Response {
	id := req.ID
	if id == "" {
		id = NewID()
	}
	start := time.Now()

	kind := req.Kind
	if kind == "" {
		kind = capability.KindTool
	}
	f, err := r.Facade(kind)
	if err != nil {
		return errResponse(id, err, time.Since(start))
	}

	switch req.Operation {
	case OpCall:
		res := f.Execute(ctx, req.Component, req.Action, req.Args, req.Kwargs)
		return fromResult(id, res)

	case OpBatch:
		results := f.ExecuteMultiple(ctx, req.Batch)
		return Response{ID: id, Success: true, Result: results, Elapsed: time.Since(start)}

	case OpList:
		type entry struct {
			Name    string            `json:"name"`
			TypeTag string            `json:"type"`
			Status  capability.Status `json:"status"`
		}
		descs := f.List()
		out := make([]entry, len(descs))
		for i, d := range descs {
			out[i] = entry{Name: d.Name, TypeTag: d.TypeTag, Status: d.Status}
		}
		return Response{ID: id, Success: true, Result: out, Elapsed: time.Since(start)}

	case OpInitialize:
		statuses, err := f.Initialize(ctx, req.Component)
		if err != nil {
			return errResponse(id, err, time.Since(start))
		}
		return Response{ID: id, Success: true, Result: statuses, Elapsed: time.Since(start)}

	case OpRemove:
		if err := f.Remove(ctx, req.Component); err != nil {
			return errResponse(id, err, time.Since(start))
		}
		return Response{ID: id, Success: true, Elapsed: time.Since(start)}

	default:
		err := fmt.Errorf("%w: unknown operation %q", capability.ErrValidation, req.Operation)
		return errResponse(id, err, time.Since(start))
	}
}

func fromResult(id string, res invoke.Result) Response {
	return Response{
		ID:      id,
		Success: res.Success,
		Result:  res.Value,
		Error:   res.Err,
		Elapsed: res.Elapsed,
	}
}

func errResponse(id string, err error, elapsed time.Duration) Response {
	return Response{
		ID:      id,
		Success: false,
		Error:   &invoke.ErrorInfo{Kind: capability.Classify(err), Message: err.Error()},
		Elapsed: elapsed,
	}
}
