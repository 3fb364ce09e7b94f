package invoke

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/sync/semaphore"

	"caprun/internal/capability"
	"caprun/internal/cache"
	"caprun/internal/logging"
	"caprun/internal/resilience"
)

// Engine validates and executes invocations against one registry. It is the
// only mutator of component health status outside the registry itself.
type Engine struct {
	reg   *capability.Registry
	cache cache.Store
	exec  *resilience.Executor

	// schemas caches compiled parameter schemas per component/action.
	schemas sync.Map // string -> *jsonschema.Schema
}

// New creates an engine. The cache store may be nil to disable caching.
func New(reg *capability.Registry, store cache.Store, exec *resilience.Executor) *Engine {
	if exec == nil {
		exec = resilience.New(resilience.DefaultConfig())
	}
	return &Engine{reg: reg, cache: store, exec: exec}
}

// Invoke executes one request. All failures are captured into the result;
// Invoke itself never returns an error.
func (e *Engine) Invoke(ctx context.Context, req Request) Result {
	start := time.Now()
	log := logging.Get(logging.CategoryInvoke)

	desc, err := e.reg.Get(req.Component)
	if err != nil {
		return failure(err, 0, time.Since(start))
	}
	if desc.Status == capability.StatusRemoved {
		return failure(fmt.Errorf("%w: component %q is removed", capability.ErrNotFound, req.Component), 0, time.Since(start))
	}

	action, ok := desc.Action(req.Action)
	if !ok {
		return failure(fmt.Errorf("%w: action %q on component %q", capability.ErrNotFound, req.Action, req.Component), 0, time.Since(start))
	}

	// Validation runs before any external call.
	bound, err := capability.BindArgs(action, req.Args, req.Kwargs)
	if err != nil {
		return failure(err, 0, time.Since(start))
	}
	schema, err := e.schemaFor(action)
	if err != nil {
		return failure(fmt.Errorf("%w: %v", capability.ErrInternal, err), 0, time.Since(start))
	}
	if err := capability.ValidateArgs(schema, bound); err != nil {
		return failure(err, 0, time.Since(start))
	}

	// Components are initialized lazily on first invocation; Initialize is
	// idempotent so racing invocations are safe.
	if desc.Status == capability.StatusUninitialized {
		if _, err := e.reg.Initialize(ctx, req.Component); err != nil {
			return failure(err, 0, time.Since(start))
		}
	}

	var key string
	if e.cache != nil && action.CacheCategory != "" {
		key = cacheKey(req.Component, action.Name, bound)
		if value, hit := e.cache.Get(action.CacheCategory, key); hit {
			log.Debugf("cache hit for %s.%s", req.Component, action.Name)
			return Result{Success: true, Value: value, Elapsed: time.Since(start), Cached: true}
		}
	}

	// The per-request timeout bounds this invocation only; cancellation
	// never propagates to sibling requests.
	cctx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	op := req.Component + "." + action.Name
	value, attempts, err := e.exec.Do(cctx, op, func(callCtx context.Context) (any, error) {
		return desc.Handle.ExecuteAction(callCtx, action.Name, bound)
	})
	elapsed := time.Since(start)

	if err != nil {
		switch capability.Classify(err) {
		case capability.KindRateLimitExceeded, capability.KindTransientFailure:
			// Known-unhealthy backend: flip to Degraded, dropping the
			// component's cached results with it.
			e.reg.MarkDegraded(req.Component, err)
		}
		log.Debugf("%s failed after %d attempts in %v: %v", op, attempts, elapsed, err)
		return failure(err, attempts, elapsed)
	}

	e.reg.MarkReady(req.Component)
	if key != "" {
		e.cache.Put(action.CacheCategory, key, value, 0)
	}

	log.Debugf("%s completed in %v (attempts=%d)", op, elapsed, attempts)
	return Result{Success: true, Value: value, Elapsed: elapsed, Attempts: attempts}
}

// InvokeMany executes requests concurrently, at most maxConcurrency at a
// time. The result slice matches the request slice in length and index order
// regardless of completion order, and a failure in one request never affects
// any other.
func (e *Engine) InvokeMany(ctx context.Context, reqs []Request, maxConcurrency int) []Result {
	if len(reqs) == 0 {
		return nil
	}
	if maxConcurrency <= 0 {
		maxConcurrency = len(reqs)
	}

	results := make([]Result, len(reqs))
	sem := semaphore.NewWeighted(int64(maxConcurrency))
	var wg sync.WaitGroup

	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()
			defer func() {
				// A panicking component must not take sibling requests down.
				if r := recover(); r != nil {
					results[i] = failure(fmt.Errorf("%w: panic in %s.%s: %v",
						capability.ErrInternal, req.Component, req.Action, r), 0, 0)
				}
			}()

			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = failure(err, 0, 0)
				return
			}
			defer sem.Release(1)

			results[i] = e.Invoke(ctx, req)
		}(i, req)
	}
	wg.Wait()
	return results
}

// schemaFor returns the compiled parameter schema for an action, compiling
// it once per component/action pair.
func (e *Engine) schemaFor(action capability.ActionDescriptor) (*jsonschema.Schema, error) {
	key := action.Component + "/" + action.Name
	if cached, ok := e.schemas.Load(key); ok {
		return cached.(*jsonschema.Schema), nil
	}
	compiled, err := capability.CompileSchema(action)
	if err != nil {
		return nil, err
	}
	actual, _ := e.schemas.LoadOrStore(key, compiled)
	return actual.(*jsonschema.Schema), nil
}

// cacheKey derives a stable key from the component, action, and bound
// arguments. json.Marshal sorts map keys, so equal argument sets hash equal.
func cacheKey(component, action string, bound map[string]any) string {
	raw, err := json.Marshal(bound)
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", bound))
	}
	sum := sha256.Sum256(raw)
	return component + "/" + action + "/" + hex.EncodeToString(sum[:8])
}
