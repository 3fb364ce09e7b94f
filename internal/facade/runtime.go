package facade

import (
	"fmt"
	"sync"
	"time"

	"caprun/internal/cache"
	"caprun/internal/capability"
	"caprun/internal/logging"
	"caprun/internal/resilience"
	"caprun/internal/transform"
)

// Options configures a Runtime. Zero values select the defaults.
type Options struct {
	// Cache backs result caching for all three kinds. Nil selects an
	// in-memory store with the default tier table.
	Cache cache.Store

	// Resilience configures retry and backoff for all invocations.
	Resilience resilience.Config

	// MaxConcurrency bounds ExecuteMultiple; <=0 means unbounded.
	MaxConcurrency int

	// SweepInterval is how often expired cache entries are collected.
	// Zero disables the background sweeper.
	SweepInterval time.Duration
}

// Runtime groups the three per-kind facades over one shared cache and
// resilience executor, and hosts the cross-kind transformations.
type Runtime struct {
	Tools        *Facade
	Environments *Facade
	Agents       *Facade

	store cache.Store

	sweepStop chan struct{}
	sweepDone chan struct{}
	closeOnce sync.Once
}

// NewRuntime builds a runtime from options.
func NewRuntime(opts Options) *Runtime {
	store := opts.Cache
	if store == nil {
		store = cache.NewMemory(cache.DefaultConfig())
	}
	if opts.Resilience.MaxAttempts == 0 {
		opts.Resilience = resilience.DefaultConfig()
	}
	exec := resilience.New(opts.Resilience)

	rt := &Runtime{
		Tools:        newFacade(capability.KindTool, store, exec, opts.MaxConcurrency),
		Environments: newFacade(capability.KindEnvironment, store, exec, opts.MaxConcurrency),
		Agents:       newFacade(capability.KindAgent, store, exec, opts.MaxConcurrency),
		store:        store,
	}

	if opts.SweepInterval > 0 {
		rt.sweepStop = make(chan struct{})
		rt.sweepDone = make(chan struct{})
		go rt.sweepLoop(opts.SweepInterval)
	}
	return rt
}

// Facade returns the facade for a kind.
func (r *Runtime) Facade(kind capability.Kind) (*Facade, error) {
	switch kind {
	case capability.KindTool:
		return r.Tools, nil
	case capability.KindEnvironment:
		return r.Environments, nil
	case capability.KindAgent:
		return r.Agents, nil
	default:
		return nil, fmt.Errorf("%w: kind %q", capability.ErrValidation, kind)
	}
}

// SetTTLs replaces the shared cache's tier table, typically on config
// reload.
func (r *Runtime) SetTTLs(tiers map[string]time.Duration) {
	r.store.SetTTLs(tiers)
}

// Close stops the background sweeper and releases the cache store.
func (r *Runtime) Close() error {
	var err error
	r.closeOnce.Do(func() {
		if r.sweepStop != nil {
			close(r.sweepStop)
			<-r.sweepDone
		}
		err = r.store.Close()
	})
	return err
}

func (r *Runtime) sweepLoop(interval time.Duration) {
	defer close(r.sweepDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log := logging.Get(logging.CategoryCache)

	for {
		select {
		case <-r.sweepStop:
			return
		case <-ticker.C:
			if n := r.store.Sweep(); n > 0 {
				log.Debugf("swept %d expired cache entries", n)
			}
		}
	}
}

// AgentAsTool re-exposes a registered agent as a tool named name.
func (r *Runtime) AgentAsTool(name, agentName string) (capability.Descriptor, error) {
	src, err := r.Agents.Get(agentName)
	if err != nil {
		return capability.Descriptor{}, err
	}
	comp, err := transform.AgentToTool(name, src.Handle)
	if err != nil {
		return capability.Descriptor{}, err
	}
	return r.Tools.Attach(name, "a2t", comp)
}

// ToolAsAgent re-exposes a registered single-action tool as an agent.
func (r *Runtime) ToolAsAgent(name, toolName string) (capability.Descriptor, error) {
	src, err := r.Tools.Get(toolName)
	if err != nil {
		return capability.Descriptor{}, err
	}
	comp, err := transform.ToolToAgent(name, src.Handle)
	if err != nil {
		return capability.Descriptor{}, err
	}
	return r.Agents.Attach(name, "t2a", comp)
}

// EnvironmentAsTools splits a registered environment into one tool per
// action, each named "<prefix>_<action>".
func (r *Runtime) EnvironmentAsTools(prefix, envName string) ([]capability.Descriptor, error) {
	src, err := r.Environments.Get(envName)
	if err != nil {
		return nil, err
	}
	tools, err := transform.EnvironmentToTools(prefix, src.Handle)
	if err != nil {
		return nil, err
	}

	out := make([]capability.Descriptor, 0, len(tools))
	for _, nc := range tools {
		desc, err := r.Tools.Attach(nc.Name, "e2t", nc.Component)
		if err != nil {
			return out, err
		}
		out = append(out, desc)
	}
	return out, nil
}

// ToolsAsEnvironment groups registered single-action tools into one
// environment named name.
func (r *Runtime) ToolsAsEnvironment(name string, toolNames []string) (capability.Descriptor, error) {
	sources := make([]capability.Component, 0, len(toolNames))
	for _, toolName := range toolNames {
		src, err := r.Tools.Get(toolName)
		if err != nil {
			return capability.Descriptor{}, err
		}
		sources = append(sources, src.Handle)
	}
	comp, err := transform.ToolsToEnvironment(name, sources)
	if err != nil {
		return capability.Descriptor{}, err
	}
	return r.Environments.Attach(name, "t2e", comp)
}

// AgentAsEnvironment re-exposes a stepping agent as an environment with
// step and reset actions.
func (r *Runtime) AgentAsEnvironment(name, agentName string) (capability.Descriptor, error) {
	src, err := r.Agents.Get(agentName)
	if err != nil {
		return capability.Descriptor{}, err
	}
	comp, err := transform.AgentToEnvironment(name, src.Handle)
	if err != nil {
		return capability.Descriptor{}, err
	}
	return r.Environments.Attach(name, "a2e", comp)
}

// EnvironmentAsAgent wraps a registered environment in a decision loop
// driven by policy, ending on the terminal action or after maxSteps.
func (r *Runtime) EnvironmentAsAgent(name, envName string, policy transform.Policy, terminal string, maxSteps int) (capability.Descriptor, error) {
	src, err := r.Environments.Get(envName)
	if err != nil {
		return capability.Descriptor{}, err
	}
	comp, err := transform.EnvironmentToAgent(name, src.Handle, policy, terminal, maxSteps)
	if err != nil {
		return capability.Descriptor{}, err
	}
	return r.Agents.Attach(name, "e2a", comp)
}

var (
	defaultOnce sync.Once
	defaultRT   *Runtime
)

// Default returns the process-wide runtime, created on first use with
// default options.
func Default() *Runtime {
	defaultOnce.Do(func() {
		defaultRT = NewRuntime(Options{})
	})
	return defaultRT
}
