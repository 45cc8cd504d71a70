// Package registry provides the process-wide directory of live agents.
//
// A Registry indexes agents by id, by name and by concrete variant type.
// The three indices are kept consistent by construction: every registration
// and unregistration updates all of them atomically under a single mutex.
// Registries are explicitly constructed and injected rather than exposed as
// a package-level singleton; their lifetime is scoped to the host process or
// a test.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/rysweet/skwaq-sub005/core"
	"github.com/rysweet/skwaq-sub005/logging"
)

// Registry is a directory of live agents. All methods are safe for
// concurrent use. The mutex exists to protect the index maps against
// reentrant registration during agent construction; it is never held across
// an agent's own Start/Stop.
type Registry struct {
	mu      sync.Mutex
	byID    map[string]core.Agent
	byName  map[string]core.Agent
	byType  map[string][]core.Agent
	ordered []core.Agent // insertion order; what makes discovery deterministic
	logger  logging.Logger
}

// Options configures a Registry.
type Options struct {
	Logger logging.Logger
}

// WithLogger overrides the default NoOp logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// New constructs an empty registry.
func New(optFns ...func(o *Options)) *Registry {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{
		byID:   make(map[string]core.Agent),
		byName: make(map[string]core.Agent),
		byType: make(map[string][]core.Agent),
		logger: opts.Logger,
	}
}

// Register adds an agent to all three indices. Registering an id twice is an
// error; names are not required to be unique, last registration wins for the
// name index.
func (r *Registry) Register(a core.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[a.ID()]; exists {
		return fmt.Errorf("agent %s already registered", a.ID())
	}
	r.byID[a.ID()] = a
	r.byName[a.Name()] = a
	r.byType[a.Type()] = append(r.byType[a.Type()], a)
	r.ordered = append(r.ordered, a)
	r.logger.Debug("agent registered", "agent_id", a.ID(), "name", a.Name(), "type", a.Type())
	return nil
}

// Unregister removes the agent with the given id from every index. Unknown
// ids log a warning and are otherwise a no-op; registry operations favor
// idempotence over strictness.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		r.logger.Warn("unregister of unknown agent", "agent_id", id)
		return
	}
	delete(r.byID, id)
	if cur, ok := r.byName[a.Name()]; ok && cur.ID() == id {
		delete(r.byName, a.Name())
	}
	typed := r.byType[a.Type()]
	for i, candidate := range typed {
		if candidate.ID() == id {
			r.byType[a.Type()] = append(typed[:i], typed[i+1:]...)
			break
		}
	}
	if len(r.byType[a.Type()]) == 0 {
		delete(r.byType, a.Type())
	}
	for i, candidate := range r.ordered {
		if candidate.ID() == id {
			r.ordered = append(r.ordered[:i], r.ordered[i+1:]...)
			break
		}
	}
}

// Get returns the agent with the given id, or nil.
func (r *Registry) Get(id string) core.Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id]
}

// GetByName returns the agent with the given name, or nil.
func (r *Registry) GetByName(name string) core.Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byName[name]
}

// GetByType returns all agents of the given concrete variant type in
// registration order.
func (r *Registry) GetByType(agentType string) []core.Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	typed := r.byType[agentType]
	out := make([]core.Agent, len(typed))
	copy(out, typed)
	return out
}

// All returns every registered agent in registration order. The ordering is
// load-bearing: orchestrator discovery resolves capability ties by taking
// the first agent encountered here.
func (r *Registry) All() []core.Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.Agent, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// StartAll starts every agent whose state allows it. Eligible agents are
// snapshotted under the lock, then started concurrently with the lock
// released so a slow startup hook never blocks registry access. The first
// start error is returned after all attempts finish.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	var eligible []core.Agent
	for _, a := range r.ordered {
		if a.State().CanStart() {
			eligible = append(eligible, a)
		}
	}
	r.mu.Unlock()

	return r.drive(ctx, eligible, "start", core.Agent.Start)
}

// StopAll stops every running agent, mirroring StartAll's snapshot-then-
// concurrent pattern.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	var eligible []core.Agent
	for _, a := range r.ordered {
		if a.State() == core.StateRunning {
			eligible = append(eligible, a)
		}
	}
	r.mu.Unlock()

	return r.drive(ctx, eligible, "stop", core.Agent.Stop)
}

func (r *Registry) drive(ctx context.Context, agents []core.Agent, op string, fn func(core.Agent, context.Context) error) error {
	var wg sync.WaitGroup
	errCh := make(chan error, len(agents))
	for _, a := range agents {
		wg.Add(1)
		go func(a core.Agent) {
			defer wg.Done()
			if err := fn(a, ctx); err != nil {
				r.logger.Error("bulk lifecycle operation failed", "op", op, "agent_id", a.ID(), "error", err)
				errCh <- fmt.Errorf("%s agent %s: %w", op, a.ID(), err)
			}
		}(a)
	}
	wg.Wait()
	close(errCh)
	if len(errCh) > 0 {
		return <-errCh
	}
	return nil
}

// Clear removes every agent from all indices. Destructive; intended for
// process shutdown or test isolation only.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]core.Agent)
	r.byName = make(map[string]core.Agent)
	r.byType = make(map[string][]core.Agent)
	r.ordered = nil
}
