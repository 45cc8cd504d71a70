// Package executor maps task-type tags to strongly-typed executor functions.
//
// Worker agents delegate the content of each task to an executor; the
// coordination core treats executors as opaque, possibly slow collaborators.
// The registry is validated when a worker is constructed rather than at
// dispatch time, so a capability advertised without a backing executor is a
// startup error instead of a runtime surprise.
package executor

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Func executes one task. It receives the task's parameter bag and returns
// an opaque result bag or an error. Implementations should honor ctx
// cancellation on long operations.
type Func func(ctx context.Context, params map[string]any) (map[string]any, error)

// Registry holds the executors a worker can dispatch to, keyed by task type.
// Safe for concurrent use; in practice it is populated at construction and
// only read afterwards.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Func
}

// NewRegistry constructs a registry from an optional initial executor map.
func NewRegistry(executors map[string]Func) *Registry {
	r := &Registry{executors: make(map[string]Func, len(executors))}
	for taskType, fn := range executors {
		r.executors[taskType] = fn
	}
	return r
}

// Register adds or replaces the executor for a task type. A nil fn is
// rejected so Validate can trust every registered entry.
func (r *Registry) Register(taskType string, fn Func) error {
	if taskType == "" {
		return fmt.Errorf("executor registered with empty task type")
	}
	if fn == nil {
		return fmt.Errorf("nil executor registered for task type %q", taskType)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[taskType] = fn
	return nil
}

// Lookup returns the executor for a task type and whether one exists.
func (r *Registry) Lookup(taskType string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.executors[taskType]
	return fn, ok
}

// TaskTypes returns the registered task types, sorted for stable reporting.
func (r *Registry) TaskTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.executors))
	for t := range r.executors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Validate checks that every required task type has an executor. Workers
// call this at construction with the task types their capabilities imply.
func (r *Registry) Validate(required ...string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, taskType := range required {
		if _, ok := r.executors[taskType]; !ok {
			return fmt.Errorf("no executor registered for task type %q", taskType)
		}
	}
	return nil
}
