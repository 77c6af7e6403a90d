package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry maps executor names to live executor instances.
//
// Instances are created lazily through the factory and cached for the life of
// the registry. At most one instance exists per distinct name, no matter how
// many scripts reference it.
//
// Thread-safety: Registry is safe for concurrent use, though the engine only
// touches it from the Run goroutine.
type Registry struct {
	mu        sync.Mutex
	factory   ExecutorFactory
	instances map[string]Executor
}

// NewRegistry creates an empty registry backed by factory.
func NewRegistry(factory ExecutorFactory) *Registry {
	return &Registry{
		factory:   factory,
		instances: make(map[string]Executor),
	}
}

// Resolve returns the cached executor for name, creating it on first use.
//
// Returns an error wrapping ErrMissingExecutorName for an empty name, and an
// error wrapping ErrExecutorNotFound if the factory cannot produce one.
func (r *Registry) Resolve(name string) (Executor, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrMissingExecutorName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ex, ok := r.instances[name]; ok {
		return ex, nil
	}

	if r.factory == nil {
		return nil, fmt.Errorf("%w: %q (no executor factory)", ErrExecutorNotFound, name)
	}

	ex, err := r.factory.NewExecutor(name)
	if err != nil {
		if errors.Is(err, ErrExecutorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %q: %w", ErrExecutorNotFound, name, err)
	}
	if ex == nil {
		return nil, fmt.Errorf("%w: %q (factory returned nil)", ErrExecutorNotFound, name)
	}

	r.instances[name] = ex
	return ex, nil
}

// Lookup returns the cached executor for name without creating one.
func (r *Registry) Lookup(name string) (Executor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ex, ok := r.instances[name]
	return ex, ok
}

// Names returns the names of all live executors, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of live executors.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}
