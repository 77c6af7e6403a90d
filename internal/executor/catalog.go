package executor

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/executioner/internal/engine"
)

// ErrDuplicateExecutor is returned when a name is registered twice.
var ErrDuplicateExecutor = errors.New("executor already registered")

// Constructor builds one executor instance.
type Constructor func() (engine.Executor, error)

// Catalog is an explicit name -> constructor table. It implements
// engine.ExecutorFactory.
//
// Thread-safety: Catalog is safe for concurrent use via internal mutex.
type Catalog struct {
	mu      sync.Mutex
	ctors   map[string]Constructor
	created []engine.Executor
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{ctors: make(map[string]Constructor)}
}

// Register adds a constructor under name.
func (c *Catalog) Register(name string, ctor Constructor) error {
	if strings.TrimSpace(name) == "" {
		return engine.ErrMissingExecutorName
	}
	if ctor == nil {
		return fmt.Errorf("executor %q: constructor is nil", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.ctors[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateExecutor, name)
	}
	c.ctors[name] = ctor
	return nil
}

// RegisterInstance registers an already built executor under name.
func (c *Catalog) RegisterInstance(name string, ex engine.Executor) error {
	if ex == nil {
		return fmt.Errorf("executor %q: instance is nil", name)
	}
	return c.Register(name, func() (engine.Executor, error) { return ex, nil })
}

// NewExecutor builds the executor registered under name.
// Returns an error wrapping engine.ErrExecutorNotFound for unknown names.
func (c *Catalog) NewExecutor(name string) (engine.Executor, error) {
	c.mu.Lock()
	ctor, ok := c.ctors[name]
	c.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %s)",
			engine.ErrExecutorNotFound, name, strings.Join(c.Names(), ", "))
	}

	ex, err := ctor()
	if err != nil {
		return nil, fmt.Errorf("create executor %q: %w", name, err)
	}

	c.mu.Lock()
	c.created = append(c.created, ex)
	c.mu.Unlock()
	return ex, nil
}

// Names returns the registered names, sorted.
func (c *Catalog) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.ctors))
	for name := range c.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every executor the catalog built that holds resources.
func (c *Catalog) Close() error {
	c.mu.Lock()
	created := c.created
	c.created = nil
	c.mu.Unlock()

	var errs []error
	for _, ex := range created {
		if closer, ok := ex.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
