// Package testutil provides deterministic collaborators for engine tests and
// the scenario harness.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/executioner/internal/engine"
)

// ErrInjected is returned by a Recorder for payloads it was told to fail.
var ErrInjected = errors.New("injected failure")

// Call is one payload handed to a recorded executor.
type Call struct {
	Executor string
	Text     string
}

// Recorder records every payload executed through the executors it hands
// out, and fails the ones selected by FailOn or FailWhen.
//
// Thread-safety: Recorder is safe for concurrent use via internal mutex.
type Recorder struct {
	mu       sync.Mutex
	calls    []Call
	failText map[string]bool
	failWhen func(Call) bool
}

// NewRecorder creates an empty recorder that lets every payload succeed.
func NewRecorder() *Recorder {
	return &Recorder{failText: make(map[string]bool)}
}

// FailOn makes payloads with exactly these texts fail.
func (r *Recorder) FailOn(texts ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range texts {
		r.failText[t] = true
	}
}

// FailWhen installs a predicate consulted for every call. nil removes it.
func (r *Recorder) FailWhen(fn func(Call) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWhen = fn
}

// Calls returns a copy of the recorded calls in execution order. Failed
// calls are included.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	calls := make([]Call, len(r.calls))
	copy(calls, r.calls)
	return calls
}

// Texts returns the recorded payloads in execution order.
func (r *Recorder) Texts() []string {
	calls := r.Calls()
	texts := make([]string, len(calls))
	for i, c := range calls {
		texts[i] = c.Text
	}
	return texts
}

// Reset forgets recorded calls and failure rules.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	r.failText = make(map[string]bool)
	r.failWhen = nil
}

// Executor returns an executor that records under name.
func (r *Recorder) Executor(name string) engine.Executor {
	return engine.ExecutorFunc(func(_ context.Context, text string) (bool, error) {
		return r.execute(Call{Executor: name, Text: text})
	})
}

// Factory returns an ExecutorFactory that knows exactly the given names.
// Any other name fails with engine.ErrExecutorNotFound.
func (r *Recorder) Factory(names ...string) engine.ExecutorFactory {
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	return engine.ExecutorFactoryFunc(func(name string) (engine.Executor, error) {
		if !known[name] {
			sorted := append([]string(nil), names...)
			sort.Strings(sorted)
			return nil, fmt.Errorf("%w: %q (known: %s)",
				engine.ErrExecutorNotFound, name, strings.Join(sorted, ", "))
		}
		return r.Executor(name), nil
	})
}

func (r *Recorder) execute(c Call) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, c)
	if r.failText[c.Text] || (r.failWhen != nil && r.failWhen(c)) {
		return false, fmt.Errorf("%s: %w", c.Executor, ErrInjected)
	}
	return true, nil
}
