package executor

import "github.com/roach88/executioner/internal/engine"

// Checker is implemented by executors that can vet a payload without side
// effects.
type Checker interface {
	Check(text string) error
}

// Check vets text with ex if ex is a Checker. Executors that cannot check
// report nil.
func Check(ex engine.Executor, text string) error {
	if c, ok := ex.(Checker); ok {
		return c.Check(text)
	}
	return nil
}
