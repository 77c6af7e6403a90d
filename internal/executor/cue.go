package executor

import (
	"context"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// CUE evaluates payloads as CUE. A payload succeeds when it compiles and
// every field is concrete, which makes it usable for configuration checks
// and constraint assertions run as part of an upgrade.
//
// Thread-safety: CUE is safe for concurrent use; evaluation is serialised.
type CUE struct {
	mu  sync.Mutex
	ctx *cue.Context
}

// NewCUE creates a CUE executor with its own evaluation context.
func NewCUE() *CUE {
	return &CUE{ctx: cuecontext.New()}
}

// Execute compiles and validates text.
func (c *CUE) Execute(_ context.Context, text string) (bool, error) {
	if err := c.Check(text); err != nil {
		return false, err
	}
	return true, nil
}

// Check compiles and validates text. Evaluation has no side effects, so
// Check and Execute agree.
func (c *CUE) Check(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := c.ctx.CompileString(text, cue.Filename("script.cue"))
	if err := v.Err(); err != nil {
		return fmt.Errorf("cue: compile: %s", errors.Details(err, nil))
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("cue: validate: %s", errors.Details(err, nil))
	}
	return nil
}
