package testutil

import (
	"fmt"
	"sync"
)

// RunIDSequence generates run IDs "<prefix>-1", "<prefix>-2", ...
//
// Unlike engine.FixedGenerator, a sequence never runs out, so a scenario can
// call Run any number of times and still produce byte-identical traces.
//
// Thread-safety: RunIDSequence is safe for concurrent use via internal mutex.
type RunIDSequence struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewRunIDSequence creates a sequence. An empty prefix means "run".
func NewRunIDSequence(prefix string) *RunIDSequence {
	if prefix == "" {
		prefix = "run"
	}
	return &RunIDSequence{prefix: prefix}
}

// Generate returns the next run ID.
//
// Implements engine.RunIDGenerator interface.
func (g *RunIDSequence) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
