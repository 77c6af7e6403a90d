package script

import "time"

// Script is a single opaque unit of work.
type Script struct {
	ID       string    `json:"id"`
	Created  time.Time `json:"created"`
	Order    int       `json:"order"`
	Executor string    `json:"executor"`
	Text     string    `json:"text"`

	// IsComplete is set by the engine immediately after the executor reports
	// success. It is never reverted.
	IsComplete bool `json:"is_complete"`
}

// Document is a named group of scripts forming one migration unit.
type Document struct {
	ID      string    `json:"id"`
	Name    string    `json:"name,omitempty"`
	Created time.Time `json:"created"`
	Order   int       `json:"order"`
	Scripts []*Script `json:"scripts"`

	IsComplete bool `json:"is_complete"`
}

// Complete reports whether every script in the document has completed.
// A document with no scripts is complete.
func (d *Document) Complete() bool {
	for _, s := range d.Scripts {
		if !s.IsComplete {
			return false
		}
	}
	return true
}

// Pending returns the incomplete scripts in ascending key order.
// Returns an empty slice (not nil) if nothing is pending.
func (d *Document) Pending() []*Script {
	pending := make([]*Script, 0, len(d.Scripts))
	for _, s := range d.Scripts {
		if !s.IsComplete {
			pending = append(pending, s)
		}
	}
	SortScripts(pending)
	return pending
}

// All returns a copy of the document's scripts in ascending key order.
func (d *Document) All() []*Script {
	all := make([]*Script, len(d.Scripts))
	copy(all, d.Scripts)
	SortScripts(all)
	return all
}

// ExecutionRequest carries run-time options. The zero value is the default:
// run only incomplete scripts.
type ExecutionRequest struct {
	// ExecuteAllScripts re-runs every script regardless of completion state.
	ExecuteAllScripts bool `json:"execute_all_scripts"`
}

// ExecutionResult summarises one Run call. Counts are not cumulative across runs.
type ExecutionResult struct {
	RunID              string `json:"run_id"`
	DocumentsCompleted int    `json:"documents_completed"`
	ScriptsCompleted   int    `json:"scripts_completed"`
}

// RunRecord is the audit entry for one Run call.
type RunRecord struct {
	ID                 string    `json:"id"`
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at"`
	ExecuteAllScripts  bool      `json:"execute_all_scripts"`
	DocumentsCompleted int       `json:"documents_completed"`
	ScriptsCompleted   int       `json:"scripts_completed"`
	Error              string    `json:"error,omitempty"`
}
