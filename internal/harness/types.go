package harness

import (
	"fmt"
	"strings"
)

// Trace event types.
const (
	EventExecuting = "executing" // observer saw ScriptExecuting
	EventExecuted  = "executed"  // observer saw ScriptExecuted
	EventFailed    = "failed"    // Run returned an execution error for the script
	EventFinished  = "finished"  // Run returned
	EventRejected  = "rejected"  // engine construction failed
)

// TraceEvent is one line of a scenario trace.
type TraceEvent struct {
	Type     string `json:"type"`
	Seq      int64  `json:"seq"`
	RunID    string `json:"run_id,omitempty"`
	Document string `json:"document,omitempty"`
	Script   string `json:"script,omitempty"`
	Executor string `json:"executor,omitempty"`

	// Documents and Scripts are the run counts on a finished event.
	Documents int `json:"documents,omitempty"`
	Scripts   int `json:"scripts,omitempty"`

	// Error is the lowercase error kind on failed, finished and rejected
	// events.
	Error string `json:"error,omitempty"`
}

// String renders the event as a single trace line.
func (e TraceEvent) String() string {
	run := e.RunID
	if run == "" {
		run = "-"
	}
	var detail string
	switch e.Type {
	case EventExecuting:
		detail = fmt.Sprintf("%s/%s %s", e.Document, e.Script, e.Executor)
	case EventExecuted:
		detail = fmt.Sprintf("%s/%s", e.Document, e.Script)
	case EventFailed:
		detail = fmt.Sprintf("%s/%s %s", e.Document, e.Script, e.Error)
	case EventFinished:
		detail = fmt.Sprintf("documents=%d scripts=%d", e.Documents, e.Scripts)
		if e.Error != "" {
			detail += " error=" + e.Error
		}
	case EventRejected:
		detail = e.Error
	}
	return fmt.Sprintf("%03d %s %s %s", e.Seq, run, e.Type, detail)
}

// RunOutcome is what one run step produced.
type RunOutcome struct {
	RunID     string `json:"run_id,omitempty"`
	Documents int    `json:"documents"`
	Scripts   int    `json:"scripts"`
	Error     string `json:"error,omitempty"`   // lowercase kind
	Message   string `json:"message,omitempty"` // full error text
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every run expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains lifecycle events in seq order.
	Trace []TraceEvent `json:"trace"`

	// Runs has one entry per run step.
	Runs []RunOutcome `json:"runs"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Runs:   []RunOutcome{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddEvent appends an event to the trace.
func (r *Result) AddEvent(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

// TraceText renders the trace one event per line.
func (r *Result) TraceText() string {
	var buf strings.Builder
	for _, ev := range r.Trace {
		buf.WriteString(ev.String())
		buf.WriteByte('\n')
	}
	return buf.String()
}
