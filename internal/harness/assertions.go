package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/executioner/internal/script"
	"github.com/roach88/executioner/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", event)
		}
	}

	return buf.String()
}

func eventOf(a Assertion) string {
	if a.Event == "" {
		return EventExecuted
	}
	return a.Event
}

// assertTraceContains checks that the script has an event of the requested
// type, optionally within one run.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	event := eventOf(assertion)
	for _, ev := range trace {
		if ev.Type != event || ev.Script != assertion.Script {
			continue
		}
		if assertion.Run == "" || ev.RunID == assertion.Run {
			return nil
		}
	}

	expected := fmt.Sprintf("%s %s", assertion.Script, event)
	if assertion.Run != "" {
		expected += " in " + assertion.Run
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that scripts were first executed in the given
// order. Scripts don't need to be consecutive.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	// 1-indexed so zero means absent
	positions := make(map[string]int)
	for i, ev := range trace {
		if ev.Type == EventExecuted && positions[ev.Script] == 0 {
			positions[ev.Script] = i + 1
		}
	}

	for _, id := range assertion.Scripts {
		if positions[id] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all scripts executed: %v", assertion.Scripts),
				Actual:   fmt.Sprintf("missing script: %s", id),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Scripts); i++ {
		prev := assertion.Scripts[i-1]
		curr := assertion.Scripts[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("scripts in order: %v", assertion.Scripts),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks that the script has exactly Count events of the
// requested type.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	event := eventOf(assertion)
	count := 0
	for _, ev := range trace {
		if ev.Type == event && ev.Script == assertion.Script {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s event(s) for %s", assertion.Count, event, assertion.Script),
			Actual:   fmt.Sprintf("%d event(s)", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks a stored completion flag. A script must also be
// stored under the document that owns it in the last loaded document set.
func assertFinalState(ctx context.Context, st *store.Store, idx *script.Index, assertion Assertion) error {
	var (
		subject     string
		completedBy string
		complete    bool
		found       bool
	)

	if assertion.Document != "" {
		subject = "document " + assertion.Document
		docs, err := st.ListDocuments(ctx)
		if err != nil {
			return fmt.Errorf("final_state: %w", err)
		}
		for _, d := range docs {
			if d.ID == assertion.Document {
				found, complete, completedBy = true, d.CompletedAt != nil, d.RunID
				break
			}
		}
	} else {
		subject = "script " + assertion.Script
		scripts, err := st.ScriptsByID(ctx)
		if err != nil {
			return fmt.Errorf("final_state: %w", err)
		}
		if rec, ok := scripts[assertion.Script]; ok {
			found, complete, completedBy = true, rec.CompletedAt != nil, rec.RunID
			if owner, ok := ownerOf(idx, assertion.Script); ok && owner != rec.DocumentID {
				return &AssertionError{
					Type:     AssertFinalState,
					Expected: fmt.Sprintf("%s under document %s", subject, owner),
					Actual:   fmt.Sprintf("under document %s", rec.DocumentID),
				}
			}
		}
	}

	if !found {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: subject + " in store",
			Actual:   "not found",
		}
	}
	if complete != *assertion.Complete {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s complete=%t", subject, *assertion.Complete),
			Actual:   fmt.Sprintf("complete=%t", complete),
		}
	}
	if assertion.Run != "" && completedBy != assertion.Run {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s completed by %s", subject, assertion.Run),
			Actual:   fmt.Sprintf("completed by %q", completedBy),
		}
	}
	return nil
}

func ownerOf(idx *script.Index, scriptID string) (string, bool) {
	if idx == nil {
		return "", false
	}
	return idx.Owner(scriptID)
}

// assertRunCount checks how many runs the store recorded.
func assertRunCount(ctx context.Context, st *store.Store, assertion Assertion) error {
	runs, err := st.ListRuns(ctx, 0)
	if err != nil {
		return fmt.Errorf("run_count: %w", err)
	}
	if len(runs) != assertion.Count {
		return &AssertionError{
			Type:     AssertRunCount,
			Expected: fmt.Sprintf("%d recorded run(s)", assertion.Count),
			Actual:   fmt.Sprintf("%d recorded run(s)", len(runs)),
		}
	}
	return nil
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
	Index *script.Index // script ID -> owning document
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for final_state and run_count.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState, AssertRunCount:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: %s requires database context", i, assertion.Type)
			} else if assertion.Type == AssertFinalState {
				err = assertFinalState(actx.Ctx, actx.Store, actx.Index, assertion)
			} else {
				err = assertRunCount(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
