package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/executioner/internal/engine"
	"github.com/roach88/executioner/internal/loader"
	"github.com/roach88/executioner/internal/script"
	"github.com/roach88/executioner/internal/store"
	"github.com/roach88/executioner/internal/testutil"
)

// Harness drives one scenario.
// It runs the real engine with a deterministic clock, run IDs and executors.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	engine   *engine.Engine
	startErr error
	index    *script.Index

	clock    *engine.Clock
	runIDs   *testutil.RunIDSequence
	now      *testutil.DeterministicTime
	recorder *testutil.Recorder
	logger   *slog.Logger

	// failing is the fail set of the current run; current is the script the
	// engine announced last.
	failing map[string]bool
	current string

	result *Result
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Build the engine over the scenario's documents
// 3. Execute run steps, rebuilding the engine on restart
// 4. Check run expectations and evaluate assertions
//
// A returned error means the scenario itself could not run; failed
// expectations are reported through Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		scenario: scenario,
		store:    st,
		clock:    engine.NewClock(),
		runIDs:   testutil.NewRunIDSequence("run"),
		now:      testutil.NewDeterministicTime(testutil.Epoch, 0),
		recorder: testutil.NewRecorder(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		result:   NewResult(),
	}
	h.recorder.FailWhen(func(testutil.Call) bool {
		return h.failing[h.current]
	})

	for i, step := range scenario.Runs {
		if i == 0 || step.Restart {
			if err := h.start(ctx, i+1); err != nil {
				return nil, err
			}
		}
		outcome := h.run(ctx, step)
		h.result.Runs = append(h.result.Runs, outcome)
		h.checkExpect(i, step.Expect, outcome)
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
		Index: h.index,
	}
	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions, actx) {
		h.result.AddError(msg)
	}

	return h.result, nil
}

// start builds a fresh engine for run number (1-based). A construction
// failure is part of the scenario, not a harness error.
func (h *Harness) start(ctx context.Context, run int) error {
	docs, err := h.scenario.documents(run)
	if err != nil {
		return fmt.Errorf("run %d: %w", run, err)
	}

	eng, err := engine.New(ctx,
		loader.NewStatic(docs...),
		h.store,
		h.recorder.Factory(h.scenario.Executors...),
		engine.WithObserver(h.observer()),
		engine.WithObserver(engine.LogObserver{Logger: h.logger}),
		engine.WithRunIDGenerator(h.runIDs),
		engine.WithClock(h.clock),
		engine.WithNow(h.now.Now),
	)
	h.engine, h.startErr = eng, err
	if err != nil {
		h.logger.Info("engine rejected", "run", run, "error", err)
		h.index = script.NewIndex(docs)
		return nil
	}
	h.index = eng.Index()
	return nil
}

func (h *Harness) observer() engine.Observer {
	return engine.ObserverFuncs{
		Executing: func(ev engine.ScriptEvent) {
			h.current = ev.ScriptID
			h.result.AddEvent(TraceEvent{
				Type:     EventExecuting,
				Seq:      ev.Seq,
				RunID:    ev.RunID,
				Document: ev.DocumentID,
				Script:   ev.ScriptID,
				Executor: ev.Executor,
			})
		},
		Executed: func(ev engine.ScriptEvent) {
			h.result.AddEvent(TraceEvent{
				Type:     EventExecuted,
				Seq:      ev.Seq,
				RunID:    ev.RunID,
				Document: ev.DocumentID,
				Script:   ev.ScriptID,
			})
		},
	}
}

// run executes one run step against the current engine.
func (h *Harness) run(ctx context.Context, step RunStep) RunOutcome {
	if h.engine == nil {
		kind := errorKind(h.startErr)
		h.result.AddEvent(TraceEvent{
			Type:  EventRejected,
			Seq:   h.clock.Next(),
			Error: kind,
		})
		return RunOutcome{Error: kind, Message: h.startErr.Error()}
	}

	h.failing = make(map[string]bool, len(step.Fail))
	for _, id := range step.Fail {
		h.failing[id] = true
	}
	defer func() {
		h.failing = nil
		h.current = ""
	}()

	res, err := h.engine.Run(ctx, &script.ExecutionRequest{ExecuteAllScripts: step.All})
	outcome := RunOutcome{
		RunID:     res.RunID,
		Documents: res.DocumentsCompleted,
		Scripts:   res.ScriptsCompleted,
	}

	if err != nil {
		outcome.Error = errorKind(err)
		outcome.Message = err.Error()

		var eerr *engine.Error
		if errors.As(err, &eerr) && eerr.Kind == engine.KindExecution {
			h.result.AddEvent(TraceEvent{
				Type:     EventFailed,
				Seq:      h.clock.Next(),
				RunID:    res.RunID,
				Document: eerr.DocumentID,
				Script:   eerr.ScriptID,
				Executor: eerr.Executor,
				Error:    outcome.Error,
			})
		}
	}

	h.result.AddEvent(TraceEvent{
		Type:      EventFinished,
		Seq:       h.clock.Next(),
		RunID:     res.RunID,
		Documents: outcome.Documents,
		Scripts:   outcome.Scripts,
		Error:     outcome.Error,
	})
	return outcome
}

// checkExpect compares a run outcome with its expectation.
func (h *Harness) checkExpect(index int, expect *RunExpect, got RunOutcome) {
	if expect == nil {
		return
	}
	if expect.Error != got.Error {
		want, have := expect.Error, got.Error
		if want == "" {
			want = "success"
		}
		if have == "" {
			have = "success"
		}
		h.result.AddError(fmt.Sprintf("runs[%d]: expected %s, got %s %s", index, want, have, got.Message))
	}
	if expect.Documents != nil && *expect.Documents != got.Documents {
		h.result.AddError(fmt.Sprintf("runs[%d]: expected %d document(s) completed, got %d",
			index, *expect.Documents, got.Documents))
	}
	if expect.Scripts != nil && *expect.Scripts != got.Scripts {
		h.result.AddError(fmt.Sprintf("runs[%d]: expected %d script(s) completed, got %d",
			index, *expect.Scripts, got.Scripts))
	}
}

// errorKind returns the lowercase kind of an engine error, or "unknown".
func errorKind(err error) string {
	var eerr *engine.Error
	if errors.As(err, &eerr) {
		return strings.ToLower(string(eerr.Kind))
	}
	return "unknown"
}
