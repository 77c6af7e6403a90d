package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/executioner/internal/script"
)

// Engine applies loaded script documents exactly once.
//
// Thread-safety model:
//   - New(): builds the engine; the loader runs once here
//   - Run(): must not be called concurrently on the same engine or store
//   - Subscribe(): call before Run
//
// INVARIANTS:
//   - docs are sorted by (date, order), and so is every document's scripts
//   - registry holds exactly one executor per referenced name
//   - a script's IsComplete only goes from false to true, and only after
//     the executor succeeded and the store accepted the write
type Engine struct {
	loader    Loader
	store     CompletionStore
	docs      []*script.Document
	index     *script.Index
	registry  *Registry
	observers []Observer
	clock     *Clock
	runIDs    RunIDGenerator
	now       func() time.Time
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithObserver subscribes an observer to lifecycle notifications.
// May be passed more than once.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// WithRunIDGenerator overrides the default UUIDv7 run ID generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithClock overrides the event clock, so several engines can share one
// event sequence.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithNow overrides the wall clock used for run records.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine from a loader, a completion store and an executor
// factory.
//
// New loads the documents, validates them, sorts them by ascending key and
// creates one executor per distinct executor name. Any script with an empty
// or unresolvable executor name makes New fail with a configuration error;
// nothing executes.
func New(
	ctx context.Context,
	loader Loader,
	store CompletionStore,
	factory ExecutorFactory,
	opts ...Option,
) (*Engine, error) {
	if loader == nil {
		return nil, configurationError("loader is required", nil)
	}
	if store == nil {
		return nil, configurationError("completion store is required", nil)
	}

	e := &Engine{
		loader:   loader,
		store:    store,
		registry: NewRegistry(factory),
		clock:    NewClock(),
		runIDs:   UUIDv7Generator{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := loader.LoadDocuments(ctx); err != nil {
		return nil, configurationError("load documents", err)
	}

	// The document slice is copied; each document's Scripts is sorted in place.
	loaded := loader.Documents()
	e.docs = make([]*script.Document, 0, len(loaded))
	for _, d := range loaded {
		if d != nil {
			e.docs = append(e.docs, d)
		}
	}

	if err := script.Validate(e.docs); err != nil {
		var verr *script.ValidationError
		if errors.As(err, &verr) && verr.Has(script.ErrExecutorNameEmpty) {
			err = fmt.Errorf("%w: %w", ErrMissingExecutorName, err)
		}
		return nil, configurationError("invalid documents", err)
	}

	script.SortDocuments(e.docs)
	e.index = script.NewIndex(e.docs)

	if err := e.createExecutors(); err != nil {
		return nil, err
	}

	slog.Debug("engine ready",
		"documents", len(e.docs),
		"executors", e.registry.Names(),
	)
	return e, nil
}

// createExecutors resolves every executor name referenced by a loaded script.
// A failure names the first script, in run order, that uses the executor.
func (e *Engine) createExecutors() error {
	for _, name := range script.ExecutorNames(e.docs) {
		if _, err := e.registry.Resolve(name); err != nil {
			cerr := &Error{
				Kind:     KindConfiguration,
				Message:  fmt.Sprintf("unable to create executor %q", name),
				Executor: name,
				Err:      err,
			}
			if s, ok := e.index.FirstUse(name); ok {
				cerr.ScriptID = s.ID
				cerr.DocumentID, _ = e.index.Owner(s.ID)
			}
			return cerr
		}
	}
	return nil
}

// Subscribe adds an observer. Not safe to call during Run.
func (e *Engine) Subscribe(o Observer) {
	if o != nil {
		e.observers = append(e.observers, o)
	}
}

// Documents returns the engine's canonical document collection, sorted.
func (e *Engine) Documents() []*script.Document {
	return e.docs
}

// Index returns the script -> document lookup table.
func (e *Engine) Index() *script.Index {
	return e.index
}

// Executors returns the executor registry.
func (e *Engine) Executors() *Registry {
	return e.registry
}

// Run applies the selected scripts and returns per-call counts.
//
// A nil request runs only incomplete scripts. The returned result is never
// nil; when err is non-nil it holds the counts reached before the abort.
//
// Run stops at the first failure. Completions recorded before the failure stay
// committed, so a later Run resumes at the failed script.
func (e *Engine) Run(ctx context.Context, req *script.ExecutionRequest) (*script.ExecutionResult, error) {
	if e.registry.Len() == 0 {
		return &script.ExecutionResult{}, configurationError("no executors registered", ErrNoExecutors)
	}
	if req == nil {
		req = &script.ExecutionRequest{}
	}

	result := &script.ExecutionResult{RunID: e.runIDs.Generate()}
	started := e.now()

	err := e.run(ctx, *req, result)

	if recErr := e.recordRun(ctx, *req, result, started, err); recErr != nil && err == nil {
		err = recErr
	}
	return result, err
}

func (e *Engine) run(ctx context.Context, req script.ExecutionRequest, result *script.ExecutionResult) error {
	if err := e.sync(ctx); err != nil {
		return err
	}

	docs := e.documentsToRun(req)
	slog.Debug("documents selected",
		"run_id", result.RunID,
		"documents", len(docs),
		"execute_all", req.ExecuteAllScripts,
	)

	for _, doc := range docs {
		for _, s := range e.scriptsToRun(req, doc) {
			if err := e.execute(ctx, result.RunID, doc, s); err != nil {
				return err
			}
			result.ScriptsCompleted++
		}

		doc.IsComplete = doc.Complete()
		if err := e.store.UpdateDocument(ctx, doc, result.RunID); err != nil {
			return storeError("update document", doc.ID, "", err)
		}
		result.DocumentsCompleted++
	}

	return nil
}

// sync registers every loaded document and script with the store, then pulls
// completion state back into the in-memory flags. Document completion is
// always recomputed from its scripts.
func (e *Engine) sync(ctx context.Context) error {
	for _, doc := range e.docs {
		if err := e.store.AddDocument(ctx, doc); err != nil {
			return storeError("add document", doc.ID, "", err)
		}
		for _, s := range doc.Scripts {
			if err := e.store.AddScript(ctx, doc.ID, s); err != nil {
				return storeError("add script", doc.ID, s.ID, err)
			}
		}
	}

	completedDocs, err := e.store.CompletedDocumentIDs(ctx)
	if err != nil {
		return storeError("query completed documents", "", "", err)
	}
	done := toSet(completedDocs)

	for _, doc := range e.docs {
		if done[doc.ID] {
			for _, s := range doc.Scripts {
				s.IsComplete = true
			}
		} else {
			ids, err := e.store.CompletedScriptIDs(ctx, doc.ID)
			if err != nil {
				return storeError("query completed scripts", doc.ID, "", err)
			}
			completed := toSet(ids)
			for _, s := range doc.Scripts {
				if completed[s.ID] {
					s.IsComplete = true
				}
			}
		}
		doc.IsComplete = doc.Complete()
	}

	return nil
}

// documentsToRun selects documents in ascending key order. Without
// ExecuteAllScripts, a document is selected only if it has an incomplete
// script; empty documents are skipped.
func (e *Engine) documentsToRun(req script.ExecutionRequest) []*script.Document {
	if req.ExecuteAllScripts {
		docs := make([]*script.Document, len(e.docs))
		copy(docs, e.docs)
		return docs
	}

	var docs []*script.Document
	for _, doc := range e.docs {
		if len(doc.Scripts) > 0 && !doc.Complete() {
			docs = append(docs, doc)
		}
	}
	return docs
}

// scriptsToRun selects scripts in ascending key order.
func (e *Engine) scriptsToRun(req script.ExecutionRequest, doc *script.Document) []*script.Script {
	if req.ExecuteAllScripts {
		return doc.All()
	}
	return doc.Pending()
}

// execute runs one script and records its completion.
func (e *Engine) execute(ctx context.Context, runID string, doc *script.Document, s *script.Script) error {
	ex, err := e.registry.Resolve(s.Executor)
	if err != nil {
		return &Error{
			Kind:       KindResolution,
			Message:    fmt.Sprintf("unable to find executor %q", s.Executor),
			DocumentID: doc.ID,
			ScriptID:   s.ID,
			Executor:   s.Executor,
			Err:        err,
		}
	}

	ev := ScriptEvent{
		RunID:      runID,
		DocumentID: doc.ID,
		ScriptID:   s.ID,
		Executor:   s.Executor,
		Text:       s.Text,
	}

	ev.Seq = e.clock.Next()
	for _, o := range e.observers {
		o.ScriptExecuting(ev)
	}

	ok, err := ex.Execute(ctx, s.Text)
	if err == nil && !ok {
		err = ErrScriptFailed
	}
	if err != nil {
		return &Error{
			Kind:       KindExecution,
			Message:    "script failed to execute",
			DocumentID: doc.ID,
			ScriptID:   s.ID,
			Executor:   s.Executor,
			Err:        err,
		}
	}

	// The flag only sticks once the store has it.
	wasComplete := s.IsComplete
	s.IsComplete = true
	if err := e.store.UpdateScript(ctx, doc.ID, s, runID); err != nil {
		s.IsComplete = wasComplete
		return storeError("update script", doc.ID, s.ID, err)
	}

	ev.Seq = e.clock.Next()
	for _, o := range e.observers {
		o.ScriptExecuted(ev)
	}
	return nil
}

// recordRun writes the run history entry if the store keeps one.
func (e *Engine) recordRun(
	ctx context.Context,
	req script.ExecutionRequest,
	result *script.ExecutionResult,
	started time.Time,
	runErr error,
) error {
	recorder, ok := e.store.(RunRecorder)
	if !ok {
		return nil
	}

	rec := script.RunRecord{
		ID:                 result.RunID,
		StartedAt:          started,
		FinishedAt:         e.now(),
		ExecuteAllScripts:  req.ExecuteAllScripts,
		DocumentsCompleted: result.DocumentsCompleted,
		ScriptsCompleted:   result.ScriptsCompleted,
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}

	if err := recorder.RecordRun(ctx, rec); err != nil {
		return storeError("record run", "", "", err)
	}
	return nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
