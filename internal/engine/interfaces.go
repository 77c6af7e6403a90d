package engine

import (
	"context"

	"github.com/roach88/executioner/internal/script"
)

// Loader materializes script documents.
type Loader interface {
	// LoadDocuments populates Documents. Calling it again once documents are
	// loaded is a no-op.
	LoadDocuments(ctx context.Context) error

	// Documents returns the loaded documents. The engine takes ownership of
	// the returned values and mutates only their completion flags.
	Documents() []*script.Document
}

// CompletionStore is the durable record of which documents and scripts have
// completed.
//
// Contract: a document ID is reported by CompletedDocumentIDs only while
// every script registered for it is complete. Registering a new script for a
// completed document must clear that document's completion.
type CompletionStore interface {
	// AddDocument registers a document as tracked. Idempotent.
	AddDocument(ctx context.Context, doc *script.Document) error

	// AddScript registers a script under its owning document. Idempotent.
	AddScript(ctx context.Context, documentID string, s *script.Script) error

	// UpdateDocument persists the document's completion flag.
	UpdateDocument(ctx context.Context, doc *script.Document, runID string) error

	// UpdateScript persists the script's completion flag.
	UpdateScript(ctx context.Context, documentID string, s *script.Script, runID string) error

	// CompletedDocumentIDs returns the IDs of every completed document.
	CompletedDocumentIDs(ctx context.Context) ([]string, error)

	// CompletedScriptIDs returns the IDs of completed scripts in a document.
	CompletedScriptIDs(ctx context.Context, documentID string) ([]string, error)
}

// RunRecorder is implemented by stores that keep a history of runs.
// The engine writes one record per Run call when the store supports it.
type RunRecorder interface {
	RecordRun(ctx context.Context, rec script.RunRecord) error
}

// Executor runs a script payload against some target.
//
// Execute returns true on success. A false result or a non-nil error are both
// treated as failure. Timeouts and cancellation are the executor's business;
// the engine imposes none.
type Executor interface {
	Execute(ctx context.Context, text string) (bool, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, text string) (bool, error)

// Execute calls f(ctx, text).
func (f ExecutorFunc) Execute(ctx context.Context, text string) (bool, error) {
	return f(ctx, text)
}

// ExecutorFactory creates an executor for a name chosen by a script author.
// Unknown names return an error wrapping ErrExecutorNotFound.
type ExecutorFactory interface {
	NewExecutor(name string) (Executor, error)
}

// ExecutorFactoryFunc adapts a function to the ExecutorFactory interface.
type ExecutorFactoryFunc func(name string) (Executor, error)

// NewExecutor calls f(name).
func (f ExecutorFactoryFunc) NewExecutor(name string) (Executor, error) {
	return f(name)
}
