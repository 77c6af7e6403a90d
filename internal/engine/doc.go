// Package engine implements the script execution core.
//
// The engine applies loaded script documents against a target system exactly
// once. Given a Loader and a CompletionStore it selects the scripts that still
// need to run, dispatches each to a named Executor, records completion, and
// notifies observers.
//
// ARCHITECTURE:
//
// Single Logical Thread:
// Each Run call is strictly sequential and depth-first: documents in
// ascending (date, order) key, then scripts within each document in the same
// key order. Scripts never interleave across documents. This ensures:
//   - A later script never starts before an earlier one is durably recorded
//   - Fail-fast abort leaves a clean resume point
//   - Observers see events in execution order
//
// Run Flow:
//  1. Register every loaded document and script with the store
//  2. Merge completion state from the store into the in-memory flags
//  3. Select documents/scripts (all, or only incomplete ones)
//  4. For each script: resolve executor, notify executing, execute,
//     persist completion, notify executed
//  5. After a document's scripts succeed: mark and persist the document
//
// FAILURE MODEL:
//
// The first executor failure aborts the run. Completions recorded earlier in
// the run stay committed, so a corrected re-run resumes at the failed script.
// Nothing is retried and nothing is logged at error level here; errors are
// returned to the caller as *Error values (see IsConfigurationError,
// IsResolutionError, IsExecutionError, IsStoreError).
//
// A crash between an executor's success and the completion write leaves that
// script marked incomplete, so it runs again on the next pass. Executors must
// tolerate at-least-once application or the operator reconciles by hand.
//
// Concurrent Run calls against the same store are not coordinated; callers
// serialize them (one upgrade process per target).
package engine
