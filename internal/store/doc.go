// Package store provides SQLite-backed durable completion tracking.
//
// The store records:
//   - Documents: every document the engine has seen, and when it completed
//   - Scripts: every script, its owning document, and when it completed
//   - Runs: one audit row per engine Run call
//
// # Critical Patterns
//
// Idempotent registration
//   - AddDocument/AddScript use ON CONFLICT(id) DO NOTHING
//   - Registering a new script under a completed document clears the
//     document's completion, so a document is never reported complete while
//     it owns an unapplied script
//
// Deterministic query results
//   - Every list query has a total ORDER BY
//
// Single writer
//   - One open connection; the engine serializes all writes
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Memory provides the same semantics without durability.
package store
