// Package executor provides the concrete script executors and the Catalog
// that maps executor names to them.
//
// Built-in executors:
//
//	sql    runs the payload with database/sql against a postgres, sqlite3 or libsql target
//	shell  runs the payload with "<shell> -c"; a non-zero exit is a failure
//	cue    compiles the payload as CUE and requires it to be concrete
//
// SQL (postgres targets only) and CUE also implement Checker, which vets a
// payload without running it; the validate command uses it.
//
// Executors are registered by name in a Catalog. There is no discovery by
// reflection: a name the catalog does not list cannot be resolved.
package executor
