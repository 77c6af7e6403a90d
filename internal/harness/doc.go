// Package harness runs scripted upgrade scenarios against the real engine.
//
// A scenario describes a document set, a sequence of runs and assertions on
// the resulting trace and final store state. Every script is executed by a
// recording executor, so a scenario can inject failures without touching a
// real target.
//
// # Scenario Format
//
//	name: resume_after_failure
//	description: "A failed script stops the run; the next run resumes at it"
//	executors: [sql]
//	documents:
//	  - id: a
//	    created: 2016-06-21
//	    scripts:
//	      - id: a1
//	        text: CREATE TABLE a (id INT)
//	      - id: a2
//	        order: 1
//	runs:
//	  - fail: [a2]
//	    expect: { error: execution, documents: 0, scripts: 1 }
//	  - restart: true
//	    expect: { documents: 1, scripts: 1 }
//	assertions:
//	  - type: trace_order
//	    scripts: [a1, a2]
//	  - type: final_state
//	    script: a2
//	    complete: true
//
// Script fields default from their document: created, executor. A script's
// text defaults to its ID. A run with restart builds a fresh engine over the
// same store, which is how a scenario models a new process. Scripts with
// since: N only exist from the Nth run on.
//
// # Assertion Types
//
//   - trace_contains: a script has an event (default executed), optionally in a given run
//   - trace_order: scripts were executed in this order
//   - trace_count: a script has exactly N events of a type
//   - final_state: the store's completion flag (and run ID) for a document or script
//   - run_count: the store recorded exactly N runs
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory SQLite store with a shared
// logical clock, sequential run IDs (run-1, run-2, ...) and a stepping wall
// clock, so the same scenario always yields a byte-identical trace.
package harness
