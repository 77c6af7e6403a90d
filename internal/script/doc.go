// Package script provides the data model shared by the loader, the engine and
// the completion store.
//
// This package contains types and pure functions only. All other internal
// packages import script; script imports nothing internal.
//
// Key design constraints:
//   - Ordering key is (creation date, order index), compared at date precision
//   - A script's IsComplete flag is flipped to true only by the engine
//   - Document completion is derived from its scripts, never trusted on its own
//   - Scripts do not point back at their document; use Index for lookups
package script
