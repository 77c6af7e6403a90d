package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/executioner/internal/script"
)

// createTestStore creates a new store in a temp dir with a fixed clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	s.now = fixedNow
	t.Cleanup(func() { s.Close() })
	return s
}

func fixedNow() time.Time {
	return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
}

// createTestDocument creates a document with scripts on consecutive orders.
func createTestDocument(t *testing.T, id string, scriptIDs ...string) *script.Document {
	t.Helper()
	created, err := script.ParseDate("2016-06-21")
	require.NoError(t, err)

	doc := &script.Document{ID: id, Name: id + "-name", Created: created}
	for i, sid := range scriptIDs {
		doc.Scripts = append(doc.Scripts, &script.Script{
			ID:       sid,
			Created:  created,
			Order:    i,
			Executor: "sql",
			Text:     "SELECT " + sid,
		})
	}
	return doc
}
