package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/roach88/executioner/internal/script"
)

// Memory is an in-memory completion store with the same semantics as Store.
// Nothing survives the process.
//
// Thread-safety: Memory is safe for concurrent use via internal mutex.
type Memory struct {
	mu      sync.Mutex
	docs    map[string]*DocumentRecord
	scripts map[string]*ScriptRecord
	runs    []script.RunRecord
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		docs:    make(map[string]*DocumentRecord),
		scripts: make(map[string]*ScriptRecord),
		now:     time.Now,
	}
}

// AddDocument registers a document. Idempotent.
func (m *Memory) AddDocument(_ context.Context, doc *script.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[doc.ID]; ok {
		return nil
	}
	m.docs[doc.ID] = &DocumentRecord{
		ID:      doc.ID,
		Name:    doc.Name,
		Created: script.DateOf(doc.Created).Format(script.DateLayout),
		Order:   doc.Order,
	}
	return nil
}

// AddScript registers a script. Idempotent. A script registered under
// another document moves and keeps its completion. A script new to the
// document clears the document's completion.
func (m *Memory) AddScript(_ context.Context, documentID string, sc *script.Script) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[documentID]
	if !ok {
		return fmt.Errorf("add script %s: unknown document %s", sc.ID, documentID)
	}
	if entry, ok := m.scripts[sc.ID]; ok {
		if entry.DocumentID == documentID {
			return nil
		}
		entry.DocumentID = documentID
	} else {
		m.scripts[sc.ID] = newScriptRecord(documentID, sc)
	}
	doc.CompletedAt = nil
	doc.RunID = ""
	return nil
}

// UpdateScript persists a script's completion flag. Upserts.
func (m *Memory) UpdateScript(_ context.Context, documentID string, sc *script.Script, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[documentID]; !ok {
		return fmt.Errorf("update script %s: unknown document %s", sc.ID, documentID)
	}

	entry, ok := m.scripts[sc.ID]
	if !ok {
		entry = newScriptRecord(documentID, sc)
		m.scripts[sc.ID] = entry
	}
	entry.DocumentID = documentID

	if sc.IsComplete {
		now := m.now()
		entry.CompletedAt = &now
		entry.Checksum = script.Checksum(sc.Text)
		entry.RunID = runID
	} else {
		entry.CompletedAt = nil
		entry.Checksum = ""
		entry.RunID = ""
	}
	return nil
}

// UpdateDocument persists a document's completion flag. Upserts.
func (m *Memory) UpdateDocument(_ context.Context, doc *script.Document, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.docs[doc.ID]
	if !ok {
		entry = &DocumentRecord{
			ID:      doc.ID,
			Name:    doc.Name,
			Created: script.DateOf(doc.Created).Format(script.DateLayout),
			Order:   doc.Order,
		}
		m.docs[doc.ID] = entry
	}

	if doc.IsComplete {
		now := m.now()
		entry.CompletedAt = &now
		entry.RunID = runID
	} else {
		entry.CompletedAt = nil
		entry.RunID = ""
	}
	return nil
}

// CompletedDocumentIDs returns completed document IDs, sorted.
func (m *Memory) CompletedDocumentIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := []string{}
	for id, d := range m.docs {
		if d.CompletedAt != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// CompletedScriptIDs returns completed script IDs in a document, sorted.
func (m *Memory) CompletedScriptIDs(_ context.Context, documentID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := []string{}
	for id, sc := range m.scripts {
		if sc.DocumentID == documentID && sc.CompletedAt != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// RecordRun appends a run record.
func (m *Memory) RecordRun(_ context.Context, rec script.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, rec)
	return nil
}

// Runs returns recorded runs, oldest first.
func (m *Memory) Runs() []script.RunRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	runs := make([]script.RunRecord, len(m.runs))
	copy(runs, m.runs)
	return runs
}

func newScriptRecord(documentID string, sc *script.Script) *ScriptRecord {
	return &ScriptRecord{
		ID:         sc.ID,
		DocumentID: documentID,
		Created:    script.DateOf(sc.Created).Format(script.DateLayout),
		Order:      sc.Order,
		Executor:   sc.Executor,
	}
}
