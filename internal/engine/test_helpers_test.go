package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/executioner/internal/script"
	"github.com/roach88/executioner/internal/store"
)

var (
	_ CompletionStore = (*store.Store)(nil)
	_ CompletionStore = (*store.Memory)(nil)
	_ RunRecorder     = (*store.Store)(nil)
	_ RunRecorder     = (*store.Memory)(nil)
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// staticLoader hands out a fixed document set.
type staticLoader struct {
	docs  []*script.Document
	err   error
	loads int
}

func (l *staticLoader) LoadDocuments(context.Context) error {
	l.loads++
	return l.err
}

func (l *staticLoader) Documents() []*script.Document {
	return l.docs
}

func loaderOf(docs ...*script.Document) *staticLoader {
	return &staticLoader{docs: docs}
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := script.ParseDate(s)
	require.NoError(t, err)
	return d
}

// sc builds a script whose text is its ID.
func sc(t *testing.T, id, created string, order int) *script.Script {
	t.Helper()
	return &script.Script{ID: id, Created: date(t, created), Order: order, Executor: "sql", Text: id}
}

func doc(t *testing.T, id, created string, scripts ...*script.Script) *script.Document {
	t.Helper()
	return &script.Document{ID: id, Name: id, Created: date(t, created), Scripts: scripts}
}

// orderingDocument returns one document whose scripts are loaded out of order.
// A fresh copy is returned each call to model a new process.
func orderingDocument(t *testing.T) *script.Document {
	t.Helper()
	return doc(t, "doc-1", "2016-06-21",
		sc(t, "s4", "2016-06-23", 0),
		sc(t, "s2", "2016-06-22", 0),
		sc(t, "s1", "2016-06-21", 0),
		sc(t, "s3", "2016-06-22", 1),
	)
}

// threeDocuments returns A(a1, a2), B(b1), C(c1) with ascending dates.
func threeDocuments(t *testing.T) []*script.Document {
	t.Helper()
	return []*script.Document{
		doc(t, "C", "2016-06-23", sc(t, "c1", "2016-06-23", 0)),
		doc(t, "A", "2016-06-21", sc(t, "a2", "2016-06-21", 1), sc(t, "a1", "2016-06-21", 0)),
		doc(t, "B", "2016-06-22", sc(t, "b1", "2016-06-22", 0)),
	}
}

// scriptLog is a recording executor. Scripts whose text is in fail report
// failure; scripts in errs return the mapped error.
type scriptLog struct {
	mu   sync.Mutex
	ran  []string
	fail map[string]bool
	errs map[string]error
}

func newScriptLog(fail ...string) *scriptLog {
	l := &scriptLog{fail: make(map[string]bool), errs: make(map[string]error)}
	for _, f := range fail {
		l.fail[f] = true
	}
	return l
}

func (l *scriptLog) Execute(_ context.Context, text string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ran = append(l.ran, text)
	if err, ok := l.errs[text]; ok {
		return false, err
	}
	return !l.fail[text], nil
}

func (l *scriptLog) Ran() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.ran))
	copy(out, l.ran)
	return out
}

// factoryFor resolves every name in names to ex.
func factoryFor(ex Executor, names ...string) ExecutorFactory {
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	return ExecutorFactoryFunc(func(name string) (Executor, error) {
		if !known[name] {
			return nil, errors.New("unknown executor")
		}
		return ex, nil
	})
}

// eventLog records observer callbacks as "executing:<id>" / "executed:<id>".
type eventLog struct {
	entries []string
	seqs    []int64
}

func (l *eventLog) observer() Observer {
	return ObserverFuncs{
		Executing: func(ev ScriptEvent) {
			l.entries = append(l.entries, "executing:"+ev.ScriptID)
			l.seqs = append(l.seqs, ev.Seq)
		},
		Executed: func(ev ScriptEvent) {
			l.entries = append(l.entries, "executed:"+ev.ScriptID)
			l.seqs = append(l.seqs, ev.Seq)
		},
	}
}

// failingStore wraps Memory and fails UpdateScript for one script ID.
type failingStore struct {
	*store.Memory
	failScript string
}

func (s *failingStore) UpdateScript(ctx context.Context, documentID string, sc *script.Script, runID string) error {
	if sc.ID == s.failScript {
		return errors.New("database is locked")
	}
	return s.Memory.UpdateScript(ctx, documentID, sc, runID)
}

// plainStore hides Memory's RecordRun.
type plainStore struct {
	m *store.Memory
}

func (p plainStore) AddDocument(ctx context.Context, d *script.Document) error {
	return p.m.AddDocument(ctx, d)
}

func (p plainStore) AddScript(ctx context.Context, docID string, s *script.Script) error {
	return p.m.AddScript(ctx, docID, s)
}

func (p plainStore) UpdateDocument(ctx context.Context, d *script.Document, runID string) error {
	return p.m.UpdateDocument(ctx, d, runID)
}

func (p plainStore) UpdateScript(ctx context.Context, docID string, s *script.Script, runID string) error {
	return p.m.UpdateScript(ctx, docID, s, runID)
}

func (p plainStore) CompletedDocumentIDs(ctx context.Context) ([]string, error) {
	return p.m.CompletedDocumentIDs(ctx)
}

func (p plainStore) CompletedScriptIDs(ctx context.Context, docID string) ([]string, error) {
	return p.m.CompletedScriptIDs(ctx, docID)
}
