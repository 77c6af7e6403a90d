package script

// Index maps script IDs to the ID of the document that owns them.
// The engine owns the canonical document collection; scripts carry no
// reference to their document.
type Index struct {
	owners   map[string]string
	scripts  map[string]*Script
	docs     map[string]*Document
	firstUse map[string]*Script
}

// NewIndex builds an index over docs. Later duplicates overwrite earlier ones;
// run Validate first to reject them.
func NewIndex(docs []*Document) *Index {
	idx := &Index{
		owners:   make(map[string]string),
		scripts:  make(map[string]*Script),
		docs:     make(map[string]*Document, len(docs)),
		firstUse: make(map[string]*Script),
	}
	for _, d := range docs {
		idx.docs[d.ID] = d
		for _, s := range d.Scripts {
			idx.owners[s.ID] = d.ID
			idx.scripts[s.ID] = s
			if _, ok := idx.firstUse[s.Executor]; !ok {
				idx.firstUse[s.Executor] = s
			}
		}
	}
	return idx
}

// Owner returns the ID of the document owning the script.
func (idx *Index) Owner(scriptID string) (string, bool) {
	id, ok := idx.owners[scriptID]
	return id, ok
}

// Script returns the script with the given ID.
func (idx *Index) Script(id string) (*Script, bool) {
	s, ok := idx.scripts[id]
	return s, ok
}

// Document returns the document with the given ID.
func (idx *Index) Document(id string) (*Document, bool) {
	d, ok := idx.docs[id]
	return d, ok
}

// FirstUse returns the first script, in index order, that names executor.
func (idx *Index) FirstUse(executor string) (*Script, bool) {
	s, ok := idx.firstUse[executor]
	return s, ok
}

// ExecutorNames returns every distinct executor name in first-seen order.
// Empty names are included so callers can reject them.
func ExecutorNames(docs []*Document) []string {
	seen := make(map[string]bool)
	var names []string
	for _, d := range docs {
		for _, s := range d.Scripts {
			if seen[s.Executor] {
				continue
			}
			seen[s.Executor] = true
			names = append(names, s.Executor)
		}
	}
	return names
}
