package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"cuelang.org/go/cue"

	"github.com/roach88/executioner/internal/script"
)

// FS loads documents from a directory tree in an fs.FS.
//
// Files are visited in lexical path order. Loading stops at the first bad
// file. Works with os.DirFS, embed.FS and fstest.MapFS alike.
//
// Thread-safety: FS is safe for concurrent use via internal mutex.
type FS struct {
	fsys fs.FS
	root string

	mu     sync.Mutex
	loaded bool
	docs   []*script.Document
	cue    *cue.Context
}

// NewFS creates a loader over fsys rooted at root ("." for the whole FS).
func NewFS(fsys fs.FS, root string) *FS {
	if root == "" {
		root = "."
	}
	return &FS{fsys: fsys, root: root}
}

// NewDir creates a loader over a directory on disk.
func NewDir(dir string) *FS {
	return NewFS(os.DirFS(dir), ".")
}

// LoadDocuments reads every document file. Only the first successful call
// does any work.
func (l *FS) LoadDocuments(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loaded {
		return nil
	}

	if _, err := fs.Stat(l.fsys, l.root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &LoadError{Code: ErrCodeNotFound, Path: l.root, Message: "scripts directory not found"}
		}
		return &LoadError{Code: ErrCodeReadFailed, Path: l.root, Message: "cannot access scripts directory", Err: err}
	}

	var docs []*script.Document
	err := fs.WalkDir(l.fsys, l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != l.root && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}

		decode := l.decoderFor(p)
		if decode == nil {
			return nil
		}

		data, err := fs.ReadFile(l.fsys, p)
		if err != nil {
			return &LoadError{Code: ErrCodeReadFailed, Path: p, Message: "failed to read file", Err: err}
		}
		f, err := decode(p, data)
		if err != nil {
			return err
		}
		doc, err := f.toDocument(p)
		if err != nil {
			return err
		}

		slog.Debug("loaded document", "path", p, "document", doc.ID, "scripts", len(doc.Scripts))
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			return err
		}
		return fmt.Errorf("walk %s: %w", l.root, err)
	}

	l.docs = docs
	l.loaded = true
	return nil
}

// Documents returns the loaded documents in file order. Empty before a
// successful LoadDocuments.
func (l *FS) Documents() []*script.Document {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.docs
}
