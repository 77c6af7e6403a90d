package loader

import (
	"context"

	"github.com/roach88/executioner/internal/script"
)

// Static serves documents built in code.
type Static struct {
	docs []*script.Document
}

// NewStatic creates a loader that returns docs unchanged.
func NewStatic(docs ...*script.Document) *Static {
	return &Static{docs: docs}
}

// LoadDocuments is a no-op.
func (s *Static) LoadDocuments(context.Context) error {
	return nil
}

// Documents returns the documents passed to NewStatic.
func (s *Static) Documents() []*script.Document {
	return s.docs
}
