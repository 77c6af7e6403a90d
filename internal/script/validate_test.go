package script

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Valid(t *testing.T) {
	docs := []*Document{{
		ID: "d1",
		Scripts: []*Script{
			{ID: "s1", Executor: "sql", Created: mustDate(t, "2016-06-21")},
			{ID: "s2", Executor: "sql", Created: mustDate(t, "2016-06-21"), Order: 1},
		},
	}}
	assert.NoError(t, Validate(docs))
}

func TestValidate_Issues(t *testing.T) {
	tests := []struct {
		name string
		docs []*Document
		code string
	}{
		{
			name: "empty document id",
			docs: []*Document{{ID: ""}},
			code: ErrDocumentIDEmpty,
		},
		{
			name: "duplicate document id",
			docs: []*Document{{ID: "d"}, {ID: "d"}},
			code: ErrDuplicateDocumentID,
		},
		{
			name: "empty script id",
			docs: []*Document{{ID: "d", Scripts: []*Script{{Executor: "sql"}}}},
			code: ErrScriptIDEmpty,
		},
		{
			name: "duplicate script id across documents",
			docs: []*Document{
				{ID: "d1", Scripts: []*Script{{ID: "s", Executor: "sql"}}},
				{ID: "d2", Scripts: []*Script{{ID: "s", Executor: "sql"}}},
			},
			code: ErrDuplicateScriptID,
		},
		{
			name: "missing executor",
			docs: []*Document{{ID: "d", Scripts: []*Script{{ID: "s", Executor: "  "}}}},
			code: ErrExecutorNameEmpty,
		},
		{
			name: "duplicate order key",
			docs: []*Document{{ID: "d", Scripts: []*Script{
				{ID: "s1", Executor: "sql", Order: 2},
				{ID: "s2", Executor: "sql", Order: 2},
			}}},
			code: ErrDuplicateOrderKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.docs)
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.True(t, verr.Has(tt.code), "expected %s in %v", tt.code, verr.Issues)
		})
	}
}

func TestValidate_CollectsAllIssues(t *testing.T) {
	docs := []*Document{{ID: "d", Scripts: []*Script{
		{ID: "", Executor: ""},
		{ID: "s", Executor: ""},
	}}}

	err := Validate(docs)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.GreaterOrEqual(t, len(verr.Issues), 3)
	assert.Contains(t, err.Error(), "issues")
}

func TestIndex_Owner(t *testing.T) {
	docs := []*Document{
		{ID: "d1", Scripts: []*Script{{ID: "s1"}, {ID: "s2"}}},
		{ID: "d2", Scripts: []*Script{{ID: "s3"}}},
	}
	idx := NewIndex(docs)

	owner, ok := idx.Owner("s3")
	require.True(t, ok)
	assert.Equal(t, "d2", owner)

	_, ok = idx.Owner("missing")
	assert.False(t, ok)

	s, ok := idx.Script("s2")
	require.True(t, ok)
	assert.Same(t, docs[0].Scripts[1], s)

	d, ok := idx.Document("d1")
	require.True(t, ok)
	assert.Same(t, docs[0], d)
}

func TestIndex_FirstUse(t *testing.T) {
	docs := []*Document{
		{ID: "d1", Scripts: []*Script{{ID: "s1", Executor: "sql"}, {ID: "s2", Executor: "shell"}}},
		{ID: "d2", Scripts: []*Script{{ID: "s3", Executor: "shell"}}},
	}
	idx := NewIndex(docs)

	s, ok := idx.FirstUse("shell")
	require.True(t, ok)
	assert.Equal(t, "s2", s.ID)

	_, ok = idx.FirstUse("cue")
	assert.False(t, ok)
}

func TestExecutorNames_Distinct(t *testing.T) {
	docs := []*Document{
		{ID: "d1", Scripts: []*Script{{ID: "s1", Executor: "sql"}, {ID: "s2", Executor: "shell"}}},
		{ID: "d2", Scripts: []*Script{{ID: "s3", Executor: "sql"}}},
	}
	assert.Equal(t, []string{"sql", "shell"}, ExecutorNames(docs))
}

func TestChecksum(t *testing.T) {
	a := Checksum("CREATE TABLE t (id INTEGER);")
	b := Checksum("CREATE TABLE t (id INTEGER);")
	c := Checksum("CREATE TABLE u (id INTEGER);")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)

	// NFC and NFD spellings of "é" hash identically.
	assert.Equal(t, Checksum("caf\u00e9"), Checksum("cafe\u0301"))
}
