package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/executioner/internal/script"
)

// DocumentRecord is a stored document row.
type DocumentRecord struct {
	ID          string     `json:"id"`
	Name        string     `json:"name,omitempty"`
	Created     string     `json:"created"`
	Order       int        `json:"order"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	RunID       string     `json:"run_id,omitempty"`
}

// ScriptRecord is a stored script row.
type ScriptRecord struct {
	ID          string     `json:"id"`
	DocumentID  string     `json:"document_id"`
	Created     string     `json:"created"`
	Order       int        `json:"order"`
	Executor    string     `json:"executor"`
	Checksum    string     `json:"checksum,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	RunID       string     `json:"run_id,omitempty"`
}

// CompletedDocumentIDs returns the IDs of completed documents, sorted.
// Returns an empty slice (not nil) if none are complete.
func (s *Store) CompletedDocumentIDs(ctx context.Context) ([]string, error) {
	return s.queryIDs(ctx, `
		SELECT id FROM documents
		WHERE completed_at IS NOT NULL
		ORDER BY id COLLATE BINARY ASC
	`)
}

// CompletedScriptIDs returns the IDs of completed scripts in a document, sorted.
// Returns an empty slice (not nil) if none are complete.
func (s *Store) CompletedScriptIDs(ctx context.Context, documentID string) ([]string, error) {
	return s.queryIDs(ctx, `
		SELECT id FROM scripts
		WHERE document_id = ? AND completed_at IS NOT NULL
		ORDER BY id COLLATE BINARY ASC
	`, documentID)
}

func (s *Store) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ids: %w", err)
	}
	return ids, nil
}

// ListDocuments returns every stored document ordered by (created, ord, id).
func (s *Store) ListDocuments(ctx context.Context) ([]DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created, ord, completed_at, run_id
		FROM documents
		ORDER BY created ASC, ord ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := []DocumentRecord{}
	for rows.Next() {
		var (
			rec         DocumentRecord
			completedAt sql.NullString
			runID       sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Created, &rec.Order, &completedAt, &runID); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if rec.CompletedAt, err = parseNullTime(completedAt); err != nil {
			return nil, fmt.Errorf("document %s: %w", rec.ID, err)
		}
		rec.RunID = runID.String
		docs = append(docs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// ListScripts returns a document's stored scripts ordered by (created, ord, id).
func (s *Store) ListScripts(ctx context.Context, documentID string) ([]ScriptRecord, error) {
	return s.queryScripts(ctx, `
		SELECT id, document_id, created, ord, executor, checksum, completed_at, run_id
		FROM scripts
		WHERE document_id = ?
		ORDER BY created ASC, ord ASC, id COLLATE BINARY ASC
	`, documentID)
}

// ScriptsByID returns every stored script keyed by script ID, whatever
// document it is registered under.
func (s *Store) ScriptsByID(ctx context.Context) (map[string]ScriptRecord, error) {
	rows, err := s.queryScripts(ctx, `
		SELECT id, document_id, created, ord, executor, checksum, completed_at, run_id
		FROM scripts
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]ScriptRecord, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	return byID, nil
}

func (s *Store) queryScripts(ctx context.Context, query string, args ...any) ([]ScriptRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scripts: %w", err)
	}
	defer rows.Close()

	scripts := []ScriptRecord{}
	for rows.Next() {
		var (
			rec         ScriptRecord
			completedAt sql.NullString
			runID       sql.NullString
		)
		if err := rows.Scan(
			&rec.ID, &rec.DocumentID, &rec.Created, &rec.Order,
			&rec.Executor, &rec.Checksum, &completedAt, &runID,
		); err != nil {
			return nil, fmt.Errorf("scan script: %w", err)
		}
		if rec.CompletedAt, err = parseNullTime(completedAt); err != nil {
			return nil, fmt.Errorf("script %s: %w", rec.ID, err)
		}
		rec.RunID = runID.String
		scripts = append(scripts, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scripts: %w", err)
	}
	return scripts, nil
}

// ListRuns returns recorded runs, newest first. limit <= 0 means all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]script.RunRecord, error) {
	query := `
		SELECT id, started_at, finished_at, execute_all, documents_completed, scripts_completed, error
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []script.RunRecord{}
	for rows.Next() {
		var (
			rec              script.RunRecord
			started, finished string
		)
		if err := rows.Scan(
			&rec.ID, &started, &finished, &rec.ExecuteAllScripts,
			&rec.DocumentsCompleted, &rec.ScriptsCompleted, &rec.Error,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if rec.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("run %s: started_at: %w", rec.ID, err)
		}
		if rec.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("run %s: finished_at: %w", rec.ID, err)
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, ns.String)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", ns.String, err)
	}
	return &t, nil
}
