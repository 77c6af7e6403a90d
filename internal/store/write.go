package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/executioner/internal/script"
)

// AddDocument registers a document. Uses ON CONFLICT(id) DO NOTHING for
// idempotency - an already-known document keeps its completion state.
func (s *Store) AddDocument(ctx context.Context, doc *script.Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, name, created, ord, added_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		doc.ID,
		doc.Name,
		script.DateOf(doc.Created).Format(script.DateLayout),
		doc.Order,
		s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("add document %s: %w", doc.ID, err)
	}
	return nil
}

// AddScript registers a script under its document. Idempotent for a script
// already registered under the same document.
//
// A script that moved to another document is re-parented and keeps its
// completion columns, so an applied script is never run again because its
// file was reorganised.
//
// When the script is new to the document, the document's completion is
// cleared in the same transaction: a completed document plus a new script is
// no longer complete.
//
// Note: The document must already be registered (foreign key constraint).
func (s *Store) AddScript(ctx context.Context, documentID string, sc *script.Script) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("add script %s: begin tx: %w", sc.ID, err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO scripts (id, document_id, created, ord, executor, added_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET document_id = excluded.document_id
		WHERE scripts.document_id <> excluded.document_id
	`,
		sc.ID,
		documentID,
		script.DateOf(sc.Created).Format(script.DateLayout),
		sc.Order,
		sc.Executor,
		s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("add script %s: insert: %w", sc.ID, err)
	}

	changed, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("add script %s: rows affected: %w", sc.ID, err)
	}

	if changed > 0 {
		if _, err := tx.ExecContext(ctx, `
			UPDATE documents SET completed_at = NULL, run_id = NULL WHERE id = ?
		`, documentID); err != nil {
			return fmt.Errorf("add script %s: reopen document: %w", sc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("add script %s: commit: %w", sc.ID, err)
	}
	return nil
}

// UpdateScript persists a script's completion flag, the checksum of the
// payload that was applied, and the run that applied it.
// Upserts, so an unregistered script is inserted.
func (s *Store) UpdateScript(ctx context.Context, documentID string, sc *script.Script, runID string) error {
	now := s.timestamp()
	completedAt, checksum, run := sql.NullString{}, "", sql.NullString{}
	if sc.IsComplete {
		completedAt = sql.NullString{String: now, Valid: true}
		checksum = script.Checksum(sc.Text)
		run = sql.NullString{String: runID, Valid: runID != ""}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scripts (id, document_id, created, ord, executor, checksum, added_at, completed_at, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			checksum = excluded.checksum,
			completed_at = excluded.completed_at,
			run_id = excluded.run_id
	`,
		sc.ID,
		documentID,
		script.DateOf(sc.Created).Format(script.DateLayout),
		sc.Order,
		sc.Executor,
		checksum,
		now,
		completedAt,
		run,
	)
	if err != nil {
		return fmt.Errorf("update script %s: %w", sc.ID, err)
	}
	return nil
}

// UpdateDocument persists a document's completion flag. Upserts.
func (s *Store) UpdateDocument(ctx context.Context, doc *script.Document, runID string) error {
	now := s.timestamp()
	completedAt, run := sql.NullString{}, sql.NullString{}
	if doc.IsComplete {
		completedAt = sql.NullString{String: now, Valid: true}
		run = sql.NullString{String: runID, Valid: runID != ""}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, name, created, ord, added_at, completed_at, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			completed_at = excluded.completed_at,
			run_id = excluded.run_id
	`,
		doc.ID,
		doc.Name,
		script.DateOf(doc.Created).Format(script.DateLayout),
		doc.Order,
		now,
		completedAt,
		run,
	)
	if err != nil {
		return fmt.Errorf("update document %s: %w", doc.ID, err)
	}
	return nil
}

// RecordRun inserts the audit row for one engine run.
// Uses ON CONFLICT(id) DO NOTHING - a run is recorded once.
func (s *Store) RecordRun(ctx context.Context, rec script.RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, started_at, finished_at, execute_all, documents_completed, scripts_completed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.StartedAt.UTC().Format(timeLayout),
		rec.FinishedAt.UTC().Format(timeLayout),
		rec.ExecuteAllScripts,
		rec.DocumentsCompleted,
		rec.ScriptsCompleted,
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", rec.ID, err)
	}
	return nil
}
