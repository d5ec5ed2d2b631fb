package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/sitepipe/internal/ir"
)

// WriteDefinition stores def once per digest. Writing a definition whose
// digest is already stored is a no-op and reports inserted=false.
func (s *Store) WriteDefinition(ctx context.Context, def *ir.Definition) (inserted bool, err error) {
	if def == nil || def.Digest == "" {
		return false, errors.New("write definition: sealed definition is required")
	}
	body, err := marshalDefinition(def)
	if err != nil {
		return false, fmt.Errorf("write definition: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO definitions
		(digest, id, pipeline, stage_label, project, body)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(digest) DO NOTHING
	`,
		def.Digest,
		def.ID,
		def.Pipeline.Name,
		def.StageLabel,
		def.Project,
		body,
	)
	if err != nil {
		return false, fmt.Errorf("write definition: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write definition: rows affected: %w", err)
	}
	return n > 0, nil
}

// WriteExecution inserts the header of a new run. Duplicate IDs are ignored.
func (s *Store) WriteExecution(ctx context.Context, rec ir.ExecutionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions
		(id, pipeline, definition_digest, commit_sha, state, started_seq)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.Pipeline,
		rec.DefinitionDigest,
		rec.Commit,
		string(rec.State),
		rec.StartedSeq,
	)
	if err != nil {
		return fmt.Errorf("write execution: %w", err)
	}
	return nil
}

// UpdateExecutionState sets the state of run id. Unknown IDs are an error.
func (s *Store) UpdateExecutionState(ctx context.Context, id string, state ir.ExecutionState) error {
	result, err := s.db.ExecContext(ctx, `UPDATE executions SET state = ? WHERE id = ?`, string(state), id)
	if err != nil {
		return fmt.Errorf("update execution %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update execution %s: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update execution %s: %w", id, ErrNotFound)
	}
	return nil
}

// AppendEvent appends one event.
func (s *Store) AppendEvent(ctx context.Context, ev ir.ExecutionEvent) error {
	return s.AppendEvents(ctx, []ir.ExecutionEvent{ev})
}

// AppendEvents appends events in one transaction. Replaying an event with a
// seq already stored is ignored, so a retried append does not duplicate it.
// The referenced execution must exist.
func (s *Store) AppendEvents(ctx context.Context, events []ir.ExecutionEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append events: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO execution_events
		(seq, execution_id, type, stage, action, outcome, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("append events: prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx,
			ev.Seq,
			ev.ExecutionID,
			ev.Type,
			ev.Stage,
			ev.Action,
			string(ev.Outcome),
			ev.Detail,
		); err != nil {
			return fmt.Errorf("append event %d: %w", ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append events: commit: %w", err)
	}
	return nil
}
