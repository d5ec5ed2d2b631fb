package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/sitepipe/internal/ir"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// DefinitionSummary is one row of the definition listing.
type DefinitionSummary struct {
	Seq        int64  `json:"seq"`
	ID         string `json:"id"`
	Digest     string `json:"digest"`
	Pipeline   string `json:"pipeline"`
	StageLabel string `json:"stage_label"`
	Project    string `json:"project"`
}

// ReadDefinition returns the stored definition with the given digest.
// Returns ErrNotFound if none exists.
func (s *Store) ReadDefinition(ctx context.Context, digest string) (*ir.Definition, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM definitions WHERE digest = ?`, digest).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read definition %s: %w", digest, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read definition %s: %w", digest, err)
	}
	return unmarshalDefinition(body)
}

// LatestDefinition returns the most recently stored definition for pipeline.
func (s *Store) LatestDefinition(ctx context.Context, pipeline string) (*ir.Definition, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM definitions
		WHERE pipeline = ?
		ORDER BY seq DESC
		LIMIT 1
	`, pipeline).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest definition for %s: %w", pipeline, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest definition for %s: %w", pipeline, err)
	}
	return unmarshalDefinition(body)
}

// ListDefinitions returns every stored definition in insertion order.
// Returns an empty slice (not nil) for an empty store.
func (s *Store) ListDefinitions(ctx context.Context) ([]DefinitionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, digest, pipeline, stage_label, project
		FROM definitions
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query definitions: %w", err)
	}
	defer rows.Close()

	defs := []DefinitionSummary{}
	for rows.Next() {
		var d DefinitionSummary
		if err := rows.Scan(&d.Seq, &d.ID, &d.Digest, &d.Pipeline, &d.StageLabel, &d.Project); err != nil {
			return nil, fmt.Errorf("scan definition: %w", err)
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate definitions: %w", err)
	}
	return defs, nil
}

// ReadExecution returns the header and events of run id, events in seq
// order. Returns ErrNotFound if the run does not exist.
func (s *Store) ReadExecution(ctx context.Context, id string) (ir.ExecutionRecord, []ir.ExecutionEvent, error) {
	rec, err := scanExecution(s.db.QueryRowContext(ctx, `
		SELECT id, pipeline, definition_digest, commit_sha, state, started_seq
		FROM executions
		WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return ir.ExecutionRecord{}, nil, fmt.Errorf("read execution %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.ExecutionRecord{}, nil, fmt.Errorf("read execution %s: %w", id, err)
	}

	events, err := s.readEvents(ctx, id)
	if err != nil {
		return ir.ExecutionRecord{}, nil, err
	}
	return rec, events, nil
}

// ListExecutions returns run headers in start order, optionally filtered by
// pipeline. An empty pipeline lists every run.
func (s *Store) ListExecutions(ctx context.Context, pipeline string) ([]ir.ExecutionRecord, error) {
	query := `
		SELECT id, pipeline, definition_digest, commit_sha, state, started_seq
		FROM executions
		ORDER BY started_seq ASC, id COLLATE BINARY ASC
	`
	args := []any{}
	if pipeline != "" {
		query = `
		SELECT id, pipeline, definition_digest, commit_sha, state, started_seq
		FROM executions
		WHERE pipeline = ?
		ORDER BY started_seq ASC, id COLLATE BINARY ASC
	`
		args = append(args, pipeline)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	recs := []ir.ExecutionRecord{}
	for rows.Next() {
		rec, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	return recs, nil
}

func (s *Store) readEvents(ctx context.Context, id string) ([]ir.ExecutionEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, execution_id, type, stage, action, outcome, detail
		FROM execution_events
		WHERE execution_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []ir.ExecutionEvent{}
	for rows.Next() {
		var ev ir.ExecutionEvent
		var outcome string
		if err := rows.Scan(&ev.Seq, &ev.ExecutionID, &ev.Type, &ev.Stage, &ev.Action, &outcome, &ev.Detail); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Outcome = ir.Outcome(outcome)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExecution(row scanner) (ir.ExecutionRecord, error) {
	var rec ir.ExecutionRecord
	var state string
	if err := row.Scan(&rec.ID, &rec.Pipeline, &rec.DefinitionDigest, &rec.Commit, &state, &rec.StartedSeq); err != nil {
		return ir.ExecutionRecord{}, err
	}
	rec.State = ir.ExecutionState(state)
	return rec, nil
}
