package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ourobouros/samlocal/internal/apperror"
	"github.com/ourobouros/samlocal/internal/model"
	"github.com/ourobouros/samlocal/internal/repository"
)

// Create inserts a completed run record.
func (db *DB) Create(ctx context.Context, run *model.Run) error {
	const q = `
	INSERT INTO runs (id, handler, mode, exit_code, stdout, stderr, breakpoint_hit, duration_ms, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := db.conn.ExecContext(ctx, q,
		run.ID, run.Handler, run.Mode, run.ExitCode,
		run.Stdout, run.Stderr, run.BreakpointHit, run.DurationMS, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}
	return nil
}

// GetByID fetches one run record.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Run, error) {
	const q = `
	SELECT id, handler, mode, exit_code, stdout, stderr, breakpoint_hit, duration_ms, created_at
	FROM runs WHERE id = ?`

	var run model.Run
	err := db.conn.QueryRowContext(ctx, q, id).Scan(
		&run.ID, &run.Handler, &run.Mode, &run.ExitCode,
		&run.Stdout, &run.Stderr, &run.BreakpointHit, &run.DurationMS, &run.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("run", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run %s: %w", id, err)
	}
	return &run, nil
}

// List returns run records, newest first.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.Run, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	const q = `
	SELECT id, handler, mode, exit_code, stdout, stderr, breakpoint_hit, duration_ms, created_at
	FROM runs ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	rows, err := db.conn.QueryContext(ctx, q, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var run model.Run
		if err := rows.Scan(
			&run.ID, &run.Handler, &run.Mode, &run.ExitCode,
			&run.Stdout, &run.Stderr, &run.BreakpointHit, &run.DurationMS, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
