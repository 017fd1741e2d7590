package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/l5xst/internal/diag"
)

// ErrRunNotFound is returned by ReadRun for an unknown ID.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, seq, command, input, input_digest, output_digest, controllers,
	validated, score_ppm, matched, mismatched, missing, extra, exit_code`

// ListOptions filters ListRuns.
type ListOptions struct {
	// Limit keeps only the most recent runs. Zero means all.
	Limit int

	// InputDigest keeps only runs over one input.
	InputDigest string
}

// ListRuns returns recorded runs ordered by seq ascending.
//
// Returns an empty slice (not nil) if no runs match.
func (s *Store) ListRuns(ctx context.Context, opts ListOptions) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if opts.InputDigest != "" {
		query += ` WHERE input_digest = ?`
		args = append(args, opts.InputDigest)
	}
	query += ` ORDER BY seq DESC, id COLLATE BINARY ASC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}
	query = `SELECT * FROM (` + query + `) ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns one run without its diagnostics.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, err
	}
	return r, nil
}

// ReadDiagnostics returns the diagnostics of a run in the order they were
// written.
func (s *Store) ReadDiagnostics(ctx context.Context, runID string) (diag.List, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, severity, message, location, details
		FROM diagnostics
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()

	var out diag.List
	for rows.Next() {
		var (
			d             diag.Diagnostic
			code, sev     string
			loc, detailsJ string
		)
		if err := rows.Scan(&code, &sev, &d.Message, &loc, &detailsJ); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		d.Code, d.Severity = diag.Code(code), diag.Severity(sev)
		if d.Location, err = unmarshalLocation(loc); err != nil {
			return nil, err
		}
		if d.Details, err = unmarshalDetails(detailsJ); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diagnostics: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var r Run
	err := sc.Scan(
		&r.ID,
		&r.Seq,
		&r.Command,
		&r.Input,
		&r.InputDigest,
		&r.OutputDigest,
		&r.Controllers,
		&r.Validated,
		&r.ScorePPM,
		&r.Counts.Matched,
		&r.Counts.Mismatched,
		&r.Counts.Missing,
		&r.Counts.Extra,
		&r.ExitCode,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	return r, nil
}
