package store

import (
	"context"
	"fmt"
)

// WriteRun inserts a run and its diagnostics in one transaction. A run
// without an ID gets one from the store's generator; seq is always
// assigned by the store.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing an ID that
// exists changes nothing and returns the stored run with inserted=false.
func (s *Store) WriteRun(ctx context.Context, run Run) (stored Run, inserted bool, err error) {
	if run.ID == "" {
		run.ID = s.ids.Generate()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, false, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&run.Seq); err != nil {
		return Run{}, false, fmt.Errorf("write run: next seq: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, command, input, input_digest, output_digest, controllers,
		 validated, score_ppm, matched, mismatched, missing, extra, exit_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Seq,
		run.Command,
		run.Input,
		run.InputDigest,
		run.OutputDigest,
		run.Controllers,
		run.Validated,
		run.ScorePPM,
		run.Counts.Matched,
		run.Counts.Mismatched,
		run.Counts.Missing,
		run.Counts.Extra,
		run.ExitCode,
	)
	if err != nil {
		return Run{}, false, fmt.Errorf("write run: insert: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return Run{}, false, fmt.Errorf("write run: rows affected: %w", err)
	}
	if n == 0 {
		if err := tx.Rollback(); err != nil {
			return Run{}, false, fmt.Errorf("write run: rollback: %w", err)
		}
		existing, err := s.ReadRun(ctx, run.ID)
		if err != nil {
			return Run{}, false, err
		}
		return existing, false, nil
	}

	for i, d := range run.Diagnostics {
		loc, err := marshalLocation(d.Location)
		if err != nil {
			return Run{}, false, fmt.Errorf("write run: %w", err)
		}
		details, err := marshalDetails(d.Details)
		if err != nil {
			return Run{}, false, fmt.Errorf("write run: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO diagnostics (run_id, idx, code, severity, message, location, details)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, run.ID, i, string(d.Code), string(d.Severity), d.Message, loc, details)
		if err != nil {
			return Run{}, false, fmt.Errorf("write run: diagnostic %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, false, fmt.Errorf("write run: commit: %w", err)
	}
	return run, true, nil
}
