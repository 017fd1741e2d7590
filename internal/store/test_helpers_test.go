package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/l5xst/internal/diag"
	"github.com/roach88/l5xst/internal/testutil"
)

// createTestStore creates a new store in a temporary directory with
// sequential run IDs.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path, WithIDGenerator(testutil.NewSequenceGenerator("")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run with minimal required fields.
func createTestRun(command, input string) Run {
	return Run{
		Command:      command,
		Input:        input,
		InputDigest:  "in-" + input,
		OutputDigest: "out-" + input,
		Controllers:  1,
	}
}

func rungDiag(code diag.Code, rung int, msg string) diag.Diagnostic {
	return diag.Diagnostic{
		Code:     code,
		Severity: diag.SeverityWarning,
		Message:  msg,
		Location: diag.Location{Controller: "Line1", Program: "MainProgram", Routine: "Main"}.AtRung(rung),
	}
}
