package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/l5xst/internal/diag"
)

func TestListRuns_Empty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background(), ListOptions{})
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestListRuns_Order(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, in := range []string{"a", "b", "a", "c"} {
		_, _, err := s.WriteRun(ctx, createTestRun("to-st", in))
		require.NoError(t, err)
	}

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"all", ListOptions{}, []string{"a", "b", "a", "c"}},
		{"limit keeps the latest", ListOptions{Limit: 2}, []string{"a", "c"}},
		{"by input", ListOptions{InputDigest: "in-a"}, []string{"a", "a"}},
		{"by input with limit", ListOptions{InputDigest: "in-a", Limit: 1}, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := s.ListRuns(ctx, tt.opts)
			require.NoError(t, err)
			var inputs []string
			for i, r := range runs {
				inputs = append(inputs, r.Input)
				if i > 0 {
					assert.Less(t, runs[i-1].Seq, r.Seq)
				}
			}
			assert.Equal(t, tt.want, inputs)
		})
	}
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestReadDiagnostics(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	cycle := diag.NewCycleError(diag.Location{Controller: "Line1", Routine: "Calc"}.AtSheet(2), []string{"ADD_01", "MUL_02"}).Diagnostic()
	parse := diag.Diagnostic{
		Code:     diag.CodeMalformedST,
		Severity: diag.SeverityError,
		Message:  "unexpected token",
		Location: diag.Location{Line: 12, Column: 5},
	}
	want := diag.List{
		rungDiag(diag.CodeUnsupportedInstruction, 0, "RTO has no counterpart"),
		cycle,
		parse,
	}

	run := createTestRun("to-st", "a.L5X")
	run.Diagnostics = want
	stored, _, err := s.WriteRun(ctx, run)
	require.NoError(t, err)

	got, err := s.ReadDiagnostics(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	listed, err := s.ReadRun(ctx, stored.ID)
	require.NoError(t, err)
	assert.Empty(t, listed.Diagnostics)
}

func TestReadDiagnostics_UnknownRun(t *testing.T) {
	s := createTestStore(t)

	got, err := s.ReadDiagnostics(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, got)
}
