package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/l5xst/internal/fidelity"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestToST(t *testing.T) {
	out := filepath.Join(t.TempDir(), "start_stop.st")

	stdout, _, err := execute(t, "to-st", "-i", filepath.Join("testdata", "start_stop.L5X"), "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Converted 1 controller(s)")

	text, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(text), "Motor := (Start OR Motor) AND NOT Stop;")
	assert.Contains(t, string(text), "CONFIGURATION Config0")
}

func TestValidationFailure(t *testing.T) {
	full := &fidelity.Report{Statements: fidelity.Counts{Matched: 2}}
	half := &fidelity.Report{Statements: fidelity.Counts{Matched: 1, Mismatched: 1}}
	tests := []struct {
		name string
		v    ValidationResult
		want string
	}{
		{
			name: "divergence only",
			v:    ValidationResult{Percent: 100, Min: 1, Report: full, Diverging: []string{"MOTOR"}},
			want: "1 value(s) diverged",
		},
		{
			name: "score only",
			v:    ValidationResult{Percent: 50, Min: 0.9, Report: half},
			want: "fidelity 50.00% is below 90.00%",
		},
		{
			name: "both",
			v:    ValidationResult{Percent: 50, Min: 0.9, Report: half, Diverging: []string{"A", "B"}},
			want: "fidelity 50.00% is below 90.00%; 2 value(s) diverged",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.failure())
		})
	}
}

func TestToSTValidate(t *testing.T) {
	out := filepath.Join(t.TempDir(), "start_stop.st")

	stdout, _, err := execute(t, "to-st", "-i", filepath.Join("testdata", "start_stop.L5X"), "-o", out, "--validate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Fidelity: 100.00%")
	assert.Contains(t, stdout, "statements:")
}

func TestToSTDirectoryJSON(t *testing.T) {
	out := filepath.Join(t.TempDir(), "lines.st")

	stdout, _, err := execute(t, "--format", "json", "to-st", "-i", filepath.Join("testdata", "lines"), "-o", out, "--validate")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ConversionResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Controllers)
	require.NotNil(t, resp.Data.Validation)
	assert.True(t, resp.Data.Validation.Pass)

	var renamed []string
	for _, r := range resp.Data.Renames {
		renamed = append(renamed, r.To)
	}
	assert.Contains(t, renamed, "Start_1")
	assert.Contains(t, renamed, "Start_2")
}

func TestToSTMissingInput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "x.st")

	stdout, _, err := execute(t, "to-st", "-i", filepath.Join("testdata", "nope.L5X"), "-o", out)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, ErrCodeNotFound)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "no output is written on failure")
}

func TestToSTBadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "bad.cue")
	require.NoError(t, os.WriteFile(cfg, []byte(`max_suffix: 1`), 0o644))

	stdout, _, err := execute(t, "--config", cfg, "to-st", "-i", filepath.Join("testdata", "start_stop.L5X"), "-o", filepath.Join(dir, "x.st"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, ErrCodeConfig)
}

func TestToL5X(t *testing.T) {
	out := filepath.Join(t.TempDir(), "unit.L5X")

	_, _, err := execute(t, "to-l5x", "-i", filepath.Join("testdata", "unit.st"), "-o", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<?xml")
	assert.Contains(t, string(data), `Name="MainProgram"`)
	assert.Contains(t, string(data), "XIC(Start)XIO(Stop)OTE(Motor);")
}

func TestToL5XDirectory(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "unit.st"))
	require.NoError(t, err)
	program, configuration, ok := strings.Cut(string(data), "CONFIGURATION")
	require.True(t, ok)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_logic.st"), []byte(program), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_config.ST"), []byte("CONFIGURATION"+configuration), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not ST"), 0o644))
	out := filepath.Join(t.TempDir(), "unit.L5X")

	_, _, err = execute(t, "to-l5x", "-i", dir, "-o", out, "--validate")
	require.NoError(t, err)
	project, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(project), "XIC(Start)XIO(Stop)OTE(Motor);")
	assert.Contains(t, string(project), `Name="Stop"`)

	t.Run("empty directory", func(t *testing.T) {
		stdout, _, err := execute(t, "to-l5x", "-i", t.TempDir(), "-o", out)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, stdout, ErrCodeLoadFailed)
	})
}

func TestToL5XValidateJSON(t *testing.T) {
	out := filepath.Join(t.TempDir(), "unit.L5X")

	stdout, _, err := execute(t, "--format", "json", "to-l5x", "-i", filepath.Join("testdata", "unit.st"), "-o", out, "--validate")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ConversionResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.Data.Validation)
	assert.Equal(t, 1.0, resp.Data.Validation.Score)
}

func TestToL5XSyntaxError(t *testing.T) {
	out := filepath.Join(t.TempDir(), "broken.L5X")

	stdout, _, err := execute(t, "--format", "json", "to-l5x", "-i", filepath.Join("testdata", "broken.st"), "-o", out)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeConvert, resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "MALFORMED_ST_SYNTAX", details["code"])
}

func TestRequiredFlags(t *testing.T) {
	_, _, err := execute(t, "to-st", "-i", filepath.Join("testdata", "start_stop.L5X"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output")
}

func TestVerboseLogsToStderr(t *testing.T) {
	out := filepath.Join(t.TempDir(), "start_stop.st")

	stdout, stderr, err := execute(t, "-v", "--format", "json", "to-st", "-i", filepath.Join("testdata", "start_stop.L5X"), "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Loaded 1 controller(s)")

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp), "stdout stays valid JSON")
}
