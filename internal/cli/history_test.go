package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/l5xst/internal/store"
)

func TestHistoryRecordsRuns(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")

	_, _, err := execute(t, "to-st", "-i", filepath.Join("testdata", "start_stop.L5X"), "-o", filepath.Join(dir, "a.st"), "--validate", "--db", db)
	require.NoError(t, err)
	_, _, err = execute(t, "to-l5x", "-i", filepath.Join("testdata", "unit.st"), "-o", filepath.Join(dir, "a.L5X"), "--db", db)
	require.NoError(t, err)

	stdout, _, err := execute(t, "--format", "json", "history", "--db", db)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   []store.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data, 2)

	first := resp.Data[0]
	assert.Equal(t, CommandToST, first.Command)
	assert.True(t, first.Validated)
	assert.Equal(t, int64(1_000_000), first.ScorePPM)
	assert.Equal(t, ExitSuccess, first.ExitCode)
	assert.NotEmpty(t, first.InputDigest)
	assert.NotEmpty(t, first.OutputDigest)

	second := resp.Data[1]
	assert.Equal(t, CommandToL5X, second.Command)
	assert.False(t, second.Validated)
	assert.Equal(t, int64(2), second.Seq)
}

func TestHistoryText(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")

	_, _, err := execute(t, "to-st", "-i", filepath.Join("testdata", "start_stop.L5X"), "-o", filepath.Join(dir, "a.st"), "--db", db)
	require.NoError(t, err)

	stdout, _, err := execute(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ #1")
	assert.Contains(t, stdout, "not validated")
}

func TestHistoryMissingDatabase(t *testing.T) {
	_, _, err := execute(t, "history", "--db", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestHistoryUnknownRun(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, _, err = execute(t, "history", "--db", db, "--run", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
