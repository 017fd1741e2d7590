package store

import (
	"math"

	"github.com/roach88/l5xst/internal/diag"
	"github.com/roach88/l5xst/internal/fidelity"
)

// Run is one recorded conversion.
type Run struct {
	ID  string `json:"id"`
	Seq int64  `json:"seq"`

	// Command is the CLI command, "to-st" or "to-l5x".
	Command      string `json:"command"`
	Input        string `json:"input"`
	InputDigest  string `json:"input_digest"`
	OutputDigest string `json:"output_digest"`
	Controllers  int    `json:"controllers"`

	// Validated reports whether a round trip was scored. ScorePPM and
	// Counts are zero otherwise.
	Validated bool            `json:"validated"`
	ScorePPM  int64           `json:"score_ppm"`
	Counts    fidelity.Counts `json:"counts"`
	ExitCode  int             `json:"exit_code"`

	// Diagnostics are written with the run. ListRuns and ReadRun leave
	// them empty; use ReadDiagnostics.
	Diagnostics diag.List `json:"diagnostics,omitempty"`
}

// Score returns the fidelity score as a ratio.
func (r Run) Score() float64 {
	return float64(r.ScorePPM) / 1e6
}

// PPM converts a ratio to parts per million.
func PPM(score float64) int64 {
	return int64(math.Round(score * 1e6))
}
