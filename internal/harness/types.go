package harness

import (
	"github.com/roach88/l5xst/internal/consolidate"
	"github.com/roach88/l5xst/internal/diag"
	"github.com/roach88/l5xst/internal/engine"
	"github.com/roach88/l5xst/internal/fidelity"
)

// Trace event types.
const (
	EventSet     = "set"
	EventScan    = "scan"
	EventObserve = "observe"
)

// TraceEvent records one interaction with the interpreter during the
// stimulus.
type TraceEvent struct {
	Type  string `json:"type"`
	Step  int    `json:"step"`
	Tag   string `json:"tag,omitempty"`
	Value string `json:"value,omitempty"`
	Scans int    `json:"scans,omitempty"`

	// Seq is the scan number when the event happened.
	Seq int64 `json:"seq"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every stimulus expectation and assertion held.
	Pass bool `json:"pass"`

	// Output is the emitted ST text or vendor XML.
	Output string `json:"-"`

	Report    *fidelity.Report  `json:"report,omitempty"`
	Diverging []string          `json:"diverging,omitempty"`
	Diags     diag.List         `json:"diagnostics,omitempty"`
	Renames   consolidate.Table `json:"-"`

	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`

	// State is the interpreter state after the stimulus, keyed by state key
	// and rendered as ST literals.
	State map[string]string `json:"state,omitempty"`

	values map[string]engine.Value
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]string),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addTrace(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}
