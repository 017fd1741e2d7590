package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/l5xst/internal/consolidate"
	"github.com/roach88/l5xst/internal/diag"
	"github.com/roach88/l5xst/internal/engine"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Stimulus trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nStimulus trace:\n")
		for i, event := range e.Trace {
			switch event.Type {
			case EventSet, EventObserve:
				fmt.Fprintf(&buf, "  [%d] scan %d %s %s = %s\n", i+1, event.Seq, event.Type, event.Tag, event.Value)
			case EventScan:
				fmt.Fprintf(&buf, "  [%d] scan %d ran %d scans\n", i+1, event.Seq, event.Scans)
			}
		}
	}
	return buf.String()
}

// assertFidelity checks the round-trip score and the spot check.
func assertFidelity(result *Result, a Assertion) error {
	if result.Report == nil {
		return &AssertionError{
			Type:     AssertFidelity,
			Expected: fmt.Sprintf("score >= %.4f", a.Min),
			Actual:   "no fidelity report",
		}
	}
	if !result.Report.Passes(a.Min) {
		return &AssertionError{
			Type:     AssertFidelity,
			Expected: fmt.Sprintf("score >= %.4f", a.Min),
			Actual:   result.Report.String(),
		}
	}
	if len(result.Diverging) > 0 {
		return &AssertionError{
			Type:     AssertFidelity,
			Expected: "no diverging state after the spot check",
			Actual:   fmt.Sprintf("diverging: %s", strings.Join(result.Diverging, ", ")),
		}
	}
	return nil
}

func assertOutput(result *Result, a Assertion) error {
	found := strings.Contains(result.Output, a.Text)
	want := a.Type == AssertOutputContains
	if found == want {
		return nil
	}
	expected := fmt.Sprintf("output contains %q", a.Text)
	if !want {
		expected = fmt.Sprintf("output does not contain %q", a.Text)
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: expected,
		Actual:   fmt.Sprintf("output of %d bytes", len(result.Output)),
	}
}

func assertDiagnosticCount(result *Result, a Assertion) error {
	n := result.Diags.Count(diag.Code(a.Code))
	if n == a.Count {
		return nil
	}
	var seen []string
	for _, d := range result.Diags {
		seen = append(seen, d.String())
	}
	return &AssertionError{
		Type:     AssertDiagnosticCount,
		Expected: fmt.Sprintf("%d diagnostics with code %s", a.Count, a.Code),
		Actual:   fmt.Sprintf("%d (all: %v)", n, seen),
	}
}

func assertRenamed(result *Result, a Assertion) error {
	kind := consolidate.NameKind(a.Kind)
	if kind == "" {
		kind = consolidate.NameTag
	}
	got, ok := result.Renames.Lookup(a.Controller, kind, a.From)
	if ok && got == a.To {
		return nil
	}
	actual := "no such declaration"
	if ok {
		actual = got
	}
	return &AssertionError{
		Type:     AssertRenamed,
		Expected: fmt.Sprintf("controller %d %s %s renamed to %s", a.Controller, kind, a.From, a.To),
		Actual:   actual,
	}
}

func assertFinalState(result *Result, a Assertion) error {
	if result.values == nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: "final state",
			Actual:   "no stimulus ran",
		}
	}
	for _, tag := range sortedKeys(a.Values) {
		want, err := valueOf(a.Values[tag])
		if err != nil {
			return fmt.Errorf("final_state %s: %w", tag, err)
		}
		got, ok := result.values[engine.Key(tag)]
		if !ok {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s = %s", tag, want),
				Actual:   "tag not found",
				Trace:    result.Trace,
			}
		}
		if !matches(got, want) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s = %s", tag, want),
				Actual:   fmt.Sprintf("%s = %s", tag, got),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

// EvaluateAssertions runs all assertions and collects failures.
// Returns empty slice if all assertions pass.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertFidelity:
			err = assertFidelity(result, a)
		case AssertOutputContains, AssertOutputExcludes:
			err = assertOutput(result, a)
		case AssertDiagnosticCount:
			err = assertDiagnosticCount(result, a)
		case AssertRenamed:
			err = assertRenamed(result, a)
		case AssertFinalState:
			err = assertFinalState(result, a)
		default:
			err = fmt.Errorf("unknown assertion type: %s", a.Type)
		}
		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}
