package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/l5xst/internal/ir"
)

// RunWithGolden executes a scenario and compares its output against a
// golden file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the output doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares the given result's output against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(result.Output))
}

// AssertTraceGolden compares the stimulus trace of result, as canonical
// JSON, against testdata/golden/{name}.trace.golden.
func AssertTraceGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{ScenarioName: name, Trace: result.Trace}
	data, err := snapshot.Canonical()
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name+".trace", data)
	return nil
}

// TraceSnapshot is the stimulus trace of a scenario in canonical form.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// Canonical serializes the snapshot as canonical JSON, suitable for
// byte-wise comparison.
func (s *TraceSnapshot) Canonical() ([]byte, error) {
	events := make(ir.IRArray, len(s.Trace))
	for i, e := range s.Trace {
		obj := ir.IRObject{
			"type": ir.IRString(e.Type),
			"step": ir.IRInt(int64(e.Step)),
			"seq":  ir.IRInt(e.Seq),
		}
		if e.Tag != "" {
			obj["tag"] = ir.IRString(e.Tag)
		}
		if e.Value != "" {
			obj["value"] = ir.IRString(e.Value)
		}
		if e.Scans != 0 {
			obj["scans"] = ir.IRInt(int64(e.Scans))
		}
		events[i] = obj
	}
	return ir.MarshalCanonical(ir.IRObject{
		"scenario_name": ir.IRString(s.ScenarioName),
		"trace":         events,
	})
}
