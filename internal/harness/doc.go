// Package harness runs conversion scenarios: a project or ST unit goes
// through the pipeline, the result is validated and optionally driven in
// the interpreter, and assertions check the outcome.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: start_stop
//	description: "Seal-in rung converts and latches"
//	direction: to-st
//	inputs:
//	  - inputs/start_stop.L5X
//	config: settings.cue
//	scans: 5
//	stimulus:
//	  - set: { Start: true }
//	    scans: 1
//	    expect: { Motor: true }
//	assertions:
//	  - type: fidelity
//	    min: 1.0
//	  - type: output_contains
//	    text: "Motor := Start AND NOT Stop;"
//	golden: true
//
// Input and config paths are relative to the scenario file. A to-st
// scenario takes one or more project files or directories; the order sets
// the controller index. A to-l5x scenario takes exactly one ST file.
//
// A scenario that sets expect_error instead expects the conversion to fail
// with that diagnostic code.
//
// # Assertion Types
//
//   - fidelity: the round trip scores at least min and no state diverges
//   - output_contains, output_excludes: the emitted text contains text or not
//   - diagnostic_count: exactly count diagnostics carry code
//   - renamed: a declaration of controller was renamed from one name to another
//   - final_state: tag values after the stimulus
//
// # Golden Files
//
// RunWithGolden compares the emitted text with testdata/golden/<name>.golden.
// Regenerate with:
//
//	go test ./internal/harness -update
package harness
