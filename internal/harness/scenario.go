package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/l5xst/internal/consolidate"
	"github.com/roach88/l5xst/internal/diag"
)

// Conversion directions.
const (
	DirectionToST  = "to-st"
	DirectionToL5X = "to-l5x"
)

// Scenario defines a conversion test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	Direction string `yaml:"direction"`

	// Inputs are project files or directories for to-st, one ST file for
	// to-l5x. Paths are relative to the scenario file location.
	Inputs []string `yaml:"inputs"`

	// Config is an optional settings file.
	Config string `yaml:"config,omitempty"`

	// Scans enables the interpreter spot check of the round trip.
	Scans int `yaml:"scans,omitempty"`

	// Stimulus drives the converted program in the interpreter.
	Stimulus []Step `yaml:"stimulus,omitempty"`

	// ExpectError is the diagnostic code the conversion must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`

	Assertions []Assertion `yaml:"assertions"`

	// Golden requests comparing the output with testdata/golden.
	Golden bool `yaml:"golden,omitempty"`

	path string
}

// Path returns the file the scenario was loaded from.
func (s *Scenario) Path() string {
	return s.path
}

// Step sets inputs, runs scans and checks tag values.
type Step struct {
	// Set maps tag paths to values: YAML booleans and numbers, or ST
	// literals as strings ("T#2s").
	Set map[string]interface{} `yaml:"set,omitempty"`

	Scans int `yaml:"scans,omitempty"`

	// Expect maps tag paths to the values they must hold after the scans.
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion validates the conversion result or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "fidelity": round trip score reaches Min
	// - "output_contains", "output_excludes": Text in the output
	// - "diagnostic_count": Count diagnostics with Code
	// - "renamed": Controller's From became To
	// - "final_state": Values after the stimulus
	Type string `yaml:"type"`

	Min  float64 `yaml:"min,omitempty"`
	Text string  `yaml:"text,omitempty"`

	Code  string `yaml:"code,omitempty"`
	Count int    `yaml:"count,omitempty"`

	Controller int    `yaml:"controller,omitempty"`
	Kind       string `yaml:"kind,omitempty"` // tag (default), type or pou
	From       string `yaml:"from,omitempty"`
	To         string `yaml:"to,omitempty"`

	Values map[string]interface{} `yaml:"values,omitempty"`
}

// Assertion type constants.
const (
	AssertFidelity        = "fidelity"
	AssertOutputContains  = "output_contains"
	AssertOutputExcludes  = "output_excludes"
	AssertDiagnosticCount = "diagnostic_count"
	AssertRenamed         = "renamed"
	AssertFinalState      = "final_state"
)

// InputNotFoundError is returned when a scenario references a file that
// doesn't exist.
type InputNotFoundError struct {
	Scenario     string
	Input        string
	ResolvedPath string
}

// Error implements the error interface.
func (e *InputNotFoundError) Error() string {
	return fmt.Sprintf("scenario %q references %q which does not exist (resolved to: %s)",
		e.Scenario, e.Input, e.ResolvedPath)
}

// LoadScenario reads and parses a scenario YAML file, resolving input and
// config paths relative to it. Returns an error if the file doesn't exist,
// is malformed, contains unknown fields (typos), or is missing required
// fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	scenario.path = path

	base := filepath.Dir(path)
	for i, in := range scenario.Inputs {
		scenario.Inputs[i] = resolve(base, in)
	}
	if scenario.Config != "" {
		scenario.Config = resolve(base, scenario.Config)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.Direction {
	case DirectionToST:
		if len(s.Inputs) == 0 {
			return fmt.Errorf("inputs list is required and must be non-empty")
		}
	case DirectionToL5X:
		if len(s.Inputs) != 1 {
			return fmt.Errorf("%s takes exactly one input, got %d", DirectionToL5X, len(s.Inputs))
		}
	case "":
		return fmt.Errorf("direction is required")
	default:
		return fmt.Errorf("unknown direction %q", s.Direction)
	}

	for _, in := range s.Inputs {
		if err := exists(s.Name, in); err != nil {
			return err
		}
	}
	if s.Config != "" {
		if err := exists(s.Name, s.Config); err != nil {
			return err
		}
	}

	if s.Scans < 0 {
		return fmt.Errorf("scans must be non-negative")
	}
	if s.ExpectError != "" {
		if len(s.Stimulus) > 0 {
			return fmt.Errorf("stimulus cannot be combined with expect_error")
		}
		if !diag.Code(s.ExpectError).Fatal() {
			return fmt.Errorf("expect_error %q is not a fatal code", s.ExpectError)
		}
	} else if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Stimulus {
		if step.Scans < 0 {
			return fmt.Errorf("stimulus[%d]: scans must be non-negative", i)
		}
		if len(step.Set) == 0 && step.Scans == 0 && len(step.Expect) == 0 {
			return fmt.Errorf("stimulus[%d]: step is empty", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func exists(scenario, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &InputNotFoundError{Scenario: scenario, Input: filepath.Base(path), ResolvedPath: path}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFidelity:
		if a.Min < 0 || a.Min > 1 {
			return fmt.Errorf("assertions[%d]: min must be within [0,1] for fidelity", index)
		}
	case AssertOutputContains, AssertOutputExcludes:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for %s", index, a.Type)
		}
	case AssertDiagnosticCount:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for diagnostic_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for diagnostic_count", index)
		}
	case AssertRenamed:
		if a.Controller < 1 {
			return fmt.Errorf("assertions[%d]: controller index is required for renamed", index)
		}
		if a.From == "" || a.To == "" {
			return fmt.Errorf("assertions[%d]: from and to are required for renamed", index)
		}
		switch consolidate.NameKind(a.Kind) {
		case "", consolidate.NameTag, consolidate.NameType, consolidate.NamePOU:
		default:
			return fmt.Errorf("assertions[%d]: unknown kind %q for renamed", index, a.Kind)
		}
	case AssertFinalState:
		if len(a.Values) == 0 {
			return fmt.Errorf("assertions[%d]: values is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
