// Package diag defines the error taxonomy and diagnostics shared by every
// conversion stage.
//
// Recoverable problems (an unsupported instruction, a cyclic sheet, a type
// coercion) are collected as Diagnostics and attached to the output. Fatal
// problems abort the conversion and are returned as *Error values.
package diag

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code identifies a problem category.
type Code string

const (
	// CodeUnsupportedInstruction: an instruction or block has no mapping.
	// Recoverable; the rung or block becomes a placeholder.
	CodeUnsupportedInstruction Code = "UNSUPPORTED_INSTRUCTION"

	// CodeStructuralCycle: an FBD sheet has a cycle through combinational
	// blocks only. Recoverable at sheet granularity.
	CodeStructuralCycle Code = "STRUCTURAL_CYCLE"

	// CodeNameCollision: the renaming policy ran out of suffixes. Fatal.
	CodeNameCollision Code = "NAME_COLLISION_UNRESOLVABLE"

	// CodeMalformedSource: the source element tree violates its contract. Fatal.
	CodeMalformedSource Code = "MALFORMED_SOURCE_TREE"

	// CodeMalformedST: the ST text does not parse. Fatal.
	CodeMalformedST Code = "MALFORMED_ST_SYNTAX"

	// CodeTypeMismatch: an assignment or operand needed a numeric coercion.
	// Recoverable.
	CodeTypeMismatch Code = "TYPE_MISMATCH"

	// CodeDisabled: a statement was preserved as disabled (module I/O,
	// system access). Informational.
	CodeDisabled Code = "DISABLED_STATEMENT"

	// CodeUnknownTag: an operand references an undeclared tag. Warning.
	CodeUnknownTag Code = "UNKNOWN_TAG"
)

// Fatal reports whether problems with this code abort a conversion.
func (c Code) Fatal() bool {
	switch c {
	case CodeNameCollision, CodeMalformedSource, CodeMalformedST:
		return true
	}
	return false
}

// Severity grades a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Location points into the source project or ST text. Zero fields are
// omitted when printed.
type Location struct {
	Controller string `json:"controller,omitempty"`
	Program    string `json:"program,omitempty"`
	Routine    string `json:"routine,omitempty"`
	Rung       *int   `json:"rung,omitempty"`
	Sheet      *int   `json:"sheet,omitempty"`
	Block      string `json:"block,omitempty"`
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
}

// AtRung returns a copy of l pointing at a rung.
func (l Location) AtRung(n int) Location {
	l.Rung = &n
	return l
}

// AtSheet returns a copy of l pointing at an FBD sheet.
func (l Location) AtSheet(n int) Location {
	l.Sheet = &n
	return l
}

func (l Location) String() string {
	var parts []string
	if l.Controller != "" {
		parts = append(parts, l.Controller)
	}
	if l.Program != "" {
		parts = append(parts, l.Program)
	}
	if l.Routine != "" {
		parts = append(parts, l.Routine)
	}
	if l.Rung != nil {
		parts = append(parts, fmt.Sprintf("rung %d", *l.Rung))
	}
	if l.Sheet != nil {
		parts = append(parts, fmt.Sprintf("sheet %d", *l.Sheet))
	}
	if l.Block != "" {
		parts = append(parts, "block "+l.Block)
	}
	if l.Line > 0 {
		parts = append(parts, fmt.Sprintf("%d:%d", l.Line, l.Column))
	}
	return strings.Join(parts, "/")
}

// Diagnostic is one collected problem.
type Diagnostic struct {
	Code     Code              `json:"code"`
	Severity Severity          `json:"severity"`
	Message  string            `json:"message"`
	Location Location          `json:"location"`
	Details  map[string]string `json:"details,omitempty"`
}

func (d Diagnostic) String() string {
	loc := d.Location.String()
	if loc == "" {
		return fmt.Sprintf("%s %s: %s", d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s %s: %s (%s)", d.Severity, d.Code, d.Message, loc)
}

// List is an ordered collection of diagnostics.
type List []Diagnostic

// Add appends a diagnostic.
func (l *List) Add(d Diagnostic) {
	*l = append(*l, d)
}

// Extend appends every diagnostic in other.
func (l *List) Extend(other List) {
	*l = append(*l, other...)
}

// Count returns the number of diagnostics with the given code.
func (l List) Count(code Code) int {
	n := 0
	for _, d := range l {
		if d.Code == code {
			n++
		}
	}
	return n
}

// Has reports whether any diagnostic carries code.
func (l List) Has(code Code) bool {
	return l.Count(code) > 0
}

// Sorted returns a copy ordered by location then code. Used for stable
// reporting when stages ran concurrently.
func (l List) Sorted() List {
	out := make(List, len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Location.String(), out[j].Location.String()
		if a != b {
			return a < b
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// Unsupported builds an UNSUPPORTED_INSTRUCTION diagnostic.
func Unsupported(loc Location, what, reason string) Diagnostic {
	return Diagnostic{
		Code:     CodeUnsupportedInstruction,
		Severity: SeverityError,
		Message:  fmt.Sprintf("unsupported %s: %s", what, reason),
		Location: loc,
		Details:  map[string]string{"instruction": what},
	}
}

// TypeMismatch builds a TYPE_MISMATCH warning.
func TypeMismatch(loc Location, target, from, to string) Diagnostic {
	return Diagnostic{
		Code:     CodeTypeMismatch,
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("coerced %s value assigned to %s (%s)", from, target, to),
		Location: loc,
		Details:  map[string]string{"target": target, "from": from, "to": to},
	}
}

// OperandMismatch builds a TYPE_MISMATCH warning for an operand promoted
// inside an expression.
func OperandMismatch(loc Location, operand, from, to string) Diagnostic {
	return Diagnostic{
		Code:     CodeTypeMismatch,
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("coerced %s operand %s to %s", from, operand, to),
		Location: loc,
		Details:  map[string]string{"operand": operand, "from": from, "to": to},
	}
}

// Warning builds a warning with an arbitrary code.
func Warning(code Code, loc Location, format string, args ...any) Diagnostic {
	return Diagnostic{Code: code, Severity: SeverityWarning, Message: fmt.Sprintf(format, args...), Location: loc}
}

// Error is a conversion failure carrying a taxonomy code.
type Error struct {
	Code     Code
	Message  string
	Location Location
	Details  map[string]string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if loc := e.Location.String(); loc != "" {
		msg += " (" + loc + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Diagnostic converts a recoverable error into a collected diagnostic.
func (e *Error) Diagnostic() Diagnostic {
	return Diagnostic{
		Code:     e.Code,
		Severity: SeverityError,
		Message:  e.Message,
		Location: e.Location,
		Details:  e.Details,
	}
}

// Errorf builds an *Error.
func Errorf(code Code, loc Location, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Location: loc}
}

// Wrap builds an *Error around an underlying error.
func Wrap(code Code, loc Location, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Location: loc, Err: err}
}

// CodeOf returns the taxonomy code of err, or "" if it has none.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsFatal reports whether err aborts a conversion. Errors without a
// taxonomy code are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	code := CodeOf(err)
	return code == "" || code.Fatal()
}

// IsCycle reports whether err is a structural cycle error.
func IsCycle(err error) bool {
	return CodeOf(err) == CodeStructuralCycle
}

// NewCycleError builds a STRUCTURAL_CYCLE error naming every member.
func NewCycleError(loc Location, members []string) *Error {
	return &Error{
		Code:     CodeStructuralCycle,
		Message:  fmt.Sprintf("combinational cycle through %s", strings.Join(members, ", ")),
		Location: loc,
		Details:  map[string]string{"members": strings.Join(members, ",")},
	}
}

// NewCollisionError builds a NAME_COLLISION_UNRESOLVABLE error.
func NewCollisionError(name string, attempts int) *Error {
	return &Error{
		Code:    CodeNameCollision,
		Message: fmt.Sprintf("no free name for %q after %d suffix attempts", name, attempts),
		Details: map[string]string{"name": name, "attempts": fmt.Sprintf("%d", attempts)},
	}
}
