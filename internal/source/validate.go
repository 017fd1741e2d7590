package source

import (
	"fmt"
	"strings"

	"github.com/roach88/l5xst/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// Project structure (E101-E109)
	ErrControllerName = "E101" // controller name is required
	ErrDuplicateTag   = "E102" // duplicate tag in one scope
	ErrDuplicateName  = "E103" // duplicate program, routine, type or AOI name
	ErrRoutineType    = "E104" // routine has no type
	ErrMainRoutine    = "E105" // main routine not found in program
	ErrAliasTarget    = "E106" // alias tag without target
	ErrDimension      = "E107" // unsupported or invalid array dimension
	ErrMemberName     = "E108" // duplicate or empty member name
	ErrParamUsage     = "E109" // add-on instruction parameter with an unknown usage

	// FBD sheet wiring (E110-E119)
	ErrFanIn          = "E110" // more than one wire into one input pin
	ErrUnknownElement = "E111" // wire references an unknown element id
	ErrConnector      = "E112" // input connector without a feeding output connector
	ErrDuplicateID    = "E113" // duplicate element id in a sheet
	ErrUnknownPin     = "E114" // wire into a pin the block does not have
	ErrWireDirection  = "E115" // wire leaves an output-only element or enters an input-only one
)

// ValidationError is one structural problem in a loaded project.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks naming invariants of a loaded controller.
// Returns all errors found (does not fail-fast). Sheet wiring is checked
// while sheets are resolved by FromDocument.
func Validate(c *Controller) []ValidationError {
	var errs []ValidationError

	// E101: controller name is required
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "controller.name",
			Message: "controller name is required and must be non-empty",
			Code:    ErrControllerName,
		})
	}

	errs = append(errs, validateTags("controller.tags", c.Tags)...)

	typeNames := make(map[string]bool)
	for i, dt := range c.Types {
		key := strings.ToUpper(dt.Name)
		// E103: duplicate type name
		if typeNames[key] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("types[%d].name", i),
				Message: fmt.Sprintf("duplicate data type name: %q", dt.Name),
				Code:    ErrDuplicateName,
			})
		}
		typeNames[key] = true

		members := make(map[string]bool)
		for j, m := range dt.Members {
			mk := strings.ToUpper(m.Name)
			// E108: member names are non-empty and unique
			if mk == "" || members[mk] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("types[%d].members[%d]", i, j),
					Message: fmt.Sprintf("invalid or duplicate member name %q in %q", m.Name, dt.Name),
					Code:    ErrMemberName,
				})
			}
			members[mk] = true
		}
	}

	aoiNames := make(map[string]bool)
	for i, a := range c.AOIs {
		key := strings.ToUpper(a.Name)
		// E103: duplicate AOI name, or AOI shadowing a data type
		if aoiNames[key] || typeNames[key] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("aois[%d].name", i),
				Message: fmt.Sprintf("duplicate add-on instruction name: %q", a.Name),
				Code:    ErrDuplicateName,
			})
		}
		aoiNames[key] = true
		for j, p := range a.Params {
			switch p.Usage {
			case UsageInput, UsageOutput, UsageInOut, UsageLocal:
			default:
				// E109: usage is one of Input, Output, InOut
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("aois[%d].params[%d].usage", i, j),
					Message: fmt.Sprintf("parameter %q of %q has unknown usage %q", p.Name, a.Name, p.Usage),
					Code:    ErrParamUsage,
				})
			}
		}
		errs = append(errs, validateRoutines(fmt.Sprintf("aois[%d]", i), a.Routines)...)
	}

	progNames := make(map[string]bool)
	for i, p := range c.Programs {
		key := strings.ToUpper(p.Name)
		// E103: duplicate program name
		if progNames[key] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("programs[%d].name", i),
				Message: fmt.Sprintf("duplicate program name: %q", p.Name),
				Code:    ErrDuplicateName,
			})
		}
		progNames[key] = true

		errs = append(errs, validateTags(fmt.Sprintf("programs[%d].tags", i), p.Tags)...)
		errs = append(errs, validateRoutines(fmt.Sprintf("programs[%d]", i), p.Routines)...)

		// E105: main routine must exist
		if p.MainRoutine != "" {
			if _, ok := p.Routine(p.MainRoutine); !ok {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("programs[%d].main_routine", i),
					Message: fmt.Sprintf("main routine %q not found in program %q", p.MainRoutine, p.Name),
					Code:    ErrMainRoutine,
				})
			}
		}
	}

	return errs
}

func validateTags(field string, tags []Tag) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for i, t := range tags {
		key := strings.ToUpper(t.Name)
		// E102: duplicate tag name in scope
		if seen[key] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d].name", field, i),
				Message: fmt.Sprintf("duplicate tag name: %q", t.Name),
				Code:    ErrDuplicateTag,
			})
		}
		seen[key] = true

		// E106: alias tags need a target
		if t.Kind == ir.KindAlias && strings.TrimSpace(t.Alias) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d].alias_for", field, i),
				Message: fmt.Sprintf("alias tag %q has no target", t.Name),
				Code:    ErrAliasTarget,
			})
		}

		// E107: dimensions must be non-negative
		if t.Dim < 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d].dimensions", field, i),
				Message: fmt.Sprintf("invalid dimension %d for tag %q", t.Dim, t.Name),
				Code:    ErrDimension,
			})
		}
	}
	return errs
}

func validateRoutines(field string, routines []Routine) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for i, r := range routines {
		key := strings.ToUpper(r.Name)
		// E103: duplicate routine name
		if seen[key] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.routines[%d].name", field, i),
				Message: fmt.Sprintf("duplicate routine name: %q", r.Name),
				Code:    ErrDuplicateName,
			})
		}
		seen[key] = true

		// E104: routine type is required
		if r.Kind == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.routines[%d].type", field, i),
				Message: fmt.Sprintf("routine %q has no type", r.Name),
				Code:    ErrRoutineType,
			})
		}
	}
	return errs
}
