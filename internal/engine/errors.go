package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is a failure while executing a scan. It aborts the scan;
// state written before the failing statement is kept.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Ref is the reference being read or written, when there is one.
	Ref string

	// Scan is the 1-based scan the error occurred in.
	Scan int64
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownTag: a reference names no state of the program.
	ErrCodeUnknownTag RuntimeErrorCode = "UNKNOWN_TAG"

	// ErrCodeTypeError: a value does not fit the operator or the target.
	ErrCodeTypeError RuntimeErrorCode = "TYPE_ERROR"

	// ErrCodeLoopLimit: a FOR or WHILE loop ran past the iteration limit.
	ErrCodeLoopLimit RuntimeErrorCode = "LOOP_LIMIT"

	// ErrCodeUnsupported: the statement or function has no interpretation.
	ErrCodeUnsupported RuntimeErrorCode = "UNSUPPORTED"

	// ErrCodeArithmetic: integer division by zero.
	ErrCodeArithmetic RuntimeErrorCode = "ARITHMETIC"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	switch {
	case e.Ref != "" && e.Scan > 0:
		return fmt.Sprintf("%s: %s (ref=%s, scan=%d)", e.Code, e.Message, e.Ref, e.Scan)
	case e.Ref != "":
		return fmt.Sprintf("%s: %s (ref=%s)", e.Code, e.Message, e.Ref)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the code of a RuntimeError anywhere in err's chain, or
// "" when there is none.
func CodeOf(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsUnsupported reports whether err is an UNSUPPORTED runtime error.
// Uses errors.As to handle wrapped errors.
func IsUnsupported(err error) bool {
	return CodeOf(err) == ErrCodeUnsupported
}

func unknownTag(ref string) *RuntimeError {
	return &RuntimeError{Code: ErrCodeUnknownTag, Message: "no such tag or member", Ref: ref}
}

func typeError(ref string, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: ErrCodeTypeError, Message: fmt.Sprintf(format, args...), Ref: ref}
}

func unsupported(format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: ErrCodeUnsupported, Message: fmt.Sprintf(format, args...)}
}
