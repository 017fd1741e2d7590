package source

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/l5xst/internal/ir"
)

// ErrPlaceholder is returned for the "?" operand the editor writes when a
// value is taken from the instruction's backing tag.
var ErrPlaceholder = errors.New("placeholder operand")

var (
	intPattern   = regexp.MustCompile(`^[-+]?[0-9][0-9_]*$`)
	basePattern  = regexp.MustCompile(`^(2|8|16)#[0-9A-Fa-f_]+$`)
	realPattern  = regexp.MustCompile(`^[-+]?[0-9][0-9_]*\.[0-9_]*(?:[eE][-+]?[0-9]+)?$|^[-+]?[0-9]+[eE][-+]?[0-9]+$`)
	identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_:]*`)
	fieldPattern = regexp.MustCompile(`^[A-Za-z0-9_]+`)
)

// ParseOperand parses one instruction operand: a numeric or string literal,
// or a tag reference with member, bit and index selectors
// ("Tank.Level", "Word.3", "Recipe[i].Speed", "Local:1:I.Data").
func ParseOperand(text string) (ir.Expr, error) {
	s := strings.TrimSpace(text)
	switch {
	case s == "":
		return nil, fmt.Errorf("empty operand")
	case s == "?":
		return nil, ErrPlaceholder
	case basePattern.MatchString(s), intPattern.MatchString(s):
		return &ir.Lit{Kind: ir.LitInt, Text: strings.TrimPrefix(s, "+")}, nil
	case realPattern.MatchString(s):
		return &ir.Lit{Kind: ir.LitReal, Text: strings.TrimPrefix(s, "+")}, nil
	case len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'':
		return &ir.Lit{Kind: ir.LitString, Text: s}, nil
	}
	return ParseReference(s)
}

// ParseReference parses a tag reference. Index expressions may be integer
// literals or references.
func ParseReference(text string) (*ir.Ref, error) {
	s := strings.TrimSpace(text)
	root := identPattern.FindString(s)
	if root == "" {
		return nil, fmt.Errorf("invalid reference %q", text)
	}
	ref := &ir.Ref{Name: root}
	rest := s[len(root):]
	for rest != "" {
		switch rest[0] {
		case '.':
			f := fieldPattern.FindString(rest[1:])
			if f == "" {
				return nil, fmt.Errorf("invalid member access in %q", text)
			}
			ref.Path = append(ref.Path, ir.Selector{Field: f})
			rest = rest[1+len(f):]
		case '[':
			end := matchBracket(rest)
			if end < 0 {
				return nil, fmt.Errorf("unterminated index in %q", text)
			}
			for _, part := range splitTop(rest[1:end], ',') {
				idx, err := ParseOperand(part)
				if err != nil {
					return nil, fmt.Errorf("index in %q: %w", text, err)
				}
				if l, ok := idx.(*ir.Lit); ok && l.Kind != ir.LitInt {
					return nil, fmt.Errorf("non-integer index in %q", text)
				}
				ref.Path = append(ref.Path, ir.Selector{Index: idx})
			}
			rest = rest[end+1:]
		default:
			return nil, fmt.Errorf("unexpected %q in reference %q", rest[0], text)
		}
	}
	return ref, nil
}

func matchBracket(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTop splits s at sep outside brackets and parentheses.
func splitTop(s string, sep byte) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '(':
			depth++
		case ']', ')':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// IsModuleReference reports whether a reference names module I/O data
// ("Local:1:I.Data").
func IsModuleReference(r *ir.Ref) bool {
	return strings.Contains(r.Name, ":")
}
