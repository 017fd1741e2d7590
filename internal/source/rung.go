package source

import (
	"fmt"
	"strings"
)

// Element is one term of a rung network: an Instruction or a Branch.
type Element interface {
	element()
}

// Series is a left-to-right sequence of elements.
type Series []Element

// Instruction is a mnemonic with its raw operand texts.
type Instruction struct {
	Mnemonic string
	Operands []string
	Pos      int // byte offset in the rung text
}

// Branch is a parallel group of legs. A single-leg group behaves as a
// series.
type Branch struct {
	Legs []Series
}

func (*Instruction) element() {}
func (*Branch) element()      {}

// RungError reports malformed rung text.
type RungError struct {
	Pos     int
	Message string
}

func (e *RungError) Error() string {
	return fmt.Sprintf("rung text offset %d: %s", e.Pos, e.Message)
}

// ParseRung parses neutral rung text such as
// "XIC(A)[XIO(B),XIC(C)]OTE(D);" into a series-parallel network. The
// trailing ';' is optional. Operands may contain nested parentheses and
// brackets; commas split operands only at nesting depth zero.
func ParseRung(text string) (Series, error) {
	p := &rungParser{src: text}
	p.skipSpace()
	s, err := p.series()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.peek() == ';' {
		p.pos++
		p.skipSpace()
	}
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos])
	}
	return s, nil
}

type rungParser struct {
	src string
	pos int
}

func (p *rungParser) errorf(format string, args ...any) error {
	return &RungError{Pos: p.pos, Message: fmt.Sprintf(format, args...)}
}

func (p *rungParser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *rungParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n' || p.src[p.pos] == '\r') {
		p.pos++
	}
}

// series parses elements until ',', ']', ';' or end of input.
func (p *rungParser) series() (Series, error) {
	var s Series
	for {
		p.skipSpace()
		switch c := p.peek(); {
		case c == 0 || c == ',' || c == ']' || c == ';':
			return s, nil
		case c == '[':
			b, err := p.branch()
			if err != nil {
				return nil, err
			}
			s = append(s, b)
		case isIdentStart(c):
			in, err := p.instruction()
			if err != nil {
				return nil, err
			}
			s = append(s, in)
		default:
			return nil, p.errorf("unexpected %q", c)
		}
	}
}

func (p *rungParser) branch() (*Branch, error) {
	start := p.pos
	p.pos++ // '['
	b := &Branch{}
	for {
		leg, err := p.series()
		if err != nil {
			return nil, err
		}
		if len(leg) == 0 {
			return nil, p.errorf("empty branch leg")
		}
		b.Legs = append(b.Legs, leg)
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return b, nil
		default:
			p.pos = start
			return nil, p.errorf("unterminated branch")
		}
	}
}

func (p *rungParser) instruction() (*Instruction, error) {
	start := p.pos
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	in := &Instruction{Mnemonic: strings.ToUpper(p.src[start:p.pos]), Pos: start}
	p.skipSpace()
	if p.peek() != '(' {
		// Operand-less instructions (NOP, AFI) may omit the parentheses.
		return in, nil
	}
	p.pos++
	ops, err := p.operands()
	if err != nil {
		return nil, err
	}
	in.Operands = ops
	return in, nil
}

// operands reads up to the matching ')' and splits at depth-zero commas.
func (p *rungParser) operands() ([]string, error) {
	var (
		ops   []string
		depth int
		start = p.pos
		quote bool
	)
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case quote:
			if c == '\'' {
				quote = false
			}
		case c == '\'':
			quote = true
		case c == '(' || c == '[':
			depth++
		case (c == ']' || c == ')') && depth > 0:
			depth--
		case c == ',' && depth == 0:
			ops = append(ops, strings.TrimSpace(p.src[start:p.pos]))
			start = p.pos + 1
		case c == ')':
			last := strings.TrimSpace(p.src[start:p.pos])
			if last != "" || len(ops) > 0 {
				ops = append(ops, last)
			}
			p.pos++
			return ops, nil
		}
		p.pos++
	}
	return nil, p.errorf("unterminated operand list")
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// Instructions returns every instruction of s in left-to-right, depth-first
// order.
func (s Series) Instructions() []*Instruction {
	var out []*Instruction
	for _, el := range s {
		switch v := el.(type) {
		case *Instruction:
			out = append(out, v)
		case *Branch:
			for _, leg := range v.Legs {
				out = append(out, leg.Instructions()...)
			}
		}
	}
	return out
}

// String renders s back to neutral rung text without the terminator.
func (s Series) String() string {
	var b strings.Builder
	s.write(&b)
	return b.String()
}

func (s Series) write(b *strings.Builder) {
	for _, el := range s {
		switch v := el.(type) {
		case *Instruction:
			b.WriteString(v.Mnemonic)
			b.WriteByte('(')
			b.WriteString(strings.Join(v.Operands, ","))
			b.WriteByte(')')
		case *Branch:
			b.WriteByte('[')
			for i, leg := range v.Legs {
				if i > 0 {
					b.WriteByte(',')
				}
				leg.write(b)
			}
			b.WriteByte(']')
		}
	}
}
