package ir

import (
	"strconv"
	"strings"
)

// Expr is a sealed interface for IR expressions.
type Expr interface {
	expr()
}

// Selector is one step of a reference path: a member access or an index.
// Exactly one of Field and Index is set.
type Selector struct {
	Field string
	Index Expr
}

// Ref reads a tag, a member of a tag or an array element.
type Ref struct {
	Name string
	Path []Selector
}

// LitKind classifies literal values.
type LitKind uint8

const (
	LitBool LitKind = iota + 1
	LitInt
	LitReal
	LitTime
	LitString
)

// Lit is a literal. Text is the normalized ST spelling (TRUE, 42, 1.5, T#1s).
type Lit struct {
	Kind LitKind
	Text string
}

// UnaryOp is a prefix operator.
type UnaryOp uint8

const (
	OpNot UnaryOp = iota + 1
	OpNeg
)

// BinaryOp is an infix operator.
type BinaryOp uint8

const (
	OpOr BinaryOp = iota + 1
	OpXor
	OpAnd
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
)

// Unary applies a prefix operator.
type Unary struct {
	Op UnaryOp
	X  Expr
}

// Binary applies an infix operator.
type Binary struct {
	Op   BinaryOp
	X, Y Expr
}

// Arg is a call argument. Name is empty for positional arguments.
type Arg struct {
	Name  string
	Value Expr
}

// Call invokes a function in expression position.
type Call struct {
	Func string
	Args []Arg
}

func (*Ref) expr()    {}
func (*Lit) expr()    {}
func (*Unary) expr()  {}
func (*Binary) expr() {}
func (*Call) expr()   {}

var binaryTokens = [...]string{
	OpOr: "OR", OpXor: "XOR", OpAnd: "AND",
	OpEq: "=", OpNe: "<>", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "MOD", OpPow: "**",
}

// String returns the ST token for the operator.
func (op BinaryOp) String() string {
	if int(op) < len(binaryTokens) && binaryTokens[op] != "" {
		return binaryTokens[op]
	}
	return "BinaryOp(" + strconv.Itoa(int(op)) + ")"
}

// Precedence orders operators from loosest (1) to tightest binding.
func (op BinaryOp) Precedence() int {
	switch op {
	case OpOr:
		return 1
	case OpXor:
		return 2
	case OpAnd:
		return 3
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return 4
	case OpAdd, OpSub:
		return 5
	case OpMul, OpDiv, OpMod:
		return 6
	case OpPow:
		return 7
	}
	return 0
}

// IsComparison reports whether the operator yields BOOL from two operands.
func (op BinaryOp) IsComparison() bool {
	return op.Precedence() == 4
}

// IsLogical reports whether the operator is AND, OR or XOR.
func (op BinaryOp) IsLogical() bool {
	return op == OpAnd || op == OpOr || op == OpXor
}

// String returns the ST token for the operator.
func (op UnaryOp) String() string {
	switch op {
	case OpNot:
		return "NOT"
	case OpNeg:
		return "-"
	}
	return "UnaryOp(" + strconv.Itoa(int(op)) + ")"
}

// ParseBinaryOp maps an ST token to its operator (case-insensitive).
func ParseBinaryOp(tok string) (BinaryOp, bool) {
	up := strings.ToUpper(tok)
	if up == "&" {
		return OpAnd, true
	}
	for op, t := range binaryTokens {
		if t != "" && t == up {
			return BinaryOp(op), true
		}
	}
	return 0, false
}

// Constructors.

// True and False are shared literal values. Treat them as immutable.
var (
	True  = &Lit{Kind: LitBool, Text: "TRUE"}
	False = &Lit{Kind: LitBool, Text: "FALSE"}
)

// Bool returns the boolean literal for b.
func Bool(b bool) *Lit {
	if b {
		return True
	}
	return False
}

// Int returns an integer literal.
func Int(n int64) *Lit {
	return &Lit{Kind: LitInt, Text: strconv.FormatInt(n, 10)}
}

// Name returns a plain reference to a tag.
func Name(name string) *Ref {
	return &Ref{Name: name}
}

// Dot returns r extended by a member access. r is not modified.
func (r *Ref) Dot(field string) *Ref {
	path := make([]Selector, len(r.Path), len(r.Path)+1)
	copy(path, r.Path)
	return &Ref{Name: r.Name, Path: append(path, Selector{Field: field})}
}

// String renders the reference in ST syntax. Index expressions are rendered
// only when they are literals or plain references.
func (r *Ref) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	for _, sel := range r.Path {
		if sel.Index == nil {
			b.WriteByte('.')
			b.WriteString(sel.Field)
			continue
		}
		b.WriteByte('[')
		switch ix := sel.Index.(type) {
		case *Lit:
			b.WriteString(ix.Text)
		case *Ref:
			b.WriteString(ix.String())
		default:
			b.WriteString("?")
		}
		b.WriteByte(']')
	}
	return b.String()
}

// Not negates x, folding double negation and boolean literals.
func Not(x Expr) Expr {
	switch v := x.(type) {
	case *Unary:
		if v.Op == OpNot {
			return v.X
		}
	case *Lit:
		if v.Kind == LitBool {
			return Bool(v.Text != "TRUE")
		}
	}
	return &Unary{Op: OpNot, X: x}
}

// And conjoins x and y, folding TRUE and FALSE operands. A nil operand is
// treated as TRUE, which lets callers fold over an empty series.
func And(x, y Expr) Expr {
	switch {
	case x == nil || IsTrue(x):
		return y
	case y == nil || IsTrue(y):
		return x
	case IsFalse(x) || IsFalse(y):
		return False
	}
	return &Binary{Op: OpAnd, X: x, Y: y}
}

// Or disjoins x and y, folding TRUE and FALSE operands. A nil operand is
// treated as FALSE.
func Or(x, y Expr) Expr {
	switch {
	case x == nil || IsFalse(x):
		return y
	case y == nil || IsFalse(y):
		return x
	case IsTrue(x) || IsTrue(y):
		return True
	}
	return &Binary{Op: OpOr, X: x, Y: y}
}

// IsTrue reports whether e is the literal TRUE.
func IsTrue(e Expr) bool {
	l, ok := e.(*Lit)
	return ok && l.Kind == LitBool && l.Text == "TRUE"
}

// IsFalse reports whether e is the literal FALSE.
func IsFalse(e Expr) bool {
	l, ok := e.(*Lit)
	return ok && l.Kind == LitBool && l.Text == "FALSE"
}

// EqualFold compares identifiers the way Structured Text does.
func EqualFold(a, b string) bool {
	return strings.EqualFold(a, b)
}
