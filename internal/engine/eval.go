package engine

import (
	"math"
	"strings"

	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/tables"
)

func (e *Engine) eval(f *frame, x ir.Expr) (Value, error) {
	switch v := x.(type) {
	case *ir.Lit:
		return literal(v)
	case *ir.Ref:
		return e.read(f, v)
	case *ir.Unary:
		a, err := e.eval(f, v.X)
		if err != nil {
			return Value{}, err
		}
		if v.Op == ir.OpNeg {
			return negate(a)
		}
		switch a.kind {
		case KindBool:
			return Bool(!a.AsBool()), nil
		case KindInt:
			return Int(^a.i), nil
		}
		return Value{}, typeError("", "NOT of %s", a.kind)
	case *ir.Binary:
		a, err := e.eval(f, v.X)
		if err != nil {
			return Value{}, err
		}
		b, err := e.eval(f, v.Y)
		if err != nil {
			return Value{}, err
		}
		return binary(v.Op, a, b)
	case *ir.Call:
		return e.call(f, v)
	}
	return Value{}, unsupported("expression %T", x)
}

func negate(a Value) (Value, error) {
	switch a.kind {
	case KindInt:
		return Int(-a.i), nil
	case KindReal:
		return Real(-a.r), nil
	case KindTime:
		return Value{kind: KindTime, i: -a.i}, nil
	}
	return Value{}, typeError("", "negation of %s", a.kind)
}

func binary(op ir.BinaryOp, a, b Value) (Value, error) {
	switch {
	case op.IsLogical():
		return logical(op, a, b)
	case op.IsComparison():
		return compare(op, a, b)
	}
	if a.kind == KindTime || b.kind == KindTime {
		return timeArith(op, a, b)
	}
	if !a.numeric() || !b.numeric() {
		return Value{}, typeError("", "%s %s %s", a.kind, op, b.kind)
	}
	if a.kind == KindInt && b.kind == KindInt && op != ir.OpPow {
		x, y := a.i, b.i
		switch op {
		case ir.OpAdd:
			return Int(x + y), nil
		case ir.OpSub:
			return Int(x - y), nil
		case ir.OpMul:
			return Int(x * y), nil
		case ir.OpDiv, ir.OpMod:
			if y == 0 {
				return Value{}, &RuntimeError{Code: ErrCodeArithmetic, Message: "integer division by zero"}
			}
			if op == ir.OpDiv {
				return Int(x / y), nil
			}
			return Int(x % y), nil
		}
	}
	x, y := a.AsReal(), b.AsReal()
	switch op {
	case ir.OpAdd:
		return Real(x + y), nil
	case ir.OpSub:
		return Real(x - y), nil
	case ir.OpMul:
		return Real(x * y), nil
	case ir.OpDiv:
		return Real(x / y), nil
	case ir.OpPow:
		return Real(math.Pow(x, y)), nil
	}
	return Value{}, typeError("", "%s %s %s", a.kind, op, b.kind)
}

func logical(op ir.BinaryOp, a, b Value) (Value, error) {
	if a.kind != b.kind || (a.kind != KindBool && a.kind != KindInt) {
		return Value{}, typeError("", "%s %s %s", a.kind, op, b.kind)
	}
	var n int64
	switch op {
	case ir.OpAnd:
		n = a.i & b.i
	case ir.OpOr:
		n = a.i | b.i
	case ir.OpXor:
		n = a.i ^ b.i
	}
	if a.kind == KindBool {
		return Bool(n != 0), nil
	}
	return Int(n), nil
}

func compare(op ir.BinaryOp, a, b Value) (Value, error) {
	var c int
	switch {
	case a.numeric() && b.numeric():
		if a.kind == KindInt && b.kind == KindInt {
			c = cmp3(a.i, b.i)
		} else {
			x, y := a.AsReal(), b.AsReal()
			switch {
			case x < y:
				c = -1
			case x > y:
				c = 1
			}
		}
	case a.kind != b.kind:
		return Value{}, typeError("", "%s %s %s", a.kind, op, b.kind)
	case a.kind == KindString:
		c = strings.Compare(a.s, b.s)
	case a.kind == KindBool && op != ir.OpEq && op != ir.OpNe:
		return Value{}, typeError("", "ordering of BOOL")
	default:
		c = cmp3(a.i, b.i)
	}
	switch op {
	case ir.OpEq:
		return Bool(c == 0), nil
	case ir.OpNe:
		return Bool(c != 0), nil
	case ir.OpLt:
		return Bool(c < 0), nil
	case ir.OpLe:
		return Bool(c <= 0), nil
	case ir.OpGt:
		return Bool(c > 0), nil
	}
	return Bool(c >= 0), nil
}

func cmp3(x, y int64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func timeArith(op ir.BinaryOp, a, b Value) (Value, error) {
	switch {
	case a.kind == KindTime && b.kind == KindTime && op == ir.OpAdd:
		return Value{kind: KindTime, i: a.i + b.i}, nil
	case a.kind == KindTime && b.kind == KindTime && op == ir.OpSub:
		return Value{kind: KindTime, i: a.i - b.i}, nil
	case a.kind == KindTime && b.numeric() && op == ir.OpMul:
		return Value{kind: KindTime, i: int64(math.Round(float64(a.i) * b.AsReal()))}, nil
	case a.kind == KindTime && b.numeric() && op == ir.OpDiv:
		if b.AsReal() == 0 {
			return Value{}, &RuntimeError{Code: ErrCodeArithmetic, Message: "TIME division by zero"}
		}
		return Value{kind: KindTime, i: int64(math.Round(float64(a.i) / b.AsReal()))}, nil
	}
	return Value{}, typeError("", "%s %s %s", a.kind, op, b.kind)
}

var realFuncs = map[string]func(float64) float64{
	"SQRT": math.Sqrt, "LN": math.Log, "LOG": math.Log10, "EXP": math.Exp,
	"SIN": math.Sin, "COS": math.Cos, "TAN": math.Tan,
	"ASIN": math.Asin, "ACOS": math.Acos, "ATAN": math.Atan,
}

func (e *Engine) call(f *frame, c *ir.Call) (Value, error) {
	name := strings.ToUpper(c.Func)
	if pou, ok := e.prog.POU(name); ok && pou.Kind == ir.POUFunction {
		return e.callFunction(f, pou, c.Args)
	}

	args := make([]Value, len(c.Args))
	for i, a := range c.Args {
		v, err := e.eval(f, a.Value)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	need := func(n int) error {
		if len(args) != n {
			return typeError("", "%s takes %d arguments, got %d", name, n, len(args))
		}
		return nil
	}

	if fn, ok := realFuncs[name]; ok {
		if err := need(1); err != nil {
			return Value{}, err
		}
		if !args[0].numeric() {
			return Value{}, typeError("", "%s of %s", name, args[0].kind)
		}
		return Real(fn(args[0].AsReal())), nil
	}
	switch name {
	case "ABS":
		if err := need(1); err != nil {
			return Value{}, err
		}
		switch args[0].kind {
		case KindInt:
			if args[0].i < 0 {
				return Int(-args[0].i), nil
			}
			return args[0], nil
		case KindReal:
			return Real(math.Abs(args[0].r)), nil
		}
		return Value{}, typeError("", "ABS of %s", args[0].kind)
	case "TRUNC":
		if err := need(1); err != nil {
			return Value{}, err
		}
		if !args[0].numeric() {
			return Value{}, typeError("", "TRUNC of %s", args[0].kind)
		}
		return Int(int64(math.Trunc(args[0].AsReal()))), nil
	case "MOVE":
		if err := need(1); err != nil {
			return Value{}, err
		}
		return args[0], nil
	case "MIN", "MAX":
		if len(args) == 0 {
			return Value{}, typeError("", "%s without arguments", name)
		}
		best := args[0]
		for _, a := range args[1:] {
			lt, err := compare(ir.OpLt, a, best)
			if err != nil {
				return Value{}, err
			}
			if lt.AsBool() == (name == "MIN") && !sameValue(a, best) {
				best = a
			}
		}
		return best, nil
	case "LIMIT":
		if err := need(3); err != nil {
			return Value{}, err
		}
		lo, in, hi := args[0], args[1], args[2]
		if below, err := compare(ir.OpLt, in, lo); err != nil {
			return Value{}, err
		} else if below.AsBool() {
			return lo, nil
		}
		if above, err := compare(ir.OpGt, in, hi); err != nil {
			return Value{}, err
		} else if above.AsBool() {
			return hi, nil
		}
		return in, nil
	case "SEL":
		if err := need(3); err != nil {
			return Value{}, err
		}
		if args[0].kind != KindBool {
			return Value{}, typeError("", "SEL selector is %s", args[0].kind)
		}
		if args[0].AsBool() {
			return args[2], nil
		}
		return args[1], nil
	}

	if _, to, ok := strings.Cut(name, "_TO_"); ok || strings.HasPrefix(name, "TO_") {
		if !ok {
			to = strings.TrimPrefix(name, "TO_")
		}
		if err := need(1); err != nil {
			return Value{}, err
		}
		if p, known := tables.LookupPrim(to); known {
			return conversion(p, args[0])
		}
	}
	return Value{}, unsupported("function %s", c.Func)
}

func sameValue(a, b Value) bool {
	return a.kind == b.kind && a.i == b.i && a.r == b.r && a.s == b.s
}

// conversion implements X_TO_Y. Reals become integers by rounding half to
// even; TIME converts to and from milliseconds.
func conversion(to tables.Prim, v Value) (Value, error) {
	switch to.Family() {
	case tables.FamilyBool:
		switch v.kind {
		case KindBool:
			return v, nil
		case KindInt:
			return Bool(v.i != 0), nil
		case KindReal:
			return Bool(v.r != 0), nil
		}
	case tables.FamilyInteger, tables.FamilyBits:
		switch v.kind {
		case KindBool, KindInt:
			return Int(wrap(to, v.i)), nil
		case KindReal:
			return Int(wrap(to, int64(math.RoundToEven(v.r)))), nil
		case KindTime:
			return Int(wrap(to, v.AsDuration().Milliseconds())), nil
		}
	case tables.FamilyReal:
		switch v.kind {
		case KindBool, KindInt:
			return fitReal(to, float64(v.i)), nil
		case KindReal:
			return fitReal(to, v.r), nil
		case KindTime:
			return fitReal(to, float64(v.AsDuration().Milliseconds())), nil
		}
	case tables.FamilyTime:
		switch v.kind {
		case KindInt:
			return Value{kind: KindTime, i: v.i * 1e6}, nil
		case KindReal:
			return Value{kind: KindTime, i: int64(math.Round(v.r * 1e6))}, nil
		case KindTime:
			return v, nil
		}
	case tables.FamilyString:
		if v.kind == KindString {
			return v, nil
		}
		return String(strings.Trim(v.String(), "'")), nil
	}
	return Value{}, typeError("", "%s to %s", v.kind, to)
}

func fitReal(p tables.Prim, f float64) Value {
	v, _ := fit(p, Real(f))
	return v
}
