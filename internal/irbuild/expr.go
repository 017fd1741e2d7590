package irbuild

import (
	"fmt"
	"strings"

	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/st"
)

// Expr converts an ST expression to IR. A negated numeric literal folds into
// a signed literal so "-5" means the same thing in both directions.
func Expr(e st.Expr) (ir.Expr, error) {
	switch v := e.(type) {
	case *st.Ident, *st.Member, *st.Index:
		return Ref(v)
	case *st.Literal:
		return &ir.Lit{Kind: v.Kind, Text: v.Text}, nil
	case *st.Unary:
		x, err := Expr(v.X)
		if err != nil {
			return nil, err
		}
		if v.Op == ir.OpNeg {
			if l, ok := x.(*ir.Lit); ok && (l.Kind == ir.LitInt || l.Kind == ir.LitReal) && !strings.HasPrefix(l.Text, "-") {
				return &ir.Lit{Kind: l.Kind, Text: "-" + l.Text}, nil
			}
		}
		return &ir.Unary{Op: v.Op, X: x}, nil
	case *st.Binary:
		x, err := Expr(v.X)
		if err != nil {
			return nil, err
		}
		y, err := Expr(v.Y)
		if err != nil {
			return nil, err
		}
		return &ir.Binary{Op: v.Op, X: x, Y: y}, nil
	case *st.Call:
		args, err := Args(v.Args)
		if err != nil {
			return nil, fmt.Errorf("call to %s: %w", v.Func, err)
		}
		return &ir.Call{Func: v.Func, Args: args}, nil
	}
	return nil, fmt.Errorf("unsupported expression %T", e)
}

// Ref converts a designator (identifier with member and index selectors).
// A multi-dimensional index becomes one selector per dimension.
func Ref(e st.Expr) (*ir.Ref, error) {
	switch v := e.(type) {
	case *st.Ident:
		return &ir.Ref{Name: v.Name}, nil
	case *st.Member:
		base, err := Ref(v.X)
		if err != nil {
			return nil, err
		}
		return base.Dot(v.Field), nil
	case *st.Index:
		base, err := Ref(v.X)
		if err != nil {
			return nil, err
		}
		for _, ix := range v.Indices {
			x, err := Expr(ix)
			if err != nil {
				return nil, err
			}
			base.Path = append(base.Path, ir.Selector{Index: x})
		}
		return base, nil
	}
	return nil, fmt.Errorf("%s is not a variable reference", st.FormatExpr(e))
}

// Args converts call arguments. Output bindings ("Q => x") have no IR form
// and are rejected.
func Args(args []st.Arg) ([]ir.Arg, error) {
	if args == nil {
		return nil, nil
	}
	out := make([]ir.Arg, 0, len(args))
	for _, a := range args {
		if a.Output {
			return nil, fmt.Errorf("output binding %s => %s is not supported", a.Name, st.FormatExpr(a.Value))
		}
		v, err := Expr(a.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, ir.Arg{Name: a.Name, Value: v})
	}
	return out, nil
}
