// Package coerce inserts the numeric conversions ST requires where the
// vendor format assigns across integer and real types implicitly.
//
// An integer literal stored into a REAL or LREAL becomes a real literal
// (5 -> 5.0). Any other integer value stored into a real target is wrapped
// in <FROM>_TO_<TO>, and a real value stored into an integer target in
// REAL_TO_<TO>. Inside expressions, an integer operand meeting a real one
// (N + R, N > R) and an integer argument of SQRT, LN, LOG, EXP and the
// trigonometric functions are promoted the same way. Each rewrite is
// reported as TYPE_MISMATCH. Values whose type cannot be determined are left
// alone.
package coerce

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/roach88/l5xst/internal/diag"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/st"
	"github.com/roach88/l5xst/internal/stemit"
	"github.com/roach88/l5xst/internal/tables"
)

// Coercer rewrites assignments. It holds no per-program state.
type Coercer struct {
	logger *slog.Logger
}

// Option configures a Coercer.
type Option func(*Coercer)

// WithLogger sets the logger that receives one warning per coercion.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coercer) {
		c.logger = l
	}
}

// New creates a Coercer.
func New(opts ...Option) *Coercer {
	c := &Coercer{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Program coerces p with a default Coercer.
func Program(p *ir.Program) diag.List {
	return New().Program(p)
}

// Program coerces the body of p and of every POU in place.
func (c *Coercer) Program(p *ir.Program) diag.List {
	var diags diag.List
	c.body(newEnv(p, nil), diag.Location{Program: p.Name}, p.Body, &diags)
	for i := range p.POUs {
		pou := &p.POUs[i]
		c.body(newEnv(p, pou), diag.Location{Program: p.Name, Routine: pou.Name}, pou.Body, &diags)
	}
	return diags
}

func (c *Coercer) body(e *env, loc diag.Location, stmts []ir.Stmt, diags *diag.List) {
	ir.WalkStmts(stmts, func(s ir.Stmt) bool {
		ops := &operands{c: c, e: e, loc: loc, diags: diags}
		switch v := s.(type) {
		case *ir.Disabled:
			return false
		case *ir.Assign:
			v.Value = ops.expr(v.Value)
			to, ok := e.ref(v.Target)
			if !ok {
				return true
			}
			from := e.expr(v.Value)
			value, ok := convert(v.Value, from, to)
			if !ok {
				return true
			}
			v.Value = value
			target := v.Target.String()
			diags.Add(diag.TypeMismatch(loc, target, from, to))
			c.warn(loc, target, from, to)
		case *ir.If:
			for i := range v.Branches {
				v.Branches[i].Cond = ops.expr(v.Branches[i].Cond)
			}
		case *ir.While:
			v.Cond = ops.expr(v.Cond)
		case *ir.For:
			v.From, v.To = ops.expr(v.From), ops.expr(v.To)
			if v.By != nil {
				v.By = ops.expr(v.By)
			}
		case *ir.Invoke:
			for i := range v.Args {
				v.Args[i].Value = ops.expr(v.Args[i].Value)
			}
		}
		return true
	})
}

func (c *Coercer) warn(loc diag.Location, target, from, to string) {
	c.logger.Warn("type mismatch coerced",
		"program", loc.Program,
		"routine", loc.Routine,
		"target", target,
		"from", from,
		"to", to,
		"code", diag.CodeTypeMismatch)
}

// realFuncs take a real argument. An integer argument is promoted to REAL.
var realFuncs = map[string]bool{
	"SQRT": true, "LN": true, "LOG": true, "EXP": true,
	"SIN": true, "COS": true, "TAN": true, "ASIN": true, "ACOS": true, "ATAN": true,
}

// operands promotes integer operands that meet a real operand inside one
// expression: both sides of an arithmetic or comparison operator, and the
// arguments of the real-valued standard functions.
type operands struct {
	c     *Coercer
	e     *env
	loc   diag.Location
	diags *diag.List
}

func (o *operands) expr(x ir.Expr) ir.Expr {
	switch v := x.(type) {
	case *ir.Unary:
		v.X = o.expr(v.X)
	case *ir.Binary:
		v.X, v.Y = o.expr(v.X), o.expr(v.Y)
		if v.Op.IsLogical() {
			return v
		}
		tx, ty := o.e.expr(v.X), o.e.expr(v.Y)
		switch {
		case family(tx) == tables.FamilyInteger && family(ty) == tables.FamilyReal:
			v.X = o.promote(v.X, tx, ty)
		case family(tx) == tables.FamilyReal && family(ty) == tables.FamilyInteger:
			v.Y = o.promote(v.Y, ty, tx)
		}
	case *ir.Call:
		for i := range v.Args {
			v.Args[i].Value = o.expr(v.Args[i].Value)
		}
		if !realFuncs[strings.ToUpper(v.Func)] {
			return v
		}
		for i := range v.Args {
			if from := o.e.expr(v.Args[i].Value); family(from) == tables.FamilyInteger {
				v.Args[i].Value = o.promote(v.Args[i].Value, from, "REAL")
			}
		}
	}
	return x
}

// promote converts an integer operand to the real type to, reporting it.
func (o *operands) promote(x ir.Expr, from, to string) ir.Expr {
	out, ok := convert(x, from, to)
	if !ok {
		return x
	}
	operand := st.FormatExpr(stemit.Expr(x))
	o.diags.Add(diag.OperandMismatch(o.loc, operand, from, to))
	o.c.warn(o.loc, operand, from, to)
	return out
}

// convert returns the coerced value when from and to are an integer and a
// real type.
func convert(value ir.Expr, from, to string) (ir.Expr, bool) {
	switch {
	case family(to) == tables.FamilyReal && family(from) == tables.FamilyInteger:
		if l, ok := value.(*ir.Lit); ok && l.Kind == ir.LitInt {
			if text, ok := realText(l.Text); ok {
				return &ir.Lit{Kind: ir.LitReal, Text: text}, true
			}
		}
	case family(to) == tables.FamilyInteger && family(from) == tables.FamilyReal:
	default:
		return nil, false
	}
	return &ir.Call{Func: from + "_TO_" + to, Args: []ir.Arg{{Value: value}}}, true
}

// realText spells an integer literal as a real literal: 5 -> 5.0,
// 16#FF -> 255.0.
func realText(text string) (string, bool) {
	s := strings.ReplaceAll(text, "_", "")
	base := 10
	if b, digits, ok := strings.Cut(s, "#"); ok {
		n, err := strconv.Atoi(b)
		if err != nil {
			return "", false
		}
		base, s = n, digits
	}
	n, err := strconv.ParseInt(s, base, 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatInt(n, 10) + ".0", true
}

func family(typ string) tables.Family {
	p, ok := tables.LookupPrim(typ)
	if !ok {
		return 0
	}
	return p.Family()
}
