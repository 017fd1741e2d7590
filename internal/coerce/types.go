package coerce

import (
	"strings"

	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/tables"
)

// slot is the declared shape of a variable or member.
type slot struct {
	typ string
	dim int
}

// env resolves types against one scope.
type env struct {
	prog *ir.Program
	vars map[string]slot
}

// newEnv returns the scope of pou, or of the program body when pou is nil.
// POU bodies see only their own variables.
func newEnv(p *ir.Program, pou *ir.POU) *env {
	vars := make(map[string]slot)
	if pou == nil {
		for _, t := range p.Tags {
			vars[strings.ToUpper(t.Name)] = slot{t.Type, t.Dim}
		}
		return &env{prog: p, vars: vars}
	}
	for _, v := range pou.Vars {
		vars[strings.ToUpper(v.Name)] = slot{v.Type, v.Dim}
	}
	if pou.Kind == ir.POUFunction {
		vars[strings.ToUpper(pou.Name)] = slot{typ: pou.ReturnType}
	}
	return &env{prog: p, vars: vars}
}

// Types infers elementary types of expressions in one scope.
type Types struct {
	e *env
}

// TypesOf returns the type scope of pou, or of the program body when pou
// is nil.
func TypesOf(p *ir.Program, pou *ir.POU) *Types {
	return &Types{e: newEnv(p, pou)}
}

// Of returns the elementary type of x, or "" when it is not known.
func (t *Types) Of(x ir.Expr) string {
	return t.e.expr(x)
}

// Declared returns the declared type of a scalar reference, including
// structure and function block types.
func (t *Types) Declared(r *ir.Ref) (string, bool) {
	return t.e.declared(r)
}

// instanceMembers are the typed members of the standard function blocks.
var instanceMembers = map[string]map[string]string{
	"TON":  {"IN": "BOOL", "PT": "TIME", "Q": "BOOL", "ET": "TIME"},
	"TOF":  {"IN": "BOOL", "PT": "TIME", "Q": "BOOL", "ET": "TIME"},
	"TP":   {"IN": "BOOL", "PT": "TIME", "Q": "BOOL", "ET": "TIME"},
	"CTU":  {"CU": "BOOL", "R": "BOOL", "PV": "INT", "Q": "BOOL", "CV": "INT"},
	"CTD":  {"CD": "BOOL", "LD": "BOOL", "PV": "INT", "Q": "BOOL", "CV": "INT"},
	"CTUD": {"CU": "BOOL", "CD": "BOOL", "R": "BOOL", "LD": "BOOL", "PV": "INT", "QU": "BOOL", "QD": "BOOL", "CV": "INT"},
}

// ref returns the elementary type of a reference, or false when it is not
// elementary or cannot be resolved.
func (e *env) ref(r *ir.Ref) (string, bool) {
	typ, ok := e.declared(r)
	if !ok {
		return "", false
	}
	if _, ok := tables.LookupPrim(typ); !ok {
		return "", false
	}
	return strings.ToUpper(typ), true
}

// declared returns the declared type of a scalar reference, elementary or
// not.
func (e *env) declared(r *ir.Ref) (string, bool) {
	cur, ok := e.vars[strings.ToUpper(r.Name)]
	if !ok {
		return "", false
	}
	for _, sel := range r.Path {
		if sel.Index != nil {
			if cur.dim == 0 {
				return "", false
			}
			cur.dim = 0
			continue
		}
		if cur.dim > 0 {
			return "", false
		}
		next, ok := e.member(cur.typ, sel.Field)
		if !ok {
			return "", false
		}
		cur = next
	}
	if cur.dim > 0 {
		return "", false
	}
	return cur.typ, true
}

// member resolves one member selector of a value of type typ.
func (e *env) member(typ, field string) (slot, bool) {
	if isBit(field) {
		switch family(typ) {
		case tables.FamilyInteger, tables.FamilyBits:
			return slot{typ: "BOOL"}, true
		}
		return slot{}, false
	}
	if td, ok := e.prog.Type(typ); ok {
		if m, ok := td.Member(field); ok {
			return slot{m.Type, m.Dim}, true
		}
		return slot{}, false
	}
	if td, ok := tables.AuxStruct(typ); ok {
		if m, ok := td.Member(field); ok {
			return slot{m.Type, m.Dim}, true
		}
		return slot{}, false
	}
	if pou, ok := e.prog.POU(typ); ok {
		for _, v := range pou.Vars {
			if strings.EqualFold(v.Name, field) {
				return slot{v.Type, v.Dim}, true
			}
		}
		return slot{}, false
	}
	if t, ok := instanceMembers[strings.ToUpper(typ)][strings.ToUpper(field)]; ok {
		return slot{typ: t}, true
	}
	return slot{}, false
}

func isBit(field string) bool {
	if field == "" {
		return false
	}
	for _, c := range field {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// expr infers the elementary type of an expression, or "".
func (e *env) expr(x ir.Expr) string {
	switch v := x.(type) {
	case *ir.Lit:
		switch v.Kind {
		case ir.LitBool:
			return "BOOL"
		case ir.LitInt:
			return "DINT"
		case ir.LitReal:
			return "REAL"
		case ir.LitTime:
			return "TIME"
		case ir.LitString:
			return "STRING"
		}
	case *ir.Ref:
		t, _ := e.ref(v)
		return t
	case *ir.Unary:
		return e.expr(v.X)
	case *ir.Binary:
		if v.Op.IsComparison() {
			return "BOOL"
		}
		x, y := e.expr(v.X), e.expr(v.Y)
		if v.Op.IsLogical() {
			return x
		}
		switch {
		case x == "" || y == "":
			return ""
		case family(x) == tables.FamilyReal && family(y) == tables.FamilyReal:
			if x == "LREAL" || y == "LREAL" {
				return "LREAL"
			}
			return x
		case family(x) == tables.FamilyReal && family(y) == tables.FamilyInteger:
			return x
		case family(x) == tables.FamilyInteger && family(y) == tables.FamilyReal:
			return y
		}
		return x
	case *ir.Call:
		if _, to, ok := strings.Cut(v.Func, "_TO_"); ok {
			if _, prim := tables.LookupPrim(to); prim {
				return strings.ToUpper(to)
			}
			return ""
		}
		switch strings.ToUpper(v.Func) {
		case "SQRT", "LN", "LOG", "EXP", "SIN", "COS", "TAN":
			return "REAL"
		case "ABS", "MIN", "MAX", "TRUNC":
			if len(v.Args) > 0 {
				return e.expr(v.Args[0].Value)
			}
		case "SEL":
			if len(v.Args) > 1 {
				return e.expr(v.Args[1].Value)
			}
		}
	}
	return ""
}
