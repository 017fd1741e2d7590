package l5xemit

import (
	"strings"

	"github.com/roach88/l5xst/internal/coerce"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/l5x"
	"github.com/roach88/l5xst/internal/st"
	"github.com/roach88/l5xst/internal/stemit"
	"github.com/roach88/l5xst/internal/tables"
)

var (
	compareMnemonics = map[ir.BinaryOp]string{
		ir.OpEq: "EQU", ir.OpNe: "NEQ", ir.OpGt: "GRT",
		ir.OpGe: "GEQ", ir.OpLt: "LES", ir.OpLe: "LEQ",
	}
	mathMnemonics = map[ir.BinaryOp]string{
		ir.OpAdd: "ADD", ir.OpSub: "SUB", ir.OpMul: "MUL",
		ir.OpDiv: "DIV", ir.OpMod: "MOD",
	}
)

// ladder writes statements as rungs. ok is false as soon as one statement
// has no rung form.
func ladder(stmts []ir.Stmt, types *coerce.Types) (rungs []l5x.Rung, ok bool) {
	var notes []string
	add := func(text string) {
		r := l5x.Rung{Number: len(rungs), Type: "N", Text: l5x.Text{Value: text}}
		if len(notes) > 0 {
			r.Comment = &l5x.Text{Value: strings.Join(notes, "\n")}
			notes = nil
		}
		rungs = append(rungs, r)
	}
	for _, s := range stmts {
		if c, isComment := s.(*ir.Comment); isComment {
			notes = append(notes, c.Text)
			continue
		}
		text, ok := rung(s, types)
		if !ok {
			return nil, false
		}
		add(text)
	}
	if len(notes) > 0 {
		add("NOP();")
	}
	return rungs, true
}

// rung returns the neutral text of one statement.
func rung(s ir.Stmt, types *coerce.Types) (string, bool) {
	switch v := s.(type) {
	case *ir.Assign:
		t, ok := refOperand(v.Target)
		if !ok {
			return "", false
		}
		if isBool(v.Target, v.Value, types) {
			cond, ok := series(v.Value)
			if !ok {
				return "", false
			}
			return cond + "OTE(" + t + ");", true
		}
		box, ok := move(t, v.Value)
		return box + ";", ok
	case *ir.If:
		return guarded(v, types)
	case *ir.InstrCall:
		return msg(v)
	case *ir.Invoke:
		return invoke(v, types)
	}
	return "", false
}

// guarded handles the single-statement IF the ladder translator produces
// for latches and box instructions.
func guarded(v *ir.If, types *coerce.Types) (string, bool) {
	if len(v.Branches) != 1 || v.Else != nil || len(v.Branches[0].Body) != 1 {
		return "", false
	}
	br := v.Branches[0]
	if ir.IsTrue(br.Cond) {
		return "", false
	}
	cond, ok := series(br.Cond)
	if !ok {
		return "", false
	}
	switch s := br.Body[0].(type) {
	case *ir.Assign:
		t, ok := refOperand(s.Target)
		if !ok {
			return "", false
		}
		if isBool(s.Target, s.Value, types) {
			switch {
			case ir.IsTrue(s.Value):
				return cond + "OTL(" + t + ");", true
			case ir.IsFalse(s.Value):
				return cond + "OTU(" + t + ");", true
			}
			return "", false
		}
		box, ok := move(t, s.Value)
		return cond + box + ";", ok
	case *ir.InstrCall:
		text, ok := msg(s)
		return cond + text, ok
	}
	return "", false
}

func msg(v *ir.InstrCall) (string, bool) {
	if !strings.EqualFold(v.Func, tables.AuxMSG.String()) {
		return "", false
	}
	t, ok := refOperand(v.Target)
	if !ok {
		return "", false
	}
	return "MSG(" + t + ");", true
}

// invoke writes the timer and counter calls of the ladder translator:
// T(IN := c, PT := DINT_TO_TIME(pre)) and C(CU := c, PV := pre).
func invoke(v *ir.Invoke, types *coerce.Types) (string, bool) {
	if len(v.Args) != 2 {
		return "", false
	}
	callee, ok := refOperand(v.Callee)
	if !ok {
		return "", false
	}
	typ, _ := types.Declared(v.Callee)
	in, setting := v.Args[0], v.Args[1]
	cond, ok := series(in.Value)
	if !ok {
		return "", false
	}

	typ = strings.ToUpper(typ)
	switch {
	case (typ == "TON" || typ == "TOF") && strings.EqualFold(in.Name, "IN") && strings.EqualFold(setting.Name, "PT"):
		call, ok := setting.Value.(*ir.Call)
		if !ok || call.Func != "DINT_TO_TIME" || len(call.Args) != 1 || call.Args[0].Name != "" {
			return "", false
		}
		pre, ok := operand(call.Args[0].Value)
		if !ok {
			return "", false
		}
		return cond + typ + "(" + callee + "," + pre + ",0);", true
	case (typ == "CTU" || typ == "CTD" || typ == "CTUD") && strings.EqualFold(setting.Name, "PV"):
		pre, ok := operand(setting.Value)
		if !ok {
			return "", false
		}
		switch {
		case strings.EqualFold(in.Name, "CU") && typ != "CTD":
			return cond + "CTU(" + callee + "," + pre + ",0);", true
		case strings.EqualFold(in.Name, "CD") && typ != "CTU":
			return cond + "CTD(" + callee + "," + pre + ",0);", true
		}
	}
	return "", false
}

// move writes a non-boolean assignment as a box instruction.
func move(target string, value ir.Expr) (string, bool) {
	if src, ok := operand(value); ok {
		return "MOV(" + src + "," + target + ")", true
	}
	if b, ok := value.(*ir.Binary); ok {
		if mn, ok := mathMnemonics[b.Op]; ok {
			x, okx := operand(b.X)
			y, oky := operand(b.Y)
			if okx && oky {
				return mn + "(" + x + "," + y + "," + target + ")", true
			}
		}
	}
	if l, ok := value.(*ir.Lit); ok && (l.Kind == ir.LitBool || l.Kind == ir.LitTime) {
		return "", false
	}
	return "CPT(" + target + "," + st.FormatExpr(stemit.Expr(value)) + ")", true
}

// isBool reports whether an assignment is a coil: a BOOL target, or an
// undeclared target given a boolean value.
func isBool(target *ir.Ref, value ir.Expr, types *coerce.Types) bool {
	switch types.Of(target) {
	case "BOOL":
		return true
	case "":
		return boolish(value)
	}
	return false
}

func boolish(e ir.Expr) bool {
	switch v := e.(type) {
	case *ir.Lit:
		return v.Kind == ir.LitBool
	case *ir.Unary:
		return v.Op == ir.OpNot
	case *ir.Binary:
		return v.Op.IsComparison() || v.Op.IsLogical()
	}
	return false
}

// series returns rung text whose condition, starting from TRUE, lowers to
// exactly e. Series fold to the left and a branch distributes the
// condition entering it over its legs, so a branch may only open a series.
func series(e ir.Expr) (string, bool) {
	switch {
	case ir.IsTrue(e):
		return "", true
	case ir.IsFalse(e):
		return "AFI()", true
	}
	b, ok := e.(*ir.Binary)
	if !ok {
		return leaf(e)
	}
	if constant(b.X) || constant(b.Y) {
		if b.Op == ir.OpAnd || b.Op == ir.OpOr {
			return "", false
		}
	}
	switch b.Op {
	case ir.OpAnd:
		left, ok := series(b.X)
		if !ok {
			return "", false
		}
		right, ok := leaf(b.Y)
		return left + right, ok
	case ir.OpOr:
		var legs []string
		for _, leg := range disjuncts(b) {
			if constant(leg) {
				return "", false
			}
			text, ok := series(leg)
			if !ok {
				return "", false
			}
			legs = append(legs, text)
		}
		return "[" + strings.Join(legs, ",") + "]", true
	}
	return leaf(e)
}

// disjuncts flattens a left-nested OR chain.
func disjuncts(b *ir.Binary) []ir.Expr {
	if x, ok := b.X.(*ir.Binary); ok && x.Op == ir.OpOr {
		return append(disjuncts(x), b.Y)
	}
	return []ir.Expr{b.X, b.Y}
}

func constant(e ir.Expr) bool {
	return ir.IsTrue(e) || ir.IsFalse(e)
}

// leaf is one input instruction.
func leaf(e ir.Expr) (string, bool) {
	switch v := e.(type) {
	case *ir.Ref:
		r, ok := refOperand(v)
		return "XIC(" + r + ")", ok
	case *ir.Unary:
		if r, isRef := v.X.(*ir.Ref); isRef && v.Op == ir.OpNot {
			text, ok := refOperand(r)
			return "XIO(" + text + ")", ok
		}
	case *ir.Binary:
		mn, ok := compareMnemonics[v.Op]
		if !ok {
			return "", false
		}
		x, okx := operand(v.X)
		y, oky := operand(v.Y)
		if okx && oky {
			return mn + "(" + x + "," + y + ")", true
		}
	}
	return "", false
}

// operand returns the operand text of a value the operand parser reads
// back unchanged.
func operand(e ir.Expr) (string, bool) {
	switch v := e.(type) {
	case *ir.Lit:
		switch v.Kind {
		case ir.LitInt, ir.LitReal:
			if strings.HasPrefix(v.Text, "-") {
				return "", false
			}
			return v.Text, true
		case ir.LitString:
			return v.Text, true
		}
	case *ir.Ref:
		return refOperand(v)
	}
	return "", false
}

func refOperand(r *ir.Ref) (string, bool) {
	for _, sel := range r.Path {
		if sel.Index == nil {
			continue
		}
		switch ix := sel.Index.(type) {
		case *ir.Lit:
			if ix.Kind != ir.LitInt || strings.HasPrefix(ix.Text, "-") {
				return "", false
			}
		case *ir.Ref:
			if len(ix.Path) > 0 {
				return "", false
			}
		default:
			return "", false
		}
	}
	return r.String(), true
}
