package ladder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/l5xst/internal/diag"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/irbuild"
	"github.com/roach88/l5xst/internal/source"
	"github.com/roach88/l5xst/internal/st"
	"github.com/roach88/l5xst/internal/tables"
)

// instruction lowers one instruction and returns the condition leaving it.
func (rs *rungState) instruction(in *source.Instruction, cond ir.Expr, needed bool) ir.Expr {
	op, ok := tables.LookupInstr(in.Mnemonic)
	if !ok {
		rs.fail(in.Mnemonic, "no translation for instruction %s", in.Mnemonic)
		return cond
	}
	if !op.AcceptsOperands(len(in.Operands)) {
		rs.fail(op.String(), "%s takes %d operand(s), got %d", op, op.Info().Min, len(in.Operands))
		return cond
	}
	info := op.Info()

	switch op {
	case tables.XIC:
		return ir.And(cond, rs.ref(in, 0))
	case tables.XIO:
		return ir.And(cond, ir.Not(rs.ref(in, 0)))
	case tables.EQU, tables.NEQ, tables.GRT, tables.GEQ, tables.LES, tables.LEQ:
		return ir.And(cond, &ir.Binary{Op: info.Op, X: rs.value(in, 0), Y: rs.value(in, 1)})
	case tables.LIM:
		low, test, high := rs.value(in, 0), rs.value(in, 1), rs.value(in, 2)
		return ir.And(cond, &ir.Binary{
			Op: ir.OpAnd,
			X:  &ir.Binary{Op: ir.OpLe, X: low, Y: test},
			Y:  &ir.Binary{Op: ir.OpLe, X: ir.CloneExpr(test), Y: high},
		})
	case tables.AFI:
		return ir.False
	case tables.NOP:
		return cond
	case tables.ONS:
		return rs.edge(op, cond)
	case tables.OSR, tables.OSF:
		out := rs.ref(in, 1)
		q := rs.edge(op, cond)
		c := cond
		rs.emit(&c, needed, func(ir.Expr) []ir.Stmt {
			return []ir.Stmt{&ir.Assign{Target: out, Value: q}}
		})
		return c
	}

	c := cond
	build := rs.output(op, in)
	if rs.err != nil {
		return cond
	}
	rs.emit(&c, needed, build)
	return c
}

// output returns the statement builder for an output-class instruction.
func (rs *rungState) output(op tables.Instr, in *source.Instruction) func(ir.Expr) []ir.Stmt {
	info := op.Info()
	guarded := func(s ...ir.Stmt) func(ir.Expr) []ir.Stmt {
		return func(c ir.Expr) []ir.Stmt { return ir.Guard(c, s...) }
	}

	switch op {
	case tables.OTE:
		y := rs.ref(in, 0)
		return func(c ir.Expr) []ir.Stmt {
			return []ir.Stmt{&ir.Assign{Target: y, Value: c}}
		}
	case tables.OTL:
		return guarded(&ir.Assign{Target: rs.ref(in, 0), Value: ir.True})
	case tables.OTU:
		return guarded(&ir.Assign{Target: rs.ref(in, 0), Value: ir.False})
	case tables.MOV:
		return guarded(&ir.Assign{Target: rs.ref(in, 1), Value: rs.value(in, 0)})
	case tables.COP:
		return guarded(rs.copyArray(in))
	case tables.CLR:
		return guarded(&ir.Assign{Target: rs.ref(in, 0), Value: ir.Int(0)})
	case tables.ADD, tables.SUB, tables.MUL, tables.DIV, tables.MOD:
		return guarded(&ir.Assign{
			Target: rs.ref(in, 2),
			Value:  &ir.Binary{Op: info.Op, X: rs.value(in, 0), Y: rs.value(in, 1)},
		})
	case tables.SQR, tables.ABS, tables.FRD, tables.TOD:
		return guarded(&ir.Assign{
			Target: rs.ref(in, 1),
			Value:  &ir.Call{Func: info.Func, Args: []ir.Arg{{Value: rs.value(in, 0)}}},
		})
	case tables.NEG:
		return guarded(&ir.Assign{Target: rs.ref(in, 1), Value: negate(rs.value(in, 0))})
	case tables.CPT:
		return guarded(&ir.Assign{Target: rs.ref(in, 0), Value: rs.expression(in, 1)})
	case tables.TON, tables.TOF:
		timer, pre := rs.ref(in, 0), rs.value(in, 1)
		rs.noteInstance(timer, op.String())
		return func(c ir.Expr) []ir.Stmt {
			return []ir.Stmt{&ir.Invoke{Callee: timer, Args: []ir.Arg{
				{Name: "IN", Value: c},
				{Name: "PT", Value: &ir.Call{Func: "DINT_TO_TIME", Args: []ir.Arg{{Value: pre}}}},
			}}}
		}
	case tables.CTU, tables.CTD:
		counter, pre := rs.ref(in, 0), rs.value(in, 1)
		rs.noteInstance(counter, op.String())
		pin := "CU"
		if op == tables.CTD {
			pin = "CD"
		}
		return func(c ir.Expr) []ir.Stmt {
			return []ir.Stmt{&ir.Invoke{Callee: counter, Args: []ir.Arg{
				{Name: pin, Value: c},
				{Name: "PV", Value: pre},
			}}}
		}
	case tables.RES:
		return guarded(rs.reset(in)...)
	case tables.JSR:
		if len(in.Operands) > 2 {
			rs.fail(op.String(), "subroutine parameters are not supported")
			return nil
		}
		return guarded(rs.inline(op, in.Operands[0])...)
	case tables.FOR:
		loop := &ir.For{
			Var:  rs.ref(in, 1),
			From: rs.value(in, 2),
			To:   rs.value(in, 3),
			By:   rs.value(in, 4),
		}
		if l, ok := loop.By.(*ir.Lit); ok && l.Text == "1" {
			loop.By = nil
		}
		loop.Body = rs.inline(op, in.Operands[0])
		return guarded(loop)
	case tables.MSG:
		return guarded(&ir.InstrCall{Func: tables.AuxMSG.String(), Target: rs.ref(in, 0)})
	case tables.GSV, tables.SSV:
		text := fmt.Sprintf("%s(%s)", op, strings.Join(in.Operands, ","))
		rs.diags.Add(diag.Warning(diag.CodeDisabled, rs.loc, "%s preserved as disabled: no system attribute access in ST", text))
		stmt := &ir.Disabled{Stmt: &ir.Comment{Text: text}, Reason: "system attribute access"}
		return func(ir.Expr) []ir.Stmt { return []ir.Stmt{stmt} }
	case tables.XIC, tables.XIO, tables.ONS, tables.OSR, tables.OSF, tables.EQU, tables.NEQ,
		tables.GRT, tables.GEQ, tables.LES, tables.LEQ, tables.LIM, tables.AFI, tables.NOP:
		panic("ladder: condition instruction lowered as output: " + op.String())
	}
	panic("ladder: instruction without lowering: " + op.String())
}

// edge emits the one-shot pattern and returns the pulse reference:
//
//	base_Q := c AND NOT base_MEM;   (falling: NOT c AND base_MEM)
//	base_MEM := c;
func (rs *rungState) edge(op tables.Instr, cond ir.Expr) ir.Expr {
	rs.ordinals[op]++
	base := fmt.Sprintf("%s_R%d_%s%d", rs.ctx.Routine, rs.rung, op, rs.ordinals[op])
	mem := rs.synth(base + "_MEM")
	q := rs.synth(base + "_Q")

	pulse := ir.And(cond, ir.Not(ir.Name(mem)))
	if op == tables.OSF {
		pulse = ir.And(ir.Not(cond), ir.Name(mem))
	}
	rs.stmts = append(rs.stmts,
		&ir.Assign{Target: ir.Name(q), Value: pulse},
		&ir.Assign{Target: ir.Name(mem), Value: ir.CloneExpr(cond)},
	)
	return ir.Name(q)
}

// copyArray lowers COP(src, dest, len). A length of one is a plain
// assignment; longer copies loop over indexed elements.
func (rs *rungState) copyArray(in *source.Instruction) ir.Stmt {
	src, dest, n := rs.ref(in, 0), rs.ref(in, 1), rs.value(in, 2)
	if l, ok := n.(*ir.Lit); ok && l.Kind == ir.LitInt && l.Text == "1" {
		return &ir.Assign{Target: dest, Value: src}
	}
	if !endsWithIndex(src) || !endsWithIndex(dest) {
		rs.fail("COP", "multi-element copy needs indexed array operands")
		return nil
	}
	rs.temps++
	name := rs.ctx.Names.Reserve(fmt.Sprintf("%s_R%d_I%d", rs.ctx.Routine, rs.rung, rs.temps))
	rs.reserved = append(rs.reserved, name)
	rs.tags = append(rs.tags, ir.Tag{Name: name, Type: "DINT", Scope: ir.ScopeProgram, Kind: ir.KindBase})
	i := ir.Name(name)
	return &ir.For{
		Var:  ir.Name(name),
		From: ir.Int(0),
		To:   &ir.Binary{Op: ir.OpSub, X: n, Y: ir.Int(1)},
		Body: []ir.Stmt{&ir.Assign{Target: offset(dest, i), Value: offset(src, i)}},
	}
}

func endsWithIndex(r *ir.Ref) bool {
	return r != nil && len(r.Path) > 0 && r.Path[len(r.Path)-1].Index != nil
}

// offset adds i to the last index of r: A[3] -> A[3 + i], A[0] -> A[i].
func offset(r *ir.Ref, i *ir.Ref) *ir.Ref {
	out := ir.CloneExpr(r).(*ir.Ref)
	last := &out.Path[len(out.Path)-1]
	if l, ok := last.Index.(*ir.Lit); ok && l.Text == "0" {
		last.Index = ir.Name(i.Name)
	} else {
		last.Index = &ir.Binary{Op: ir.OpAdd, X: last.Index, Y: ir.Name(i.Name)}
	}
	return out
}

// reset lowers RES on a timer or counter instance.
func (rs *rungState) reset(in *source.Instruction) []ir.Stmt {
	tag := rs.ref(in, 0)
	vendor := ""
	if rs.ctx.TagType != nil && tag != nil {
		vendor = rs.ctx.TagType(tag.Name)
	}
	switch {
	case tables.IsTimerType(vendor):
		return []ir.Stmt{&ir.Invoke{Callee: tag, Args: []ir.Arg{{Name: "IN", Value: ir.False}}}}
	case tables.IsCounterType(vendor):
		return []ir.Stmt{
			&ir.Invoke{Callee: tag, Args: []ir.Arg{{Name: "R", Value: ir.True}}},
			&ir.Invoke{Callee: ir.Name(tag.Name), Args: []ir.Arg{{Name: "R", Value: ir.False}}},
		}
	}
	rs.fail("RES", "reset target %s is not a timer or counter", strings.TrimSpace(in.Operands[0]))
	return nil
}

func (rs *rungState) inline(op tables.Instr, routine string) []ir.Stmt {
	name := strings.TrimSpace(routine)
	if rs.ctx.Inline == nil {
		rs.fail(op.String(), "no routine resolver for %s", name)
		return nil
	}
	stmts, err := rs.ctx.Inline(name)
	if err != nil {
		rs.fail(op.String(), "%v", err)
		return nil
	}
	return stmts
}

// expression parses a CPT expression operand.
func (rs *rungState) expression(in *source.Instruction, i int) ir.Expr {
	text := in.Operands[i]
	e, err := st.ParseExpr(text)
	if err != nil {
		rs.fail("CPT", "expression %q: %v", text, err)
		return ir.False
	}
	x, err := irbuild.Expr(e)
	if err != nil {
		rs.fail("CPT", "expression %q: %v", text, err)
		return ir.False
	}
	return x
}

func negate(e ir.Expr) ir.Expr {
	if l, ok := e.(*ir.Lit); ok && (l.Kind == ir.LitInt || l.Kind == ir.LitReal) {
		if strings.HasPrefix(l.Text, "-") {
			return &ir.Lit{Kind: l.Kind, Text: l.Text[1:]}
		}
		return &ir.Lit{Kind: l.Kind, Text: "-" + l.Text}
	}
	return &ir.Unary{Op: ir.OpNeg, X: e}
}

// ref parses operand i as a tag reference.
func (rs *rungState) ref(in *source.Instruction, i int) *ir.Ref {
	r, err := source.ParseReference(in.Operands[i])
	if err != nil {
		rs.fail(in.Mnemonic, "operand %d: %v", i+1, err)
		return &ir.Ref{Name: "_"}
	}
	return r
}

// value parses operand i as a literal or reference.
func (rs *rungState) value(in *source.Instruction, i int) ir.Expr {
	e, err := source.ParseOperand(in.Operands[i])
	if errors.Is(err, source.ErrPlaceholder) {
		rs.fail(in.Mnemonic, "operand %d is a placeholder", i+1)
		return ir.False
	}
	if err != nil {
		rs.fail(in.Mnemonic, "operand %d: %v", i+1, err)
		return ir.False
	}
	return e
}
