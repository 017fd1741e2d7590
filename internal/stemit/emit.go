package stemit

import (
	"fmt"
	"strings"

	"github.com/roach88/l5xst/internal/config"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/st"
	"github.com/roach88/l5xst/internal/tables"
)

// Emit renders prog as Structured Text.
func Emit(prog *ir.Program, cfg *config.Config) string {
	return st.Format(FromIR(prog, cfg))
}

// FromIR builds the ST compilation unit for prog. Controller-scope tags
// become VAR_GLOBAL of the configuration; program-scope tags are the
// program's VAR section.
func FromIR(prog *ir.Program, cfg *config.Config) *st.File {
	f := &st.File{}
	structs, funcs := usedAux(prog)

	for _, td := range structs {
		f.Decls = append(f.Decls, typeDecl(td))
	}
	for _, td := range prog.Types {
		f.Decls = append(f.Decls, typeDecl(td))
	}
	for _, a := range funcs {
		f.Decls = append(f.Decls, auxDecl(a))
	}
	for i := range prog.POUs {
		f.Decls = append(f.Decls, pouDecl(&prog.POUs[i]))
	}

	var globals, locals []st.VarDecl
	for _, t := range prog.Tags {
		if t.Kind == ir.KindAlias {
			continue
		}
		if t.Scope == ir.ScopeProgram {
			locals = append(locals, tagDecl(t))
		} else {
			globals = append(globals, tagDecl(t))
		}
	}

	main := &st.POU{Kind: st.KindProgram, Name: prog.Name, Body: Stmts(prog.Body)}
	if len(locals) > 0 {
		main.Sections = []st.VarSection{{Kind: st.SectionVar, Vars: locals}}
	}
	f.Decls = append(f.Decls, main)
	f.Decls = append(f.Decls, configuration(prog.Name, globals, cfg))
	return f
}

func configuration(program string, globals []st.VarDecl, cfg *config.Config) *st.Configuration {
	c := &st.Configuration{Name: cfg.Configuration}
	if len(globals) > 0 {
		c.Globals = []st.VarSection{{Kind: st.SectionGlobal, Vars: globals}}
	}
	c.Resources = []st.Resource{{
		Name: cfg.Resource,
		On:   "PLC",
		Tasks: []st.Task{{
			Name: cfg.Task.Name,
			Params: []st.Arg{
				{Name: "INTERVAL", Value: &st.Literal{Kind: ir.LitTime, Text: cfg.Task.Interval}},
				{Name: "PRIORITY", Value: &st.Literal{Kind: ir.LitInt, Text: fmt.Sprint(cfg.Task.Priority)}},
			},
		}},
		Programs: []st.ProgramInstance{{Name: cfg.Instance, Task: cfg.Task.Name, Program: program}},
	}}
	return c
}

// usedAux returns the auxiliary structures and template functions prog
// depends on, in table order.
func usedAux(prog *ir.Program) ([]ir.TypeDecl, []tables.Aux) {
	needStruct := make(map[string]bool)
	needFunc := make(map[tables.Aux]bool)
	for _, t := range prog.Tags {
		needStruct[strings.ToUpper(t.Type)] = true
	}
	visit := func(body []ir.Stmt) {
		ir.WalkStmts(body, func(s ir.Stmt) bool {
			if ic, ok := s.(*ir.InstrCall); ok {
				if a, ok := tables.LookupAux(ic.Func); ok {
					needFunc[a] = true
				}
			}
			return true
		})
	}
	visit(prog.Body)
	for _, p := range prog.POUs {
		visit(p.Body)
		for _, v := range p.Vars {
			needStruct[strings.ToUpper(v.Type)] = true
		}
	}

	var funcs []tables.Aux
	for _, a := range tables.Auxes() {
		if needFunc[a] {
			funcs = append(funcs, a)
			needStruct[strings.ToUpper(a.Info().Struct)] = true
		}
	}
	var structs []ir.TypeDecl
	for _, td := range tables.AuxStructs() {
		if needStruct[strings.ToUpper(td.Name)] {
			structs = append(structs, td)
		}
	}
	return structs, funcs
}

// auxDecl parses the template source. The assets are fixed and covered by
// tests, so a parse failure is a build defect.
func auxDecl(a tables.Aux) st.Decl {
	f, err := st.Parse(a.String()+".st", a.Source())
	if err != nil || len(f.Decls) != 1 {
		panic(fmt.Sprintf("stemit: auxiliary template %s: %v", a, err))
	}
	return f.Decls[0]
}

func typeDecl(td ir.TypeDecl) *st.TypeDecl {
	d := &st.TypeDecl{Name: td.Name}
	for _, m := range td.Members {
		d.Fields = append(d.Fields, st.VarDecl{Name: m.Name, Type: typeRef(m.Type, m.Dim)})
	}
	return d
}

func typeRef(name string, dim int) st.TypeRef {
	if dim <= 0 {
		return st.TypeRef{Name: name}
	}
	return st.TypeRef{Name: name, Array: true, Low: 0, High: dim - 1}
}

func tagDecl(t ir.Tag) st.VarDecl {
	d := st.VarDecl{Name: t.Name, Type: typeRef(t.Type, t.Dim), Comment: t.Note}
	if t.Init != nil {
		d.Init = &st.Literal{Kind: t.Init.Kind, Text: t.Init.Text}
	}
	return d
}

var sectionKinds = map[ir.VarSection]st.SectionKind{
	ir.VarInput:  st.SectionInput,
	ir.VarOutput: st.SectionOutput,
	ir.VarInOut:  st.SectionInOut,
	ir.VarLocal:  st.SectionVar,
}

// sectionOrder is the order sections are printed in.
var sectionOrder = []ir.VarSection{ir.VarInput, ir.VarOutput, ir.VarInOut, ir.VarLocal}

func pouDecl(p *ir.POU) *st.POU {
	d := &st.POU{Kind: st.KindFunctionBlock, Name: p.Name, Body: Stmts(p.Body)}
	if p.Kind == ir.POUFunction {
		d.Kind = st.KindFunction
		d.ReturnType = p.ReturnType
	}
	bySection := make(map[ir.VarSection][]st.VarDecl)
	for _, v := range p.Vars {
		vd := st.VarDecl{Name: v.Name, Type: typeRef(v.Type, v.Dim)}
		if v.Init != nil {
			vd.Init = &st.Literal{Kind: v.Init.Kind, Text: v.Init.Text}
		}
		bySection[v.Section] = append(bySection[v.Section], vd)
	}
	for _, sec := range sectionOrder {
		if vars := bySection[sec]; len(vars) > 0 {
			d.Sections = append(d.Sections, st.VarSection{Kind: sectionKinds[sec], Vars: vars})
		}
	}
	return d
}

// Stmts converts IR statements to ST.
func Stmts(stmts []ir.Stmt) []st.Stmt {
	var out []st.Stmt
	for _, s := range stmts {
		out = append(out, Stmt(s))
	}
	return out
}

// Stmt converts one IR statement. An InstrCall becomes x := F(x); a
// disabled statement becomes a comment holding its text.
func Stmt(s ir.Stmt) st.Stmt {
	switch v := s.(type) {
	case *ir.Assign:
		return &st.Assign{Target: Expr(v.Target), Value: Expr(v.Value)}
	case *ir.If:
		out := &st.If{Else: Stmts(v.Else)}
		for _, br := range v.Branches {
			out.Branches = append(out.Branches, st.CondBody{Cond: Expr(br.Cond), Body: Stmts(br.Body)})
		}
		return out
	case *ir.InstrCall:
		return &st.Assign{
			Target: Expr(v.Target),
			Value:  &st.Call{Func: v.Func, Args: []st.Arg{{Value: Expr(v.Target)}}},
		}
	case *ir.For:
		out := &st.For{Var: Expr(v.Var), From: Expr(v.From), To: Expr(v.To), Body: Stmts(v.Body)}
		if v.By != nil {
			out.By = Expr(v.By)
		}
		return out
	case *ir.While:
		return &st.While{Cond: Expr(v.Cond), Body: Stmts(v.Body)}
	case *ir.Invoke:
		return &st.CallStmt{Callee: Expr(v.Callee), Args: args(v.Args)}
	case *ir.Comment:
		return &st.Comment{Text: v.Text}
	case *ir.Disabled:
		inner := Stmt(v.Stmt)
		text := ""
		if c, ok := inner.(*st.Comment); ok {
			text = c.Text
		} else {
			text = st.FormatStmt(inner)
		}
		return &st.Comment{Text: fmt.Sprintf("DISABLED (%s): %s", v.Reason, text)}
	}
	panic(fmt.Sprintf("stemit: unknown statement %T", s))
}

// Expr converts an IR expression. Consecutive index selectors share one
// bracket: a[i][j] prints as a[i, j].
func Expr(e ir.Expr) st.Expr {
	switch v := e.(type) {
	case *ir.Ref:
		var x st.Expr = &st.Ident{Name: v.Name}
		for _, sel := range v.Path {
			if sel.Index == nil {
				x = &st.Member{X: x, Field: sel.Field}
				continue
			}
			if ix, ok := x.(*st.Index); ok {
				ix.Indices = append(ix.Indices, Expr(sel.Index))
				continue
			}
			x = &st.Index{X: x, Indices: []st.Expr{Expr(sel.Index)}}
		}
		return x
	case *ir.Lit:
		return &st.Literal{Kind: v.Kind, Text: v.Text}
	case *ir.Unary:
		return &st.Unary{Op: v.Op, X: Expr(v.X)}
	case *ir.Binary:
		return &st.Binary{Op: v.Op, X: Expr(v.X), Y: Expr(v.Y)}
	case *ir.Call:
		return &st.Call{Func: v.Func, Args: args(v.Args)}
	}
	panic(fmt.Sprintf("stemit: unknown expression %T", e))
}

func args(as []ir.Arg) []st.Arg {
	if as == nil {
		return nil
	}
	out := make([]st.Arg, len(as))
	for i, a := range as {
		out[i] = st.Arg{Name: a.Name, Value: Expr(a.Value)}
	}
	return out
}

// FormatStmts renders IR statements as ST lines, mainly for diagnostics and
// tests.
func FormatStmts(stmts []ir.Stmt) string {
	lines := make([]string, 0, len(stmts))
	for _, s := range Stmts(stmts) {
		lines = append(lines, st.FormatStmt(s))
	}
	return strings.Join(lines, "\n")
}
