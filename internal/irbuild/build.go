package irbuild

import (
	"fmt"
	"strings"

	"github.com/roach88/l5xst/internal/diag"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/st"
	"github.com/roach88/l5xst/internal/tables"
)

var sections = map[st.SectionKind]ir.VarSection{
	st.SectionInput:  ir.VarInput,
	st.SectionOutput: ir.VarOutput,
	st.SectionInOut:  ir.VarInOut,
	st.SectionVar:    ir.VarLocal,
	st.SectionTemp:   ir.VarLocal,
}

// FromST builds the IR program of an ST compilation unit. The unit must
// hold exactly one PROGRAM. Auxiliary structures and template functions
// are recognized by name and skipped, since the emitter re-creates them.
// Failures are MALFORMED_ST_SYNTAX errors.
func FromST(f *st.File) (*ir.Program, error) {
	prog := &ir.Program{}
	var main *st.POU
	var globals []ir.Tag

	for _, d := range f.Decls {
		switch v := d.(type) {
		case *st.TypeDecl:
			if _, ok := tables.AuxStruct(v.Name); ok {
				continue
			}
			td := ir.TypeDecl{Name: v.Name}
			for _, fd := range v.Fields {
				td.Members = append(td.Members, ir.Member{Name: fd.Name, Type: fd.Type.Name, Dim: dim(fd.Type)})
			}
			prog.Types = append(prog.Types, td)
		case *st.POU:
			switch v.Kind {
			case st.KindProgram:
				if main != nil {
					return nil, malformed(v.Line, "second PROGRAM %s: a unit holds one program", v.Name)
				}
				main = v
			case st.KindFunction, st.KindFunctionBlock:
				if _, ok := tables.LookupAux(v.Name); ok && v.Kind == st.KindFunction {
					continue
				}
				p, err := pou(v)
				if err != nil {
					return nil, err
				}
				prog.POUs = append(prog.POUs, p)
			default:
				panic(fmt.Sprintf("irbuild: unknown POU kind %q", v.Kind))
			}
		case *st.Configuration:
			secs := append([]st.VarSection(nil), v.Globals...)
			for _, r := range v.Resources {
				secs = append(secs, r.Globals...)
			}
			for _, sec := range secs {
				tags, err := tagDecls(sec.Vars, ir.ScopeController)
				if err != nil {
					return nil, err
				}
				globals = append(globals, tags...)
			}
		case *st.CommentDecl:
		default:
			panic(fmt.Sprintf("irbuild: unknown declaration %T", d))
		}
	}

	if main == nil {
		return nil, malformed(0, "no PROGRAM declaration")
	}
	prog.Name = main.Name
	prog.Tags = globals
	for _, sec := range main.Sections {
		tags, err := tagDecls(sec.Vars, ir.ScopeProgram)
		if err != nil {
			return nil, err
		}
		prog.Tags = append(prog.Tags, tags...)
	}
	body, err := Stmts(main.Body)
	if err != nil {
		return nil, err
	}
	prog.Body = body
	return prog, nil
}

func malformed(line int, format string, args ...any) *diag.Error {
	return diag.Errorf(diag.CodeMalformedST, diag.Location{Line: line}, format, args...)
}

func dim(t st.TypeRef) int {
	if !t.Array {
		return 0
	}
	return t.High - t.Low + 1
}

func tagDecls(vars []st.VarDecl, scope ir.Scope) ([]ir.Tag, error) {
	out := make([]ir.Tag, 0, len(vars))
	for _, v := range vars {
		init, err := initValue(v)
		if err != nil {
			return nil, err
		}
		out = append(out, ir.Tag{
			Name:  v.Name,
			Type:  v.Type.Name,
			Dim:   dim(v.Type),
			Scope: scope,
			Kind:  ir.KindBase,
			Init:  init,
			Note:  v.Comment,
		})
	}
	return out, nil
}

// initValue accepts literal initializers only; sign folding turns -5 into
// a literal.
func initValue(v st.VarDecl) (*ir.Lit, error) {
	if v.Init == nil {
		return nil, nil
	}
	e, err := Expr(v.Init)
	if err != nil {
		return nil, malformed(0, "initial value of %s: %v", v.Name, err)
	}
	l, ok := e.(*ir.Lit)
	if !ok {
		return nil, malformed(0, "initial value of %s is not a literal: %s", v.Name, st.FormatExpr(v.Init))
	}
	return l, nil
}

func pou(p *st.POU) (ir.POU, error) {
	out := ir.POU{Name: p.Name, Kind: ir.POUFunctionBlock}
	if p.Kind == st.KindFunction {
		out.Kind = ir.POUFunction
		out.ReturnType = p.ReturnType
	}
	for _, sec := range p.Sections {
		section, ok := sections[sec.Kind]
		if !ok {
			return ir.POU{}, malformed(p.Line, "%s section in %s %s", sec.Kind, p.Kind, p.Name)
		}
		for _, v := range sec.Vars {
			init, err := initValue(v)
			if err != nil {
				return ir.POU{}, err
			}
			out.Vars = append(out.Vars, ir.Var{Name: v.Name, Type: v.Type.Name, Dim: dim(v.Type), Section: section, Init: init})
		}
	}
	body, err := Stmts(p.Body)
	if err != nil {
		return ir.POU{}, fmt.Errorf("%s %s: %w", p.Kind, p.Name, err)
	}
	out.Body = body
	return out, nil
}

// Stmts converts a statement list.
func Stmts(stmts []st.Stmt) ([]ir.Stmt, error) {
	var out []ir.Stmt
	for _, s := range stmts {
		x, err := Stmt(s)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

// Stmt converts one statement. x := F(x) on an auxiliary template function
// becomes an InstrCall.
func Stmt(s st.Stmt) (ir.Stmt, error) {
	switch v := s.(type) {
	case *st.Assign:
		target, err := Ref(v.Target)
		if err != nil {
			return nil, malformed(v.Line, "assignment target: %v", err)
		}
		if fn, ok := instrCall(v); ok {
			return &ir.InstrCall{Func: fn, Target: target}, nil
		}
		value, err := Expr(v.Value)
		if err != nil {
			return nil, malformed(v.Line, "%v", err)
		}
		return &ir.Assign{Target: target, Value: value}, nil
	case *st.CallStmt:
		callee, err := Ref(v.Callee)
		if err != nil {
			return nil, malformed(v.Line, "call target: %v", err)
		}
		args, err := Args(v.Args)
		if err != nil {
			return nil, malformed(v.Line, "%v", err)
		}
		return &ir.Invoke{Callee: callee, Args: args}, nil
	case *st.If:
		out := &ir.If{}
		for _, br := range v.Branches {
			cond, err := Expr(br.Cond)
			if err != nil {
				return nil, malformed(v.Line, "condition: %v", err)
			}
			body, err := Stmts(br.Body)
			if err != nil {
				return nil, err
			}
			out.Branches = append(out.Branches, ir.Branch{Cond: cond, Body: body})
		}
		els, err := Stmts(v.Else)
		if err != nil {
			return nil, err
		}
		out.Else = els
		return out, nil
	case *st.For:
		return forLoop(v)
	case *st.While:
		cond, err := Expr(v.Cond)
		if err != nil {
			return nil, malformed(v.Line, "condition: %v", err)
		}
		body, err := Stmts(v.Body)
		if err != nil {
			return nil, err
		}
		return &ir.While{Cond: cond, Body: body}, nil
	case *st.Return:
		return nil, malformed(v.Line, "RETURN has no counterpart in a scanned routine")
	case *st.Comment:
		return &ir.Comment{Text: v.Text}, nil
	}
	panic(fmt.Sprintf("irbuild: unknown statement %T", s))
}

func forLoop(v *st.For) (ir.Stmt, error) {
	ctl, err := Ref(v.Var)
	if err != nil {
		return nil, malformed(v.Line, "loop variable: %v", err)
	}
	out := &ir.For{Var: ctl}
	bounds := []struct {
		dst *ir.Expr
		src st.Expr
	}{{&out.From, v.From}, {&out.To, v.To}, {&out.By, v.By}}
	for _, b := range bounds {
		if b.src == nil {
			continue
		}
		e, err := Expr(b.src)
		if err != nil {
			return nil, malformed(v.Line, "loop bound: %v", err)
		}
		*b.dst = e
	}
	body, err := Stmts(v.Body)
	if err != nil {
		return nil, err
	}
	out.Body = body
	return out, nil
}

// instrCall recognizes x := F(x) where F is an auxiliary template.
func instrCall(a *st.Assign) (string, bool) {
	call, ok := a.Value.(*st.Call)
	if !ok || len(call.Args) != 1 || call.Args[0].Name != "" {
		return "", false
	}
	aux, ok := tables.LookupAux(call.Func)
	if !ok {
		return "", false
	}
	if !strings.EqualFold(st.FormatExpr(call.Args[0].Value), st.FormatExpr(a.Target)) {
		return "", false
	}
	return aux.Info().Func, true
}
