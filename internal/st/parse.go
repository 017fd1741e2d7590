package st

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"

	"github.com/roach88/l5xst/internal/ir"
)

// SyntaxError is a parse failure with its position in the source text.
type SyntaxError struct {
	Filename string
	Line     int
	Column   int
	Message  string
}

func (e *SyntaxError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.Filename, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// Parse parses a Structured Text compilation unit.
func Parse(filename, src string) (*File, error) {
	g, err := fileParser.ParseString(filename, src)
	if err != nil {
		return nil, syntaxError(filename, err)
	}
	f := &File{}
	for _, d := range g.Decls {
		decls, err := convertDecl(d)
		if err != nil {
			return nil, err
		}
		f.Decls = append(f.Decls, decls...)
	}
	return f, nil
}

// ParseExpr parses a single expression, such as the operand of a compute
// instruction.
func ParseExpr(src string) (Expr, error) {
	g, err := exprParser.ParseString("", src)
	if err != nil {
		return nil, syntaxError("", err)
	}
	return convertExpr(g), nil
}

// ParseStmts parses a statement list outside any POU, such as the body of
// a vendor ST routine.
func ParseStmts(filename, src string) ([]Stmt, error) {
	g, err := bodyParser.ParseString(filename, src)
	if err != nil {
		return nil, syntaxError(filename, err)
	}
	return convertStmts(g.Stmts), nil
}

func syntaxError(filename string, err error) error {
	var perr participle.Error
	if errors.As(err, &perr) {
		pos := perr.Position()
		return &SyntaxError{Filename: filename, Line: pos.Line, Column: pos.Column, Message: perr.Message()}
	}
	return &SyntaxError{Filename: filename, Message: err.Error()}
}

// convertDecl flattens a TYPE block into one TypeDecl per structure.
func convertDecl(d *gDecl) ([]Decl, error) {
	switch {
	case d.POU != nil:
		p, err := convertPOU(d.POU)
		if err != nil {
			return nil, err
		}
		return []Decl{p}, nil
	case d.Config != nil:
		c, err := convertConfig(d.Config)
		if err != nil {
			return nil, err
		}
		return []Decl{c}, nil
	}
	out := make([]Decl, 0, len(d.Types))
	for _, t := range d.Types {
		fields, err := convertVars(t.Fields)
		if err != nil {
			return nil, err
		}
		out = append(out, &TypeDecl{Name: t.Name, Fields: fields})
	}
	return out, nil
}

func convertPOU(g *gPOU) (*POU, error) {
	kind := POUKind(strings.ToUpper(g.Kind))
	if end := strings.ToUpper(g.End); end != kind.End() {
		return nil, &SyntaxError{
			Line:    g.Pos.Line,
			Column:  g.Pos.Column,
			Message: fmt.Sprintf("%s %s closed by %s", kind, g.Name, end),
		}
	}
	p := &POU{Line: g.Pos.Line, Kind: kind, Name: g.Name, ReturnType: g.Return}
	for _, s := range g.Sections {
		sec, err := convertSection(s)
		if err != nil {
			return nil, err
		}
		p.Sections = append(p.Sections, sec)
	}
	p.Body = convertStmts(g.Body)
	return p, nil
}

func convertSection(g *gVarSection) (VarSection, error) {
	sec := VarSection{Kind: SectionKind(strings.ToUpper(g.Kind)), Constant: g.Constant, Retain: g.Retain}
	vars, err := convertVars(g.Vars)
	if err != nil {
		return sec, err
	}
	sec.Vars = vars
	return sec, nil
}

func convertVars(gs []*gVarDecl) ([]VarDecl, error) {
	var out []VarDecl
	for _, g := range gs {
		ref, err := convertTypeRef(g)
		if err != nil {
			return nil, err
		}
		var init Expr
		if g.Init != nil {
			init = convertExpr(g.Init)
		}
		for _, name := range g.Names {
			out = append(out, VarDecl{Name: name, Type: ref, Init: init})
		}
	}
	return out, nil
}

func convertTypeRef(g *gVarDecl) (TypeRef, error) {
	ref := TypeRef{Name: g.Type.Name}
	if g.Type.Range == nil {
		return ref, nil
	}
	low, err1 := strconv.Atoi(g.Type.Range.Low)
	high, err2 := strconv.Atoi(g.Type.Range.High)
	if err1 != nil || err2 != nil || high < low {
		return ref, &SyntaxError{
			Line:    g.Pos.Line,
			Column:  g.Pos.Column,
			Message: fmt.Sprintf("invalid array range %s..%s", g.Type.Range.Low, g.Type.Range.High),
		}
	}
	ref.Array, ref.Low, ref.High = true, low, high
	return ref, nil
}

func convertConfig(g *gConfig) (*Configuration, error) {
	c := &Configuration{Name: g.Name}
	for _, s := range g.Globals {
		sec, err := convertSection(s)
		if err != nil {
			return nil, err
		}
		c.Globals = append(c.Globals, sec)
	}
	for _, gr := range g.Resources {
		r := Resource{Name: gr.Name, On: gr.On}
		for _, s := range gr.Globals {
			sec, err := convertSection(s)
			if err != nil {
				return nil, err
			}
			r.Globals = append(r.Globals, sec)
		}
		for _, t := range gr.Tasks {
			r.Tasks = append(r.Tasks, Task{Name: t.Name, Params: convertArgs(t.Params)})
		}
		for _, pi := range gr.Programs {
			r.Programs = append(r.Programs, ProgramInstance{Name: pi.Name, Task: pi.Task, Program: pi.Program})
		}
		c.Resources = append(c.Resources, r)
	}
	return c, nil
}

func convertStmts(gs []*gStmt) []Stmt {
	var out []Stmt
	for _, g := range gs {
		if s := convertStmt(g); s != nil {
			out = append(out, s)
		}
	}
	return out
}

func convertStmt(g *gStmt) Stmt {
	line := g.Pos.Line
	switch {
	case g.If != nil:
		s := &If{Line: line, Branches: []CondBody{{Cond: convertExpr(g.If.Cond), Body: convertStmts(g.If.Then)}}}
		for _, ei := range g.If.Elsifs {
			s.Branches = append(s.Branches, CondBody{Cond: convertExpr(ei.Cond), Body: convertStmts(ei.Body)})
		}
		s.Else = convertStmts(g.If.Else)
		return s
	case g.For != nil:
		s := &For{
			Line: line,
			Var:  convertDesignator(g.For.Var),
			From: convertExpr(g.For.From),
			To:   convertExpr(g.For.To),
			Body: convertStmts(g.For.Body),
		}
		if g.For.By != nil {
			s.By = convertExpr(g.For.By)
		}
		return s
	case g.While != nil:
		return &While{Line: line, Cond: convertExpr(g.While.Cond), Body: convertStmts(g.While.Body)}
	case g.Return:
		return &Return{Line: line}
	case g.Simple != nil:
		target := convertDesignator(g.Simple.Target)
		if g.Simple.Tail.Call != nil {
			return &CallStmt{Line: line, Callee: target, Args: convertArgs(g.Simple.Tail.Call.Args)}
		}
		return &Assign{Line: line, Target: target, Value: convertExpr(g.Simple.Tail.Value)}
	}
	return nil
}

func convertArgs(gs []*gArg) []Arg {
	if gs == nil {
		return nil
	}
	out := make([]Arg, 0, len(gs))
	for _, g := range gs {
		a := Arg{Value: convertExpr(g.Value)}
		if g.Name != nil {
			a.Name, a.Output = g.Name.Name, g.Name.Output
		}
		out = append(out, a)
	}
	return out
}

func convertDesignator(g *gDesignator) Expr {
	var x Expr = &Ident{Name: g.Name}
	for _, sel := range g.Sels {
		if sel.Index != nil {
			ix := &Index{X: x}
			for _, e := range sel.Index {
				ix.Indices = append(ix.Indices, convertExpr(e))
			}
			x = ix
			continue
		}
		x = &Member{X: x, Field: sel.Field}
	}
	return x
}

func convertExpr(g *gExpr) Expr {
	x := convertXor(g.Left)
	for _, r := range g.Rest {
		x = &Binary{Op: ir.OpOr, X: x, Y: convertXor(r)}
	}
	return x
}

func convertXor(g *gXor) Expr {
	x := convertAnd(g.Left)
	for _, r := range g.Rest {
		x = &Binary{Op: ir.OpXor, X: x, Y: convertAnd(r)}
	}
	return x
}

func convertAnd(g *gAnd) Expr {
	x := convertCmp(g.Left)
	for _, r := range g.Rest {
		x = &Binary{Op: ir.OpAnd, X: x, Y: convertCmp(r)}
	}
	return x
}

func convertCmp(g *gCmp) Expr {
	x := convertAdd(g.Left)
	for _, r := range g.Rest {
		x = &Binary{Op: mustOp(r.Op), X: x, Y: convertAdd(r.Right)}
	}
	return x
}

func convertAdd(g *gAdd) Expr {
	x := convertMul(g.Left)
	for _, r := range g.Rest {
		x = &Binary{Op: mustOp(r.Op), X: x, Y: convertMul(r.Right)}
	}
	return x
}

func convertMul(g *gMul) Expr {
	x := convertUnary(g.Left)
	for _, r := range g.Rest {
		x = &Binary{Op: mustOp(r.Op), X: x, Y: convertUnary(r.Right)}
	}
	return x
}

func convertUnary(g *gUnary) Expr {
	x := convertPow(g.X)
	for i := len(g.Ops) - 1; i >= 0; i-- {
		op := ir.OpNeg
		if strings.EqualFold(g.Ops[i], "NOT") {
			op = ir.OpNot
		}
		x = &Unary{Op: op, X: x}
	}
	return x
}

// convertPow folds ** to the left, matching the other binary levels.
func convertPow(g *gPow) Expr {
	x := convertPrimary(g.Left)
	for _, r := range g.Rest {
		x = &Binary{Op: ir.OpPow, X: x, Y: convertPrimary(r)}
	}
	return x
}

func convertPrimary(g *gPrimary) Expr {
	switch {
	case g.Time != nil:
		return &Literal{Kind: ir.LitTime, Text: normalizeTime(*g.Time)}
	case g.Number != nil:
		return &Literal{Kind: numberKind(*g.Number), Text: *g.Number}
	case g.String != nil:
		return &Literal{Kind: ir.LitString, Text: *g.String}
	case g.Bool != nil:
		return &Literal{Kind: ir.LitBool, Text: strings.ToUpper(*g.Bool)}
	case g.Paren != nil:
		return convertExpr(g.Paren)
	}
	ref := convertDesignator(g.Operand.Ref)
	if g.Operand.Call == nil {
		return ref
	}
	return &Call{Func: g.Operand.Ref.Name, Args: convertArgs(g.Operand.Call.Args)}
}

func numberKind(text string) ir.LitKind {
	if strings.Contains(text, "#") {
		return ir.LitInt
	}
	if strings.ContainsAny(text, ".eE") {
		return ir.LitReal
	}
	return ir.LitInt
}

// normalizeTime upper-cases the prefix and keeps the duration as written:
// t#5s and TIME#5s both become T#5s.
func normalizeTime(text string) string {
	i := strings.IndexByte(text, '#')
	return "T#" + text[i+1:]
}

func mustOp(tok string) ir.BinaryOp {
	op, ok := ir.ParseBinaryOp(tok)
	if !ok {
		panic("st: grammar produced unknown operator " + tok)
	}
	return op
}
