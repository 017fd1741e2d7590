package st

import (
	"fmt"
	"strings"
)

const indent = "    "

// Format renders f as Structured Text. Declarations are separated by a
// blank line and the output ends with a newline.
func Format(f *File) string {
	p := &printer{}
	for i, d := range f.Decls {
		if i > 0 {
			p.b.WriteByte('\n')
		}
		p.decl(d)
	}
	return p.b.String()
}

// FormatStmt renders one statement (and its nested body) without leading
// indentation.
func FormatStmt(s Stmt) string {
	p := &printer{}
	p.stmt(s)
	return strings.TrimSuffix(p.b.String(), "\n")
}

// FormatExpr renders an expression with the minimum parentheses needed to
// keep its structure when parsed back.
func FormatExpr(e Expr) string {
	var b strings.Builder
	writeExpr(&b, e)
	return b.String()
}

type printer struct {
	b     strings.Builder
	depth int
}

func (p *printer) line(format string, args ...any) {
	for i := 0; i < p.depth; i++ {
		p.b.WriteString(indent)
	}
	fmt.Fprintf(&p.b, format, args...)
	p.b.WriteByte('\n')
}

func (p *printer) decl(d Decl) {
	switch v := d.(type) {
	case *TypeDecl:
		p.line("TYPE %s :", v.Name)
		p.line("STRUCT")
		p.depth++
		p.vars(v.Fields)
		p.depth--
		p.line("END_STRUCT;")
		p.line("END_TYPE")
	case *POU:
		if v.ReturnType != "" {
			p.line("%s %s : %s", v.Kind, v.Name, v.ReturnType)
		} else {
			p.line("%s %s", v.Kind, v.Name)
		}
		p.sections(v.Sections)
		p.depth++
		p.stmts(v.Body)
		p.depth--
		p.line("%s", v.Kind.End())
	case *Configuration:
		p.line("CONFIGURATION %s", v.Name)
		p.sections(v.Globals)
		p.depth++
		for _, r := range v.Resources {
			p.resource(r)
		}
		p.depth--
		p.line("END_CONFIGURATION")
	case *CommentDecl:
		p.line("%s", comment(v.Text))
	default:
		panic(fmt.Sprintf("st: unknown declaration %T", d))
	}
}

func (p *printer) resource(r Resource) {
	p.line("RESOURCE %s ON %s", r.Name, r.On)
	p.sections(r.Globals)
	p.depth++
	for _, t := range r.Tasks {
		p.line("TASK %s(%s);", t.Name, formatArgs(t.Params))
	}
	for _, pi := range r.Programs {
		if pi.Task != "" {
			p.line("PROGRAM %s WITH %s : %s;", pi.Name, pi.Task, pi.Program)
		} else {
			p.line("PROGRAM %s : %s;", pi.Name, pi.Program)
		}
	}
	p.depth--
	p.line("END_RESOURCE")
}

func (p *printer) sections(secs []VarSection) {
	for _, s := range secs {
		head := string(s.Kind)
		if s.Constant {
			head += " CONSTANT"
		}
		if s.Retain {
			head += " RETAIN"
		}
		p.line("%s", head)
		p.depth++
		p.vars(s.Vars)
		p.depth--
		p.line("END_VAR")
	}
}

func (p *printer) vars(vars []VarDecl) {
	for _, v := range vars {
		text := v.Name + " : " + formatType(v.Type)
		if v.Init != nil {
			text += " := " + FormatExpr(v.Init)
		}
		text += ";"
		if v.Comment != "" {
			text += " " + comment(v.Comment)
		}
		p.line("%s", text)
	}
}

func formatType(t TypeRef) string {
	if !t.Array {
		return t.Name
	}
	return fmt.Sprintf("ARRAY[%d..%d] OF %s", t.Low, t.High, t.Name)
}

func (p *printer) stmts(stmts []Stmt) {
	for _, s := range stmts {
		p.stmt(s)
	}
}

func (p *printer) body(stmts []Stmt) {
	p.depth++
	p.stmts(stmts)
	p.depth--
}

func (p *printer) stmt(s Stmt) {
	switch v := s.(type) {
	case *Assign:
		p.line("%s := %s;", FormatExpr(v.Target), FormatExpr(v.Value))
	case *CallStmt:
		p.line("%s(%s);", FormatExpr(v.Callee), formatArgs(v.Args))
	case *If:
		for i, br := range v.Branches {
			kw := "IF"
			if i > 0 {
				kw = "ELSIF"
			}
			p.line("%s %s THEN", kw, FormatExpr(br.Cond))
			p.body(br.Body)
		}
		if len(v.Else) > 0 {
			p.line("ELSE")
			p.body(v.Else)
		}
		p.line("END_IF;")
	case *For:
		head := fmt.Sprintf("FOR %s := %s TO %s", FormatExpr(v.Var), FormatExpr(v.From), FormatExpr(v.To))
		if v.By != nil {
			head += " BY " + FormatExpr(v.By)
		}
		p.line("%s DO", head)
		p.body(v.Body)
		p.line("END_FOR;")
	case *While:
		p.line("WHILE %s DO", FormatExpr(v.Cond))
		p.body(v.Body)
		p.line("END_WHILE;")
	case *Return:
		p.line("RETURN;")
	case *Comment:
		p.line("%s", comment(v.Text))
	default:
		panic(fmt.Sprintf("st: unknown statement %T", s))
	}
}

// comment wraps text in (* *). A nested close marker would end the comment
// early, so it is split.
func comment(text string) string {
	return "(* " + strings.ReplaceAll(text, "*)", "* )") + " *)"
}

func formatArgs(args []Arg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		switch {
		case a.Name == "":
			parts[i] = FormatExpr(a.Value)
		case a.Output:
			parts[i] = a.Name + " => " + FormatExpr(a.Value)
		default:
			parts[i] = a.Name + " := " + FormatExpr(a.Value)
		}
	}
	return strings.Join(parts, ", ")
}

// Binding strength on a scale where binary operators use ten times their
// ir precedence. Prefix operators sit between * and **.
const (
	precUnary   = 65
	precPrimary = 100
)

func precedence(e Expr) int {
	switch v := e.(type) {
	case *Binary:
		return v.Op.Precedence() * 10
	case *Unary:
		return precUnary
	case *Literal:
		if strings.HasPrefix(v.Text, "-") {
			return precUnary
		}
	}
	return precPrimary
}

func writeExpr(b *strings.Builder, e Expr) {
	switch v := e.(type) {
	case *Ident:
		b.WriteString(v.Name)
	case *Member:
		writeExpr(b, v.X)
		b.WriteByte('.')
		b.WriteString(v.Field)
	case *Index:
		writeExpr(b, v.X)
		b.WriteByte('[')
		for i, ix := range v.Indices {
			if i > 0 {
				b.WriteString(", ")
			}
			writeExpr(b, ix)
		}
		b.WriteByte(']')
	case *Literal:
		b.WriteString(v.Text)
	case *Unary:
		b.WriteString(v.Op.String())
		if v.Op.String() == "NOT" {
			b.WriteByte(' ')
		}
		writeOperand(b, v.X, precedence(v.X) < precUnary)
	case *Binary:
		p := precedence(v)
		writeOperand(b, v.X, precedence(v.X) < p)
		b.WriteByte(' ')
		b.WriteString(v.Op.String())
		b.WriteByte(' ')
		writeOperand(b, v.Y, precedence(v.Y) <= p)
	case *Call:
		b.WriteString(v.Func)
		b.WriteByte('(')
		b.WriteString(formatArgs(v.Args))
		b.WriteByte(')')
	default:
		panic(fmt.Sprintf("st: unknown expression %T", e))
	}
}

func writeOperand(b *strings.Builder, e Expr, paren bool) {
	if paren {
		b.WriteByte('(')
	}
	writeExpr(b, e)
	if paren {
		b.WriteByte(')')
	}
}
