package ir

import "strings"

// EncodeExpr converts an expression to its canonical value form.
// Identifiers are upper-cased because Structured Text is case-insensitive.
func EncodeExpr(e Expr) IRValue {
	switch v := e.(type) {
	case nil:
		return IRObject{"k": IRString("none")}
	case *Ref:
		return encodeRef(v)
	case *Lit:
		return IRObject{"k": IRString("lit"), "t": IRInt(v.Kind), "v": IRString(normalizeLit(v))}
	case *Unary:
		return IRObject{"k": IRString("un"), "op": IRInt(v.Op), "x": EncodeExpr(v.X)}
	case *Binary:
		return IRObject{"k": IRString("bin"), "op": IRInt(v.Op), "x": EncodeExpr(v.X), "y": EncodeExpr(v.Y)}
	case *Call:
		return IRObject{"k": IRString("call"), "f": IRString(strings.ToUpper(v.Func)), "args": encodeArgs(v.Args)}
	}
	panic("ir: unknown expression type")
}

func encodeRef(r *Ref) IRValue {
	path := make(IRArray, len(r.Path))
	for i, sel := range r.Path {
		if sel.Index != nil {
			path[i] = IRObject{"i": EncodeExpr(sel.Index)}
		} else {
			path[i] = IRObject{"f": IRString(strings.ToUpper(sel.Field))}
		}
	}
	return IRObject{"k": IRString("ref"), "n": IRString(strings.ToUpper(r.Name)), "p": path}
}

func encodeArgs(args []Arg) IRArray {
	arr := make(IRArray, len(args))
	for i, a := range args {
		arr[i] = IRObject{"n": IRString(strings.ToUpper(a.Name)), "v": EncodeExpr(a.Value)}
	}
	return arr
}

// normalizeLit canonicalizes literal spellings that ST treats as equal.
func normalizeLit(l *Lit) string {
	switch l.Kind {
	case LitBool, LitTime:
		return strings.ToUpper(l.Text)
	case LitInt, LitReal:
		return strings.ReplaceAll(strings.ToUpper(l.Text), "_", "")
	}
	return l.Text
}

// EncodeStmt converts a statement, including nested bodies, to its canonical
// value form. Annotations inside bodies are dropped.
func EncodeStmt(s Stmt) IRValue {
	obj := EncodeHeader(s)
	switch v := s.(type) {
	case *If:
		bodies := make(IRArray, 0, len(v.Branches)+1)
		for _, br := range v.Branches {
			bodies = append(bodies, encodeBody(br.Body))
		}
		bodies = append(bodies, encodeBody(v.Else))
		obj["bodies"] = bodies
	case *For:
		obj["body"] = encodeBody(v.Body)
	case *While:
		obj["body"] = encodeBody(v.Body)
	}
	return obj
}

func encodeBody(stmts []Stmt) IRArray {
	arr := IRArray{}
	for _, s := range stmts {
		if !IsAnnotation(s) {
			arr = append(arr, EncodeStmt(s))
		}
	}
	return arr
}

// EncodeHeader converts a statement without its nested bodies. Compound
// statements are described by their conditions and loop bounds only.
func EncodeHeader(s Stmt) IRObject {
	switch v := s.(type) {
	case *Assign:
		return IRObject{"k": IRString("assign"), "dst": encodeRef(v.Target), "val": EncodeExpr(v.Value)}
	case *If:
		conds := make(IRArray, len(v.Branches))
		for i, br := range v.Branches {
			conds[i] = EncodeExpr(br.Cond)
		}
		return IRObject{"k": IRString("if"), "conds": conds, "else": IRBool(len(v.Else) > 0)}
	case *InstrCall:
		return IRObject{"k": IRString("instr"), "f": IRString(strings.ToUpper(v.Func)), "dst": encodeRef(v.Target)}
	case *For:
		return IRObject{
			"k":    IRString("for"),
			"var":  encodeRef(v.Var),
			"from": EncodeExpr(v.From),
			"to":   EncodeExpr(v.To),
			"by":   EncodeExpr(v.By),
		}
	case *While:
		return IRObject{"k": IRString("while"), "cond": EncodeExpr(v.Cond)}
	case *Invoke:
		return IRObject{"k": IRString("invoke"), "callee": encodeRef(v.Callee), "args": encodeArgs(v.Args)}
	case *Comment:
		return IRObject{"k": IRString("comment"), "text": IRString(v.Text)}
	case *Disabled:
		return IRObject{"k": IRString("disabled"), "stmt": EncodeStmt(v.Stmt)}
	}
	panic("ir: unknown statement type")
}

// EncodeTag converts a tag declaration to canonical form. Only the parts
// that define identity (name, type, shape) are included.
func EncodeTag(t Tag) IRObject {
	return IRObject{
		"name": IRString(strings.ToUpper(t.Name)),
		"type": IRString(strings.ToUpper(t.Type)),
		"dim":  IRInt(t.Dim),
	}
}

// EncodeType converts a structure declaration to canonical form.
func EncodeType(td TypeDecl) IRObject {
	members := make(IRArray, len(td.Members))
	for i, m := range td.Members {
		members[i] = IRObject{
			"name": IRString(strings.ToUpper(m.Name)),
			"type": IRString(strings.ToUpper(m.Type)),
			"dim":  IRInt(m.Dim),
		}
	}
	return IRObject{"name": IRString(strings.ToUpper(td.Name)), "members": members}
}

// EncodePOU converts a function or function block signature and body.
func EncodePOU(p POU) IRObject {
	vars := make(IRArray, len(p.Vars))
	for i, v := range p.Vars {
		vars[i] = IRObject{
			"name":    IRString(strings.ToUpper(v.Name)),
			"type":    IRString(strings.ToUpper(v.Type)),
			"dim":     IRInt(v.Dim),
			"section": IRString(v.Section),
		}
	}
	return IRObject{
		"name": IRString(strings.ToUpper(p.Name)),
		"kind": IRString(p.Kind),
		"ret":  IRString(strings.ToUpper(p.ReturnType)),
		"vars": vars,
		"body": encodeBody(p.Body),
	}
}
