package ir

// WalkStmts calls fn for every statement in stmts in pre-order, descending
// into nested bodies and disabled statements. When fn returns false the
// children of that statement are skipped.
func WalkStmts(stmts []Stmt, fn func(Stmt) bool) {
	for _, s := range stmts {
		walkStmt(s, fn)
	}
}

func walkStmt(s Stmt, fn func(Stmt) bool) {
	if !fn(s) {
		return
	}
	switch v := s.(type) {
	case *If:
		for _, br := range v.Branches {
			WalkStmts(br.Body, fn)
		}
		WalkStmts(v.Else, fn)
	case *For:
		WalkStmts(v.Body, fn)
	case *While:
		WalkStmts(v.Body, fn)
	case *Disabled:
		walkStmt(v.Stmt, fn)
	}
}

// WalkExprs calls fn for every expression reachable from s itself (not from
// nested statement bodies), including reference targets.
func WalkExprs(s Stmt, fn func(Expr)) {
	switch v := s.(type) {
	case *Assign:
		walkExpr(v.Target, fn)
		walkExpr(v.Value, fn)
	case *If:
		for _, br := range v.Branches {
			walkExpr(br.Cond, fn)
		}
	case *InstrCall:
		walkExpr(v.Target, fn)
	case *For:
		walkExpr(v.Var, fn)
		walkExpr(v.From, fn)
		walkExpr(v.To, fn)
		walkExpr(v.By, fn)
	case *While:
		walkExpr(v.Cond, fn)
	case *Invoke:
		walkExpr(v.Callee, fn)
		for _, a := range v.Args {
			walkExpr(a.Value, fn)
		}
	}
}

func walkExpr(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch v := e.(type) {
	case *Ref:
		for _, sel := range v.Path {
			walkExpr(sel.Index, fn)
		}
	case *Unary:
		walkExpr(v.X, fn)
	case *Binary:
		walkExpr(v.X, fn)
		walkExpr(v.Y, fn)
	case *Call:
		for _, a := range v.Args {
			walkExpr(a.Value, fn)
		}
	}
}

// ExprRoots returns the root tag names read by e, in first-seen order.
func ExprRoots(e Expr) []string {
	var roots []string
	seen := make(map[string]bool)
	walkExpr(e, func(x Expr) {
		if r, ok := x.(*Ref); ok && !seen[r.Name] {
			seen[r.Name] = true
			roots = append(roots, r.Name)
		}
	})
	return roots
}

// StmtRoots returns every root tag name referenced anywhere in s, including
// nested bodies.
func StmtRoots(s Stmt) []string {
	var roots []string
	seen := make(map[string]bool)
	WalkStmts([]Stmt{s}, func(n Stmt) bool {
		WalkExprs(n, func(x Expr) {
			if r, ok := x.(*Ref); ok && !seen[r.Name] {
				seen[r.Name] = true
				roots = append(roots, r.Name)
			}
		})
		return true
	})
	return roots
}

// LiveRoots returns every root tag name referenced by stmts outside
// disabled statements, in first-seen order.
func LiveRoots(stmts []Stmt) []string {
	var roots []string
	seen := make(map[string]bool)
	WalkStmts(stmts, func(n Stmt) bool {
		if _, ok := n.(*Disabled); ok {
			return false
		}
		WalkExprs(n, func(x Expr) {
			if r, ok := x.(*Ref); ok && !seen[r.Name] {
				seen[r.Name] = true
				roots = append(roots, r.Name)
			}
		})
		return true
	})
	return roots
}

// Written returns the root tag names a statement writes, including nested
// bodies. Function-block invocations count as writes to their instance.
func Written(s Stmt) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(r *Ref) {
		if r != nil && !seen[r.Name] {
			seen[r.Name] = true
			out = append(out, r.Name)
		}
	}
	WalkStmts([]Stmt{s}, func(n Stmt) bool {
		switch v := n.(type) {
		case *Assign:
			add(v.Target)
		case *InstrCall:
			add(v.Target)
		case *Invoke:
			add(v.Callee)
		case *For:
			add(v.Var)
		}
		return true
	})
	return out
}

// Renamer maps identifiers. It must be total; returning the input unchanged
// keeps the name.
type Renamer interface {
	Tag(name string) string
	Field(name string) string
	Func(name string) string
}

// RenameStmts returns a deep copy of stmts with every identifier passed
// through rn.
func RenameStmts(stmts []Stmt, rn Renamer) []Stmt {
	if stmts == nil {
		return nil
	}
	out := make([]Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = RenameStmt(s, rn)
	}
	return out
}

// RenameStmt returns a deep copy of s with identifiers renamed.
func RenameStmt(s Stmt, rn Renamer) Stmt {
	switch v := s.(type) {
	case *Assign:
		return &Assign{Target: renameRef(v.Target, rn), Value: RenameExpr(v.Value, rn)}
	case *If:
		n := &If{Else: RenameStmts(v.Else, rn)}
		for _, br := range v.Branches {
			n.Branches = append(n.Branches, Branch{Cond: RenameExpr(br.Cond, rn), Body: RenameStmts(br.Body, rn)})
		}
		return n
	case *InstrCall:
		return &InstrCall{Func: v.Func, Target: renameRef(v.Target, rn)}
	case *For:
		return &For{
			Var:  renameRef(v.Var, rn),
			From: RenameExpr(v.From, rn),
			To:   RenameExpr(v.To, rn),
			By:   RenameExpr(v.By, rn),
			Body: RenameStmts(v.Body, rn),
		}
	case *While:
		return &While{Cond: RenameExpr(v.Cond, rn), Body: RenameStmts(v.Body, rn)}
	case *Invoke:
		return &Invoke{Callee: renameRef(v.Callee, rn), Args: renameArgs(v.Args, rn)}
	case *Comment:
		return &Comment{Text: v.Text}
	case *Disabled:
		return &Disabled{Stmt: RenameStmt(v.Stmt, rn), Reason: v.Reason}
	}
	panic("ir: unknown statement type")
}

// RenameExpr returns a deep copy of e with identifiers renamed.
func RenameExpr(e Expr, rn Renamer) Expr {
	switch v := e.(type) {
	case nil:
		return nil
	case *Ref:
		return renameRef(v, rn)
	case *Lit:
		return &Lit{Kind: v.Kind, Text: v.Text}
	case *Unary:
		return &Unary{Op: v.Op, X: RenameExpr(v.X, rn)}
	case *Binary:
		return &Binary{Op: v.Op, X: RenameExpr(v.X, rn), Y: RenameExpr(v.Y, rn)}
	case *Call:
		return &Call{Func: rn.Func(v.Func), Args: renameArgs(v.Args, rn)}
	}
	panic("ir: unknown expression type")
}

func renameRef(r *Ref, rn Renamer) *Ref {
	if r == nil {
		return nil
	}
	out := &Ref{Name: rn.Tag(r.Name)}
	for _, sel := range r.Path {
		if sel.Index != nil {
			out.Path = append(out.Path, Selector{Index: RenameExpr(sel.Index, rn)})
		} else {
			out.Path = append(out.Path, Selector{Field: rn.Field(sel.Field)})
		}
	}
	return out
}

func renameArgs(args []Arg, rn Renamer) []Arg {
	if args == nil {
		return nil
	}
	out := make([]Arg, len(args))
	for i, a := range args {
		name := a.Name
		if name != "" {
			name = rn.Field(name)
		}
		out[i] = Arg{Name: name, Value: RenameExpr(a.Value, rn)}
	}
	return out
}

// identity is the Renamer that keeps every name.
type identity struct{}

func (identity) Tag(n string) string   { return n }
func (identity) Field(n string) string { return n }
func (identity) Func(n string) string  { return n }

// CloneStmts returns a deep copy of stmts.
func CloneStmts(stmts []Stmt) []Stmt {
	return RenameStmts(stmts, identity{})
}

// CloneExpr returns a deep copy of e.
func CloneExpr(e Expr) Expr {
	return RenameExpr(e, identity{})
}

// RefFunc replaces a reference. write is true for assignment targets,
// invoked instances and loop variables; the result must then be a *Ref.
type RefFunc func(r *Ref, write bool) Expr

// MapRefs returns a deep copy of stmts with every reference passed through
// fn. Index expressions inside a reference are mapped before the reference
// itself.
func MapRefs(stmts []Stmt, fn RefFunc) []Stmt {
	if stmts == nil {
		return nil
	}
	out := make([]Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = mapStmt(s, fn)
	}
	return out
}

func mapStmt(s Stmt, fn RefFunc) Stmt {
	switch v := s.(type) {
	case *Assign:
		return &Assign{Target: mapTarget(v.Target, fn), Value: MapExpr(v.Value, fn)}
	case *If:
		n := &If{Else: MapRefs(v.Else, fn)}
		for _, br := range v.Branches {
			n.Branches = append(n.Branches, Branch{Cond: MapExpr(br.Cond, fn), Body: MapRefs(br.Body, fn)})
		}
		return n
	case *InstrCall:
		return &InstrCall{Func: v.Func, Target: mapTarget(v.Target, fn)}
	case *For:
		return &For{
			Var:  mapTarget(v.Var, fn),
			From: MapExpr(v.From, fn),
			To:   MapExpr(v.To, fn),
			By:   MapExpr(v.By, fn),
			Body: MapRefs(v.Body, fn),
		}
	case *While:
		return &While{Cond: MapExpr(v.Cond, fn), Body: MapRefs(v.Body, fn)}
	case *Invoke:
		return &Invoke{Callee: mapTarget(v.Callee, fn), Args: mapArgs(v.Args, fn)}
	case *Comment:
		return &Comment{Text: v.Text}
	case *Disabled:
		return &Disabled{Stmt: mapStmt(v.Stmt, fn), Reason: v.Reason}
	}
	panic("ir: unknown statement type")
}

// MapExpr returns a deep copy of e with every reference passed through fn
// as a read.
func MapExpr(e Expr, fn RefFunc) Expr {
	switch v := e.(type) {
	case nil:
		return nil
	case *Ref:
		return fn(mapPath(v, fn), false)
	case *Lit:
		return &Lit{Kind: v.Kind, Text: v.Text}
	case *Unary:
		return &Unary{Op: v.Op, X: MapExpr(v.X, fn)}
	case *Binary:
		return &Binary{Op: v.Op, X: MapExpr(v.X, fn), Y: MapExpr(v.Y, fn)}
	case *Call:
		return &Call{Func: v.Func, Args: mapArgs(v.Args, fn)}
	}
	panic("ir: unknown expression type")
}

func mapTarget(r *Ref, fn RefFunc) *Ref {
	if r == nil {
		return nil
	}
	out, ok := fn(mapPath(r, fn), true).(*Ref)
	if !ok {
		panic("ir: written reference mapped to a non-reference")
	}
	return out
}

func mapPath(r *Ref, fn RefFunc) *Ref {
	out := &Ref{Name: r.Name}
	for _, sel := range r.Path {
		if sel.Index != nil {
			out.Path = append(out.Path, Selector{Index: MapExpr(sel.Index, fn)})
		} else {
			out.Path = append(out.Path, Selector{Field: sel.Field})
		}
	}
	return out
}

func mapArgs(args []Arg, fn RefFunc) []Arg {
	if args == nil {
		return nil
	}
	out := make([]Arg, len(args))
	for i, a := range args {
		out[i] = Arg{Name: a.Name, Value: MapExpr(a.Value, fn)}
	}
	return out
}
