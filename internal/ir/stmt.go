package ir

// Stmt is a sealed interface for IR statements.
//
// The executable variants are Assign, If, InstrCall, For, While and Invoke.
// Comment and Disabled are annotations.
type Stmt interface {
	stmt()
}

// Assign stores Value into Target.
type Assign struct {
	Target *Ref
	Value  Expr
}

// Branch is one guarded arm of an If.
type Branch struct {
	Cond Expr
	Body []Stmt
}

// If is a conditional with optional ELSIF arms and ELSE body.
type If struct {
	Branches []Branch
	Else     []Stmt
}

// InstrCall executes a vendor instruction through one of the fixed auxiliary
// templates: Target := Func(Target).
type InstrCall struct {
	Func   string
	Target *Ref
}

// For is a counted loop. By is nil when the step is implicit.
type For struct {
	Var      *Ref
	From, To Expr
	By       Expr
	Body     []Stmt
}

// While loops while Cond holds.
type While struct {
	Cond Expr
	Body []Stmt
}

// Invoke calls a function block instance (or a function for its side
// effects) with named or positional arguments.
type Invoke struct {
	Callee *Ref
	Args   []Arg
}

// Comment is a free-text annotation, used for placeholders and section
// headers.
type Comment struct {
	Text string
}

// Disabled wraps a statement that is preserved but not executed, such as one
// touching external I/O modules.
type Disabled struct {
	Stmt   Stmt
	Reason string
}

func (*Assign) stmt()    {}
func (*If) stmt()        {}
func (*InstrCall) stmt() {}
func (*For) stmt()       {}
func (*While) stmt()     {}
func (*Invoke) stmt()    {}
func (*Comment) stmt()   {}
func (*Disabled) stmt()  {}

// IsAnnotation reports whether s is a non-executable annotation.
func IsAnnotation(s Stmt) bool {
	switch s.(type) {
	case *Comment, *Disabled:
		return true
	}
	return false
}

// Guard wraps body in IF cond THEN ... END_IF, dropping the guard when cond
// is TRUE and the statements entirely when cond is FALSE.
func Guard(cond Expr, body ...Stmt) []Stmt {
	switch {
	case len(body) == 0 || IsFalse(cond):
		return nil
	case cond == nil || IsTrue(cond):
		return body
	}
	return []Stmt{&If{Branches: []Branch{{Cond: cond, Body: body}}}}
}
