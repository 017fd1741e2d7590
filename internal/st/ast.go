package st

import "github.com/roach88/l5xst/internal/ir"

// File is a parsed or constructed compilation unit.
type File struct {
	Decls []Decl
}

// Decl is a top-level declaration.
type Decl interface {
	decl()
}

// TypeDecl is one structure type: TYPE Name : STRUCT ... END_STRUCT END_TYPE.
type TypeDecl struct {
	Name   string
	Fields []VarDecl
}

// POUKind is the kind of program organization unit.
type POUKind string

const (
	KindFunction      POUKind = "FUNCTION"
	KindFunctionBlock POUKind = "FUNCTION_BLOCK"
	KindProgram       POUKind = "PROGRAM"
)

// End returns the closing keyword for the kind.
func (k POUKind) End() string {
	return "END_" + string(k)
}

// POU is a FUNCTION, FUNCTION_BLOCK or PROGRAM.
type POU struct {
	Line       int
	Kind       POUKind
	Name       string
	ReturnType string
	Sections   []VarSection
	Body       []Stmt
}

// SectionKind is the keyword opening a variable section.
type SectionKind string

const (
	SectionVar    SectionKind = "VAR"
	SectionInput  SectionKind = "VAR_INPUT"
	SectionOutput SectionKind = "VAR_OUTPUT"
	SectionInOut  SectionKind = "VAR_IN_OUT"
	SectionGlobal SectionKind = "VAR_GLOBAL"
	SectionTemp   SectionKind = "VAR_TEMP"
)

// VarSection is a VAR ... END_VAR block.
type VarSection struct {
	Kind     SectionKind
	Constant bool
	Retain   bool
	Vars     []VarDecl
}

// VarDecl declares one variable. Comment is printed after the declaration
// and is never produced by the parser.
type VarDecl struct {
	Name    string
	Type    TypeRef
	Init    Expr
	Comment string
}

// TypeRef is a type name, optionally an ARRAY[Low..High] OF Name.
type TypeRef struct {
	Name      string
	Array     bool
	Low, High int
}

// Configuration binds programs to tasks.
type Configuration struct {
	Name      string
	Globals   []VarSection
	Resources []Resource
}

// Resource is a RESOURCE ... END_RESOURCE block.
type Resource struct {
	Name     string
	On       string
	Globals  []VarSection
	Tasks    []Task
	Programs []ProgramInstance
}

// Task is a TASK declaration with its parameters (INTERVAL, PRIORITY).
type Task struct {
	Name   string
	Params []Arg
}

// ProgramInstance is PROGRAM Name WITH Task : Type.
type ProgramInstance struct {
	Name    string
	Task    string
	Program string
}

// CommentDecl is a top-level comment.
type CommentDecl struct {
	Text string
}

func (*TypeDecl) decl()      {}
func (*POU) decl()           {}
func (*Configuration) decl() {}
func (*CommentDecl) decl()   {}

// Stmt is a statement.
type Stmt interface {
	stmt()
}

// Assign is Target := Value.
type Assign struct {
	Line   int
	Target Expr
	Value  Expr
}

// CallStmt invokes a function block instance or a function.
type CallStmt struct {
	Line   int
	Callee Expr
	Args   []Arg
}

// CondBody is one IF or ELSIF arm.
type CondBody struct {
	Cond Expr
	Body []Stmt
}

// If is IF ... ELSIF ... ELSE ... END_IF.
type If struct {
	Line     int
	Branches []CondBody
	Else     []Stmt
}

// For is FOR Var := From TO To BY By DO ... END_FOR. By may be nil.
type For struct {
	Line     int
	Var      Expr
	From, To Expr
	By       Expr
	Body     []Stmt
}

// While is WHILE Cond DO ... END_WHILE.
type While struct {
	Line int
	Cond Expr
	Body []Stmt
}

// Return is RETURN.
type Return struct {
	Line int
}

// Comment is a statement-level comment. The parser never produces it.
type Comment struct {
	Text string
}

func (*Assign) stmt()   {}
func (*CallStmt) stmt() {}
func (*If) stmt()       {}
func (*For) stmt()      {}
func (*While) stmt()    {}
func (*Return) stmt()   {}
func (*Comment) stmt()  {}

// Expr is an expression.
type Expr interface {
	expr()
}

// Ident is a variable or function name.
type Ident struct {
	Name string
}

// Member is X.Field. Field may be a bit number.
type Member struct {
	X     Expr
	Field string
}

// Index is X[Indices...].
type Index struct {
	X       Expr
	Indices []Expr
}

// Literal is a constant in its source spelling.
type Literal struct {
	Kind ir.LitKind
	Text string
}

// Unary is a prefix operation.
type Unary struct {
	Op ir.UnaryOp
	X  Expr
}

// Binary is an infix operation.
type Binary struct {
	Op   ir.BinaryOp
	X, Y Expr
}

// Call is a function call in expression position.
type Call struct {
	Func string
	Args []Arg
}

// Arg is a call argument. Name is empty for positional arguments; Output
// marks the "Name => var" form.
type Arg struct {
	Name   string
	Output bool
	Value  Expr
}

func (*Ident) expr()   {}
func (*Member) expr()  {}
func (*Index) expr()   {}
func (*Literal) expr() {}
func (*Unary) expr()   {}
func (*Binary) expr()  {}
func (*Call) expr()    {}
