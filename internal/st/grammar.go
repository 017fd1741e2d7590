package st

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// stLexer tokenizes Structured Text. Keyword must precede Ident and Time
// must precede both so that T#5s is one token.
var stLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `\(\*(?s:.*?)\*\)|//[^\n]*`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Time", Pattern: `(?i)\b(?:T|TIME)#[-0-9a-z_.]+`},
	{Name: "Keyword", Pattern: `(?i)\b(?:` +
		`TYPE|END_TYPE|STRUCT|END_STRUCT|` +
		`FUNCTION_BLOCK|END_FUNCTION_BLOCK|FUNCTION|END_FUNCTION|PROGRAM|END_PROGRAM|` +
		`VAR_INPUT|VAR_OUTPUT|VAR_IN_OUT|VAR_GLOBAL|VAR_TEMP|VAR|END_VAR|CONSTANT|RETAIN|ARRAY|OF|` +
		`CONFIGURATION|END_CONFIGURATION|RESOURCE|END_RESOURCE|ON|TASK|WITH|` +
		`IF|THEN|ELSIF|ELSE|END_IF|FOR|TO|BY|DO|END_FOR|WHILE|END_WHILE|RETURN|` +
		`AND|OR|XOR|NOT|MOD|TRUE|FALSE` +
		`)\b`},
	{Name: "Number", Pattern: `\d+#[0-9A-Fa-f_]+|\d[\d_]*\.\d[\d_]*(?:[eE][-+]?\d+)?|\d[\d_]*`},
	{Name: "String", Pattern: `'(?:[^'$]|\$.)*'`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Operator", Pattern: `:=|=>|<>|<=|>=|\*\*|\.\.|[-+*/=<>&(),;:.\[\]]`},
})

func parserOptions() []participle.Option {
	return []participle.Option{
		participle.Lexer(stLexer),
		participle.Elide("Comment", "Whitespace"),
		participle.CaseInsensitive("Keyword"),
		participle.UseLookahead(4),
	}
}

var (
	fileParser = participle.MustBuild[gFile](parserOptions()...)
	exprParser = participle.MustBuild[gExpr](parserOptions()...)
	bodyParser = participle.MustBuild[gBody](parserOptions()...)
)

// gBody is a bare statement list, the text of an ST routine.
type gBody struct {
	Stmts []*gStmt `@@*`
}

type gFile struct {
	Decls []*gDecl `@@*`
}

type gDecl struct {
	Pos lexer.Position

	Types  []*gTypeDef `  "TYPE" @@+ "END_TYPE" ";"?`
	POU    *gPOU       `| @@`
	Config *gConfig    `| @@`
}

type gTypeDef struct {
	Name   string      `@Ident ":" "STRUCT"`
	Fields []*gVarDecl `@@* "END_STRUCT" ";"?`
}

type gPOU struct {
	Pos lexer.Position

	Kind     string         `@("FUNCTION_BLOCK" | "FUNCTION" | "PROGRAM")`
	Name     string         `@Ident`
	Return   string         `(":" @Ident)?`
	Sections []*gVarSection `@@*`
	Body     []*gStmt       `@@*`
	End      string         `@("END_FUNCTION_BLOCK" | "END_FUNCTION" | "END_PROGRAM") ";"?`
}

type gVarSection struct {
	Kind     string      `@("VAR_INPUT" | "VAR_OUTPUT" | "VAR_IN_OUT" | "VAR_GLOBAL" | "VAR_TEMP" | "VAR")`
	Constant bool        `@"CONSTANT"?`
	Retain   bool        `@"RETAIN"?`
	Vars     []*gVarDecl `@@* "END_VAR" ";"?`
}

type gVarDecl struct {
	Pos lexer.Position

	Names []string  `@Ident ("," @Ident)* ":"`
	Type  *gTypeRef `@@`
	Init  *gExpr    `(":=" @@)? ";"`
}

type gTypeRef struct {
	Range *gRange `("ARRAY" "[" @@ "]" "OF")?`
	Name  string  `@Ident`
}

type gRange struct {
	Low  string `@"-"? @Number ".."`
	High string `@"-"? @Number`
}

type gConfig struct {
	Name      string         `"CONFIGURATION" @Ident`
	Globals   []*gVarSection `@@*`
	Resources []*gResource   `@@* "END_CONFIGURATION" ";"?`
}

type gResource struct {
	Name     string         `"RESOURCE" @Ident`
	On       string         `"ON" @Ident`
	Globals  []*gVarSection `@@*`
	Tasks    []*gTask       `@@*`
	Programs []*gProgInst   `@@* "END_RESOURCE" ";"?`
}

type gTask struct {
	Name   string  `"TASK" @Ident`
	Params []*gArg `"(" (@@ ("," @@)*)? ")" ";"`
}

type gProgInst struct {
	Name    string `"PROGRAM" @Ident`
	Task    string `("WITH" @Ident)? ":"`
	Program string `@Ident ("(" ")")? ";"`
}

type gStmt struct {
	Pos lexer.Position

	If     *gIf     `  @@`
	For    *gFor    `| @@`
	While  *gWhile  `| @@`
	Return bool     `| @"RETURN" ";"`
	Simple *gSimple `| @@ ";"`
	Empty  bool     `| @";"`
}

type gSimple struct {
	Target *gDesignator `@@`
	Tail   *gTail       `@@`
}

type gTail struct {
	Value *gExpr     `  ":=" @@`
	Call  *gCallArgs `| @@`
}

type gIf struct {
	Cond   *gExpr   `"IF" @@ "THEN"`
	Then   []*gStmt `@@*`
	Elsifs []*gElsif `@@*`
	Else   []*gStmt `("ELSE" @@*)? "END_IF" ";"?`
}

type gElsif struct {
	Cond *gExpr   `"ELSIF" @@ "THEN"`
	Body []*gStmt `@@*`
}

type gFor struct {
	Var  *gDesignator `"FOR" @@ ":="`
	From *gExpr       `@@ "TO"`
	To   *gExpr       `@@`
	By   *gExpr       `("BY" @@)? "DO"`
	Body []*gStmt     `@@* "END_FOR" ";"?`
}

type gWhile struct {
	Cond *gExpr   `"WHILE" @@ "DO"`
	Body []*gStmt `@@* "END_WHILE" ";"?`
}

// Expression levels, loosest first.

type gExpr struct {
	Left *gXor   `@@`
	Rest []*gXor `("OR" @@)*`
}

type gXor struct {
	Left *gAnd   `@@`
	Rest []*gAnd `("XOR" @@)*`
}

type gAnd struct {
	Left *gCmp   `@@`
	Rest []*gCmp `(("AND" | "&") @@)*`
}

type gCmp struct {
	Left *gAdd    `@@`
	Rest []*gCmpOp `@@*`
}

type gCmpOp struct {
	Op    string `@("=" | "<>" | "<=" | ">=" | "<" | ">")`
	Right *gAdd  `@@`
}

type gAdd struct {
	Left *gMul    `@@`
	Rest []*gAddOp `@@*`
}

type gAddOp struct {
	Op    string `@("+" | "-")`
	Right *gMul  `@@`
}

type gMul struct {
	Left *gUnary   `@@`
	Rest []*gMulOp `@@*`
}

type gMulOp struct {
	Op    string  `@("*" | "/" | "MOD")`
	Right *gUnary `@@`
}

type gUnary struct {
	Ops []string `@("NOT" | "-")*`
	X   *gPow    `@@`
}

type gPow struct {
	Left *gPrimary   `@@`
	Rest []*gPrimary `("**" @@)*`
}

type gPrimary struct {
	Time    *string   `  @Time`
	Number  *string   `| @Number`
	String  *string   `| @String`
	Bool    *string   `| @("TRUE" | "FALSE")`
	Paren   *gExpr    `| "(" @@ ")"`
	Operand *gOperand `| @@`
}

type gOperand struct {
	Ref  *gDesignator `@@`
	Call *gCallArgs   `@@?`
}

type gDesignator struct {
	Name string       `@Ident`
	Sels []*gSelector `@@*`
}

type gSelector struct {
	Field string   `  "." @(Ident | Number | Keyword)`
	Index []*gExpr `| "[" @@ ("," @@)* "]"`
}

type gCallArgs struct {
	Args []*gArg `"(" (@@ ("," @@)*)? ")"`
}

type gArg struct {
	Name  *gArgName `@@?`
	Value *gExpr    `@@`
}

type gArgName struct {
	Name   string `@Ident`
	Output bool   `(":=" | @"=>")`
}
