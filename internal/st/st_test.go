package st

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/tables"
)

const sampleUnit = `
TYPE Recipe :
STRUCT
    Speed : REAL;
    Steps : ARRAY[0..9] OF DINT;
END_STRUCT;
END_TYPE

function_block Pump (* lower-case keywords are accepted *)
VAR_INPUT
    Start, Stop : BOOL;
END_VAR
VAR_OUTPUT
    Running : BOOL := FALSE;
END_VAR
VAR
    t1 : TON;
END_VAR
    Running := (Start OR Running) AND NOT Stop;
    t1(IN := Running, PT := t#5s, Q => Done);
END_FUNCTION_BLOCK

PROGRAM Main
VAR
    i : DINT;
    total : DINT := -1;
END_VAR
    FOR i := 0 TO 9 BY 2 DO
        total := total + Recipe1.Steps[i];
    END_FOR;
    WHILE total > 100 DO
        total := total / 2;
    END_WHILE;
    IF total = 0 THEN
        RETURN;
    ELSIF total < 0 THEN
        total := 0;
    ELSE
        total := total MOD 7;
    END_IF;
END_PROGRAM

CONFIGURATION Plant
VAR_GLOBAL
    Recipe1 : Recipe;
END_VAR
    RESOURCE Cpu ON PLC
        TASK MainTask(INTERVAL := T#10ms, PRIORITY := 1);
        PROGRAM MainInst WITH MainTask : Main;
    END_RESOURCE
END_CONFIGURATION
`

// TestParseUnit tests parsing of every declaration kind.
func TestParseUnit(t *testing.T) {
	f, err := Parse("sample.st", sampleUnit)
	require.NoError(t, err)
	require.Len(t, f.Decls, 4)

	typ, ok := f.Decls[0].(*TypeDecl)
	require.True(t, ok)
	assert.Equal(t, "Recipe", typ.Name)
	require.Len(t, typ.Fields, 2)
	assert.Equal(t, TypeRef{Name: "DINT", Array: true, Low: 0, High: 9}, typ.Fields[1].Type)

	fb, ok := f.Decls[1].(*POU)
	require.True(t, ok)
	assert.Equal(t, KindFunctionBlock, fb.Kind)
	require.Len(t, fb.Sections, 3)
	assert.Equal(t, SectionInput, fb.Sections[0].Kind)
	require.Len(t, fb.Sections[0].Vars, 2, "multi-name declarations expand")
	assert.Equal(t, "Stop", fb.Sections[0].Vars[1].Name)
	assert.Equal(t, &Literal{Kind: ir.LitBool, Text: "FALSE"}, fb.Sections[1].Vars[0].Init)

	require.Len(t, fb.Body, 2)
	call, ok := fb.Body[1].(*CallStmt)
	require.True(t, ok)
	assert.Equal(t, &Ident{Name: "t1"}, call.Callee)
	require.Len(t, call.Args, 3)
	assert.Equal(t, &Literal{Kind: ir.LitTime, Text: "T#5s"}, call.Args[1].Value)
	assert.True(t, call.Args[2].Output)

	prog, ok := f.Decls[2].(*POU)
	require.True(t, ok)
	assert.Equal(t, KindProgram, prog.Kind)
	require.Len(t, prog.Body, 3)
	loop, ok := prog.Body[0].(*For)
	require.True(t, ok)
	assert.Equal(t, &Literal{Kind: ir.LitInt, Text: "2"}, loop.By)
	cond, ok := prog.Body[2].(*If)
	require.True(t, ok)
	assert.Len(t, cond.Branches, 2)
	assert.Len(t, cond.Else, 1)
	assert.IsType(t, &Return{}, cond.Branches[0].Body[0])

	cfg, ok := f.Decls[3].(*Configuration)
	require.True(t, ok)
	require.Len(t, cfg.Resources, 1)
	res := cfg.Resources[0]
	assert.Equal(t, "PLC", res.On)
	require.Len(t, res.Tasks, 1)
	assert.Equal(t, "INTERVAL", res.Tasks[0].Params[0].Name)
	assert.Equal(t, []ProgramInstance{{Name: "MainInst", Task: "MainTask", Program: "Main"}}, res.Programs)
}

// TestParseAuxTemplates tests that every embedded template parses.
func TestParseAuxTemplates(t *testing.T) {
	for _, a := range tables.Auxes() {
		t.Run(a.String(), func(t *testing.T) {
			f, err := Parse(a.String()+".st", a.Source())
			require.NoError(t, err)
			require.Len(t, f.Decls, 1)
			fn, ok := f.Decls[0].(*POU)
			require.True(t, ok)
			assert.Equal(t, KindFunction, fn.Kind)
			assert.Equal(t, a.Info().Func, fn.Name)
			assert.Equal(t, a.Info().Struct, fn.ReturnType)
			assert.NotEmpty(t, fn.Body)
		})
	}
}

// TestParseExprPrecedence tests the operator binding order.
func TestParseExprPrecedence(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"a OR b AND c", "a OR b AND c"},
		{"(a OR b) AND c", "(a OR b) AND c"},
		{"a & b", "a AND b"},
		{"NOT a AND b", "NOT a AND b"},
		{"NOT (a AND b)", "NOT (a AND b)"},
		{"a - (b - c)", "a - (b - c)"},
		{"(a - b) - c", "a - b - c"},
		{"a + b * c", "a + b * c"},
		{"(a + b) * c", "(a + b) * c"},
		{"-a ** 2", "-a ** 2"},
		{"(-a) ** 2", "(-a) ** 2"},
		{"a ** (-2)", "a ** (-2)"},
		{"x.y[i + 1, 2].z", "x.y[i + 1, 2].z"},
		{"a mod b", "a MOD b"},
		{"xor_flag XOR TRUE", "xor_flag XOR TRUE"},
		{"LIMIT(0, x, 10) > 16#FF", "LIMIT(0, x, 10) > 16#FF"},
		{"true", "TRUE"},
		{"TIME#1.5s", "T#1.5s"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			e, err := ParseExpr(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, FormatExpr(e))
		})
	}
}

// TestParseExprTree tests the shape of parsed expressions.
func TestParseExprTree(t *testing.T) {
	e, err := ParseExpr("a + b * 2.5")
	require.NoError(t, err)
	assert.Equal(t, &Binary{
		Op: ir.OpAdd,
		X:  &Ident{Name: "a"},
		Y:  &Binary{Op: ir.OpMul, X: &Ident{Name: "b"}, Y: &Literal{Kind: ir.LitReal, Text: "2.5"}},
	}, e)

	e, err = ParseExpr("Tank.On")
	require.NoError(t, err)
	assert.Equal(t, &Member{X: &Ident{Name: "Tank"}, Field: "On"}, e, "keywords are valid member names")

	e, err = ParseExpr("Word.5")
	require.NoError(t, err)
	assert.Equal(t, &Member{X: &Ident{Name: "Word"}, Field: "5"}, e)
}

// TestFormatLiteralOperands tests parenthesization around signed literals.
func TestFormatLiteralOperands(t *testing.T) {
	neg := &Literal{Kind: ir.LitInt, Text: "-3"}
	a := &Ident{Name: "a"}

	assert.Equal(t, "a - -3", FormatExpr(&Binary{Op: ir.OpSub, X: a, Y: neg}))
	assert.Equal(t, "a ** (-3)", FormatExpr(&Binary{Op: ir.OpPow, X: a, Y: neg}))
	assert.Equal(t, "(-3) ** a", FormatExpr(&Binary{Op: ir.OpPow, X: neg, Y: a}))
}

// TestFormatRoundTrip tests that printing and reparsing is stable.
func TestFormatRoundTrip(t *testing.T) {
	sources := map[string]string{"sample": sampleUnit}
	for _, a := range tables.Auxes() {
		sources[a.String()] = a.Source()
	}
	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			first, err := Parse(name, src)
			require.NoError(t, err)
			text := Format(first)

			second, err := Parse(name, text)
			require.NoError(t, err, text)
			assert.Equal(t, text, Format(second))
			assert.Equal(t, stripLines(first), stripLines(second))
		})
	}
}

// stripLines zeroes position fields so trees from different texts compare.
func stripLines(f *File) *File {
	for _, d := range f.Decls {
		if p, ok := d.(*POU); ok {
			p.Line = 0
			stripStmts(p.Body)
		}
	}
	return f
}

func stripStmts(stmts []Stmt) {
	for _, s := range stmts {
		switch v := s.(type) {
		case *Assign:
			v.Line = 0
		case *CallStmt:
			v.Line = 0
		case *If:
			v.Line = 0
			for _, br := range v.Branches {
				stripStmts(br.Body)
			}
			stripStmts(v.Else)
		case *For:
			v.Line = 0
			stripStmts(v.Body)
		case *While:
			v.Line = 0
			stripStmts(v.Body)
		case *Return:
			v.Line = 0
		}
	}
}

// TestFormatStmt tests statement rendering and comment sanitizing.
func TestFormatStmt(t *testing.T) {
	s := &If{
		Branches: []CondBody{{
			Cond: &Ident{Name: "Start"},
			Body: []Stmt{
				&Comment{Text: "latch (*seal*)"},
				&Assign{Target: &Ident{Name: "Motor"}, Value: &Literal{Kind: ir.LitBool, Text: "TRUE"}},
			},
		}},
	}
	want := "IF Start THEN\n" +
		"    (* latch (*seal* ) *)\n" +
		"    Motor := TRUE;\n" +
		"END_IF;"
	assert.Equal(t, want, FormatStmt(s))
}

// TestParseErrors tests that malformed text reports its position.
func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int // 0 when only a position is required
	}{
		{"missing semicolon", "PROGRAM P\n    a := 1\n    b := 2;\nEND_PROGRAM\n", 0},
		{"unterminated if", "PROGRAM P\n    IF a THEN\n        b := 1;\nEND_PROGRAM\n", 0},
		{"mismatched end", "FUNCTION_BLOCK F\nEND_PROGRAM\n", 1},
		{"bad range", "PROGRAM P\nVAR\n    a : ARRAY[5..1] OF INT;\nEND_VAR\nEND_PROGRAM\n", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.st", tt.src)
			require.Error(t, err)
			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			if tt.line == 0 {
				assert.Positive(t, se.Line)
				return
			}
			assert.Equal(t, tt.line, se.Line)
		})
	}
}
