package irbuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/l5xst/internal/config"
	"github.com/roach88/l5xst/internal/diag"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/st"
	"github.com/roach88/l5xst/internal/stemit"
	"github.com/roach88/l5xst/internal/tables"
)

func build(t *testing.T, src string) *ir.Program {
	t.Helper()
	f, err := st.Parse("unit.st", src)
	require.NoError(t, err)
	p, err := FromST(f)
	require.NoError(t, err)
	return p
}

const unit = `
TYPE Recipe :
STRUCT
    Speed : REAL;
    Steps : ARRAY[0..9] OF DINT;
END_STRUCT
END_TYPE

FUNCTION_BLOCK Valve
VAR_INPUT
    Cmd : BOOL;
END_VAR
VAR_OUTPUT
    Open : BOOL;
END_VAR
VAR
    Count : DINT := 0;
END_VAR
    Open := Cmd;
END_FUNCTION_BLOCK

PROGRAM prog0
VAR
    Main_R0_T1 : BOOL;
END_VAR
    IF Start THEN
        Motor := TRUE;
    ELSIF Stop THEN
        Motor := FALSE;
    END_IF;
    V1(Cmd := Motor);
    FOR i := 0 TO 9 BY 2 DO
        Batch.Steps[i] := 0;
    END_FOR;
    WHILE NOT Done DO
        Done := TRUE;
    END_WHILE;
END_PROGRAM

CONFIGURATION Config0
VAR_GLOBAL
    Start : BOOL;
    Offset : DINT := -5;
    Batch : Recipe;
END_VAR
    RESOURCE Res0 ON PLC
        TASK Task1(INTERVAL := T#1s, PRIORITY := 0);
        PROGRAM Inst0 WITH Task1 : prog0;
    END_RESOURCE
END_CONFIGURATION
`

// TestFromST tests the conversion of a complete unit.
func TestFromST(t *testing.T) {
	p := build(t, unit)

	assert.Equal(t, "prog0", p.Name)
	require.Len(t, p.Types, 1)
	assert.Equal(t, []ir.Member{{Name: "Speed", Type: "REAL"}, {Name: "Steps", Type: "DINT", Dim: 10}}, p.Types[0].Members)

	require.Len(t, p.POUs, 1)
	fb := p.POUs[0]
	assert.Equal(t, ir.POUFunctionBlock, fb.Kind)
	assert.Equal(t, []ir.Var{
		{Name: "Cmd", Type: "BOOL", Section: ir.VarInput},
		{Name: "Open", Type: "BOOL", Section: ir.VarOutput},
		{Name: "Count", Type: "DINT", Section: ir.VarLocal, Init: ir.Int(0)},
	}, fb.Vars)

	var names []string
	for _, tag := range p.Tags {
		names = append(names, string(tag.Scope)+":"+tag.Name)
	}
	assert.Equal(t, []string{"controller:Start", "controller:Offset", "controller:Batch", "program:Main_R0_T1"}, names)
	offset, ok := p.Tag("offset")
	require.True(t, ok)
	assert.Equal(t, &ir.Lit{Kind: ir.LitInt, Text: "-5"}, offset.Init)

	require.Len(t, p.Body, 4)
	assert.IsType(t, &ir.If{}, p.Body[0])
	assert.Len(t, p.Body[0].(*ir.If).Branches, 2)
	assert.Equal(t, &ir.Invoke{Callee: ir.Name("V1"), Args: []ir.Arg{{Name: "Cmd", Value: ir.Name("Motor")}}}, p.Body[1])
	loop := p.Body[2].(*ir.For)
	assert.Equal(t, ir.Int(2), loop.By)
	assert.Equal(t, "Batch.Steps[i]", loop.Body[0].(*ir.Assign).Target.String())
	assert.IsType(t, &ir.While{}, p.Body[3])
}

// TestAuxiliaryRoundTrip tests that emitted auxiliary declarations are
// dropped and template calls come back as InstrCalls.
func TestAuxiliaryRoundTrip(t *testing.T) {
	prog := &ir.Program{
		Name: "prog0",
		Tags: []ir.Tag{
			{Name: "Scaler", Type: "SCALE", Scope: ir.ScopeController, Kind: ir.KindBase},
			{Name: "Link", Type: "MESSAGE", Scope: ir.ScopeController, Kind: ir.KindBase},
		},
		Body: []ir.Stmt{
			&ir.InstrCall{Func: "SCL", Target: ir.Name("Scaler")},
			&ir.If{Branches: []ir.Branch{{Cond: ir.Name("Go"), Body: []ir.Stmt{
				&ir.InstrCall{Func: "MSG", Target: ir.Name("Link")},
			}}}},
		},
	}
	p := build(t, stemit.Emit(prog, config.Default()))

	assert.Empty(t, p.Types, "auxiliary structures are not user types")
	assert.Empty(t, p.POUs, "auxiliary functions are not user functions")
	assert.Equal(t, ir.StmtHash(prog.Body[0]), ir.StmtHash(p.Body[0]))
	assert.Equal(t, ir.StmtHash(prog.Body[1]), ir.StmtHash(p.Body[1]))
}

// TestInstrCallRecognition tests which assignments become InstrCalls.
func TestInstrCallRecognition(t *testing.T) {
	tests := []struct {
		stmt     string
		instr    bool
		function string
	}{
		{"Scaler := SCL(Scaler);", true, "SCL"},
		{"a.b := setd(a.b);", true, "SETD"},
		{"Scaler := SCL(Other);", false, ""},
		{"Scaler := SCL(In := Scaler);", false, ""},
		{"X := ABS(X);", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.stmt, func(t *testing.T) {
			stmts, err := st.ParseStmts("", tt.stmt)
			require.NoError(t, err)
			s, err := Stmt(stmts[0])
			require.NoError(t, err)
			ic, ok := s.(*ir.InstrCall)
			assert.Equal(t, tt.instr, ok)
			if ok {
				assert.Equal(t, tt.function, ic.Func)
				_, known := tables.LookupAux(ic.Func)
				assert.True(t, known)
			}
		})
	}
}

// TestFromSTErrors tests that invalid units are MALFORMED_ST_SYNTAX.
func TestFromSTErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no program", "TYPE A :\nSTRUCT\n    x : BOOL;\nEND_STRUCT\nEND_TYPE\n"},
		{"two programs", "PROGRAM a\nEND_PROGRAM\nPROGRAM b\nEND_PROGRAM\n"},
		{"return", "PROGRAM a\n    RETURN;\nEND_PROGRAM\n"},
		{"output binding", "PROGRAM a\n    T1(IN := x, Q => y);\nEND_PROGRAM\n"},
		{"non-literal initial value", "PROGRAM a\nVAR\n    x : DINT := y;\nEND_VAR\nEND_PROGRAM\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := st.Parse("bad.st", tt.src)
			require.NoError(t, err)
			_, err = FromST(f)
			require.Error(t, err)
			assert.Equal(t, diag.CodeMalformedST, diag.CodeOf(err))
			assert.True(t, diag.IsFatal(err))
		})
	}
}

// TestExpr tests expression conversion details.
func TestExpr(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"-5", "-5"},
		{"-x", "-x"},
		{"m[1, 2].x", "m[1][2].x"},
		{"Word.3", "Word.3"},
		{"NOT (a AND b)", "NOT (a AND b)"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			e, err := st.ParseExpr(tt.src)
			require.NoError(t, err)
			x, err := Expr(e)
			require.NoError(t, err)
			if r, ok := x.(*ir.Ref); ok {
				assert.Equal(t, tt.want, r.String())
				return
			}
			assert.Equal(t, tt.want, st.FormatExpr(stemit.Expr(x)))
		})
	}
}
