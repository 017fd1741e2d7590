package stemit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/l5xst/internal/config"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/st"
)

func motorProgram() *ir.Program {
	return &ir.Program{
		Name: "prog0",
		Tags: []ir.Tag{
			{Name: "Start", Type: "BOOL", Scope: ir.ScopeController, Kind: ir.KindBase, Note: "start button"},
			{Name: "Motor", Type: "BOOL", Scope: ir.ScopeController, Kind: ir.KindBase},
			{Name: "Speed", Type: "REAL", Dim: 4, Scope: ir.ScopeController, Kind: ir.KindBase,
				Init: &ir.Lit{Kind: ir.LitReal, Text: "0.0"}},
			{Name: "Scaler", Type: "SCALE", Scope: ir.ScopeController, Kind: ir.KindBase},
			{Name: "Old", Type: "BOOL", Scope: ir.ScopeController, Kind: ir.KindAlias, Alias: "Motor"},
			{Name: "Main_R0_T1", Type: "BOOL", Scope: ir.ScopeProgram, Kind: ir.KindBase},
		},
		Body: []ir.Stmt{
			&ir.Comment{Text: "start logic"},
			&ir.Assign{Target: ir.Name("Motor"), Value: ir.Or(ir.Name("Start"), ir.Name("Motor"))},
			&ir.If{Branches: []ir.Branch{{
				Cond: ir.Name("Motor"),
				Body: []ir.Stmt{&ir.InstrCall{Func: "SCL", Target: ir.Name("Scaler")}},
			}}},
			&ir.Assign{
				Target: &ir.Ref{Name: "Speed", Path: []ir.Selector{{Index: ir.Int(1)}}},
				Value:  ir.Name("Scaler").Dot("Out"),
			},
			&ir.Disabled{
				Stmt:   &ir.Assign{Target: ir.Name("Local:1:O").Dot("Data"), Value: ir.Name("Motor")},
				Reason: "module reference",
			},
		},
	}
}

// TestFromIR tests the declaration layout of an emitted unit.
func TestFromIR(t *testing.T) {
	f := FromIR(motorProgram(), config.Default())

	var kinds []string
	for _, d := range f.Decls {
		switch v := d.(type) {
		case *st.TypeDecl:
			kinds = append(kinds, "TYPE "+v.Name)
		case *st.POU:
			kinds = append(kinds, string(v.Kind)+" "+v.Name)
		case *st.Configuration:
			kinds = append(kinds, "CONFIGURATION "+v.Name)
		}
	}
	assert.Equal(t, []string{
		"TYPE SCALE",
		"FUNCTION SCL",
		"PROGRAM prog0",
		"CONFIGURATION Config0",
	}, kinds, "only the auxiliary declarations in use are prepended")

	main := f.Decls[2].(*st.POU)
	require.Len(t, main.Sections, 1)
	require.Len(t, main.Sections[0].Vars, 1)
	assert.Equal(t, "Main_R0_T1", main.Sections[0].Vars[0].Name)

	cfg := f.Decls[3].(*st.Configuration)
	require.Len(t, cfg.Globals, 1)
	var globals []string
	for _, v := range cfg.Globals[0].Vars {
		globals = append(globals, v.Name)
	}
	assert.Equal(t, []string{"Start", "Motor", "Speed", "Scaler"}, globals, "alias tags are not declared")
}

// TestEmit tests the printed text of the program and configuration.
func TestEmit(t *testing.T) {
	out := Emit(motorProgram(), config.Default())

	wantProgram := `PROGRAM prog0
VAR
    Main_R0_T1 : BOOL;
END_VAR
    (* start logic *)
    Motor := Start OR Motor;
    IF Motor THEN
        Scaler := SCL(Scaler);
    END_IF;
    Speed[1] := Scaler.Out;
    (* DISABLED (module reference): Local:1:O.Data := Motor; *)
END_PROGRAM
`
	assert.Contains(t, out, wantProgram)

	wantConfig := `CONFIGURATION Config0
VAR_GLOBAL
    Start : BOOL; (* start button *)
    Motor : BOOL;
    Speed : ARRAY[0..3] OF REAL := 0.0;
    Scaler : SCALE;
END_VAR
    RESOURCE Res0 ON PLC
        TASK Task1(INTERVAL := T#1s, PRIORITY := 0);
        PROGRAM Inst0 WITH Task1 : prog0;
    END_RESOURCE
END_CONFIGURATION
`
	assert.True(t, strings.HasSuffix(out, wantConfig), "configuration closes the unit:\n%s", out)
	assert.True(t, strings.HasPrefix(out, "TYPE SCALE :\n"))
}

// TestEmitUsesConfig tests that configuration names flow into the unit.
func TestEmitUsesConfig(t *testing.T) {
	cfg, err := config.Parse("line.cue", []byte(`
configuration: "Plant"
resource: "CPU"
instance: "Line1"
task: {name: "Fast", interval: "T#10ms", priority: 2}
`))
	require.NoError(t, err)

	out := Emit(&ir.Program{Name: "merged"}, cfg)
	assert.Contains(t, out, "CONFIGURATION Plant\n")
	assert.Contains(t, out, "RESOURCE CPU ON PLC\n")
	assert.Contains(t, out, "TASK Fast(INTERVAL := T#10ms, PRIORITY := 2);\n")
	assert.Contains(t, out, "PROGRAM Line1 WITH Fast : merged;\n")
	assert.NotContains(t, out, "VAR_GLOBAL", "no globals section without controller tags")
}

// TestFunctionBlocks tests function block declarations.
func TestFunctionBlocks(t *testing.T) {
	prog := &ir.Program{
		Name: "prog0",
		POUs: []ir.POU{{
			Name: "Valve",
			Kind: ir.POUFunctionBlock,
			Vars: []ir.Var{
				{Name: "Cmd", Type: "BOOL", Section: ir.VarInput},
				{Name: "Count", Type: "DINT", Section: ir.VarLocal, Init: ir.Int(0)},
				{Name: "Open", Type: "BOOL", Section: ir.VarOutput},
			},
			Body: []ir.Stmt{&ir.Assign{Target: ir.Name("Open"), Value: ir.Name("Cmd")}},
		}},
	}
	out := Emit(prog, config.Default())
	assert.Contains(t, out, `FUNCTION_BLOCK Valve
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
`)
}

// TestEmitParses tests that emitted text is accepted by the ST parser.
func TestEmitParses(t *testing.T) {
	out := Emit(motorProgram(), config.Default())
	// The disabled statement keeps a module name that is not an ST
	// identifier, but it is inside a comment.
	f, err := st.Parse("prog0.st", out)
	require.NoError(t, err)
	assert.Len(t, f.Decls, 4)
}

// TestStmtForms tests the less common statement conversions.
func TestStmtForms(t *testing.T) {
	tests := []struct {
		name string
		stmt ir.Stmt
		want string
	}{
		{
			name: "timer invocation",
			stmt: &ir.Invoke{Callee: ir.Name("T1"), Args: []ir.Arg{
				{Name: "IN", Value: ir.Name("Run")},
				{Name: "PT", Value: &ir.Call{Func: "DINT_TO_TIME", Args: []ir.Arg{{Value: ir.Int(500)}}}},
			}},
			want: "T1(IN := Run, PT := DINT_TO_TIME(500));",
		},
		{
			name: "counted loop with step",
			stmt: &ir.For{Var: ir.Name("i"), From: ir.Int(0), To: ir.Int(9), By: ir.Int(2),
				Body: []ir.Stmt{&ir.Assign{Target: &ir.Ref{Name: "a", Path: []ir.Selector{{Index: ir.Name("i")}}}, Value: ir.Int(0)}}},
			want: "FOR i := 0 TO 9 BY 2 DO\n    a[i] := 0;\nEND_FOR;",
		},
		{
			name: "while loop",
			stmt: &ir.While{Cond: ir.Not(ir.Name("Done")), Body: []ir.Stmt{&ir.Assign{Target: ir.Name("Done"), Value: ir.True}}},
			want: "WHILE NOT Done DO\n    Done := TRUE;\nEND_WHILE;",
		},
		{
			name: "elsif and else",
			stmt: &ir.If{
				Branches: []ir.Branch{
					{Cond: ir.Name("A"), Body: []ir.Stmt{&ir.Assign{Target: ir.Name("X"), Value: ir.Int(1)}}},
					{Cond: ir.Name("B"), Body: []ir.Stmt{&ir.Assign{Target: ir.Name("X"), Value: ir.Int(2)}}},
				},
				Else: []ir.Stmt{&ir.Assign{Target: ir.Name("X"), Value: ir.Int(3)}},
			},
			want: "IF A THEN\n    X := 1;\nELSIF B THEN\n    X := 2;\nELSE\n    X := 3;\nEND_IF;",
		},
		{
			name: "two dimensional index",
			stmt: &ir.Assign{
				Target: &ir.Ref{Name: "m", Path: []ir.Selector{{Index: ir.Int(1)}, {Index: ir.Int(2)}, {Field: "x"}}},
				Value:  ir.Int(0),
			},
			want: "m[1, 2].x := 0;",
		},
		{
			name: "disabled comment",
			stmt: &ir.Disabled{Stmt: &ir.Comment{Text: "GSV(Program, MainProgram, Mode, M)"}, Reason: "system attribute access"},
			want: "(* DISABLED (system attribute access): GSV(Program, MainProgram, Mode, M) *)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatStmts([]ir.Stmt{tt.stmt}))
		})
	}
}
