package l5xemit

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/l5xst/internal/coerce"
	"github.com/roach88/l5xst/internal/config"
	"github.com/roach88/l5xst/internal/convert"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/irbuild"
	"github.com/roach88/l5xst/internal/l5x"
	"github.com/roach88/l5xst/internal/source"
	"github.com/roach88/l5xst/internal/st"
	"github.com/roach88/l5xst/internal/stemit"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func quiet() *Emitter {
	return New(WithLogger(discard()))
}

func stmts(t *testing.T, src string) []ir.Stmt {
	t.Helper()
	if src == "" {
		return nil
	}
	parsed, err := st.ParseStmts("test.st", src)
	require.NoError(t, err)
	out, err := irbuild.Stmts(parsed)
	require.NoError(t, err)
	return out
}

func expr(t *testing.T, src string) ir.Expr {
	t.Helper()
	parsed, err := st.ParseExpr(src)
	require.NoError(t, err)
	out, err := irbuild.Expr(parsed)
	require.NoError(t, err)
	return out
}

func irTag(name, typ string) ir.Tag {
	return ir.Tag{Name: name, Type: typ, Scope: ir.ScopeController, Kind: ir.KindBase}
}

func program(t *testing.T, src string) *ir.Program {
	t.Helper()
	return &ir.Program{
		Name: "prog0",
		Tags: []ir.Tag{
			irTag("A", "BOOL"), irTag("B", "BOOL"), irTag("Y", "BOOL"),
			irTag("N", "DINT"), irTag("R", "REAL"), irTag("T1", "TON"), irTag("C1", "CTU"),
			irTag("Msg1", "MESSAGE"),
			{Name: "Main_R0_ONS1_MEM", Type: "BOOL", Scope: ir.ScopeProgram, Kind: ir.KindBase},
		},
		Body: stmts(t, src),
	}
}

func rungTexts(r l5x.Routine) []string {
	var out []string
	for _, rg := range r.RLL.Rungs {
		out = append(out, rg.Text.Value)
	}
	return out
}

func mainRoutine(t *testing.T, c *l5x.Content) l5x.Routine {
	t.Helper()
	require.Len(t, c.Controller.Programs, 1)
	require.Len(t, c.Controller.Programs[0].Routines, 1)
	return c.Controller.Programs[0].Routines[0]
}

const ladderBody = `Y := A AND NOT B;
IF A THEN
    Y := TRUE;
END_IF;
IF N > 10 THEN
    Y := FALSE;
END_IF;
IF A OR B THEN
    N := N + 1;
END_IF;
T1(IN := A, PT := DINT_TO_TIME(1000));
C1(CU := T1.Q, PV := 10);
N := 5;
R := N * 2.5 + 1.0;
IF B THEN
    Msg1 := MSG(Msg1);
END_IF;`

// TestLadderRoutine tests rung forms of the statements the ladder
// translator produces.
func TestLadderRoutine(t *testing.T) {
	c := quiet().FromIR(program(t, ladderBody), config.Default())
	r := mainRoutine(t, c)

	assert.Equal(t, "MainRoutine", r.Name)
	assert.Equal(t, "RLL", r.Type)
	assert.Equal(t, []string{
		"XIC(A)XIO(B)OTE(Y);",
		"XIC(A)OTL(Y);",
		"GRT(N,10)OTU(Y);",
		"[XIC(A),XIC(B)]ADD(N,1,N);",
		"XIC(A)TON(T1,1000,0);",
		"XIC(T1.Q)CTU(C1,10,0);",
		"MOV(5,N);",
		"CPT(R,N * 2.5 + 1.0);",
		"XIC(B)MSG(Msg1);",
	}, rungTexts(r))
}

// TestLadderRoundTrip tests that the ladder translator reads the emitted
// rungs back into the same statements.
func TestLadderRoundTrip(t *testing.T) {
	prog := program(t, ladderBody)
	doc := quiet().FromIR(prog, config.Default())

	var buf bytes.Buffer
	require.NoError(t, l5x.Encode(&buf, doc))
	decoded, err := l5x.Decode(&buf)
	require.NoError(t, err)
	ctl, err := source.FromDocument(decoded, 1)
	require.NoError(t, err)

	back, _, err := convert.New(convert.WithLogger(discard())).ToIR(ctl, config.Default())
	require.NoError(t, err)
	assert.Equal(t, stemit.FormatStmts(prog.Body), stemit.FormatStmts(back.Body))

	typ := func(name string) string {
		tg, ok := back.Tag(name)
		require.True(t, ok, name)
		return tg.Type
	}
	assert.Equal(t, "TON", typ("T1"))
	assert.Equal(t, "CTU", typ("C1"))
	assert.Equal(t, "REAL", typ("R"))
}

// TestStructuredTextFallback tests that one statement without a rung form
// turns the whole routine into structured text.
func TestStructuredTextFallback(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"loop", "Y := A;\nFOR N := 0 TO 3 DO\n    R := R + 1.0;\nEND_FOR;"},
		{"xor coil", "Y := A XOR B;"},
		{"distributed branch", "Y := A AND (B OR Y);"},
		{"guarded coil", "IF A THEN\n    Y := B;\nEND_IF;"},
		{"two statement guard", "IF A THEN\n    N := 1;\n    R := 2.0;\nEND_IF;"},
		{"else branch", "IF A THEN\n    N := 1;\nELSE\n    N := 2;\nEND_IF;"},
		{"while loop", "WHILE A DO\n    N := N + 1;\nEND_WHILE;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := program(t, tt.src)
			r := mainRoutine(t, quiet().FromIR(prog, config.Default()))
			require.Equal(t, "ST", r.Type)
			require.NotNil(t, r.ST)
			var lines []string
			for i, l := range r.ST.Lines {
				assert.Equal(t, i, l.Number)
				lines = append(lines, l.Text)
			}
			assert.Equal(t, stemit.FormatStmts(prog.Body), strings.Join(lines, "\n"))
		})
	}
}

// TestSeries tests condition networks.
func TestSeries(t *testing.T) {
	tests := []struct {
		expr string
		want string
		ok   bool
	}{
		{"A", "XIC(A)", true},
		{"NOT A", "XIO(A)", true},
		{"A AND B AND NOT C", "XIC(A)XIC(B)XIO(C)", true},
		{"A OR B OR C", "[XIC(A),XIC(B),XIC(C)]", true},
		{"(A OR B) AND C", "[XIC(A),XIC(B)]XIC(C)", true},
		{"A AND B OR C", "[XIC(A)XIC(B),XIC(C)]", true},
		{"A OR (B OR C)", "[XIC(A),[XIC(B),XIC(C)]]", true},
		{"N >= 5 AND Arr[i] <> 3", "GEQ(N,5)NEQ(Arr[i],3)", true},
		{"Word.3", "XIC(Word.3)", true},
		{"TRUE", "", true},
		{"FALSE", "AFI()", true},
		{"A AND (B OR C)", "", false},
		{"NOT (A AND B)", "", false},
		{"A AND TRUE", "", false},
		{"N + 1 > 5", "", false},
		{"Arr[i + 1]", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, ok := series(expr(t, tt.expr))
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// TestDeclarations tests tag scopes, data types and add-on instructions.
func TestDeclarations(t *testing.T) {
	prog := &ir.Program{
		Name: "prog0",
		Tags: []ir.Tag{
			{Name: "Speed", Type: "REAL", Scope: ir.ScopeController, Init: &ir.Lit{Kind: ir.LitReal, Text: "1.5"}},
			{Name: "Run", Type: "BOOL", Scope: ir.ScopeController, Init: ir.Bool(true), Note: "pump running"},
			{Name: "Buf", Type: "DINT", Dim: 8, Scope: ir.ScopeController},
			{Name: "Delay", Type: "TOF", Scope: ir.ScopeController},
			{Name: "Main_R1_ONS1_MEM", Type: "BOOL", Scope: ir.ScopeProgram},
		},
		Types: []ir.TypeDecl{{Name: "Recipe", Members: []ir.Member{
			{Name: "Temp", Type: "REAL"},
			{Name: "Steps", Type: "DINT", Dim: 4},
			{Name: "Hold", Type: "TON"},
		}}},
		POUs: []ir.POU{
			{
				Name: "Valve",
				Kind: ir.POUFunctionBlock,
				Vars: []ir.Var{
					{Name: "Cmd", Type: "BOOL", Section: ir.VarInput},
					{Name: "Open", Type: "BOOL", Section: ir.VarOutput},
					{Name: "Ref", Type: "DINT", Section: ir.VarInOut},
					{Name: "Dly", Type: "TON", Section: ir.VarLocal},
				},
				Body: stmts(t, "Dly(IN := Cmd, PT := DINT_TO_TIME(100));\nOpen := Dly.Q;"),
			},
			{
				Name:       "Twice",
				Kind:       ir.POUFunction,
				ReturnType: "DINT",
				Vars:       []ir.Var{{Name: "X", Type: "DINT", Section: ir.VarInput}},
				Body:       stmts(t, "Twice := X * 2;"),
			},
		},
	}
	cfg := config.Default()
	c := quiet().FromIR(prog, cfg)
	ctl := c.Controller

	assert.Equal(t, "Controller0", ctl.Name)
	assert.Equal(t, "Controller0", c.TargetName)
	require.Len(t, ctl.Tasks, 1)
	assert.Equal(t, "MainTask", ctl.Tasks[0].Name)
	assert.Equal(t, []l5x.ScheduledProgram{{Name: "MainProgram"}}, ctl.Tasks[0].Scheduled)
	assert.Equal(t, "MainProgram", ctl.Programs[0].Name)
	assert.Equal(t, "MainRoutine", ctl.Programs[0].MainRoutineName)

	require.Len(t, ctl.Tags, 4)
	assert.Equal(t, []l5x.Data{{Format: "L5K", Text: "1.5"}}, ctl.Tags[0].Data)
	assert.Equal(t, []l5x.Data{{Format: "L5K", Text: "1"}}, ctl.Tags[1].Data)
	assert.Equal(t, "pump running", ctl.Tags[1].Description.Value)
	assert.Equal(t, "8", ctl.Tags[2].Dimensions)
	assert.Equal(t, "TIMER", ctl.Tags[3].DataType)
	require.Len(t, ctl.Programs[0].Tags, 1)
	assert.Equal(t, "Main_R1_ONS1_MEM", ctl.Programs[0].Tags[0].Name)

	require.Len(t, ctl.DataTypes, 1)
	assert.Equal(t, []l5x.Member{
		{Name: "Temp", DataType: "REAL"},
		{Name: "Steps", DataType: "DINT", Dimension: 4},
		{Name: "Hold", DataType: "TIMER"},
	}, ctl.DataTypes[0].Members)

	require.Len(t, ctl.AOIs, 2)
	valve := ctl.AOIs[0]
	assert.Equal(t, "Valve", valve.Name)
	var usages []string
	for _, p := range valve.Parameters {
		usages = append(usages, p.Name+":"+p.Usage)
	}
	assert.Equal(t, []string{"Cmd:Input", "Open:Output", "Ref:InOut"}, usages)
	assert.Equal(t, []l5x.LocalTag{{Name: "Dly", DataType: "TIMER"}}, valve.LocalTags)
	require.Len(t, valve.Routines, 1)
	assert.Equal(t, "Logic", valve.Routines[0].Name)
	assert.Equal(t, []string{"XIC(Cmd)TON(Dly,100,0);", "XIC(Dly.Q)OTE(Open);"}, rungTexts(valve.Routines[0]))

	twice := ctl.AOIs[1]
	require.Len(t, twice.Parameters, 2)
	assert.Equal(t, "Twice_Ret", twice.Parameters[0].Name)
	assert.Equal(t, "Output", twice.Parameters[0].Usage)
	assert.Equal(t, []string{"MUL(X,2,Twice_Ret);"}, rungTexts(twice.Routines[0]))
}

// TestEmptyProgram tests that an empty body is an empty ladder routine.
func TestEmptyProgram(t *testing.T) {
	r := mainRoutine(t, FromIR(&ir.Program{Name: "prog0"}, config.Default()))
	assert.Equal(t, "RLL", r.Type)
	require.NotNil(t, r.RLL)
	assert.Empty(t, r.RLL.Rungs)
}

// TestRungComments tests that comments ride on the next rung.
func TestRungComments(t *testing.T) {
	prog := program(t, "")
	prog.Body = []ir.Stmt{
		&ir.Comment{Text: "start"},
		&ir.Assign{Target: ir.Name("Y"), Value: ir.Name("A")},
		&ir.Comment{Text: "end"},
	}
	r := mainRoutine(t, quiet().FromIR(prog, config.Default()))
	require.Len(t, r.RLL.Rungs, 2)
	assert.Equal(t, "start", r.RLL.Rungs[0].Comment.Value)
	assert.Equal(t, "XIC(A)OTE(Y);", r.RLL.Rungs[0].Text.Value)
	assert.Equal(t, "end", r.RLL.Rungs[1].Comment.Value)
	assert.Equal(t, "NOP();", r.RLL.Rungs[1].Text.Value)
	assert.Equal(t, 1, r.RLL.Rungs[1].Number)
}

func TestTypesOfPOU(t *testing.T) {
	prog := &ir.Program{POUs: []ir.POU{{Name: "F", Kind: ir.POUFunction, ReturnType: "REAL"}}}
	assert.Equal(t, "REAL", coerce.TypesOf(prog, &prog.POUs[0]).Of(ir.Name("F")))
}
