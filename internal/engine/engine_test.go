package engine

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/l5xst/internal/diag"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/irbuild"
	"github.com/roach88/l5xst/internal/ladder"
	"github.com/roach88/l5xst/internal/source"
	"github.com/roach88/l5xst/internal/st"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
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

func testTags() []ir.Tag {
	return []ir.Tag{
		{Name: "Start", Type: "BOOL"},
		{Name: "Done", Type: "BOOL"},
		{Name: "N", Type: "DINT"},
		{Name: "I", Type: "INT", Init: &ir.Lit{Kind: ir.LitInt, Text: "4"}},
		{Name: "S", Type: "SINT"},
		{Name: "R", Type: "REAL"},
		{Name: "W", Type: "DWORD"},
		{Name: "Arr", Type: "DINT", Dim: 3},
		{Name: "Tank", Type: "Tank_T"},
		{Name: "Spare", Type: "Tank_T"},
		{Name: "T1", Type: "TON"},
		{Name: "Off", Type: "TOF"},
		{Name: "C1", Type: "CTU"},
	}
}

func newEngine(t *testing.T, src string, opts ...Option) *Engine {
	t.Helper()
	prog := &ir.Program{
		Name: "prog0",
		Tags: testTags(),
		Types: []ir.TypeDecl{{Name: "Tank_T", Members: []ir.Member{
			{Name: "Level", Type: "REAL"},
			{Name: "Alarm", Type: "BOOL"},
		}}},
		Body: stmts(t, src),
	}
	e, err := New(prog, append([]Option{WithLogger(discard())}, opts...)...)
	require.NoError(t, err)
	return e
}

func get(t *testing.T, e *Engine, path string) Value {
	t.Helper()
	v, ok := e.Get(path)
	require.True(t, ok, "no state at %s", path)
	return v
}

func TestInitialState(t *testing.T) {
	e := newEngine(t, "")

	assert.Equal(t, Int(4), get(t, e, "I"))
	assert.Equal(t, Bool(false), get(t, e, "Start"))
	assert.Equal(t, Real(0), get(t, e, "tank.level"))
	assert.Equal(t, Int(0), get(t, e, "Arr[2]"))
	assert.Equal(t, Time(0), get(t, e, "T1.ET"))
	_, ok := e.Get("Arr[3]")
	assert.False(t, ok)
	assert.Contains(t, e.Keys(), "C1.CV")
}

func TestScan(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		scans int
		want  map[string]Value
	}{
		{
			name:  "arithmetic",
			src:   "N := N + I;\nR := INT_TO_REAL(I) * 2.5;\nDone := N > 10;",
			scans: 3,
			want:  map[string]Value{"N": Int(12), "R": Real(10), "DONE": Bool(true)},
		},
		{
			name:  "integer wraps to width",
			src:   "S := S + 100;",
			scans: 2,
			want:  map[string]Value{"S": Int(-56)},
		},
		{
			name:  "rounding conversion",
			src:   "R := 2.5;\nN := REAL_TO_DINT(R);\nI := REAL_TO_INT(3.5);",
			scans: 1,
			want:  map[string]Value{"N": Int(2), "I": Int(4)},
		},
		{
			name:  "bit access",
			src:   "W.3 := TRUE;\nDone := W.3 AND NOT W.0;",
			scans: 1,
			want:  map[string]Value{"W": Int(8), "DONE": Bool(true)},
		},
		{
			name:  "for loop over array",
			src:   "FOR N := 0 TO 2 DO\n  Arr[N] := N * 10;\nEND_FOR;",
			scans: 1,
			want:  map[string]Value{"ARR[0]": Int(0), "ARR[1]": Int(10), "ARR[2]": Int(20), "N": Int(3)},
		},
		{
			name:  "while loop",
			src:   "N := 0;\nWHILE N < 5 DO\n  N := N + 2;\nEND_WHILE;",
			scans: 1,
			want:  map[string]Value{"N": Int(6)},
		},
		{
			name:  "elsif chain",
			src:   "IF I > 10 THEN\n  N := 1;\nELSIF I > 3 THEN\n  N := 2;\nELSE\n  N := 3;\nEND_IF;",
			scans: 1,
			want:  map[string]Value{"N": Int(2)},
		},
		{
			name:  "structure copy",
			src:   "Tank.Level := 7.5;\nTank.Alarm := TRUE;\nSpare := Tank;",
			scans: 1,
			want:  map[string]Value{"SPARE.LEVEL": Real(7.5), "SPARE.ALARM": Bool(true)},
		},
		{
			name:  "annotations are skipped",
			src:   "(* note *)\nN := 1;",
			scans: 1,
			want:  map[string]Value{"N": Int(1)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, tt.src)
			require.NoError(t, e.Run(context.Background(), tt.scans))
			for k, v := range tt.want {
				assert.Equal(t, v, get(t, e, k), k)
			}
		})
	}
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code RuntimeErrorCode
	}{
		{"unknown tag", "Ghost := 1;", ErrCodeUnknownTag},
		{"index out of range", "Arr[5] := 1;", ErrCodeUnknownTag},
		{"real into integer", "N := R;", ErrCodeTypeError},
		{"non-boolean condition", "IF N THEN\n  Done := TRUE;\nEND_IF;", ErrCodeTypeError},
		{"division by zero", "N := I / N;", ErrCodeArithmetic},
		{"endless loop", "WHILE TRUE DO\n  N := N + 1;\nEND_WHILE;", ErrCodeLoopLimit},
		{"template call", "Tank := SCL(Tank);", ErrCodeUnsupported},
		{"unknown function", "N := FROB(N);", ErrCodeUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, tt.src, WithMaxLoopIterations(50))
			err := e.Scan(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.code, CodeOf(err))

			var re *RuntimeError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, int64(1), re.Scan)
		})
	}
}

func TestInstrCallIsUnsupported(t *testing.T) {
	prog := &ir.Program{
		Name: "prog0",
		Tags: []ir.Tag{{Name: "Scaler", Type: "SCALE"}},
		Body: []ir.Stmt{&ir.InstrCall{Func: "SCL", Target: ir.Name("Scaler")}},
	}
	e, err := New(prog, WithLogger(discard()))
	require.NoError(t, err)

	err = e.Scan(context.Background())
	assert.True(t, IsUnsupported(err))
}

func TestCanceledContext(t *testing.T) {
	e := newEngine(t, "N := N + 1;")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, e.Run(ctx, 3), context.Canceled)
	assert.Equal(t, Int(0), get(t, e, "N"))
}

func TestOnDelayTimer(t *testing.T) {
	e := newEngine(t, "T1(IN := Start, PT := T#300ms);\nDone := T1.Q;", WithScanPeriod(100*time.Millisecond))
	ctx := context.Background()

	require.NoError(t, e.Run(ctx, 2))
	assert.Equal(t, Bool(false), get(t, e, "Done"))

	require.NoError(t, e.Set("Start", Bool(true)))
	var trace []bool
	for i := 0; i < 5; i++ {
		require.NoError(t, e.Scan(ctx))
		trace = append(trace, get(t, e, "Done").AsBool())
	}
	assert.Equal(t, []bool{false, false, false, true, true}, trace)
	assert.Equal(t, Time(300*time.Millisecond), get(t, e, "T1.ET"))

	require.NoError(t, e.Set("Start", Bool(false)))
	require.NoError(t, e.Scan(ctx))
	assert.Equal(t, Bool(false), get(t, e, "Done"))
	assert.Equal(t, Time(0), get(t, e, "T1.ET"))
}

func TestOffDelayTimer(t *testing.T) {
	e := newEngine(t, "Off(IN := Start, PT := T#200ms);\nDone := Off.Q;", WithScanPeriod(100*time.Millisecond))
	ctx := context.Background()

	require.NoError(t, e.Scan(ctx))
	assert.Equal(t, Bool(false), get(t, e, "Done"), "an off-delay timer starts released")

	require.NoError(t, e.Set("Start", Bool(true)))
	require.NoError(t, e.Scan(ctx))
	assert.Equal(t, Bool(true), get(t, e, "Done"))

	require.NoError(t, e.Set("Start", Bool(false)))
	var trace []bool
	for i := 0; i < 4; i++ {
		require.NoError(t, e.Scan(ctx))
		trace = append(trace, get(t, e, "Done").AsBool())
	}
	assert.Equal(t, []bool{true, true, false, false}, trace)
}

func TestCounterCountsRisingEdges(t *testing.T) {
	e := newEngine(t, "C1(CU := Start, PV := 3);\nDone := C1.Q;")
	ctx := context.Background()

	for _, in := range []bool{true, true, false, true, false, false, true, true} {
		require.NoError(t, e.Set("Start", Bool(in)))
		require.NoError(t, e.Scan(ctx))
	}
	assert.Equal(t, Int(3), get(t, e, "C1.CV"))
	assert.Equal(t, Bool(true), get(t, e, "Done"))

	require.NoError(t, e.Set("C1.R", Bool(true)))
	require.NoError(t, e.Scan(ctx))
	assert.Equal(t, Int(0), get(t, e, "C1.CV"))
}

func TestUserPOUs(t *testing.T) {
	prog := &ir.Program{
		Name: "prog0",
		Tags: []ir.Tag{
			{Name: "Raw", Type: "INT", Init: &ir.Lit{Kind: ir.LitInt, Text: "50"}},
			{Name: "Out", Type: "REAL"},
			{Name: "P1", Type: "Pump"},
			{Name: "Runs", Type: "DINT"},
		},
		POUs: []ir.POU{
			{
				Name:       "Scale",
				Kind:       ir.POUFunction,
				ReturnType: "REAL",
				Vars: []ir.Var{
					{Name: "X", Type: "INT", Section: ir.VarInput},
					{Name: "K", Type: "REAL", Section: ir.VarLocal, Init: &ir.Lit{Kind: ir.LitReal, Text: "0.5"}},
				},
				Body: stmts(t, "Scale := INT_TO_REAL(X) * K;"),
			},
			{
				Name: "Pump",
				Kind: ir.POUFunctionBlock,
				Vars: []ir.Var{
					{Name: "Enable", Type: "BOOL", Section: ir.VarInput},
					{Name: "Count", Type: "DINT", Section: ir.VarOutput},
				},
				Body: stmts(t, "IF Enable THEN\n  Count := Count + 1;\nEND_IF;"),
			},
		},
		Body: stmts(t, "Out := Scale(Raw);\nP1(Enable := TRUE);\nRuns := P1.Count;"),
	}
	e, err := New(prog, WithLogger(discard()))
	require.NoError(t, err)

	require.NoError(t, e.Run(context.Background(), 3))
	assert.Equal(t, Real(25), get(t, e, "Out"))
	assert.Equal(t, Int(3), get(t, e, "Runs"))
	for _, k := range e.Keys() {
		assert.False(t, strings.HasPrefix(k, "~"), "function frames do not leak into the state: %s", k)
	}
}

func TestDiverging(t *testing.T) {
	left := newEngine(t, "N := N + 1;")
	right := newEngine(t, "N := N + 2;")

	keys, err := Diverging(context.Background(), left, right, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"N"}, keys)

	same := newEngine(t, "N := N + 1;")
	again := newEngine(t, "N := 1 + N;")
	keys, err = Diverging(context.Background(), same, again, 2)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

// TestSeriesParallelLowering evaluates translated rungs for every input
// combination and compares them with left-to-right rung evaluation.
func TestSeriesParallelLowering(t *testing.T) {
	tests := []struct {
		rung string
		want func(a, b, c, d bool) bool
	}{
		{"XIC(A)XIC(B)OTE(Y);", func(a, b, c, d bool) bool { return a && b }},
		{"[XIC(A),XIC(B)]XIO(C)OTE(Y);", func(a, b, c, d bool) bool { return (a || b) && !c }},
		{"XIC(A)[XIC(B),XIO(C)XIC(D)]OTE(Y);", func(a, b, c, d bool) bool { return a && (b || (!c && d)) }},
		{"[XIC(A)XIC(B),XIC(C)[XIC(D),XIO(A)]]OTE(Y);", func(a, b, c, d bool) bool { return (a && b) || (c && (d || !a)) }},
		{"[XIC(A),XIC(B)]OTE(A)XIC(C)OTE(Y);", func(a, b, c, d bool) bool { return (a || b) && c }},
		{"AFI()OTE(Y);", func(a, b, c, d bool) bool { return false }},
	}
	for _, tt := range tests {
		t.Run(tt.rung, func(t *testing.T) {
			net, err := source.ParseRung(tt.rung)
			require.NoError(t, err)
			res := ladder.New(ladder.WithLogger(discard())).Rung(&ladder.Context{
				Location: diag.Location{Routine: "Main"},
				Routine:  "Main",
				Names:    ladder.NewNamespace("A", "B", "C", "D", "Y"),
				TagType:  func(string) string { return "" },
			}, &source.Rung{Text: tt.rung, Network: net})
			require.Empty(t, res.Diags)

			tags := []ir.Tag{{Name: "Y", Type: "BOOL"}}
			for _, n := range []string{"A", "B", "C", "D"} {
				tags = append(tags, ir.Tag{Name: n, Type: "BOOL"})
			}
			tags = append(tags, res.Tags...)
			prog := &ir.Program{Name: "prog0", Tags: tags, Body: res.Stmts}

			for bits := 0; bits < 16; bits++ {
				in := [4]bool{bits&1 != 0, bits&2 != 0, bits&4 != 0, bits&8 != 0}
				e, err := New(prog, WithLogger(discard()))
				require.NoError(t, err)
				for i, n := range []string{"A", "B", "C", "D"} {
					require.NoError(t, e.Set(n, Bool(in[i])))
				}
				require.NoError(t, e.Scan(context.Background()))
				assert.Equal(t, tt.want(in[0], in[1], in[2], in[3]), get(t, e, "Y").AsBool(), "inputs %v", in)
			}
		})
	}
}

// TestLatchNeverClears runs a latch rung over a sequence of inputs.
func TestLatchNeverClears(t *testing.T) {
	net, err := source.ParseRung("XIC(Start)OTL(Done);")
	require.NoError(t, err)
	res := ladder.New(ladder.WithLogger(discard())).Rung(&ladder.Context{
		Routine: "Main",
		Names:   ladder.NewNamespace("Start", "Done"),
		TagType: func(string) string { return "" },
	}, &source.Rung{Text: "XIC(Start)OTL(Done);", Network: net})

	e, err := New(&ir.Program{Name: "prog0", Tags: testTags(), Body: res.Stmts}, WithLogger(discard()))
	require.NoError(t, err)

	seen := false
	for _, in := range []bool{false, true, false, false, true, false} {
		require.NoError(t, e.Set("Start", Bool(in)))
		require.NoError(t, e.Scan(context.Background()))
		done := get(t, e, "Done").AsBool()
		if seen {
			assert.True(t, done, "a latch never clears")
		}
		seen = seen || done
	}
	assert.True(t, seen)
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Bool(true), "TRUE"},
		{Int(-3), "-3"},
		{Real(2), "2.0"},
		{Real(0.25), "0.25"},
		{Time(1500 * time.Millisecond), "T#1500ms"},
		{String("abc"), "'abc'"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.v.String())
	}
}

func TestLiterals(t *testing.T) {
	tests := []struct {
		lit  ir.Lit
		want Value
	}{
		{ir.Lit{Kind: ir.LitInt, Text: "16#FF"}, Int(255)},
		{ir.Lit{Kind: ir.LitInt, Text: "2#1010"}, Int(10)},
		{ir.Lit{Kind: ir.LitInt, Text: "1_000"}, Int(1000)},
		{ir.Lit{Kind: ir.LitInt, Text: "-7"}, Int(-7)},
		{ir.Lit{Kind: ir.LitInt, Text: "DINT#5"}, Int(5)},
		{ir.Lit{Kind: ir.LitReal, Text: "1.5E2"}, Real(150)},
		{ir.Lit{Kind: ir.LitTime, Text: "T#1m2s"}, Time(62 * time.Second)},
		{ir.Lit{Kind: ir.LitTime, Text: "T#1.5s"}, Time(1500 * time.Millisecond)},
		{ir.Lit{Kind: ir.LitTime, Text: "T#250ms"}, Time(250 * time.Millisecond)},
		{ir.Lit{Kind: ir.LitString, Text: "'it$'s'"}, String("it's")},
		{ir.Lit{Kind: ir.LitBool, Text: "TRUE"}, Bool(true)},
	}
	for _, tt := range tests {
		t.Run(tt.lit.Text, func(t *testing.T) {
			got, err := literal(&tt.lit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		text string
		want Value
	}{
		{"true", Bool(true)},
		{"FALSE", Bool(false)},
		{"42", Int(42)},
		{"-1.5", Real(-1.5)},
		{"16#10", Int(16)},
		{"T#250ms", Time(250 * time.Millisecond)},
		{"time#2s", Time(2 * time.Second)},
		{"'on'", String("on")},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParseValue(tt.text)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}

	_, err := ParseValue("motor")
	assert.Error(t, err)
}

func TestClock(t *testing.T) {
	c := NewClock(50 * time.Millisecond)
	assert.Equal(t, int64(0), c.Scan())
	assert.Equal(t, time.Duration(0), c.Now())

	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, time.Duration(0), c.Now(), "the first scan runs at time zero")
	c.Next()
	c.Next()
	assert.Equal(t, 100*time.Millisecond, c.Now())
	assert.Equal(t, 50*time.Millisecond, c.Period())
}
