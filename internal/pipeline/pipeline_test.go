package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/l5xst/internal/consolidate"
	"github.com/roach88/l5xst/internal/diag"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/l5x"
	"github.com/roach88/l5xst/internal/st"
	"github.com/roach88/l5xst/internal/testutil"
)

func quiet(opts ...Option) *Pipeline {
	return New(append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)...)
}

func motorLine(name, output string) *l5x.Content {
	return testutil.NewProject(name).
		Tag("Start", "BOOL").
		Tag(output, "BOOL").
		Rungs(fmt.Sprintf("XIC(Start)OTE(%s);", output)).
		Content()
}

const unit = `PROGRAM prog0
    Motor := Start AND NOT Stop;
END_PROGRAM
CONFIGURATION Config0
VAR_GLOBAL
    Start : BOOL;
    Stop : BOOL;
    Motor : BOOL;
END_VAR
    RESOURCE Res0 ON PLC
        TASK Task1(INTERVAL := T#1s, PRIORITY := 0);
        PROGRAM Inst0 WITH Task1 : prog0;
    END_RESOURCE
END_CONFIGURATION
`

// TestToST tests the merge of two controllers into one unit.
func TestToST(t *testing.T) {
	fwd, err := quiet().ToST(context.Background(), []*l5x.Content{
		motorLine("Line1", "Motor"),
		motorLine("Line2", "Pump"),
	})
	require.NoError(t, err)

	assert.Equal(t, "prog0", fwd.Program.Name)
	assert.Contains(t, fwd.Text, "Motor := Start_1;")
	assert.Contains(t, fwd.Text, "Pump := Start_2;")
	assert.Contains(t, fwd.Text, "Start_1 : BOOL;")
	assert.Contains(t, fwd.Text, "PROGRAM Inst0 WITH Task1 : prog0;")
	assert.Equal(t, st.Format(fwd.File), fwd.Text)

	name, ok := fwd.Renames.Lookup(2, consolidate.NameTag, "Start")
	require.True(t, ok)
	assert.Equal(t, "Start_2", name)
	assert.Empty(t, fwd.Diags)
}

// TestToSTUndeclaredOperand tests that an operand one controller never
// declares stays apart from the tag of the same name in another.
func TestToSTUndeclaredOperand(t *testing.T) {
	line2 := testutil.NewProject("Line2").
		Tag("M2", "BOOL").
		Rungs("XIC(Start)OTE(M2);").
		Content()
	fwd, err := quiet().ToST(context.Background(), []*l5x.Content{motorLine("Line1", "M1"), line2})
	require.NoError(t, err)

	assert.Contains(t, fwd.Text, "M1 := Start_1;")
	assert.Contains(t, fwd.Text, "M2 := Start_2;")
	assert.NotContains(t, fwd.Text, "Start_2 : BOOL;")
	require.Equal(t, 1, fwd.Diags.Count(diag.CodeUnknownTag), "%v", fwd.Diags)
	assert.Equal(t, "Line2", fwd.Diags[0].Location.Controller)
	assert.Contains(t, fwd.Diags[0].Message, "Start")
}

// TestToSTKeepsControllerOrder tests that the document order fixes the
// controller index whatever order the goroutines finish in.
func TestToSTKeepsControllerOrder(t *testing.T) {
	var docs []*l5x.Content
	for i := 1; i <= 8; i++ {
		docs = append(docs, motorLine(fmt.Sprintf("Line%d", i), fmt.Sprintf("Out%d", i)))
	}
	fwd, err := quiet().ToST(context.Background(), docs)
	require.NoError(t, err)

	for i := 1; i <= 8; i++ {
		name, ok := fwd.Renames.Lookup(i, consolidate.NameTag, "Start")
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("Start_%d", i), name)
		assert.Contains(t, fwd.Text, fmt.Sprintf("Out%d := Start_%d;", i, i))
	}
	assert.Less(t, strings.Index(fwd.Text, "Out1 :="), strings.Index(fwd.Text, "Out8 :="))
}

// TestToSTDiagnostics tests that recoverable problems are collected.
func TestToSTDiagnostics(t *testing.T) {
	doc := testutil.NewProject("Line1").
		Tag("A", "BOOL").
		Tag("B", "BOOL").
		Rungs("XIC(A)OTE(B);", "XIC(A)FROB(B);").
		Content()

	fwd, err := quiet().ToST(context.Background(), []*l5x.Content{doc})
	require.NoError(t, err)
	assert.True(t, fwd.Diags.Has(diag.CodeUnsupportedInstruction))
	assert.Contains(t, fwd.Text, "B := A;")
	assert.Contains(t, fwd.Text, "FROB")
}

// TestToSTCoercesMixedOperands tests that integer operands meeting real
// ones inside rung expressions are promoted and reported.
func TestToSTCoercesMixedOperands(t *testing.T) {
	doc := testutil.NewProject("Line1").
		Tag("A", "BOOL").
		Tag("Y", "BOOL").
		Tag("N", "DINT").
		Tag("R", "REAL").
		Tag("R2", "REAL").
		Rungs("XIC(A)ADD(N,R,R2);", "GRT(N,R)OTE(Y);", "XIC(A)SQR(N,R2);").
		Content()

	fwd, err := quiet().ToST(context.Background(), []*l5x.Content{doc})
	require.NoError(t, err)
	assert.Contains(t, fwd.Text, "R2 := DINT_TO_REAL(N) + R;")
	assert.Contains(t, fwd.Text, "Y := DINT_TO_REAL(N) > R;")
	assert.Contains(t, fwd.Text, "R2 := SQRT(DINT_TO_REAL(N));")
	assert.Equal(t, 3, fwd.Diags.Count(diag.CodeTypeMismatch))
}

// TestToSTErrors tests fatal conversion failures.
func TestToSTErrors(t *testing.T) {
	t.Run("no documents", func(t *testing.T) {
		_, err := quiet().ToST(context.Background(), nil)
		require.Error(t, err)
		assert.Equal(t, diag.CodeMalformedSource, diag.CodeOf(err))
	})

	t.Run("malformed project", func(t *testing.T) {
		bad := testutil.NewProject("Line2").Array("M", "DINT", "2 3").Rungs("MOV(1,M[0]);").Content()
		_, err := quiet().ToST(context.Background(), []*l5x.Content{motorLine("Line1", "Motor"), bad})
		require.Error(t, err)
		assert.Equal(t, diag.CodeMalformedSource, diag.CodeOf(err))
		assert.Contains(t, err.Error(), "controller 2")
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := quiet().ToST(ctx, []*l5x.Content{motorLine("Line1", "Motor")})
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

// TestValidateST tests the structural round trip of emitted text.
func TestValidateST(t *testing.T) {
	p := quiet(WithSpotCheck(5))
	fwd, err := p.ToST(context.Background(), []*l5x.Content{motorLine("Line1", "Motor"), motorLine("Line2", "Pump")})
	require.NoError(t, err)

	v, err := p.ValidateST(context.Background(), fwd)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Report.Score())
	assert.True(t, v.SpotChecked)
	assert.Empty(t, v.Diverging)
	assert.True(t, v.Passes(p.Config().MinFidelity))
}

// TestValidateSTDetectsChanges tests that an edited unit scores lower and
// diverges in the interpreter.
func TestValidateSTDetectsChanges(t *testing.T) {
	p := quiet(WithSpotCheck(2))
	fwd, err := p.ToST(context.Background(), []*l5x.Content{motorLine("Line1", "Motor")})
	require.NoError(t, err)
	require.Contains(t, fwd.Text, "Motor := Start;")

	fwd.Text = strings.Replace(fwd.Text, "Motor := Start;", "Motor := NOT Start;", 1)
	v, err := p.ValidateST(context.Background(), fwd)
	require.NoError(t, err)
	assert.Less(t, v.Report.Score(), 1.0)
	assert.Equal(t, 1, v.Report.Statements.Mismatched)
	assert.True(t, v.SpotChecked)
	assert.Equal(t, []string{"MOTOR"}, v.Diverging)
	assert.False(t, v.Passes(0))
}

// TestValidateSTBrokenText tests that unparsable output is an error.
func TestValidateSTBrokenText(t *testing.T) {
	p := quiet()
	fwd, err := p.ToST(context.Background(), []*l5x.Content{motorLine("Line1", "Motor")})
	require.NoError(t, err)

	fwd.Text = strings.Replace(fwd.Text, "END_PROGRAM", "", 1)
	_, err = p.ValidateST(context.Background(), fwd)
	require.Error(t, err)
	assert.Equal(t, diag.CodeMalformedST, diag.CodeOf(err))
}

// TestToL5X tests the reverse direction and its round trip.
func TestToL5X(t *testing.T) {
	p := quiet(WithSpotCheck(3))
	rev, err := p.ToL5X(context.Background(), "line.st", unit)
	require.NoError(t, err)

	ctl := rev.Content.Controller
	assert.Equal(t, p.Config().L5X.Controller, ctl.Name)
	require.Len(t, ctl.Programs, 1)
	assert.Equal(t, p.Config().L5X.MainProgram, ctl.Programs[0].Name)
	require.Len(t, ctl.Tags, 3)

	routine := ctl.Programs[0].Routines[0]
	assert.Equal(t, "RLL", routine.Type)
	require.NotNil(t, routine.RLL)
	assert.Equal(t, "XIC(Start)XIO(Stop)OTE(Motor);", routine.RLL.Rungs[0].Text.Value)

	v, err := p.ValidateL5X(context.Background(), rev)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Report.Score())
	assert.True(t, v.SpotChecked)
	assert.Empty(t, v.Diverging)
}

// TestToL5XFiles tests a unit split over several files.
func TestToL5XFiles(t *testing.T) {
	program, configuration, ok := strings.Cut(unit, "CONFIGURATION")
	require.True(t, ok)
	files := []Source{
		{Name: "logic.st", Text: program},
		{Name: "config.st", Text: "CONFIGURATION" + configuration},
	}

	rev, err := quiet().ToL5XFiles(context.Background(), files)
	require.NoError(t, err)
	ctl := rev.Content.Controller
	require.Len(t, ctl.Tags, 3)
	assert.Equal(t, "XIC(Start)XIO(Stop)OTE(Motor);", ctl.Programs[0].Routines[0].RLL.Rungs[0].Text.Value)

	t.Run("positions are per file", func(t *testing.T) {
		files := []Source{files[0], {Name: "broken.st", Text: "PROGRAM q\n    X := ;\nEND_PROGRAM\n"}}
		_, err := quiet().ToL5XFiles(context.Background(), files)
		require.Error(t, err)
		assert.Equal(t, diag.CodeMalformedST, diag.CodeOf(err))
		assert.Contains(t, err.Error(), "broken.st")

		var se *st.SyntaxError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, 2, se.Line)
	})

	t.Run("no files", func(t *testing.T) {
		_, err := quiet().ToL5XFiles(context.Background(), nil)
		assert.Equal(t, diag.CodeMalformedST, diag.CodeOf(err))
	})
}

// TestToL5XSyntaxError tests that parse errors carry the taxonomy code.
func TestToL5XSyntaxError(t *testing.T) {
	_, err := quiet().ToL5X(context.Background(), "bad.st", "PROGRAM p\n    X := ;\nEND_PROGRAM\n")
	require.Error(t, err)
	assert.Equal(t, diag.CodeMalformedST, diag.CodeOf(err))
	assert.True(t, diag.IsFatal(err))

	var se *st.SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 2, se.Line)
}

// TestSpotCheckSkipsUninterpretable tests that statements the interpreter
// has no meaning for leave the score alone and skip the spot check.
func TestSpotCheckSkipsUninterpretable(t *testing.T) {
	prog := &ir.Program{
		Name: "prog0",
		Tags: []ir.Tag{{Name: "Scaler", Type: "SCALE", Scope: ir.ScopeController}},
		Body: []ir.Stmt{&ir.InstrCall{Func: "SCL", Target: ir.Name("Scaler")}},
	}
	v, err := quiet(WithSpotCheck(1)).validate(context.Background(), prog, prog)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Report.Score())
	assert.False(t, v.SpotChecked)
	assert.Nil(t, v.Diverging)
}

// TestSpotCheckOff tests the default.
func TestSpotCheckOff(t *testing.T) {
	prog := &ir.Program{Name: "prog0"}
	v, err := quiet().validate(context.Background(), prog, prog)
	require.NoError(t, err)
	assert.False(t, v.SpotChecked)
	assert.True(t, v.Passes(1))
}
