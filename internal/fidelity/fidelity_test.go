package fidelity

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/irbuild"
	"github.com/roach88/l5xst/internal/st"
)

func quiet() *Scorer {
	return New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
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

func program(t *testing.T, src string) *ir.Program {
	t.Helper()
	return &ir.Program{
		Name: "prog0",
		Tags: []ir.Tag{
			{Name: "A", Type: "BOOL"},
			{Name: "X", Type: "DINT"},
			{Name: "Y", Type: "DINT"},
		},
		Body: stmts(t, src),
	}
}

func TestCompareIdentical(t *testing.T) {
	src := "X := 1;\nIF A THEN\n  Y := X + 1;\nELSE\n  Y := 0;\nEND_IF;"
	r := quiet().Compare(program(t, src), program(t, src))

	assert.Equal(t, 1.0, r.Score())
	assert.Empty(t, r.Differences)
	assert.Equal(t, Counts{Matched: 3}, r.Declarations)
	assert.Equal(t, Counts{Matched: 4}, r.Statements)
}

func TestCompareEmpty(t *testing.T) {
	r := quiet().Compare(&ir.Program{Name: "a"}, &ir.Program{Name: "b"})

	assert.Equal(t, 1.0, r.Score())
	assert.Zero(t, r.Counts().Total())
	assert.True(t, r.Passes(1.0))
}

func TestCompareStatements(t *testing.T) {
	tests := []struct {
		name  string
		left  string
		right string
		want  Counts
		kinds []Kind
	}{
		{
			name:  "inserted",
			left:  "X := 1;\nY := 2;\nX := 3;",
			right: "X := 1;\nY := 2;\nA := TRUE;\nX := 3;",
			want:  Counts{Matched: 3, Extra: 1},
			kinds: []Kind{KindExtra},
		},
		{
			name:  "deleted",
			left:  "X := 1;\nY := 2;\nX := 3;",
			right: "X := 1;\nX := 3;",
			want:  Counts{Matched: 2, Missing: 1},
			kinds: []Kind{KindMissing},
		},
		{
			name:  "changed",
			left:  "X := 1;\nY := 2;",
			right: "X := 1;\nY := 5;",
			want:  Counts{Matched: 1, Mismatched: 1},
			kinds: []Kind{KindMismatched},
		},
		{
			name:  "changed inside branch",
			left:  "IF A THEN\n  X := 1;\nEND_IF;",
			right: "IF A THEN\n  X := 2;\nEND_IF;",
			want:  Counts{Matched: 1, Mismatched: 1},
			kinds: []Kind{KindMismatched},
		},
		{
			name:  "same statement moved into branch",
			left:  "X := 1;\nIF A THEN\n  Y := 2;\nEND_IF;",
			right: "IF A THEN\n  X := 1;\n  Y := 2;\nEND_IF;",
			want:  Counts{Matched: 2, Missing: 1, Extra: 1},
			kinds: []Kind{KindMissing, KindExtra},
		},
		{
			name:  "comments ignored",
			left:  "(* start *)\nX := 1;",
			right: "X := 1;\n(* end *)",
			want:  Counts{Matched: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := quiet().Compare(program(t, tt.left), program(t, tt.right))

			assert.Equal(t, tt.want, r.Statements)
			var kinds []Kind
			for _, d := range r.Differences {
				assert.Equal(t, SectionStmt, d.Section)
				kinds = append(kinds, d.Kind)
			}
			assert.ElementsMatch(t, tt.kinds, kinds)
		})
	}
}

func TestCompareDeclarations(t *testing.T) {
	left := &ir.Program{
		Name: "prog0",
		Tags: []ir.Tag{
			{Name: "A", Type: "BOOL"},
			{Name: "N", Type: "DINT"},
			{Name: "Old", Type: "INT"},
		},
		Types: []ir.TypeDecl{{Name: "Tank_T", Members: []ir.Member{{Name: "Level", Type: "REAL"}}}},
	}
	right := &ir.Program{
		Name: "prog0",
		Tags: []ir.Tag{
			{Name: "a", Type: "bool"},
			{Name: "N", Type: "REAL"},
			{Name: "New", Type: "INT"},
		},
		Types: []ir.TypeDecl{{Name: "TANK_T", Members: []ir.Member{{Name: "level", Type: "REAL"}}}},
	}

	r := quiet().Compare(left, right)

	assert.Equal(t, Counts{Matched: 2, Mismatched: 1, Missing: 1, Extra: 1}, r.Declarations)
	require.Len(t, r.Differences, 3)
	assert.Equal(t, Difference{Kind: KindMismatched, Section: SectionTag, Key: "N", Left: "DINT", Right: "REAL"}, r.Differences[0])
	assert.Equal(t, Difference{Kind: KindExtra, Section: SectionTag, Key: "New", Right: "INT"}, r.Differences[1])
	assert.Equal(t, Difference{Kind: KindMissing, Section: SectionTag, Key: "Old", Left: "INT"}, r.Differences[2])
	assert.InDelta(t, 0.4, r.Score(), 1e-9)
}

func TestComparePOUs(t *testing.T) {
	pou := func(body string, ret string) ir.POU {
		return ir.POU{
			Name:       "Scale",
			Kind:       ir.POUFunction,
			ReturnType: ret,
			Vars:       []ir.Var{{Name: "Raw", Type: "INT", Section: ir.VarInput}},
			Body:       stmts(t, body),
		}
	}
	left := &ir.Program{Name: "p", POUs: []ir.POU{pou("Scale := INT_TO_REAL(Raw);", "REAL")}}
	same := &ir.Program{Name: "p", POUs: []ir.POU{pou("Scale := INT_TO_REAL(Raw);", "REAL")}}
	body := &ir.Program{Name: "p", POUs: []ir.POU{pou("Scale := 0.0;", "REAL")}}
	sig := &ir.Program{Name: "p", POUs: []ir.POU{pou("Scale := INT_TO_REAL(Raw);", "LREAL")}}

	assert.Equal(t, 1.0, quiet().Compare(left, same).Score())

	r := quiet().Compare(left, body)
	assert.Equal(t, Counts{Matched: 1}, r.Declarations, "bodies are compared as statements")
	assert.Equal(t, Counts{Mismatched: 1}, r.Statements)
	require.Len(t, r.Differences, 1)
	assert.Equal(t, "SCALE/", r.Differences[0].Key)

	r = quiet().Compare(left, sig)
	assert.Equal(t, Counts{Mismatched: 1}, r.Declarations)
	assert.Equal(t, Counts{Matched: 1}, r.Statements)
}

func TestReport(t *testing.T) {
	r := &Report{
		Declarations: Counts{Matched: 3},
		Statements:   Counts{Matched: 4, Mismatched: 1, Missing: 1, Extra: 1},
	}

	assert.InDelta(t, 0.7, r.Score(), 1e-9)
	assert.InDelta(t, 70.0, r.Percent(), 1e-9)
	assert.True(t, r.Passes(0.7))
	assert.False(t, r.Passes(0.71))
	assert.Equal(t, "fidelity 70.00% (matched 7, mismatched 1, missing 1, extra 1)", r.String())
}

func TestDiff(t *testing.T) {
	r := Compare(program(t, "X := 1;"), program(t, "X := 1;\nY := 2;"))

	out, err := r.Diff("ir", "roundtrip")
	require.NoError(t, err)
	assert.Contains(t, out, "--- ir")
	assert.Contains(t, out, "+++ roundtrip")
	assert.Contains(t, out, "+/ Y := 2;")
	assert.Contains(t, out, " / X := 1;")
}

func TestDifferenceString(t *testing.T) {
	tests := []struct {
		d    Difference
		want string
	}{
		{Difference{Kind: KindMissing, Section: SectionTag, Key: "Old", Left: "INT"}, "missing tag Old: INT"},
		{Difference{Kind: KindExtra, Section: SectionStmt, Key: "/", Right: "X := 1;"}, "extra stmt /: X := 1;"},
		{Difference{Kind: KindMismatched, Section: SectionTag, Key: "N", Left: "DINT", Right: "REAL"}, "mismatched tag N: DINT <> REAL"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.d.String())
	}
}
