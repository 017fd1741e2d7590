package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestBooleanFolding tests the constant folding of Not, And and Or.
func TestBooleanFolding(t *testing.T) {
	a := Name("A")

	assert.Same(t, a, And(nil, a))
	assert.Same(t, a, And(True, a))
	assert.Same(t, a, And(a, True))
	assert.True(t, IsFalse(And(a, False)))

	assert.Same(t, a, Or(nil, a))
	assert.Same(t, a, Or(False, a))
	assert.True(t, IsTrue(Or(a, True)))

	assert.True(t, IsFalse(Not(True)))
	assert.True(t, IsTrue(Not(False)))
	assert.Same(t, a, Not(Not(a)))

	and := And(a, Name("B"))
	assert.Equal(t, &Binary{Op: OpAnd, X: a, Y: Name("B")}, and)
}

// TestParseBinaryOp tests operator token lookup.
func TestParseBinaryOp(t *testing.T) {
	tests := []struct {
		tok  string
		want BinaryOp
	}{
		{"and", OpAnd},
		{"&", OpAnd},
		{"<>", OpNe},
		{"mod", OpMod},
		{"**", OpPow},
	}
	for _, tt := range tests {
		t.Run(tt.tok, func(t *testing.T) {
			op, ok := ParseBinaryOp(tt.tok)
			assert.True(t, ok)
			assert.Equal(t, tt.want, op)
		})
	}
	_, ok := ParseBinaryOp("??")
	assert.False(t, ok)
}

// TestPrecedence tests that operators bind in ST order.
func TestPrecedence(t *testing.T) {
	order := []BinaryOp{OpOr, OpXor, OpAnd, OpEq, OpAdd, OpMul, OpPow}
	for i := 1; i < len(order); i++ {
		assert.Less(t, order[i-1].Precedence(), order[i].Precedence(), order[i].String())
	}
	assert.True(t, OpLe.IsComparison())
	assert.False(t, OpAdd.IsComparison())
	assert.True(t, OpXor.IsLogical())
}

// TestRefString tests rendering of member and index selectors.
func TestRefString(t *testing.T) {
	r := &Ref{Name: "Tank", Path: []Selector{{Field: "Level"}, {Index: Int(3)}, {Index: Name("i")}}}
	assert.Equal(t, "Tank.Level[3][i]", r.String())

	d := r.Dot("Hi")
	assert.Equal(t, "Tank.Level[3][i].Hi", d.String())
	assert.Len(t, r.Path, 3, "Dot must not modify the receiver")
}

// TestGuard tests guard simplification.
func TestGuard(t *testing.T) {
	s := &Assign{Target: Name("Y"), Value: True}

	assert.Equal(t, []Stmt{s}, Guard(True, s))
	assert.Equal(t, []Stmt{s}, Guard(nil, s))
	assert.Nil(t, Guard(False, s))
	assert.Nil(t, Guard(Name("C")))

	got := Guard(Name("C"), s)
	if assert.Len(t, got, 1) {
		assert.Equal(t, &If{Branches: []Branch{{Cond: Name("C"), Body: []Stmt{s}}}}, got[0])
	}
}
