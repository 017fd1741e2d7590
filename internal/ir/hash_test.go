package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestStmtHashCaseInsensitive tests that identifier case does not change identity.
func TestStmtHashCaseInsensitive(t *testing.T) {
	a := &Assign{Target: Name("Motor"), Value: &Binary{Op: OpAnd, X: Name("start"), Y: &Lit{Kind: LitBool, Text: "true"}}}
	b := &Assign{Target: Name("MOTOR"), Value: &Binary{Op: OpAnd, X: Name("START"), Y: True}}
	assert.Equal(t, StmtHash(a), StmtHash(b))

	c := &Assign{Target: Name("MOTOR"), Value: &Binary{Op: OpOr, X: Name("START"), Y: True}}
	assert.NotEqual(t, StmtHash(a), StmtHash(c))
}

// TestStmtHashLiteralSpelling tests numeric literal normalization.
func TestStmtHashLiteralSpelling(t *testing.T) {
	a := &Assign{Target: Name("n"), Value: &Lit{Kind: LitInt, Text: "1_000"}}
	b := &Assign{Target: Name("n"), Value: &Lit{Kind: LitInt, Text: "1000"}}
	assert.Equal(t, StmtHash(a), StmtHash(b))
}

// TestStmtHashIgnoresNestedAnnotations tests that comments in bodies do not count.
func TestStmtHashIgnoresNestedAnnotations(t *testing.T) {
	set := &Assign{Target: Name("Y"), Value: True}
	plain := &If{Branches: []Branch{{Cond: Name("C"), Body: []Stmt{set}}}}
	noted := &If{Branches: []Branch{{Cond: Name("C"), Body: []Stmt{&Comment{Text: "x"}, set}}}}
	assert.Equal(t, StmtHash(plain), StmtHash(noted))
}

// TestDigestDeclarationOrder tests that declaration order is irrelevant.
func TestDigestDeclarationOrder(t *testing.T) {
	body := []Stmt{&Assign{Target: Name("A"), Value: Name("B")}}
	p1 := &Program{
		Name: "p",
		Tags: []Tag{{Name: "A", Type: "BOOL"}, {Name: "B", Type: "BOOL"}},
		Body: body,
	}
	p2 := &Program{
		Name: "p",
		Tags: []Tag{{Name: "b", Type: "bool"}, {Name: "a", Type: "BOOL"}},
		Body: body,
	}
	assert.Equal(t, Digest(p1), Digest(p2))

	p3 := &Program{Name: "p", Tags: p1.Tags, Body: append(CloneStmts(body), &Assign{Target: Name("B"), Value: False})}
	assert.NotEqual(t, Digest(p1), Digest(p3))
	assert.Len(t, Digest(p1), 64)
}

// TestSourceDigest tests that raw input is hashed under its own domain.
func TestSourceDigest(t *testing.T) {
	a := SourceDigest([]byte("PROGRAM p END_PROGRAM"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, SourceDigest([]byte("PROGRAM p END_PROGRAM")))
	assert.NotEqual(t, a, SourceDigest([]byte("PROGRAM q END_PROGRAM")))
	assert.NotEqual(t, hashWithDomain(DomainStmt, []byte("x")), SourceDigest([]byte("x")))
}
