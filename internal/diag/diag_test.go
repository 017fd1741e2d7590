package diag

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCodeFatal tests the propagation policy per code.
func TestCodeFatal(t *testing.T) {
	tests := []struct {
		code  Code
		fatal bool
	}{
		{CodeUnsupportedInstruction, false},
		{CodeStructuralCycle, false},
		{CodeTypeMismatch, false},
		{CodeNameCollision, true},
		{CodeMalformedSource, true},
		{CodeMalformedST, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.fatal, tt.code.Fatal())
		})
	}
}

// TestIsFatalWrapped tests error classification through wrapping.
func TestIsFatalWrapped(t *testing.T) {
	cycle := NewCycleError(Location{Routine: "R1"}.AtSheet(2), []string{"ADD_1", "MUL_2"})
	wrapped := fmt.Errorf("translate: %w", cycle)

	assert.True(t, IsCycle(wrapped))
	assert.False(t, IsFatal(wrapped))
	assert.Equal(t, CodeStructuralCycle, CodeOf(wrapped))
	assert.Contains(t, cycle.Error(), "ADD_1, MUL_2")
	assert.Contains(t, cycle.Error(), "R1/sheet 2")

	collision := fmt.Errorf("consolidate: %w", NewCollisionError("Pump", 9))
	assert.True(t, IsFatal(collision))

	assert.True(t, IsFatal(fmt.Errorf("plain")))
	assert.False(t, IsFatal(nil))
}

// TestListSorted tests stable diagnostic ordering.
func TestListSorted(t *testing.T) {
	var l List
	l.Add(Unsupported(Location{Controller: "P2"}.AtRung(1), "XYZ", "unknown mnemonic"))
	l.Add(TypeMismatch(Location{Controller: "P1"}, "Speed", "DINT", "REAL"))
	l.Add(Unsupported(Location{Controller: "P1"}.AtRung(0), "ABC", "unknown mnemonic"))

	sorted := l.Sorted()
	require.Len(t, sorted, 3)
	assert.Equal(t, "P1", sorted[0].Location.Controller)
	assert.Equal(t, "P2", sorted[2].Location.Controller)
	assert.Equal(t, 2, l.Count(CodeUnsupportedInstruction))
	assert.True(t, l.Has(CodeTypeMismatch))

	// Original order is untouched.
	assert.Equal(t, "P2", l[0].Location.Controller)
}
