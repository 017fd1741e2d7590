package ladder

import (
	"strconv"
	"strings"
)

// Namespace tracks tag names in use so synthesized names never collide.
// Comparison is case-insensitive. A Namespace is not safe for concurrent
// use.
type Namespace struct {
	taken map[string]bool
}

// NewNamespace returns a namespace holding names.
func NewNamespace(names ...string) *Namespace {
	n := &Namespace{taken: make(map[string]bool, len(names))}
	for _, name := range names {
		n.Add(name)
	}
	return n
}

// Add marks name as used.
func (n *Namespace) Add(name string) {
	n.taken[strings.ToUpper(name)] = true
}

// Has reports whether name is used.
func (n *Namespace) Has(name string) bool {
	return n.taken[strings.ToUpper(name)]
}

// Reserve returns base, or base_2, base_3 ... when base is taken, and marks
// the result as used.
func (n *Namespace) Reserve(base string) string {
	name := base
	for k := 2; n.Has(name); k++ {
		name = base + "_" + strconv.Itoa(k)
	}
	n.Add(name)
	return name
}

// Release frees names reserved for a rung that was abandoned.
func (n *Namespace) Release(names ...string) {
	for _, name := range names {
		delete(n.taken, strings.ToUpper(name))
	}
}
