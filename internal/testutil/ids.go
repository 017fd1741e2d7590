package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator returns run IDs numbered from 1:
// "run-0001", "run-0002", ...
//
// Thread-safety: all methods are safe for concurrent use.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	seq    int
}

// NewSequenceGenerator creates a generator with the given prefix. An empty
// prefix means "run".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "run"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%04d", g.prefix, g.seq)
}

// Reset starts the numbering over.
func (g *SequenceGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}

// FixedGenerator returns the same ID every time, for idempotency tests.
type FixedGenerator struct {
	id string
}

// NewFixedGenerator creates a FixedGenerator. An empty id means
// "run-fixed".
func NewFixedGenerator(id string) *FixedGenerator {
	if id == "" {
		id = "run-fixed"
	}
	return &FixedGenerator{id: id}
}

// Generate returns the fixed ID.
func (g *FixedGenerator) Generate() string {
	return g.id
}
