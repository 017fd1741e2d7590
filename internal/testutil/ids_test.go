package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceGenerator(t *testing.T) {
	gen := NewSequenceGenerator("")
	assert.Equal(t, "run-0001", gen.Generate())
	assert.Equal(t, "run-0002", gen.Generate())

	gen.Reset()
	assert.Equal(t, "run-0001", gen.Generate())

	custom := NewSequenceGenerator("conv")
	assert.Equal(t, "conv-0001", custom.Generate())
}

func TestSequenceGeneratorConcurrent(t *testing.T) {
	gen := NewSequenceGenerator("")
	var mu sync.Mutex
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 500)
}

func TestFixedGenerator(t *testing.T) {
	assert.Equal(t, "run-fixed", NewFixedGenerator("").Generate())

	gen := NewFixedGenerator("abc")
	assert.Equal(t, "abc", gen.Generate())
	assert.Equal(t, "abc", gen.Generate())
}
