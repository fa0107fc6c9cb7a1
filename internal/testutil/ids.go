package testutil

import (
	"fmt"
	"sync"
)

// SequencedIDGenerator produces "prefix-1", "prefix-2", ... identifiers.
// Fixture batches get stable ids so golden snapshots and store-level
// idempotency tests are byte-reproducible across runs.
//
// Thread-safety: all methods are safe for concurrent use.
type SequencedIDGenerator struct {
	mu     sync.Mutex
	prefix string
	seq    int
}

// NewSequencedIDGenerator creates a generator with the given prefix.
// The first call to Next() returns "prefix-1".
func NewSequencedIDGenerator(prefix string) *SequencedIDGenerator {
	return &SequencedIDGenerator{prefix: prefix}
}

// Next returns the next identifier in the sequence.
func (g *SequencedIDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}

// Reset rewinds the sequence so a reused generator reproduces the same
// ids. After Reset(), Next() returns "prefix-1" again.
func (g *SequencedIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
