package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates layer IDs "<prefix>-1", "<prefix>-2", ... so
// snapshots and traces are byte-identical across runs.
//
// Unlike engine.FixedGenerator it never runs out, which suits scenarios
// whose layer count is not known up front.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix becomes "layer".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "layer"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate implements engine.IDGenerator.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
