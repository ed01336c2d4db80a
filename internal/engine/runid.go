package engine

import (
	"sync"

	"github.com/google/uuid"
)

// RunIDGenerator produces identifiers for scenario runs.
// Implemented by UUIDv7Generator (production) and FixedRunIDs (tests).
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run IDs, so persisted runs
// list in creation order.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedRunIDs returns predetermined run IDs in order, then repeats the last
// one. Used for deterministic traces and golden files.
type FixedRunIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedRunIDs creates a generator over ids. With no ids it always
// returns "run-fixed".
func NewFixedRunIDs(ids ...string) *FixedRunIDs {
	if len(ids) == 0 {
		ids = []string{"run-fixed"}
	}
	return &FixedRunIDs{ids: ids}
}

// Generate returns the next predetermined ID.
func (g *FixedRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.ids[g.idx]
	if g.idx < len(g.ids)-1 {
		g.idx++
	}
	return id
}
