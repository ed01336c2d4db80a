package ic

import (
	"slices"

	"github.com/roach88/tierprobe/internal/ir"
)

// Stats counts cache activity for one site.
type Stats struct {
	Hits    uint64 `json:"hits"`    // Shape already cached
	Misses  uint64 `json:"misses"`  // New shape, or any access while megamorphic
	Skipped uint64 `json:"skipped"` // Calls with an absent operand
}

// Recorder tracks the feedback of a single property site.
type Recorder struct {
	site    ir.PropertySite
	bound   int
	kind    FeedbackKind
	entries []ir.Shape // most recently hit first
	stats   Stats
}

// NewRecorder creates an uninitialized recorder for site.
// Bounds below 1 fall back to ir.DefaultPolymorphicBound.
func NewRecorder(site ir.PropertySite, bound int) *Recorder {
	if bound < 1 {
		bound = ir.DefaultPolymorphicBound
	}
	return &Recorder{
		site:    site,
		bound:   bound,
		kind:    Uninitialized,
		entries: make([]ir.Shape, 0, bound),
	}
}

// Site returns the property site this recorder describes.
func (r *Recorder) Site() ir.PropertySite {
	return r.site
}

// Stats returns the hit/miss counters.
func (r *Recorder) Stats() Stats {
	return r.stats
}

// State returns a snapshot of the current feedback.
func (r *Recorder) State() FeedbackState {
	return FeedbackState{
		Kind:   r.kind,
		Shapes: slices.Clone(r.entries),
		Bound:  r.bound,
	}
}

// Record observes one access and returns the resulting feedback.
//
// An access of the wrong kind fails with *InvalidSiteKindError before
// anything is touched. An absent operand observes nothing and returns the
// current state unchanged.
func (r *Recorder) Record(access ir.SiteKind, op ir.Operand) (FeedbackState, error) {
	if access != r.site.Kind {
		return r.State(), &InvalidSiteKindError{Site: r.site, Access: access}
	}

	shape, ok := op.Shape()
	if !ok {
		r.stats.Skipped++
		return r.State(), nil
	}

	r.observe(shape)
	return r.State(), nil
}

func (r *Recorder) observe(shape ir.Shape) {
	switch r.kind {
	case Uninitialized:
		r.kind = Monomorphic
		r.entries = append(r.entries[:0], shape)
		r.stats.Misses++

	case Monomorphic, Polymorphic:
		if i := slices.Index(r.entries, shape); i >= 0 {
			r.stats.Hits++
			// Move hit entry to front
			if i > 0 {
				copy(r.entries[1:i+1], r.entries[0:i])
				r.entries[0] = shape
			}
			return
		}

		r.stats.Misses++
		if len(r.entries) >= r.bound {
			// Too many shapes - stop caching
			r.kind = Megamorphic
			r.entries = r.entries[:0]
			return
		}
		r.kind = Polymorphic
		r.entries = slices.Insert(r.entries, 0, shape)

	case Megamorphic:
		r.stats.Misses++
	}
}
