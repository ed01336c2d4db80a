package ic

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/tierprobe/internal/ir"
)

// FeedbackKind is the specificity level of a site's inline cache.
type FeedbackKind uint8

const (
	Uninitialized FeedbackKind = iota
	Monomorphic                // Single shape cached
	Polymorphic                // Multiple shapes cached, up to the bound
	Megamorphic                // Too many shapes, nothing cached
)

// String returns the lowercase name used in traces and scenario files.
func (k FeedbackKind) String() string {
	switch k {
	case Uninitialized:
		return "uninitialized"
	case Monomorphic:
		return "monomorphic"
	case Polymorphic:
		return "polymorphic"
	case Megamorphic:
		return "megamorphic"
	}
	return fmt.Sprintf("feedback(%d)", uint8(k))
}

// ParseFeedbackKind converts a name back into a FeedbackKind.
func ParseFeedbackKind(s string) (FeedbackKind, error) {
	for _, k := range []FeedbackKind{Uninitialized, Monomorphic, Polymorphic, Megamorphic} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown feedback kind %q", s)
}

// FeedbackState is an immutable snapshot of a site's feedback.
type FeedbackState struct {
	Kind   FeedbackKind
	Shapes []ir.Shape // Recorded shapes, most recent first; empty when megamorphic
	Bound  int        // Polymorphic bound in effect when the snapshot was taken
}

// String renders e.g. "polymorphic({x},{x,y})".
func (s FeedbackState) String() string {
	switch s.Kind {
	case Monomorphic, Polymorphic:
		parts := make([]string, len(s.Shapes))
		for i, shape := range s.Shapes {
			parts[i] = string(shape)
		}
		return fmt.Sprintf("%s(%s)", s.Kind, strings.Join(parts, ","))
	}
	return s.Kind.String()
}

// Has reports whether the snapshot includes the given shape.
func (s FeedbackState) Has(shape ir.Shape) bool {
	return slices.Contains(s.Shapes, shape)
}

// IsStable reports whether feedback is good enough to specialize on:
// monomorphic, or polymorphic within its bound.
// The tier machine uses it only to annotate promotion confidence.
func IsStable(s FeedbackState) bool {
	switch s.Kind {
	case Monomorphic:
		return true
	case Polymorphic:
		return s.Bound < 1 || len(s.Shapes) <= s.Bound
	}
	return false
}
