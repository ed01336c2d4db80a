package ir

import "fmt"

// Tier is the execution mode of a function.
// Transitions only move forward: Unoptimized -> Prepared -> Optimized.
type Tier int

const (
	TierUnoptimized Tier = iota
	TierPrepared
	TierOptimized
)

// String returns the tier name used in logs, traces, and scenario files.
func (t Tier) String() string {
	switch t {
	case TierUnoptimized:
		return "unoptimized"
	case TierPrepared:
		return "prepared_for_optimization"
	case TierOptimized:
		return "optimized"
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// ParseTier converts a tier name back into a Tier.
func ParseTier(s string) (Tier, error) {
	for _, t := range []Tier{TierUnoptimized, TierPrepared, TierOptimized} {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown tier %q", s)
}

// MarshalText encodes the tier by name.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier name.
func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// CallOutcome is produced for each call and consumed by the tier machine.
// Exactly one of Succeeded and RaisedError is true.
type CallOutcome struct {
	Succeeded   bool `json:"succeeded"`
	RaisedError bool `json:"raised_error"`
}

// Success is the outcome of a call that ran to completion.
func Success() CallOutcome {
	return CallOutcome{Succeeded: true}
}

// Raised is the outcome of a call that raised an error.
func Raised() CallOutcome {
	return CallOutcome{RaisedError: true}
}

// FunctionSpec is a compiled function declaration.
//
// Op is the access the function body performs; Site is the inline cache
// site wired to it. They agree in every correct spec. A mismatch is a
// wiring bug reported as InvalidSiteKind on the first call.
type FunctionSpec struct {
	Name string       `json:"name"`
	Op   SiteKind     `json:"op"`
	Site PropertySite `json:"site"`
}

// StoreValue is the constant a store function writes (o.x = -1).
const StoreValue = IRInt(-1)

// DefaultPolymorphicBound is the number of distinct shapes a site tracks
// before going megamorphic.
const DefaultPolymorphicBound = 4

// Policy configures the tiering model.
type Policy struct {
	// PolymorphicBound is the maximum number of shapes tracked per site.
	// Must be >= 1. With 1, a second shape goes straight to megamorphic.
	PolymorphicBound int `json:"polymorphic_bound"`

	// RequirePreparation rejects optimization requests for functions that
	// were never prepared for optimization.
	RequirePreparation bool `json:"require_preparation"`
}

// DefaultPolicy returns the policy used when specs declare none.
func DefaultPolicy() Policy {
	return Policy{
		PolymorphicBound:   DefaultPolymorphicBound,
		RequirePreparation: true,
	}
}

// Validate checks policy invariants.
func (p Policy) Validate() error {
	if p.PolymorphicBound < 1 {
		return fmt.Errorf("polymorphic_bound must be >= 1, got %d", p.PolymorphicBound)
	}
	return nil
}
