package harness

import (
	"fmt"

	"github.com/roach88/tierprobe/internal/ir"
)

// DefaultProbeIterations is the loop count of the reference probe.
const DefaultProbeIterations = 1000

// ProbeKey is the property the probe functions access.
const ProbeKey = "x"

// ProbeSpec returns the built-in probe function for kind: a function named
// after its access ("load" or "store") with a site on key x.
func ProbeSpec(kind ir.SiteKind) ir.FunctionSpec {
	return ir.FunctionSpec{
		Name: string(kind),
		Op:   kind,
		Site: ir.PropertySite{Kind: kind, Key: ProbeKey},
	}
}

// ProbeScenario builds the load/store probe:
//
//	prepare(fn)
//	repeat iterations times:
//	    fn({x: i}); fn({x: i})
//	    optimize_on_next_call(fn)
//	    fn() with the raised error discarded
//	assert_optimized(fn)
//
// The first absent call is the one that triggers optimization, so the
// function must reach the optimized tier on a call that raised. An empty
// name defaults to "probe-<kind>".
func ProbeScenario(name string, kind ir.SiteKind, iterations int) (*Scenario, error) {
	if _, err := ir.ParseSiteKind(string(kind)); err != nil {
		return nil, err
	}
	if iterations < 1 {
		return nil, fmt.Errorf("iterations must be >= 1, got %d", iterations)
	}
	if name == "" {
		name = "probe-" + string(kind)
	}

	fn := string(kind)
	operand := map[string]any{ProbeKey: loopVar}
	scenario := &Scenario{
		Name:        name,
		Description: fmt.Sprintf("%s optimization survives a call that raises on a missing operand", fn),
		Functions:   []string{fn},
		Steps: []Step{
			{Prepare: fn},
			{Repeat: &RepeatStep{
				Times: iterations,
				Steps: []Step{
					{Invoke: fn, Operand: operand},
					{Invoke: fn, Operand: operand},
					{OptimizeOnNextCall: fn},
					{Invoke: fn, Absent: true, Catch: true},
				},
			}},
			{AssertOptimized: fn},
		},
		Assertions: []Assertion{
			{Type: AssertOptimized, Function: fn},
			{Type: AssertFeedback, Function: fn, Feedback: "monomorphic"},
		},
	}
	if err := ValidateScenario(scenario); err != nil {
		return nil, err
	}
	return scenario, nil
}
