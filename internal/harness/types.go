package harness

import (
	"github.com/roach88/tierprobe/internal/engine"
	"github.com/roach88/tierprobe/internal/tier"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Scenario is the scenario name.
	Scenario string `json:"scenario"`

	// RunID identifies the run in a Sink. Empty when nothing was persisted.
	RunID string `json:"run_id,omitempty"`

	// Pass is true when no step halted unexpectedly and every assertion held.
	Pass bool `json:"pass"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Halted is the code of the error that stopped the scenario, if any.
	Halted string `json:"halted,omitempty"`

	// Functions summarizes every registered function in registration order.
	Functions []FunctionSummary `json:"functions"`

	// Transitions lists every tier transition in seq order.
	Transitions []tier.Transition `json:"transitions"`

	// Counters totals call outcomes across all functions.
	Counters Counters `json:"counters"`
}

// FunctionSummary is the final state of one function.
type FunctionSummary struct {
	Name     string           `json:"name"`
	Site     string           `json:"site"`
	Tier     string           `json:"tier"`
	Pending  bool             `json:"pending"`
	Feedback string           `json:"feedback"`
	Stable   bool             `json:"stable"`
	Calls    engine.CallStats `json:"calls"`
	Hits     uint64           `json:"hits"`
	Misses   uint64           `json:"misses"`
	Skipped  uint64           `json:"skipped"`
}

// Counters totals call outcomes.
type Counters struct {
	Calls  int64 `json:"calls"`  // call boundaries delivered
	Caught int64 `json:"caught"` // calls that raised and were caught
	Failed int64 `json:"failed"` // calls whose error propagated
}

// NewResult creates a passing result for the named scenario.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario:    scenario,
		Pass:        true,
		Errors:      []string{},
		Functions:   []FunctionSummary{},
		Transitions: []tier.Transition{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
