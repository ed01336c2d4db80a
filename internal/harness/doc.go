// Package harness drives registered functions through tiering scenarios.
//
// The harness is the only caller of engine.Function.Execute. It owns the
// call boundary: every call produces an ir.CallOutcome that is delivered to
// the function's tier machine, and a MissingOperandError raised by the body
// is caught here and turned into CallOutcome.RaisedError. Every other error
// (InvalidSiteKind, unknown function, a refused optimization request)
// propagates to the caller unmodified and no boundary is delivered.
//
// # Scenario Format
//
// Scenarios are YAML files decoded strictly (unknown fields are errors):
//
//	name: probe-load
//	description: "optimization survives a raising call"
//	functions: [load]
//	steps:
//	  - prepare: load
//	  - repeat:
//	      times: 1000
//	      steps:
//	        - invoke: load
//	          operand: { x: "${i}" }
//	        - invoke: load
//	          operand: { x: "${i}" }
//	        - optimize_on_next_call: load
//	        - invoke: load
//	          absent: true
//	          catch: true
//	  - assert_optimized: load
//	assertions:
//	  - type: feedback
//	    function: load
//	    feedback: monomorphic
//
// Inside a repeat block the string "${i}" is replaced by the loop index
// (innermost loop). A value that is exactly "${i}" becomes an integer.
//
// An invoke without catch: true halts the scenario when the call raises.
// assert_optimized steps halt the scenario when they fail. Assertions run
// after the last step and only when the scenario did not halt.
//
// # Deterministic Runs
//
// Each run gets a fresh engine with a logical clock starting at zero, so
// sequence numbers in transitions and golden snapshots are reproducible.
package harness
