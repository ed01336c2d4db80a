// Package tier implements the per-function tier state machine.
//
// STATES:
//
//	unoptimized --Prepare--> prepared_for_optimization --boundary--> optimized
//
// Optimization is requested with RequestOptimizeOnNextCall and installed
// lazily at the next call boundary, mirroring the delay between asking for
// optimized code and having it.
//
// CRITICAL PATTERNS:
//
// Error-tolerant promotion:
// A pending request is honored at the next boundary whether that call
// succeeded or raised. Raising an error on the triggering call never
// suppresses or undoes the transition.
//
// Terminal optimized state:
// Once optimized, the tier never changes again. No deoptimization path is
// modeled.
//
// Feedback is consulted only to annotate confidence (ic.IsStable); it never
// blocks promotion.
package tier
