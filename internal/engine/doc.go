// Package engine owns function records and executes their bodies.
//
// The engine stands in for the parts of a runtime the tiering model treats
// as external collaborators: it holds each registered function's property
// site, inline cache recorder, and tier machine, and it runs the two
// supported bodies:
//
//	load(o)  { return o.x }
//	store(o) { o.x = -1 }
//
// ARCHITECTURE:
//
// Single writer:
// Every call runs to completion before the next one starts. Function records
// are mutated only by the harness that owns the engine, so no locking is
// needed. An Engine must not be shared across goroutines without external
// synchronization.
//
// Execution order for one call:
// 1. Site-kind check (InvalidSiteKind, before any tier logic)
// 2. Operand check (MissingOperandError, no feedback recorded)
// 3. Feedback recorded on the site's inline cache
// 4. Body runs (load returns the value, store writes -1)
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Call boundaries and tier transitions are stamped from one monotonic Clock.
// NEVER use wall-clock timestamps for ordering.
package engine
