// Package ic records inline cache feedback for property load/store sites.
//
// Each property site owns one Recorder. A recorder walks the classic
// specificity ladder:
//
//	uninitialized -> monomorphic -> polymorphic -> megamorphic
//
// The ladder only moves up. Megamorphic is terminal; no sequence of calls
// brings a site back to monomorphic.
//
// A call that omits its operand never reaches the property access, so it
// observes no shape and leaves the feedback exactly as it was.
//
// Recorders are not safe for concurrent use. Each one is owned by a single
// function record and mutated by a single harness.
package ic
