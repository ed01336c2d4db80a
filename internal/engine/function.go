package engine

import (
	"github.com/roach88/tierprobe/internal/ic"
	"github.com/roach88/tierprobe/internal/ir"
	"github.com/roach88/tierprobe/internal/tier"
)

// CallStats counts calls that reached a function body.
type CallStats struct {
	Calls  uint64 `json:"calls"`
	Raised uint64 `json:"raised"`
}

// Function is the record of one registered function: its spec, the inline
// cache recorder for its property site, and its tier machine.
// Created on registration and kept for the lifetime of the engine.
type Function struct {
	spec     ir.FunctionSpec
	recorder *ic.Recorder
	machine  *tier.Machine
	stats    CallStats
	written  ir.IRObject // object produced by the last store
}

// Name returns the function name.
func (f *Function) Name() string {
	return f.spec.Name
}

// Spec returns the compiled declaration.
func (f *Function) Spec() ir.FunctionSpec {
	return f.spec
}

// Feedback returns the current inline cache feedback for the site.
func (f *Function) Feedback() ic.FeedbackState {
	return f.recorder.State()
}

// CacheStats returns the site's hit/miss counters.
func (f *Function) CacheStats() ic.Stats {
	return f.recorder.Stats()
}

// Machine returns the function's tier machine.
func (f *Function) Machine() *tier.Machine {
	return f.machine
}

// Stats returns the call counters.
func (f *Function) Stats() CallStats {
	return f.stats
}

// LastWritten returns the object produced by the most recent successful
// store, or nil. The caller's operand is never mutated.
func (f *Function) LastWritten() ir.IRObject {
	return f.written
}

// Execute runs the function body once against op.
//
// Errors:
//   - *ic.InvalidSiteKindError when the body's access does not match the
//     wired site. Nothing is counted or recorded.
//   - *MissingOperandError when op is absent. The call is counted, no
//     feedback is recorded.
func (f *Function) Execute(op ir.Operand) (ir.IRValue, error) {
	// Record validates the site kind before looking at the operand, and
	// observes nothing for an absent operand.
	if _, err := f.recorder.Record(f.spec.Op, op); err != nil {
		return nil, err
	}

	f.stats.Calls++
	if !op.IsPresent() {
		f.stats.Raised++
		return nil, &MissingOperandError{Function: f.spec.Name, Site: f.spec.Site}
	}

	obj := op.Object()
	key := f.spec.Site.Key
	switch f.spec.Op {
	case ir.SiteStore:
		updated := obj.Clone()
		updated[key] = ir.StoreValue
		f.written = updated
		return ir.StoreValue, nil
	default:
		if v, ok := obj[key]; ok && v != nil {
			return v, nil
		}
		return ir.IRNull{}, nil
	}
}
