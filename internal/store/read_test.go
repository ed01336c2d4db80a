package store

import (
	"context"
	"reflect"
	"testing"

	"github.com/roach88/tierprobe/internal/ir"
)

func TestReadCalls_OrderAndFilter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	calls := []ir.CallRecord{
		{RunID: "run-1", Seq: 3, Function: "store", Operand: `{"x":1}`, Outcome: ir.OutcomeSucceeded, Feedback: "monomorphic({x})", Tier: "prepared_for_optimization"},
		{RunID: "run-1", Seq: 1, Function: "load", Operand: `{"x":0}`, Outcome: ir.OutcomeSucceeded, Feedback: "monomorphic({x})", Tier: "prepared_for_optimization"},
		{RunID: "run-1", Seq: 2, Function: "load", Outcome: ir.OutcomeRaised, Error: "MISSING_OPERAND", Feedback: "monomorphic({x})", Tier: "optimized"},
	}
	for _, c := range calls {
		if err := s.WriteCall(ctx, c); err != nil {
			t.Fatalf("WriteCall(%d) failed: %v", c.Seq, err)
		}
	}
	// Same (run_id, seq) again is ignored.
	if err := s.WriteCall(ctx, calls[0]); err != nil {
		t.Fatalf("duplicate WriteCall() failed: %v", err)
	}

	all, err := s.ReadCalls(ctx, "run-1", "")
	if err != nil {
		t.Fatalf("ReadCalls() failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ReadCalls() returned %d calls, want 3", len(all))
	}
	for i, c := range all {
		if c.Seq != int64(i+1) {
			t.Errorf("call[%d].Seq = %d, want %d", i, c.Seq, i+1)
		}
	}
	if !reflect.DeepEqual(all[1], calls[2]) {
		t.Errorf("absent-operand call = %+v, want %+v", all[1], calls[2])
	}

	loads, err := s.ReadCalls(ctx, "run-1", "load")
	if err != nil {
		t.Fatalf("ReadCalls(load) failed: %v", err)
	}
	if len(loads) != 2 {
		t.Errorf("ReadCalls(load) returned %d calls, want 2", len(loads))
	}

	none, err := s.ReadCalls(ctx, "run-2", "")
	if err != nil {
		t.Fatalf("ReadCalls(run-2) failed: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("ReadCalls(run-2) = %#v, want empty non-nil slice", none)
	}
}

func TestReadTransitions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	want := []ir.TransitionRecord{
		{RunID: "run-1", Seq: 1, Function: "load", From: "unoptimized", To: "prepared_for_optimization"},
		{RunID: "run-1", Seq: 3002, Function: "load", From: "prepared_for_optimization", To: "optimized", RaisedError: true, Stable: true},
	}
	for i := len(want) - 1; i >= 0; i-- {
		if err := s.WriteTransition(ctx, want[i]); err != nil {
			t.Fatalf("WriteTransition() failed: %v", err)
		}
	}

	got, err := s.ReadTransitions(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadTransitions() failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadTransitions() = %+v, want %+v", got, want)
	}
}

func TestReadRuns_Ordered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	empty, err := s.ReadRuns(ctx)
	if err != nil {
		t.Fatalf("ReadRuns() failed: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("ReadRuns() on empty store = %#v, want empty non-nil slice", empty)
	}

	createTestRun(t, s, "run-b")
	createTestRun(t, s, "run-a")

	runs, err := s.ReadRuns(ctx)
	if err != nil {
		t.Fatalf("ReadRuns() failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-a" || runs[1].ID != "run-b" {
		t.Errorf("ReadRuns() order = %+v", runs)
	}
}
