package store

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/roach88/tierprobe/internal/ir"
)

func TestWriteRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	want := createTestRun(t, s, "run-1")

	// Duplicate write is ignored.
	if err := s.WriteRun(ctx, want); err != nil {
		t.Fatalf("duplicate WriteRun() failed: %v", err)
	}

	got, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadRun() = %+v, want %+v", got, want)
	}
}

func TestFinishRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")

	if err := s.FinishRun(ctx, "run-1", false, []string{"not optimized"}); err != nil {
		t.Fatalf("FinishRun() failed: %v", err)
	}

	got, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if !got.Finished || got.Pass {
		t.Errorf("finished=%v pass=%v, want finished and failed", got.Finished, got.Pass)
	}
	if !reflect.DeepEqual(got.Errors, []string{"not optimized"}) {
		t.Errorf("errors = %v", got.Errors)
	}

	err = s.FinishRun(ctx, "missing", true, nil)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("FinishRun(missing) = %v, want not found", err)
	}
}

func TestWriteCall_RequiresRun(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteCall(context.Background(), ir.CallRecord{
		RunID: "ghost", Seq: 1, Function: "load", Outcome: ir.OutcomeSucceeded,
		Feedback: "monomorphic({x})", Tier: "prepared_for_optimization",
	})
	if err == nil {
		t.Fatal("WriteCall() without run succeeded, want foreign key error")
	}
}

func TestWriteCall_RejectsUnknownOutcome(t *testing.T) {
	s := createTestStore(t)
	createTestRun(t, s, "run-1")

	err := s.WriteCall(context.Background(), ir.CallRecord{
		RunID: "run-1", Seq: 1, Function: "load", Outcome: "exploded",
		Feedback: "uninitialized", Tier: "unoptimized",
	})
	if err == nil {
		t.Fatal("WriteCall() with bad outcome succeeded, want CHECK failure")
	}
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "nope")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("ReadRun() error = %v, want ErrRunNotFound", err)
	}
}
