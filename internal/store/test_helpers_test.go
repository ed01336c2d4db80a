package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/tierprobe/internal/ir"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun writes a run with the default policy.
func createTestRun(t *testing.T, s *Store, id string) ir.RunRecord {
	t.Helper()
	run := ir.RunRecord{
		ID:            id,
		Scenario:      "probe-load",
		Policy:        ir.DefaultPolicy(),
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
	if err := s.WriteRun(context.Background(), run); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	return run
}
