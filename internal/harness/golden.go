package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tierprobe/internal/ir"
)

// GoldenDir is where golden snapshots live, relative to the test package.
const GoldenDir = "testdata/golden"

// Snapshot renders the deterministic part of a result as canonical JSON.
// Run IDs are excluded so persisted and in-memory runs snapshot the same.
func Snapshot(result *Result) ([]byte, error) {
	return ir.MarshalCanonical(snapshotMap(result))
}

// snapshotMap converts a Result to a map[string]any for canonical JSON
// serialization. ir.MarshalCanonical only handles IR types and primitives.
func snapshotMap(r *Result) map[string]any {
	functions := make([]any, len(r.Functions))
	for i, fn := range r.Functions {
		functions[i] = map[string]any{
			"name":     fn.Name,
			"site":     fn.Site,
			"tier":     fn.Tier,
			"pending":  fn.Pending,
			"feedback": fn.Feedback,
			"stable":   fn.Stable,
			"calls":    int64(fn.Calls.Calls),
			"raised":   int64(fn.Calls.Raised),
			"hits":     int64(fn.Hits),
			"misses":   int64(fn.Misses),
			"skipped":  int64(fn.Skipped),
		}
	}

	transitions := make([]any, len(r.Transitions))
	for i, tr := range r.Transitions {
		transitions[i] = map[string]any{
			"seq":          tr.Seq,
			"function":     tr.Function,
			"from":         tr.From.String(),
			"to":           tr.To.String(),
			"raised_error": tr.RaisedError,
			"stable":       tr.Stable,
		}
	}

	out := map[string]any{
		"scenario":    r.Scenario,
		"pass":        r.Pass,
		"functions":   functions,
		"transitions": transitions,
		"counters": map[string]any{
			"calls":  r.Counters.Calls,
			"caught": r.Counters.Caught,
			"failed": r.Counters.Failed,
		},
	}
	if len(r.Errors) > 0 {
		out["errors"] = r.Errors
	}
	if r.Halted != "" {
		out["halted"] = r.Halted
	}
	return out
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, specs []ir.FunctionSpec, opts RunOptions) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, specs, opts)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
