package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tierprobe/internal/engine"
	"github.com/roach88/tierprobe/internal/harness"
	"github.com/roach88/tierprobe/internal/store"
	"github.com/roach88/tierprobe/internal/testutil"
)

func scenarioPath(name string) string {
	return filepath.Join(testScenariosDir, name+".yaml")
}

func TestRunCommand_ProbeLoad(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	stdout, stderr, err := execute(t, cmd, testSpecsDir, scenarioPath("probe-load"))
	require.NoError(t, err)

	assert.Contains(t, stdout, "Scenario: probe-load")
	assert.Contains(t, stdout, "monomorphic({x})")
	assert.Contains(t, stdout, "Calls: 3000  Caught: 1000  Failed: 0")
	assert.Contains(t, stdout, "prepared_for_optimization -> optimized (raised, stable)")
	assert.Contains(t, stdout, "PASS")
	assert.NotContains(t, stdout, "Run:", "nothing persisted without --db")
	assert.Contains(t, stderr, "W201", "spec warnings are reported")
}

func TestRunCommand_JSON(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{Format: "json"})
	stdout, _, err := execute(t, cmd, testSpecsDir, scenarioPath("miswired"))
	require.NoError(t, err)

	var result harness.Result
	resp := decodeResponse(t, stdout, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Pass)
	assert.Equal(t, "INVALID_SITE_KIND", result.Halted)
	require.Len(t, result.Functions, 1)
	assert.True(t, result.Functions[0].Pending)
}

func TestRunCommand_Failure(t *testing.T) {
	scenarios := t.TempDir()
	path := testutil.WriteFile(t, scenarios, "unoptimized.yaml", `
name: unoptimized
description: a function that was never asked to optimize
functions: [load]
steps:
  - invoke: load
    operand: { x: 1 }
assertions:
  - type: optimized
    function: load
`)

	cmd := NewRunCommand(&RootOptions{Format: "json"})
	stdout, _, err := execute(t, cmd, testSpecsDir, path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result harness.Result
	resp := decodeResponse(t, stdout, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeScenarioFail, resp.Error.Code)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Actual: unoptimized")
}

func TestRunCommand_PersistsRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	cmd := NewRunCommand(&RootOptions{Format: "text"})
	stdout, _, err := execute(t, cmd, "--db", dbPath, testSpecsDir, scenarioPath("probe-store"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "Run: ")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ReadRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "probe-store", runs[0].Scenario)
	assert.True(t, runs[0].Finished)
	assert.True(t, runs[0].Pass)

	calls, err := st.ReadCalls(context.Background(), runs[0].ID, "")
	require.NoError(t, err)
	assert.Len(t, calls, 3000)
}

func TestRunCommand_FixedRunID(t *testing.T) {
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "json"},
		Database:    filepath.Join(t.TempDir(), "runs.db"),
		RunIDs:      engine.NewFixedRunIDs("run-1"),
	}

	// Call the command body directly so the generator can be injected.
	cmd := NewRunCommand(opts.RootOptions)
	stdout := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(&bytes.Buffer{})
	require.NoError(t, runScenarioFile(opts, testSpecsDir, scenarioPath("probe-load"), cmd))

	resp := decodeResponse(t, stdout.String(), nil)
	assert.Equal(t, "run-1", resp.RunID)
}

func TestRunCommand_CommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing specs", []string{"/nonexistent/specs", scenarioPath("probe-load")}, "failed to compile specs"},
		{"missing scenario", []string{testSpecsDir, "/nonexistent/scenario.yaml"}, "failed to load scenario"},
		{"unknown function", []string{testutil.WriteSpecs(t, map[string]string{
			"one.cue": "package specs\nfunction: other: site: {kind: \"load\", key: \"x\"}",
		}), scenarioPath("probe-load")}, `function "load" is not defined in specs`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewRunCommand(&RootOptions{Format: "text"})
			_, _, err := execute(t, cmd, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunCommand_MissingArgs(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	_, _, err := execute(t, cmd, testSpecsDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg")
}
