package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tierprobe/internal/ir"
)

// Golden files live in testdata/golden. Regenerate with:
//
//	go test ./internal/harness -run TestRunWithGolden -update
func TestRunWithGolden_Probes(t *testing.T) {
	for _, kind := range []ir.SiteKind{ir.SiteLoad, ir.SiteStore} {
		t.Run(string(kind), func(t *testing.T) {
			scenario, err := ProbeScenario("", kind, DefaultProbeIterations)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario, probeSpecs(), RunOptions{})
			require.NoError(t, err)
			assert.True(t, result.Pass)
		})
	}
}

func TestRunWithGolden_Miswired(t *testing.T) {
	scenario := &Scenario{
		Name:        "miswired",
		Description: "store body wired to a load site halts before any tier logic",
		Functions:   []string{"miswired"},
		Steps: []Step{
			{Prepare: "miswired"},
			{OptimizeOnNextCall: "miswired"},
			{Invoke: "miswired", Operand: map[string]any{"x": 1}},
			{AssertOptimized: "miswired"},
		},
		ExpectError: "INVALID_SITE_KIND",
	}
	specs := []ir.FunctionSpec{{
		Name: "miswired",
		Op:   ir.SiteStore,
		Site: ir.PropertySite{Kind: ir.SiteLoad, Key: "x"},
	}}

	result, err := RunWithGolden(t, scenario, specs, RunOptions{})
	require.NoError(t, err)
	assert.True(t, result.Pass)
}

func TestSnapshot_Deterministic(t *testing.T) {
	scenario, err := ProbeScenario("", ir.SiteLoad, 10)
	require.NoError(t, err)

	var snapshots [][]byte
	for i := 0; i < 3; i++ {
		result, err := Run(t.Context(), scenario, probeSpecs(), RunOptions{RunID: "ignored"})
		require.NoError(t, err)
		data, err := Snapshot(result)
		require.NoError(t, err)
		snapshots = append(snapshots, data)
	}

	assert.Equal(t, snapshots[0], snapshots[1])
	assert.Equal(t, snapshots[1], snapshots[2])
	assert.NotContains(t, string(snapshots[0]), "ignored", "run IDs are not part of the snapshot")
}

func TestSnapshot_IncludesErrors(t *testing.T) {
	result := NewResult("broken")
	result.AddError("boom")
	result.Halted = "ERROR"

	data, err := Snapshot(result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"counters":{"calls":0,"caught":0,"failed":0},"errors":["boom"],"functions":[],"halted":"ERROR","pass":false,"scenario":"broken","transitions":[]}`,
		string(data))
}
