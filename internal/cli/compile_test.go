package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tierprobe/internal/compiler"
	"github.com/roach88/tierprobe/internal/ir"
	"github.com/roach88/tierprobe/internal/testutil"
)

func TestCompileCommand_Text(t *testing.T) {
	dir := testutil.WriteSpecs(t, map[string]string{"probe.cue": testutil.ProbeSpecs})

	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	stdout, _, err := execute(t, cmd, dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Compiled 2 function(s)")
	assert.Contains(t, stdout, "site=load x")
	assert.Contains(t, stdout, "Engine: >=0.1.0")
}

func TestCompileCommand_OutputFile(t *testing.T) {
	dir := testutil.WriteSpecs(t, map[string]string{"probe.cue": testutil.ProbeSpecs})
	out := filepath.Join(t.TempDir(), "specs.json")

	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	stdout, _, err := execute(t, cmd, "-o", out, dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Output written to: "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var specs compiler.Specs
	require.NoError(t, json.Unmarshal(data, &specs))
	assert.Equal(t, ir.DefaultPolicy(), specs.Policy)
	assert.Equal(t, []ir.FunctionSpec{
		{Name: "load", Op: ir.SiteLoad, Site: ir.PropertySite{Kind: ir.SiteLoad, Key: "x"}},
		{Name: "store", Op: ir.SiteStore, Site: ir.PropertySite{Kind: ir.SiteStore, Key: "x"}},
	}, specs.Functions)
}

func TestCompileCommand_JSON(t *testing.T) {
	dir := testutil.WriteSpecs(t, map[string]string{"probe.cue": testutil.ProbeSpecs})

	cmd := NewCompileCommand(&RootOptions{Format: "json"})
	stdout, _, err := execute(t, cmd, dir)
	require.NoError(t, err)

	var specs compiler.Specs
	resp := decodeResponse(t, stdout, &specs)
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, specs.Functions, 2)
}

func TestCompileCommand_Errors(t *testing.T) {
	dir := testutil.WriteSpecs(t, map[string]string{"bad.cue": badFunctions})

	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	stdout, _, err := execute(t, cmd, dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "compilation failed with 2 error(s)")
	assert.Contains(t, stdout, "function.a")
	assert.Contains(t, stdout, "function.b")
}

func TestCompileCommand_WriteFailure(t *testing.T) {
	dir := testutil.WriteSpecs(t, map[string]string{"probe.cue": testutil.ProbeSpecs})

	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	stdout, _, err := execute(t, cmd, "-o", filepath.Join(t.TempDir(), "missing", "specs.json"), dir)
	require.Error(t, err)
	assert.Contains(t, stdout, "Error [E007]")
}
