package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tierprobe/internal/compiler"
	"github.com/roach88/tierprobe/internal/testutil"
)

func TestValidateCommand_Valid(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	stdout, stderr, err := execute(t, cmd, testSpecsDir)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Specs valid: 3 function(s)")
	assert.Contains(t, stdout, "Policy: polymorphic_bound=4 require_preparation=true")
	assert.Contains(t, stderr, "warning: [W201] function.miswired.op")
}

func TestValidateCommand_JSON(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	stdout, _, err := execute(t, cmd, testSpecsDir)
	require.NoError(t, err)

	var result ValidationResult
	resp := decodeResponse(t, stdout, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.ElementsMatch(t, []string{"load", "store", "miswired"}, result.Functions)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, compiler.WarnOpSiteMismatch, result.Warnings[0].Code)
}

func TestValidateCommand_Invalid(t *testing.T) {
	dir := testutil.WriteSpecs(t, map[string]string{"bad.cue": badFunctions})

	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	stdout, _, err := execute(t, cmd, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 2 error(s)")
	assert.Contains(t, stdout, "Validation failed")
	assert.Contains(t, stdout, "[E103]")
	assert.Contains(t, stdout, "[E104]")
}

func TestValidateCommand_InvalidJSON(t *testing.T) {
	dir := testutil.WriteSpecs(t, map[string]string{"empty.cue": "package specs\npolicy: polymorphic_bound: 2"})

	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	stdout, _, err := execute(t, cmd, dir)
	require.Error(t, err)

	var result ValidationResult
	resp := decodeResponse(t, stdout, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, compiler.ErrNoFunctions, resp.Error.Code)
	assert.False(t, result.Valid)
}

func TestValidateCommand_MissingDir(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	stdout, _, err := execute(t, cmd, "/nonexistent/specs")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E005]")
}

func TestValidateCommand_MissingArgs(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	_, _, err := execute(t, cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
