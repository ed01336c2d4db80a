package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const (
	testSpecsDir     = "../../testdata/specs"
	testScenariosDir = "../../testdata/scenarios"
)

// execute runs cmd with args and returns what it wrote to stdout and stderr.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// jsonResponse is CLIResponse with the payload left raw.
type jsonResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
	RunID  string          `json:"run_id"`
}

func decodeResponse(t *testing.T, out string, data any) jsonResponse {
	t.Helper()
	var resp jsonResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	if data != nil {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}
