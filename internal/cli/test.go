package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/tierprobe/internal/compiler"
	"github.com/roach88/tierprobe/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
	Jobs   int    // scenarios run in parallel
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden"` // "match", "mismatch", "missing", "updated"
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// Golden comparison states.
const (
	goldenMatch    = "match"
	goldenMismatch = "mismatch"
	goldenMissing  = "missing"
	goldenUpdated  = "updated"
)

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <specs-dir> <scenarios-dir>",
		Short: "Run every scenario and compare with golden snapshots",
		Long: `Run all scenario files in a directory against the specs.

A scenario passes when its steps and assertions hold and its snapshot
matches golden/<name>.golden next to the scenario file. A scenario
without a golden file is judged on its assertions alone.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, invalid specs, etc.)

Examples:
  tierprobe test ./specs ./scenarios
  tierprobe test ./specs ./scenarios --filter "probe-*"
  tierprobe test ./specs ./scenarios --update
  tierprobe test ./specs ./scenarios --jobs 4 --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", runtime.NumCPU(), "scenarios to run in parallel")

	return cmd
}

func runTests(opts *TestOptions, specsDir, scenariosDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	if _, err := os.Stat(specsDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("specs directory not found: %s", specsDir))
	}
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}
	if opts.Jobs < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--jobs must be >= 1, got %d", opts.Jobs))
	}

	specs, findings, err := requireSpecs(specsDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compile specs", err)
	}
	printWarnings(formatter, warningsOf(findings))

	scenarioFiles, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}

	// Every scenario gets its own harness; results land at their file's
	// index so output order does not depend on scheduling.
	g, ctx := errgroup.WithContext(commandContext(cmd))
	g.SetLimit(opts.Jobs)
	for i, file := range scenarioFiles {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := runScenario(ctx, file, specs, opts)
			if err != nil {
				return err
			}
			result.Scenarios[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return WrapExitError(ExitCommandError, "test run aborted", err)
	}

	for _, sr := range result.Scenarios {
		logger.Debug("scenario done", "name", sr.Name, "pass", sr.Pass, "golden", sr.Golden)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if formatter.IsJSON() {
		return outputTestJSON(formatter, result)
	}
	return outputTestText(formatter, result)
}

// findScenarioFiles finds all YAML scenario files in a directory.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	return files, err
}

// runScenario executes one scenario file. Scenario-level problems
// (invalid file, failed assertions, golden mismatch) come back in the
// ScenarioResult; the error is reserved for aborting the whole run.
func runScenario(ctx context.Context, scenarioFile string, specs *compiler.Specs, opts *TestOptions) (ScenarioResult, error) {
	res := ScenarioResult{
		Name: strings.TrimSuffix(filepath.Base(scenarioFile), filepath.Ext(scenarioFile)),
		File: scenarioFile,
	}

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		res.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return res, nil
	}
	res.Name = scenario.Name

	policy := specs.Policy
	result, err := harness.Run(ctx, scenario, specs.Functions, harness.RunOptions{Policy: &policy})
	if err != nil {
		if ctx.Err() != nil {
			return res, err
		}
		res.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return res, nil
	}

	snapshot, err := harness.Snapshot(result)
	if err != nil {
		res.Errors = []string{fmt.Sprintf("failed to snapshot result: %v", err)}
		return res, nil
	}

	goldenPath := goldenFilePath(scenarioFile)
	if opts.Update {
		if err := updateGoldenFile(goldenPath, snapshot); err != nil {
			res.Errors = []string{fmt.Sprintf("failed to update golden file: %v", err)}
			return res, nil
		}
		res.Golden = goldenUpdated
	} else {
		res.Golden, err = compareWithGolden(goldenPath, snapshot)
		if err != nil {
			res.Errors = []string{fmt.Sprintf("golden comparison failed: %v", err)}
			return res, nil
		}
	}

	res.Errors = append(res.Errors, result.Errors...)
	if res.Golden == goldenMismatch {
		res.Errors = append(res.Errors, "snapshot does not match golden file (run with --update to regenerate)")
	}
	res.Pass = len(res.Errors) == 0
	return res, nil
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// updateGoldenFile writes the snapshot as the golden file.
func updateGoldenFile(goldenPath string, snapshot []byte) error {
	if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(goldenPath, snapshot, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// compareWithGolden compares the snapshot against the golden file.
func compareWithGolden(goldenPath string, snapshot []byte) (string, error) {
	goldenData, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		return goldenMissing, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read golden file: %w", err)
	}
	if bytes.Equal(bytes.TrimSpace(goldenData), snapshot) {
		return goldenMatch, nil
	}
	return goldenMismatch, nil
}

func outputTestJSON(formatter *OutputFormatter, result TestResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	if err := formatter.Response(response); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

func outputTestText(formatter *OutputFormatter, result TestResult) error {
	w := formatter.Writer

	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	table := newTable(w, []string{"Scenario", "Result", "Golden"})
	for _, sr := range result.Scenarios {
		status := markPass + " pass"
		if !sr.Pass {
			status = markFail + " fail"
		}
		golden := sr.Golden
		if golden == "" {
			golden = "-"
		}
		table.Append([]string{sr.Name, status, golden})
	}
	table.Render()

	for _, sr := range result.Scenarios {
		if sr.Pass {
			continue
		}
		fmt.Fprintf(w, "\n%s %s (%s)\n", markFail, sr.Name, sr.File)
		for _, e := range sr.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintf(w, "%s All scenarios passed\n", markPass)
	return nil
}
