package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/tierprobe/internal/compiler"
	"github.com/roach88/tierprobe/internal/engine"
	"github.com/roach88/tierprobe/internal/harness"
	"github.com/roach88/tierprobe/internal/ir"
	"github.com/roach88/tierprobe/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <specs-dir> <scenario.yaml>",
		Short: "Run one scenario against compiled specs",
		Long: `Compile the function specs, run one scenario against a fresh engine,
and print the final tier and feedback of every function.

With --db the run is persisted to SQLite (created if missing) under a
new run ID; inspect it later with "tierprobe trace".

Example:
  tierprobe run ./specs ./scenarios/probe-load.yaml
  tierprobe run ./specs ./scenarios/probe-load.yaml --db ./runs.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "persist the run to this SQLite database")

	return cmd
}

func runScenarioFile(opts *RunOptions, specsDir, scenarioPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	logger.Debug("compiling specs", "dir", specsDir)
	specs, findings, err := requireSpecs(specsDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compile specs", err)
	}
	printWarnings(formatter, warningsOf(findings))

	scenario, err := harness.LoadScenario(scenarioPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	return executeScenario(cmd, opts, formatter, logger, scenario, specs.Functions, specs.Policy)
}

// executeScenario runs scenario and reports the result. Shared by run
// and probe.
func executeScenario(
	cmd *cobra.Command,
	opts *RunOptions,
	formatter *OutputFormatter,
	logger *slog.Logger,
	scenario *harness.Scenario,
	functions []ir.FunctionSpec,
	policy ir.Policy,
) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runOpts := harness.RunOptions{Policy: &policy, Logger: logger}

	if opts.Database != "" {
		logger.Debug("opening database", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		runIDs := opts.RunIDs
		if runIDs == nil {
			runIDs = engine.UUIDv7Generator{}
		}
		runOpts.Sink = st
		runOpts.RunID = runIDs.Generate()
	}

	result, err := harness.Run(ctx, scenario, functions, runOpts)
	if err != nil {
		var sinkErr *harness.SinkError
		if errors.As(err, &sinkErr) {
			return WrapExitError(ExitCommandError, "failed to persist run", err)
		}
		if errors.Is(err, context.Canceled) {
			return WrapExitError(ExitFailure, "run interrupted", err)
		}
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	return outputRunResult(formatter, result)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func warningsOf(findings []compiler.ValidationError) []compiler.ValidationError {
	var out []compiler.ValidationError
	for _, f := range findings {
		if f.IsWarning() {
			out = append(out, f)
		}
	}
	return out
}

func outputRunResult(formatter *OutputFormatter, result *harness.Result) error {
	var failure error
	if !result.Pass {
		failure = NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", result.Scenario))
	}

	if formatter.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: result, RunID: result.RunID}
		if !result.Pass {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeScenarioFail,
				Message: fmt.Sprintf("scenario %s failed", result.Scenario),
				Details: result.Errors,
			}
		}
		if err := formatter.Response(resp); err != nil {
			return err
		}
		return failure
	}

	writeResultText(formatter.Writer, result)
	return failure
}
