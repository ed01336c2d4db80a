package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tierprobe/internal/harness"
	"github.com/roach88/tierprobe/internal/ir"
)

// ProbeOptions holds flags for the probe command.
type ProbeOptions struct {
	RunOptions
	Iterations       int
	PolymorphicBound int
}

// NewProbeCommand creates the probe command.
func NewProbeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProbeOptions{RunOptions: RunOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "probe <load|store>",
		Short: "Run the built-in load/store probe",
		Long: `Run the built-in probe for a load or store function on property x:

  prepare
  repeat N times:
      f({x: i}); f({x: i})
      request optimization on the next call
      f() and discard the raised error
  assert optimized

The probe passes when the function reaches the optimized tier even
though the call that triggered optimization raised, and its feedback
stays monomorphic.

Example:
  tierprobe probe load
  tierprobe probe store --iterations 10 --db ./runs.db`,
		Args:          cobra.ExactArgs(1),
		ValidArgs:     []string{string(ir.SiteLoad), string(ir.SiteStore)},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Iterations, "iterations", "n", harness.DefaultProbeIterations, "loop iterations")
	cmd.Flags().IntVar(&opts.PolymorphicBound, "polymorphic-bound", ir.DefaultPolicy().PolymorphicBound, "shapes tracked per site before megamorphic")
	cmd.Flags().StringVar(&opts.Database, "db", "", "persist the run to this SQLite database")

	return cmd
}

func runProbe(opts *ProbeOptions, kindArg string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	kind, err := ir.ParseSiteKind(kindArg)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid probe kind", err)
	}

	policy := ir.DefaultPolicy()
	policy.PolymorphicBound = opts.PolymorphicBound
	if err := policy.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid policy", err)
	}

	scenario, err := harness.ProbeScenario("", kind, opts.Iterations)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("invalid probe %s", kind), err)
	}

	return executeScenario(cmd, &opts.RunOptions, formatter, logger, scenario,
		[]ir.FunctionSpec{harness.ProbeSpec(kind)}, policy)
}
