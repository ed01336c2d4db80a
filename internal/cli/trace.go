package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/tierprobe/internal/ir"
	"github.com/roach88/tierprobe/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Function string // optional - filter to one function
}

// TraceResult holds the persisted log of one run.
type TraceResult struct {
	Run         ir.RunRecord          `json:"run"`
	Calls       []ir.CallRecord       `json:"calls"`
	Transitions []ir.TransitionRecord `json:"transitions"`
	Stats       TraceStats            `json:"stats"`
}

// TraceStats holds summary statistics for a trace.
type TraceStats struct {
	Calls       int `json:"calls"`
	Succeeded   int `json:"succeeded"`
	Raised      int `json:"raised"`
	Failed      int `json:"failed"`
	Transitions int `json:"transitions"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show persisted runs",
		Long: `Show runs persisted with "run --db" or "probe --db".

Without --run, lists every run in the database. With --run, prints the
call log (operand, outcome, feedback and tier after each call) and the
tier transitions of that run in seq order.

Examples:
  tierprobe trace --db ./runs.db
  tierprobe trace --db ./runs.db --run 0192f0c4-...
  tierprobe trace --db ./runs.db --run 0192f0c4-... --function load --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to trace")
	cmd.Flags().StringVar(&opts.Function, "function", "", "filter to one function")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := commandContext(cmd)

	// store.Open creates missing files; trace only reads.
	if _, err := os.Stat(opts.Database); err != nil {
		_ = formatter.Error(ErrCodeDatabase, fmt.Sprintf("database not found: %s", opts.Database), nil)
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		runs, err := st.ReadRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read runs", err)
		}
		return outputRuns(formatter, runs)
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		_ = formatter.Error(ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
		return WrapExitError(ExitCommandError, "run not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	calls, err := st.ReadCalls(ctx, opts.RunID, opts.Function)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read calls", err)
	}
	transitions, err := st.ReadTransitions(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read transitions", err)
	}

	result := buildTrace(run, calls, transitions, opts.Function)
	if formatter.IsJSON() {
		return formatter.Response(CLIResponse{Status: "ok", Data: result, RunID: run.ID})
	}
	outputTraceText(formatter, result)
	return nil
}

// buildTrace assembles a TraceResult, keeping only transitions of
// function when it is set.
func buildTrace(run ir.RunRecord, calls []ir.CallRecord, transitions []ir.TransitionRecord, function string) TraceResult {
	result := TraceResult{
		Run:         run,
		Calls:       calls,
		Transitions: []ir.TransitionRecord{},
	}
	for _, tr := range transitions {
		if function != "" && tr.Function != function {
			continue
		}
		result.Transitions = append(result.Transitions, tr)
	}

	result.Stats.Calls = len(calls)
	result.Stats.Transitions = len(result.Transitions)
	for _, c := range calls {
		switch c.Outcome {
		case ir.OutcomeSucceeded:
			result.Stats.Succeeded++
		case ir.OutcomeRaised:
			result.Stats.Raised++
		default:
			result.Stats.Failed++
		}
	}
	return result
}

func outputRuns(formatter *OutputFormatter, runs []ir.RunRecord) error {
	if formatter.IsJSON() {
		return formatter.Response(CLIResponse{Status: "ok", Data: runs})
	}

	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return nil
	}

	table := newTable(w, []string{"Run", "Scenario", "Finished", "Pass", "Errors"})
	for _, run := range runs {
		table.Append([]string{
			run.ID,
			run.Scenario,
			strconv.FormatBool(run.Finished),
			strconv.FormatBool(run.Pass),
			strconv.Itoa(len(run.Errors)),
		})
	}
	table.Render()
	return nil
}

func outputTraceText(formatter *OutputFormatter, result TraceResult) {
	w := formatter.Writer
	run := result.Run

	status := "unfinished"
	if run.Finished {
		status = markFail + " fail"
		if run.Pass {
			status = markPass + " pass"
		}
	}
	fmt.Fprintf(w, "Run: %s\n", run.ID)
	fmt.Fprintf(w, "Scenario: %s (%s)\n", run.Scenario, status)
	fmt.Fprintf(w, "Engine: %s  IR: %s  Policy: polymorphic_bound=%d require_preparation=%t\n\n",
		run.EngineVersion, run.IRVersion, run.Policy.PolymorphicBound, run.Policy.RequirePreparation)

	if len(result.Calls) == 0 {
		fmt.Fprintln(w, "No calls recorded.")
	} else {
		table := newTable(w, []string{"Seq", "Function", "Operand", "Outcome", "Feedback", "Tier"})
		for _, c := range result.Calls {
			operand := c.Operand
			if operand == "" {
				operand = "(absent)"
			}
			table.Append([]string{
				strconv.FormatInt(c.Seq, 10),
				c.Function,
				operand,
				c.Outcome,
				c.Feedback,
				c.Tier,
			})
		}
		table.Render()
	}

	if len(result.Transitions) > 0 {
		fmt.Fprintln(w, "\nTransitions:")
		for _, tr := range result.Transitions {
			fmt.Fprintf(w, "  %s\n", formatTransitionFields(tr.Seq, tr.Function, tr.From, tr.To, tr.RaisedError, tr.Stable))
		}
	}

	fmt.Fprintf(w, "\nCalls: %d (succeeded %d, raised %d, failed %d)  Transitions: %d\n",
		result.Stats.Calls, result.Stats.Succeeded, result.Stats.Raised, result.Stats.Failed, result.Stats.Transitions)
	for _, e := range run.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}
