package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/roach88/tierprobe/internal/harness"
	"github.com/roach88/tierprobe/internal/tier"
)

// newTable returns a borderless table in the style used by every command.
func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// writeResultText prints a scenario result: one row per function, the
// counters, the transition log, then the verdict.
func writeResultText(w io.Writer, result *harness.Result) {
	fmt.Fprintf(w, "Scenario: %s\n", result.Scenario)
	if result.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", result.RunID)
	}
	fmt.Fprintln(w)

	table := newTable(w, []string{"Function", "Site", "Tier", "Feedback", "Calls", "Raised", "Hits", "Misses", "Skipped"})
	for _, fn := range result.Functions {
		tierCol := fn.Tier
		if fn.Pending {
			tierCol += " (pending)"
		}
		table.Append([]string{
			fn.Name,
			fn.Site,
			tierCol,
			fn.Feedback,
			strconv.FormatUint(fn.Calls.Calls, 10),
			strconv.FormatUint(fn.Calls.Raised, 10),
			strconv.FormatUint(fn.Hits, 10),
			strconv.FormatUint(fn.Misses, 10),
			strconv.FormatUint(fn.Skipped, 10),
		})
	}
	table.Render()

	fmt.Fprintf(w, "\nCalls: %d  Caught: %d  Failed: %d\n",
		result.Counters.Calls, result.Counters.Caught, result.Counters.Failed)

	if len(result.Transitions) > 0 {
		fmt.Fprintln(w, "\nTransitions:")
		for _, tr := range result.Transitions {
			fmt.Fprintf(w, "  %s\n", formatTransition(tr))
		}
	}

	fmt.Fprintln(w)
	if result.Halted != "" {
		fmt.Fprintf(w, "Halted: %s\n", result.Halted)
	}
	if result.Pass {
		fmt.Fprintf(w, "%s PASS\n", markPass)
		return
	}
	fmt.Fprintf(w, "%s FAIL\n", markFail)
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

func formatTransition(tr tier.Transition) string {
	return formatTransitionFields(tr.Seq, tr.Function, tr.From.String(), tr.To.String(), tr.RaisedError, tr.Stable)
}

func formatTransitionFields(seq int64, function, from, to string, raised, stable bool) string {
	s := fmt.Sprintf("seq %-6d %s: %s -> %s", seq, function, from, to)
	switch {
	case raised && stable:
		s += " (raised, stable)"
	case raised:
		s += " (raised)"
	case stable:
		s += " (stable)"
	}
	return s
}
