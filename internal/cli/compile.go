package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tierprobe/internal/compiler"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <specs-dir>",
		Short: "Compile CUE specs to JSON",
		Long: `Compile CUE function specs to their JSON form: the engine constraint,
the effective policy, and every function with its op and property site.

With --output the JSON is written to a file; otherwise a summary is
printed (or the JSON itself with --format json).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeCollectAll)
	if loadResult == nil {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)
	for _, fn := range loadResult.Specs.Functions {
		formatter.VerboseLog("Compiled function: %s", fn.Name)
	}

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	if opts.Output != "" {
		if err := writeSpecsToFile(loadResult.Specs, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileSuccess(formatter, loadResult.Specs, opts.Output)
}

func writeSpecsToFile(specs *compiler.Specs, path string) error {
	data, err := json.MarshalIndent(specs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

func outputCompileSuccess(formatter *OutputFormatter, specs *compiler.Specs, outputPath string) error {
	if formatter.IsJSON() {
		return formatter.Response(CLIResponse{Status: "ok", Data: specs})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s Compiled %d function(s)\n", markPass, len(specs.Functions))
	for _, fn := range specs.Functions {
		fmt.Fprintf(w, "  %-12s op=%-6s site=%s\n", fn.Name, fn.Op, fn.Site)
	}
	if specs.Engine != "" {
		fmt.Fprintf(w, "Engine: %s\n", specs.Engine)
	}
	if outputPath != "" {
		fmt.Fprintf(w, "Output written to: %s\n", outputPath)
	}
	return nil
}

func outputCompileError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	exitErr := NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))

	if formatter.IsJSON() {
		details := make([]string, len(errs))
		for i, err := range errs {
			details[i] = err.Error()
		}
		first := loadErrorToFinding(errs[0])
		if err := formatter.Error(first.Code, first.Message, details); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintf(formatter.Writer, "%s Compilation failed\n\n", markFail)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s\n", err.Error())
	}
	return exitErr
}
