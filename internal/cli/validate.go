package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tierprobe/internal/compiler"
	"github.com/roach88/tierprobe/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                       `json:"valid"`
	Functions []string                   `json:"functions"`
	Policy    ir.Policy                  `json:"policy"`
	Errors    []compiler.ValidationError `json:"errors,omitempty"`
	Warnings  []compiler.ValidationError `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Validate function specs",
		Long: `Compile the CUE function specs in a directory and check them.

Reports every compile error and validation finding, then lists the
declared functions and the effective policy. Warnings (such as an op
that disagrees with its site kind) do not fail validation.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeCollectAll)
	if loadResult == nil {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputValidateError(formatter, ErrCodeGeneric, loadErrors[0].Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)

	result := ValidationResult{Policy: loadResult.Specs.Policy, Functions: []string{}}
	for _, fn := range loadResult.Specs.Functions {
		formatter.VerboseLog("Validated function: %s (%s)", fn.Name, fn.Site)
		result.Functions = append(result.Functions, fn.Name)
	}

	var findings []compiler.ValidationError
	for _, err := range loadErrors {
		findings = append(findings, loadErrorToFinding(err))
	}
	// Spec-level checks only make sense once everything compiled.
	if len(loadErrors) == 0 {
		findings = append(findings, compiler.Validate(loadResult.Specs)...)
	}

	for _, f := range findings {
		if f.IsWarning() {
			result.Warnings = append(result.Warnings, f)
		} else {
			result.Errors = append(result.Errors, f)
		}
	}
	result.Valid = len(result.Errors) == 0

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

func loadErrorToFinding(err error) compiler.ValidationError {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		field := "load"
		if loadErr.Pos.IsValid() {
			field = fmt.Sprintf("%s:%d", loadErr.Pos.Filename(), loadErr.Pos.Line())
		}
		return compiler.ValidationError{
			Field:    field,
			Message:  loadErr.Message,
			Code:     loadErr.Code,
			Severity: compiler.SeverityError,
		}
	}
	return compiler.ValidationError{
		Field:    "load",
		Message:  err.Error(),
		Code:     ErrCodeGeneric,
		Severity: compiler.SeverityError,
	}
}

func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.IsJSON() {
		return formatter.Response(CLIResponse{Status: "ok", Data: result})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s Specs valid: %d function(s)\n", markPass, len(result.Functions))
	for _, name := range result.Functions {
		fmt.Fprintf(w, "  %s\n", name)
	}
	fmt.Fprintf(w, "Policy: polymorphic_bound=%d require_preparation=%t\n",
		result.Policy.PolymorphicBound, result.Policy.RequirePreparation)
	printWarnings(formatter, result.Warnings)
	return nil
}

func printWarnings(formatter *OutputFormatter, warnings []compiler.ValidationError) {
	for _, warn := range warnings {
		fmt.Fprintf(formatter.GetErrWriter(), "warning: %s\n", warn.Error())
	}
}

// outputValidateError outputs a single command-level error (exit code 2).
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors reports validation findings (exit code 1).
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if formatter.IsJSON() {
		err := formatter.Response(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    result.Errors[0].Code,
				Message: result.Errors[0].Message,
			},
		})
		if err != nil {
			return err
		}
		return exitErr
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s Validation failed\n\n", markFail)
	for _, err := range result.Errors {
		fmt.Fprintf(w, "  %s\n", err.Error())
	}
	printWarnings(formatter, result.Warnings)
	return exitErr
}
