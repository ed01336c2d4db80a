package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/tierprobe/internal/compiler"
)

// LoadMode controls how errors are handled during spec loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading specs from a directory.
type LoadResult struct {
	Specs     *compiler.Specs
	CUEValue  cue.Value
	FileCount int
}

// LoadError represents an error that occurred during spec loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSpecs loads and compiles the CUE specs in dir.
//
// A nil result means the directory could not be loaded at all. Otherwise
// the result holds every part that compiled; errs lists the parts that
// did not (only the first one in LoadModeFailFast).
func LoadSpecs(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing specs directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	// Validate also catches conflicts below the root.
	value := ctx.BuildInstance(inst)
	if err := value.Validate(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		Specs:     &compiler.Specs{},
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	var errs []error
	fail := func(err error, context string) bool {
		errs = append(errs, convertCompileError(err, context))
		return mode == LoadModeFailFast
	}

	engine, err := compiler.CompileEngineConstraint(value.LookupPath(cue.ParsePath("engine")))
	if err != nil && fail(err, "engine") {
		return result, errs
	}
	result.Specs.Engine = engine

	policy, err := compiler.CompilePolicy(value.LookupPath(cue.ParsePath("policy")))
	if err != nil && fail(err, "policy") {
		return result, errs
	}
	result.Specs.Policy = policy

	fnsVal := value.LookupPath(cue.ParsePath("function"))
	if fnsVal.Exists() {
		iter, err := fnsVal.Fields()
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating functions: %v", err)})
			return result, errs
		}
		for iter.Next() {
			fn, err := compiler.CompileFunction(iter.Value())
			if err != nil {
				if fail(err, "function."+iter.Label()) {
					return result, errs
				}
				continue
			}
			result.Specs.Functions = append(result.Specs.Functions, *fn)
		}
	}

	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants shared by all CLI commands. Spec-level codes
// (E1xx, W2xx) come from the compiler package.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeScanError    = "E002" // Directory scan error
	ErrCodeNoFiles      = "E003" // No CUE files found
	ErrCodeLoadFailed   = "E004" // CUE load failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeBuildFailed  = "E006" // CUE build failed
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeScenario     = "E008" // Scenario file invalid
	ErrCodeDatabase     = "E009" // Database open/read error
	ErrCodeRunNotFound  = "E010" // No run with the given ID
	ErrCodeTestFailed   = "E_TEST_FAILED"
	ErrCodeScenarioFail = "E_SCENARIO_FAILED"
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "site", "site.kind", "site.key":
		return compiler.ErrInvalidSite
	case "op":
		return compiler.ErrInvalidOp
	case "policy", "policy.polymorphic_bound":
		return compiler.ErrInvalidPolicy
	case "engine":
		return compiler.ErrEngineVersion
	default:
		return ErrCodeGeneric
	}
}

// requireSpecs loads dir fail-fast and rejects specs with validation
// errors. Used by commands that execute functions.
func requireSpecs(dir string) (*compiler.Specs, []compiler.ValidationError, error) {
	result, errs := LoadSpecs(dir, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, nil, errs[0]
	}
	findings := compiler.Validate(result.Specs)
	if compiler.HasErrors(findings) {
		for _, f := range findings {
			if !f.IsWarning() {
				return nil, findings, f
			}
		}
	}
	return result.Specs, findings, nil
}
