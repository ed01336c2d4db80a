package compiler

import (
	"fmt"

	"github.com/roach88/tierprobe/internal/ir"
)

// Validation codes (E100-E199 errors, W200-W299 warnings)
const (
	ErrNoFunctions       = "E101" // specs declare no function
	ErrDuplicateFunction = "E102" // same name declared twice
	ErrInvalidSite       = "E103" // site kind or key invalid
	ErrInvalidOp         = "E104" // op is not a site kind
	ErrInvalidPolicy     = "E105" // policy fails validation
	ErrEngineVersion     = "E106" // engine constraint not satisfied

	WarnOpSiteMismatch = "W201" // op disagrees with the site kind
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents a schema validation finding.
type ValidationError struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Code     string `json:"code"`
	Severity string `json:"severity"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// IsWarning reports whether the finding is a warning.
func (e ValidationError) IsWarning() bool {
	return e.Severity == SeverityWarning
}

// Validate checks compiled specs.
// Returns all findings (does not fail-fast). Warnings do not prevent a run.
func Validate(specs *Specs) []ValidationError {
	var errs []ValidationError

	if len(specs.Functions) == 0 {
		errs = append(errs, ValidationError{
			Field:    "function",
			Message:  "at least one function is required",
			Code:     ErrNoFunctions,
			Severity: SeverityError,
		})
	}

	if err := specs.Policy.Validate(); err != nil {
		errs = append(errs, ValidationError{
			Field:    "policy",
			Message:  err.Error(),
			Code:     ErrInvalidPolicy,
			Severity: SeverityError,
		})
	}

	if err := CheckEngineVersion(specs.Engine); err != nil {
		errs = append(errs, ValidationError{
			Field:    "engine",
			Message:  err.Error(),
			Code:     ErrEngineVersion,
			Severity: SeverityError,
		})
	}

	seen := make(map[string]bool, len(specs.Functions))
	for _, fn := range specs.Functions {
		field := "function." + fn.Name
		if seen[fn.Name] {
			errs = append(errs, ValidationError{
				Field:    field,
				Message:  "duplicate function",
				Code:     ErrDuplicateFunction,
				Severity: SeverityError,
			})
		}
		seen[fn.Name] = true
		errs = append(errs, validateFunction(field, fn)...)
	}

	return errs
}

func validateFunction(field string, fn ir.FunctionSpec) []ValidationError {
	var errs []ValidationError

	if _, err := ir.NewPropertySite(fn.Site.Kind, fn.Site.Key); err != nil {
		errs = append(errs, ValidationError{
			Field:    field + ".site",
			Message:  err.Error(),
			Code:     ErrInvalidSite,
			Severity: SeverityError,
		})
	}

	if _, err := ir.ParseSiteKind(string(fn.Op)); err != nil {
		errs = append(errs, ValidationError{
			Field:    field + ".op",
			Message:  err.Error(),
			Code:     ErrInvalidOp,
			Severity: SeverityError,
		})
	} else if fn.Op != fn.Site.Kind {
		errs = append(errs, ValidationError{
			Field:    field + ".op",
			Message:  fmt.Sprintf("%s body wired to a %s site; calls will fail with INVALID_SITE_KIND", fn.Op, fn.Site.Kind),
			Code:     WarnOpSiteMismatch,
			Severity: SeverityWarning,
		})
	}

	return errs
}

// HasErrors reports whether any finding is an error rather than a warning.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if !e.IsWarning() {
			return true
		}
	}
	return false
}
