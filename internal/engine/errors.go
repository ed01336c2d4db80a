package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/tierprobe/internal/ir"
)

// RuntimeError represents an engine-level failure that is not part of
// normal call traffic: lookups and registrations gone wrong.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Function names the affected function, if any.
	Function string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownFunction indicates a call or request named an
	// unregistered function.
	ErrCodeUnknownFunction RuntimeErrorCode = "UNKNOWN_FUNCTION"

	// ErrCodeDuplicateFunction indicates a second registration under a name.
	ErrCodeDuplicateFunction RuntimeErrorCode = "DUPLICATE_FUNCTION"

	// ErrCodeInvalidFunction indicates a malformed function spec.
	ErrCodeInvalidFunction RuntimeErrorCode = "INVALID_FUNCTION"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Function != "" {
		return fmt.Sprintf("%s: %s (function=%s)", e.Code, e.Message, e.Function)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnknownFunction returns true if err is an unknown-function error.
// Uses errors.As to handle wrapped errors.
func IsUnknownFunction(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnknownFunction
	}
	return false
}

// MissingOperandError is raised by a call that omitted its required operand.
//
// It is ordinary, recoverable call traffic: the harness catches it at the
// call boundary and turns it into CallOutcome.RaisedError. It never reaches
// the tier machine as an error.
type MissingOperandError struct {
	Function string
	Site     ir.PropertySite
}

// Error implements the error interface, phrased the way a JS engine
// reports property access on undefined.
func (e *MissingOperandError) Error() string {
	verb, gerund := "read", "reading"
	if e.Site.Kind == ir.SiteStore {
		verb, gerund = "set", "setting"
	}
	return fmt.Sprintf("MISSING_OPERAND: cannot %s properties of undefined (%s '%s') in %s",
		verb, gerund, e.Site.Key, e.Function)
}

// IsMissingOperand returns true if err is a *MissingOperandError.
// Uses errors.As to handle wrapped errors.
func IsMissingOperand(err error) bool {
	var me *MissingOperandError
	return errors.As(err, &me)
}
