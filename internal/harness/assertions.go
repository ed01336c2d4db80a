package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/tierprobe/internal/engine"
	"github.com/roach88/tierprobe/internal/ic"
)

// AssertionError is returned when an assertion fails.
// It is a hard failure: an assert_optimized step that fails halts the
// scenario.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Function string // Function under test
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s(%s)", e.Type, e.Function)
	fmt.Fprintf(&buf, "\n  Expected: %s", e.Expected)
	fmt.Fprintf(&buf, "\n  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the harness state
// and returns one message per failure.
func EvaluateAssertions(h *Harness, assertions []Assertion) []string {
	var errs []string

	for i, assertion := range assertions {
		fn, err := h.engine.Lookup(assertion.Function)
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion[%d]: %v", i, err))
			continue
		}

		switch assertion.Type {
		case AssertOptimized:
			err = h.AssertOptimized(assertion.Function)
		case AssertTier:
			err = assertTier(fn, assertion)
		case AssertFeedback:
			err = assertFeedback(fn, assertion)
		case AssertCallCount:
			err = assertCount(assertion, fn.Stats().Calls)
		case AssertErrorCount:
			err = assertCount(assertion, fn.Stats().Raised)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}

func assertTier(fn *engine.Function, a Assertion) error {
	actual := fn.Machine().Tier().String()
	if actual == a.Tier {
		return nil
	}
	return &AssertionError{Type: AssertTier, Function: a.Function, Expected: a.Tier, Actual: actual}
}

// assertFeedback matches a bare kind ("megamorphic") against the state's
// kind, and a full state ("monomorphic({x})") against its rendering.
func assertFeedback(fn *engine.Function, a Assertion) error {
	state := fn.Feedback()
	actual := state.String()

	match := actual == a.Feedback
	if !strings.Contains(a.Feedback, "(") {
		kind, err := ic.ParseFeedbackKind(a.Feedback)
		match = err == nil && kind == state.Kind
	}
	if match {
		return nil
	}
	return &AssertionError{Type: AssertFeedback, Function: a.Function, Expected: a.Feedback, Actual: actual}
}

func assertCount(a Assertion, actual uint64) error {
	if a.Count == nil {
		return fmt.Errorf("%s(%s): count is required", a.Type, a.Function)
	}
	if uint64(*a.Count) == actual {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Function: a.Function,
		Expected: fmt.Sprintf("%d", *a.Count),
		Actual:   fmt.Sprintf("%d", actual),
	}
}
