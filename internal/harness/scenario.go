package harness

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tierprobe/internal/ic"
	"github.com/roach88/tierprobe/internal/ir"
)

// Scenario is an ordered sequence of harness calls plus final assertions.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Functions lists the functions to register, in order.
	Functions []string `yaml:"functions"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state of the registered functions.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// ExpectError names the error code the scenario must halt with, e.g.
	// INVALID_SITE_KIND. When set, halting with that code is a pass and
	// finishing normally is a failure.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Step is one harness call. Exactly one of the kind fields is set.
type Step struct {
	// Prepare names a function to prepare for optimization.
	Prepare string `yaml:"prepare,omitempty"`

	// Invoke names a function to call.
	Invoke string `yaml:"invoke,omitempty"`

	// Operand is the object passed to an invoke. Values may use ${i}.
	Operand map[string]any `yaml:"operand,omitempty"`

	// Absent makes the invoke omit its operand.
	Absent bool `yaml:"absent,omitempty"`

	// Catch discards an error raised by the invoke.
	Catch bool `yaml:"catch,omitempty"`

	// OptimizeOnNextCall names a function to request optimization for.
	OptimizeOnNextCall string `yaml:"optimize_on_next_call,omitempty"`

	// Repeat runs nested steps a fixed number of times.
	Repeat *RepeatStep `yaml:"repeat,omitempty"`

	// AssertOptimized names a function that must be optimized by now.
	AssertOptimized string `yaml:"assert_optimized,omitempty"`
}

// RepeatStep is a loop over nested steps.
type RepeatStep struct {
	Times int    `yaml:"times"`
	Steps []Step `yaml:"steps"`
}

// Step kinds.
const (
	StepPrepare            = "prepare"
	StepInvoke             = "invoke"
	StepOptimizeOnNextCall = "optimize_on_next_call"
	StepRepeat             = "repeat"
	StepAssertOptimized    = "assert_optimized"
)

// Kind returns the step kind, or "" when none or several kinds are set.
func (s Step) Kind() string {
	var kinds []string
	if s.Prepare != "" {
		kinds = append(kinds, StepPrepare)
	}
	if s.Invoke != "" {
		kinds = append(kinds, StepInvoke)
	}
	if s.OptimizeOnNextCall != "" {
		kinds = append(kinds, StepOptimizeOnNextCall)
	}
	if s.Repeat != nil {
		kinds = append(kinds, StepRepeat)
	}
	if s.AssertOptimized != "" {
		kinds = append(kinds, StepAssertOptimized)
	}
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// Assertion validates the final state of one function.
type Assertion struct {
	// Type specifies the assertion type:
	// - "optimized": the function reached the optimized tier
	// - "tier": the function's tier equals Tier
	// - "feedback": the site's feedback matches Feedback
	// - "call_count": the function body ran Count times
	// - "error_count": Count calls raised
	Type string `yaml:"type"`

	// Function names the function under test.
	Function string `yaml:"function"`

	// Tier is the expected tier name (used by tier).
	Tier string `yaml:"tier,omitempty"`

	// Feedback is a feedback kind such as "monomorphic", or a full state
	// such as "polymorphic({x},{x,y})" (used by feedback).
	Feedback string `yaml:"feedback,omitempty"`

	// Count is the expected count (used by call_count and error_count).
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertOptimized  = "optimized"
	AssertTier       = "tier"
	AssertFeedback   = "feedback"
	AssertCallCount  = "call_count"
	AssertErrorCount = "error_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := ValidateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// ValidateScenario checks that required fields are present and that every
// step and assertion names a declared function.
func ValidateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Functions) == 0 {
		return fmt.Errorf("functions list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	declared := make(map[string]bool, len(s.Functions))
	for i, name := range s.Functions {
		if name == "" {
			return fmt.Errorf("functions[%d]: name is required", i)
		}
		if declared[name] {
			return fmt.Errorf("functions[%d]: duplicate function %q", i, name)
		}
		declared[name] = true
	}

	if err := validateSteps("steps", s.Steps, declared); err != nil {
		return err
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, declared); err != nil {
			return err
		}
	}
	return nil
}

func validateSteps(path string, steps []Step, declared map[string]bool) error {
	for i, step := range steps {
		where := fmt.Sprintf("%s[%d]", path, i)
		kind := step.Kind()
		if kind == "" {
			return fmt.Errorf("%s: exactly one of prepare, invoke, optimize_on_next_call, repeat, assert_optimized is required", where)
		}

		if kind != StepInvoke && (step.Operand != nil || step.Absent || step.Catch) {
			return fmt.Errorf("%s: operand, absent and catch are only valid on invoke", where)
		}

		switch kind {
		case StepPrepare:
			if !declared[step.Prepare] {
				return fmt.Errorf("%s: undeclared function %q", where, step.Prepare)
			}
		case StepOptimizeOnNextCall:
			if !declared[step.OptimizeOnNextCall] {
				return fmt.Errorf("%s: undeclared function %q", where, step.OptimizeOnNextCall)
			}
		case StepAssertOptimized:
			if !declared[step.AssertOptimized] {
				return fmt.Errorf("%s: undeclared function %q", where, step.AssertOptimized)
			}
		case StepInvoke:
			if !declared[step.Invoke] {
				return fmt.Errorf("%s: undeclared function %q", where, step.Invoke)
			}
			if step.Absent && step.Operand != nil {
				return fmt.Errorf("%s: absent and operand are mutually exclusive", where)
			}
			if !step.Absent && step.Operand == nil {
				return fmt.Errorf("%s: operand is required (use absent: true to omit it)", where)
			}
			// Probe the conversion with a placeholder index so bad values
			// fail at load time rather than mid-run.
			if _, err := step.operand(0); err != nil {
				return fmt.Errorf("%s: %w", where, err)
			}
		case StepRepeat:
			if step.Repeat.Times < 0 {
				return fmt.Errorf("%s: repeat.times must be non-negative", where)
			}
			if len(step.Repeat.Steps) == 0 {
				return fmt.Errorf("%s: repeat.steps must be non-empty", where)
			}
			if err := validateSteps(where+".repeat.steps", step.Repeat.Steps, declared); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, declared map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if !declared[a.Function] {
		return fmt.Errorf("assertions[%d]: undeclared function %q", index, a.Function)
	}

	switch a.Type {
	case AssertOptimized:
	case AssertTier:
		if _, err := ir.ParseTier(a.Tier); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertFeedback:
		if a.Feedback == "" {
			return fmt.Errorf("assertions[%d]: feedback is required for feedback", index)
		}
		kind, _, _ := strings.Cut(a.Feedback, "(")
		if _, err := ic.ParseFeedbackKind(kind); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertCallCount, AssertErrorCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for %s", index, a.Type)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

const loopVar = "${i}"

// operand builds the invoke operand with ${i} bound to index.
func (s Step) operand(index int) (ir.Operand, error) {
	if s.Absent {
		return ir.Absent(), nil
	}
	m, ok := substitute(s.Operand, index).(map[string]any)
	if !ok {
		return ir.Operand{}, fmt.Errorf("operand must be a mapping")
	}
	obj, err := ir.ObjectFromNative(m)
	if err != nil {
		return ir.Operand{}, fmt.Errorf("operand: %w", err)
	}
	return ir.Present(obj), nil
}

// substitute replaces ${i} in string values, recursing into maps and lists.
// A value that is exactly ${i} becomes an int.
func substitute(v any, index int) any {
	switch val := v.(type) {
	case string:
		if val == loopVar {
			return index
		}
		if strings.Contains(val, loopVar) {
			return strings.ReplaceAll(val, loopVar, strconv.Itoa(index))
		}
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = substitute(elem, index)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = substitute(elem, index)
		}
		return out
	default:
		return v
	}
}
