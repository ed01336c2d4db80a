package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/tierprobe/internal/ir"
)

// RunOptions configures Run.
type RunOptions struct {
	// Policy is the tiering policy. Nil means ir.DefaultPolicy().
	Policy *ir.Policy

	// Sink, if set, receives the run log under RunID.
	Sink  Sink
	RunID string

	// Logger defaults to a discard logger.
	Logger *slog.Logger
}

// Run executes a scenario against a fresh harness and returns the result.
//
// specs supplies the compiled functions; every name in
// scenario.Functions must be present. Scenario failures (a halting step,
// a failed assertion) are reported in the Result. The error return is
// reserved for problems running the scenario at all: unknown functions,
// an invalid policy, or a Sink failure.
//
// Execution flow:
// 1. Register the scenario's functions
// 2. Execute steps in order until one halts
// 3. Evaluate assertions (skipped when halted)
// 4. Reconcile with expect_error and finish the run in the Sink
func Run(ctx context.Context, scenario *Scenario, specs []ir.FunctionSpec, opts RunOptions) (*Result, error) {
	policy := ir.DefaultPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("scenario", scenario.Name)

	hopts := []Option{WithLogger(logger)}
	if opts.Sink != nil {
		hopts = append(hopts, WithSink(opts.Sink, opts.RunID))
	}
	h, err := New(policy, hopts...)
	if err != nil {
		return nil, fmt.Errorf("create harness: %w", err)
	}

	byName := make(map[string]ir.FunctionSpec, len(specs))
	for _, spec := range specs {
		byName[spec.Name] = spec
	}
	for _, name := range scenario.Functions {
		spec, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("function %q is not defined in specs", name)
		}
		if err := h.Register(spec); err != nil {
			return nil, fmt.Errorf("register %s: %w", name, err)
		}
	}

	if opts.Sink != nil {
		err := opts.Sink.WriteRun(ctx, ir.RunRecord{
			ID:            opts.RunID,
			Scenario:      scenario.Name,
			Policy:        policy,
			EngineVersion: ir.EngineVersion,
			IRVersion:     ir.IRVersion,
		})
		if err != nil {
			return nil, &SinkError{Err: err}
		}
	}

	result := NewResult(scenario.Name)
	result.RunID = opts.RunID

	halt := h.runSteps(ctx, scenario.Steps, 0)
	var sinkErr *SinkError
	if errors.As(halt, &sinkErr) {
		return nil, sinkErr
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(halt, ctxErr) {
		return nil, ctxErr
	}

	switch {
	case halt != nil:
		result.Halted = ErrorCode(halt)
		logger.Warn("scenario halted", "code", result.Halted, "error", halt.Error())
		if scenario.ExpectError == "" {
			result.AddError(halt.Error())
		} else if result.Halted != scenario.ExpectError {
			result.AddError(fmt.Sprintf("expected scenario to halt with %s, got %s", scenario.ExpectError, halt.Error()))
		}
	case scenario.ExpectError != "":
		result.AddError(fmt.Sprintf("expected scenario to halt with %s, but it completed", scenario.ExpectError))
	default:
		for _, msg := range EvaluateAssertions(h, scenario.Assertions) {
			result.AddError(msg)
		}
	}

	result.Functions = h.Summaries()
	result.Transitions = h.Transitions()
	result.Counters = h.Counters()

	logger.Info("scenario finished",
		"pass", result.Pass,
		"calls", result.Counters.Calls,
		"transitions", len(result.Transitions),
	)

	if opts.Sink != nil {
		if err := opts.Sink.FinishRun(ctx, opts.RunID, result.Pass, result.Errors); err != nil {
			return nil, &SinkError{Err: err}
		}
	}
	return result, nil
}

// runSteps executes steps in order and returns the error that halted them.
// index binds ${i} for invoke operands.
func (h *Harness) runSteps(ctx context.Context, steps []Step, index int) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch step.Kind() {
		case StepPrepare:
			if err := h.Prepare(ctx, step.Prepare); err != nil {
				return err
			}

		case StepOptimizeOnNextCall:
			if err := h.OptimizeOnNextCall(step.OptimizeOnNextCall); err != nil {
				return err
			}

		case StepInvoke:
			op, err := step.operand(index)
			if err != nil {
				return err
			}
			_, caught, err := h.call(ctx, step.Invoke, op)
			if err != nil {
				return err
			}
			if caught != nil && !step.Catch {
				return caught
			}

		case StepRepeat:
			for i := 0; i < step.Repeat.Times; i++ {
				if err := h.runSteps(ctx, step.Repeat.Steps, i); err != nil {
					return err
				}
			}

		case StepAssertOptimized:
			if err := h.AssertOptimized(step.AssertOptimized); err != nil {
				return err
			}

		default:
			return fmt.Errorf("malformed step: %+v", step)
		}
	}
	return nil
}
