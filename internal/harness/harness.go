package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/tierprobe/internal/engine"
	"github.com/roach88/tierprobe/internal/ic"
	"github.com/roach88/tierprobe/internal/ir"
	"github.com/roach88/tierprobe/internal/tier"
)

// Sink receives the run log. *store.Store satisfies it.
type Sink interface {
	WriteRun(ctx context.Context, run ir.RunRecord) error
	WriteCall(ctx context.Context, call ir.CallRecord) error
	WriteTransition(ctx context.Context, tr ir.TransitionRecord) error
	FinishRun(ctx context.Context, runID string, pass bool, errs []string) error
}

// SinkError wraps a failure to persist the run log. It is never a scenario
// outcome: Run returns it instead of recording it.
type SinkError struct {
	Err error
}

func (e *SinkError) Error() string {
	return "sink: " + e.Err.Error()
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// Harness drives calls into registered functions and owns the call
// boundary. A Harness is single-threaded: calls run to completion one at a
// time and must not be issued concurrently.
type Harness struct {
	engine      *engine.Engine
	sink        Sink
	runID       string
	logger      *slog.Logger
	transitions []tier.Transition
	counters    Counters
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the harness and engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithSink persists calls and transitions under runID.
func WithSink(sink Sink, runID string) Option {
	return func(h *Harness) {
		h.sink = sink
		h.runID = runID
	}
}

// New creates a harness with a fresh engine under policy.
func New(policy ir.Policy, opts ...Option) (*Harness, error) {
	h := &Harness{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		transitions: []tier.Transition{},
	}
	for _, opt := range opts {
		opt(h)
	}

	eng, err := engine.New(policy, engine.WithLogger(h.logger))
	if err != nil {
		return nil, err
	}
	h.engine = eng
	return h, nil
}

// Engine returns the underlying engine.
func (h *Harness) Engine() *engine.Engine {
	return h.engine
}

// Register adds a function.
func (h *Harness) Register(spec ir.FunctionSpec) error {
	_, err := h.engine.Register(spec)
	return err
}

// Prepare moves the function to prepared_for_optimization.
// Preparing twice is the same as preparing once.
func (h *Harness) Prepare(ctx context.Context, name string) error {
	fn, err := h.engine.Lookup(name)
	if err != nil {
		return err
	}
	return h.recordTransition(ctx, fn.Machine().Prepare(fn.Feedback()))
}

// OptimizeOnNextCall requests promotion at the function's next call
// boundary.
func (h *Harness) OptimizeOnNextCall(name string) error {
	fn, err := h.engine.Lookup(name)
	if err != nil {
		return err
	}
	if err := fn.Machine().RequestOptimizeOnNextCall(); err != nil {
		return fmt.Errorf("optimize %s: %w", name, err)
	}
	return nil
}

// Invoke calls the function once with op.
//
// A *engine.MissingOperandError raised by the body is caught: the returned
// outcome has RaisedError set, err is nil, and the outcome still reaches
// the tier machine. Any other error is returned unmodified and no call
// boundary is delivered.
func (h *Harness) Invoke(ctx context.Context, name string, op ir.Operand) (ir.CallOutcome, error) {
	outcome, _, err := h.call(ctx, name, op)
	return outcome, err
}

// call is Invoke that also returns the caught error.
func (h *Harness) call(ctx context.Context, name string, op ir.Operand) (outcome ir.CallOutcome, caught, err error) {
	fn, err := h.engine.Lookup(name)
	if err != nil {
		return ir.CallOutcome{}, nil, err
	}

	outcome = ir.Success()
	_, caught = fn.Execute(op)
	if caught != nil {
		if !engine.IsMissingOperand(caught) {
			h.counters.Failed++
			h.logger.Warn("call failed",
				"function", name,
				"error", caught.Error(),
			)
			if perr := h.recordCall(ctx, fn, op, h.engine.Clock().Next(), ir.OutcomeFailed, caught); perr != nil {
				return ir.CallOutcome{}, nil, perr
			}
			return ir.CallOutcome{}, nil, caught
		}
		outcome = ir.Raised()
		h.counters.Caught++
		h.logger.Debug("caught error",
			"function", name,
			"error", caught.Error(),
		)
	}
	h.counters.Calls++

	seq := h.engine.Clock().Next()
	fb := fn.Feedback()
	tr := fn.Machine().OnCallBoundary(outcome, fb)

	status := ir.OutcomeSucceeded
	if outcome.RaisedError {
		status = ir.OutcomeRaised
	}
	if err := h.recordCall(ctx, fn, op, seq, status, caught); err != nil {
		return outcome, caught, err
	}
	if err := h.recordTransition(ctx, tr); err != nil {
		return outcome, caught, err
	}
	return outcome, caught, nil
}

// AssertOptimized returns an *AssertionError unless the function is
// optimized.
func (h *Harness) AssertOptimized(name string) error {
	fn, err := h.engine.Lookup(name)
	if err != nil {
		return err
	}
	if fn.Machine().IsOptimized() {
		return nil
	}
	return &AssertionError{
		Type:     AssertOptimized,
		Function: name,
		Expected: ir.TierOptimized.String(),
		Actual:   fn.Machine().Tier().String(),
	}
}

// Feedback returns the function's current inline cache feedback.
func (h *Harness) Feedback(name string) (ic.FeedbackState, error) {
	fn, err := h.engine.Lookup(name)
	if err != nil {
		return ic.FeedbackState{}, err
	}
	return fn.Feedback(), nil
}

// Tier returns the function's current tier.
func (h *Harness) Tier(name string) (ir.Tier, error) {
	fn, err := h.engine.Lookup(name)
	if err != nil {
		return 0, err
	}
	return fn.Machine().Tier(), nil
}

// Transitions returns every transition taken so far, in seq order.
func (h *Harness) Transitions() []tier.Transition {
	out := make([]tier.Transition, len(h.transitions))
	copy(out, h.transitions)
	return out
}

// Counters returns call outcome totals.
func (h *Harness) Counters() Counters {
	return h.counters
}

// Summaries returns the final state of every function in registration
// order.
func (h *Harness) Summaries() []FunctionSummary {
	fns := h.engine.Functions()
	out := make([]FunctionSummary, 0, len(fns))
	for _, fn := range fns {
		status := fn.Machine().Status()
		stats := fn.CacheStats()
		out = append(out, FunctionSummary{
			Name:     fn.Name(),
			Site:     fn.Spec().Site.String(),
			Tier:     status.Tier.String(),
			Pending:  status.Pending,
			Feedback: fn.Feedback().String(),
			Stable:   ic.IsStable(fn.Feedback()),
			Calls:    fn.Stats(),
			Hits:     stats.Hits,
			Misses:   stats.Misses,
			Skipped:  stats.Skipped,
		})
	}
	return out
}

func (h *Harness) recordTransition(ctx context.Context, tr *tier.Transition) error {
	if tr == nil {
		return nil
	}
	h.transitions = append(h.transitions, *tr)
	if h.sink == nil {
		return nil
	}
	err := h.sink.WriteTransition(ctx, ir.TransitionRecord{
		RunID:       h.runID,
		Seq:         tr.Seq,
		Function:    tr.Function,
		From:        tr.From.String(),
		To:          tr.To.String(),
		RaisedError: tr.RaisedError,
		Stable:      tr.Stable,
	})
	if err != nil {
		return &SinkError{Err: err}
	}
	return nil
}

func (h *Harness) recordCall(ctx context.Context, fn *engine.Function, op ir.Operand, seq int64, outcome string, callErr error) error {
	if h.sink == nil {
		return nil
	}
	rec := ir.CallRecord{
		RunID:    h.runID,
		Seq:      seq,
		Function: fn.Name(),
		Outcome:  outcome,
		Feedback: fn.Feedback().String(),
		Tier:     fn.Machine().Tier().String(),
	}
	if op.IsPresent() {
		data, err := op.Object().MarshalJSON()
		if err != nil {
			return fmt.Errorf("marshal operand: %w", err)
		}
		rec.Operand = string(data)
	}
	if callErr != nil {
		rec.Error = callErr.Error()
	}
	if err := h.sink.WriteCall(ctx, rec); err != nil {
		return &SinkError{Err: err}
	}
	return nil
}

// ErrorCode returns the stable code of an error surfaced by a scenario
// step: MISSING_OPERAND, INVALID_SITE_KIND, NOT_PREPARED, a RuntimeError
// code, ASSERTION_FAILED, or ERROR for anything else.
func ErrorCode(err error) string {
	var (
		re *engine.RuntimeError
		ae *AssertionError
	)
	switch {
	case err == nil:
		return ""
	case engine.IsMissingOperand(err):
		return "MISSING_OPERAND"
	case errors.Is(err, ic.ErrInvalidSiteKind):
		return "INVALID_SITE_KIND"
	case errors.Is(err, tier.ErrNotPrepared):
		return "NOT_PREPARED"
	case errors.As(err, &re):
		return string(re.Code)
	case errors.As(err, &ae):
		return "ASSERTION_FAILED"
	}
	return "ERROR"
}
