package engine

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/tierprobe/internal/ic"
	"github.com/roach88/tierprobe/internal/ir"
	"github.com/roach88/tierprobe/internal/tier"
)

// Engine is the registry of function records for one run.
//
// Thread-safety model: none. One harness drives one engine from one
// goroutine; calls are strictly sequential.
//
// INVARIANTS:
//   - Function names are unique
//   - Functions() returns registration order, never map order
type Engine struct {
	policy    ir.Policy
	clock     *Clock
	logger    *slog.Logger
	functions map[string]*Function
	order     []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock shares an existing logical clock.
func WithClock(clock *Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// New creates an engine enforcing policy.
func New(policy ir.Policy, opts ...Option) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}

	e := &Engine{
		policy:    policy,
		clock:     NewClock(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		functions: make(map[string]*Function),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Policy returns the policy in effect.
func (e *Engine) Policy() ir.Policy {
	return e.policy
}

// Clock returns the logical clock shared by calls and transitions.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// Register creates the function record for spec.
//
// The site is revalidated through ir.NewPropertySite so hand-built specs get
// the same key normalization as compiled ones. An empty Op defaults to the
// site kind. A differing Op is accepted here on purpose: the mismatch
// surfaces as InvalidSiteKind on the first call.
func (e *Engine) Register(spec ir.FunctionSpec) (*Function, error) {
	if spec.Name == "" {
		return nil, &RuntimeError{Code: ErrCodeInvalidFunction, Message: "function name is required"}
	}
	if _, exists := e.functions[spec.Name]; exists {
		return nil, &RuntimeError{
			Code:     ErrCodeDuplicateFunction,
			Message:  "function already registered",
			Function: spec.Name,
		}
	}

	site, err := ir.NewPropertySite(spec.Site.Kind, spec.Site.Key)
	if err != nil {
		return nil, &RuntimeError{Code: ErrCodeInvalidFunction, Message: err.Error(), Function: spec.Name}
	}
	spec.Site = site
	if spec.Op == "" {
		spec.Op = site.Kind
	}
	if _, err := ir.ParseSiteKind(string(spec.Op)); err != nil {
		return nil, &RuntimeError{Code: ErrCodeInvalidFunction, Message: err.Error(), Function: spec.Name}
	}

	fn := &Function{
		spec:     spec,
		recorder: ic.NewRecorder(site, e.policy.PolymorphicBound),
		machine:  tier.New(spec.Name, e.policy, e.clock, e.logger),
	}
	e.functions[spec.Name] = fn
	e.order = append(e.order, spec.Name)

	e.logger.Debug("function registered",
		"function", spec.Name,
		"op", string(spec.Op),
		"site", site.String(),
	)
	return fn, nil
}

// Lookup returns the record for name.
func (e *Engine) Lookup(name string) (*Function, error) {
	fn, ok := e.functions[name]
	if !ok {
		return nil, &RuntimeError{
			Code:     ErrCodeUnknownFunction,
			Message:  "function is not registered",
			Function: name,
		}
	}
	return fn, nil
}

// Functions returns all records in registration order.
func (e *Engine) Functions() []*Function {
	out := make([]*Function, 0, len(e.order))
	for _, name := range e.order {
		out = append(out, e.functions[name])
	}
	return out
}
