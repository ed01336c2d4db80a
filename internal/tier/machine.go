package tier

import (
	"errors"
	"io"
	"log/slog"

	"github.com/roach88/tierprobe/internal/ic"
	"github.com/roach88/tierprobe/internal/ir"
)

// ErrNotPrepared is returned by RequestOptimizeOnNextCall when the policy
// requires preparation and the function was never prepared.
var ErrNotPrepared = errors.New("function is not prepared for optimization")

// Sequencer stamps transitions with logical time.
// engine.Clock satisfies it.
type Sequencer interface {
	Next() int64
}

// Transition records one tier change.
type Transition struct {
	Function    string  `json:"function"`
	From        ir.Tier `json:"from"`
	To          ir.Tier `json:"to"`
	Seq         int64   `json:"seq"`
	RaisedError bool    `json:"raised_error"` // the triggering call raised
	Stable      bool    `json:"stable"`       // feedback was stable at the time
}

// Status is a point-in-time view of a machine.
type Status struct {
	Tier    ir.Tier `json:"tier"`
	Pending bool    `json:"pending"`
	Stable  bool    `json:"stable"`
}

// Machine owns one function's tier. It is not safe for concurrent use.
type Machine struct {
	function    string
	policy      ir.Policy
	seq         Sequencer
	logger      *slog.Logger
	tier        ir.Tier
	pending     bool
	stable      bool
	transitions []Transition
}

// New creates a machine in the unoptimized tier.
// A nil logger discards output.
func New(function string, policy ir.Policy, seq Sequencer, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Machine{
		function: function,
		policy:   policy,
		seq:      seq,
		logger:   logger.With("function", function),
		tier:     ir.TierUnoptimized,
	}
}

// Prepare moves unoptimized -> prepared. It is a no-op in any other tier.
// fb annotates confidence only.
func (m *Machine) Prepare(fb ic.FeedbackState) *Transition {
	if m.tier != ir.TierUnoptimized {
		m.logger.Debug("prepare ignored", "tier", m.tier.String())
		return nil
	}
	m.stable = ic.IsStable(fb)
	return m.move(ir.TierPrepared, false)
}

// RequestOptimizeOnNextCall marks the function for promotion at the next
// call boundary. Repeated requests coalesce; requests on an optimized
// function are no-ops.
func (m *Machine) RequestOptimizeOnNextCall() error {
	if m.tier == ir.TierOptimized {
		return nil
	}
	if m.policy.RequirePreparation && m.tier == ir.TierUnoptimized {
		return ErrNotPrepared
	}
	m.pending = true
	m.logger.Debug("optimization requested", "tier", m.tier.String())
	return nil
}

// OnCallBoundary is delivered after every call.
// A pending request promotes to optimized regardless of outcome.RaisedError.
// Returns the transition taken, or nil.
func (m *Machine) OnCallBoundary(outcome ir.CallOutcome, fb ic.FeedbackState) *Transition {
	if m.tier == ir.TierOptimized || !m.pending {
		return nil
	}
	m.pending = false
	m.stable = ic.IsStable(fb)
	return m.move(ir.TierOptimized, outcome.RaisedError)
}

func (m *Machine) move(to ir.Tier, raised bool) *Transition {
	tr := Transition{
		Function:    m.function,
		From:        m.tier,
		To:          to,
		Seq:         m.seq.Next(),
		RaisedError: raised,
		Stable:      m.stable,
	}
	m.tier = to
	m.transitions = append(m.transitions, tr)

	m.logger.Info("tier transition",
		"from", tr.From.String(),
		"to", tr.To.String(),
		"seq", tr.Seq,
		"raised_error", tr.RaisedError,
		"stable", tr.Stable,
	)
	return &tr
}

// Tier returns the current tier.
func (m *Machine) Tier() ir.Tier {
	return m.tier
}

// IsOptimized reports whether the function reached the optimized tier.
func (m *Machine) IsOptimized() bool {
	return m.tier == ir.TierOptimized
}

// Pending reports whether an optimization request awaits the next boundary.
func (m *Machine) Pending() bool {
	return m.pending
}

// Status returns the current tier, pending flag, and confidence.
func (m *Machine) Status() Status {
	return Status{Tier: m.tier, Pending: m.pending, Stable: m.stable}
}

// Transitions returns a copy of every transition taken so far.
func (m *Machine) Transitions() []Transition {
	out := make([]Transition, len(m.transitions))
	copy(out, m.transitions)
	return out
}
