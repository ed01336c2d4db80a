package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/tierprobe/internal/ir"
)

// WriteRun inserts a run record. Duplicate IDs are silently ignored.
func (s *Store) WriteRun(ctx context.Context, run ir.RunRecord) error {
	policyJSON, err := json.Marshal(run.Policy)
	if err != nil {
		return fmt.Errorf("write run: marshal policy: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, policy, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Scenario,
		string(policyJSON),
		run.EngineVersion,
		run.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// FinishRun marks a run finished with its verdict.
func (s *Store) FinishRun(ctx context.Context, runID string, pass bool, errs []string) error {
	if errs == nil {
		errs = []string{}
	}
	errsJSON, err := json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("finish run: marshal errors: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished = 1, pass = ?, errors = ? WHERE id = ?
	`, boolToInt(pass), string(errsJSON), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: run %q not found", runID)
	}
	return nil
}

// WriteCall inserts a call record.
// The run must exist (foreign key constraint).
func (s *Store) WriteCall(ctx context.Context, call ir.CallRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calls (run_id, seq, function, operand, outcome, error, feedback, tier)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		call.RunID,
		call.Seq,
		call.Function,
		nullableString(call.Operand),
		call.Outcome,
		nullableString(call.Error),
		call.Feedback,
		call.Tier,
	)
	if err != nil {
		return fmt.Errorf("write call: %w", err)
	}
	return nil
}

// WriteTransition inserts a tier transition record.
func (s *Store) WriteTransition(ctx context.Context, tr ir.TransitionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transitions (run_id, seq, function, from_tier, to_tier, raised_error, stable)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		tr.RunID,
		tr.Seq,
		tr.Function,
		tr.From,
		tr.To,
		boolToInt(tr.RaisedError),
		boolToInt(tr.Stable),
	)
	if err != nil {
		return fmt.Errorf("write transition: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
