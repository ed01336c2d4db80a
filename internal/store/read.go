package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/tierprobe/internal/ir"
)

// ErrRunNotFound is returned by ReadRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// ReadRun returns a single run.
func (s *Store) ReadRun(ctx context.Context, runID string) (ir.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scenario, policy, engine_version, ir_version, finished, pass, errors
		FROM runs WHERE id = ?
	`, runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, err
}

// ReadRuns returns every run ordered by ID. UUIDv7 IDs sort by creation.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadRuns(ctx context.Context) ([]ir.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scenario, policy, engine_version, ir_version, finished, pass, errors
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadCalls returns a run's calls in seq order.
// A non-empty function restricts the result to that function.
func (s *Store) ReadCalls(ctx context.Context, runID, function string) ([]ir.CallRecord, error) {
	query := `
		SELECT run_id, seq, function, operand, outcome, error, feedback, tier
		FROM calls
		WHERE run_id = ?`
	args := []any{runID}
	if function != "" {
		query += ` AND function = ?`
		args = append(args, function)
	}
	query += ` ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	calls := []ir.CallRecord{}
	for rows.Next() {
		var (
			call         ir.CallRecord
			operand, msg sql.NullString
		)
		if err := rows.Scan(&call.RunID, &call.Seq, &call.Function, &operand, &call.Outcome, &msg, &call.Feedback, &call.Tier); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		call.Operand = operand.String
		call.Error = msg.String
		calls = append(calls, call)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}
	return calls, nil
}

// ReadTransitions returns a run's tier transitions in seq order.
func (s *Store) ReadTransitions(ctx context.Context, runID string) ([]ir.TransitionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, function, from_tier, to_tier, raised_error, stable
		FROM transitions
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	trs := []ir.TransitionRecord{}
	for rows.Next() {
		var (
			tr             ir.TransitionRecord
			raised, stable int
		)
		if err := rows.Scan(&tr.RunID, &tr.Seq, &tr.Function, &tr.From, &tr.To, &raised, &stable); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		tr.RaisedError = raised != 0
		tr.Stable = stable != 0
		trs = append(trs, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return trs, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (ir.RunRecord, error) {
	var (
		run                  ir.RunRecord
		policyJSON, errsJSON string
		finished, pass       int
	)
	if err := row.Scan(&run.ID, &run.Scenario, &policyJSON, &run.EngineVersion, &run.IRVersion, &finished, &pass, &errsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return run, err
		}
		return run, fmt.Errorf("scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(policyJSON), &run.Policy); err != nil {
		return run, fmt.Errorf("unmarshal policy: %w", err)
	}
	if err := json.Unmarshal([]byte(errsJSON), &run.Errors); err != nil {
		return run, fmt.Errorf("unmarshal errors: %w", err)
	}
	if len(run.Errors) == 0 {
		run.Errors = nil
	}
	run.Finished = finished != 0
	run.Pass = pass != 0
	return run, nil
}
