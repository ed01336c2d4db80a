package ir

// NOTE: These are run-log types shared by the harness and the store.
// All ordering uses Seq (logical clock), never timestamps.

// Call outcome labels as persisted and traced.
const (
	OutcomeSucceeded = "succeeded" // body ran to completion
	OutcomeRaised    = "raised"    // MissingOperandError, caught at the boundary
	OutcomeFailed    = "failed"    // uncaught error (e.g. InvalidSiteKind); no boundary delivered
)

// RunRecord describes one scenario execution.
type RunRecord struct {
	ID            string   `json:"id"`
	Scenario      string   `json:"scenario"`
	Policy        Policy   `json:"policy"`
	EngineVersion string   `json:"engine_version"`
	IRVersion     string   `json:"ir_version"`
	Finished      bool     `json:"finished"`
	Pass          bool     `json:"pass"`
	Errors        []string `json:"errors,omitempty"`
}

// CallRecord is one invoke at one call boundary.
type CallRecord struct {
	RunID    string `json:"run_id"`
	Seq      int64  `json:"seq"`
	Function string `json:"function"`
	Operand  string `json:"operand,omitempty"` // JSON object; empty when absent
	Outcome  string `json:"outcome"`
	Error    string `json:"error,omitempty"`
	Feedback string `json:"feedback"` // feedback after the call
	Tier     string `json:"tier"`     // tier after the boundary
}

// TransitionRecord is one persisted tier change.
type TransitionRecord struct {
	RunID       string `json:"run_id"`
	Seq         int64  `json:"seq"`
	Function    string `json:"function"`
	From        string `json:"from"`
	To          string `json:"to"`
	RaisedError bool   `json:"raised_error"`
	Stable      bool   `json:"stable"`
}
