// Package store provides SQLite-backed storage for tierprobe run logs.
//
// The store keeps an append-only log per scenario run:
//   - Runs: one row per scenario execution, finished with pass/fail
//   - Calls: every invoke with its outcome, feedback, and tier after the call
//   - Transitions: every tier change with the confidence annotation
//
// # Critical Patterns
//
// Logical time:
//   - All ordering uses seq INTEGER (logical clock), NEVER timestamps
//   - All reads ORDER BY seq ASC
//
// Idempotent writes:
//   - (run_id, seq) is the primary key of calls and transitions
//   - Rewriting the same record is silently ignored
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
