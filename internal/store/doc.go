// Package store persists synthesized definitions and execution history in
// SQLite.
//
// Three tables:
//   - definitions: one row per distinct definition digest
//   - executions: one row per pipeline run, with its current state
//   - execution_events: the append-only transition log of every run
//
// Ordering never uses wall-clock time. Definitions are ordered by their
// insertion seq; events by the logical clock seq the execution package
// stamps on them. Every list query carries an explicit ORDER BY.
//
// Stored definition bodies are canonical JSON. The webhook secret is already
// redacted by ir.Secret's JSON encoding, so a definition read back carries a
// zero Secret.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package store
