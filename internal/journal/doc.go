// Package journal provides an SQLite audit log of reconciled events.
//
// Each row records one event applied by the engine: its wire payload in
// canonical JSON, the outcome, and fingerprints of the state and forest right
// after it was applied. Rows are grouped by run (one engine lifetime) and
// ordered by seq, the engine's logical clock. Wall time is never recorded.
//
// The journal is write-only from the engine's point of view. View state is
// never restored from it; it exists for tracing and for replay verification.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Pass ":memory:" to Open for a journal that lives only as long as the process.
package journal
