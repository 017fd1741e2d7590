// Package store records conversion runs in SQLite.
//
// Each run of the command line tool can be written as one row: the
// command, digests of its input and output, the fidelity score of a
// validated round trip, and every diagnostic the conversion produced.
//
// # Patterns
//
// Logical ordering: runs are ordered by seq, assigned by the store inside
// the insert transaction. Run IDs are UUIDv7 by default, so they also sort
// by creation time, but no query relies on that.
//
// Idempotent writes: inserting a run whose ID already exists is a no-op
// and reports inserted=false.
//
// Scores are stored as integer parts per million so the database never
// holds floats.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package store
