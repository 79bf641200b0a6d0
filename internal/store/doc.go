// Package store provides SQLite-backed history for fixtures and test runs.
//
// The store records:
//   - Fixtures: canonical JSON keyed by content hash (FixtureID)
//   - Runs: one row per fixture per `opfix test` invocation
//   - Example results: per-example pass/fail with mismatch detail
//
// # Conventions
//
// Content addressing: a fixture's ID is the domain-separated SHA-256 of its
// canonical JSON, so writing the same fixture twice is a no-op and an edited
// fixture gets a new row under the same name.
//
// Logical time: rows carry a store-wide seq assigned at write time. All
// queries order by seq ASC, id ASC COLLATE BINARY; wall-clock time is never
// recorded.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
