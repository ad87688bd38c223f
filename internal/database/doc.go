// Package database provides SQLite-based storage for audit results.
//
// This package implements the AuditDB, which stores:
//   - Completed audit reports, both as summary columns and full JSON
//   - The broken links found by each audit, queryable per audit
//   - Probe outcomes that later audits can reuse as a cache
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
//
// Audit rows are append-only so that audit history stays comparable
// over time; probe rows are upserted because only the latest outcome
// per URL matters for caching.
package database
