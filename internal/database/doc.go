// Package database provides SQLite-based run history for staticmirror.
//
// This package implements the HistoryDB, which stores:
//   - One row per scrape run with its totals and the full JSON report
//   - One row per page attempted in a run
//   - One row per asset URL touched in a run
//
// The history is write-only from the mirror's point of view. Whether an
// asset must be downloaded is decided by the output directory alone; the
// database is never consulted for that.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
package database
