// Package model defines the data structures shared by the mirror pipeline,
// the run history database, and the report writers.
//
// This package contains the following main types:
//   - PageTask: one page to mirror, with its output location
//   - PageResult: what happened to one page during a run
//   - MirrorReport: the outcome of a complete scrape run
//
// Design decision: We keep models in their own package so that pipeline,
// database, and report can share them without import cycles. All types are
// JSON-serializable for report output and database storage.
package model
