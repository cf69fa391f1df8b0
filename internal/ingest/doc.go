// Package ingest converts a semicolon-delimited listings export into
// validated buildings and units.
//
// The pipeline runs in one synchronous pass over text already held in memory:
//
//	text ─▶ Tokenize ─▶ HeaderMap ─▶ Record ─▶ assemble ─▶ validate ─▶ partition ─▶ Result
//
// Every data row ends up in exactly one place in the Result: inside a unit of
// a valid building, inside an EntityError, or as a RowError. Per-row and
// per-entity failures are returned as values. Import never panics and never
// returns an error; a caller inspects the Result and decides what to persist.
//
// The package performs no I/O and keeps no state between calls, so distinct
// inputs may be imported concurrently without coordination.
package ingest
