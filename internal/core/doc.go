// Package core runs AssetPlan imports on behalf of the HTTP server and the
// CLI.
//
// The parsing pipeline itself lives in package ingest and is pure. This
// package adds everything around it:
//
//   - Input: size limit, byte order marks and Windows-1252 exports.
//   - Concurrency: an [ImportLimiter] bounds imports in flight.
//   - Persistence: valid buildings are saved through a [Store] and each
//     import is recorded in the history table.
//   - Events: an ImportCompleted message is published after saving.
//   - Errors: [MapError] turns technical errors into coded messages.
//
// # Flow
//
//	reader ─► ReadInput ─► ingest.Importer.Import ─► ImportReport
//	                                                   │ (Import only)
//	                                                   ▼
//	                           Store.SaveBuildings ─► RecordImport ─► publish
//
// Preview stops after the pipeline. Import always returns the report when
// the input could be read; save failures are reported per building in
// ImportReport.Save rather than as an error.
package core
