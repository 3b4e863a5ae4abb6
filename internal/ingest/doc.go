// Package ingest loads allow-list rules in bulk from CSV uploads.
//
// A batch carries at most one file per rule kind. In Replace mode each
// supplied kind's table is truncated before its rows are inserted, even when
// the file holds no rows; kinds not supplied are left alone. In Append mode rows are inserted next to the
// existing ones. Either way the batch runs in one session and commits
// atomically; any failure rolls everything back and skips reconciliation.
// After a successful commit the reconciliation hook runs exactly once.
//
// A row whose identity is already stored, or repeats an earlier row of the
// same batch, is counted as already present rather than failing the batch.
package ingest
