// Package batch implements a resumable, chunked work queue for bulk document
// ingestion. A Scheduler pulls bounded chunks of WorkItems off a pending
// queue, runs each chunk on a small worker pool under a per-item timeout and a
// retry policy, and emits ProcessingState snapshots so an interrupted run can
// be resumed without reprocessing settled items.
//
// The package performs no I/O of its own. Callers provide the ProcessFunc that
// does the actual work and a StateStore (or an OnSaveState hook) that persists
// snapshots.
package batch
