// Package syncer is the business boundary for alert synchronization. It
// owns the polling loop against the backend (single-flight, fixed interval),
// feeds normalized snapshots into the store, tracks sync status, and runs
// the optimistic acknowledge/dismiss mutations with their reconciliation
// and resync recovery paths.
package syncer
