// Package executor runs the per-item units of a directory transfer under a
// bounded number of concurrency slots and stops scheduling on the first
// failure.
//
// Units are launched in job order, each holding one slot until it settles.
// The first unit to fail with a non-cancellation error trips a run-scoped
// signal that every running unit observes through its context; no further
// units are launched, while results of units already in flight are kept.
// Cancellations never trip the signal.
package executor
