// Package testutil provides test utilities for progress tracking.
package testutil

import (
	"sync"
	"sync/atomic"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/s3types"
)

// ProgressRecorder collects directory progress snapshots.
// It fails the recording if the callback is ever entered concurrently.
type ProgressRecorder struct {
	mu         sync.Mutex
	snapshots  []s3types.DirectoryProgress
	active     atomic.Int32
	Overlapped atomic.Bool
}

// Func returns the callback to register with a run.
func (r *ProgressRecorder) Func() s3types.ProgressFunc {
	return func(p s3types.DirectoryProgress) {
		if r.active.Add(1) > 1 {
			r.Overlapped.Store(true)
		}
		defer r.active.Add(-1)

		r.mu.Lock()
		r.snapshots = append(r.snapshots, p)
		r.mu.Unlock()
	}
}

// Snapshots returns a copy of the recorded snapshots.
func (r *ProgressRecorder) Snapshots() []s3types.DirectoryProgress {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]s3types.DirectoryProgress, len(r.snapshots))
	copy(out, r.snapshots)
	return out
}

// Last returns the most recent snapshot.
func (r *ProgressRecorder) Last() (s3types.DirectoryProgress, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return s3types.DirectoryProgress{}, false
	}
	return r.snapshots[len(r.snapshots)-1], true
}
