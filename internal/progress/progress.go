// Package progress aggregates per-item progress reports into run snapshots.
package progress

import (
	"sync"
	"sync/atomic"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/s3types"
)

// Aggregator folds item reports into aggregate counters and emits a snapshot
// to a single callback after every report. Counters are updated atomically;
// emission is serialized so the callback never runs concurrently with itself.
//
// In serial mode snapshots also carry the reporting item's key and byte
// counts. In concurrent mode those fields stay empty because no single item
// is "current".
type Aggregator struct {
	totalFiles int
	totalBytes int64
	serial     bool

	completed   atomic.Int64
	transferred atomic.Int64

	mu       sync.Mutex
	current  s3types.ItemProgress
	callback s3types.ProgressFunc
}

// New creates an Aggregator for a work set. callback may be nil.
func New(totalFiles int, totalBytes int64, serial bool, callback s3types.ProgressFunc) *Aggregator {
	return &Aggregator{
		totalFiles: totalFiles,
		totalBytes: totalBytes,
		serial:     serial,
		callback:   callback,
	}
}

// Observe records one item report. It is safe for concurrent use.
func (a *Aggregator) Observe(p s3types.ItemProgress) {
	if p.BytesDelta != 0 {
		a.transferred.Add(p.BytesDelta)
	}
	if p.Completed {
		a.completed.Add(1)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.serial {
		a.current = p
	}
	if a.callback != nil {
		a.callback(a.snapshotLocked())
	}
}

// Snapshot returns the current aggregate state.
func (a *Aggregator) Snapshot() s3types.DirectoryProgress {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// TransferredFiles returns the number of completed items.
func (a *Aggregator) TransferredFiles() int {
	return int(a.completed.Load())
}

// TransferredBytes returns the bytes moved so far.
func (a *Aggregator) TransferredBytes() int64 {
	return a.transferred.Load()
}

func (a *Aggregator) snapshotLocked() s3types.DirectoryProgress {
	snap := s3types.DirectoryProgress{
		TotalFiles:       a.totalFiles,
		TransferredFiles: int(a.completed.Load()),
		TotalBytes:       a.totalBytes,
		TransferredBytes: a.transferred.Load(),
	}
	if a.serial {
		snap.CurrentFile = a.current.Key
		snap.TransferredBytesForCurrentFile = a.current.TransferredBytes
		snap.TotalBytesForCurrentFile = a.current.TotalBytes
	}
	return snap
}
