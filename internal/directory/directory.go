// Package directory runs whole-directory transfers.
//
// A run validates its request, enumerates and filters the work set, then hands
// one job per item to the executor. Download runs list a bucket prefix and
// write under a local root; upload runs walk a local root and write under a
// bucket prefix. Both share the same fail-fast and cancellation semantics and
// report through a single progress aggregator.
package directory

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/executor"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/filter"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/operations/download"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/operations/list"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/operations/scan"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/operations/upload"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/pathmap"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/progress"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/store"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/s3types"
)

// DefaultConcurrency is the number of slots used when none is configured.
const DefaultConcurrency = 5

// Config holds the client-level settings shared by every run.
type Config struct {
	Store      store.Store
	Filesystem billy.Filesystem
	Logger     *slog.Logger
	Observer   s3types.TransferObserver

	// Concurrency is the slot count for concurrent runs.
	Concurrency int

	// SkipInstructionFiles drops encryption instruction files from downloads.
	SkipInstructionFiles bool

	// PageSize bounds each listing request.
	PageSize int32
}

// Command executes directory transfers.
type Command struct {
	config     Config
	logger     *slog.Logger
	lister     *list.Lister
	scanner    *scan.Scanner
	downloader *download.Downloader
	uploader   *upload.Uploader
}

// New creates a new Command.
func New(config Config) *Command {
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	return &Command{
		config:     config,
		logger:     config.Logger,
		lister:     list.New(config.Store, config.Logger),
		scanner:    scan.New(config.Filesystem, config.Logger),
		downloader: download.New(config.Store, config.Filesystem),
		uploader:   upload.New(config.Store, config.Filesystem),
	}
}

// Download copies every object under req.Prefix into req.LocalDirectory.
//
// Validation, local root preparation and listing errors are fatal and return
// a nil result. Once items are scheduled the result is always non-nil and the
// error is the first item failure or the cancellation.
func (c *Command) Download(
	ctx context.Context,
	req *s3types.DownloadDirectoryRequest,
	opts *s3types.DirectoryOptionConfig,
) (*s3types.DirectoryResult, error) {
	start := time.Now()

	if err := validation.ValidateDownloadRequest(req); err != nil {
		return nil, err
	}
	width, err := c.width(req.DownloadFilesConcurrently, opts)
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(req.LocalDirectory)
	if err != nil {
		return nil, errors.NewError("downloadDirectory", errors.ErrInvalidInput).WithMessage(err.Error())
	}
	if err := pathmap.EnsureRoot(c.config.Filesystem, root); err != nil {
		return nil, err
	}

	f, err := filter.New(filter.Options{
		ModifiedSince:        req.ModifiedSince,
		UnmodifiedSince:      req.UnmodifiedSince,
		SkipInstructionFiles: c.config.SkipInstructionFiles,
		IncludePatterns:      req.IncludePatterns,
		ExcludePatterns:      req.ExcludePatterns,
	})
	if err != nil {
		return nil, err
	}

	prefix := list.NormalizePrefix(req.Prefix, req.DisableSlashCorrection)
	logger := c.logger.With(
		slog.String("run_id", uuid.NewString()),
		slog.String("direction", string(s3types.DirectionDownload)),
		slog.String("bucket", req.Bucket),
		slog.String("prefix", prefix),
	)

	listing, err := c.lister.Enumerate(ctx, &list.Config{
		Bucket:       req.Bucket,
		Prefix:       prefix,
		PrefixLength: pathmap.PrefixLength(prefix, req.DisableSlashCorrection),
		PageSize:     c.config.PageSize,
		Filter:       f,
	})
	if err != nil {
		if ctx.Err() != nil {
			err = errors.NewCanceledError("downloadDirectory", context.Cause(ctx))
		} else {
			err = errors.NewListingError(req.Bucket, err)
		}
		logger.Error("listing failed", slog.String("error", err.Error()))
		return nil, err
	}

	logger.Info("starting download",
		slog.Int("items", len(listing.Items)),
		slog.Int64("bytes", listing.TotalBytes),
		slog.Bool("legacy_listing", listing.Legacy))

	r := c.newRun(s3types.DirectionDownload, listing.Items, listing.TotalBytes, width, opts)
	jobs := make([]executor.Job, 0, len(listing.Items))
	for _, item := range listing.Items {
		jobs = append(jobs, executor.Job{
			Key: item.Key,
			Build: func() (executor.Task, error) {
				local, err := pathmap.LocalPath(root, item.RelativePath)
				if err != nil {
					logger.Warn("skipping item outside local directory", slog.String("key", item.Key))
					return nil, errors.NewItemError("download", req.Bucket, item.Key, err)
				}
				dreq := &download.Request{
					Bucket:       req.Bucket,
					Key:          item.Key,
					LocalPath:    local,
					RelativePath: item.RelativePath,
					Size:         item.Size,
					SSE:          req.SSE,
				}
				return func(ctx context.Context) error {
					logger.Debug("downloading", slog.String("key", item.Key))
					return c.downloader.DownloadFile(ctx, dreq, r.report)
				}, nil
			},
		})
	}

	result := &s3types.DirectoryResult{
		Direction:      s3types.DirectionDownload,
		Bucket:         req.Bucket,
		Prefix:         prefix,
		LocalDirectory: root,
	}
	return c.finish(ctx, logger, r, jobs, result, start)
}

// Upload copies every file under req.LocalDirectory to req.Prefix.
//
// Error and result semantics match Download.
func (c *Command) Upload(
	ctx context.Context,
	req *s3types.UploadDirectoryRequest,
	opts *s3types.DirectoryOptionConfig,
) (*s3types.DirectoryResult, error) {
	start := time.Now()

	if err := validation.ValidateUploadRequest(req); err != nil {
		return nil, err
	}
	width, err := c.width(req.UploadFilesConcurrently, opts)
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(req.LocalDirectory)
	if err != nil {
		return nil, errors.NewError("uploadDirectory", errors.ErrInvalidInput).WithMessage(err.Error())
	}

	f, err := filter.New(filter.Options{
		ModifiedSince:   req.ModifiedSince,
		UnmodifiedSince: req.UnmodifiedSince,
		IncludePatterns: req.IncludePatterns,
		ExcludePatterns: req.ExcludePatterns,
	})
	if err != nil {
		return nil, err
	}

	prefix := ""
	if req.Prefix != "" {
		prefix = list.NormalizePrefix(req.Prefix, req.DisableSlashCorrection)
	}
	logger := c.logger.With(
		slog.String("run_id", uuid.NewString()),
		slog.String("direction", string(s3types.DirectionUpload)),
		slog.String("bucket", req.Bucket),
		slog.String("prefix", prefix),
	)

	scanned, err := c.scanner.Scan(ctx, &scan.Config{
		Root:   root,
		Prefix: prefix,
		Filter: f,
	})
	if err != nil {
		if ctx.Err() != nil {
			err = errors.NewCanceledError("uploadDirectory", context.Cause(ctx))
		}
		logger.Error("scan failed", slog.String("error", err.Error()))
		return nil, err
	}

	logger.Info("starting upload",
		slog.Int("items", len(scanned.Items)),
		slog.Int64("bytes", scanned.TotalBytes))

	r := c.newRun(s3types.DirectionUpload, scanned.Items, scanned.TotalBytes, width, opts)
	jobs := make([]executor.Job, 0, len(scanned.Items))
	for _, item := range scanned.Items {
		jobs = append(jobs, executor.Job{
			Key: item.Key,
			Build: func() (executor.Task, error) {
				key, err := pathmap.RemoteKey(root, item.LocalPath, prefix)
				if err != nil {
					logger.Warn("skipping file with invalid key", slog.String("key", item.Key))
					return nil, errors.NewItemError("upload", req.Bucket, item.Key, err)
				}
				ureq := &upload.Request{
					Bucket:       req.Bucket,
					Key:          key,
					LocalPath:    item.LocalPath,
					RelativePath: item.RelativePath,
					ContentType:  req.ContentType,
					SSE:          req.SSE,
				}
				return func(ctx context.Context) error {
					logger.Debug("uploading", slog.String("key", key))
					return c.uploader.UploadFile(ctx, ureq, r.report)
				}, nil
			},
		})
	}

	result := &s3types.DirectoryResult{
		Direction:      s3types.DirectionUpload,
		Bucket:         req.Bucket,
		Prefix:         prefix,
		LocalDirectory: root,
	}
	return c.finish(ctx, logger, r, jobs, result, start)
}

// width returns the slot count for a run. Serial runs use one slot.
func (c *Command) width(concurrent bool, opts *s3types.DirectoryOptionConfig) (int, error) {
	if !concurrent {
		return 1, nil
	}
	width := c.config.Concurrency
	if opts != nil && opts.Concurrency > 0 {
		width = opts.Concurrency
	}
	if err := validation.ValidateConcurrency(width); err != nil {
		return 0, err
	}
	return width, nil
}

// run carries the per-run progress plumbing shared by all units.
type run struct {
	direction  s3types.Direction
	width      int
	totalFiles int
	totalBytes int64
	agg        *progress.Aggregator
	observer   s3types.TransferObserver

	// mu guards closed. Reports hold it for reading while forwarding.
	mu     sync.RWMutex
	closed bool
}

func (c *Command) newRun(
	direction s3types.Direction,
	items []s3types.TransferItem,
	totalBytes int64,
	width int,
	opts *s3types.DirectoryOptionConfig,
) *run {
	var callback s3types.ProgressFunc
	if opts != nil {
		callback = opts.Progress
	}
	return &run{
		direction:  direction,
		width:      width,
		totalFiles: len(items),
		totalBytes: totalBytes,
		agg:        progress.New(len(items), totalBytes, width == 1, callback),
		observer:   c.config.Observer,
	}
}

func (r *run) report(p s3types.ItemProgress) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	r.agg.Observe(p)
	if r.observer != nil {
		r.observer.ObserveItem(r.direction, p)
	}
}

// close drops reports from units still running after an abandoned drain.
// Once it returns, no callback or observer call is in progress.
func (r *run) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

// finish executes the jobs and folds the report into result.
func (c *Command) finish(
	ctx context.Context,
	logger *slog.Logger,
	r *run,
	jobs []executor.Job,
	result *s3types.DirectoryResult,
	start time.Time,
) (*s3types.DirectoryResult, error) {
	exec, err := executor.New(r.width, logger)
	if err != nil {
		return nil, err
	}

	report := exec.Execute(ctx, jobs)
	r.close()

	result.Outcome = report.Outcome
	result.TotalFiles = r.totalFiles
	result.TotalBytes = r.totalBytes
	result.TransferredFiles = r.agg.TransferredFiles()
	result.TransferredBytes = r.agg.TransferredBytes()
	for _, s := range report.Failures() {
		result.Failures = append(result.Failures, s3types.ItemFailure{Key: s.Key, Err: s.Err})
	}
	result.Duration = time.Since(start)

	var runErr error
	switch report.Outcome {
	case s3types.OutcomeFailed:
		runErr = report.Err
	case s3types.OutcomeCanceled:
		runErr = errors.NewCanceledError(string(result.Direction)+"Directory", report.Err)
	}

	if r.observer != nil {
		r.observer.ObserveResult(result)
	}

	attrs := []any{
		slog.String("outcome", string(result.Outcome)),
		slog.Int("items", result.TransferredFiles),
		slog.Int64("bytes", result.TransferredBytes),
		slog.Int("skipped", report.Skipped),
		slog.Duration("duration", result.Duration),
	}
	switch {
	case runErr == nil:
		logger.Info("transfer finished", attrs...)
	case report.Outcome == s3types.OutcomeCanceled:
		logger.Warn("transfer canceled", append(attrs, slog.Int("abandoned", report.Abandoned))...)
	default:
		logger.Error("transfer failed", append(attrs, slog.String("error", runErr.Error()))...)
	}

	return result, runErr
}
