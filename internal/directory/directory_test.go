package directory

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/s3types"
)

var seeded = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store *testutil.MemoryStore
	fs    billy.Filesystem
	cmd   *Command
}

func newFixture(t *testing.T, config Config) *fixture {
	t.Helper()
	st := testutil.NewMemoryStore()
	fs := memfs.New()
	config.Store = st
	config.Filesystem = fs
	return &fixture{store: st, fs: fs, cmd: New(config)}
}

func (f *fixture) seedDocs() {
	f.store.Put("bucket", "docs/a.txt", make([]byte, 100), seeded)
	f.store.Put("bucket", "docs/sub/b.txt", make([]byte, 200), seeded)
	f.store.Put("bucket", "other/c.txt", make([]byte, 50), seeded)
}

type recordingObserver struct {
	mu      sync.Mutex
	bytes   int64
	results []*s3types.DirectoryResult
}

func (o *recordingObserver) ObserveItem(_ s3types.Direction, p s3types.ItemProgress) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.bytes += p.BytesDelta
}

func (o *recordingObserver) ObserveResult(r *s3types.DirectoryResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, r)
}

func TestDownload_DocsPrefix(t *testing.T) {
	observer := &recordingObserver{}
	f := newFixture(t, Config{Observer: observer})
	f.seedDocs()
	rec := &testutil.ProgressRecorder{}

	result, err := f.cmd.Download(context.Background(), &s3types.DownloadDirectoryRequest{
		Bucket:         "bucket",
		Prefix:         "docs",
		LocalDirectory: "/data/out",
	}, &s3types.DirectoryOptionConfig{Progress: rec.Func()})
	require.NoError(t, err)

	assert.Equal(t, s3types.OutcomeSucceeded, result.Outcome)
	assert.Equal(t, "docs/", result.Prefix)
	assert.Equal(t, 2, result.TotalFiles)
	assert.Equal(t, int64(300), result.TotalBytes)
	assert.Equal(t, 2, result.TransferredFiles)
	assert.Equal(t, int64(300), result.TransferredBytes)
	assert.Empty(t, result.Failures)

	a, err := util.ReadFile(f.fs, "/data/out/a.txt")
	require.NoError(t, err)
	assert.Len(t, a, 100)
	b, err := util.ReadFile(f.fs, "/data/out/sub/b.txt")
	require.NoError(t, err)
	assert.Len(t, b, 200)
	_, err = f.fs.Stat("/data/out/c.txt")
	assert.Error(t, err)

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, 2, last.TransferredFiles)
	assert.Equal(t, int64(300), last.TransferredBytes)
	assert.Equal(t, "sub/b.txt", last.CurrentFile)

	require.Len(t, observer.results, 1)
	assert.Same(t, result, observer.results[0])
	assert.Equal(t, int64(300), observer.bytes)
}

func TestDownload_Concurrent(t *testing.T) {
	f := newFixture(t, Config{Concurrency: 4})
	for i := 0; i < 30; i++ {
		f.store.Put("bucket", fmt.Sprintf("data/file-%02d.bin", i), make([]byte, 10+i), seeded)
	}
	rec := &testutil.ProgressRecorder{}

	result, err := f.cmd.Download(context.Background(), &s3types.DownloadDirectoryRequest{
		Bucket:                    "bucket",
		Prefix:                    "data/",
		LocalDirectory:            "/out",
		DownloadFilesConcurrently: true,
	}, &s3types.DirectoryOptionConfig{Progress: rec.Func()})
	require.NoError(t, err)

	assert.Equal(t, s3types.OutcomeSucceeded, result.Outcome)
	assert.Equal(t, 30, result.TransferredFiles)
	assert.Equal(t, result.TotalBytes, result.TransferredBytes)
	assert.False(t, rec.Overlapped.Load())

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Empty(t, last.CurrentFile)
}

func TestDownload_SerialFailFast(t *testing.T) {
	f := newFixture(t, Config{})
	f.store.Put("bucket", "docs/1.txt", []byte("one"), seeded)
	f.store.Put("bucket", "docs/2.txt", []byte("two"), seeded)
	f.store.Put("bucket", "docs/3.txt", []byte("three"), seeded)

	var fetched []string
	f.store.GetHook = func(_ context.Context, key string) error {
		fetched = append(fetched, key)
		if key == "docs/2.txt" {
			return stderrors.New("connection reset")
		}
		return nil
	}

	result, err := f.cmd.Download(context.Background(), &s3types.DownloadDirectoryRequest{
		Bucket:         "bucket",
		Prefix:         "docs/",
		LocalDirectory: "/out",
	}, nil)
	require.Error(t, err)
	require.NotNil(t, result)

	assert.True(t, errors.IsItemTransfer(err))
	assert.Equal(t, s3types.OutcomeFailed, result.Outcome)
	assert.Equal(t, []string{"docs/1.txt", "docs/2.txt"}, fetched)
	assert.Equal(t, 1, result.TransferredFiles)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "docs/2.txt", result.Failures[0].Key)
}

func TestDownload_PathEscape(t *testing.T) {
	f := newFixture(t, Config{})
	f.store.Put("bucket", "docs/../../etc/passwd", []byte("root:x:0:0"), seeded)

	result, err := f.cmd.Download(context.Background(), &s3types.DownloadDirectoryRequest{
		Bucket:         "bucket",
		Prefix:         "docs",
		LocalDirectory: "/data/out",
	}, nil)
	require.Error(t, err)
	require.NotNil(t, result)

	assert.True(t, errors.IsValidation(err))
	assert.ErrorIs(t, err, errors.ErrPathEscape)
	assert.Equal(t, s3types.OutcomeFailed, result.Outcome)
	assert.Zero(t, result.TransferredFiles)

	_, statErr := f.fs.Stat("/etc/passwd")
	assert.Error(t, statErr)
}

func TestDownload_Canceled(t *testing.T) {
	f := newFixture(t, Config{})
	f.seedDocs()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.store.GetHook = func(ctx context.Context, key string) error {
		if key == "docs/a.txt" {
			cancel()
			return ctx.Err()
		}
		return nil
	}

	result, err := f.cmd.Download(ctx, &s3types.DownloadDirectoryRequest{
		Bucket:         "bucket",
		Prefix:         "docs",
		LocalDirectory: "/out",
	}, nil)
	require.Error(t, err)
	require.NotNil(t, result)

	assert.True(t, errors.IsCanceled(err))
	assert.ErrorIs(t, err, errors.ErrCanceled)
	assert.Equal(t, s3types.OutcomeCanceled, result.Outcome)
	assert.Empty(t, result.Failures)
	assert.Zero(t, result.TransferredFiles)
}

func TestDownload_LegacyListingFallback(t *testing.T) {
	primary := newFixture(t, Config{PageSize: 1})
	primary.seedDocs()
	legacy := newFixture(t, Config{PageSize: 1})
	legacy.seedDocs()
	legacy.store.PrimaryNotImplemented = true

	req := func() *s3types.DownloadDirectoryRequest {
		return &s3types.DownloadDirectoryRequest{Bucket: "bucket", Prefix: "docs", LocalDirectory: "/out"}
	}

	want, err := primary.cmd.Download(context.Background(), req(), nil)
	require.NoError(t, err)
	got, err := legacy.cmd.Download(context.Background(), req(), nil)
	require.NoError(t, err)

	assert.Equal(t, want.TotalFiles, got.TotalFiles)
	assert.Equal(t, want.TotalBytes, got.TotalBytes)
	assert.Positive(t, legacy.store.LegacyListCalls())
	assert.Zero(t, primary.store.LegacyListCalls())

	for _, path := range []string{"/out/a.txt", "/out/sub/b.txt"} {
		_, err := legacy.fs.Stat(path)
		assert.NoError(t, err, path)
	}
}

func TestDownload_FatalErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture)
		req     *s3types.DownloadDirectoryRequest
		opts    *s3types.DirectoryOptionConfig
		checkFn func(t *testing.T, err error)
	}{
		{
			name: "missing bucket",
			req:  &s3types.DownloadDirectoryRequest{Prefix: "docs", LocalDirectory: "/out"},
			checkFn: func(t *testing.T, err error) {
				assert.True(t, errors.IsInvalidInput(err))
			},
		},
		{
			name: "local root is a file",
			setup: func(f *fixture) {
				_ = util.WriteFile(f.fs, "/out", []byte("x"), 0o644)
			},
			req: &s3types.DownloadDirectoryRequest{Bucket: "bucket", Prefix: "docs", LocalDirectory: "/out"},
			checkFn: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, errors.ErrFileCollision)
			},
		},
		{
			name: "listing failure",
			setup: func(f *fixture) {
				f.store.ListErr = fmt.Errorf("%w: ListObjectsV2", errors.ErrAccessDenied)
			},
			req: &s3types.DownloadDirectoryRequest{Bucket: "bucket", Prefix: "docs", LocalDirectory: "/out"},
			checkFn: func(t *testing.T, err error) {
				assert.True(t, errors.IsListing(err))
				assert.True(t, errors.IsAccessDenied(err))
			},
		},
		{
			name: "bad pattern",
			req: &s3types.DownloadDirectoryRequest{
				Bucket: "bucket", Prefix: "docs", LocalDirectory: "/out",
				IncludePatterns: []string{"[unclosed"},
			},
			checkFn: func(t *testing.T, err error) {
				assert.True(t, errors.IsInvalidInput(err))
			},
		},
		{
			name: "concurrency out of range",
			req: &s3types.DownloadDirectoryRequest{
				Bucket: "bucket", Prefix: "docs", LocalDirectory: "/out",
				DownloadFilesConcurrently: true,
			},
			opts: &s3types.DirectoryOptionConfig{Concurrency: 1000},
			checkFn: func(t *testing.T, err error) {
				assert.True(t, errors.IsInvalidInput(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{})
			f.seedDocs()
			if tt.setup != nil {
				tt.setup(f)
			}

			result, err := f.cmd.Download(context.Background(), tt.req, tt.opts)
			require.Error(t, err)
			assert.Nil(t, result)
			tt.checkFn(t, err)
		})
	}
}

func TestDownload_Filters(t *testing.T) {
	f := newFixture(t, Config{SkipInstructionFiles: true})
	f.store.Put("bucket", "logs/old.txt", []byte("old"), seeded.Add(-48*time.Hour))
	f.store.Put("bucket", "logs/new.txt", []byte("new"), seeded)
	f.store.Put("bucket", "logs/new.txt.instruction", []byte("{}"), seeded)
	f.store.Put("bucket", "logs/dir/", nil, seeded)
	f.store.Put("bucket", "logs/skip.tmp", []byte("tmp"), seeded)

	since := seeded.Add(-24 * time.Hour)
	result, err := f.cmd.Download(context.Background(), &s3types.DownloadDirectoryRequest{
		Bucket:          "bucket",
		Prefix:          "logs",
		LocalDirectory:  "/out",
		ModifiedSince:   &since,
		ExcludePatterns: []string{"*.tmp"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalFiles)
	assert.Equal(t, int64(3), result.TotalBytes)
	_, err = f.fs.Stat("/out/new.txt")
	assert.NoError(t, err)
}

func TestUpload(t *testing.T) {
	observer := &recordingObserver{}
	f := newFixture(t, Config{Observer: observer})
	require.NoError(t, util.WriteFile(f.fs, "/src/a.txt", make([]byte, 100), 0o644))
	require.NoError(t, util.WriteFile(f.fs, "/src/sub/b.txt", make([]byte, 200), 0o644))

	result, err := f.cmd.Upload(context.Background(), &s3types.UploadDirectoryRequest{
		LocalDirectory:          "/src",
		Bucket:                  "bucket",
		Prefix:                  "backup",
		UploadFilesConcurrently: true,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, s3types.OutcomeSucceeded, result.Outcome)
	assert.Equal(t, s3types.DirectionUpload, result.Direction)
	assert.Equal(t, "backup/", result.Prefix)
	assert.Equal(t, 2, result.TransferredFiles)
	assert.Equal(t, int64(300), result.TransferredBytes)
	assert.Equal(t, []string{"backup/a.txt", "backup/sub/b.txt"}, f.store.Keys("bucket"))
	require.Len(t, observer.results, 1)
}

func TestUpload_DisableSlashCorrection(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, util.WriteFile(f.fs, "/src/a.txt", []byte("a"), 0o644))

	_, err := f.cmd.Upload(context.Background(), &s3types.UploadDirectoryRequest{
		LocalDirectory:         "/src",
		Bucket:                 "bucket",
		Prefix:                 "backup-",
		DisableSlashCorrection: true,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"backup-a.txt"}, f.store.Keys("bucket"))
}

func TestUpload_FailFast(t *testing.T) {
	f := newFixture(t, Config{})
	for i := 0; i < 5; i++ {
		require.NoError(t, util.WriteFile(f.fs, fmt.Sprintf("/src/%d.txt", i), []byte("x"), 0o644))
	}

	var puts atomic.Int32
	f.store.PutHook = func(_ context.Context, key string) error {
		puts.Add(1)
		if key == "1.txt" {
			return stderrors.New("slow down")
		}
		return nil
	}

	result, err := f.cmd.Upload(context.Background(), &s3types.UploadDirectoryRequest{
		LocalDirectory: "/src",
		Bucket:         "bucket",
	}, nil)
	require.Error(t, err)
	require.NotNil(t, result)

	assert.True(t, errors.IsItemTransfer(err))
	assert.Equal(t, s3types.OutcomeFailed, result.Outcome)
	assert.Equal(t, int32(2), puts.Load())
	assert.Equal(t, []string{"0.txt"}, f.store.Keys("bucket"))
}

func TestUpload_MissingDirectory(t *testing.T) {
	f := newFixture(t, Config{})

	result, err := f.cmd.Upload(context.Background(), &s3types.UploadDirectoryRequest{
		LocalDirectory: "/nope",
		Bucket:         "bucket",
	}, nil)
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestRun_NoReportsAfterClose(t *testing.T) {
	observer := &recordingObserver{}
	f := newFixture(t, Config{Observer: observer})
	rec := &testutil.ProgressRecorder{}

	items := []s3types.TransferItem{{Key: "a.txt", Size: 10}, {Key: "b.txt", Size: 10}}
	r := f.cmd.newRun(s3types.DirectionDownload, items, 20, 2, &s3types.DirectoryOptionConfig{Progress: rec.Func()})

	r.report(s3types.ItemProgress{Key: "a.txt", BytesDelta: 10, TotalBytes: 10, Completed: true})
	r.close()
	r.report(s3types.ItemProgress{Key: "b.txt", BytesDelta: 10, TotalBytes: 10, Completed: true})

	assert.Len(t, rec.Snapshots(), 1)
	assert.Equal(t, int64(10), observer.bytes)
	assert.Equal(t, 1, r.agg.TransferredFiles())
	assert.Equal(t, int64(10), r.agg.TransferredBytes())
}
