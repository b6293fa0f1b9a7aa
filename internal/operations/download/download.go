// Package download handles the per-item unit of a directory download.
//
// Each unit streams one object into one local file, reporting byte deltas as
// they are written. A unit that fails or is canceled removes the partial file
// it created.
package download

import (
	"context"
	"io"
	"os"

	"github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/pathmap"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/store"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/s3types"
)

// Downloader writes objects to a filesystem.
type Downloader struct {
	store store.Store
	fs    billy.Filesystem
}

// New creates a new Downloader.
func New(st store.Store, fs billy.Filesystem) *Downloader {
	return &Downloader{
		store: st,
		fs:    fs,
	}
}

// Request describes one object to download.
type Request struct {
	Bucket    string
	Key       string
	LocalPath string

	// RelativePath identifies the item in progress reports.
	RelativePath string

	// Size is the listed size, used when the response has no length.
	Size int64

	SSE *s3types.SSEConfig
}

// DownloadFile downloads one object to req.LocalPath, creating parent
// directories as needed and truncating an existing file.
func (d *Downloader) DownloadFile(
	ctx context.Context,
	req *Request,
	report func(s3types.ItemProgress),
) error {
	if err := ctx.Err(); err != nil {
		return errors.NewItemError("download", req.Bucket, req.Key, err)
	}

	if err := pathmap.EnsureParent(d.fs, req.LocalPath); err != nil {
		return errors.NewItemError("download", req.Bucket, req.Key, err)
	}

	output, err := d.store.GetObject(ctx, &store.GetInput{
		Bucket: req.Bucket,
		Key:    req.Key,
		SSE:    req.SSE,
	})
	if err != nil {
		return errors.NewItemError("download", req.Bucket, req.Key, err)
	}
	defer output.Body.Close()

	total := output.ContentLength
	if total <= 0 {
		total = req.Size
	}

	file, err := d.fs.OpenFile(req.LocalPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.NewItemError("download", req.Bucket, req.Key, err)
	}

	reader := &progressReader{
		ctx:    ctx,
		reader: output.Body,
		key:    req.RelativePath,
		total:  total,
		report: report,
	}

	buf := pool.GetCopyBuffer()
	defer pool.PutCopyBuffer(buf)

	if _, err := io.CopyBuffer(file, reader, buf); err != nil {
		_ = file.Close()
		_ = d.fs.Remove(req.LocalPath)
		return errors.NewItemError("download", req.Bucket, req.Key, err)
	}

	if err := file.Close(); err != nil {
		_ = d.fs.Remove(req.LocalPath)
		return errors.NewItemError("download", req.Bucket, req.Key, err)
	}

	if report != nil {
		report(s3types.ItemProgress{
			Key:              req.RelativePath,
			TransferredBytes: reader.read,
			TotalBytes:       total,
			Completed:        true,
		})
	}

	return nil
}

// progressReader reports each chunk read from the body as a delta and stops
// once ctx is done.
type progressReader struct {
	ctx    context.Context
	reader io.Reader
	key    string
	total  int64
	read   int64
	report func(s3types.ItemProgress)
}

func (pr *progressReader) Read(p []byte) (int, error) {
	if err := pr.ctx.Err(); err != nil {
		return 0, err
	}

	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.read += int64(n)
		if pr.report != nil {
			pr.report(s3types.ItemProgress{
				Key:              pr.key,
				BytesDelta:       int64(n),
				TransferredBytes: pr.read,
				TotalBytes:       pr.total,
			})
		}
	}
	//nolint:wrapcheck // io.Reader interface contract - error comes from underlying reader
	return n, err
}
