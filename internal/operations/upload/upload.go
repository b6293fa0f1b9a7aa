// Package upload handles the per-item unit of a directory upload.
package upload

import (
	"context"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/store"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/s3types"
)

// DefaultContentType is used when neither content nor extension identify a type.
const DefaultContentType = "application/octet-stream"

// sniffLength is how many leading bytes are used for content detection.
const sniffLength = 512

// Uploader writes local files to a store.
type Uploader struct {
	store store.Store
	fs    billy.Filesystem
}

// New creates a new Uploader.
func New(st store.Store, fs billy.Filesystem) *Uploader {
	return &Uploader{
		store: st,
		fs:    fs,
	}
}

// Request describes one file to upload.
type Request struct {
	Bucket    string
	Key       string
	LocalPath string

	// RelativePath identifies the item in progress reports.
	RelativePath string

	// ContentType overrides detection when set.
	ContentType string

	SSE *s3types.SSEConfig
}

// UploadFile uploads one file in a single request.
func (u *Uploader) UploadFile(
	ctx context.Context,
	req *Request,
	report func(s3types.ItemProgress),
) error {
	if err := ctx.Err(); err != nil {
		return errors.NewItemError("upload", req.Bucket, req.Key, err)
	}

	info, err := u.fs.Stat(req.LocalPath)
	if err != nil {
		return errors.NewItemError("upload", req.Bucket, req.Key, err)
	}

	file, err := u.fs.Open(req.LocalPath)
	if err != nil {
		return errors.NewItemError("upload", req.Bucket, req.Key, err)
	}
	defer file.Close()

	contentType := req.ContentType
	if contentType == "" {
		contentType, err = detectContentType(file, req.LocalPath)
		if err != nil {
			return errors.NewItemError("upload", req.Bucket, req.Key, err)
		}
	}

	body := &progressReadSeeker{
		ctx:    ctx,
		rs:     file,
		key:    req.RelativePath,
		total:  info.Size(),
		report: report,
	}

	if _, err := u.store.PutObject(ctx, &store.PutInput{
		Bucket:        req.Bucket,
		Key:           req.Key,
		Body:          body,
		ContentLength: info.Size(),
		ContentType:   contentType,
		SSE:           req.SSE,
	}); err != nil {
		return errors.NewItemError("upload", req.Bucket, req.Key, err)
	}

	// Account for bytes the store did not read back through the body.
	if report != nil {
		report(s3types.ItemProgress{
			Key:              req.RelativePath,
			BytesDelta:       info.Size() - body.reported,
			TransferredBytes: info.Size(),
			TotalBytes:       info.Size(),
			Completed:        true,
		})
	}

	return nil
}

// detectContentType sniffs the leading bytes with mimetype, falling back to
// the file extension, and rewinds the file.
func detectContentType(file io.ReadSeeker, path string) (string, error) {
	buf := make([]byte, sniffLength)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	if n > 0 {
		if mt := mimetype.Detect(buf[:n]); mt != nil && !mt.Is(DefaultContentType) {
			return mt.String(), nil
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt, nil
		}
	}
	return DefaultContentType, nil
}

// progressReadSeeker reports upload progress. SDKs may read a body more than
// once (hashing, then sending) by seeking back, so only bytes past the high
// water mark are reported.
type progressReadSeeker struct {
	ctx      context.Context
	rs       io.ReadSeeker
	key      string
	total    int64
	pos      int64
	reported int64
	report   func(s3types.ItemProgress)
}

func (p *progressReadSeeker) Read(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}

	n, err := p.rs.Read(b)
	p.pos += int64(n)
	if p.pos > p.reported {
		delta := p.pos - p.reported
		p.reported = p.pos
		if p.report != nil {
			p.report(s3types.ItemProgress{
				Key:              p.key,
				BytesDelta:       delta,
				TransferredBytes: p.reported,
				TotalBytes:       p.total,
			})
		}
	}
	//nolint:wrapcheck // io.Reader interface contract - error comes from underlying reader
	return n, err
}

func (p *progressReadSeeker) Seek(offset int64, whence int) (int64, error) {
	pos, err := p.rs.Seek(offset, whence)
	if err != nil {
		return pos, err
	}
	p.pos = pos
	return pos, nil
}
