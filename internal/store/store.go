// Package store narrows S3-compatible clients to the object operations used by
// directory transfers: paged listing, whole-object reads and whole-object writes.
//
// Two adapters are provided. AWS wraps the AWS SDK v2 client and MinIO wraps the
// minio-go client. Both report a store that lacks the primary listing API with
// errors.ErrNotImplemented so callers can fall back to the legacy listing.
package store

import (
	"context"
	"io"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/s3types"
)

// MaxPageSize is the largest page S3 returns for a single listing request.
const MaxPageSize int32 = 1000

// Entry is a single object returned by a listing.
type Entry struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// ListInput describes one listing request.
type ListInput struct {
	Bucket string
	Prefix string

	// Cursor is the opaque position returned by the previous page.
	// Empty for the first page.
	Cursor string

	// MaxKeys bounds the page size. Zero or values above MaxPageSize use MaxPageSize.
	MaxKeys int32

	// Legacy selects marker-based listing instead of continuation tokens.
	Legacy bool
}

// ListPage is one page of listing results.
type ListPage struct {
	Entries []Entry

	// Truncated is true when more pages follow.
	Truncated bool

	// NextCursor is passed back in ListInput.Cursor to fetch the next page.
	NextCursor string
}

// GetInput describes a whole-object read.
type GetInput struct {
	Bucket string
	Key    string
	SSE    *s3types.SSEConfig
}

// GetOutput carries the object body. Callers must close Body.
type GetOutput struct {
	Body          io.ReadCloser
	ContentLength int64
	ETag          string
}

// PutInput describes a whole-object write.
type PutInput struct {
	Bucket        string
	Key           string
	Body          io.ReadSeeker
	ContentLength int64
	ContentType   string
	SSE           *s3types.SSEConfig
}

// PutOutput is the result of a write.
type PutOutput struct {
	ETag string
}

// Store is the object store seen by directory transfers.
type Store interface {
	// List fetches one page of objects under a prefix.
	List(ctx context.Context, input *ListInput) (*ListPage, error)

	// GetObject opens an object for reading.
	GetObject(ctx context.Context, input *GetInput) (*GetOutput, error)

	// PutObject writes an object from a seekable body.
	PutObject(ctx context.Context, input *PutInput) (*PutOutput, error)
}

func pageSize(maxKeys int32) int32 {
	if maxKeys <= 0 || maxKeys > MaxPageSize {
		return MaxPageSize
	}
	return maxKeys
}
