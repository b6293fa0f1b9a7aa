package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/encrypt"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/s3types"
)

// MinIO adapts the minio-go client.
//
// minio-go streams listings over a channel and pages internally, so a page is
// cut client-side and the last key of the page becomes the cursor. Both
// listing flavours accept that key as their start position.
type MinIO struct {
	client *minio.Client
}

// NewMinIO creates a Store backed by minio-go.
func NewMinIO(client *minio.Client) *MinIO {
	return &MinIO{client: client}
}

// List fetches one page of objects.
func (m *MinIO) List(ctx context.Context, input *ListInput) (*ListPage, error) {
	size := int(pageSize(input.MaxKeys))

	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := minio.ListObjectsOptions{
		Prefix:     input.Prefix,
		Recursive:  true,
		StartAfter: input.Cursor,
		UseV1:      input.Legacy,
		MaxKeys:    size + 1,
	}

	page := &ListPage{Entries: make([]Entry, 0, size)}
	for obj := range m.client.ListObjects(listCtx, input.Bucket, opts) {
		if obj.Err != nil {
			return nil, classifyMinioError(obj.Err)
		}
		if len(page.Entries) == size {
			page.Truncated = true
			page.NextCursor = page.Entries[size-1].Key
			break
		}
		page.Entries = append(page.Entries, Entry{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
			ETag:         obj.ETag,
		})
	}

	// minio-go closes the channel quietly on cancellation.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return page, nil
}

// GetObject opens an object for reading.
func (m *MinIO) GetObject(ctx context.Context, input *GetInput) (*GetOutput, error) {
	opts := minio.GetObjectOptions{}
	if input.SSE != nil && input.SSE.Type == s3types.SSEC {
		sse, err := minioSSE(input.SSE)
		if err != nil {
			return nil, err
		}
		opts.ServerSideEncryption = sse
	}

	obj, err := m.client.GetObject(ctx, input.Bucket, input.Key, opts)
	if err != nil {
		return nil, classifyMinioError(err)
	}

	// GetObject is lazy; Stat surfaces missing objects and denied access.
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, classifyMinioError(err)
	}

	return &GetOutput{
		Body:          obj,
		ContentLength: info.Size,
		ETag:          info.ETag,
	}, nil
}

// PutObject writes an object in a single request.
func (m *MinIO) PutObject(ctx context.Context, input *PutInput) (*PutOutput, error) {
	opts := minio.PutObjectOptions{ContentType: input.ContentType}
	if input.SSE != nil {
		sse, err := minioSSE(input.SSE)
		if err != nil {
			return nil, err
		}
		opts.ServerSideEncryption = sse
	}

	info, err := m.client.PutObject(ctx, input.Bucket, input.Key, input.Body, input.ContentLength, opts)
	if err != nil {
		return nil, classifyMinioError(err)
	}
	return &PutOutput{ETag: info.ETag}, nil
}

func minioSSE(cfg *s3types.SSEConfig) (encrypt.ServerSide, error) {
	switch cfg.Type {
	case s3types.SSES3:
		return encrypt.NewSSE(), nil
	case s3types.SSEKMS:
		sse, err := encrypt.NewSSEKMS(cfg.KMSKeyID, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: sse-kms: %w", errors.ErrInvalidInput, err)
		}
		return sse, nil
	case s3types.SSEC:
		key, err := base64.StdEncoding.DecodeString(cfg.CustomerKey)
		if err != nil {
			return nil, fmt.Errorf("%w: sse-c key is not base64: %w", errors.ErrInvalidInput, err)
		}
		sse, err := encrypt.NewSSEC(key)
		if err != nil {
			return nil, fmt.Errorf("%w: sse-c: %w", errors.ErrInvalidInput, err)
		}
		return sse, nil
	default:
		return nil, fmt.Errorf("%w: unsupported sse type %q", errors.ErrInvalidInput, cfg.Type)
	}
}

func classifyMinioError(err error) error {
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NotImplemented" || resp.StatusCode == http.StatusNotImplemented:
		return fmt.Errorf("%w: %w", errors.ErrNotImplemented, err)
	case resp.Code == "NoSuchKey":
		return fmt.Errorf("%w: %w", errors.ErrObjectNotFound, err)
	case resp.Code == "NoSuchBucket":
		return fmt.Errorf("%w: %w", errors.ErrBucketNotFound, err)
	case resp.Code == "AccessDenied" || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %w", errors.ErrAccessDenied, err)
	}
	return err
}
