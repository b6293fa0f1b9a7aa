package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/s3types"
)

// sseCustomerAlgorithm is the only algorithm S3 accepts for customer-provided keys.
const sseCustomerAlgorithm = "AES256"

// AWS adapts the AWS SDK v2 S3 client.
type AWS struct {
	client s3api.S3API
}

// NewAWS creates a Store backed by the AWS SDK.
func NewAWS(client s3api.S3API) *AWS {
	return &AWS{client: client}
}

// List fetches one page using ListObjectsV2, or ListObjects when input.Legacy is set.
func (a *AWS) List(ctx context.Context, input *ListInput) (*ListPage, error) {
	if input.Legacy {
		return a.listLegacy(ctx, input)
	}

	params := &s3.ListObjectsV2Input{
		Bucket:  aws.String(input.Bucket),
		Prefix:  aws.String(input.Prefix),
		MaxKeys: aws.Int32(pageSize(input.MaxKeys)),
	}
	if input.Cursor != "" {
		params.ContinuationToken = aws.String(input.Cursor)
	}

	output, err := a.client.ListObjectsV2(ctx, params)
	if err != nil {
		return nil, classifyAWSError(err)
	}

	page := &ListPage{
		Entries:   convertObjects(output.Contents),
		Truncated: aws.ToBool(output.IsTruncated),
	}
	if page.Truncated {
		page.NextCursor = aws.ToString(output.NextContinuationToken)
	}
	return page, nil
}

func (a *AWS) listLegacy(ctx context.Context, input *ListInput) (*ListPage, error) {
	params := &s3.ListObjectsInput{
		Bucket:  aws.String(input.Bucket),
		Prefix:  aws.String(input.Prefix),
		MaxKeys: aws.Int32(pageSize(input.MaxKeys)),
	}
	if input.Cursor != "" {
		params.Marker = aws.String(input.Cursor)
	}

	output, err := a.client.ListObjects(ctx, params)
	if err != nil {
		return nil, classifyAWSError(err)
	}

	page := &ListPage{
		Entries:   convertObjects(output.Contents),
		Truncated: aws.ToBool(output.IsTruncated),
	}
	if page.Truncated {
		// NextMarker is only returned when a delimiter is set.
		page.NextCursor = aws.ToString(output.NextMarker)
		if page.NextCursor == "" && len(page.Entries) > 0 {
			page.NextCursor = page.Entries[len(page.Entries)-1].Key
		}
	}
	return page, nil
}

// GetObject opens an object for reading.
func (a *AWS) GetObject(ctx context.Context, input *GetInput) (*GetOutput, error) {
	params := &s3.GetObjectInput{
		Bucket: aws.String(input.Bucket),
		Key:    aws.String(input.Key),
	}
	if sse := input.SSE; sse != nil && sse.Type == s3types.SSEC && sse.CustomerKey != "" {
		params.SSECustomerAlgorithm = aws.String(sseCustomerAlgorithm)
		params.SSECustomerKey = aws.String(sse.CustomerKey)
		if sse.CustomerKeyMD5 != "" {
			params.SSECustomerKeyMD5 = aws.String(sse.CustomerKeyMD5)
		}
	}

	output, err := a.client.GetObject(ctx, params)
	if err != nil {
		return nil, classifyAWSError(err)
	}

	return &GetOutput{
		Body:          output.Body,
		ContentLength: aws.ToInt64(output.ContentLength),
		ETag:          aws.ToString(output.ETag),
	}, nil
}

// PutObject writes an object in a single request.
func (a *AWS) PutObject(ctx context.Context, input *PutInput) (*PutOutput, error) {
	params := &s3.PutObjectInput{
		Bucket:        aws.String(input.Bucket),
		Key:           aws.String(input.Key),
		Body:          input.Body,
		ContentLength: aws.Int64(input.ContentLength),
	}
	if input.ContentType != "" {
		params.ContentType = aws.String(input.ContentType)
	}

	if input.SSE != nil {
		switch input.SSE.Type {
		case s3types.SSES3:
			params.ServerSideEncryption = awstypes.ServerSideEncryptionAes256
		case s3types.SSEKMS:
			params.ServerSideEncryption = awstypes.ServerSideEncryptionAwsKms
			if input.SSE.KMSKeyID != "" {
				params.SSEKMSKeyId = aws.String(input.SSE.KMSKeyID)
			}
		case s3types.SSEC:
			if input.SSE.CustomerKey != "" {
				params.SSECustomerAlgorithm = aws.String(sseCustomerAlgorithm)
				params.SSECustomerKey = aws.String(input.SSE.CustomerKey)
				if input.SSE.CustomerKeyMD5 != "" {
					params.SSECustomerKeyMD5 = aws.String(input.SSE.CustomerKeyMD5)
				}
			}
		}
	}

	output, err := a.client.PutObject(ctx, params)
	if err != nil {
		return nil, classifyAWSError(err)
	}
	return &PutOutput{ETag: aws.ToString(output.ETag)}, nil
}

func convertObjects(contents []awstypes.Object) []Entry {
	entries := make([]Entry, 0, len(contents))
	for _, obj := range contents {
		entries = append(entries, Entry{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
			ETag:         aws.ToString(obj.ETag),
		})
	}
	return entries
}

// classifyAWSError attaches sentinel errors to SDK failures while keeping the
// original error in the chain.
func classifyAWSError(err error) error {
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotImplemented":
			return fmt.Errorf("%w: %w", errors.ErrNotImplemented, err)
		case "NoSuchKey":
			return fmt.Errorf("%w: %w", errors.ErrObjectNotFound, err)
		case "NoSuchBucket":
			return fmt.Errorf("%w: %w", errors.ErrBucketNotFound, err)
		case "AccessDenied":
			return fmt.Errorf("%w: %w", errors.ErrAccessDenied, err)
		}
	}

	var respErr *awshttp.ResponseError
	if stderrors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotImplemented:
			return fmt.Errorf("%w: %w", errors.ErrNotImplemented, err)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %w", errors.ErrAccessDenied, err)
		}
	}

	return err
}
