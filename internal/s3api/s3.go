// Package s3api defines interfaces for S3 operations to enable testing and mocking.
package s3api

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API defines the subset of the S3 client used by directory transfers.
type S3API interface {
	// PutObject uploads an object to S3
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)

	// GetObject retrieves an object from S3
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)

	// ListObjectsV2 lists objects using continuation tokens
	ListObjectsV2(
		ctx context.Context,
		params *s3.ListObjectsV2Input,
		optFns ...func(*s3.Options),
	) (*s3.ListObjectsV2Output, error)

	// ListObjects lists objects using markers. Used for stores that do not
	// implement ListObjectsV2.
	ListObjects(
		ctx context.Context,
		params *s3.ListObjectsInput,
		optFns ...func(*s3.Options),
	) (*s3.ListObjectsOutput, error)
}

// Ensure the AWS SDK S3 client implements our interface
var _ S3API = (*s3.Client)(nil)
