// Package testutil provides an in-process S3 server for integration tests.
package testutil

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	fakeRegion    = "us-east-1"
	fakeAccessKey = "test"
	fakeSecretKey = "test"
)

// FakeS3 is a gofakes3 server backed by memory.
type FakeS3 struct {
	Server  *httptest.Server
	Backend *s3mem.Backend
}

// NewFakeS3 starts a fake S3 server with the given buckets.
// The server is closed when the test ends.
func NewFakeS3(t *testing.T, buckets ...string) *FakeS3 {
	t.Helper()

	backend := s3mem.New()
	faker := gofakes3.New(backend)
	server := httptest.NewServer(faker.Server())
	t.Cleanup(server.Close)

	for _, bucket := range buckets {
		if err := backend.CreateBucket(bucket); err != nil {
			t.Fatalf("create bucket %s: %v", bucket, err)
		}
	}

	return &FakeS3{Server: server, Backend: backend}
}

// Endpoint returns the server URL including scheme.
func (f *FakeS3) Endpoint() string {
	return f.Server.URL
}

// Host returns the server address without scheme.
func (f *FakeS3) Host() string {
	return strings.TrimPrefix(f.Server.URL, "http://")
}

// AWSClient returns an AWS SDK client pointed at the fake server.
func (f *FakeS3) AWSClient(t *testing.T) *s3.Client {
	t.Helper()

	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(fakeRegion),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(fakeAccessKey, fakeSecretKey, "")),
	)
	if err != nil {
		t.Fatalf("load aws config: %v", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(f.Endpoint())
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
}

// MinioClient returns a minio-go client pointed at the fake server.
func (f *FakeS3) MinioClient(t *testing.T) *minio.Client {
	t.Helper()

	client, err := minio.New(f.Host(), &minio.Options{
		Creds:        miniocreds.NewStaticV4(fakeAccessKey, fakeSecretKey, ""),
		Secure:       false,
		Region:       fakeRegion,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		t.Fatalf("create minio client: %v", err)
	}
	return client
}

// PutObject seeds an object through the S3 API.
func (f *FakeS3) PutObject(t *testing.T, bucket, key string, data []byte) {
	t.Helper()

	_, err := f.AWSClient(t).PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		t.Fatalf("seed object %s/%s: %v", bucket, key, err)
	}
}
