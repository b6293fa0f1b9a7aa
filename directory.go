package s3transfer

import (
	"context"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/s3types"
)

// DownloadDirectory downloads every object under req.Prefix into
// req.LocalDirectory, preserving the key structure below the prefix.
//
// Invalid requests, a local directory that exists as a file, and listing
// failures return a nil result. Otherwise the result is always returned,
// together with the first item failure or the cancellation error.
func (c *Client) DownloadDirectory(
	ctx context.Context,
	req *s3types.DownloadDirectoryRequest,
	opts ...s3types.DirectoryOption,
) (*s3types.DirectoryResult, error) {
	return c.command().Download(ctx, req, applyDirectoryOptions(opts))
}

// UploadDirectory uploads every file under req.LocalDirectory to req.Prefix.
// Error and result semantics match DownloadDirectory.
func (c *Client) UploadDirectory(
	ctx context.Context,
	req *s3types.UploadDirectoryRequest,
	opts ...s3types.DirectoryOption,
) (*s3types.DirectoryResult, error) {
	return c.command().Upload(ctx, req, applyDirectoryOptions(opts))
}

func applyDirectoryOptions(opts []s3types.DirectoryOption) *s3types.DirectoryOptionConfig {
	cfg := &s3types.DirectoryOptionConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
