// Package s3transfer moves whole directories between a local filesystem and
// an S3 bucket prefix.
//
// A run enumerates its work set up front, filters it, then transfers one
// object per file through a fixed number of concurrency slots. The first item
// failure stops new items from launching while in-flight items finish and are
// reported. Caller cancellation stops the run without counting as a failure.
//
// Key features:
//   - Token-based listing with an automatic fallback to marker-based listing
//     for stores that do not implement it
//   - Serial or throttled concurrent transfers with fail-fast semantics
//   - Modified-since, unmodified-since and glob pattern filters
//   - Object keys are never allowed to escape the local directory
//   - Aggregate progress callbacks that never run concurrently
//   - AWS SDK v2 and minio-go backends
//
// Example usage:
//
//	client, err := s3transfer.New(s3transfer.WithRegion("us-west-2"))
//	if err != nil {
//	    return err
//	}
//
//	result, err := client.DownloadDirectory(ctx, &s3types.DownloadDirectoryRequest{
//	    Bucket:         "my-bucket",
//	    Prefix:         "docs",
//	    LocalDirectory: "/data/out",
//	}, s3transfer.WithDirectoryProgress(func(p s3types.DirectoryProgress) {
//	    fmt.Println(p)
//	}))
package s3transfer
