package s3transfer

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/s3types"
)

// WithRegion sets the AWS region.
// If not specified, uses the region from the credential chain, or us-east-1.
func WithRegion(region string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Region = region
	}
}

// WithMaxRetries sets the maximum number of attempts the SDK makes per request.
// Default is 3.
func WithMaxRetries(maxRetries int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.MaxRetries = maxRetries
	}
}

// WithTimeout sets the timeout for individual S3 requests.
// Default is no timeout (0).
func WithTimeout(timeout time.Duration) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Timeout = timeout
	}
}

// WithConcurrency sets the number of slots used by concurrent runs.
// Default is 5 concurrent transfers.
func WithConcurrency(concurrency int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if concurrency > 0 {
			c.Concurrency = concurrency
		}
	}
}

// WithForcePathStyle forces the use of path-style URLs instead of virtual-hosted style.
// This is required for S3-compatible services that don't support virtual hosting.
func WithForcePathStyle(forcePathStyle bool) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithAWSConfig allows providing a custom AWS configuration.
// This overrides the default configuration loading behavior.
func WithAWSConfig(config *aws.Config) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.CustomAWSConfig = config
	}
}

// WithEndpoint sets a custom S3 endpoint URL.
// This is useful for S3-compatible services or local testing.
func WithEndpoint(endpoint string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithCredentials sets static credentials instead of the default chain.
func WithCredentials(accessKeyID, secretAccessKey string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.AccessKeyID = accessKeyID
		c.SecretAccessKey = secretAccessKey
	}
}

// WithRetryMode sets the retry mode for AWS SDK operations.
// Options are "standard", "adaptive". Default is "standard".
func WithRetryMode(mode string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.RetryMode = mode
	}
}

// WithCustomHTTPClient allows providing a custom HTTP client.
// It takes precedence over WithTimeout.
func WithCustomHTTPClient(client *http.Client) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.CustomHTTPClient = client
	}
}

// WithFilesystem sets the filesystem used for local files.
// If not specified, defaults to the OS filesystem.
func WithFilesystem(filesystem billy.Filesystem) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Filesystem = filesystem
	}
}

// WithLogger sets the structured logger. Runs log nothing by default.
func WithLogger(logger *slog.Logger) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Logger = logger
	}
}

// WithSkipInstructionFiles drops client-side encryption instruction files
// (keys ending in ".instruction") from downloads.
func WithSkipInstructionFiles(skip bool) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.SkipInstructionFiles = skip
	}
}

// WithPageSize bounds each listing request. Values outside 1..1000 are ignored.
func WithPageSize(pageSize int32) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if pageSize > 0 && pageSize <= 1000 {
			c.PageSize = pageSize
		}
	}
}

// WithMetrics registers an observer that sees every item report and run
// result, such as the Prometheus collector in the metrics package.
func WithMetrics(observer s3types.TransferObserver) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Observer = observer
	}
}

// WithDirectoryProgress sets the progress callback for one run.
// The callback is never invoked concurrently with itself.
func WithDirectoryProgress(fn s3types.ProgressFunc) s3types.DirectoryOption {
	return func(c *s3types.DirectoryOptionConfig) {
		c.Progress = fn
	}
}

// WithDirectoryConcurrency overrides the client concurrency for one
// concurrent run.
func WithDirectoryConcurrency(concurrency int) s3types.DirectoryOption {
	return func(c *s3types.DirectoryOptionConfig) {
		if concurrency > 0 {
			c.Concurrency = concurrency
		}
	}
}
