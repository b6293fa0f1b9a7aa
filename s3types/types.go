// Package s3types provides shared type definitions for the s3transfer module.
package s3types

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-git/go-billy/v5"
)

// SSEType represents the server-side encryption type for objects.
type SSEType string

// Predefined server-side encryption types
const (
	// SSES3 uses S3-managed encryption keys
	SSES3 SSEType = "AES256"

	// SSEKMS uses AWS KMS-managed encryption keys
	SSEKMS SSEType = "aws:kms"

	// SSEC uses customer-provided encryption keys
	SSEC SSEType = "SSE-C"
)

// SSEConfig contains server-side encryption configuration.
// Customer-provided keys are applied to every item request of a run.
type SSEConfig struct {
	// Type is the encryption type (S3, KMS, or customer-provided)
	Type SSEType

	// KMSKeyID is the KMS key ID (required for SSE-KMS)
	KMSKeyID string

	// CustomerKey is the base64 encoded customer-provided key (for SSE-C)
	CustomerKey string

	// CustomerKeyMD5 is the base64 encoded MD5 of the customer key (for SSE-C)
	CustomerKeyMD5 string
}

// InstructionFileSuffix marks client-side encryption instruction files.
// Encryption-aware clients never transfer them as regular items.
const InstructionFileSuffix = ".instruction"

// Direction identifies which way a directory run moves bytes.
type Direction string

const (
	// DirectionDownload copies objects from S3 to the local filesystem
	DirectionDownload Direction = "download"

	// DirectionUpload copies local files to S3
	DirectionUpload Direction = "upload"
)

// TransferItem is one unit of work in a directory run.
type TransferItem struct {
	// Key is the full S3 object key
	Key string

	// RelativePath is the key with the effective prefix removed, using '/' separators
	RelativePath string

	// LocalPath is the local file backing the item (uploads only)
	LocalPath string

	// Size is the item size in bytes
	Size int64

	// LastModified is the object's (or file's) modification time
	LastModified time.Time
}

// ItemProgress is a progress report from a single item transfer.
type ItemProgress struct {
	// Key identifies the item, relative to the run prefix
	Key string

	// BytesDelta is the number of bytes moved since the previous report
	BytesDelta int64

	// TransferredBytes is the running byte count for the item
	TransferredBytes int64

	// TotalBytes is the item size
	TotalBytes int64

	// Completed is true on the final report of a successful item
	Completed bool
}

// DirectoryProgress is an immutable snapshot of a run's aggregate progress.
// The current file fields are only populated when items run one at a time.
type DirectoryProgress struct {
	TotalFiles       int
	TransferredFiles int
	TotalBytes       int64
	TransferredBytes int64

	CurrentFile                    string
	TransferredBytesForCurrentFile int64
	TotalBytesForCurrentFile       int64
}

// String returns a one-line summary of the snapshot.
func (p DirectoryProgress) String() string {
	return fmt.Sprintf("Total Files: %d, Transferred Files %d, Total Bytes: %d, Transferred Bytes: %d",
		p.TotalFiles, p.TransferredFiles, p.TotalBytes, p.TransferredBytes)
}

// ProgressFunc receives progress snapshots. It is never called concurrently.
type ProgressFunc func(DirectoryProgress)

// Outcome is the terminal state of a directory run.
type Outcome string

const (
	// OutcomeSucceeded means every scheduled item settled without error
	OutcomeSucceeded Outcome = "succeeded"

	// OutcomeFailed means at least one item (or the run itself) failed
	OutcomeFailed Outcome = "failed"

	// OutcomeCanceled means the caller canceled before any failure settled
	OutcomeCanceled Outcome = "canceled"
)

// ItemFailure records an item that settled with an error.
type ItemFailure struct {
	Key string
	Err error
}

// DirectoryResult contains the result of a directory run.
type DirectoryResult struct {
	// Direction is the way bytes moved
	Direction Direction

	// Bucket is the S3 bucket
	Bucket string

	// Prefix is the normalized prefix the run used
	Prefix string

	// LocalDirectory is the absolute local root
	LocalDirectory string

	// Outcome is the terminal state of the run
	Outcome Outcome

	// TotalFiles and TotalBytes describe the filtered work set
	TotalFiles int
	TotalBytes int64

	// TransferredFiles and TransferredBytes describe what actually moved
	TransferredFiles int
	TransferredBytes int64

	// Failures lists items that settled with a non-cancellation error, in settlement order
	Failures []ItemFailure

	// Duration is how long the run took
	Duration time.Duration
}

// DownloadDirectoryRequest describes a download of every object under a prefix.
type DownloadDirectoryRequest struct {
	// Bucket is the source bucket
	Bucket string

	// Prefix is the S3 "directory". A value of "/" selects the whole bucket.
	Prefix string

	// LocalDirectory is the local root that receives the files
	LocalDirectory string

	// DownloadFilesConcurrently runs items in parallel instead of one at a time
	DownloadFilesConcurrently bool

	// ModifiedSince skips objects modified at or before this time
	ModifiedSince *time.Time

	// UnmodifiedSince skips objects modified after this time
	UnmodifiedSince *time.Time

	// DisableSlashCorrection keeps the prefix as given instead of forcing a trailing '/'
	DisableSlashCorrection bool

	// IncludePatterns and ExcludePatterns filter relative keys by glob
	IncludePatterns []string
	ExcludePatterns []string

	// SSE carries customer key settings copied to every item request
	SSE *SSEConfig
}

// UploadDirectoryRequest describes an upload of every file under a local directory.
type UploadDirectoryRequest struct {
	// LocalDirectory is the local root to read files from
	LocalDirectory string

	// Bucket is the destination bucket
	Bucket string

	// Prefix is the S3 "directory" the files land under
	Prefix string

	// UploadFilesConcurrently runs items in parallel instead of one at a time
	UploadFilesConcurrently bool

	// ModifiedSince skips files modified at or before this time
	ModifiedSince *time.Time

	// UnmodifiedSince skips files modified after this time
	UnmodifiedSince *time.Time

	// DisableSlashCorrection keeps the prefix as given instead of forcing a trailing '/'
	DisableSlashCorrection bool

	// IncludePatterns and ExcludePatterns filter relative paths by glob
	IncludePatterns []string
	ExcludePatterns []string

	// ContentType overrides detection for every file
	ContentType string

	// SSE configures server-side encryption for every item
	SSE *SSEConfig
}

// TransferObserver receives item reports and run results, e.g. for metrics.
type TransferObserver interface {
	ObserveItem(direction Direction, p ItemProgress)
	ObserveResult(result *DirectoryResult)
}

// Configuration types for functional options

// ClientConfig holds configuration for the transfer client.
type ClientConfig struct {
	Region               string
	Endpoint             string
	MaxRetries           int
	Timeout              time.Duration
	Concurrency          int
	ForcePathStyle       bool
	CustomAWSConfig      *aws.Config
	RetryMode            string
	CustomHTTPClient     *http.Client
	AccessKeyID          string
	SecretAccessKey      string
	SkipInstructionFiles bool
	PageSize             int32
	Filesystem           billy.Filesystem
	Logger               *slog.Logger
	Observer             TransferObserver
}

// DirectoryOptionConfig holds per-run configuration via functional options.
type DirectoryOptionConfig struct {
	Progress    ProgressFunc
	Concurrency int
}

// Option is a functional option for configuring the transfer client.
type (
	Option func(*ClientConfig)
	// DirectoryOption is a functional option for configuring a single directory run.
	DirectoryOption func(*DirectoryOptionConfig)
)
