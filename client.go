package s3transfer

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/minio/minio-go/v7"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/directory"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/store"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/s3types"
)

// Client runs directory transfers against one store.
// It is safe for concurrent use; each call is an independent run.
type Client struct {
	// store is the object store all runs read from and write to
	store store.Store

	// clientCfg holds the resolved client options
	clientCfg s3types.ClientConfig

	// config holds the AWS configuration, zero for non-AWS stores
	config aws.Config

	// mu protects concurrent access to client configuration
	mu sync.RWMutex

	// fs is the filesystem abstraction for local file operations
	fs billy.Filesystem
}

// defaultClientConfig returns the defaults applied before any option.
func defaultClientConfig() s3types.ClientConfig {
	return s3types.ClientConfig{
		MaxRetries:  3,
		Concurrency: directory.DefaultConcurrency,
		PageSize:    store.MaxPageSize,
	}
}

// New creates a new client backed by the AWS SDK.
// It loads AWS credentials using the default credential chain
// and applies the specified configuration options.
//
// Example:
//
//	client, err := s3transfer.New(
//	    s3transfer.WithRegion("us-west-2"),
//	    s3transfer.WithConcurrency(10),
//	)
func New(opts ...s3types.Option) (*Client, error) {
	clientCfg := defaultClientConfig()
	for _, opt := range opts {
		opt(&clientCfg)
	}

	var cfg aws.Config
	var err error

	if clientCfg.CustomAWSConfig != nil {
		cfg = *clientCfg.CustomAWSConfig
	} else {
		cfg, err = config.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, errors.NewError("client initialization", err)
		}
	}

	if clientCfg.Region != "" {
		cfg.Region = clientCfg.Region
	} else if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	if clientCfg.AccessKeyID != "" {
		cfg.Credentials = credentials.NewStaticCredentialsProvider(
			clientCfg.AccessKeyID, clientCfg.SecretAccessKey, "")
	}

	if clientCfg.MaxRetries > 0 {
		cfg.RetryMaxAttempts = clientCfg.MaxRetries
	}

	if clientCfg.RetryMode != "" {
		mode, err := aws.ParseRetryMode(clientCfg.RetryMode)
		if err != nil {
			return nil, errors.NewError("client initialization", errors.ErrInvalidInput).WithMessage(err.Error())
		}
		cfg.RetryMode = mode
	}

	var s3Opts []func(*s3.Options)

	if clientCfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	// S3-compatible endpoints commonly reject the SDK's default trailing checksums.
	if clientCfg.Endpoint != "" {
		endpoint := clientCfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		})
	}

	switch {
	case clientCfg.CustomHTTPClient != nil:
		httpClient := clientCfg.CustomHTTPClient
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	case clientCfg.Timeout > 0:
		httpClient := &http.Client{
			Timeout: clientCfg.Timeout,
		}
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	}

	s3Client := s3.NewFromConfig(cfg, s3Opts...)

	client := newClient(store.NewAWS(s3Client), clientCfg)
	client.config = cfg
	return client, nil
}

// NewWithClient creates a new client with a custom S3API implementation.
// This is primarily used for testing with mocked clients.
func NewWithClient(s3Client s3api.S3API, opts ...s3types.Option) *Client {
	return NewWithStore(store.NewAWS(s3Client), opts...)
}

// NewWithStore creates a new client over an existing store.
func NewWithStore(st store.Store, opts ...s3types.Option) *Client {
	clientCfg := defaultClientConfig()
	for _, opt := range opts {
		opt(&clientCfg)
	}
	return newClient(st, clientCfg)
}

// NewMinio creates a new client backed by minio-go, for S3-compatible servers.
// endpoint is host[:port] without a scheme.
func NewMinio(endpoint string, mopts *minio.Options, opts ...s3types.Option) (*Client, error) {
	mc, err := minio.New(endpoint, mopts)
	if err != nil {
		return nil, errors.NewError("client initialization", err)
	}
	return NewWithStore(store.NewMinIO(mc), opts...), nil
}

func newClient(st store.Store, clientCfg s3types.ClientConfig) *Client {
	filesystem := clientCfg.Filesystem
	if filesystem == nil {
		// Default to OS filesystem rooted at /; run paths are made absolute.
		filesystem = osfs.New("/")
	}
	if clientCfg.Logger == nil {
		clientCfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		store:     st,
		clientCfg: clientCfg,
		fs:        filesystem,
	}
}

// SetFilesystem sets the filesystem implementation for the client.
// This is useful for testing or when the filesystem needs to be changed after creation.
func (c *Client) SetFilesystem(filesystem billy.Filesystem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fs = filesystem
}

// Region returns the resolved AWS region, or "" for clients not built by New.
func (c *Client) Region() string {
	return c.config.Region
}

// Close is a no-op kept so callers can defer it. The client holds no pooled
// connections of its own; cancel run contexts to stop transfers.
func (c *Client) Close() error {
	return nil
}

// command snapshots the client configuration for one run.
func (c *Client) command() *directory.Command {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return directory.New(directory.Config{
		Store:                c.store,
		Filesystem:           c.fs,
		Logger:               c.clientCfg.Logger,
		Observer:             c.clientCfg.Observer,
		Concurrency:          c.clientCfg.Concurrency,
		SkipInstructionFiles: c.clientCfg.SkipInstructionFiles,
		PageSize:             c.clientCfg.PageSize,
	})
}
