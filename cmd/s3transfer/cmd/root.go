// Package cmd implements the s3transfer command line.
package cmd

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/s3types"
)

// envPrefix scopes environment overrides, e.g. S3TRANSFER_ENDPOINT.
const envPrefix = "S3TRANSFER"

// app holds state shared by the subcommands of one invocation.
type app struct {
	v      *viper.Viper
	logger *slog.Logger
}

// Execute runs the root command with ctx. Canceling ctx cancels the transfer.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "s3transfer",
		Short: "Transfer whole directories to and from S3",
		Long: `s3transfer downloads every object under a bucket prefix into a local
directory, or uploads a local directory under a bucket prefix.

The first failed file stops new transfers; files already in flight finish.
Settings can be given as flags, as S3TRANSFER_* environment variables, or in a
.env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("env-file", ".env", "Load environment variables from this file if it exists")
	flags.String("backend", "aws", "Client implementation: aws or minio")
	flags.String("endpoint", "", "Custom S3 endpoint URL")
	flags.String("region", "", "AWS region")
	flags.Bool("path-style", false, "Use path-style bucket addressing")
	flags.String("access-key-id", "", "Static access key (default credential chain when empty)")
	flags.String("secret-access-key", "", "Static secret key")
	flags.Int("concurrency", 5, "Number of files transferred at once with --concurrent")
	flags.Int32("page-size", 1000, "Objects requested per listing page")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	flags.BoolP("verbose", "v", false, "Enable debug logging")

	root.AddCommand(newDownloadCommand(a))
	root.AddCommand(newUploadCommand(a))
	return root
}

// init loads the env file, binds flags to viper and builds the logger.
func (a *app) init(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	level := slog.LevelInfo
	if a.v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

// newClient builds a transfer client from the bound settings.
func (a *app) newClient(extra ...s3types.Option) (*s3transfer.Client, error) {
	opts := []s3types.Option{
		s3transfer.WithLogger(a.logger),
		s3transfer.WithConcurrency(a.v.GetInt("concurrency")),
		s3transfer.WithPageSize(a.v.GetInt32("page-size")),
	}
	opts = append(opts, extra...)

	endpoint := a.v.GetString("endpoint")
	accessKey := a.v.GetString("access-key-id")
	secretKey := a.v.GetString("secret-access-key")

	switch backend := strings.ToLower(a.v.GetString("backend")); backend {
	case "aws", "":
		opts = append(opts, s3transfer.WithForcePathStyle(a.v.GetBool("path-style")))
		if region := a.v.GetString("region"); region != "" {
			opts = append(opts, s3transfer.WithRegion(region))
		}
		if endpoint != "" {
			opts = append(opts, s3transfer.WithEndpoint(endpoint))
		}
		if accessKey != "" {
			opts = append(opts, s3transfer.WithCredentials(accessKey, secretKey))
		}
		client, err := s3transfer.New(opts...)
		if err != nil {
			return nil, err
		}
		a.logger.Debug("using aws backend", slog.String("region", client.Region()))
		return client, nil
	case "minio":
		host, secure, err := splitEndpoint(endpoint)
		if err != nil {
			return nil, err
		}
		creds := miniocreds.NewEnvAWS()
		if accessKey != "" {
			creds = miniocreds.NewStaticV4(accessKey, secretKey, "")
		}
		lookup := minio.BucketLookupAuto
		if a.v.GetBool("path-style") {
			lookup = minio.BucketLookupPath
		}
		return s3transfer.NewMinio(host, &minio.Options{
			Creds:        creds,
			Secure:       secure,
			Region:       a.v.GetString("region"),
			BucketLookup: lookup,
		}, opts...)
	default:
		return nil, errors.New("unknown backend " + backend)
	}
}

// splitEndpoint turns an endpoint URL into the host and TLS setting minio-go expects.
func splitEndpoint(endpoint string) (string, bool, error) {
	if endpoint == "" {
		return "", false, errors.New("--endpoint is required for the minio backend")
	}
	if !strings.Contains(endpoint, "://") {
		return endpoint, true, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, err
	}
	return u.Host, u.Scheme == "https", nil
}
