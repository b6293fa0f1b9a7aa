package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/s3types"
)

func newDownloadCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download <bucket> <prefix> <local-dir>",
		Short: "Download every object under a prefix",
		Long: `Download every object under an S3 prefix into a local directory,
recreating the key hierarchy below the prefix. A prefix of "/" downloads the
whole bucket. Existing files are overwritten.`,
		Example: `  s3transfer download my-bucket docs/ ./docs
  s3transfer download my-bucket / ./all --concurrent --concurrency 16
  s3transfer download my-bucket logs ./logs --include '*.gz' --modified-since 2024-01-01T00:00:00Z`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags, err := a.transferFlags()
			if err != nil {
				return err
			}
			req := &s3types.DownloadDirectoryRequest{
				Bucket:                    args[0],
				Prefix:                    args[1],
				LocalDirectory:            args[2],
				DownloadFilesConcurrently: flags.concurrent,
				ModifiedSince:             flags.modifiedSince,
				UnmodifiedSince:           flags.unmodifiedSince,
				DisableSlashCorrection:    flags.disableSlashCorrection,
				IncludePatterns:           flags.include,
				ExcludePatterns:           flags.exclude,
			}
			return a.transfer(cmd, flags.quiet, func(
				ctx context.Context, c *s3transfer.Client, opts ...s3types.DirectoryOption,
			) (*s3types.DirectoryResult, error) {
				return c.DownloadDirectory(ctx, req, opts...)
			})
		},
	}
	addTransferFlags(cmd.Flags())
	return cmd
}
