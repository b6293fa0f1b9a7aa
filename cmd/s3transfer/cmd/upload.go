package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/s3types"
)

func newUploadCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <local-dir> <bucket> [prefix]",
		Short: "Upload every file under a local directory",
		Long: `Upload every regular file under a local directory to an S3 prefix,
using each file's path relative to the directory as the rest of its key.
Without a prefix files land at the bucket root.`,
		Example: `  s3transfer upload ./site my-bucket www
  s3transfer upload ./backup my-bucket nightly --concurrent --exclude '*.tmp'
  s3transfer upload ./data my-bucket data- --disable-slash-correction`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags, err := a.transferFlags()
			if err != nil {
				return err
			}
			req := &s3types.UploadDirectoryRequest{
				LocalDirectory:          args[0],
				Bucket:                  args[1],
				UploadFilesConcurrently: flags.concurrent,
				ModifiedSince:           flags.modifiedSince,
				UnmodifiedSince:         flags.unmodifiedSince,
				DisableSlashCorrection:  flags.disableSlashCorrection,
				IncludePatterns:         flags.include,
				ExcludePatterns:         flags.exclude,
				ContentType:             a.v.GetString("content-type"),
			}
			if len(args) == 3 {
				req.Prefix = args[2]
			}
			if kmsKey := a.v.GetString("sse-kms-key-id"); kmsKey != "" {
				req.SSE = &s3types.SSEConfig{Type: s3types.SSEKMS, KMSKeyID: kmsKey}
			}
			return a.transfer(cmd, flags.quiet, func(
				ctx context.Context, c *s3transfer.Client, opts ...s3types.DirectoryOption,
			) (*s3types.DirectoryResult, error) {
				return c.UploadDirectory(ctx, req, opts...)
			})
		},
	}
	addTransferFlags(cmd.Flags())
	cmd.Flags().String("content-type", "", "Content type for every file instead of detecting it")
	cmd.Flags().String("sse-kms-key-id", "", "Encrypt uploads with this KMS key")
	return cmd
}
