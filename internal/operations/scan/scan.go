// Package scan enumerates the local files of an upload run.
package scan

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/filter"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/s3types"
)

// Scanner walks a local directory tree.
type Scanner struct {
	fs     billy.Filesystem
	logger *slog.Logger
}

// New creates a new Scanner. A nil logger discards output.
func New(fs billy.Filesystem, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scanner{fs: fs, logger: logger}
}

// Config holds configuration for a scan.
type Config struct {
	Root string

	// Prefix is the already normalized key prefix.
	Prefix string

	Filter *filter.Filter
}

// Result is the filtered work set of an upload run.
type Result struct {
	Items      []s3types.TransferItem
	TotalBytes int64
}

// Scan walks config.Root in lexical order and returns every regular file the
// filter accepts. Item keys are prefix plus relative path and are not yet
// validated; pathmap.RemoteKey checks each one before its transfer starts.
func (s *Scanner) Scan(ctx context.Context, config *Config) (*Result, error) {
	info, err := s.fs.Stat(config.Root)
	if err != nil {
		return nil, errors.NewError("scan", err)
	}
	if !info.IsDir() {
		return nil, errors.NewError("scan", errors.ErrInvalidInput).
			WithMessage("local directory is not a directory: " + config.Root)
	}

	result := &Result{}
	err = util.Walk(s.fs, config.Root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !info.Mode().IsRegular() {
			if !info.IsDir() {
				s.logger.Debug("skipping non-regular file", "path", path)
			}
			return nil
		}

		rel, err := filepath.Rel(config.Root, path)
		if err != nil {
			return err
		}
		relSlash := filepath.ToSlash(rel)
		if !config.Filter.Include(relSlash, relSlash, info.ModTime()) {
			return nil
		}

		result.Items = append(result.Items, s3types.TransferItem{
			Key:          config.Prefix + relSlash,
			RelativePath: relSlash,
			LocalPath:    path,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		result.TotalBytes += info.Size()
		return nil
	})
	if err != nil {
		if errors.IsCanceled(err) {
			return nil, err
		}
		return nil, errors.NewError("scan", err)
	}

	s.logger.Debug("scanned local directory",
		"root", config.Root,
		"items", len(result.Items),
		"bytes", result.TotalBytes)

	return result, nil
}
