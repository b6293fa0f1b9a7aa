// Package list enumerates the remote objects of a download run.
//
// Listing walks every page under the normalized prefix, filters each entry
// before it joins the work set, and keeps a running byte total. When the store
// reports that token-based listing is not implemented, enumeration restarts
// once from the first page using marker-based listing.
package list

import (
	"context"
	"log/slog"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/filter"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/store"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/s3types"
)

// Lister enumerates objects from a store.
type Lister struct {
	store  store.Store
	logger *slog.Logger
}

// New creates a new Lister. A nil logger discards output.
func New(st store.Store, logger *slog.Logger) *Lister {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Lister{store: st, logger: logger}
}

// Config holds configuration for an enumeration.
type Config struct {
	Bucket string

	// Prefix is the already normalized prefix.
	Prefix string

	// PrefixLength is the number of leading key bytes stripped to form relative paths.
	PrefixLength int

	// PageSize bounds each listing request. Zero uses the store maximum.
	PageSize int32

	Filter *filter.Filter
}

// Listing is the filtered work set of a run.
type Listing struct {
	Items      []s3types.TransferItem
	TotalBytes int64

	// Legacy is true when the marker-based fallback produced the listing.
	Legacy bool
}

// NormalizePrefix converts a user supplied prefix into the listing prefix.
// Backslashes become '/', a trailing '/' is added unless slash correction is
// disabled, and one leading '/' is removed so "/" selects the whole bucket.
func NormalizePrefix(prefix string, disableSlashCorrection bool) string {
	prefix = strings.ReplaceAll(prefix, "\\", "/")
	if !disableSlashCorrection && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return strings.TrimPrefix(prefix, "/")
}

// Enumerate lists and filters every object under the configured prefix.
func (l *Lister) Enumerate(ctx context.Context, config *Config) (*Listing, error) {
	listing, err := l.enumerate(ctx, config, false)
	if err == nil || !errors.IsNotImplemented(err) {
		return listing, err
	}

	l.logger.WarnContext(ctx, "token listing not implemented, restarting with marker listing",
		slog.String("bucket", config.Bucket),
		slog.String("prefix", config.Prefix))

	listing, err = l.enumerate(ctx, config, true)
	if err != nil {
		return nil, err
	}
	listing.Legacy = true
	return listing, nil
}

func (l *Lister) enumerate(ctx context.Context, config *Config, legacy bool) (*Listing, error) {
	listing := &Listing{}
	paginator := l.NewPaginator(config, legacy)

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		for _, entry := range page.Entries {
			rel := relativeKey(entry.Key, config.PrefixLength)
			if config.Filter != nil && !config.Filter.Include(entry.Key, rel, entry.LastModified) {
				continue
			}
			listing.Items = append(listing.Items, s3types.TransferItem{
				Key:          entry.Key,
				RelativePath: rel,
				Size:         entry.Size,
				LastModified: entry.LastModified,
			})
			listing.TotalBytes += entry.Size
		}
	}

	return listing, nil
}

// NewPaginator creates a one-pass page sequence over the configured prefix.
func (l *Lister) NewPaginator(config *Config, legacy bool) *Paginator {
	return &Paginator{
		store:     l.store,
		config:    config,
		legacy:    legacy,
		firstPage: true,
	}
}

// Paginator fetches listing pages in order. Each page is requested only
// after the previous one has been consumed.
type Paginator struct {
	store     store.Store
	config    *Config
	legacy    bool
	cursor    string
	hasMore   bool
	firstPage bool
}

// HasMorePages returns true if there are more pages to fetch.
func (p *Paginator) HasMorePages() bool {
	return p.firstPage || p.hasMore
}

// NextPage fetches the next page of results.
func (p *Paginator) NextPage(ctx context.Context) (*store.ListPage, error) {
	page, err := p.store.List(ctx, &store.ListInput{
		Bucket:  p.config.Bucket,
		Prefix:  p.config.Prefix,
		Cursor:  p.cursor,
		MaxKeys: p.config.PageSize,
		Legacy:  p.legacy,
	})
	if err != nil {
		p.hasMore = false
		p.firstPage = false
		return nil, err
	}

	p.firstPage = false
	// A truncated page without a cursor cannot be continued.
	p.hasMore = page.Truncated && page.NextCursor != ""
	p.cursor = page.NextCursor
	return page, nil
}

func relativeKey(key string, prefixLength int) string {
	if prefixLength > len(key) {
		return ""
	}
	return key[prefixLength:]
}
