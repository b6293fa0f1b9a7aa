// Package filter decides which enumerated entries become transfer items.
//
// A single Filter is applied in both directions. Entries must pass every
// configured rule: not a directory marker, inside the modified-since and
// unmodified-since window, not an encryption instruction file when the client
// is encryption aware, and accepted by the include and exclude patterns.
package filter

import (
	stderrors "errors"
	"strings"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/s3types"
)

// Options configures a Filter.
type Options struct {
	ModifiedSince        *time.Time
	UnmodifiedSince      *time.Time
	SkipInstructionFiles bool
	IncludePatterns      []string
	ExcludePatterns      []string
}

// Filter is an immutable inclusion predicate.
type Filter struct {
	opts    Options
	matcher *PatternMatcher
}

// New creates a Filter, rejecting malformed glob patterns.
func New(opts Options) (*Filter, error) {
	matcher := NewPatternMatcher()
	patterns := append(append([]string{}, opts.IncludePatterns...), opts.ExcludePatterns...)
	if errs := matcher.ValidatePatterns(patterns); len(errs) > 0 {
		return nil, errors.NewError("filter", stderrors.Join(append([]error{errors.ErrInvalidInput}, errs...)...))
	}
	return &Filter{opts: opts, matcher: matcher}, nil
}

// Include reports whether an entry should be transferred. key is the full
// object key, relPath the key relative to the run prefix.
func (f *Filter) Include(key, relPath string, lastModified time.Time) bool {
	if strings.HasSuffix(key, "/") {
		return false
	}
	if f.opts.ModifiedSince != nil && !lastModified.After(*f.opts.ModifiedSince) {
		return false
	}
	if f.opts.UnmodifiedSince != nil && lastModified.After(*f.opts.UnmodifiedSince) {
		return false
	}
	if f.opts.SkipInstructionFiles && strings.HasSuffix(key, s3types.InstructionFileSuffix) {
		return false
	}
	return f.matcher.ShouldInclude(relPath, f.opts.IncludePatterns, f.opts.ExcludePatterns)
}
