// Package filter provides tests for entry filtering.
package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/errors"
)

func TestFilter_Include(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	before := base.Add(-time.Hour)
	after := base.Add(time.Hour)

	tests := []struct {
		name         string
		opts         Options
		key          string
		relPath      string
		lastModified time.Time
		want         bool
	}{
		{"plain object", Options{}, "docs/a.txt", "a.txt", base, true},
		{"directory marker", Options{}, "docs/sub/", "sub/", base, false},
		{"modified since equal is skipped", Options{ModifiedSince: &base}, "docs/a.txt", "a.txt", base, false},
		{"modified since older is skipped", Options{ModifiedSince: &base}, "docs/a.txt", "a.txt", before, false},
		{"modified since newer is kept", Options{ModifiedSince: &base}, "docs/a.txt", "a.txt", after, true},
		{"unmodified since equal is kept", Options{UnmodifiedSince: &base}, "docs/a.txt", "a.txt", base, true},
		{"unmodified since newer is skipped", Options{UnmodifiedSince: &base}, "docs/a.txt", "a.txt", after, false},
		{"instruction file skipped", Options{SkipInstructionFiles: true}, "docs/a.txt.instruction", "a.txt.instruction", base, false},
		{"instruction file kept without encryption", Options{}, "docs/a.txt.instruction", "a.txt.instruction", base, true},
		{"exclude by extension", Options{ExcludePatterns: []string{"*.tmp"}}, "docs/x/a.tmp", "x/a.tmp", base, false},
		{"include miss", Options{IncludePatterns: []string{"*.md"}}, "docs/a.txt", "a.txt", base, false},
		{"include hit", Options{IncludePatterns: []string{"*.md"}}, "docs/a.md", "a.md", base, true},
		{
			"exclude wins over include",
			Options{IncludePatterns: []string{"**"}, ExcludePatterns: []string{"cache/"}},
			"docs/cache/a.md", "cache/a.md", base, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Include(tt.key, tt.relPath, tt.lastModified))
		})
	}
}

func TestFilter_Idempotent(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f, err := New(Options{ModifiedSince: &since, SkipInstructionFiles: true, ExcludePatterns: []string{"*.log"}})
	require.NoError(t, err)

	entries := []struct {
		key string
		mod time.Time
	}{
		{"p/a.txt", since.Add(time.Minute)},
		{"p/b.log", since.Add(time.Minute)},
		{"p/c.txt", since.Add(-time.Minute)},
		{"p/d/", since.Add(time.Minute)},
		{"p/e.instruction", since.Add(time.Minute)},
	}

	var first, second []string
	for _, e := range entries {
		if f.Include(e.key, e.key[2:], e.mod) {
			first = append(first, e.key)
		}
	}
	for _, key := range first {
		for _, e := range entries {
			if e.key == key && f.Include(e.key, e.key[2:], e.mod) {
				second = append(second, key)
			}
		}
	}

	assert.Equal(t, []string{"p/a.txt"}, first)
	assert.Equal(t, first, second)
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New(Options{IncludePatterns: []string{"[a-"}})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestPatternMatcher_Matches(t *testing.T) {
	pm := NewPatternMatcher()

	tests := []struct {
		path    string
		pattern string
		want    bool
	}{
		{"a.txt", "*.txt", true},
		{"x/y/a.txt", "*.txt", true},
		{"x/y/a.txt", "x/*.txt", false},
		{"x/y/a.txt", "x/**/*.txt", true},
		{"x/a.txt", "x/**/*.txt", true},
		{"x/y/z", "**", true},
		{"x/y/z", "x/**", true},
		{"y/z", "x/**", false},
		{"build/out/a.o", "build/", true},
		{"builder/a.o", "build/", false},
		{"a?c", "a?c", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"_"+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, pm.Matches(tt.path, tt.pattern))
		})
	}
}
