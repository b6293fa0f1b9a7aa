package filter

import (
	"fmt"
	"path"
	"strings"
)

// PatternMatcher matches '/'-separated relative paths against glob patterns.
// It supports *, ? and character classes within a segment, ** across
// segments, and directory patterns ending with '/'.
type PatternMatcher struct{}

// NewPatternMatcher creates a new pattern matcher.
func NewPatternMatcher() *PatternMatcher {
	return &PatternMatcher{}
}

// ShouldInclude determines if a path passes the include and exclude patterns.
// Excludes take precedence; with no include patterns every path is included.
func (pm *PatternMatcher) ShouldInclude(relPath string, includePatterns, excludePatterns []string) bool {
	for _, pattern := range excludePatterns {
		if pm.Matches(relPath, pattern) {
			return false
		}
	}

	if len(includePatterns) == 0 {
		return true
	}
	for _, pattern := range includePatterns {
		if pm.Matches(relPath, pattern) {
			return true
		}
	}
	return false
}

// Matches reports whether relPath matches a single pattern.
func (pm *PatternMatcher) Matches(relPath, pattern string) bool {
	if strings.HasSuffix(pattern, "/") {
		dir := strings.TrimSuffix(pattern, "/")
		return strings.HasPrefix(relPath+"/", dir+"/")
	}

	// Patterns without a separator match the base name at any depth.
	if !strings.Contains(pattern, "/") && !strings.Contains(pattern, "**") {
		match, err := path.Match(pattern, path.Base(relPath))
		return err == nil && match
	}

	return matchSegments(strings.Split(relPath, "/"), strings.Split(pattern, "/"))
}

func matchSegments(segments, pattern []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			rest := pattern[1:]
			if len(rest) == 0 {
				return true
			}
			for i := 0; i <= len(segments); i++ {
				if matchSegments(segments[i:], rest) {
					return true
				}
			}
			return false
		}

		if len(segments) == 0 {
			return false
		}
		match, err := path.Match(pattern[0], segments[0])
		if err != nil || !match {
			return false
		}
		segments = segments[1:]
		pattern = pattern[1:]
	}
	return len(segments) == 0
}

// ValidatePatterns validates that the given patterns are syntactically correct.
func (pm *PatternMatcher) ValidatePatterns(patterns []string) []error {
	var errs []error

	for i, pattern := range patterns {
		for _, segment := range strings.Split(strings.TrimSuffix(pattern, "/"), "/") {
			if segment == "**" {
				continue
			}
			if _, err := path.Match(segment, "dummy"); err != nil {
				errs = append(errs, &PatternError{
					Pattern: pattern,
					Index:   i,
					Err:     err,
				})
				break
			}
		}
	}

	return errs
}

// PatternError represents an error with a pattern.
type PatternError struct {
	Pattern string
	Index   int
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern at index %d '%s': %v", e.Index, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}
