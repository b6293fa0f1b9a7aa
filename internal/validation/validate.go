package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/s3types"
)

// MaxConcurrency is the upper bound accepted for concurrent item transfers.
const MaxConcurrency = 100

// maxKeyLength is the longest key S3 accepts, in bytes.
const maxKeyLength = 1024

var mimePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-+.]*\/[a-zA-Z0-9][a-zA-Z0-9\-+.]*(\s*;.*)?$`)

// ValidateDownloadRequest checks the fields a download run cannot start without.
func ValidateDownloadRequest(req *s3types.DownloadDirectoryRequest) error {
	if req == nil {
		return invalidInput("validateDownloadRequest", "request cannot be nil")
	}
	if err := requireField("validateDownloadRequest", "bucket", req.Bucket); err != nil {
		return err
	}
	if err := requireField("validateDownloadRequest", "prefix", req.Prefix); err != nil {
		return err
	}
	if err := requireField("validateDownloadRequest", "local directory", req.LocalDirectory); err != nil {
		return err
	}
	return validatePatterns("validateDownloadRequest", req.IncludePatterns, req.ExcludePatterns)
}

// ValidateUploadRequest checks the fields an upload run cannot start without.
// An empty prefix uploads to the bucket root.
func ValidateUploadRequest(req *s3types.UploadDirectoryRequest) error {
	if req == nil {
		return invalidInput("validateUploadRequest", "request cannot be nil")
	}
	if err := requireField("validateUploadRequest", "bucket", req.Bucket); err != nil {
		return err
	}
	if err := requireField("validateUploadRequest", "local directory", req.LocalDirectory); err != nil {
		return err
	}
	if err := ValidateContentType(req.ContentType); err != nil {
		return err
	}
	return validatePatterns("validateUploadRequest", req.IncludePatterns, req.ExcludePatterns)
}

// ValidateObjectKey validates that an object key is valid according to S3 rules.
// This includes preventing path traversal and ensuring valid characters.
func ValidateObjectKey(key string) error {
	if key == "" {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key cannot be empty")
	}

	if hasPathTraversal(key) {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key cannot contain path traversal sequences")
	}

	if len(key) > maxKeyLength {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key cannot exceed 1024 characters")
	}

	if hasControlCharacters(key) {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key cannot contain control characters")
	}

	return nil
}

// ValidateConcurrency validates a requested transfer width.
func ValidateConcurrency(concurrency int) error {
	if concurrency <= 0 {
		return invalidInput("validateConcurrency", "concurrency must be positive")
	}
	if concurrency > MaxConcurrency {
		return invalidInput("validateConcurrency",
			fmt.Sprintf("concurrency cannot exceed %d", MaxConcurrency))
	}
	return nil
}

// ValidateContentType validates that a content type is a well-formed MIME type.
func ValidateContentType(contentType string) error {
	if contentType == "" {
		return nil
	}
	if !mimePattern.MatchString(contentType) {
		return invalidInput("validateContentType", "content type must be a valid MIME type")
	}
	return nil
}

func requireField(op, name, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalidInput(op, name+" cannot be empty")
	}
	return nil
}

func validatePatterns(op string, patterns ...[]string) error {
	for _, set := range patterns {
		for _, p := range set {
			if strings.TrimSpace(p) == "" {
				return invalidInput(op, "patterns cannot be empty")
			}
		}
	}
	return nil
}

func invalidInput(op, message string) error {
	return errors.NewError(op, errors.ErrInvalidInput).WithMessage(message)
}

// hasPathTraversal checks for ".." segments and absolute keys
func hasPathTraversal(key string) bool {
	if strings.HasPrefix(key, "/") {
		return true
	}

	// Windows-style absolute paths
	if len(key) >= 3 && key[1] == ':' && (key[2] == '\\' || key[2] == '/') {
		return true
	}

	for _, segment := range strings.FieldsFunc(key, func(r rune) bool { return r == '/' || r == '\\' }) {
		if segment == ".." {
			return true
		}
	}
	return false
}

// hasControlCharacters checks for control characters in the key
func hasControlCharacters(key string) bool {
	for _, char := range key {
		if unicode.IsControl(char) {
			return true
		}
	}
	return false
}
