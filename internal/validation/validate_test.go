package validation

import (
	"strings"
	"testing"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/s3types"
)

func TestValidateDownloadRequest(t *testing.T) {
	tests := []struct {
		name      string
		req       *s3types.DownloadDirectoryRequest
		wantError bool
		errMsg    string
	}{
		{"valid", &s3types.DownloadDirectoryRequest{Bucket: "b", Prefix: "docs", LocalDirectory: "/tmp/out"}, false, ""},
		{"root_prefix", &s3types.DownloadDirectoryRequest{Bucket: "b", Prefix: "/", LocalDirectory: "/tmp/out"}, false, ""},
		{"nil", nil, true, "request cannot be nil"},
		{"no_bucket", &s3types.DownloadDirectoryRequest{Prefix: "docs", LocalDirectory: "/tmp"}, true, "bucket cannot be empty"},
		{"blank_prefix", &s3types.DownloadDirectoryRequest{Bucket: "b", Prefix: "  ", LocalDirectory: "/tmp"}, true, "prefix cannot be empty"},
		{"no_local", &s3types.DownloadDirectoryRequest{Bucket: "b", Prefix: "docs"}, true, "local directory cannot be empty"},
		{
			"blank_pattern",
			&s3types.DownloadDirectoryRequest{Bucket: "b", Prefix: "docs", LocalDirectory: "/tmp", ExcludePatterns: []string{""}},
			true,
			"patterns cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDownloadRequest(tt.req)
			if tt.wantError {
				if err == nil {
					t.Errorf("expected error containing %q, got nil", tt.errMsg)
				} else if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
				} else if !errors.IsValidation(err) {
					t.Errorf("expected a validation error, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateUploadRequest(t *testing.T) {
	tests := []struct {
		name      string
		req       *s3types.UploadDirectoryRequest
		wantError bool
		errMsg    string
	}{
		{"valid", &s3types.UploadDirectoryRequest{Bucket: "b", LocalDirectory: "/tmp/in"}, false, ""},
		{"with_content_type", &s3types.UploadDirectoryRequest{Bucket: "b", LocalDirectory: "/tmp/in", ContentType: "text/plain"}, false, ""},
		{"no_bucket", &s3types.UploadDirectoryRequest{LocalDirectory: "/tmp/in"}, true, "bucket cannot be empty"},
		{"no_local", &s3types.UploadDirectoryRequest{Bucket: "b"}, true, "local directory cannot be empty"},
		{"bad_content_type", &s3types.UploadDirectoryRequest{Bucket: "b", LocalDirectory: "/tmp", ContentType: "nope"}, true, "valid MIME type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUploadRequest(tt.req)
			if tt.wantError {
				if err == nil {
					t.Errorf("expected error containing %q, got nil", tt.errMsg)
				} else if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateObjectKey(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		wantError bool
		errMsg    string
	}{
		{"valid_simple", "file.txt", false, ""},
		{"valid_nested", "docs/a/b.txt", false, ""},
		{"valid_dots_in_name", "docs/a..b.txt", false, ""},
		{"valid_unicode", "docs/résumé.pdf", false, ""},
		{"empty", "", true, "object key cannot be empty"},
		{"traversal", "docs/../../etc/passwd", true, "path traversal"},
		{"absolute", "/etc/passwd", true, "path traversal"},
		{"windows_absolute", "C:\\Windows", true, "path traversal"},
		{"too_long", strings.Repeat("a", 1025), true, "cannot exceed 1024"},
		{"control_chars", "docs/a\x00b", true, "control characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateObjectKey(tt.key)
			if tt.wantError {
				if err == nil {
					t.Errorf("expected error containing %q, got nil", tt.errMsg)
				} else if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateConcurrency(t *testing.T) {
	for _, n := range []int{1, 5, MaxConcurrency} {
		if err := ValidateConcurrency(n); err != nil {
			t.Errorf("ValidateConcurrency(%d) unexpected error: %v", n, err)
		}
	}
	for _, n := range []int{0, -1, MaxConcurrency + 1} {
		if err := ValidateConcurrency(n); err == nil {
			t.Errorf("ValidateConcurrency(%d) expected error", n)
		}
	}
}
