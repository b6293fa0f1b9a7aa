package errors

import (
	"context"
	"errors"
)

// ErrorCode classifies a transfer error.
// Error codes are string-based for debuggability and use as metric labels.
type ErrorCode string

const (
	// CodeNotFound indicates a bucket or object does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeForbidden indicates the credentials lack permission for the operation.
	CodeForbidden ErrorCode = "FORBIDDEN"

	// CodeInvalidInput indicates a request, key or local path failed validation.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeNotImplemented indicates the store lacks a requested API.
	CodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// CodeListingFailed indicates enumeration of remote objects failed.
	CodeListingFailed ErrorCode = "LISTING_FAILED"

	// CodeTransferFailed indicates a single item transfer failed.
	CodeTransferFailed ErrorCode = "TRANSFER_FAILED"

	// CodeCanceled indicates the caller canceled the run.
	CodeCanceled ErrorCode = "CANCELED"

	// CodeTimeout indicates a deadline was exceeded.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeUnknown indicates an unclassified error.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// Code returns the most specific code for err, or an empty code for nil.
// Causes are checked before the listing and transfer markers that wrap them.
func Code(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case IsCanceled(err):
		return CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case IsValidation(err) || IsInvalidInput(err):
		return CodeInvalidInput
	case IsObjectNotFound(err) || IsBucketNotFound(err):
		return CodeNotFound
	case IsAccessDenied(err):
		return CodeForbidden
	case IsNotImplemented(err):
		return CodeNotImplemented
	case IsListing(err):
		return CodeListingFailed
	case IsItemTransfer(err):
		return CodeTransferFailed
	default:
		return CodeUnknown
	}
}
