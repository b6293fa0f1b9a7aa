// Package errors provides error types and handling for S3 directory transfers.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Error represents a transfer error with context about the operation that failed.
// It wraps the underlying SDK or filesystem error with additional context for debugging.
type Error struct {
	// Op is the operation that failed (e.g., "list", "download", "downloadDirectory")
	Op string

	// Bucket is the S3 bucket name (if applicable)
	Bucket string

	// Key is the S3 object key (if applicable)
	Key string

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("s3.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("s3.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("s3.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("s3.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewBucketError creates a new Error with bucket context.
func NewBucketError(op, bucket string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Err:    err,
	}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(op, bucket, key string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// NewListingError marks a failure of the remote listing. Listing failures are
// fatal for a run and nothing is scheduled after them.
func NewListingError(bucket string, err error) *Error {
	if IsCanceled(err) {
		return NewBucketError("list", bucket, err)
	}
	return NewBucketError("list", bucket, fmt.Errorf("%w: %w", ErrListing, err))
}

// NewItemError marks the failure of a single item transfer. Cancellation
// errors are left unmarked so they never count as item failures.
func NewItemError(op, bucket, key string, err error) *Error {
	if IsCanceled(err) {
		return NewObjectError(op, bucket, key, err)
	}
	return NewObjectError(op, bucket, key, fmt.Errorf("%w: %w", ErrItemTransfer, err))
}

// NewCanceledError reports a run that ended because its caller canceled it.
func NewCanceledError(op string, cause error) *Error {
	if cause == nil {
		return NewError(op, ErrCanceled)
	}
	return NewError(op, fmt.Errorf("%w: %w", ErrCanceled, cause))
}

// Sentinel errors for common transfer failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("s3: object not found")

	// ErrBucketNotFound indicates that the requested bucket does not exist
	ErrBucketNotFound = errors.New("s3: bucket not found")

	// ErrAccessDenied indicates that access to the resource is denied
	ErrAccessDenied = errors.New("s3: access denied")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("s3: invalid input")

	// ErrInvalidObjectKey indicates that the object key is invalid
	ErrInvalidObjectKey = errors.New("s3: invalid object key")

	// ErrPathEscape indicates that an object key maps outside the local root
	ErrPathEscape = errors.New("s3: path escapes local directory")

	// ErrFileCollision indicates that the local root exists as a plain file
	ErrFileCollision = errors.New("s3: local directory is a file")

	// ErrNotImplemented indicates that the requested feature is not implemented
	ErrNotImplemented = errors.New("s3: not implemented")

	// ErrListing indicates that enumerating remote objects failed
	ErrListing = errors.New("s3: listing failed")

	// ErrItemTransfer indicates that transferring a single item failed
	ErrItemTransfer = errors.New("s3: item transfer failed")

	// ErrCanceled indicates that the run was canceled by its caller
	ErrCanceled = errors.New("s3: transfer canceled")
)

// IsObjectNotFound checks if an error indicates that an object was not found.
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsBucketNotFound checks if an error indicates that a bucket was not found.
func IsBucketNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound)
}

// IsAccessDenied checks if an error indicates access was denied.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsInvalidInput checks if an error indicates invalid input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNotImplemented checks if an error indicates the store does not implement the request.
func IsNotImplemented(err error) bool {
	return errors.Is(err, ErrNotImplemented)
}

// IsValidation reports whether err is a validation failure: bad request input,
// an invalid key, a key escaping the local root, or a root that is a file.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidObjectKey) ||
		errors.Is(err, ErrPathEscape) ||
		errors.Is(err, ErrFileCollision)
}

// IsListing checks if an error came from enumerating remote objects.
func IsListing(err error) bool {
	return errors.Is(err, ErrListing)
}

// IsItemTransfer checks if an error came from transferring a single item.
func IsItemTransfer(err error) bool {
	return errors.Is(err, ErrItemTransfer)
}

// IsCanceled checks if an error is a cancellation rather than a failure.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}
