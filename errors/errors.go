package errors

import (
	"errors"
	"fmt"
)

// Error represents an upload operation error with context about the operation that failed.
// It wraps the underlying store or validation error with the session it concerns.
type Error struct {
	// Op is the operation that failed (e.g., "initiate", "presignBatch", "complete")
	Op string

	// Kind classifies the failure
	Kind Kind

	// Bucket is the target bucket (if applicable)
	Bucket string

	// Key is the object key (if applicable)
	Key string

	// UploadID is the multipart upload id (if applicable)
	UploadID string

	// Code is the object store error code (e.g., "NoSuchUpload", "InvalidPart")
	Code string

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	prefix := "uploads." + e.Op
	switch {
	case e.Bucket != "" && e.Key != "":
		prefix = fmt.Sprintf("%s %s/%s", prefix, e.Bucket, e.Key)
	case e.Bucket != "":
		prefix = fmt.Sprintf("%s bucket %s", prefix, e.Bucket)
	case e.Key != "":
		prefix = fmt.Sprintf("%s object %s", prefix, e.Key)
	}
	if e.UploadID != "" {
		prefix = fmt.Sprintf("%s (upload %s)", prefix, e.UploadID)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind, so
// errors.Is(err, ErrProtocol) holds even when Err is a raw store error.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && target == s
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithUploadID adds multipart upload id context to an existing error.
func (e *Error) WithUploadID(uploadID string) *Error {
	e.UploadID = uploadID
	return e
}

// WithCode records the object store error code.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
// The kind is taken from err when it is (or wraps) an *Error or a sentinel.
func NewError(op string, err error) *Error {
	return &Error{
		Op:   op,
		Kind: KindOf(err),
		Err:  err,
	}
}

// NewKindError creates a new Error of an explicit kind.
func NewKindError(op string, kind Kind, err error) *Error {
	return &Error{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// NewProtocolError creates a ProtocolError for a store request against bucket/key.
func NewProtocolError(op, bucket, key string, err error) *Error {
	return &Error{
		Op:     op,
		Kind:   KindProtocol,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// Sentinel errors, one per Kind.
// These can be used with errors.Is() for error checking.
var (
	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("uploads: invalid input")

	// ErrPlanning indicates that no valid chunk size exists for the file
	ErrPlanning = errors.New("uploads: no valid chunk size")

	// ErrProtocol indicates that the object store rejected or garbled a response
	ErrProtocol = errors.New("uploads: object store protocol error")

	// ErrCleanup indicates that an abort did not succeed
	ErrCleanup = errors.New("uploads: cleanup failed")

	// ErrInvalidConfig indicates inconsistent configuration
	ErrInvalidConfig = errors.New("uploads: invalid configuration")

	// ErrNotImplemented indicates that the store lacks the requested capability
	ErrNotImplemented = errors.New("uploads: not implemented")
)

var sentinels = map[Kind]error{
	KindInvalidInput:   ErrInvalidInput,
	KindPlanning:       ErrPlanning,
	KindProtocol:       ErrProtocol,
	KindCleanup:        ErrCleanup,
	KindInvalidConfig:  ErrInvalidConfig,
	KindNotImplemented: ErrNotImplemented,
}

// KindOf returns the Kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != "" {
		return e.Kind
	}
	for kind, s := range sentinels {
		if errors.Is(err, s) {
			return kind
		}
	}
	return KindInternal
}

// CodeOf returns the store error code carried by err, if any.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsInvalidInput checks if an error indicates invalid input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsPlanning checks if an error indicates that chunk planning failed.
func IsPlanning(err error) bool {
	return errors.Is(err, ErrPlanning)
}

// IsProtocol checks if an error indicates an object store protocol failure.
func IsProtocol(err error) bool {
	return errors.Is(err, ErrProtocol)
}

// IsNotImplemented checks if an error indicates an unsupported capability.
func IsNotImplemented(err error) bool {
	return errors.Is(err, ErrNotImplemented)
}
