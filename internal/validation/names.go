package validation

import (
	"strings"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/errors"
)

const (
	minBucketLen = 3
	maxBucketLen = 63
	maxKeyLen    = 1024
)

// ValidateBucketName checks that a bucket name follows the S3 DNS naming rules.
func ValidateBucketName(bucket string) error {
	switch {
	case bucket == "":
		return bucketError(bucket, "bucket name cannot be empty")
	case len(bucket) < minBucketLen || len(bucket) > maxBucketLen:
		return bucketError(bucket, "bucket name must be between 3 and 63 characters long")
	}

	for _, r := range bucket {
		if !isBucketRune(r) {
			return bucketError(bucket, "bucket name can only contain lowercase letters, numbers, dots, and hyphens")
		}
	}

	first, last := bucket[0], bucket[len(bucket)-1]
	switch {
	case first == '-' || first == '.' || last == '-' || last == '.':
		return bucketError(bucket, "bucket name cannot start or end with a hyphen or dot")
	case looksLikeIPv4(bucket):
		return bucketError(bucket, "bucket name cannot be formatted as an IP address")
	case strings.Contains(bucket, "..") || strings.Contains(bucket, "--"):
		return bucketError(bucket, "bucket name cannot contain two adjacent periods or hyphens")
	case bucket == "localhost":
		return bucketError(bucket, "bucket name cannot be a reserved word")
	}
	return nil
}

// ValidateObjectKey checks that an object key is usable and cannot escape its bucket.
func ValidateObjectKey(key string) error {
	switch {
	case key == "":
		return keyError(key, "object key cannot be empty")
	case hasPathTraversal(key):
		return keyError(key, "object key cannot contain path traversal sequences")
	case len(key) > maxKeyLen:
		return keyError(key, "object key cannot exceed 1024 bytes")
	case strings.IndexFunc(key, unicode.IsControl) >= 0:
		return keyError(key, "object key cannot contain control characters")
	}
	return nil
}

// ValidateUploadID checks that a multipart upload id is present and printable.
// Store-issued ids are opaque, so nothing beyond that is assumed.
func ValidateUploadID(uploadID string) error {
	if strings.TrimSpace(uploadID) == "" {
		return errors.NewError("validateUploadID", errors.ErrInvalidInput).
			WithMessage("upload id cannot be empty")
	}
	if strings.IndexFunc(uploadID, unicode.IsControl) >= 0 {
		return errors.NewError("validateUploadID", errors.ErrInvalidInput).
			WithUploadID(uploadID).
			WithMessage("upload id cannot contain control characters")
	}
	return nil
}

// ValidateSession checks the identifying triple of an existing session.
func ValidateSession(uploadID, bucket, key string) error {
	if err := ValidateUploadID(uploadID); err != nil {
		return err
	}
	if err := ValidateBucketName(bucket); err != nil {
		return err
	}
	return ValidateObjectKey(key)
}

func bucketError(bucket, msg string) error {
	return errors.NewError("validateBucketName", errors.ErrInvalidInput).
		WithBucket(bucket).
		WithMessage(msg)
}

func keyError(key, msg string) error {
	return errors.NewError("validateObjectKey", errors.ErrInvalidInput).
		WithKey(key).
		WithMessage(msg)
}

func isBucketRune(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || r == '.' || r == '-'
}

func looksLikeIPv4(s string) bool {
	octets := strings.Split(s, ".")
	if len(octets) != 4 {
		return false
	}
	for _, o := range octets {
		if o == "" || len(o) > 3 || strings.IndexFunc(o, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
			return false
		}
	}
	return true
}

// hasPathTraversal reports keys that climb out of the bucket or look absolute.
// Only a whole ".." segment climbs; "backup..2026.tar" is an ordinary name.
func hasPathTraversal(key string) bool {
	segments := strings.FieldsFunc(key, func(r rune) bool { return r == '/' || r == '\\' })
	for _, seg := range segments {
		if seg == ".." {
			return true
		}
	}
	if strings.HasPrefix(key, "/") || strings.HasPrefix(key, `\`) {
		return true
	}
	// Windows drive letters
	return len(key) >= 3 && key[1] == ':' && (key[2] == '\\' || key[2] == '/')
}
