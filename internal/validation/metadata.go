package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/errors"
)

const (
	maxMetadataKeyLen   = 128
	maxMetadataValueLen = 2048
)

var mimePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9!#$&^_.+\-]*/[a-zA-Z0-9][a-zA-Z0-9!#$&^_.+\-]*(\s*;.*)?$`)

// ValidateMetadata checks user metadata keys and values against the limits
// object stores place on x-amz-meta-* headers.
func ValidateMetadata(metadata map[string]string) error {
	for key, value := range metadata {
		if key == "" {
			return metadataError("metadata key cannot be empty")
		}
		if len(key) > maxMetadataKeyLen {
			return metadataError(fmt.Sprintf("metadata key %q exceeds %d characters", key, maxMetadataKeyLen))
		}
		if strings.HasPrefix(strings.ToLower(key), "x-amz-") {
			return metadataError(fmt.Sprintf("metadata key %q uses a reserved prefix", key))
		}
		for _, r := range key {
			if r <= ' ' || r > '~' {
				return metadataError(fmt.Sprintf("metadata key %q must be printable ASCII without spaces", key))
			}
		}
		if len(value) > maxMetadataValueLen {
			return metadataError(fmt.Sprintf("metadata value for %q exceeds %d characters", key, maxMetadataValueLen))
		}
		if strings.IndexFunc(value, unicode.IsControl) >= 0 {
			return metadataError(fmt.Sprintf("metadata value for %q contains control characters", key))
		}
	}
	return nil
}

// SanitizeMetadataValue reduces a caller-supplied value to printable ASCII.
func SanitizeMetadataValue(value string) string {
	return strings.Map(func(r rune) rune {
		if r < ' ' || r > '~' {
			return -1
		}
		return r
	}, value)
}

// ValidateContentType checks that a content type looks like a MIME type.
// An empty content type is allowed.
func ValidateContentType(contentType string) error {
	if contentType == "" {
		return nil
	}
	if !mimePattern.MatchString(contentType) {
		return errors.NewError("validateContentType", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("content type %q must be a valid MIME type", contentType))
	}
	return nil
}

func metadataError(msg string) error {
	return errors.NewError("validateMetadata", errors.ErrInvalidInput).WithMessage(msg)
}
