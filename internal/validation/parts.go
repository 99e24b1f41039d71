package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/uploadtypes"
)

// ParsePartNumbers parses a comma separated list of part numbers such as "1,2,3".
// Whitespace around numbers and blank segments are ignored; anything that is
// not a base-10 integer fails, as does a list with no numbers at all.
func ParsePartNumbers(raw string) ([]int, error) {
	var numbers []int
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, errors.NewError("parsePartNumbers", errors.ErrInvalidInput).
				WithMessage(fmt.Sprintf("part number %q is not an integer", field))
		}
		numbers = append(numbers, n)
	}
	if len(numbers) == 0 {
		return nil, errors.NewError("parsePartNumbers", errors.ErrInvalidInput).
			WithMessage("no part numbers given")
	}
	return numbers, nil
}

// ValidatePartBatch checks a batch of requested part numbers and returns them
// with duplicates removed, keeping first occurrence order.
// The batch must hold between 1 and maxBatch entries, and every number must
// be in [1, maxParts].
func ValidatePartBatch(numbers []int, maxBatch, maxParts int) ([]int, error) {
	if len(numbers) == 0 {
		return nil, errors.NewError("validatePartBatch", errors.ErrInvalidInput).
			WithMessage("at least one part number is required")
	}
	if len(numbers) > maxBatch {
		return nil, errors.NewError("validatePartBatch", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("batch of %d part numbers exceeds limit of %d", len(numbers), maxBatch))
	}

	seen := make(map[int]struct{}, len(numbers))
	unique := make([]int, 0, len(numbers))
	for _, n := range numbers {
		if err := validatePartNumber("validatePartBatch", n, maxParts); err != nil {
			return nil, err
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		unique = append(unique, n)
	}
	return unique, nil
}

// ValidateCompletionParts checks the part set submitted to finalize a session:
// it must be non-empty, with each number in [1, maxParts], each number present
// at most once, and a non-empty ETag for every part.
func ValidateCompletionParts(parts []uploadtypes.Part, maxParts int) error {
	if len(parts) == 0 {
		return errors.NewError("validateCompletionParts", errors.ErrInvalidInput).
			WithMessage("at least one part is required")
	}

	seen := make(map[int]struct{}, len(parts))
	for _, p := range parts {
		if err := validatePartNumber("validateCompletionParts", p.PartNumber, maxParts); err != nil {
			return err
		}
		if strings.TrimSpace(p.ETag) == "" {
			return errors.NewError("validateCompletionParts", errors.ErrInvalidInput).
				WithMessage(fmt.Sprintf("part %d has an empty etag", p.PartNumber))
		}
		if _, dup := seen[p.PartNumber]; dup {
			return errors.NewError("validateCompletionParts", errors.ErrInvalidInput).
				WithMessage(fmt.Sprintf("part %d is listed more than once", p.PartNumber))
		}
		seen[p.PartNumber] = struct{}{}
	}
	return nil
}

func validatePartNumber(op string, n, maxParts int) error {
	if n < 1 || n > maxParts {
		return errors.NewError(op, errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("part number %d out of range [1, %d]", n, maxParts))
	}
	return nil
}
