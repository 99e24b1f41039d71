// Package planner decides how a file is split into multipart upload parts.
// Planning is pure integer arithmetic with no I/O.
package planner

import (
	"fmt"
	"math"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/uploadtypes"
)

// S3MaxParts is the protocol limit on parts per multipart upload.
const S3MaxParts = 10000

// Result is a chunk plan for one file.
type Result struct {
	ChunkSize  int64
	TotalParts int
}

// Planner holds the chunk sizing policy.
type Planner struct {
	Preferred int64
	MinChunk  int64
	MaxChunk  int64
	MaxParts  int
	Alignment int64
}

// New returns a Planner with the default policy.
func New() Planner {
	return Planner{
		Preferred: uploadtypes.DefaultPreferredChunkSize,
		MinChunk:  uploadtypes.DefaultMinChunkSize,
		MaxChunk:  uploadtypes.DefaultMaxChunkSize,
		MaxParts:  uploadtypes.DefaultMaxParts,
		Alignment: uploadtypes.DefaultAlignment,
	}
}

// Validate checks that the policy is internally consistent.
func (p Planner) Validate() error {
	switch {
	case p.MinChunk <= 0:
		return invalidConfig("minimum chunk size must be positive, got %d", p.MinChunk)
	case p.MaxChunk < p.MinChunk:
		return invalidConfig("maximum chunk size %d is below minimum %d", p.MaxChunk, p.MinChunk)
	case p.Preferred < p.MinChunk || p.Preferred > p.MaxChunk:
		return invalidConfig("preferred chunk size %d outside [%d, %d]", p.Preferred, p.MinChunk, p.MaxChunk)
	case p.Alignment <= 0:
		return invalidConfig("alignment must be positive, got %d", p.Alignment)
	case p.MaxParts <= 0 || p.MaxParts > S3MaxParts:
		return invalidConfig("max parts must be in [1, %d], got %d", S3MaxParts, p.MaxParts)
	}
	return nil
}

// Plan picks the chunk size and part count for a file of the given size.
//
// The preferred size wins whenever it fits within MaxParts. Otherwise the
// smallest size that fits is rounded up to a multiple of Alignment and
// capped at MaxChunk. A plan that still needs more than MaxParts parts
// fails with ErrPlanning.
func (p Planner) Plan(fileSize int64) (Result, error) {
	if fileSize <= 0 {
		return Result{}, errors.NewError("plan", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("file size must be positive, got %d", fileSize))
	}

	maxParts := int64(p.MaxParts)
	if CeilDiv(fileSize, p.Preferred) <= maxParts {
		return Result{ChunkSize: p.Preferred, TotalParts: int(CeilDiv(fileSize, p.Preferred))}, nil
	}

	chunk := p.MaxChunk
	if minRequired := CeilDiv(fileSize, maxParts); minRequired < p.MaxChunk {
		chunk = min(AlignUp(minRequired, p.Alignment), p.MaxChunk)
	}

	parts := CeilDiv(fileSize, chunk)
	if parts > maxParts {
		return Result{}, errors.NewError("plan", errors.ErrPlanning).
			WithMessage(fmt.Sprintf("file size %d needs %d parts of %d bytes, limit is %d",
				fileSize, parts, chunk, p.MaxParts))
	}
	return Result{ChunkSize: chunk, TotalParts: int(parts)}, nil
}

// CeilDiv returns ceil(n/d) for positive n and d without overflowing.
func CeilDiv(n, d int64) int64 {
	q := n / d
	if n%d != 0 {
		q++
	}
	return q
}

// AlignUp returns the smallest multiple of a that is >= n.
// A value already on a boundary is returned unchanged; results past
// the int64 range saturate to the largest representable multiple.
func AlignUp(n, a int64) int64 {
	q := CeilDiv(n, a)
	if q > math.MaxInt64/a {
		return (math.MaxInt64 / a) * a
	}
	return q * a
}

func invalidConfig(format string, args ...any) error {
	return errors.NewError("planner", errors.ErrInvalidConfig).WithMessage(fmt.Sprintf(format, args...))
}
