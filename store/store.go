// Package store defines the Session Store Client contract: the four multipart
// operations the orchestrator needs from an S3-compatible object store.
//
// Three implementations are provided: store/wire speaks the S3 wire protocol
// directly, store/s3store uses the AWS SDK, and store/miniostore uses minio-go.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/uploadtypes"
)

// CreateSessionInput describes a new multipart session.
type CreateSessionInput struct {
	Bucket      string
	Key         string
	ContentType string
	Metadata    map[string]string
}

// PresignPartInput describes a single part upload permission.
type PresignPartInput struct {
	Bucket     string
	Key        string
	UploadID   string
	PartNumber int
	TTL        time.Duration
}

// CompleteSessionInput describes the finalization of a session.
type CompleteSessionInput struct {
	Bucket   string
	Key      string
	UploadID string
	Parts    []uploadtypes.Part
}

// AbortSessionInput identifies a session to cancel.
type AbortSessionInput struct {
	Bucket   string
	Key      string
	UploadID string
}

// SessionStore is the object store side of a multipart upload.
// Implementations never retry and report store rejections as ErrProtocol
// errors carrying the store error code.
type SessionStore interface {
	// CreateSession starts a multipart session and returns its upload id.
	CreateSession(ctx context.Context, in CreateSessionInput) (string, error)

	// PresignPart returns a URL that authorizes a PUT of one part until TTL elapses.
	// It is computed locally from credentials.
	PresignPart(ctx context.Context, in PresignPartInput) (string, error)

	// CompleteSession assembles the parts, in ascending part number order,
	// and returns the final object ETag.
	CompleteSession(ctx context.Context, in CompleteSessionInput) (string, error)

	// AbortSession cancels the session and discards uploaded parts.
	AbortSession(ctx context.Context, in AbortSessionInput) error
}

// BucketManager is an optional SessionStore capability for bucket bootstrap and health.
type BucketManager interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	CreateBucket(ctx context.Context, bucket string) error
}

// SortParts returns a copy of parts in ascending part number order.
func SortParts(parts []uploadtypes.Part) []uploadtypes.Part {
	sorted := slices.Clone(parts)
	slices.SortStableFunc(sorted, func(a, b uploadtypes.Part) int {
		return a.PartNumber - b.PartNumber
	})
	return sorted
}

// CheckPresignTTL rejects URL lifetimes SigV4 query signing cannot express:
// below one second or above seven days.
func CheckPresignTTL(ttl time.Duration) error {
	if ttl < time.Second || ttl > uploadtypes.MaxPresignExpiry {
		return errors.NewError("presignPart", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("presign ttl %s must be between 1s and %s", ttl, uploadtypes.MaxPresignExpiry))
	}
	return nil
}

// EnsureBucket creates bucket when it does not exist yet. Failures are logged
// as warnings and returned so startup can proceed without the bucket.
func EnsureBucket(ctx context.Context, s SessionStore, bucket string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	bm, ok := s.(BucketManager)
	if !ok {
		logger.WarnContext(ctx, "store cannot manage buckets, skipping bucket check", "bucket", bucket)
		return nil
	}

	exists, err := bm.BucketExists(ctx, bucket)
	if err != nil {
		logger.WarnContext(ctx, "could not check bucket", "bucket", bucket, "error", err)
		return err
	}
	if exists {
		return nil
	}

	if err := bm.CreateBucket(ctx, bucket); err != nil {
		logger.WarnContext(ctx, "could not create bucket", "bucket", bucket, "error", err)
		return err
	}
	logger.InfoContext(ctx, "created bucket", "bucket", bucket)
	return nil
}
