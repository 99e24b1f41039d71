// Package uploadtypes provides shared type definitions for the uploads module.
package uploadtypes

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Size units used by chunk sizing options.
const (
	MiB int64 = 1 << 20
	GiB int64 = 1 << 30
)

// Chunking and session defaults.
const (
	// DefaultPreferredChunkSize is used whenever it keeps the part count within MaxParts
	DefaultPreferredChunkSize = 128 * MiB

	// DefaultMinChunkSize is the S3 minimum size of every part but the last
	DefaultMinChunkSize = 5 * MiB

	// DefaultMaxChunkSize caps the adaptive chunk size
	DefaultMaxChunkSize = 512 * MiB

	// DefaultAlignment is the granularity adaptive chunk sizes are rounded up to
	DefaultAlignment = 16 * MiB

	// DefaultMaxParts is the S3 hard limit on parts per multipart upload
	DefaultMaxParts = 10000

	// DefaultPresignExpiry is the lifetime of issued part upload URLs
	DefaultPresignExpiry = 24 * time.Hour

	// MaxPresignExpiry is the longest lifetime SigV4 query signing allows
	MaxPresignExpiry = 7 * 24 * time.Hour

	// DefaultMaxBatchSize bounds how many part URLs a single batch may request
	DefaultMaxBatchSize = 100

	// DefaultBucket is the bucket used when a request names none
	DefaultBucket = "uploads"

	// DefaultContentType is used when no type can be derived from the file name
	DefaultContentType = "application/octet-stream"

	// FingerprintMetadataKey is the session metadata key carrying the caller fingerprint
	FingerprintMetadataKey = "fingerprint"

	// StatusCompleted is the status reported for a finalized upload
	StatusCompleted = "completed"
)

// UploadSession describes a freshly created multipart session.
// It is a value handed back to the caller; the orchestrator keeps no copy.
type UploadSession struct {
	// UploadID is the store-issued identifier of the multipart session
	UploadID string `json:"upload_id"`

	// Bucket is the target bucket
	Bucket string `json:"bucket"`

	// ObjectKey is the key the object is assembled under
	ObjectKey string `json:"object_key"`

	// ChunkSize is the fixed size in bytes of every part but the last
	ChunkSize int64 `json:"chunk_size"`

	// TotalParts is the number of parts the file splits into
	TotalParts int `json:"total_parts"`
}

// Part identifies one uploaded part by number and the ETag the store returned for it.
type Part struct {
	PartNumber int    `json:"part_number"`
	ETag       string `json:"etag"`
}

// PresignedURLGrant is a time-boxed permission to upload exactly one part.
type PresignedURLGrant struct {
	PartNumber int       `json:"part_number"`
	URL        string    `json:"url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// CompleteResult reports the outcome of finalizing a session.
type CompleteResult struct {
	// Status is always StatusCompleted on success
	Status string `json:"status"`

	// FinalETag is the ETag of the assembled object
	FinalETag string `json:"final_etag"`

	// Verified is true only when the store positively acknowledged assembly
	Verified bool `json:"verified"`
}

// AbortResult reports the outcome of cancelling a session.
// Abort never fails with an error; a failed cleanup is reported here instead.
type AbortResult struct {
	// Success is true when the store accepted the abort
	Success bool `json:"success"`

	// Err carries the cause when Success is false
	Err error `json:"-"`
}

// InitiateRequest carries the inputs of a new upload session.
type InitiateRequest struct {
	// FileName is the caller's file name; only its base name is used for the key
	FileName string

	// FileSize is the total file size in bytes and must be positive
	FileSize int64

	// Fingerprint is an opaque caller-supplied identifier stored as session metadata
	Fingerprint string

	// ContentType overrides the type derived from FileName
	ContentType string

	// Bucket overrides the configured default bucket
	Bucket string

	// ObjectKey overrides the derived object key
	ObjectKey string
}

// PresignRequest asks for upload URLs for a batch of parts of one session.
type PresignRequest struct {
	UploadID    string
	Bucket      string
	ObjectKey   string
	PartNumbers []int
}

// CompleteRequest finalizes a session from the collected part ETags.
type CompleteRequest struct {
	UploadID  string
	Bucket    string
	ObjectKey string
	Parts     []Part
}

// AbortRequest cancels a session.
type AbortRequest struct {
	UploadID  string
	Bucket    string
	ObjectKey string
}

// Recorder receives orchestrator operation outcomes for metrics.
type Recorder interface {
	// ObserveOperation records one finished operation and its outcome kind ("ok" on success)
	ObserveOperation(op, outcome string, elapsed time.Duration)

	// AddPresigned records the number of part URLs issued by one batch
	AddPresigned(n int)

	// ObserveChunkSize records the chunk size chosen for a new session
	ObserveChunkSize(size int64)
}

// Config holds the orchestrator configuration.
// It is read-only once the orchestrator is constructed.
type Config struct {
	DefaultBucket      string
	PreferredChunkSize int64
	MinChunkSize       int64
	MaxChunkSize       int64
	Alignment          int64
	MaxParts           int
	PresignExpiry      time.Duration
	MaxBatchSize       int
	Logger             *slog.Logger
	Metrics            Recorder
	TracerProvider     trace.TracerProvider
	Clock              func() time.Time
}

// Option configures the orchestrator.
type Option func(*Config)
