package uploads

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/uploadtypes"
)

// WithDefaultBucket sets the bucket used when a request names none.
// Default is "uploads".
func WithDefaultBucket(bucket string) uploadtypes.Option {
	return func(c *uploadtypes.Config) {
		c.DefaultBucket = bucket
	}
}

// WithPreferredChunkSize sets the chunk size used whenever it keeps the part
// count within the limit. Default is 128MiB.
func WithPreferredChunkSize(size int64) uploadtypes.Option {
	return func(c *uploadtypes.Config) {
		if size > 0 {
			c.PreferredChunkSize = size
		}
	}
}

// WithChunkBounds sets the minimum and maximum chunk size.
// Defaults are 5MiB and 512MiB.
func WithChunkBounds(minSize, maxSize int64) uploadtypes.Option {
	return func(c *uploadtypes.Config) {
		c.MinChunkSize = minSize
		c.MaxChunkSize = maxSize
	}
}

// WithMaxParts sets the part count limit per session. Default is 10000,
// which is also the largest value S3 accepts.
func WithMaxParts(maxParts int) uploadtypes.Option {
	return func(c *uploadtypes.Config) {
		c.MaxParts = maxParts
	}
}

// WithAlignment sets the granularity adaptive chunk sizes are rounded up to.
// Default is 16MiB.
func WithAlignment(alignment int64) uploadtypes.Option {
	return func(c *uploadtypes.Config) {
		c.Alignment = alignment
	}
}

// WithPresignExpiry sets the lifetime of issued part URLs.
// Default is 24 hours; at most 7 days.
func WithPresignExpiry(expiry time.Duration) uploadtypes.Option {
	return func(c *uploadtypes.Config) {
		c.PresignExpiry = expiry
	}
}

// WithMaxBatchSize bounds how many part URLs one PresignBatch call may request.
// Default is 100.
func WithMaxBatchSize(n int) uploadtypes.Option {
	return func(c *uploadtypes.Config) {
		c.MaxBatchSize = n
	}
}

// WithLogger sets the structured logger. By default nothing is logged.
func WithLogger(logger *slog.Logger) uploadtypes.Option {
	return func(c *uploadtypes.Config) {
		c.Logger = logger
	}
}

// WithMetrics sets the recorder that receives operation metrics.
func WithMetrics(recorder uploadtypes.Recorder) uploadtypes.Option {
	return func(c *uploadtypes.Config) {
		c.Metrics = recorder
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
// Default is the global provider.
func WithTracerProvider(tp trace.TracerProvider) uploadtypes.Option {
	return func(c *uploadtypes.Config) {
		c.TracerProvider = tp
	}
}

// WithClock sets the time source for object key timestamps and URL expiry.
func WithClock(now func() time.Time) uploadtypes.Option {
	return func(c *uploadtypes.Config) {
		if now != nil {
			c.Clock = now
		}
	}
}
