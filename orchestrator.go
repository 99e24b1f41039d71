package uploads

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/internal/keygen"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/internal/planner"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/store"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/uploadtypes"
)

const tracerName = "github.com/input-output-hk/catalyst-forge-libs/aws/uploads"

// Orchestrator plans, authorizes and finalizes multipart upload sessions.
// It holds only read-only configuration and is safe for concurrent use.
type Orchestrator struct {
	// store is the object store side of every session
	store store.SessionStore

	// planner chooses chunk sizes
	planner planner.Planner

	// cfg is the resolved configuration
	cfg uploadtypes.Config

	logger  *slog.Logger
	metrics uploadtypes.Recorder
	tracer  trace.Tracer
}

// New creates an Orchestrator over the given session store.
//
// Example:
//
//	orch, err := uploads.New(backend,
//	    uploads.WithDefaultBucket("media"),
//	    uploads.WithPresignExpiry(6*time.Hour),
//	)
func New(s store.SessionStore, opts ...uploadtypes.Option) (*Orchestrator, error) {
	if s == nil {
		return nil, errors.NewError("new", errors.ErrInvalidConfig).
			WithMessage("session store is required")
	}

	cfg := uploadtypes.Config{
		DefaultBucket:      uploadtypes.DefaultBucket,
		PreferredChunkSize: uploadtypes.DefaultPreferredChunkSize,
		MinChunkSize:       uploadtypes.DefaultMinChunkSize,
		MaxChunkSize:       uploadtypes.DefaultMaxChunkSize,
		Alignment:          uploadtypes.DefaultAlignment,
		MaxParts:           uploadtypes.DefaultMaxParts,
		PresignExpiry:      uploadtypes.DefaultPresignExpiry,
		MaxBatchSize:       uploadtypes.DefaultMaxBatchSize,
		Clock:              time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := planner.Planner{
		Preferred: cfg.PreferredChunkSize,
		MinChunk:  cfg.MinChunkSize,
		MaxChunk:  cfg.MaxChunkSize,
		MaxParts:  cfg.MaxParts,
		Alignment: cfg.Alignment,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := validation.ValidateBucketName(cfg.DefaultBucket); err != nil {
		return nil, errors.NewKindError("new", errors.KindInvalidConfig, err).
			WithMessage("default bucket")
	}
	if err := store.CheckPresignTTL(cfg.PresignExpiry); err != nil {
		return nil, errors.NewKindError("new", errors.KindInvalidConfig, err)
	}
	if cfg.MaxBatchSize < 1 {
		return nil, errors.NewError("new", errors.ErrInvalidConfig).
			WithMessage(fmt.Sprintf("max batch size %d must be positive", cfg.MaxBatchSize))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = nopRecorder{}
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Orchestrator{
		store:   s,
		planner: p,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		tracer:  tp.Tracer(tracerName),
	}, nil
}

// DefaultBucket returns the bucket used when a request names none.
func (o *Orchestrator) DefaultBucket() string {
	return o.cfg.DefaultBucket
}

// Initiate plans a new upload and opens a multipart session for it.
//
// The bucket defaults to the configured one, the object key to
// "YYYYMMDD_HHMMSS_<base file name>" in UTC, and the content type to one
// derived from the file extension. A non-empty fingerprint is stored as
// session metadata.
//
// Errors:
//   - ErrInvalidInput: non-positive size, or an unusable name, bucket or key
//   - ErrPlanning: no chunk size keeps the part count within the limit
//   - ErrProtocol: the store rejected the session
func (o *Orchestrator) Initiate(ctx context.Context, req uploadtypes.InitiateRequest) (session *uploadtypes.UploadSession, err error) {
	ctx, finish := o.begin(ctx, "initiate",
		attribute.Int64("upload.file_size", req.FileSize))
	defer func() { finish(err) }()

	if req.FileSize <= 0 {
		return nil, errors.NewError("initiate", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("file size must be positive, got %d", req.FileSize))
	}

	bucket := req.Bucket
	if bucket == "" {
		bucket = o.cfg.DefaultBucket
	}
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}

	key := req.ObjectKey
	if key == "" {
		key = keygen.ObjectKey(req.FileName, o.cfg.Clock())
		if key == "" {
			return nil, errors.NewError("initiate", errors.ErrInvalidInput).
				WithBucket(bucket).
				WithMessage("file name or object key is required")
		}
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, err
	}

	contentType := strings.TrimSpace(req.ContentType)
	if contentType == "" {
		contentType = keygen.ContentTypeFromName(req.FileName)
	}
	if err := validation.ValidateContentType(contentType); err != nil {
		return nil, err
	}

	var metadata map[string]string
	if fp := validation.SanitizeMetadataValue(req.Fingerprint); fp != "" {
		metadata = map[string]string{uploadtypes.FingerprintMetadataKey: fp}
		if err := validation.ValidateMetadata(metadata); err != nil {
			return nil, err
		}
	}

	plan, err := o.planner.Plan(req.FileSize)
	if err != nil {
		return nil, err
	}

	uploadID, err := o.store.CreateSession(ctx, store.CreateSessionInput{
		Bucket:      bucket,
		Key:         key,
		ContentType: contentType,
		Metadata:    metadata,
	})
	if err != nil {
		o.logger.ErrorContext(ctx, "failed to create upload session",
			"bucket", bucket, "key", key, "error", err)
		return nil, err
	}

	o.metrics.ObserveChunkSize(plan.ChunkSize)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("upload.id", uploadID),
		attribute.Int("upload.total_parts", plan.TotalParts),
	)
	o.logger.InfoContext(ctx, "upload session created",
		"upload_id", uploadID,
		"bucket", bucket,
		"key", key,
		"chunk_size", plan.ChunkSize,
		"total_parts", plan.TotalParts)

	return &uploadtypes.UploadSession{
		UploadID:   uploadID,
		Bucket:     bucket,
		ObjectKey:  key,
		ChunkSize:  plan.ChunkSize,
		TotalParts: plan.TotalParts,
	}, nil
}

// PresignBatch issues one upload URL per requested part number.
// Duplicate numbers yield a single grant, in first occurrence order, and every
// grant of a batch shares one expiry time. URLs are signed locally.
//
// Errors:
//   - ErrInvalidInput: empty or oversized batch, or a part number out of range
//   - ErrProtocol: the store could not sign a URL
func (o *Orchestrator) PresignBatch(ctx context.Context, req uploadtypes.PresignRequest) (grants []uploadtypes.PresignedURLGrant, err error) {
	ctx, finish := o.begin(ctx, "presignBatch",
		attribute.String("upload.id", req.UploadID),
		attribute.Int("upload.batch_size", len(req.PartNumbers)))
	defer func() { finish(err) }()

	if err := validation.ValidateSession(req.UploadID, req.Bucket, req.ObjectKey); err != nil {
		return nil, err
	}
	numbers, err := validation.ValidatePartBatch(req.PartNumbers, o.cfg.MaxBatchSize, o.cfg.MaxParts)
	if err != nil {
		return nil, err
	}

	expiresAt := o.cfg.Clock().UTC().Add(o.cfg.PresignExpiry).Truncate(time.Second)
	grants = make([]uploadtypes.PresignedURLGrant, 0, len(numbers))
	for _, n := range numbers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		url, err := o.store.PresignPart(ctx, store.PresignPartInput{
			Bucket:     req.Bucket,
			Key:        req.ObjectKey,
			UploadID:   req.UploadID,
			PartNumber: n,
			TTL:        o.cfg.PresignExpiry,
		})
		if err != nil {
			return nil, err
		}
		grants = append(grants, uploadtypes.PresignedURLGrant{
			PartNumber: n,
			URL:        url,
			ExpiresAt:  expiresAt,
		})
	}

	o.metrics.AddPresigned(len(grants))
	o.logger.DebugContext(ctx, "issued part upload urls",
		"upload_id", req.UploadID,
		"part_count", len(grants),
		"expires_at", expiresAt)
	return grants, nil
}

// ParsePartNumbers parses a comma separated part number list such as "1,2,3".
// Blank segments are skipped; a non-integer or an empty list is ErrInvalidInput.
func (o *Orchestrator) ParsePartNumbers(raw string) ([]int, error) {
	return validation.ParsePartNumbers(raw)
}

// Complete assembles the session from the collected part ETags.
// Parts may be given in any order; they are sent to the store ascending.
//
// Errors:
//   - ErrInvalidInput: no parts, a duplicate or out of range number, or an empty ETag
//   - ErrProtocol: the store rejected the part set or acknowledged without an ETag
func (o *Orchestrator) Complete(ctx context.Context, req uploadtypes.CompleteRequest) (result *uploadtypes.CompleteResult, err error) {
	ctx, finish := o.begin(ctx, "complete",
		attribute.String("upload.id", req.UploadID),
		attribute.Int("upload.part_count", len(req.Parts)))
	defer func() { finish(err) }()

	if err := validation.ValidateSession(req.UploadID, req.Bucket, req.ObjectKey); err != nil {
		return nil, err
	}
	if err := validation.ValidateCompletionParts(req.Parts, o.cfg.MaxParts); err != nil {
		return nil, err
	}

	etag, err := o.store.CompleteSession(ctx, store.CompleteSessionInput{
		Bucket:   req.Bucket,
		Key:      req.ObjectKey,
		UploadID: req.UploadID,
		Parts:    store.SortParts(req.Parts),
	})
	if err != nil {
		o.logger.ErrorContext(ctx, "failed to complete upload",
			"upload_id", req.UploadID, "bucket", req.Bucket, "key", req.ObjectKey, "error", err)
		return nil, err
	}

	o.logger.InfoContext(ctx, "upload completed",
		"upload_id", req.UploadID,
		"bucket", req.Bucket,
		"key", req.ObjectKey,
		"part_count", len(req.Parts))

	return &uploadtypes.CompleteResult{
		Status:    uploadtypes.StatusCompleted,
		FinalETag: etag,
		Verified:  etag != "",
	}, nil
}

// Abort cancels the session and discards uploaded parts.
// It never fails with an error: a failed cleanup is logged and reported in
// the result, with Err matching ErrCleanup. It makes a single store call.
func (o *Orchestrator) Abort(ctx context.Context, req uploadtypes.AbortRequest) uploadtypes.AbortResult {
	ctx, finish := o.begin(ctx, "abort", attribute.String("upload.id", req.UploadID))

	err := validation.ValidateSession(req.UploadID, req.Bucket, req.ObjectKey)
	if err == nil {
		err = o.store.AbortSession(ctx, store.AbortSessionInput{
			Bucket:   req.Bucket,
			Key:      req.ObjectKey,
			UploadID: req.UploadID,
		})
	}
	if err != nil {
		cleanupErr := errors.NewKindError("abort", errors.KindCleanup, err).
			WithBucket(req.Bucket).
			WithKey(req.ObjectKey).
			WithUploadID(req.UploadID)
		finish(cleanupErr)
		o.logger.WarnContext(ctx, "failed to abort upload",
			"upload_id", req.UploadID, "bucket", req.Bucket, "key", req.ObjectKey, "error", err)
		return uploadtypes.AbortResult{Success: false, Err: cleanupErr}
	}

	finish(nil)
	o.logger.InfoContext(ctx, "upload aborted",
		"upload_id", req.UploadID, "bucket", req.Bucket, "key", req.ObjectKey)
	return uploadtypes.AbortResult{Success: true}
}

// CheckBucket verifies that the default bucket exists.
// It returns ErrNotImplemented when the store cannot manage buckets.
func (o *Orchestrator) CheckBucket(ctx context.Context) (err error) {
	ctx, finish := o.begin(ctx, "checkBucket", attribute.String("upload.bucket", o.cfg.DefaultBucket))
	defer func() { finish(err) }()

	bm, ok := o.store.(store.BucketManager)
	if !ok {
		return errors.NewError("checkBucket", errors.ErrNotImplemented).
			WithBucket(o.cfg.DefaultBucket).
			WithMessage("store cannot manage buckets")
	}
	exists, err := bm.BucketExists(ctx, o.cfg.DefaultBucket)
	if err != nil {
		return err
	}
	if !exists {
		return errors.NewKindError("checkBucket", errors.KindProtocol, fmt.Errorf("bucket does not exist")).
			WithBucket(o.cfg.DefaultBucket).
			WithCode("NoSuchBucket")
	}
	return nil
}

// begin starts a span for op and returns a function that ends it and records
// the outcome metric.
func (o *Orchestrator) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "uploads."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = strings.ToLower(errors.KindOf(err).String())
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		o.metrics.ObserveOperation(op, outcome, time.Since(start))
		span.End()
	}
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, string, time.Duration) {}
func (nopRecorder) AddPresigned(int)                              {}
func (nopRecorder) ObserveChunkSize(int64)                        {}
