// Package miniostore implements the session store on minio-go.
package miniostore

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/store"
)

const defaultRegion = "us-east-1"

// Config holds the connection settings for a MinIO endpoint.
type Config struct {
	// Endpoint is an absolute URL such as "http://localhost:9000".
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string

	// Transport overrides the HTTP transport, mostly for tests.
	Transport http.RoundTripper
}

// Store is a session store backed by minio-go.
type Store struct {
	client *minio.Client
	core   minio.Core
	region string
}

// New creates a Store for cfg. Buckets are addressed path-style.
func New(cfg Config) (*Store, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, errors.NewError("newMinioStore", errors.ErrInvalidConfig).
			WithMessage(fmt.Sprintf("endpoint %q must be an absolute http(s) URL", cfg.Endpoint))
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.NewError("newMinioStore", errors.ErrInvalidConfig).
			WithMessage("access key and secret key are required")
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	client, err := minio.New(u.Host, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       u.Scheme == "https",
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
		Transport:    cfg.Transport,
		MaxRetries:   1,
	})
	if err != nil {
		return nil, errors.NewError("newMinioStore", errors.ErrInvalidConfig).WithMessage(err.Error())
	}
	return NewFromClient(client, region), nil
}

// NewFromClient wraps an existing minio client. region is used for bucket creation.
func NewFromClient(client *minio.Client, region string) *Store {
	if region == "" {
		region = defaultRegion
	}
	return &Store{client: client, core: minio.Core{Client: client}, region: region}
}

// CreateSession starts a multipart upload.
func (s *Store) CreateSession(ctx context.Context, in store.CreateSessionInput) (string, error) {
	uploadID, err := s.core.NewMultipartUpload(ctx, in.Bucket, in.Key, minio.PutObjectOptions{
		ContentType:  in.ContentType,
		UserMetadata: in.Metadata,
	})
	if err != nil {
		return "", responseError("createSession", in.Bucket, in.Key, err)
	}
	if uploadID == "" {
		return "", errors.NewProtocolError("createSession", in.Bucket, in.Key,
			fmt.Errorf("response has no UploadId"))
	}
	return uploadID, nil
}

// PresignPart returns a presigned UploadPart URL. No request is sent.
func (s *Store) PresignPart(ctx context.Context, in store.PresignPartInput) (string, error) {
	if err := store.CheckPresignTTL(in.TTL); err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("partNumber", strconv.Itoa(in.PartNumber))
	params.Set("uploadId", in.UploadID)

	u, err := s.client.Presign(ctx, http.MethodPut, in.Bucket, in.Key, in.TTL, params)
	if err != nil {
		return "", errors.NewProtocolError("presignPart", in.Bucket, in.Key, err).WithUploadID(in.UploadID)
	}
	return u.String(), nil
}

// CompleteSession assembles the uploaded parts in ascending order.
func (s *Store) CompleteSession(ctx context.Context, in store.CompleteSessionInput) (string, error) {
	sorted := store.SortParts(in.Parts)
	parts := make([]minio.CompletePart, 0, len(sorted))
	for _, p := range sorted {
		parts = append(parts, minio.CompletePart{PartNumber: p.PartNumber, ETag: p.ETag})
	}

	info, err := s.core.CompleteMultipartUpload(ctx, in.Bucket, in.Key, in.UploadID, parts, minio.PutObjectOptions{})
	if err != nil {
		return "", responseError("completeSession", in.Bucket, in.Key, err).WithUploadID(in.UploadID)
	}

	etag := strings.Trim(info.ETag, `"`)
	if etag == "" {
		return "", errors.NewProtocolError("completeSession", in.Bucket, in.Key,
			fmt.Errorf("response has no ETag")).WithUploadID(in.UploadID)
	}
	return etag, nil
}

// AbortSession cancels a multipart upload.
func (s *Store) AbortSession(ctx context.Context, in store.AbortSessionInput) error {
	if err := s.core.AbortMultipartUpload(ctx, in.Bucket, in.Key, in.UploadID); err != nil {
		return responseError("abortSession", in.Bucket, in.Key, err).WithUploadID(in.UploadID)
	}
	return nil
}

// BucketExists reports whether bucket exists.
func (s *Store) BucketExists(ctx context.Context, bucket string) (bool, error) {
	ok, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return false, responseError("bucketExists", bucket, "", err)
	}
	return ok, nil
}

// CreateBucket creates bucket in the store's region.
func (s *Store) CreateBucket(ctx context.Context, bucket string) error {
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return responseError("createBucket", bucket, "", err)
	}
	return nil
}

// responseError wraps a minio error as a ProtocolError carrying the S3 error code.
func responseError(op, bucket, key string, err error) *errors.Error {
	e := errors.NewProtocolError(op, bucket, key, err)
	if code := minio.ToErrorResponse(err).Code; code != "" {
		e.WithCode(code)
	}
	return e
}

var (
	_ store.SessionStore  = (*Store)(nil)
	_ store.BucketManager = (*Store)(nil)
)
