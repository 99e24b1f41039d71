// Package s3store implements the session store on the AWS SDK v2 S3 client.
// Part URLs are produced by the SDK presign client and never contact S3.
package s3store

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/store"
)

const defaultRegion = "us-east-1"

// Store is a session store backed by the AWS SDK.
type Store struct {
	client  s3api.S3API
	presign s3api.PresignAPI
	region  string
}

// New creates a Store from an SDK client.
func New(client *s3.Client) *Store {
	return &Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		region:  client.Options().Region,
	}
}

// NewWithClients creates a Store from explicit API implementations.
// This is primarily used for testing with mock clients.
func NewWithClients(client s3api.S3API, presign s3api.PresignAPI, region string) *Store {
	return &Store{client: client, presign: presign, region: region}
}

// CreateSession starts a multipart upload.
func (s *Store) CreateSession(ctx context.Context, in store.CreateSessionInput) (string, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(in.Bucket),
		Key:    aws.String(in.Key),
	}
	if in.ContentType != "" {
		input.ContentType = aws.String(in.ContentType)
	}
	if len(in.Metadata) > 0 {
		input.Metadata = in.Metadata
	}

	output, err := s.client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", apiError("createSession", in.Bucket, in.Key, err)
	}
	uploadID := aws.ToString(output.UploadId)
	if uploadID == "" {
		return "", errors.NewProtocolError("createSession", in.Bucket, in.Key,
			fmt.Errorf("response has no UploadId"))
	}
	return uploadID, nil
}

// PresignPart returns a presigned UploadPart URL.
func (s *Store) PresignPart(ctx context.Context, in store.PresignPartInput) (string, error) {
	if err := store.CheckPresignTTL(in.TTL); err != nil {
		return "", err
	}

	req, err := s.presign.PresignUploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(in.Bucket),
		Key:        aws.String(in.Key),
		UploadId:   aws.String(in.UploadID),
		PartNumber: aws.Int32(int32(in.PartNumber)),
	}, s3.WithPresignExpires(in.TTL))
	if err != nil {
		return "", errors.NewProtocolError("presignPart", in.Bucket, in.Key, err).WithUploadID(in.UploadID)
	}
	return req.URL, nil
}

// CompleteSession assembles the uploaded parts in ascending order.
func (s *Store) CompleteSession(ctx context.Context, in store.CompleteSessionInput) (string, error) {
	sorted := store.SortParts(in.Parts)
	parts := make([]awstypes.CompletedPart, 0, len(sorted))
	for _, p := range sorted {
		parts = append(parts, awstypes.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(int32(p.PartNumber)),
		})
	}

	output, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(in.Bucket),
		Key:             aws.String(in.Key),
		UploadId:        aws.String(in.UploadID),
		MultipartUpload: &awstypes.CompletedMultipartUpload{Parts: parts},
	})
	if err != nil {
		return "", apiError("completeSession", in.Bucket, in.Key, err).WithUploadID(in.UploadID)
	}

	etag := strings.Trim(aws.ToString(output.ETag), `"`)
	if etag == "" {
		return "", errors.NewProtocolError("completeSession", in.Bucket, in.Key,
			fmt.Errorf("response has no ETag")).WithUploadID(in.UploadID)
	}
	return etag, nil
}

// AbortSession cancels a multipart upload.
func (s *Store) AbortSession(ctx context.Context, in store.AbortSessionInput) error {
	_, err := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(in.Bucket),
		Key:      aws.String(in.Key),
		UploadId: aws.String(in.UploadID),
	})
	if err != nil {
		return apiError("abortSession", in.Bucket, in.Key, err).WithUploadID(in.UploadID)
	}
	return nil
}

// BucketExists reports whether bucket exists.
func (s *Store) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return true, nil
	}
	var notFound *awstypes.NotFound
	if stderrors.As(err, &notFound) {
		return false, nil
	}
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchBucket") {
		return false, nil
	}
	return false, apiError("bucketExists", bucket, "", err)
}

// CreateBucket creates bucket in the store's region.
func (s *Store) CreateBucket(ctx context.Context, bucket string) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	if s.region != "" && s.region != defaultRegion {
		input.CreateBucketConfiguration = &awstypes.CreateBucketConfiguration{
			LocationConstraint: awstypes.BucketLocationConstraint(s.region),
		}
	}
	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		return apiError("createBucket", bucket, "", err)
	}
	return nil
}

// apiError wraps an SDK error as a ProtocolError carrying the S3 error code.
func apiError(op, bucket, key string, err error) *errors.Error {
	e := errors.NewProtocolError(op, bucket, key, err)
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		e.WithCode(apiErr.ErrorCode())
	}
	return e
}

var (
	_ store.SessionStore  = (*Store)(nil)
	_ store.BucketManager = (*Store)(nil)
)
