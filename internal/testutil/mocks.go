// Package testutil provides test utilities and mocks for the uploads module.
// This package is internal and should only be used for testing within the module.
package testutil

import (
	"context"
	"fmt"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/store"
)

// MockS3Client is a mock implementation of the S3API interface for testing.
// It allows customization of each S3 operation through function fields.
type MockS3Client struct {
	CreateMultipartUploadFunc   func(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	CompleteMultipartUploadFunc func(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUploadFunc    func(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
	HeadBucketFunc              func(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucketFunc            func(context.Context, *s3.CreateBucketInput, ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// CreateMultipartUpload mocks the S3 CreateMultipartUpload operation.
func (m *MockS3Client) CreateMultipartUpload(
	ctx context.Context,
	params *s3.CreateMultipartUploadInput,
	optFns ...func(*s3.Options),
) (*s3.CreateMultipartUploadOutput, error) {
	if m.CreateMultipartUploadFunc != nil {
		return m.CreateMultipartUploadFunc(ctx, params, optFns...)
	}
	return &s3.CreateMultipartUploadOutput{}, nil
}

// CompleteMultipartUpload mocks the S3 CompleteMultipartUpload operation.
func (m *MockS3Client) CompleteMultipartUpload(
	ctx context.Context,
	params *s3.CompleteMultipartUploadInput,
	optFns ...func(*s3.Options),
) (*s3.CompleteMultipartUploadOutput, error) {
	if m.CompleteMultipartUploadFunc != nil {
		return m.CompleteMultipartUploadFunc(ctx, params, optFns...)
	}
	return &s3.CompleteMultipartUploadOutput{}, nil
}

// AbortMultipartUpload mocks the S3 AbortMultipartUpload operation.
func (m *MockS3Client) AbortMultipartUpload(
	ctx context.Context,
	params *s3.AbortMultipartUploadInput,
	optFns ...func(*s3.Options),
) (*s3.AbortMultipartUploadOutput, error) {
	if m.AbortMultipartUploadFunc != nil {
		return m.AbortMultipartUploadFunc(ctx, params, optFns...)
	}
	return &s3.AbortMultipartUploadOutput{}, nil
}

// HeadBucket mocks the S3 HeadBucket operation.
func (m *MockS3Client) HeadBucket(
	ctx context.Context,
	params *s3.HeadBucketInput,
	optFns ...func(*s3.Options),
) (*s3.HeadBucketOutput, error) {
	if m.HeadBucketFunc != nil {
		return m.HeadBucketFunc(ctx, params, optFns...)
	}
	return &s3.HeadBucketOutput{}, nil
}

// CreateBucket mocks the S3 CreateBucket operation.
func (m *MockS3Client) CreateBucket(
	ctx context.Context,
	params *s3.CreateBucketInput,
	optFns ...func(*s3.Options),
) (*s3.CreateBucketOutput, error) {
	if m.CreateBucketFunc != nil {
		return m.CreateBucketFunc(ctx, params, optFns...)
	}
	return &s3.CreateBucketOutput{}, nil
}

// MockPresigner is a mock implementation of the PresignAPI interface.
// Without a PresignUploadPartFunc it returns a deterministic fake URL.
type MockPresigner struct {
	PresignUploadPartFunc func(context.Context, *s3.UploadPartInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// PresignUploadPart mocks the S3 PresignUploadPart operation.
func (m *MockPresigner) PresignUploadPart(
	ctx context.Context,
	params *s3.UploadPartInput,
	optFns ...func(*s3.PresignOptions),
) (*v4.PresignedHTTPRequest, error) {
	if m.PresignUploadPartFunc != nil {
		return m.PresignUploadPartFunc(ctx, params, optFns...)
	}
	return &v4.PresignedHTTPRequest{
		Method: "PUT",
		URL: fmt.Sprintf("https://mock.example/%s/%s?partNumber=%d&uploadId=%s",
			*params.Bucket, *params.Key, *params.PartNumber, *params.UploadId),
	}, nil
}

// MockSessionStore is a function-field implementation of store.SessionStore.
// Unset functions succeed with placeholder values.
type MockSessionStore struct {
	CreateSessionFunc   func(context.Context, store.CreateSessionInput) (string, error)
	PresignPartFunc     func(context.Context, store.PresignPartInput) (string, error)
	CompleteSessionFunc func(context.Context, store.CompleteSessionInput) (string, error)
	AbortSessionFunc    func(context.Context, store.AbortSessionInput) error
}

// CreateSession mocks store.SessionStore.CreateSession.
func (m *MockSessionStore) CreateSession(ctx context.Context, in store.CreateSessionInput) (string, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, in)
	}
	return "mock-upload-id", nil
}

// PresignPart mocks store.SessionStore.PresignPart.
func (m *MockSessionStore) PresignPart(ctx context.Context, in store.PresignPartInput) (string, error) {
	if m.PresignPartFunc != nil {
		return m.PresignPartFunc(ctx, in)
	}
	return fmt.Sprintf("https://mock.example/%s/%s?partNumber=%d&uploadId=%s",
		in.Bucket, in.Key, in.PartNumber, in.UploadID), nil
}

// CompleteSession mocks store.SessionStore.CompleteSession.
func (m *MockSessionStore) CompleteSession(ctx context.Context, in store.CompleteSessionInput) (string, error) {
	if m.CompleteSessionFunc != nil {
		return m.CompleteSessionFunc(ctx, in)
	}
	return `"mock-final-etag"`, nil
}

// AbortSession mocks store.SessionStore.AbortSession.
func (m *MockSessionStore) AbortSession(ctx context.Context, in store.AbortSessionInput) error {
	if m.AbortSessionFunc != nil {
		return m.AbortSessionFunc(ctx, in)
	}
	return nil
}

// MockBucketStore is a MockSessionStore that also implements store.BucketManager.
type MockBucketStore struct {
	MockSessionStore
	BucketExistsFunc func(context.Context, string) (bool, error)
	CreateBucketFunc func(context.Context, string) error
}

// BucketExists mocks store.BucketManager.BucketExists.
func (m *MockBucketStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	if m.BucketExistsFunc != nil {
		return m.BucketExistsFunc(ctx, bucket)
	}
	return true, nil
}

// CreateBucket mocks store.BucketManager.CreateBucket.
func (m *MockBucketStore) CreateBucket(ctx context.Context, bucket string) error {
	if m.CreateBucketFunc != nil {
		return m.CreateBucketFunc(ctx, bucket)
	}
	return nil
}

var (
	_ s3api.S3API         = (*MockS3Client)(nil)
	_ s3api.PresignAPI    = (*MockPresigner)(nil)
	_ store.SessionStore  = (*MockSessionStore)(nil)
	_ store.BucketManager = (*MockBucketStore)(nil)
)
