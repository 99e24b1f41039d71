package wire

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/store"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/uploadtypes"
)

var fixedNow = time.Date(2026, 1, 14, 9, 30, 0, 0, time.UTC)

func newTestClient(t *testing.T, fake *testutil.FakeS3, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithStaticCredentials("AKIDEXAMPLE", "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY"),
		WithClock(func() time.Time { return fixedNow }),
	}, opts...)
	c, err := New(fake.URL(), opts...)
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		opts     []Option
		wantErr  string
	}{
		{name: "valid", endpoint: "http://localhost:9000", opts: []Option{WithStaticCredentials("a", "b")}},
		{name: "trailing slash", endpoint: "https://s3.example.com/", opts: []Option{WithStaticCredentials("a", "b")}},
		{name: "no scheme", endpoint: "localhost:9000", opts: []Option{WithStaticCredentials("a", "b")}, wantErr: "absolute http(s) URL"},
		{name: "bad scheme", endpoint: "ftp://host", opts: []Option{WithStaticCredentials("a", "b")}, wantErr: "absolute http(s) URL"},
		{name: "no credentials", endpoint: "http://localhost:9000", wantErr: "credentials are required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.endpoint, tt.opts...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, errors.ErrInvalidConfig)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestClient_ObjectURL(t *testing.T) {
	c, err := New("https://s3.example.com", WithStaticCredentials("a", "b"))
	require.NoError(t, err)

	u := c.objectURL("uploads", "dir/a b+c.bin", url.Values{"uploadId": {"u 1"}})
	assert.Equal(t, "s3.example.com", u.Host)
	assert.Equal(t, "/uploads/dir/a%20b%2Bc.bin", u.EscapedPath())
	assert.Equal(t, "uploadId=u%201", u.RawQuery)

	vc, err := New("https://s3.example.com", WithStaticCredentials("a", "b"), WithVirtualHostedStyle())
	require.NoError(t, err)

	u = vc.objectURL("uploads", "a.bin", nil)
	assert.Equal(t, "uploads.s3.example.com", u.Host)
	assert.Equal(t, "/a.bin", u.EscapedPath())

	u = vc.objectURL("uploads", "", nil)
	assert.Equal(t, "/", u.EscapedPath())
}

func TestClient_CreateSession(t *testing.T) {
	for _, bare := range []bool{false, true} {
		name := "namespaced"
		if bare {
			name = "bare"
		}
		t.Run(name, func(t *testing.T) {
			fake := testutil.NewFakeS3(t, "uploads")
			fake.Bare = bare
			c := newTestClient(t, fake)

			id, err := c.CreateSession(context.Background(), store.CreateSessionInput{
				Bucket:      "uploads",
				Key:         "20260114_093000_movie.mkv",
				ContentType: "video/x-matroska",
				Metadata:    map[string]string{"fingerprint": "abc123"},
			})
			require.NoError(t, err)
			assert.Equal(t, "upload-1", id)

			up, ok := fake.Upload(id)
			require.True(t, ok)
			assert.Equal(t, "20260114_093000_movie.mkv", up.Key)
			assert.Equal(t, "video/x-matroska", up.ContentType)
			assert.Equal(t, "abc123", up.Metadata["fingerprint"])

			req := fake.LastRequest()
			assert.Equal(t, http.MethodPost, req.Method)
			assert.True(t, strings.HasPrefix(req.RawQuery, "uploads"))
			assert.True(t, strings.HasPrefix(req.Header.Get("Authorization"), "AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/20260114/us-east-1/s3/aws4_request"))
			assert.NotEmpty(t, req.Header.Get("X-Amz-Content-Sha256"))
			assert.Equal(t, "20260114T093000Z", req.Header.Get("X-Amz-Date"))
		})
	}
}

func TestClient_CreateSession_Rejected(t *testing.T) {
	fake := testutil.NewFakeS3(t)
	c := newTestClient(t, fake)

	_, err := c.CreateSession(context.Background(), store.CreateSessionInput{Bucket: "missing", Key: "a.bin"})
	require.Error(t, err)
	assert.True(t, errors.IsProtocol(err))
	assert.Equal(t, "NoSuchBucket", errors.CodeOf(err))
	assert.Contains(t, err.Error(), "The specified bucket does not exist")
}

func TestClient_CompleteSession(t *testing.T) {
	fake := testutil.NewFakeS3(t, "uploads")
	c := newTestClient(t, fake)
	ctx := context.Background()

	id, err := c.CreateSession(ctx, store.CreateSessionInput{Bucket: "uploads", Key: "a.bin"})
	require.NoError(t, err)

	parts := []uploadtypes.Part{{PartNumber: 3, ETag: `"c"`}, {PartNumber: 1, ETag: `"a"`}, {PartNumber: 2, ETag: `"b"`}}
	etag, err := c.CompleteSession(ctx, store.CompleteSessionInput{Bucket: "uploads", Key: "a.bin", UploadID: id, Parts: parts})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(etag, "-3"), "got %q", etag)
	assert.False(t, strings.Contains(etag, `"`))

	want, err := EncodeCompletion(parts)
	require.NoError(t, err)
	req := fake.LastRequest()
	assert.Equal(t, want, req.Body)
	assert.Equal(t, "uploadId="+id, req.RawQuery)
	assert.Equal(t, "application/xml", req.Header.Get("Content-Type"))

	_, open := fake.Upload(id)
	assert.False(t, open)

	// A second completion of the same session is rejected by the store.
	_, err = c.CompleteSession(ctx, store.CompleteSessionInput{Bucket: "uploads", Key: "a.bin", UploadID: id, Parts: parts})
	require.Error(t, err)
	assert.Equal(t, "NoSuchUpload", errors.CodeOf(err))
	assert.Contains(t, err.Error(), "(upload "+id+")")
}

func TestClient_CompleteSession_ErrorWithSuccessStatus(t *testing.T) {
	fake := testutil.NewFakeS3(t, "uploads")
	fake.CompleteBody = `<Error><Code>InternalError</Code><Message>We encountered an internal error. Please try again.</Message></Error>`
	c := newTestClient(t, fake)
	ctx := context.Background()

	id, err := c.CreateSession(ctx, store.CreateSessionInput{Bucket: "uploads", Key: "a.bin"})
	require.NoError(t, err)

	_, err = c.CompleteSession(ctx, store.CompleteSessionInput{
		Bucket: "uploads", Key: "a.bin", UploadID: id,
		Parts: []uploadtypes.Part{{PartNumber: 1, ETag: "a"}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsProtocol(err))
	assert.Equal(t, "InternalError", errors.CodeOf(err))
}

func TestClient_AbortSession(t *testing.T) {
	fake := testutil.NewFakeS3(t, "uploads")
	c := newTestClient(t, fake)
	ctx := context.Background()

	id, err := c.CreateSession(ctx, store.CreateSessionInput{Bucket: "uploads", Key: "a.bin"})
	require.NoError(t, err)

	require.NoError(t, c.AbortSession(ctx, store.AbortSessionInput{Bucket: "uploads", Key: "a.bin", UploadID: id}))
	assert.Equal(t, http.MethodDelete, fake.LastRequest().Method)
	_, open := fake.Upload(id)
	assert.False(t, open)

	err = c.AbortSession(ctx, store.AbortSessionInput{Bucket: "uploads", Key: "a.bin", UploadID: id})
	require.Error(t, err)
	assert.True(t, errors.IsProtocol(err))
	assert.Equal(t, "NoSuchUpload", errors.CodeOf(err))
}

func TestClient_Buckets(t *testing.T) {
	fake := testutil.NewFakeS3(t, "existing")
	c := newTestClient(t, fake)
	ctx := context.Background()

	ok, err := c.BucketExists(ctx, "existing")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.BucketExists(ctx, "fresh")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.CreateBucket(ctx, "fresh"))
	assert.True(t, fake.HasBucket("fresh"))
	assert.Empty(t, fake.LastRequest().Body)

	err = c.CreateBucket(ctx, "fresh")
	require.Error(t, err)
	assert.Equal(t, "BucketAlreadyOwnedByYou", errors.CodeOf(err))
}

func TestClient_CreateBucket_Region(t *testing.T) {
	fake := testutil.NewFakeS3(t)
	c := newTestClient(t, fake, WithRegion("eu-west-1"))

	require.NoError(t, c.CreateBucket(context.Background(), "regional"))
	assert.Contains(t, string(fake.LastRequest().Body), "<LocationConstraint>eu-west-1</LocationConstraint>")
}

func TestClient_Unreachable(t *testing.T) {
	c, err := New("http://127.0.0.1:1", WithStaticCredentials("a", "b"))
	require.NoError(t, err)

	_, err = c.CreateSession(context.Background(), store.CreateSessionInput{Bucket: "uploads", Key: "a.bin"})
	require.Error(t, err)
	assert.True(t, errors.IsProtocol(err))
}

func TestClient_PresignPart(t *testing.T) {
	fake := testutil.NewFakeS3(t, "uploads")
	c := newTestClient(t, fake, WithRegion("eu-central-1"))
	ctx := context.Background()

	in := store.PresignPartInput{
		Bucket:     "uploads",
		Key:        "dir/movie file.mkv",
		UploadID:   "upload-42",
		PartNumber: 7,
		TTL:        24 * time.Hour,
	}
	raw, err := c.PresignPart(ctx, in)
	require.NoError(t, err)
	assert.Empty(t, fake.Requests(), "presigning must not contact the store")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/dir/movie%20file.mkv", u.EscapedPath())

	q := u.Query()
	assert.Equal(t, "7", q.Get("partNumber"))
	assert.Equal(t, "upload-42", q.Get("uploadId"))
	assert.Equal(t, "86400", q.Get("X-Amz-Expires"))
	assert.Equal(t, "AWS4-HMAC-SHA256", q.Get("X-Amz-Algorithm"))
	assert.Equal(t, "AKIDEXAMPLE/20260114/eu-central-1/s3/aws4_request", q.Get("X-Amz-Credential"))
	assert.Equal(t, "20260114T093000Z", q.Get("X-Amz-Date"))
	assert.Len(t, q.Get("X-Amz-Signature"), 64)

	again, err := c.PresignPart(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, raw, again)

	in.PartNumber = 8
	other, err := c.PresignPart(ctx, in)
	require.NoError(t, err)
	assert.NotEqual(t, raw, other)
}

func TestClient_PresignPart_TTL(t *testing.T) {
	fake := testutil.NewFakeS3(t)
	c := newTestClient(t, fake)

	for _, ttl := range []time.Duration{0, -time.Second, 500 * time.Millisecond, 7*24*time.Hour + time.Second} {
		_, err := c.PresignPart(context.Background(), store.PresignPartInput{
			Bucket: "uploads", Key: "a", UploadID: "u", PartNumber: 1, TTL: ttl,
		})
		require.Error(t, err, "ttl %s", ttl)
		assert.True(t, errors.IsInvalidInput(err))
	}

	_, err := c.PresignPart(context.Background(), store.PresignPartInput{
		Bucket: "uploads", Key: "a", UploadID: "u", PartNumber: 1, TTL: uploadtypes.MaxPresignExpiry,
	})
	assert.NoError(t, err)
}
