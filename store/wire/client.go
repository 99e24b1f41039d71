// Package wire implements the session store by speaking the S3 multipart
// protocol directly: SigV4-signed HTTP requests and XML documents, with
// part URLs presigned locally from credentials.
//
// It works against any S3-compatible endpoint (AWS S3, MinIO, LocalStack)
// and uses path-style addressing unless virtual-hosted style is requested.
package wire

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/smithy-go/encoding/httpbinding"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/store"
)

const (
	signingService = "s3"
	defaultRegion  = "us-east-1"

	headerContentSHA256 = "X-Amz-Content-Sha256"
	metadataPrefix      = "X-Amz-Meta-"

	// maxResponseBytes bounds how much of a response document is read.
	maxResponseBytes = 4 << 20
)

// Client is a session store speaking the S3 wire protocol.
// It is safe for concurrent use.
type Client struct {
	endpoint   *url.URL
	region     string
	creds      aws.CredentialsProvider
	signer     *v4.Signer
	httpClient *http.Client
	pathStyle  bool
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithRegion sets the signing region. Default is us-east-1.
func WithRegion(region string) Option {
	return func(c *Client) {
		if region != "" {
			c.region = region
		}
	}
}

// WithCredentials sets the credentials provider used for signing.
func WithCredentials(provider aws.CredentialsProvider) Option {
	return func(c *Client) {
		c.creds = provider
	}
}

// WithStaticCredentials signs with a fixed access key pair.
func WithStaticCredentials(accessKey, secretKey string) Option {
	return func(c *Client) {
		c.creds = credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")
	}
}

// WithHTTPClient sets the HTTP client used for store requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithVirtualHostedStyle addresses buckets as <bucket>.<endpoint host>.
func WithVirtualHostedStyle() Option {
	return func(c *Client) {
		c.pathStyle = false
	}
}

// WithClock sets the time source used for signing.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Client for the endpoint, e.g. "http://localhost:9000".
func New(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, errors.NewError("newWireClient", errors.ErrInvalidConfig).
			WithMessage(fmt.Sprintf("endpoint %q must be an absolute http(s) URL", endpoint))
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	c := &Client{
		endpoint:   u,
		region:     defaultRegion,
		httpClient: http.DefaultClient,
		pathStyle:  true,
		now:        time.Now,
		signer: v4.NewSigner(func(o *v4.SignerOptions) {
			o.DisableURIPathEscaping = true
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.creds == nil {
		return nil, errors.NewError("newWireClient", errors.ErrInvalidConfig).
			WithMessage("credentials are required for signing")
	}
	return c, nil
}

// objectURL returns the URL of bucket/key; an empty key addresses the bucket.
func (c *Client) objectURL(bucket, key string, query url.Values) *url.URL {
	u := *c.endpoint
	u.RawQuery = encodeQuery(query)

	var rawPath, path string
	if key != "" {
		rawPath = "/" + httpbinding.EscapePath(key, false)
		path = "/" + key
	}
	if c.pathStyle {
		u.Path = c.endpoint.Path + "/" + bucket + path
		u.RawPath = c.endpoint.Path + "/" + httpbinding.EscapePath(bucket, false) + rawPath
	} else {
		u.Host = bucket + "." + c.endpoint.Host
		u.Path = c.endpoint.Path + path
		u.RawPath = c.endpoint.Path + rawPath
		if u.Path == "" {
			u.Path, u.RawPath = "/", "/"
		}
	}
	return &u
}

// encodeQuery renders query values with %20 for spaces, as SigV4 requires.
func encodeQuery(query url.Values) string {
	return strings.ReplaceAll(query.Encode(), "+", "%20")
}

// send signs and executes a request and returns the response body.
// Any non-2xx status is decoded into a ProtocolError.
func (c *Client) send(
	ctx context.Context,
	op, method string,
	u *url.URL,
	header http.Header,
	body []byte,
	bucket, key string,
) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return 0, nil, errors.NewError(op, err).WithBucket(bucket).WithKey(key)
	}
	req.URL = u
	for name, values := range header {
		req.Header[name] = values
	}
	req.ContentLength = int64(len(body))
	if len(body) == 0 {
		req.Body = http.NoBody
	}

	sum := sha256.Sum256(body)
	payloadHash := hex.EncodeToString(sum[:])
	req.Header.Set(headerContentSHA256, payloadHash)

	creds, err := c.creds.Retrieve(ctx)
	if err != nil {
		return 0, nil, errors.NewError(op, errors.ErrInvalidConfig).
			WithBucket(bucket).WithKey(key).
			WithMessage(fmt.Sprintf("retrieve credentials: %v", err))
	}
	if err := c.signer.SignHTTP(ctx, creds, req, payloadHash, signingService, c.region, c.now().UTC()); err != nil {
		return 0, nil, errors.NewProtocolError(op, bucket, key, fmt.Errorf("sign request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, errors.NewProtocolError(op, bucket, key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, errors.NewProtocolError(op, bucket, key, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, data, responseError(op, bucket, key, resp.StatusCode, data)
	}
	return resp.StatusCode, data, nil
}

// CreateSession starts a multipart upload with POST ?uploads.
func (c *Client) CreateSession(ctx context.Context, in store.CreateSessionInput) (string, error) {
	header := make(http.Header)
	if in.ContentType != "" {
		header.Set("Content-Type", in.ContentType)
	}
	for k, v := range in.Metadata {
		header.Set(metadataPrefix+k, v)
	}

	u := c.objectURL(in.Bucket, in.Key, url.Values{"uploads": {""}})
	_, body, err := c.send(ctx, "createSession", http.MethodPost, u, header, nil, in.Bucket, in.Key)
	if err != nil {
		return "", err
	}

	uploadID, err := parseInitiate(body)
	if err != nil {
		return "", protocolError("createSession", in.Bucket, in.Key, err)
	}
	return uploadID, nil
}

// CompleteSession finalizes a multipart upload with POST ?uploadId.
func (c *Client) CompleteSession(ctx context.Context, in store.CompleteSessionInput) (string, error) {
	payload, err := EncodeCompletion(in.Parts)
	if err != nil {
		return "", errors.NewError("completeSession", err).WithBucket(in.Bucket).WithKey(in.Key).WithUploadID(in.UploadID)
	}

	header := http.Header{"Content-Type": {"application/xml"}}
	u := c.objectURL(in.Bucket, in.Key, url.Values{"uploadId": {in.UploadID}})
	_, body, err := c.send(ctx, "completeSession", http.MethodPost, u, header, payload, in.Bucket, in.Key)
	if err != nil {
		return "", withUploadID(err, in.UploadID)
	}

	etag, err := parseComplete(body)
	if err != nil {
		return "", protocolError("completeSession", in.Bucket, in.Key, err).WithUploadID(in.UploadID)
	}
	return etag, nil
}

// AbortSession cancels a multipart upload with DELETE ?uploadId.
func (c *Client) AbortSession(ctx context.Context, in store.AbortSessionInput) error {
	u := c.objectURL(in.Bucket, in.Key, url.Values{"uploadId": {in.UploadID}})
	_, _, err := c.send(ctx, "abortSession", http.MethodDelete, u, nil, nil, in.Bucket, in.Key)
	return withUploadID(err, in.UploadID)
}

// BucketExists reports whether bucket exists with HEAD /{bucket}.
func (c *Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	status, _, err := c.send(ctx, "bucketExists", http.MethodHead, c.objectURL(bucket, "", nil), nil, nil, bucket, "")
	if status == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateBucket creates bucket with PUT /{bucket}.
func (c *Client) CreateBucket(ctx context.Context, bucket string) error {
	var body []byte
	header := make(http.Header)
	if c.region != defaultRegion {
		body = encodeBucketConfiguration(c.region)
		header.Set("Content-Type", "application/xml")
	}
	_, _, err := c.send(ctx, "createBucket", http.MethodPut, c.objectURL(bucket, "", nil), header, body, bucket, "")
	return err
}

func withUploadID(err error, uploadID string) error {
	if e, ok := err.(*errors.Error); ok {
		return e.WithUploadID(uploadID)
	}
	return err
}

var (
	_ store.SessionStore  = (*Client)(nil)
	_ store.BucketManager = (*Client)(nil)
)
