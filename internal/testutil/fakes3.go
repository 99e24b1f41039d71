package testutil

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const s3Namespace = "http://s3.amazonaws.com/doc/2006-03-01/"

// FakeUpload is a multipart session held by FakeS3.
type FakeUpload struct {
	Bucket      string
	Key         string
	ContentType string
	Metadata    map[string]string
}

// RecordedRequest is one request received by FakeS3.
type RecordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// FakeS3 is an in-memory, path-style S3 endpoint implementing the multipart
// session subset: initiate, complete, abort, and bucket head/create.
type FakeS3 struct {
	Server *httptest.Server

	// Bare drops the S3 namespace from response documents
	Bare bool

	// CompleteBody, when set, is returned with 200 from a completion request
	CompleteBody string

	mu       sync.Mutex
	buckets  map[string]bool
	uploads  map[string]*FakeUpload
	requests []RecordedRequest
	nextID   int
}

// NewFakeS3 starts a FakeS3 holding the given buckets and closes it with t.Cleanup.
func NewFakeS3(t *testing.T, buckets ...string) *FakeS3 {
	t.Helper()
	f := &FakeS3{
		buckets: make(map[string]bool),
		uploads: make(map[string]*FakeUpload),
	}
	for _, b := range buckets {
		f.buckets[b] = true
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the endpoint.
func (f *FakeS3) URL() string {
	return f.Server.URL
}

// Upload returns the session with the given id, if it is still open.
func (f *FakeS3) Upload(uploadID string) (*FakeUpload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.uploads[uploadID]
	return u, ok
}

// HasBucket reports whether the bucket exists.
func (f *FakeS3) HasBucket(bucket string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buckets[bucket]
}

// Requests returns the requests received so far.
func (f *FakeS3) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// LastRequest returns the most recent request.
func (f *FakeS3) LastRequest() RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return RecordedRequest{}
	}
	return f.requests[len(f.requests)-1]
}

type fakeCompleteRequest struct {
	Parts []struct {
		PartNumber int    `xml:"PartNumber"`
		ETag       string `xml:"ETag"`
	} `xml:"Part"`
}

func (f *FakeS3) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, RecordedRequest{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header.Clone(),
		Body:     body,
	})

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	query := r.URL.Query()

	switch {
	case key == "" && r.Method == http.MethodHead:
		if !f.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)

	case key == "" && r.Method == http.MethodGet && query.Has("location"):
		f.writeXML(w, http.StatusOK, "<LocationConstraint>us-east-1</LocationConstraint>")

	case key == "" && r.Method == http.MethodPut:
		if f.buckets[bucket] {
			f.writeError(w, http.StatusConflict, "BucketAlreadyOwnedByYou", "bucket already exists")
			return
		}
		f.buckets[bucket] = true
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodPost && query.Has("uploads"):
		if !f.buckets[bucket] {
			f.writeError(w, http.StatusNotFound, "NoSuchBucket", "The specified bucket does not exist")
			return
		}
		f.nextID++
		id := fmt.Sprintf("upload-%d", f.nextID)
		meta := make(map[string]string)
		for name, values := range r.Header {
			if lower := strings.ToLower(name); strings.HasPrefix(lower, "x-amz-meta-") {
				meta[strings.TrimPrefix(lower, "x-amz-meta-")] = values[0]
			}
		}
		f.uploads[id] = &FakeUpload{
			Bucket:      bucket,
			Key:         key,
			ContentType: r.Header.Get("Content-Type"),
			Metadata:    meta,
		}
		f.writeXML(w, http.StatusOK, fmt.Sprintf(
			"<InitiateMultipartUploadResult%s><Bucket>%s</Bucket><Key>%s</Key><UploadId>%s</UploadId></InitiateMultipartUploadResult>",
			f.xmlns(), bucket, key, id))

	case r.Method == http.MethodPost && query.Has("uploadId"):
		id := query.Get("uploadId")
		if _, ok := f.uploads[id]; !ok {
			f.writeError(w, http.StatusNotFound, "NoSuchUpload", "The specified multipart upload does not exist")
			return
		}
		var req fakeCompleteRequest
		if err := xml.Unmarshal(body, &req); err != nil || len(req.Parts) == 0 {
			f.writeError(w, http.StatusBadRequest, "MalformedXML", "The XML you provided was not well-formed")
			return
		}
		for i := 1; i < len(req.Parts); i++ {
			if req.Parts[i].PartNumber <= req.Parts[i-1].PartNumber {
				f.writeError(w, http.StatusBadRequest, "InvalidPartOrder", "The list of parts was not in ascending order")
				return
			}
		}
		if f.CompleteBody != "" {
			f.writeXML(w, http.StatusOK, f.CompleteBody)
			return
		}
		delete(f.uploads, id)
		sum := md5.Sum(body)
		f.writeXML(w, http.StatusOK, fmt.Sprintf(
			"<CompleteMultipartUploadResult%s><Bucket>%s</Bucket><Key>%s</Key><ETag>&quot;%s-%d&quot;</ETag></CompleteMultipartUploadResult>",
			f.xmlns(), bucket, key, hex.EncodeToString(sum[:]), len(req.Parts)))

	case r.Method == http.MethodDelete && query.Has("uploadId"):
		id := query.Get("uploadId")
		if _, ok := f.uploads[id]; !ok {
			f.writeError(w, http.StatusNotFound, "NoSuchUpload", "The specified multipart upload does not exist")
			return
		}
		delete(f.uploads, id)
		w.WriteHeader(http.StatusNoContent)

	default:
		f.writeError(w, http.StatusNotImplemented, "NotImplemented", "fake does not implement this request")
	}
}

func (f *FakeS3) xmlns() string {
	if f.Bare {
		return ""
	}
	return ` xmlns="` + s3Namespace + `"`
}

func (f *FakeS3) writeXML(w http.ResponseWriter, status int, doc string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, xml.Header+doc)
}

func (f *FakeS3) writeError(w http.ResponseWriter, status int, code, message string) {
	f.writeXML(w, status, fmt.Sprintf(
		"<Error><Code>%s</Code><Message>%s</Message><RequestId>fake</RequestId></Error>", code, message))
}
