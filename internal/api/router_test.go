package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/internal/metrics"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/store"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/uploadtypes"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedNow = time.Date(2026, 1, 14, 9, 30, 0, 0, time.UTC)

func newTestRouter(t *testing.T, s store.SessionStore) *gin.Engine {
	t.Helper()
	orch, err := uploads.New(s, uploads.WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return NewRouter(orch, nil, metrics.New())
}

func do(t *testing.T, r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestInitiate(t *testing.T) {
	var got store.CreateSessionInput
	r := newTestRouter(t, &testutil.MockSessionStore{
		CreateSessionFunc: func(ctx context.Context, in store.CreateSessionInput) (string, error) {
			got = in
			return "upload-1", nil
		},
	})

	w := do(t, r, http.MethodPost, "/api/upload/initiate",
		`{"file_name":"report.pdf","file_size":1048576,"file_fingerprint":"fp","content_type":""}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"upload_id": "upload-1",
		"bucket": "uploads",
		"object_key": "20260114_093000_report.pdf",
		"chunk_size": 134217728,
		"total_parts": 1
	}`, w.Body.String())
	assert.Equal(t, "fp", got.Metadata["fingerprint"])
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestInitiate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		createErr  error
		wantStatus int
		wantCode   string
	}{
		{name: "malformed body", body: `{"file_size":`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_INPUT"},
		{name: "zero size", body: `{"file_name":"a.bin","file_size":0,"file_fingerprint":"fp"}`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_INPUT"},
		{name: "negative size", body: `{"file_name":"a.bin","file_size":-1,"file_fingerprint":"fp"}`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_INPUT"},
		{name: "missing file name", body: `{"file_size":10,"file_fingerprint":"fp"}`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_INPUT"},
		{name: "missing file size", body: `{"file_name":"a.bin","file_fingerprint":"fp"}`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_INPUT"},
		{name: "missing fingerprint", body: `{"file_name":"a.bin","file_size":10}`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_INPUT"},
		{
			name:       "too large to plan",
			body:       `{"file_name":"a.bin","file_size":10000000000000,"file_fingerprint":"fp"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "PLANNING_FAILED",
		},
		{
			name:       "store rejects",
			body:       `{"file_name":"a.bin","file_size":10,"file_fingerprint":"fp"}`,
			createErr:  errors.NewProtocolError("createSession", "uploads", "a.bin", fmt.Errorf("denied")).WithCode("AccessDenied"),
			wantStatus: http.StatusBadGateway,
			wantCode:   "PROTOCOL_ERROR",
		},
		{
			name:       "unclassified failure",
			body:       `{"file_name":"a.bin","file_size":10,"file_fingerprint":"fp"}`,
			createErr:  fmt.Errorf("connection reset"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, &testutil.MockSessionStore{
				CreateSessionFunc: func(context.Context, store.CreateSessionInput) (string, error) {
					if tt.createErr != nil {
						return "", tt.createErr
					}
					return "upload-1", nil
				},
			})

			w := do(t, r, http.MethodPost, "/api/upload/initiate", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			detail := decodeError(t, w)
			assert.Equal(t, tt.wantCode, detail.Code)
			assert.NotEmpty(t, detail.Message)
			assert.Equal(t, errors.CodeOf(tt.createErr), detail.StoreCode)
		})
	}
}

func TestPresign(t *testing.T) {
	r := newTestRouter(t, &testutil.MockSessionStore{})

	w := do(t, r, http.MethodGet, "/api/upload/presign?upload_id=u-1&bucket=uploads&object_key=k&part_numbers=2,1,2", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp PresignResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.URLs, 2)
	assert.Equal(t, 2, resp.URLs[0].PartNumber)
	assert.Equal(t, 1, resp.URLs[1].PartNumber)
	assert.Contains(t, resp.URLs[0].URL, "partNumber=2")
	assert.True(t, resp.URLs[0].ExpiresAt.Equal(fixedNow.Add(24*time.Hour)))
	assert.Contains(t, w.Body.String(), `"expires_at":"2026-01-15T09:30:00Z"`)
}

func TestPresign_Errors(t *testing.T) {
	r := newTestRouter(t, &testutil.MockSessionStore{})

	for _, target := range []string{
		"/api/upload/presign?upload_id=u&bucket=uploads&object_key=k",
		"/api/upload/presign?upload_id=u&bucket=uploads&object_key=k&part_numbers=a,b",
		"/api/upload/presign?upload_id=u&bucket=uploads&object_key=k&part_numbers=0",
		"/api/upload/presign?bucket=uploads&object_key=k&part_numbers=1",
	} {
		w := do(t, r, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.Equal(t, "INVALID_INPUT", decodeError(t, w).Code)
	}
}

func TestComplete(t *testing.T) {
	var got store.CompleteSessionInput
	r := newTestRouter(t, &testutil.MockSessionStore{
		CompleteSessionFunc: func(ctx context.Context, in store.CompleteSessionInput) (string, error) {
			got = in
			return "final-2", nil
		},
	})

	w := do(t, r, http.MethodPost, "/api/upload/complete", `{
		"upload_id": "u-1", "bucket": "uploads", "object_key": "k",
		"parts": [{"part_number": 2, "etag": "\"b\""}, {"part_number": 1, "etag": "\"a\""}]
	}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"completed","final_etag":"final-2","verified":true}`, w.Body.String())
	assert.Equal(t, []uploadtypes.Part{{PartNumber: 1, ETag: `"a"`}, {PartNumber: 2, ETag: `"b"`}}, got.Parts)

	w = do(t, r, http.MethodPost, "/api/upload/complete",
		`{"upload_id":"u-1","bucket":"uploads","object_key":"k","parts":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, body := range []string{
		`{"bucket":"uploads","object_key":"k","parts":[{"part_number":1,"etag":"a"}]}`,
		`{"upload_id":"u-1","object_key":"k","parts":[{"part_number":1,"etag":"a"}]}`,
		`{"upload_id":"u-1","bucket":"uploads","parts":[{"part_number":1,"etag":"a"}]}`,
		`{"upload_id":"u-1","bucket":"uploads","object_key":"k"}`,
	} {
		w = do(t, r, http.MethodPost, "/api/upload/complete", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "INVALID_INPUT", decodeError(t, w).Code, body)
	}
}

func TestAbort(t *testing.T) {
	fail := false
	r := newTestRouter(t, &testutil.MockSessionStore{
		AbortSessionFunc: func(context.Context, store.AbortSessionInput) error {
			if fail {
				return errors.NewProtocolError("abortSession", "uploads", "k", fmt.Errorf("gone")).WithCode("NoSuchUpload")
			}
			return nil
		},
	})
	body := `{"upload_id":"u-1","bucket":"uploads","object_key":"k"}`

	w := do(t, r, http.MethodPost, "/api/upload/abort", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"aborted"}`, w.Body.String())

	fail = true
	w = do(t, r, http.MethodPost, "/api/upload/abort", body)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	var resp AbortResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "failed", resp.Status)
	assert.Contains(t, resp.Error, "NoSuchUpload")

	w = do(t, r, http.MethodPost, "/api/upload/abort", `{"upload_id":"u-1","bucket":"uploads"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", decodeError(t, w).Code)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		store      store.SessionStore
		wantStatus int
		wantCheck  string
	}{
		{name: "bucket present", store: &testutil.MockBucketStore{}, wantStatus: http.StatusOK, wantCheck: "ok"},
		{name: "no bucket management", store: &testutil.MockSessionStore{}, wantStatus: http.StatusOK, wantCheck: "skipped"},
		{
			name: "bucket missing",
			store: &testutil.MockBucketStore{
				BucketExistsFunc: func(context.Context, string) (bool, error) { return false, nil },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantCheck:  "failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, tt.store)
			w := do(t, r, http.MethodGet, "/health", "")
			assert.Equal(t, tt.wantStatus, w.Code)

			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCheck, resp.BucketCheck)
			assert.Equal(t, "uploads", resp.Bucket)
		})
	}
}

func TestRouter_MetricsAndRequestID(t *testing.T) {
	r := newTestRouter(t, &testutil.MockSessionStore{})

	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-42", decodeError(t, w).RequestID)

	w = do(t, r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "uploads_http_requests_total")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(errors.ErrInvalidInput))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(errors.NewError("plan", errors.ErrPlanning)))
	assert.Equal(t, http.StatusBadGateway, StatusFor(errors.NewProtocolError("x", "b", "k", fmt.Errorf("e"))))
	assert.Equal(t, http.StatusNotImplemented, StatusFor(errors.ErrNotImplemented))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(fmt.Errorf("other")))
}
