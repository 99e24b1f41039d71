package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/uploadtypes"
)

var _ uploadtypes.Recorder = (*Metrics)(nil)

func TestMetrics_Recorder(t *testing.T) {
	m := New()

	m.ObserveOperation("initiate", "ok", 20*time.Millisecond)
	m.ObserveOperation("initiate", "ok", 10*time.Millisecond)
	m.ObserveOperation("complete", "error", time.Millisecond)
	m.AddPresigned(3)
	m.AddPresigned(2)
	m.ObserveChunkSize(128 << 20)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("initiate", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("complete", "error")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.presigned))
	assert.Equal(t, 1, testutil.CollectAndCount(m.chunkSize))
}

func TestMetrics_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	for _, path := range []string{"/ok", "/ok", "/boom", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("200", "GET", "/ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("502", "GET", "/boom")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("404", "GET", "unmatched")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inflight))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.AddPresigned(1)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "uploads_orchestrator_presigned_urls_total 1")
	assert.Equal(t, m.reg, m.Registry())
}
