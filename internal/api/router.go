// Package api exposes the upload orchestrator over HTTP.
//
// Routes:
//
//	POST /api/upload/initiate
//	GET  /api/upload/presign?upload_id=&bucket=&object_key=&part_numbers=1,2,3
//	POST /api/upload/complete
//	POST /api/upload/abort
//	GET  /health
//	GET  /metrics
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/internal/metrics"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/uploadtypes"
)

// Service is the orchestrator surface served over HTTP.
type Service interface {
	Initiate(ctx context.Context, req uploadtypes.InitiateRequest) (*uploadtypes.UploadSession, error)
	PresignBatch(ctx context.Context, req uploadtypes.PresignRequest) ([]uploadtypes.PresignedURLGrant, error)
	ParsePartNumbers(raw string) ([]int, error)
	Complete(ctx context.Context, req uploadtypes.CompleteRequest) (*uploadtypes.CompleteResult, error)
	Abort(ctx context.Context, req uploadtypes.AbortRequest) uploadtypes.AbortResult
	CheckBucket(ctx context.Context) error
	DefaultBucket() string
}

// Handler serves the upload routes.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

// NewRouter builds the gin engine for svc. A nil m disables /metrics.
func NewRouter(svc Service, logger *slog.Logger, m *metrics.Metrics) *gin.Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &Handler{svc: svc, logger: logger}

	engine := gin.New()
	engine.Use(RequestID(), AccessLog(logger), gin.Recovery())
	if m != nil {
		engine.Use(m.Middleware())
		engine.GET("/metrics", gin.WrapH(m.Handler()))
	}
	engine.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", c.Request.URL.Path+" not found")
	})

	group := engine.Group("/api/upload")
	group.POST("/initiate", h.Initiate)
	group.GET("/presign", h.Presign)
	group.POST("/complete", h.Complete)
	group.POST("/abort", h.Abort)

	engine.GET("/health", h.Health)
	return engine
}
