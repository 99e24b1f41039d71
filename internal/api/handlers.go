package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/uploadtypes"
)

// InitiateRequest is the body of POST /api/upload/initiate.
type InitiateRequest struct {
	FileName        string `json:"file_name" binding:"required"`
	FileSize        int64  `json:"file_size" binding:"required"`
	FileFingerprint string `json:"file_fingerprint" binding:"required"`
	ContentType     string `json:"content_type"`
}

// PresignResponse is the body returned by GET /api/upload/presign.
type PresignResponse struct {
	URLs []uploadtypes.PresignedURLGrant `json:"urls"`
}

// CompleteRequest is the body of POST /api/upload/complete.
type CompleteRequest struct {
	UploadID  string             `json:"upload_id" binding:"required"`
	Bucket    string             `json:"bucket" binding:"required"`
	ObjectKey string             `json:"object_key" binding:"required"`
	Parts     []uploadtypes.Part `json:"parts" binding:"required"`
}

// AbortRequest is the body of POST /api/upload/abort.
type AbortRequest struct {
	UploadID  string `json:"upload_id" binding:"required"`
	Bucket    string `json:"bucket" binding:"required"`
	ObjectKey string `json:"object_key" binding:"required"`
}

// AbortResponse is the body returned by POST /api/upload/abort.
type AbortResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Bucket      string `json:"bucket"`
	BucketCheck string `json:"bucket_check"`
	Error       string `json:"error,omitempty"`
}

// Initiate opens a new upload session.
func (h *Handler) Initiate(c *gin.Context) {
	var req InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, "initiate", badBody("initiate", err))
		return
	}

	session, err := h.svc.Initiate(c.Request.Context(), uploadtypes.InitiateRequest{
		FileName:    req.FileName,
		FileSize:    req.FileSize,
		Fingerprint: req.FileFingerprint,
		ContentType: req.ContentType,
	})
	if err != nil {
		h.fail(c, "initiate", err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Presign issues part upload URLs for a comma separated list of part numbers.
func (h *Handler) Presign(c *gin.Context) {
	numbers, err := h.svc.ParsePartNumbers(c.Query("part_numbers"))
	if err != nil {
		h.fail(c, "presign", err)
		return
	}

	grants, err := h.svc.PresignBatch(c.Request.Context(), uploadtypes.PresignRequest{
		UploadID:    c.Query("upload_id"),
		Bucket:      c.Query("bucket"),
		ObjectKey:   c.Query("object_key"),
		PartNumbers: numbers,
	})
	if err != nil {
		h.fail(c, "presign", err)
		return
	}
	c.JSON(http.StatusOK, PresignResponse{URLs: grants})
}

// Complete finalizes a session from the uploaded part ETags.
func (h *Handler) Complete(c *gin.Context) {
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, "complete", badBody("complete", err))
		return
	}

	result, err := h.svc.Complete(c.Request.Context(), uploadtypes.CompleteRequest{
		UploadID:  req.UploadID,
		Bucket:    req.Bucket,
		ObjectKey: req.ObjectKey,
		Parts:     req.Parts,
	})
	if err != nil {
		h.fail(c, "complete", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Abort cancels a session. A failed cleanup is reported with 500 and
// status "failed" rather than an error document.
func (h *Handler) Abort(c *gin.Context) {
	var req AbortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, "abort", badBody("abort", err))
		return
	}

	result := h.svc.Abort(c.Request.Context(), uploadtypes.AbortRequest{
		UploadID:  req.UploadID,
		Bucket:    req.Bucket,
		ObjectKey: req.ObjectKey,
	})
	if !result.Success {
		resp := AbortResponse{Status: "failed"}
		if result.Err != nil {
			resp.Error = result.Err.Error()
		}
		c.JSON(http.StatusInternalServerError, resp)
		return
	}
	c.JSON(http.StatusOK, AbortResponse{Status: "aborted"})
}

// Health reports whether the default bucket is reachable.
func (h *Handler) Health(c *gin.Context) {
	resp := HealthResponse{Status: "healthy", Bucket: h.svc.DefaultBucket(), BucketCheck: "ok"}

	err := h.svc.CheckBucket(c.Request.Context())
	switch {
	case err == nil:
	case errors.IsNotImplemented(err):
		resp.BucketCheck = "skipped"
	default:
		resp.Status = "unhealthy"
		resp.BucketCheck = "failed"
		resp.Error = err.Error()
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func badBody(op string, err error) error {
	return errors.NewError(op, errors.ErrInvalidInput).WithMessage("malformed request body: " + err.Error())
}
