package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/errors"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	StoreCode string `json:"store_code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch errors.KindOf(err) {
	case errors.KindInvalidInput:
		return http.StatusBadRequest
	case errors.KindPlanning:
		return http.StatusUnprocessableEntity
	case errors.KindProtocol:
		return http.StatusBadGateway
	case errors.KindNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(c.Request.Context(), "request failed",
			"request_id", c.GetString(requestIDKey), "op", op, "error", err)
	}
	c.AbortWithStatusJSON(status, errorBody{Error: errorDetail{
		Code:      errors.KindOf(err).String(),
		Message:   err.Error(),
		StoreCode: errors.CodeOf(err),
		RequestID: c.GetString(requestIDKey),
	}})
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorBody{Error: errorDetail{
		Code:      code,
		Message:   message,
		RequestID: c.GetString(requestIDKey),
	}})
}
