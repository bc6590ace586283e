package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kanishk2004/plug-rag-sub002/internal/chunker"
	"github.com/Kanishk2004/plug-rag-sub002/internal/ingest"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error
func RespondWithBadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message, details)
}

// RespondWithUnauthorized sends a 401 Unauthorized error
func RespondWithUnauthorized(c *gin.Context, message string) {
	RespondWithError(c, http.StatusUnauthorized, "unauthorized", message, nil)
}

// RespondWithForbidden sends a 403 Forbidden error
func RespondWithForbidden(c *gin.Context, message string) {
	RespondWithError(c, http.StatusForbidden, "forbidden", message, nil)
}

// RespondWithNotFound sends a 404 Not Found error
func RespondWithNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "not_found", message, nil)
}

// RespondWithInternalError sends a 500 Internal Server Error
func RespondWithInternalError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message, details)
}

// RespondWithPipelineError maps ingestion pipeline failures to HTTP
// responses: validation rejections are the caller's fault, extraction
// and chunking failures carry the detected type, fetch timeouts get 504.
func RespondWithPipelineError(c *gin.Context, err error) {
	var vErr *ingest.ValidationError
	if errors.As(err, &vErr) {
		RespondWithError(c, http.StatusUnprocessableEntity, "validation_failed",
			"Document failed validation", gin.H{"reasons": vErr.Reasons})
		return
	}

	var tErr *ingest.TimeoutError
	if errors.As(err, &tErr) {
		RespondWithError(c, http.StatusGatewayTimeout, "fetch_timeout",
			tErr.Error(), gin.H{"url": tErr.URL})
		return
	}

	var xErr *ingest.ExtractionError
	if errors.As(err, &xErr) {
		RespondWithError(c, http.StatusUnprocessableEntity, "extraction_failed",
			xErr.Error(), gin.H{"file_type": xErr.Type})
		return
	}

	var cErr *chunker.ChunkingError
	if errors.As(err, &cErr) {
		RespondWithBadRequest(c, cErr.Error(), nil)
		return
	}

	RespondWithInternalError(c, "Document processing failed", nil)
}

