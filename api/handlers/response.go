package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Error codes used by the saved-search endpoints, alongside the search
// pipeline's own codes.
const (
	codeInvalidInput = "INVALID_INPUT"
	codeNotFound     = "NOT_FOUND"
	codeUnauthorized = "UNAUTHORIZED"
	codeInternal     = "SEARCH_ERROR"
)

type Metadata struct {
	RequestID          string    `json:"request_id"`
	Timestamp          time.Time `json:"timestamp"`
	RateLimitRemaining *int      `json:"rate_limit_remaining,omitempty"`
}

type apiError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// response is the wire envelope: metadata is always present, data only on
// success, error only on failure.
type response struct {
	Success  bool      `json:"success"`
	Data     any       `json:"data,omitempty"`
	Error    *apiError `json:"error,omitempty"`
	Metadata Metadata  `json:"metadata"`
}

func newMetadata() Metadata {
	return Metadata{
		RequestID: uuid.NewString(),
		Timestamp: time.Now(),
	}
}

func writeSuccess(c *gin.Context, statusCode int, data any, metadata Metadata) {
	c.JSON(statusCode, response{
		Success:  true,
		Data:     data,
		Metadata: metadata,
	})
}

func writeError(c *gin.Context, statusCode int, code string, message string, details map[string]any, metadata Metadata) {
	c.JSON(statusCode, response{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Metadata: metadata,
	})
}
