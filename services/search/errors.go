package search

// ErrorCode is the closed set of failure kinds a search can surface.
// Errors travel in the response envelope as values, never as panics.
type ErrorCode string

const (
	CodeInvalidQuery      ErrorCode = "INVALID_QUERY"
	CodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeSearchTimeout     ErrorCode = "SEARCH_TIMEOUT"
	CodeSearchError       ErrorCode = "SEARCH_ERROR"
)

type Error struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}
