package utils

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// Envelope statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIError is the error half of the response envelope.
type APIError struct {
	StatusCode int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError instance
func NewAPIError(statusCode int, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Message:    message,
	}
}

// Envelope wraps every response body.
type Envelope struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  *APIError   `json:"error,omitempty"`
}

// RespondWithError sends a standardized JSON error response
func RespondWithError(c *gin.Context, err *APIError) {
	c.JSON(err.StatusCode, Envelope{Status: StatusError, Error: err})
	c.Abort() // Abort further processing if it's a middleware or critical error
}

// RespondSuccess sends data wrapped in a success envelope.
func RespondSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Status: StatusSuccess, Data: data})
}

// Common error messages that must not leak details.
const (
	MsgUnauthorized  = "Invalid or expired token"
	MsgForbidden     = "You do not have access to this sports club"
	MsgInternalError = "Internal server error"
	MsgMissingToken  = "Authorization token required"
	MsgBusy          = "Server is busy, please retry"
)

// IsEmpty checks if a string is empty after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

var emailRegex = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

// IsValidEmail checks if a string is a valid email format.
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(strings.ToLower(email))
}
