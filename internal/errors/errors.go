package errors

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind classifies an API failure and fixes its HTTP status.
type Kind int

const (
	KindValidation Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindTooLarge
	KindUpstream
)

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// APIError is the client-facing error. Only Message is serialized; the
// wrapped cause stays server-side.
type APIError struct {
	Kind    Kind   `json:"-"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError creates a new APIError
func NewAPIError(kind Kind, message string) *APIError {
	return &APIError{Kind: kind, Message: message}
}

// Wrap creates an APIError that keeps cause for logging.
func Wrap(kind Kind, message string, cause error) *APIError {
	return &APIError{Kind: kind, Message: message, Err: cause}
}

// Predefined errors
var (
	ErrInvalidInput  = NewAPIError(KindValidation, "Invalid request body")
	ErrInternalError = NewAPIError(KindUpstream, "Internal server error")
)

// RespondWithError sends an error response and aborts the handler chain.
func RespondWithError(c *gin.Context, err *APIError) {
	c.AbortWithStatusJSON(err.Kind.Status(), err)
}

// Respond maps any error to a response. Errors that are not APIErrors are
// reported as a generic 500.
func Respond(c *gin.Context, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		RespondWithError(c, apiErr)
		return
	}
	RespondWithError(c, ErrInternalError)
}

// Helper functions for common error responses

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	RespondWithError(c, NewAPIError(KindUnauthenticated, message))
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Access denied"
	}
	RespondWithError(c, NewAPIError(KindForbidden, message))
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, NewAPIError(KindNotFound, message))
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "Invalid request"
	}
	RespondWithError(c, NewAPIError(KindValidation, message))
}

// PayloadTooLarge sends a 413 response
func PayloadTooLarge(c *gin.Context, message string) {
	if message == "" {
		message = "Payload too large"
	}
	RespondWithError(c, NewAPIError(KindTooLarge, message))
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	RespondWithError(c, NewAPIError(KindUpstream, message))
}
