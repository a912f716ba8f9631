package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error is an application error that knows how it is presented over HTTP.
// Message is always safe to show to the caller; Err carries the detail that is
// only logged.
type Error struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy carrying a caller-visible summary.
func (e *Error) WithDetails(details string) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func BadRequest(message string) *Error { return New(http.StatusBadRequest, message, nil) }

func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message, nil) }

func Forbidden(message string) *Error { return New(http.StatusForbidden, message, nil) }

func NotFound(message string) *Error { return New(http.StatusNotFound, message, nil) }

func TooManyRequests(message string) *Error { return New(http.StatusTooManyRequests, message, nil) }

func Internal(message string, err error) *Error {
	return New(http.StatusInternalServerError, message, err)
}

// Upstream reports a failed call to an external provider. The caller sees
// the message and, when set via WithDetails, a non-sensitive summary.
func Upstream(message string, err error) *Error {
	return New(http.StatusInternalServerError, message, err)
}

func ServiceUnavailable(message string) *Error {
	return New(http.StatusServiceUnavailable, message, nil)
}

// Respond writes err as a JSON error body. Anything that is not an *Error is
// treated as an unexpected internal failure and its text is not exposed.
func Respond(c *gin.Context, log *zap.Logger, err error) {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = Internal("Internal server error", err)
	}

	if log != nil {
		fields := []zap.Field{
			zap.Int("status", appErr.Code),
			zap.String("path", c.Request.URL.Path),
		}
		if appErr.Err != nil {
			fields = append(fields, zap.Error(appErr.Err))
		}
		if rid := c.GetString("request_id"); rid != "" {
			fields = append(fields, zap.String("request_id", rid))
		}
		switch {
		case appErr.Code >= 500:
			log.Error(appErr.Message, fields...)
		default:
			log.Warn(appErr.Message, fields...)
		}
	}

	body := gin.H{"error": appErr.Message}
	if appErr.Details != "" {
		body["details"] = appErr.Details
	}
	c.AbortWithStatusJSON(appErr.Code, body)
}
