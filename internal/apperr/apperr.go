// Package apperr classifies failures so the request boundary can map them to HTTP responses.
package apperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Kind is the error taxonomy shared by every handler.
type Kind int

const (
	Internal Kind = iota
	Unauthenticated
	InvalidInput
	NotFound
	NotEligible
	ExternalService
	PartialFailure
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case InvalidInput:
		return "invalid_input"
	case NotFound:
		return "not_found"
	case NotEligible:
		return "not_eligible"
	case ExternalService:
		return "external_service_failure"
	case PartialFailure:
		return "partial_failure"
	default:
		return "internal"
	}
}

// Status is the HTTP status code for k.
func (k Kind) Status() int {
	switch k {
	case Unauthenticated:
		return http.StatusUnauthorized
	case InvalidInput:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case NotEligible:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a Kind, a message that is safe to show to clients, and the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error without a cause. Useful for package-level sentinels.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches kind and a safe message to err.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// StatusOf returns the HTTP status for err.
func StatusOf(err error) int {
	return KindOf(err).Status()
}

// Respond writes a JSON error body for err. Internal details only go to the log.
func Respond(c *gin.Context, logger *zap.Logger, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = Wrap(Internal, "unexpected error", err)
	}

	status := e.Kind.Status()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("kind", e.Kind.String()),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}

	c.AbortWithStatusJSON(status, gin.H{"error": e.Message})
}
