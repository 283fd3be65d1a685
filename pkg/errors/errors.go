package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Stable error kinds for the campaign coordination API.
var (
	ErrTenantMissing         = New("TENANT_MISSING", http.StatusBadRequest, "no tenant in caller context")
	ErrTemplateNotFound      = New("TEMPLATE_NOT_FOUND", http.StatusNotFound, "template not found or not accessible")
	ErrValidation            = New("VALIDATION_FAILED", http.StatusBadRequest, "validation failed")
	ErrConflictDetected      = New("CONFLICT_DETECTED", http.StatusConflict, "scheduling conflicts detected")
	ErrIllegalTransition     = New("ILLEGAL_TRANSITION", http.StatusConflict, "status transition not allowed")
	ErrHasResponses          = New("HAS_RESPONSES", http.StatusConflict, "campaign has recorded responses")
	ErrHasStartedAssignments = New("HAS_STARTED_ASSIGNMENTS", http.StatusConflict, "campaign has started assignments")
	ErrAssignmentStarted     = New("ASSIGNMENT_STARTED", http.StatusConflict, "assignment already started")
	ErrTemplateConstraint    = New("TEMPLATE_CONSTRAINT", http.StatusConflict, "uniqueness constraint violated")
	ErrNotFound              = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrDependencyUnavailable = New("DEPENDENCY_UNAVAILABLE", http.StatusBadGateway, "external dependency unavailable")
	ErrUnauthorized          = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden             = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrInternal              = New("INTERNAL", http.StatusInternalServerError, "internal server error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
