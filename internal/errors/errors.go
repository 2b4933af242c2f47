package errors

import "fmt"

// ErrorCode represents a Flowdeck error code.
type ErrorCode string

const (
	ErrAuth           ErrorCode = "AUTH"            // 401
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrChunkIntegrity ErrorCode = "CHUNK_INTEGRITY" // 502
	ErrUpstream       ErrorCode = "UPSTREAM"        // propagated upstream status
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// FlowError represents a structured error with code, status, and details.
type FlowError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *FlowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAuth creates a 401 error for missing or unusable bearer tokens.
func NewAuth(msg string) *FlowError {
	return &FlowError{
		Code:    ErrAuth,
		Status:  401,
		Message: msg,
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *FlowError {
	return &FlowError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidMode creates a 400 error carrying the list of accepted modes.
func NewInvalidMode(allowed []string) *FlowError {
	return &FlowError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: "invalid mode",
		Details: map[string]any{"allowed_modes": allowed},
	}
}

// NewNotFound creates a 404 error for an absent remote document.
func NewNotFound(path string) *FlowError {
	return &FlowError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("document not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewChunkMissing creates an error for a chunk record that does not exist.
// Positions are 1-based in the message, matching the stored chunk naming.
func NewChunkMissing(index, total int) *FlowError {
	return &FlowError{
		Code:    ErrChunkIntegrity,
		Status:  502,
		Message: fmt.Sprintf("missing sync state chunk: %d/%d", index+1, total),
		Details: map[string]any{"chunk": index + 1, "total": total},
	}
}

// NewChunkInvalid creates an error for a chunk record whose value is not text.
func NewChunkInvalid(index, total int) *FlowError {
	return &FlowError{
		Code:    ErrChunkIntegrity,
		Status:  502,
		Message: fmt.Sprintf("invalid sync state chunk: %d/%d", index+1, total),
		Details: map[string]any{"chunk": index + 1, "total": total},
	}
}

// NewUpstream creates an error carrying the upstream store's status code.
// A status outside the valid HTTP range degrades to 500.
func NewUpstream(status int, msg string) *FlowError {
	if status < 100 || status > 599 {
		status = 500
	}
	if msg == "" {
		msg = fmt.Sprintf("upstream request failed (%d)", status)
	}
	return &FlowError{
		Code:    ErrUpstream,
		Status:  status,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *FlowError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &FlowError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a FlowError with the given code.
func Is(err error, code ErrorCode) bool {
	if fErr, ok := err.(*FlowError); ok {
		return fErr.Code == code
	}
	return false
}

// StatusOf returns the HTTP status for an error, defaulting to 500.
func StatusOf(err error) int {
	if fErr, ok := err.(*FlowError); ok {
		return fErr.Status
	}
	return 500
}
