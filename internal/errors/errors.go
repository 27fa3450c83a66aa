package errors

import "fmt"

// ErrorCode represents an errsolve error code.
type ErrorCode string

const (
	ErrInvalidRequest       ErrorCode = "INVALID_REQUEST"       // 400: validation failure, never retried
	ErrNotFound             ErrorCode = "NOT_FOUND"             // 404
	ErrEmbeddingUnavailable ErrorCode = "EMBEDDING_UNAVAILABLE" // 503: embedding collaborator unreachable
	ErrIndexCorrupt         ErrorCode = "INDEX_CORRUPT"         // 500: lexical index inconsistent, triggers rebuild
	ErrRemoteUnavailable    ErrorCode = "REMOTE_UNAVAILABLE"    // 502: remote transport failure
	ErrInternal             ErrorCode = "INTERNAL"              // 500
)

// KBError represents a structured error with code, status, and details.
type KBError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *KBError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *KBError {
	return &KBError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewMissingFields creates a 400 error listing absent required fields.
func NewMissingFields(fields []string) *KBError {
	return &KBError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: fmt.Sprintf("missing or invalid required fields: %v", fields),
		Details: map[string]any{"fields": fields},
	}
}

// NewNotFound creates a 404 error for when a solution cannot be found.
func NewNotFound(id string) *KBError {
	return &KBError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("solution not found: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewEmbeddingUnavailable creates a 503 error when the embedding
// collaborator cannot be reached. Saves must not partially commit in
// this case.
func NewEmbeddingUnavailable(err error) *KBError {
	msg := "embedding service unavailable"
	if err != nil {
		msg = fmt.Sprintf("embedding service unavailable: %v", err)
	}
	return &KBError{
		Code:    ErrEmbeddingUnavailable,
		Status:  503,
		Message: msg,
	}
}

// NewIndexCorrupt creates a 500 error for an unreadable or inconsistent
// lexical index. Callers should attempt a full rebuild before surfacing it.
func NewIndexCorrupt(err error) *KBError {
	msg := "lexical index corrupt"
	if err != nil {
		msg = fmt.Sprintf("lexical index corrupt: %v", err)
	}
	return &KBError{
		Code:    ErrIndexCorrupt,
		Status:  500,
		Message: msg,
	}
}

// NewRemoteUnavailable creates a 502 error for remote transport failures.
func NewRemoteUnavailable(err error) *KBError {
	msg := "remote store unavailable"
	if err != nil {
		msg = fmt.Sprintf("remote store unavailable: %v", err)
	}
	return &KBError{
		Code:    ErrRemoteUnavailable,
		Status:  502,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *KBError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &KBError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a KBError with the given code.
func Is(err error, code ErrorCode) bool {
	if kbErr, ok := err.(*KBError); ok {
		return kbErr.Code == code
	}
	return false
}
