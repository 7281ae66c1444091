package core

import "errors"

// Error codes for relay failures surfaced through acknowledgements.
const (
	ErrCodeNotJoined    = "not_joined"
	ErrCodeStoreFailure = "store_failure"
	ErrCodeNotFound     = "not_found"
	ErrCodeBadRequest   = "bad_request"
)

var (
	ErrNotJoined = errors.New("not joined")
	ErrNotFound  = errors.New("message not found")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
