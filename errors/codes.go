package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Setting errors
const (
	// ErrCodeInvalidInput indicates a setting value was rejected.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required setting is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodeInvalidFormat indicates a setting has an invalid format.
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
)

// State errors
const (
	// ErrCodeConflict indicates the operation conflicts with the current state,
	// e.g. mutating a client that has already been started.
	ErrCodeConflict ErrorCode = "CONFLICT"
	// ErrCodeClosed indicates the resource has been closed.
	ErrCodeClosed ErrorCode = "CLOSED"
)

// Runtime errors (retryable)
const (
	// ErrCodeTimeout indicates an operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeConnectionFailed indicates a failed connection.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:          true,
	ErrCodeConnectionFailed: true,
	ErrCodeInternal:         false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
