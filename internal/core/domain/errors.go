package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid (e.g. empty text where content is required)
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates bad pipeline parameters such as overlap >= chunk size
	ErrInvalidConfig = errors.New("invalid config")

	// ErrAuth indicates an external AI service rejected the credential
	ErrAuth = errors.New("credential rejected")

	// ErrRateLimited indicates an external AI service throttled the request
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates the AI service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrDimensionMismatch indicates embeddings of inconsistent length
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrCorruptStore indicates a serialized vector store is malformed
	ErrCorruptStore = errors.New("corrupt vector store")

	// ErrStoreNotBuilt indicates no vector store exists yet for the requested documents
	ErrStoreNotBuilt = errors.New("vector store not built")

	// ErrIndexInProgress indicates another instance is rebuilding the same document
	ErrIndexInProgress = errors.New("indexing already in progress")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the user lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")
)

// IsRetryable reports whether err is a transient AI service failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrServiceUnavailable)
}
