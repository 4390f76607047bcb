package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested key or session was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrStoreUnavailable indicates the backing store could not be reached
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrCorruptRecord indicates a session record payload could not be decoded
	ErrCorruptRecord = errors.New("corrupt session record")

	// ErrSessionCreation indicates a login could not persist its session state
	ErrSessionCreation = errors.New("session creation failed")

	// ErrTokenInvalid indicates the credential token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")
)
