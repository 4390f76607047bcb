package domain

// ValidationCode classifies why a session failed validation. The values
// are stable strings consumed by middleware and API clients.
type ValidationCode string

const (
	// CodeInvalidParameters means the caller supplied no user or session id.
	CodeInvalidParameters ValidationCode = "INVALID_PARAMETERS"

	// CodeInvalidSession means the supplied session id is not the active
	// one for the user, typically because a newer login superseded it.
	CodeInvalidSession ValidationCode = "INVALID_SESSION"

	// CodeSessionNotFound means the active pointer matched but the record
	// itself is gone (split-brain between dependent keys).
	CodeSessionNotFound ValidationCode = "SESSION_NOT_FOUND"

	// CodeSessionExpired means the session went stale past the soft timeout.
	CodeSessionExpired ValidationCode = "SESSION_EXPIRED"

	// CodeUpdateFailed means the activity refresh could not be persisted.
	CodeUpdateFailed ValidationCode = "UPDATE_FAILED"

	// CodeValidationError means an unexpected store failure interrupted
	// validation; the caller may retry.
	CodeValidationError ValidationCode = "VALIDATION_ERROR"
)

// Validation is the structured verdict of ValidateSession. It is always
// returned in place of a Go error so middleware can map codes to
// user-facing responses without its own error handling.
type Validation struct {
	IsValid bool           `json:"isValid"`
	Session *SessionRecord `json:"session,omitempty"`
	Code    ValidationCode `json:"error,omitempty"`
	Message string         `json:"message,omitempty"`
}

// Invalid builds a failed verdict with the given code and message.
func Invalid(code ValidationCode, message string) Validation {
	return Validation{Code: code, Message: message}
}

// Valid builds a successful verdict carrying the refreshed record.
func Valid(record *SessionRecord) Validation {
	return Validation{IsValid: true, Session: record}
}
