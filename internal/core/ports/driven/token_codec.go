package driven

// TokenCodec binds a (userID, sessionID) pair into the credential that
// consumers attach to subsequent requests, and extracts it back out.
type TokenCodec interface {
	// Generate creates a signed credential embedding the identity pair.
	Generate(userID, sessionID string) (string, error)

	// Parse validates a credential and returns the embedded identity
	// pair. Returns domain.ErrTokenInvalid on malformed or forged input.
	Parse(token string) (userID, sessionID string, err error)
}
