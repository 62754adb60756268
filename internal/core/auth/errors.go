package auth

import "errors"

// Authentication failures. Missing, malformed and unknown keys all map to
// UNAUTHENTICATED so a response never confirms that a key exists; a revoked
// key maps to PERMISSION_DENIED.
var (
	ErrMissingKey       = errors.New("API key required in x-api-key metadata")
	ErrInvalidKeyFormat = errors.New("invalid API key format")
	ErrUnknownKey       = errors.New("unknown secret ID")
	ErrInvalidKey       = errors.New("invalid API key")
	ErrKeyRevoked       = errors.New("API key has been revoked")
	ErrDatabase         = errors.New("database error")
)
