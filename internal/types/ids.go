package types

import (
	"strings"

	"github.com/google/uuid"
)

// NewAPIKeyID generates a UUIDv7 API key row identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewAPIKeyID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewSecretID generates a 32-hex-char secret identifier (UUIDv7 without hyphens).
// Matches the format expected in SB_HMAC_SECRET and in API keys.
func NewSecretID() string {
	return strings.ReplaceAll(uuid.Must(uuid.NewV7()).String(), "-", "")
}

// NewImportID generates a UUIDv7 identifying one bulk import for log correlation.
func NewImportID() string {
	return uuid.Must(uuid.NewV7()).String()
}
