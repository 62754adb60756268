// Package config provides configuration management for switchboard services.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/solatis/switchboard/internal/rules"
)

// Config is the complete service configuration.
type Config struct {
	AdminAPI  AdminAPIConfig
	Database  DatabaseConfig
	Arguments []ArgumentConfig
}

// AdminAPIConfig holds configuration for the gRPC admin API service.
type AdminAPIConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
	MaxImportBytes int
}

// DatabaseConfig locates the switch store.
type DatabaseConfig struct {
	URL string
}

// ArgumentConfig declares one condition argument: an attribute on an owner
// type and the type its operator parameters are cast to.
type ArgumentConfig struct {
	Owner     string `mapstructure:"owner"`
	Attribute string `mapstructure:"attribute"`
	Type      string `mapstructure:"type"`
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		AdminAPI: AdminAPIConfig{
			Host:           "0.0.0.0",
			Port:           50061,
			RequestTimeout: 30 * time.Second,
			MaxImportBytes: 4 << 20,
		},
	}
}

// ArgumentRegistry builds the argument registry from the configured arguments.
// Later entries with the same Owner.attribute key replace earlier ones.
func (c *Config) ArgumentRegistry() (*rules.ArgumentRegistry, error) {
	reg := rules.NewArgumentRegistry()
	for i, a := range c.Arguments {
		ft, err := rules.ParseFieldType(a.Type)
		if err != nil {
			return nil, fmt.Errorf("arguments[%d]: %w", i, err)
		}
		reg.Register(rules.NewArgument(a.Owner, a.Attribute, ft))
	}
	return reg, nil
}

// HMACSecrets extracts HMAC secrets from environment variables.
// Supports SB_HMAC_SECRET (single) and SB_HMAC_SECRET_N (rotation).
// Returns map of secret_id -> decoded secret bytes.
// Secret IDs are UUIDv7 (32 hex chars without hyphens) matching API key format.
func HMACSecrets() (map[string][]byte, error) {
	secrets := make(map[string][]byte)

	add := func(key, val string) error {
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if _, exists := secrets[secretID]; exists {
			return fmt.Errorf("duplicate secret_id '%s' found in environment variables (check SB_HMAC_SECRET and SB_HMAC_SECRET_* for conflicts)", secretID)
		}
		secrets[secretID] = decoded
		return nil
	}

	if val := os.Getenv("SB_HMAC_SECRET"); val != "" {
		if err := add("SB_HMAC_SECRET", val); err != nil {
			return nil, err
		}
	}

	// Numbered secrets keep old and new keys valid during rotation.
	// The sequence stops at the first gap.
	for i := 1; ; i++ {
		key := fmt.Sprintf("SB_HMAC_SECRET_%d", i)
		val := os.Getenv(key)
		if val == "" {
			break
		}
		if err := add(key, val); err != nil {
			return nil, err
		}
	}

	return secrets, nil
}

// ParseHMACSecretWithID parses secret_id:base64_secret format.
// Secret ID must be 32 lowercase hex chars (UUIDv7 without hyphens).
func ParseHMACSecretWithID(envValue string) (secretID string, secret []byte, err error) {
	parts := strings.SplitN(strings.TrimSpace(envValue), ":", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("format must be <secret_id>:<base64_secret>")
	}

	secretID = parts[0]
	if len(secretID) != 32 {
		return "", nil, fmt.Errorf("secret_id must be 32 hex chars (UUIDv7 without hyphens)")
	}
	for _, c := range secretID {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", nil, fmt.Errorf("secret_id must be hex chars only")
		}
	}

	secret, err = base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if len(secret) < 32 {
		return "", nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(secret))
	}

	return secretID, secret, nil
}
