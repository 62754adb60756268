package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/solatis/switchboard/internal/types"
)

const (
	testSecretA = "0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"
	testSecretB = "fedcba9876543210fedcba9876543210:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHMACSecrets(t *testing.T) {
	t.Run("single secret", func(t *testing.T) {
		t.Setenv("SB_HMAC_SECRET", testSecretA)

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 1 {
			t.Errorf("expected 1 secret, got %d", len(secrets))
		}
		if _, ok := secrets["0123456789abcdef0123456789abcdef"]; !ok {
			t.Errorf("secret_id not found in map")
		}
	})

	t.Run("multiple numbered secrets", func(t *testing.T) {
		t.Setenv("SB_HMAC_SECRET_1", testSecretA)
		t.Setenv("SB_HMAC_SECRET_2", testSecretB)

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 2 {
			t.Errorf("expected 2 secrets, got %d", len(secrets))
		}
	})

	t.Run("numbering stops at first gap", func(t *testing.T) {
		t.Setenv("SB_HMAC_SECRET_1", testSecretA)
		t.Setenv("SB_HMAC_SECRET_3", testSecretB)

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 1 {
			t.Errorf("expected 1 secret, got %d", len(secrets))
		}
	})

	t.Run("duplicate secret_id", func(t *testing.T) {
		t.Setenv("SB_HMAC_SECRET", testSecretA)
		t.Setenv("SB_HMAC_SECRET_1", testSecretA)

		_, err := HMACSecrets()
		if err == nil || !strings.Contains(err.Error(), "duplicate secret_id") {
			t.Errorf("expected duplicate secret_id error, got %v", err)
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		t.Setenv("SB_HMAC_SECRET", "invalid_format")

		if _, err := HMACSecrets(); err == nil {
			t.Error("expected error for invalid format")
		}
	})
}

func TestParseHMACSecretWithID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", testSecretA, false},
		{"surrounding whitespace", "  " + testSecretA + "\n", false},
		{"no separator", "0123456789abcdef0123456789abcdef", true},
		{"short id", "short:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w", true},
		{"uppercase hex", "0123456789ABCDEF0123456789ABCDEF:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w", true},
		{"bad base64", "0123456789abcdef0123456789abcdef:not*base64", true},
		{"short secret", "0123456789abcdef0123456789abcdef:c2hvcnQ=", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, secret, err := ParseHMACSecretWithID(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got id=%s", id)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != "0123456789abcdef0123456789abcdef" || len(secret) < 32 {
				t.Errorf("got id=%s secret len=%d", id, len(secret))
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		want := Default().AdminAPI
		if cfg.AdminAPI != want {
			t.Errorf("AdminAPI = %+v, want %+v", cfg.AdminAPI, want)
		}
		if len(cfg.Arguments) != 0 {
			t.Errorf("expected no arguments, got %d", len(cfg.Arguments))
		}
	})

	t.Run("config file", func(t *testing.T) {
		path := writeConfig(t, `admin_api:
  host: 127.0.0.1
  port: 9090
  request_timeout: 5s
  max_import_bytes: 1024
database:
  url: sqlite:///tmp/sb.db
arguments:
  - owner: User
    attribute: age
    type: integer
  - owner: User
    attribute: email
    type: string
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.AdminAPI.Host != "127.0.0.1" || cfg.AdminAPI.Port != 9090 {
			t.Errorf("AdminAPI = %+v", cfg.AdminAPI)
		}
		if cfg.AdminAPI.RequestTimeout != 5*time.Second || cfg.AdminAPI.MaxImportBytes != 1024 {
			t.Errorf("AdminAPI = %+v", cfg.AdminAPI)
		}
		if cfg.Database.URL != "sqlite:///tmp/sb.db" {
			t.Errorf("Database.URL = %s", cfg.Database.URL)
		}
		if len(cfg.Arguments) != 2 || cfg.Arguments[0] != (ArgumentConfig{Owner: "User", Attribute: "age", Type: "integer"}) {
			t.Errorf("Arguments = %+v", cfg.Arguments)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeConfig(t, "admin_api:\n  port: 9090\n")
		t.Setenv("SB_ADMIN_API_PORT", "8080")

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.AdminAPI.Port != 8080 {
			t.Errorf("expected port 8080, got %d", cfg.AdminAPI.Port)
		}
	})

	t.Run("secret in config file rejected", func(t *testing.T) {
		path := writeConfig(t, "admin_api:\n  hmac_secret: should_be_rejected\n")

		_, err := LoadConfig(path)
		if err == nil || err.Error() != "HMAC secrets not allowed in config files (use SB_HMAC_SECRET environment variable)" {
			t.Fatalf("expected secret rejection, got %v", err)
		}
	})

	t.Run("secret in environment accepted", func(t *testing.T) {
		t.Setenv("SB_HMAC_SECRET", testSecretA)

		if _, err := LoadConfig(""); err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
	})

	invalid := []struct {
		name    string
		content string
	}{
		{"port zero", "admin_api:\n  port: 0\n"},
		{"port too large", "admin_api:\n  port: 70000\n"},
		{"negative timeout", "admin_api:\n  request_timeout: -1s\n"},
		{"zero import size", "admin_api:\n  max_import_bytes: 0\n"},
		{"unknown argument type", "arguments:\n  - owner: User\n    attribute: age\n    type: decimal\n"},
		{"argument without owner", "arguments:\n  - attribute: age\n    type: integer\n"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.content)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestArgumentRegistry(t *testing.T) {
	cfg := &Config{Arguments: []ArgumentConfig{
		{Owner: "User", Attribute: "age", Type: "string"},
		{Owner: "User", Attribute: "age", Type: "integer"},
		{Owner: "Request", Attribute: "ip", Type: "string"},
	}}

	reg, err := cfg.ArgumentRegistry()
	if err != nil {
		t.Fatalf("ArgumentRegistry failed: %v", err)
	}
	if got := reg.Keys(); len(got) != 2 {
		t.Fatalf("Keys = %v, want 2 entries", got)
	}

	arg, err := reg.Lookup("User.age")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	v, err := arg.Cast("42")
	if err != nil || v != int64(42) {
		t.Errorf("Cast(42) = %v, %v; later registration should win", v, err)
	}

	_, err = reg.Lookup("User.email")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Lookup(User.email) error = %v, want ErrNotFound", err)
	}
}
