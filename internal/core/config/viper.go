package config

import (
	"fmt"
	"strings"

	"github.com/solatis/switchboard/internal/rules"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration from an optional file, the environment and defaults.
// Precedence: environment > config file > defaults. Commands apply their own
// flags on top of the returned value.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("admin_api.host", def.AdminAPI.Host)
	v.SetDefault("admin_api.port", def.AdminAPI.Port)
	v.SetDefault("admin_api.request_timeout", def.AdminAPI.RequestTimeout.String())
	v.SetDefault("admin_api.max_import_bytes", def.AdminAPI.MaxImportBytes)
	v.SetDefault("database.url", "")

	v.SetEnvPrefix("SB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets are environment-only
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		AdminAPI: AdminAPIConfig{
			Host:           v.GetString("admin_api.host"),
			Port:           v.GetInt("admin_api.port"),
			RequestTimeout: v.GetDuration("admin_api.request_timeout"),
			MaxImportBytes: v.GetInt("admin_api.max_import_bytes"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("database.url"),
		},
	}
	if err := v.UnmarshalKey("arguments", &cfg.Arguments); err != nil {
		return nil, fmt.Errorf("failed to decode arguments: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port range, positive timeout and size, and argument declarations.
func validateConfig(cfg *Config) error {
	if cfg.AdminAPI.Port <= 0 || cfg.AdminAPI.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.AdminAPI.Port)
	}
	if cfg.AdminAPI.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.AdminAPI.RequestTimeout)
	}
	if cfg.AdminAPI.MaxImportBytes <= 0 {
		return fmt.Errorf("max_import_bytes must be positive, got %d", cfg.AdminAPI.MaxImportBytes)
	}
	for i, a := range cfg.Arguments {
		if a.Owner == "" || a.Attribute == "" {
			return fmt.Errorf("arguments[%d]: owner and attribute are required", i)
		}
		if _, err := rules.ParseFieldType(a.Type); err != nil {
			return fmt.Errorf("arguments[%d]: %w", i, err)
		}
	}
	return nil
}

func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("hmac_secret") || v.InConfig("admin_api.hmac_secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use SB_HMAC_SECRET environment variable)")
	}
	return nil
}
