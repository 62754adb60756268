package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/solatis/switchboard/internal/core/auth"
	"github.com/solatis/switchboard/internal/core/config"
	"github.com/solatis/switchboard/internal/types"
	"github.com/spf13/cobra"
)

// hmacSecretBytes is the length of generated HMAC secrets.
const hmacSecretBytes = 32

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage admin API keys",
}

var apikeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an API key for a principal",
	RunE:  runAPIKeyCreate,
}

var apikeyRevokeCmd = &cobra.Command{
	Use:   "revoke <api-key-id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runAPIKeyRevoke,
}

var apikeySecretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Generate an HMAC secret for SB_HMAC_SECRET",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := newHMACSecret()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "SB_HMAC_SECRET=%s\n", value)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(apikeyCmd)
	apikeyCmd.AddCommand(apikeyCreateCmd, apikeyRevokeCmd, apikeySecretCmd)
	apikeyCreateCmd.Flags().String("principal", "", "principal the key authenticates as")
	apikeyCreateCmd.Flags().Bool("superuser", false, "allow privileged operations such as import")
	apikeyCreateCmd.MarkFlagRequired("principal")
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	database, queries, err := openDatabase(cmd.Context(), cfg, true)
	if err != nil {
		return err
	}
	defer database.Close()

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}

	principal, _ := cmd.Flags().GetString("principal")
	superuser, _ := cmd.Flags().GetBool("superuser")

	issued, err := auth.NewAuthenticator(secrets, queries, logger).Issue(cmd.Context(), principal, superuser)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "api_key_id: %s\n", issued.ID)
	fmt.Fprintf(out, "principal:  %s (superuser=%t)\n", issued.Principal, issued.Superuser)
	fmt.Fprintf(out, "api_key:    %s\n", issued.Key)
	fmt.Fprintln(out, "Store the key now; it cannot be shown again.")
	return nil
}

func runAPIKeyRevoke(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	database, queries, err := openDatabase(cmd.Context(), cfg, true)
	if err != nil {
		return err
	}
	defer database.Close()

	// Revocation only touches stored rows, so no secrets are needed.
	if err := auth.NewAuthenticator(nil, queries, logger).Revoke(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
	return nil
}

// newHMACSecret returns a fresh "<secret_id>:<base64 secret>" value.
func newHMACSecret() (string, error) {
	secret := make([]byte, hmacSecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return types.NewSecretID() + ":" + base64.StdEncoding.EncodeToString(secret), nil
}
