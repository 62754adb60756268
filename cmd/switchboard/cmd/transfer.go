package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/solatis/switchboard/internal/core/api"
	"github.com/spf13/cobra"
)

var (
	adminAddr string
	apiKey    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export switches from a running admin API as an armored block",
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import an armored switch block into a running admin API (superuser key)",
	RunE:  runImport,
}

func init() {
	for _, c := range []*cobra.Command{exportCmd, importCmd} {
		rootCmd.AddCommand(c)
		c.Flags().StringVar(&adminAddr, "addr", "localhost:50061", "admin API address")
		c.Flags().StringVar(&apiKey, "api-key", os.Getenv("SB_API_KEY"), "admin API key (default $SB_API_KEY)")
	}
	exportCmd.Flags().StringSlice("switch", nil, "switch to export (repeatable; default all)")
	exportCmd.Flags().String("out", "", "write the block to this file instead of stdout")
	importCmd.Flags().String("in", "", "read the block from this file instead of stdin")
}

func dialAdmin() (*api.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("--api-key or SB_API_KEY required")
	}
	return api.Dial(adminAddr, apiKey)
}

func runExport(cmd *cobra.Command, args []string) error {
	client, err := dialAdmin()
	if err != nil {
		return err
	}
	defer client.Close()

	names, _ := cmd.Flags().GetStringSlice("switch")
	block, err := client.ExportSwitches(cmd.Context(), names)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		return os.WriteFile(out, []byte(block+"\n"), 0o600)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), block)
	return err
}

func runImport(cmd *cobra.Command, args []string) error {
	var (
		block []byte
		err   error
	)
	if in, _ := cmd.Flags().GetString("in"); in != "" {
		block, err = os.ReadFile(in)
	} else {
		block, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read switch block: %w", err)
	}

	client, err := dialAdmin()
	if err != nil {
		return err
	}
	defer client.Close()

	resp, err := client.ImportSwitches(cmd.Context(), string(block))
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "import %s: %d registered, %d failed\n", resp.ImportID, len(resp.Registered), len(resp.Failed))
	for _, f := range resp.Failed {
		fmt.Fprintf(out, "  %s: %s\n", f.Name, f.Error)
	}
	return nil
}
