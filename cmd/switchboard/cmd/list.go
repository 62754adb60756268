package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/solatis/switchboard/internal/core/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored switches",
	RunE:  runList,
}

var choicesCmd = &cobra.Command{
	Use:   "choices",
	Short: "Show the operators and configured arguments conditions can use",
	RunE:  runChoices,
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(choicesCmd)
	listCmd.Flags().String("format", "yaml", "output format (yaml, json)")
	choicesCmd.Flags().String("format", "yaml", "output format (yaml, json)")
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, queries, err := openDatabase(cmd.Context(), cfg, true)
	if err != nil {
		return err
	}
	defer database.Close()

	switches, err := store.NewSQL(queries).Switches(cmd.Context())
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	return render(cmd.OutOrStdout(), format, switches)
}

func runChoices(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	operators, arguments, err := registries(cfg)
	if err != nil {
		return err
	}

	view := struct {
		Operators         any                 `json:"operators" yaml:"operators"`
		Arguments         any                 `json:"arguments" yaml:"arguments"`
		OperatorArguments map[string][]string `json:"operator_arguments" yaml:"operator_arguments"`
	}{
		Operators:         operators.Choices(),
		Arguments:         arguments.Choices(),
		OperatorArguments: operators.Arguments(),
	}

	format, _ := cmd.Flags().GetString("format")
	return render(cmd.OutOrStdout(), format, view)
}

func render(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported format: %s (expected yaml or json)", format)
	}
}
