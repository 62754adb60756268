package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/solatis/switchboard/internal/core/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("status", false, "show migration status instead of applying")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, _, err := openDatabase(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer database.Close()

	if status, _ := cmd.Flags().GetBool("status"); !status {
		if err := db.MigrateUp(cmd.Context(), database); err != nil {
			return err
		}
	}

	statuses, err := db.MigrateStatus(cmd.Context(), database)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MIGRATION\tAPPLIED\tAPPLIED AT")
	for _, s := range statuses {
		at := "-"
		if s.AppliedAt != nil {
			at = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%t\t%s\n", s.ID, s.Applied, at)
	}
	return w.Flush()
}
