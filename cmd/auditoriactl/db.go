package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/auditoria360/auditoria360/internal/app"
	"github.com/auditoria360/auditoria360/internal/platform/db"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the database",
	Long:  `Manage the parametros schema and its migrations.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'db' requires a subcommand (migrate)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create and/or upgrade the database schema",
	Long: `Apply every pending migration to the database named by PG_DSN.

Example:
  auditoriactl db migrate`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if err := db.Migrate(cfg.PGDSN, app.NewLogger(cfg)); err != nil {
			fmt.Fprintln(os.Stderr, "Migration failed:", err)
			os.Exit(1)
		}
		fmt.Println("Schema is up to date")
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbMigrateCmd)
}
