package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/auditoria360/auditoria360/cmd/auditoriactl/cli"
	"github.com/auditoria360/auditoria360/internal/audit"
	"github.com/auditoria360/auditoria360/internal/platform/cache"
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Inspect the parameter change stream",
}

var changesTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print the newest change-log entries",
	Long: `Print the newest entries of the Redis change stream (AUDIT_SINK=redis).

Example:
  auditoriactl changes tail --count 50 --kind FGTS --json`,
	Run: func(cmd *cobra.Command, args []string) {
		count, _ := cmd.Flags().GetInt64("count")
		kind, _ := cmd.Flags().GetString("kind")
		asJSON, _ := cmd.Flags().GetBool("json")

		cfg := loadConfig()
		ctx := context.Background()
		client, err := cache.New(ctx, cfg.Redis())
		if err != nil {
			fmt.Fprintf(os.Stderr, "changes tail: %v\n", err)
			os.Exit(1)
		}
		defer client.Close()

		reader := audit.NewStreamLog(client, cfg.AuditStream, cfg.AuditStreamMaxLen)
		code := cli.ChangesTailCommand(ctx, reader, cli.ChangesOptions{
			Count:      count,
			Kind:       kind,
			JSONOutput: asJSON,
		})
		if code != 0 {
			os.Exit(code)
		}
	},
}

func init() {
	rootCmd.AddCommand(changesCmd)
	changesCmd.AddCommand(changesTailCmd)
	changesTailCmd.Flags().Int64P("count", "n", 20, "Number of entries to read")
	changesTailCmd.Flags().String("kind", "", "Only show entries of this kind (IRRF or FGTS, any case); --count then counts matches")
	changesTailCmd.Flags().Bool("json", false, "Print entries as JSON")
}
