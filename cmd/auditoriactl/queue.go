package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/auditoria360/auditoria360/cmd/auditoriactl/cli"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the change-log job queue",
}

var queueStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show task counts of the default queue",
	Run: func(cmd *cobra.Command, args []string) {
		c := cli.NewQueueCLI(loadConfig().Redis().AsynqOpt())
		defer c.Close()

		stats, err := c.Stats(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "queue stats: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(stats)
	},
}

var queueRequeueCmd = &cobra.Command{
	Use:   "requeue-archived",
	Short: "Retry change tasks that exhausted their retries",
	Run: func(cmd *cobra.Command, args []string) {
		c := cli.NewQueueCLI(loadConfig().Redis().AsynqOpt())
		defer c.Close()

		moved, err := c.RequeueArchived(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "queue requeue-archived: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("requeued %d task(s)\n", moved)
	},
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.AddCommand(queueStatsCmd, queueRequeueCmd)
}
