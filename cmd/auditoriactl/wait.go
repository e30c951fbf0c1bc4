package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for the server to report healthy",
	Long: `Poll /healthz until the server answers 200 or the retries run out.

Example:
  auditoriactl wait --addr http://localhost:8080 --retries 60`,
	Run: func(cmd *cobra.Command, args []string) {
		addr, _ := cmd.Flags().GetString("addr")
		retries, _ := cmd.Flags().GetInt("retries")

		if err := waitForServer(addr, retries); err != nil {
			fmt.Fprintf(os.Stderr, "Server did not become ready: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Server is ready")
	},
}

func init() {
	rootCmd.AddCommand(waitCmd)
	waitCmd.Flags().String("addr", "http://localhost:8080", "Base URL of the server")
	waitCmd.Flags().IntP("retries", "r", 30, "Number of retries")
}

func waitForServer(addr string, retries int) error {
	url := strings.TrimRight(addr, "/") + "/healthz"
	client := &http.Client{Timeout: 2 * time.Second}

	var lastErr error
	for i := 0; i < retries; i++ {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
			err = fmt.Errorf("status %d", resp.StatusCode)
		}
		lastErr = err
		time.Sleep(time.Second)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no attempts made")
	}
	return lastErr
}
