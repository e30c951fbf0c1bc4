// Command auditoriactl holds operational helpers for the tax-parameter service:
//
//	auditoriactl db migrate
//	auditoriactl token --subject payroll-admin --scope parametros:write
//	auditoriactl changes tail --count 20 --kind IRRF
//	auditoriactl queue stats
//	auditoriactl wait --addr http://localhost:8080
//
// Settings come from the same environment variables as the server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/auditoria360/auditoria360/internal/app"
)

var rootCmd = &cobra.Command{
	Use:           "auditoriactl",
	Short:         "Operate the Auditoria360 parameter service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() *app.Config {
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
