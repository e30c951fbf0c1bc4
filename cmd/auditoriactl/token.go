package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/auditoria360/auditoria360/cmd/auditoriactl/cli"
	"github.com/auditoria360/auditoria360/internal/authn"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign an admin bearer token",
	Long: `Sign an HS256 bearer token for the /parametros endpoints.

The secret defaults to ADMIN_JWT_SECRET. Mutations need the
parametros:write scope.

Example:
  auditoriactl token --subject payroll-admin --scope parametros:write --ttl 8h`,
	Run: func(cmd *cobra.Command, args []string) {
		secret, _ := cmd.Flags().GetString("secret")
		if secret == "" {
			secret = os.Getenv("ADMIN_JWT_SECRET")
		}
		subject, _ := cmd.Flags().GetString("subject")
		scopes, _ := cmd.Flags().GetStringSlice("scope")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		os.Exit(cli.TokenCommand(cli.TokenOptions{
			Secret:  secret,
			Subject: subject,
			Scopes:  scopes,
			TTL:     ttl,
		}))
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().String("secret", "", "HMAC secret (defaults to ADMIN_JWT_SECRET)")
	tokenCmd.Flags().StringP("subject", "s", "", "Token subject recorded as the change actor")
	tokenCmd.Flags().StringSlice("scope", []string{authn.ScopeWrite}, "Scopes granted to the token")
	tokenCmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
}
