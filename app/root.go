// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dirgate",
	Short: "dirgate is a directory-backed authentication gateway",
	Long: `dirgate is an authentication gateway that verifies users against an
LDAP directory, a local database or an OIDC provider, provisions local
accounts for directory users and manages their sessions.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
