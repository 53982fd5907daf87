package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in by email and store the session credentials.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := ensureConfig()
		client := newClient(cfg)

		err := client.EnsureLogin(cmd.Context())
		if err != nil {
			fatal("login failed", err)
		}

		persistCredentials(cfg, client)
		fmt.Println("logged in, credentials saved to", configPath)
	},
}
