package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(itemCmd)
}

var itemCmd = &cobra.Command{
	Use:   "item <item id>",
	Short: "Show a single listing.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := ensureConfig()
		client := newClient(cfg)

		item, err := client.GetItem(cmd.Context(), args[0])
		if err != nil {
			fatal("failed to fetch item", err)
		}
		persistCredentials(cfg, client)

		out, err := json.MarshalIndent(item, "", "  ")
		if err != nil {
			fatal("failed to render item", err)
		}
		fmt.Println(string(out))
	},
}
