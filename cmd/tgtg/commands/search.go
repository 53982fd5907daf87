package commands

import (
	"os"
	"tgtgwatch/lib/tgtg"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var searchWithStock bool
var searchPhrase string

func init() {
	searchCmd.Flags().BoolVar(&searchWithStock, "with-stock", false, "only show listings with bags left")
	searchCmd.Flags().StringVar(&searchPhrase, "phrase", "", "free-text search phrase")
	rootCmd.AddCommand(searchCmd)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "List deals around the configured location.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := ensureConfig()
		client := newClient(cfg)

		items, err := client.Search(cmd.Context(), tgtg.SearchOptions{
			Latitude:      *cfg.Location.Lat,
			Longitude:     *cfg.Location.Lon,
			RadiusKm:      cfg.Location.Range,
			PageSize:      50,
			Page:          1,
			SearchPhrase:  searchPhrase,
			WithStockOnly: searchWithStock,
		})
		if err != nil {
			fatal("search failed", err)
		}
		persistCredentials(cfg, client)

		t := newTable()
		t.AppendHeader(table.Row{"store", "bags", "price", "was", "pickup", "rating"})
		for _, item := range items {
			pickup := item.PickupStart
			if pickup != "" {
				pickup += " - " + item.PickupEnd
			}
			t.AppendRow(table.Row{
				item.StoreName,
				item.ItemsAvailable,
				item.PriceAfter,
				item.PriceBefore,
				pickup,
				item.Rating,
			})
		}
		t.Render()
	},
}
