package watcher

import (
	"testing"
	"tgtgwatch/lib/tgtg"

	"github.com/stretchr/testify/require"
)

func TestNotificationBody(t *testing.T) {
	body := notificationBody([]tgtg.Item{
		{
			StoreName:      "Corner Bakery",
			ItemsAvailable: 2,
			PriceAfter:     "10.50EUR",
			PriceBefore:    "30.00EUR",
			PickupStart:    "Mon 04 Mar 10:00",
			PickupEnd:      "Mon 04 Mar 11:00",
			Address:        "1 Baker St, London",
		},
		{
			StoreName:      "Sushi Corner",
			ItemsAvailable: 1,
			PriceAfter:     "5.00EUR",
			Address:        "2 Baker St, London",
		},
	})

	require.Contains(t, body, "Corner Bakery: 2 bag(s) for 10.50EUR (was 30.00EUR)")
	require.Contains(t, body, "pickup Mon 04 Mar 10:00 to Mon 04 Mar 11:00")
	require.Contains(t, body, "Sushi Corner: 1 bag(s) for 5.00EUR")

	for _, r := range body {
		require.Less(t, r, rune(128), "body must stay plain ascii")
	}
}
