package watcher

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// store names the user types rarely match the listing names exactly
// ("aldi" vs "ALDI SÜD - Hauptstr. 1"), so substring containment is
// tried first and JaroWinkler catches typos.
const similarityThreshold = 0.85

func storeMatches(wanted, storeName string) bool {
	wanted = strings.ToLower(strings.TrimSpace(wanted))
	storeName = strings.ToLower(storeName)
	if wanted == "" {
		return false
	}
	if strings.Contains(storeName, wanted) {
		return true
	}
	return matchr.JaroWinkler(wanted, storeName, false) >= similarityThreshold
}

func matchesAny(stores []string, storeName string) bool {
	for _, wanted := range stores {
		if storeMatches(wanted, storeName) {
			return true
		}
	}
	return false
}
