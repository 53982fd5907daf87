package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocationCompleteAtZeroCoordinates(t *testing.T) {
	// (0, 0) is a point in the Gulf of Guinea, not an unset location
	var cfg locationConfig
	require.NoError(t, json.Unmarshal([]byte(`{"lat": 0, "lon": 0, "range": 5}`), &cfg))
	require.True(t, cfg.complete())
	require.Equal(t, 0.0, *cfg.Lat)
	require.Equal(t, 0.0, *cfg.Lon)
}

func TestLocationIncompleteWhenUnset(t *testing.T) {
	var cfg locationConfig
	require.NoError(t, json.Unmarshal([]byte(`{"range": 5}`), &cfg))
	require.False(t, cfg.complete())

	require.False(t, locationConfig{}.complete())
}
