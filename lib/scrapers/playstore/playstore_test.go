package playstore

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// builds a ds:5 blob with the version planted at data[1][2][140][0][0][0]
func buildInitData(t *testing.T, version string) string {
	node := any(version)
	for i := len(versionPath) - 1; i >= 0; i-- {
		arr := make([]any, versionPath[i]+1)
		for j := range arr {
			arr[j] = "pad"
		}
		arr[versionPath[i]] = node
		node = arr
	}
	blob, err := json.Marshal(node)
	require.NoError(t, err)
	return string(blob)
}

func buildListing(t *testing.T, version string) string {
	return fmt.Sprintf(
		`<html><head><script>var x = 1;</script></head><body>
		<script nonce="abc">AF_initDataCallback({key: 'ds:3', hash: '2', data:["unrelated"], sideChannel: {}});</script>
		<script nonce="abc">AF_initDataCallback({key: 'ds:5', hash: '7', data:%s, sideChannel: {}});</script>
		</body></html>`,
		buildInitData(t, version),
	)
}

func TestVersionFromListing(t *testing.T) {
	version, err := versionFromListing(strings.NewReader(buildListing(t, "24.3.1")))
	require.NoError(t, err)
	require.Equal(t, "24.3.1", version)
}

func TestVersionFromListingMissingBlob(t *testing.T) {
	_, err := versionFromListing(strings.NewReader("<html><body><script>var y = 2;</script></body></html>"))
	require.Error(t, err)
}

func TestVersionFromInitDataBadShape(t *testing.T) {
	_, err := versionFromInitData(`[["too"], ["shallow"]]`)
	require.Error(t, err)
}
