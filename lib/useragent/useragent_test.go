package useragent

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandom(t *testing.T) {
	agent, err := Random("24.3.1")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(agent, "TGTG/24.3.1 Dalvik/2.1.0"))

	matched := false
	for _, template := range templates {
		if agent == fmt.Sprintf(template, "24.3.1") {
			matched = true
		}
	}
	require.True(t, matched, "agent should come from the template list")
}

type staticFetcher struct {
	version string
	err     error
}

func (f staticFetcher) FetchAppVersion(ctx context.Context) (string, error) {
	return f.version, f.err
}

func TestFromStore(t *testing.T) {
	provider := FromStore(staticFetcher{version: "25.0.0"})
	agent := provider(context.Background())
	require.Contains(t, agent, "TGTG/25.0.0")
}

func TestFromStoreFallback(t *testing.T) {
	provider := FromStore(staticFetcher{err: fmt.Errorf("listing unreachable")})
	agent := provider(context.Background())
	require.Contains(t, agent, "TGTG/"+FallbackVersion)
}
