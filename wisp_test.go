package wisp_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	wisp "github.com/wisplabs/wisp"
	"github.com/wisplabs/wisp/application/service"
	"github.com/wisplabs/wisp/internal/config"
	"github.com/wisplabs/wisp/internal/log"
)

func newClient(t *testing.T, opts ...wisp.Option) *wisp.Client {
	t.Helper()
	base := []wisp.Option{
		wisp.WithDataDir(t.TempDir()),
		wisp.WithKeywordOnly(),
		wisp.WithLogger(log.NewLoggerWithWriter(io.Discard, config.LogFormatJSON, "error")),
	}
	client, err := wisp.New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewWiresAllServices(t *testing.T) {
	client := newClient(t)

	assert.NotNil(t, client.Ingest)
	assert.NotNil(t, client.Enrich)
	assert.NotNil(t, client.Scoring)
	assert.NotNil(t, client.Index)
	assert.NotNil(t, client.Extraction)
	assert.NotNil(t, client.Stats)
	assert.NotNil(t, client.Retriever)
	assert.NotNil(t, client.Gateway)
	assert.True(t, client.KeywordOnly())
}

func TestEnrichmentWorkerRoster(t *testing.T) {
	client := newClient(t)

	assert.Equal(t, []string{
		"github", "npm", "pypi", "docker",
		"glama", "dependents", "config_refs", "service_cost",
	}, client.Enrich.Workers())
}

func TestCuratedIngest(t *testing.T) {
	client := newClient(t)

	path := filepath.Join(t.TempDir(), "curated.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"- server: io.example/files\n  repo: awesome/mcp-servers\n  note: featured\n"), 0o600))

	loaded, err := client.Ingest.Curated(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded)
}

func TestStatsOverviewOnEmptyCatalog(t *testing.T) {
	client := newClient(t)

	overview, err := client.Stats.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), overview.Servers)
	assert.Equal(t, int64(0), overview.Tools)
	assert.Empty(t, overview.Extraction)
	assert.Equal(t, int64(0), overview.Signals["github"])
}

func TestIndexRunKeywordOnly(t *testing.T) {
	client := newClient(t)

	result, err := client.Index.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, service.IndexResult{}, result)
}

func TestWarmEmbedderKeywordOnly(t *testing.T) {
	client := newClient(t)
	require.NoError(t, client.WarmEmbedder(context.Background()))
}

func TestCloseTwice(t *testing.T) {
	client, err := wisp.New(
		wisp.WithDataDir(t.TempDir()),
		wisp.WithKeywordOnly(),
		wisp.WithLogger(log.NewLoggerWithWriter(io.Discard, config.LogFormatJSON, "error")),
	)
	require.NoError(t, err)

	require.NoError(t, client.Close())
	assert.ErrorIs(t, client.Close(), wisp.ErrClientClosed)
}
