package registry_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisplabs/wisp/domain/scoring"
	"github.com/wisplabs/wisp/infrastructure/fetch"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/infrastructure/registry"
	"github.com/wisplabs/wisp/internal/config"
	"github.com/wisplabs/wisp/internal/log"
	"github.com/wisplabs/wisp/internal/testdb"
)

func testLogger() *log.Logger {
	return log.NewLoggerWithWriter(io.Discard, config.LogFormatJSON, "error")
}

const entryTemplate = `{
	"server": {
		"$schema": "https://static.modelcontextprotocol.io/schemas/2025-09-29/server.schema.json",
		"name": %q,
		"description": "Reads and writes files",
		"version": "1.2.0",
		"repository": {"url": "https://github.com/acme/files-mcp", "source": "github"},
		"packages": [{
			"registryType": "npm",
			"identifier": "@acme/files-mcp",
			"version": "1.2.0",
			"transport": {"type": "stdio"},
			"environmentVariables": [
				{"name": "FILES_API_KEY", "description": "API key", "isRequired": true, "isSecret": true}
			]
		}],
		"remotes": [{
			"type": "streamable-http",
			"url": "https://files.example.com/mcp",
			"headers": [{"name": "Authorization", "value": "Bearer {token}"}]
		}],
		"icons": [{"src": "https://example.com/icon.png", "mimeType": "image/png", "sizes": ["48x48"]}]
	},
	"_meta": {
		"io.modelcontextprotocol.registry/official": {
			"status": "active",
			"isLatest": true,
			"publishedAt": "2025-06-01T12:00:00Z",
			"updatedAt": "2025-07-15T08:30:00Z"
		}
	}
}`

func registryFixture(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/servers", r.URL.Path)
		require.Equal(t, "100", r.URL.Query().Get("limit"))
		require.Equal(t, "latest", r.URL.Query().Get("version"))

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("cursor") == "" {
			fmt.Fprintf(w, `{"servers": [%s], "metadata": {"nextCursor": "page2"}}`,
				fmt.Sprintf(entryTemplate, "io.example/files"))
			return
		}
		fmt.Fprintf(w, `{"servers": [%s], "metadata": {}}`,
			fmt.Sprintf(entryTemplate, "io.example/notes"))
	}))
}

func TestIngestorFollowsCursor(t *testing.T) {
	upstream := registryFixture(t)
	defer upstream.Close()

	db := testdb.New(t)
	ctx := context.Background()
	servers := persistence.NewServerStore(db)

	client := registry.NewClient(upstream.URL, fetch.New(testLogger()), testLogger())
	ingestor := registry.NewIngestor(client, servers, testLogger())

	result, err := ingestor.Run(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Saved)
	assert.Zero(t, result.Failed)

	server, err := servers.Get(ctx, "io.example/files")
	require.NoError(t, err)
	assert.Equal(t, "active", server.Status())
	assert.True(t, server.IsLatest())
	require.NotNil(t, server.PublishedAt())
	assert.NotEmpty(t, server.RawJSON())

	remotes, err := servers.Remotes(ctx, "io.example/notes")
	require.NoError(t, err)
	require.Len(t, remotes, 1)
	assert.Equal(t, "Bearer {token}", remotes[0].Headers()["Authorization"])
}

func TestIngestorReingestReplacesChildren(t *testing.T) {
	upstream := registryFixture(t)
	defer upstream.Close()

	db := testdb.New(t)
	ctx := context.Background()
	servers := persistence.NewServerStore(db)

	client := registry.NewClient(upstream.URL, fetch.New(testLogger()), testLogger())
	ingestor := registry.NewIngestor(client, servers, testLogger())

	_, err := ingestor.Run(ctx, "")
	require.NoError(t, err)
	_, err = ingestor.Run(ctx, "")
	require.NoError(t, err)

	packages, err := servers.Packages(ctx, "io.example/files")
	require.NoError(t, err)
	assert.Len(t, packages, 1)

	vars, err := servers.EnvVars(ctx, "io.example/files")
	require.NoError(t, err)
	assert.Len(t, vars, 1)
	assert.True(t, vars[0].IsSecret())
}

func TestParseEntryRejectsNamelessServer(t *testing.T) {
	_, err := registry.ParseEntry(json.RawMessage(`{"server": {"description": "x"}}`))
	assert.Error(t, err)
}

func TestIngestorSkipsBadEntries(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"servers": [{"server": {}}, %s], "metadata": {}}`,
			fmt.Sprintf(entryTemplate, "io.example/files"))
	}))
	defer upstream.Close()

	db := testdb.New(t)
	servers := persistence.NewServerStore(db)
	client := registry.NewClient(upstream.URL, fetch.New(testLogger()), testLogger())
	ingestor := registry.NewIngestor(client, servers, testLogger())

	result, err := ingestor.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Saved)
	assert.Equal(t, 1, result.Failed)
}

func TestLoadCuratedAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curated.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- server: io.example/files
  repo: awesome-lists/awesome-mcp
  note: listed under file tools
- server: io.example/files
  repo: acme/mcp-showcase
`), 0o644))

	entries, err := registry.LoadCurated(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "awesome-lists/awesome-mcp", entries[0].Repo)

	db := testdb.New(t)
	ctx := context.Background()
	store := persistence.NewScoringStore(db)
	require.NoError(t, registry.SaveCurated(ctx, store, entries))

	edges, err := store.EdgesForServer(ctx, "io.example/files")
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, scoring.TierCurated, edges[0].Tier())
}

func TestLoadCuratedRejectsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curated.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- server: io.example/files\n"), 0o644))

	_, err := registry.LoadCurated(path)
	assert.Error(t, err)
}
