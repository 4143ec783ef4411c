// Package smoke runs the full pipeline in-process against stubbed
// upstreams: ingest from a fake registry, extract tools from a live MCP
// backend, index, search and invoke.
package smoke

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	wisp "github.com/wisplabs/wisp"
	"github.com/wisplabs/wisp/application/service"
	"github.com/wisplabs/wisp/internal/config"
	"github.com/wisplabs/wisp/internal/log"
)

// fakeEmbedder maps texts onto a tiny fixed vector space so semantic
// retrieval is deterministic without a model.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		if strings.Contains(strings.ToLower(text), "echo") {
			vectors[i] = []float64{1, 0, 0}
		} else {
			vectors[i] = []float64{0, 1, 0}
		}
	}
	return vectors, nil
}

// startBackend runs an in-process MCP server with one echo tool.
func startBackend(t *testing.T) string {
	t.Helper()
	mcpSrv := mcpserver.NewMCPServer("smoke-backend", "1.0.0")
	mcpSrv.AddTool(
		mcp.NewTool("echo",
			mcp.WithDescription("Echoes the input back"),
			mcp.WithString("input", mcp.Required(), mcp.Description("Text to echo")),
		),
		func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := req.Params.Arguments.(map[string]any)
			input, _ := args["input"].(string)
			return mcp.NewToolResultText(input), nil
		},
	)

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(mcpSrv))
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts.URL + "/mcp"
}

// startRegistry serves a single-page registry listing one server whose
// remote endpoint points at the MCP backend.
func startRegistry(t *testing.T, backendURL string) string {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"servers": [{
				"server": {
					"name": "io.example/echo",
					"description": "Echo test server",
					"version": "1.0.0",
					"remotes": [{"type": "streamable-http", "url": %q}]
				},
				"_meta": {}
			}],
			"metadata": {}
		}`, backendURL)
	}))
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestSmoke(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping smoke test in short mode")
	}
	ctx := context.Background()

	backendURL := startBackend(t)
	client, err := wisp.New(
		wisp.WithDataDir(t.TempDir()),
		wisp.WithRegistryURL(startRegistry(t, backendURL)),
		wisp.WithEmbedder(fakeEmbedder{}),
		wisp.WithLogger(log.NewLoggerWithWriter(io.Discard, config.LogFormatJSON, "error")),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	// Ingest the registry mirror.
	ingested, err := client.Ingest.Run(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 1, ingested.Saved)

	// Extract the live tool inventory.
	extracted, err := client.Extraction.Run(ctx, service.ExtractOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, extracted.Succeeded)
	require.Equal(t, 1, extracted.Tools)

	// Build the search index.
	indexed, err := client.Index.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, service.IndexResult{Indexed: 1, Embedded: 1}, indexed)

	// Hybrid search finds the tool.
	resp, err := client.Retriever.Retrieve(ctx, "echo some text", 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, resp.TotalCandidates)
	assert.Equal(t, "echo", resp.Results[0].Name)
	assert.Equal(t, "io.example/echo", resp.Results[0].Server.Name)

	// Invoke it through the gateway.
	result, err := client.Gateway.Call(ctx, "io.example/echo", "echo",
		map[string]any{"input": "ping"})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "ping", text.Text)

	// The pipeline counters line up.
	overview, err := client.Stats.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), overview.Servers)
	assert.Equal(t, int64(1), overview.Tools)
}
