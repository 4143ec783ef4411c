package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisplabs/wisp/domain/registry"
	domain "github.com/wisplabs/wisp/domain/search"
	"github.com/wisplabs/wisp/infrastructure/api"
	"github.com/wisplabs/wisp/infrastructure/gateway"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/infrastructure/search"
	"github.com/wisplabs/wisp/internal/config"
	"github.com/wisplabs/wisp/internal/database"
	"github.com/wisplabs/wisp/internal/log"
	"github.com/wisplabs/wisp/internal/testdb"
)

func testLogger() *log.Logger {
	return log.NewLoggerWithWriter(io.Discard, config.LogFormatJSON, "error")
}

// fakeEmbedder maps texts onto a tiny fixed vector space so semantic
// matches are deterministic.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		switch {
		case strings.Contains(strings.ToLower(text), "read"):
			vectors[i] = []float64{1, 0, 0}
		case strings.Contains(strings.ToLower(text), "write"):
			vectors[i] = []float64{0, 1, 0}
		default:
			vectors[i] = []float64{0, 0, 1}
		}
	}
	return vectors, nil
}

// seedIndex registers one server with two tools and builds the search
// index over them.
func seedIndex(t *testing.T, db database.Database) {
	t.Helper()
	ctx := context.Background()

	servers := persistence.NewServerStore(db)
	require.NoError(t, servers.Save(ctx, persistence.ServerRecord{
		Server: registry.NewServer("io.example/files", "File operations over MCP", "1.0.0"),
	}))

	tools := persistence.NewToolStore(db)
	require.NoError(t, tools.SaveExtraction(ctx, persistence.ExtractionResult{
		ServerName: "io.example/files",
		Tools: []registry.Tool{
			registry.NewTool("io.example/files", "read_file", "Read File", "Reads a file from disk"),
			registry.NewTool("io.example/files", "write_file", "Write File", "Writes a file to disk"),
		},
	}))

	store := persistence.NewSearchStore(db)
	indexer := search.NewIndexer(tools, store, testLogger())
	_, err := indexer.Run(ctx)
	require.NoError(t, err)
	updater := search.NewEmbeddingUpdater(store, fakeEmbedder{}, testLogger())
	_, err = updater.Run(ctx)
	require.NoError(t, err)
}

// buildHandler assembles the full route surface over a test database.
func buildHandler(t *testing.T, db database.Database, gw *gateway.Gateway, tokensFile string) http.Handler {
	t.Helper()
	store := persistence.NewSearchStore(db)
	retriever := search.NewRetriever(store, fakeEmbedder{}, testLogger())
	if gw == nil {
		resolver := gateway.NewResolver(persistence.NewServerStore(db))
		gw = gateway.NewGateway(resolver, persistence.NewToolStore(db), testLogger())
	}

	server := api.NewServer("127.0.0.1:0", testLogger())
	api.NewHandlers(retriever, gw, testLogger()).WithTokensFile(tokensFile).Mount(server.Router())
	return server.Router()
}

func getJSON(t *testing.T, handler http.Handler, path string, want int) map[string]any {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, want, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func postJSON(t *testing.T, handler http.Handler, path, payload string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	handler := buildHandler(t, testdb.New(t), nil, "")
	body := getJSON(t, handler, "/health", http.StatusOK)
	assert.Equal(t, "healthy", body["status"])
}

func TestKeys(t *testing.T) {
	tokens := filepath.Join(t.TempDir(), ".tokens")
	require.NoError(t, os.WriteFile(tokens, []byte("alpha\n\n# comment\nbeta\n"), 0o600))

	handler := buildHandler(t, testdb.New(t), nil, tokens)
	body := getJSON(t, handler, "/keys", http.StatusOK)
	assert.Equal(t, []any{"alpha", "beta"}, body["available_keys"])
}

func TestKeysMissingFile(t *testing.T) {
	handler := buildHandler(t, testdb.New(t), nil, filepath.Join(t.TempDir(), "absent"))
	body := getJSON(t, handler, "/keys", http.StatusOK)
	assert.Equal(t, []any{}, body["available_keys"])
}

func TestSearchValidation(t *testing.T) {
	handler := buildHandler(t, testdb.New(t), nil, "")

	for _, path := range []string{
		"/search",
		"/search?query=read&page=0",
		"/search?query=read&limit=0",
		"/search?query=read&limit=200",
		"/search?query=read&page=abc",
	} {
		body := getJSON(t, handler, path, http.StatusBadRequest)
		assert.NotEmpty(t, body["detail"], path)
	}
}

func TestSearch(t *testing.T) {
	db := testdb.New(t)
	seedIndex(t, db)
	handler := buildHandler(t, db, nil, "")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?query=read+a+file", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp domain.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "read a file", resp.Query)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 10, resp.Limit)
	require.Equal(t, 1, resp.TotalCandidates)
	assert.Equal(t, "read_file", resp.Results[0].Name)
	assert.Equal(t, "io.example/files", resp.Results[0].Server.Name)
}

func TestServerToolsEndpoint(t *testing.T) {
	db := testdb.New(t)
	seedIndex(t, db)
	handler := buildHandler(t, db, nil, "")

	path := "/servers/" + url.PathEscape("io.example/files") + "/tools"
	body := getJSON(t, handler, path, http.StatusOK)
	assert.Equal(t, "io.example/files", body["server"])
	assert.Equal(t, []any{"read_file", "write_file"}, body["tools"])
}

// startEchoServer runs an in-process MCP backend with an echo tool and a
// tool that never returns in time.
func startEchoServer(t *testing.T) string {
	t.Helper()
	mcpSrv := mcpserver.NewMCPServer("api-test-backend", "1.0.0")
	mcpSrv.AddTool(
		mcp.NewTool("echo",
			mcp.WithDescription("Echoes the input back"),
			mcp.WithString("input", mcp.Required()),
		),
		func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := req.Params.Arguments.(map[string]any)
			input, _ := args["input"].(string)
			return mcp.NewToolResultText(input), nil
		},
	)
	mcpSrv.AddTool(
		mcp.NewTool("sleep", mcp.WithDescription("Blocks until cancelled")),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	)

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(mcpSrv))
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts.URL + "/mcp"
}

func saveRemote(t *testing.T, db database.Database, name, endpoint string) {
	t.Helper()
	servers := persistence.NewServerStore(db)
	require.NoError(t, servers.Save(context.Background(), persistence.ServerRecord{
		Server: registry.NewServer(name, "Test server", "1.0.0"),
		Remotes: []registry.Remote{
			registry.NewRemote(name, "streamable-http", endpoint, nil),
		},
	}))
}

func TestCall(t *testing.T) {
	db := testdb.New(t)
	saveRemote(t, db, "io.example/echo", startEchoServer(t))
	handler := buildHandler(t, db, nil, "")

	rec := postJSON(t, handler, "/call",
		`{"server_name":"io.example/echo","tool_name":"echo","arguments":{"input":"ping"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.Equal(t, "ping", result.Content[0].Text)
}

func TestCallUnknownServer(t *testing.T) {
	handler := buildHandler(t, testdb.New(t), nil, "")

	rec := postJSON(t, handler, "/call", `{"server_name":"io.example/ghost","tool_name":"echo"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no connection information")
}

func TestCallTimeout(t *testing.T) {
	db := testdb.New(t)
	saveRemote(t, db, "io.example/slow", startEchoServer(t))

	resolver := gateway.NewResolver(persistence.NewServerStore(db))
	gw := gateway.NewGateway(resolver, persistence.NewToolStore(db), testLogger()).
		WithTimeout(200 * time.Millisecond)
	handler := buildHandler(t, db, gw, "")

	rec := postJSON(t, handler, "/call", `{"server_name":"io.example/slow","tool_name":"sleep"}`)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestCallValidation(t *testing.T) {
	handler := buildHandler(t, testdb.New(t), nil, "")

	rec := postJSON(t, handler, "/call", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, handler, "/call", `{"server_name":"io.example/echo"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
