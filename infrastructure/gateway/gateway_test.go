package gateway_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisplabs/wisp/domain/registry"
	"github.com/wisplabs/wisp/infrastructure/gateway"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/config"
	"github.com/wisplabs/wisp/internal/database"
	"github.com/wisplabs/wisp/internal/log"
	"github.com/wisplabs/wisp/internal/testdb"
)

func testLogger() *log.Logger {
	return log.NewLoggerWithWriter(io.Discard, config.LogFormatJSON, "error")
}

// startToolServer runs an in-process MCP server over streamable HTTP and
// returns its endpoint URL. It exposes:
//   - tool "echo": returns the "input" argument as text
//   - tool "sleep": blocks until the request is cancelled
//   - resource "files://readme": static text
//   - prompt "summarize": one-argument prompt template
func startToolServer(t *testing.T) string {
	t.Helper()

	mcpSrv := mcpserver.NewMCPServer("gateway-test-backend", "1.0.0")

	mcpSrv.AddTool(
		mcp.NewTool("echo",
			mcp.WithDescription("Echoes the input back"),
			mcp.WithTitleAnnotation("Echo"),
			mcp.WithString("input",
				mcp.Required(),
				mcp.Description("Text to echo"),
			),
			mcp.WithString("mode",
				mcp.Description("Output casing"),
				mcp.Enum("plain", "upper"),
				mcp.DefaultString("plain"),
			),
		),
		func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := req.Params.Arguments.(map[string]any)
			input, _ := args["input"].(string)
			return mcp.NewToolResultText(input), nil
		},
	)

	mcpSrv.AddTool(
		mcp.NewTool("sleep",
			mcp.WithDescription("Blocks until the call is cancelled"),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(30 * time.Second):
				return mcp.NewToolResultText("woke"), nil
			}
		},
	)

	mcpSrv.AddResource(
		mcp.Resource{URI: "files://readme", Name: "Readme", MIMEType: "text/plain"},
		func(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			return []mcp.ResourceContents{
				mcp.TextResourceContents{URI: "files://readme", MIMEType: "text/plain", Text: "hello"},
			}, nil
		},
	)

	mcpSrv.AddPrompt(
		mcp.NewPrompt("summarize",
			mcp.WithPromptDescription("Summarizes a document"),
			mcp.WithArgument("uri", mcp.ArgumentDescription("Document to summarize"), mcp.RequiredArgument()),
		),
		func(_ context.Context, _ mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			return &mcp.GetPromptResult{
				Messages: []mcp.PromptMessage{
					{Role: "user", Content: mcp.NewTextContent("Summarize this.")},
				},
			}, nil
		},
	)

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(mcpSrv))
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts.URL + "/mcp"
}

// startEmptyServer runs an MCP server that advertises tool support but has
// nothing to list.
func startEmptyServer(t *testing.T) string {
	t.Helper()
	mcpSrv := mcpserver.NewMCPServer("empty-test-backend", "1.0.0", mcpserver.WithToolCapabilities(true))
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(mcpSrv))
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts.URL + "/mcp"
}

// saveRemoteServer registers a server reachable at the given URL.
func saveRemoteServer(t *testing.T, db database.Database, name, url string) {
	t.Helper()
	saveServer(t, db, persistence.ServerRecord{
		Server: registry.NewServer(name, "Test server", "1.0.0"),
		Remotes: []registry.Remote{
			registry.NewRemote(name, "streamable-http", url, nil),
		},
	})
}

func newGateway(db database.Database) *gateway.Gateway {
	resolver := gateway.NewResolver(persistence.NewServerStore(db))
	return gateway.NewGateway(resolver, persistence.NewToolStore(db), testLogger())
}

func connectionLog(t *testing.T, db database.Database) []persistence.ConnectionLogModel {
	t.Helper()
	var logs []persistence.ConnectionLogModel
	require.NoError(t, db.Session(context.Background()).Order("id").Find(&logs).Error)
	return logs
}

func TestGatewayCall(t *testing.T) {
	db := testdb.New(t)
	saveRemoteServer(t, db, "io.example/echo", startToolServer(t))

	result, err := newGateway(db).Call(context.Background(), "io.example/echo", "echo",
		map[string]any{"input": "ping"})
	require.NoError(t, err)

	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "ping", text.Text)

	logs := connectionLog(t, db)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Success)
	assert.Equal(t, "remote", logs[0].ConnectionType)
	assert.Equal(t, "io.example/echo", logs[0].ServerName)
}

func TestGatewayCallUnknownServer(t *testing.T) {
	db := testdb.New(t)

	_, err := newGateway(db).Call(context.Background(), "io.example/ghost", "echo", nil)
	assert.ErrorIs(t, err, gateway.ErrNoConnectionInfo)
	assert.Empty(t, connectionLog(t, db))
}

func TestGatewayCallTimeout(t *testing.T) {
	db := testdb.New(t)
	saveRemoteServer(t, db, "io.example/slow", startToolServer(t))

	g := newGateway(db).WithTimeout(200 * time.Millisecond)
	_, err := g.Call(context.Background(), "io.example/slow", "sleep", nil)
	assert.ErrorIs(t, err, gateway.ErrCallTimeout)

	logs := connectionLog(t, db)
	require.Len(t, logs, 1)
	assert.False(t, logs[0].Success)
	assert.Contains(t, logs[0].ErrorMessage, "timed out")
}

func TestGatewayCallUnknownTool(t *testing.T) {
	db := testdb.New(t)
	saveRemoteServer(t, db, "io.example/echo", startToolServer(t))

	_, err := newGateway(db).Call(context.Background(), "io.example/echo", "does_not_exist", nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, gateway.ErrCallTimeout)
	assert.NotErrorIs(t, err, gateway.ErrNoConnectionInfo)
}
