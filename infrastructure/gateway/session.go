package gateway

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wisplabs/wisp/domain/signal"
)

// Session is one initialized MCP client connection.
type Session struct {
	client *client.Client
}

// Open dials a server and completes the MCP initialize handshake. The
// caller owns the session and must Close it.
func Open(ctx context.Context, info ConnectionInfo) (*Session, error) {
	var (
		tr  transport.Interface
		err error
	)
	switch info.Method {
	case signal.MethodRemote:
		var opts []transport.StreamableHTTPCOption
		if len(info.Headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(info.Headers))
		}
		tr, err = transport.NewStreamableHTTP(info.URL, opts...)
		if err != nil {
			return nil, fmt.Errorf("create http transport: %w", err)
		}
	case signal.MethodStdio, signal.MethodLocal:
		tr = transport.NewStdio(info.Command.Name, mergedEnv(info.Env), info.Command.Args...)
	default:
		return nil, fmt.Errorf("unknown connection method %q", info.Method)
	}

	c := client.NewClient(tr)
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("start %s transport: %w", info.Method, err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "wisp", Version: "0.1.0"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return &Session{client: c}, nil
}

// mergedEnv layers extra variables over the process environment. A nil
// result lets the transport inherit the environment untouched.
func mergedEnv(extra map[string]string) []string {
	if len(extra) == 0 {
		return nil
	}
	env := os.Environ()
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}

// Tools lists the server's tools.
func (s *Session) Tools(ctx context.Context) ([]mcp.Tool, error) {
	result, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// Resources lists the server's resources.
func (s *Session) Resources(ctx context.Context) ([]mcp.Resource, error) {
	result, err := s.client.ListResources(ctx, mcp.ListResourcesRequest{})
	if err != nil {
		return nil, err
	}
	return result.Resources, nil
}

// Prompts lists the server's prompts.
func (s *Session) Prompts(ctx context.Context) ([]mcp.Prompt, error) {
	result, err := s.client.ListPrompts(ctx, mcp.ListPromptsRequest{})
	if err != nil {
		return nil, err
	}
	return result.Prompts, nil
}

// Call invokes one tool with the given arguments.
func (s *Session) Call(ctx context.Context, toolName string, args map[string]any) (*mcp.CallToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args
	return s.client.CallTool(ctx, req)
}

// Close tears the connection down.
func (s *Session) Close() error {
	return s.client.Close()
}
