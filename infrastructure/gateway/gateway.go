package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/log"
)

// DefaultCallTimeout bounds a whole invocation: dial, handshake and the
// tool call itself.
const DefaultCallTimeout = 60 * time.Second

// ErrCallTimeout marks invocations that ran out of time. The HTTP layer
// maps it to a 504.
var ErrCallTimeout = errors.New("tool call timed out")

// Gateway invokes tools on registered servers over short-lived MCP
// sessions.
type Gateway struct {
	resolver Resolver
	tools    persistence.ToolStore
	timeout  time.Duration
	logger   *log.Logger
}

// NewGateway creates a Gateway.
func NewGateway(resolver Resolver, tools persistence.ToolStore, logger *log.Logger) *Gateway {
	return &Gateway{
		resolver: resolver,
		tools:    tools,
		timeout:  DefaultCallTimeout,
		logger:   logger,
	}
}

// WithTimeout overrides the invocation timeout.
func (g *Gateway) WithTimeout(d time.Duration) *Gateway {
	if d > 0 {
		g.timeout = d
	}
	return g
}

// Call resolves the server's connection info, opens a session and invokes
// the tool. Every attempt lands in the connection log.
func (g *Gateway) Call(ctx context.Context, serverName, toolName string, args map[string]any) (*mcp.CallToolResult, error) {
	info, err := g.resolver.Resolve(ctx, serverName)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.invoke(ctx, info, toolName, args)
	if err != nil && ctx.Err() == context.DeadlineExceeded {
		err = fmt.Errorf("%w after %s: %v", ErrCallTimeout, g.timeout, err)
	}

	logErr := g.tools.LogConnection(context.WithoutCancel(ctx), persistence.ConnectionAttempt{
		ServerName:     serverName,
		ConnectionType: info.Method,
		URLOrCommand:   info.Target(),
		Success:        err == nil,
		ErrorMessage:   errString(err),
	})
	if logErr != nil {
		g.logger.WarnContext(ctx, "connection log write failed", "server", serverName, "error", logErr)
	}

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (g *Gateway) invoke(ctx context.Context, info ConnectionInfo, toolName string, args map[string]any) (*mcp.CallToolResult, error) {
	session, err := Open(ctx, info)
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close() }()
	return session.Call(ctx, toolName, args)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
