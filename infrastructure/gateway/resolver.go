package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/wisplabs/wisp/domain/signal"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/database"
)

// ErrNoConnectionInfo marks servers without any usable connection data.
// The HTTP layer maps it to a 404.
var ErrNoConnectionInfo = errors.New("no connection information")

// ConnectionInfo is everything needed to open one session to a server.
type ConnectionInfo struct {
	Method  string
	URL     string
	Headers map[string]string
	Command Command
	Env     map[string]string
}

// Target is the URL or launch line of the connection, for logs.
func (ci ConnectionInfo) Target() string {
	if ci.Method == signal.MethodRemote {
		return ci.URL
	}
	return ci.Command.String()
}

// Resolver picks the connection route for a server: a remote endpoint
// wins over a stdio package, which wins over a local source.
type Resolver struct {
	servers persistence.ServerStore
}

// NewResolver creates a Resolver.
func NewResolver(servers persistence.ServerStore) Resolver {
	return Resolver{servers: servers}
}

// Resolve returns the connection info for a server, with header and env
// placeholders already expanded. ErrNoConnectionInfo is returned when the
// server has no remote, no stdio package and no local source.
func (r Resolver) Resolve(ctx context.Context, serverName string) (ConnectionInfo, error) {
	remotes, err := r.servers.Remotes(ctx, serverName)
	if err != nil {
		return ConnectionInfo{}, err
	}
	for _, remote := range remotes {
		if remote.URL() == "" {
			continue
		}
		return ConnectionInfo{
			Method:  signal.MethodRemote,
			URL:     remote.URL(),
			Headers: ExpandMap(remote.Headers()),
		}, nil
	}

	packages, err := r.servers.Packages(ctx, serverName)
	if err != nil {
		return ConnectionInfo{}, err
	}
	for _, pkg := range packages {
		if pkg.TransportType() != "stdio" {
			continue
		}
		return ConnectionInfo{
			Method:  signal.MethodStdio,
			Command: StdioCommand(pkg.RegistryType(), pkg.Identifier(), pkg.RuntimeHint()),
		}, nil
	}

	local, err := r.servers.LocalSource(ctx, serverName)
	switch {
	case err == nil:
		cmd := Command{Name: local.Command(), Args: local.Args()}
		if dir := local.WorkingDir(); dir != "" {
			cmd = shellCommand(dir, cmd)
		}
		return ConnectionInfo{
			Method:  signal.MethodLocal,
			Command: cmd,
			Env:     ExpandMap(local.Env()),
		}, nil
	case errors.Is(err, database.ErrNotFound):
		return ConnectionInfo{}, fmt.Errorf("%w: %s", ErrNoConnectionInfo, serverName)
	default:
		return ConnectionInfo{}, err
	}
}
