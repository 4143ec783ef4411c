package gateway_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisplabs/wisp/domain/registry"
	"github.com/wisplabs/wisp/domain/signal"
	"github.com/wisplabs/wisp/infrastructure/gateway"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/database"
	"github.com/wisplabs/wisp/internal/testdb"
)

func saveServer(t *testing.T, db database.Database, record persistence.ServerRecord) {
	t.Helper()
	servers := persistence.NewServerStore(db)
	require.NoError(t, servers.Save(context.Background(), record))
}

func TestResolverPrefersRemote(t *testing.T) {
	t.Setenv("RESOLVER_TEST_TOKEN", "tok-1")
	db := testdb.New(t)
	saveServer(t, db, persistence.ServerRecord{
		Server: registry.NewServer("io.example/hosted", "Hosted server", "1.0.0"),
		Packages: []registry.Package{
			registry.NewPackage("io.example/hosted", "npm", "@example/hosted", "1.0.0", "stdio"),
		},
		Remotes: []registry.Remote{
			registry.NewRemote("io.example/hosted", "streamable-http", "https://mcp.example.com/mcp",
				map[string]string{"Authorization": "Bearer ${RESOLVER_TEST_TOKEN}"}),
		},
	})

	resolver := gateway.NewResolver(persistence.NewServerStore(db))
	info, err := resolver.Resolve(context.Background(), "io.example/hosted")
	require.NoError(t, err)

	assert.Equal(t, signal.MethodRemote, info.Method)
	assert.Equal(t, "https://mcp.example.com/mcp", info.URL)
	assert.Equal(t, "Bearer tok-1", info.Headers["Authorization"])
	assert.Equal(t, "https://mcp.example.com/mcp", info.Target())
}

func TestResolverFallsBackToStdioPackage(t *testing.T) {
	db := testdb.New(t)
	saveServer(t, db, persistence.ServerRecord{
		Server: registry.NewServer("io.example/packaged", "Packaged server", "1.0.0"),
		Packages: []registry.Package{
			registry.NewPackage("io.example/packaged", "npm", "@example/packaged", "1.0.0", "sse"),
			registry.NewPackage("io.example/packaged", "pypi", "example-packaged", "1.0.0", "stdio"),
		},
	})

	resolver := gateway.NewResolver(persistence.NewServerStore(db))
	info, err := resolver.Resolve(context.Background(), "io.example/packaged")
	require.NoError(t, err)

	assert.Equal(t, signal.MethodStdio, info.Method)
	assert.Equal(t, "uvx --quiet example-packaged", info.Target())
}

func TestResolverFallsBackToLocalSource(t *testing.T) {
	t.Setenv("RESOLVER_TEST_LOCAL", "local-secret")
	db := testdb.New(t)
	saveServer(t, db, persistence.ServerRecord{
		Server: registry.NewServer("io.example/local", "Locally built server", "1.0.0"),
	})
	servers := persistence.NewServerStore(db)
	require.NoError(t, servers.SaveLocalSource(context.Background(),
		registry.NewLocalSource("io.example/local", "node", []string{"dist/index.js"}, "/srv/local",
			map[string]string{"API_KEY": "${RESOLVER_TEST_LOCAL}"})))

	resolver := gateway.NewResolver(servers)
	info, err := resolver.Resolve(context.Background(), "io.example/local")
	require.NoError(t, err)

	assert.Equal(t, signal.MethodLocal, info.Method)
	assert.Equal(t, "/bin/sh", info.Command.Name)
	assert.Equal(t, []string{"-c", "cd /srv/local && exec node dist/index.js"}, info.Command.Args)
	assert.Equal(t, "local-secret", info.Env["API_KEY"])
}

func TestResolverNoConnectionInfo(t *testing.T) {
	db := testdb.New(t)
	saveServer(t, db, persistence.ServerRecord{
		Server: registry.NewServer("io.example/bare", "Registry entry only", "1.0.0"),
		Packages: []registry.Package{
			registry.NewPackage("io.example/bare", "npm", "@example/bare", "1.0.0", "sse"),
		},
	})

	resolver := gateway.NewResolver(persistence.NewServerStore(db))
	_, err := resolver.Resolve(context.Background(), "io.example/bare")
	assert.ErrorIs(t, err, gateway.ErrNoConnectionInfo)
}
