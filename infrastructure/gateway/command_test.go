package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStdioCommand(t *testing.T) {
	tests := []struct {
		name         string
		registryType string
		identifier   string
		runtimeHint  string
		want         Command
	}{
		{
			name:         "npm",
			registryType: "npm",
			identifier:   "@example/files-server",
			want:         Command{Name: "npx", Args: []string{"-y", "--quiet", "@example/files-server"}},
		},
		{
			name:         "pypi",
			registryType: "pypi",
			identifier:   "mcp-files",
			want:         Command{Name: "uvx", Args: []string{"--quiet", "mcp-files"}},
		},
		{
			name:         "oci",
			registryType: "oci",
			identifier:   "ghcr.io/example/files:latest",
			want:         Command{Name: "docker", Args: []string{"run", "--rm", "-i", "ghcr.io/example/files:latest"}},
		},
		{
			name:         "runtime hint wins",
			registryType: "npm",
			identifier:   "@example/files-server",
			runtimeHint:  "bunx",
			want:         Command{Name: "bunx", Args: []string{"@example/files-server"}},
		},
		{
			name:         "unknown registry falls back to npx",
			registryType: "mcpb",
			identifier:   "example-files",
			want:         Command{Name: "npx", Args: []string{"-y", "--quiet", "example-files"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StdioCommand(tt.registryType, tt.identifier, tt.runtimeHint))
		})
	}
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "uvx --quiet mcp-files", Command{Name: "uvx", Args: []string{"--quiet", "mcp-files"}}.String())
	assert.Equal(t, "node", Command{Name: "node"}.String())
}

func TestShellCommand(t *testing.T) {
	cmd := shellCommand("/srv/files server", Command{Name: "node", Args: []string{"dist/index.js"}})
	assert.Equal(t, "/bin/sh", cmd.Name)
	assert.Equal(t, []string{"-c", "cd '/srv/files server' && exec node dist/index.js"}, cmd.Args)
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "plain", shellQuote("plain"))
	assert.Equal(t, "'two words'", shellQuote("two words"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
	assert.Equal(t, "''", shellQuote(""))
}
