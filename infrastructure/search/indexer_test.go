package search_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisplabs/wisp/domain/registry"
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

// seedCorpus saves two servers with three extracted tools between them.
func seedCorpus(t *testing.T, db database.Database) {
	t.Helper()
	ctx := context.Background()
	servers := persistence.NewServerStore(db)
	require.NoError(t, servers.Save(ctx, persistence.ServerRecord{
		Server: registry.NewServer("io.example/files", "File operations over MCP", "1.0.0"),
	}))
	require.NoError(t, servers.Save(ctx, persistence.ServerRecord{
		Server: registry.NewServer("io.example/web", "Web lookup over MCP", "1.0.0"),
	}))

	tools := persistence.NewToolStore(db)
	require.NoError(t, tools.SaveExtraction(ctx, persistence.ExtractionResult{
		ServerName: "io.example/files",
		Tools: []registry.Tool{
			registry.NewTool("io.example/files", "read_file", "Read File", "Reads a file from disk"),
			registry.NewTool("io.example/files", "write_file", "Write File", "Writes a file to disk"),
		},
		Parameters: []registry.ToolParameter{
			registry.NewToolParameter("io.example/files", "read_file", "path", "string", "Path to read", true),
		},
	}))
	require.NoError(t, tools.SaveExtraction(ctx, persistence.ExtractionResult{
		ServerName: "io.example/web",
		Tools: []registry.Tool{
			registry.NewTool("io.example/web", "web_search", "Web Search", "Searches the web"),
		},
	}))
}

func TestIndexerBuildsDocs(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	seedCorpus(t, db)
	store := persistence.NewSearchStore(db)

	indexed, err := search.NewIndexer(persistence.NewToolStore(db), store, testLogger()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, indexed)

	count, err := store.DocCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// Parameters enter the embedded document; nothing is embedded yet.
	missing, err := store.MissingEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, missing, 3)
	assert.Contains(t, missing[0].FullDoc, "path: Path to read")
}

func TestIndexerRebuildDropsRemovedTools(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	seedCorpus(t, db)
	tools := persistence.NewToolStore(db)
	store := persistence.NewSearchStore(db)
	indexer := search.NewIndexer(tools, store, testLogger())

	_, err := indexer.Run(ctx)
	require.NoError(t, err)

	// A re-extraction without write_file shrinks the index on rebuild.
	require.NoError(t, tools.SaveExtraction(ctx, persistence.ExtractionResult{
		ServerName: "io.example/files",
		Tools: []registry.Tool{
			registry.NewTool("io.example/files", "read_file", "Read File", "Reads a file from disk"),
		},
	}))
	indexed, err := indexer.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, indexed)
}
