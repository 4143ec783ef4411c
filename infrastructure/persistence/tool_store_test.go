package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisplabs/wisp/domain/registry"
	"github.com/wisplabs/wisp/domain/signal"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/database"
	"github.com/wisplabs/wisp/internal/testdb"
)

func seedServer(t *testing.T, db database.Database, name string) {
	t.Helper()
	store := persistence.NewServerStore(db)
	record := persistence.ServerRecord{
		Server: registry.NewServer(name, "File operations over MCP", "1.0.0"),
	}
	require.NoError(t, store.Save(context.Background(), record))
}

func sampleExtraction(serverName string) persistence.ExtractionResult {
	return persistence.ExtractionResult{
		ServerName: serverName,
		Tools: []registry.Tool{
			registry.NewTool(serverName, "read_file", "Read File", "Reads a file from disk"),
			registry.NewTool(serverName, "write_file", "Write File", "Writes a file to disk"),
		},
		Parameters: []registry.ToolParameter{
			registry.NewToolParameter(serverName, "read_file", "path", "string", "Path to read", true),
		},
		Resources: []registry.Resource{
			registry.NewResource(serverName, "file:///tmp", "tmp", "Scratch dir", "inode/directory"),
		},
		Prompts: []registry.Prompt{
			registry.NewPrompt(serverName, "summarize", "Summarize", "Summarize a file", ""),
		},
	}
}

func TestToolStoreSaveExtractionReplaces(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	seedServer(t, db, "io.example/files")
	store := persistence.NewToolStore(db)

	require.NoError(t, store.SaveExtraction(ctx, sampleExtraction("io.example/files")))

	// A second extraction with one tool replaces the first set entirely.
	result := persistence.ExtractionResult{
		ServerName: "io.example/files",
		Tools: []registry.Tool{
			registry.NewTool("io.example/files", "read_file", "Read File", "Reads a file"),
		},
	}
	require.NoError(t, store.SaveExtraction(ctx, result))

	tools, err := store.ForServer(ctx, "io.example/files")
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "read_file", tools[0].Name())

	params, err := store.Parameters(ctx, "io.example/files", "read_file")
	require.NoError(t, err)
	assert.Empty(t, params)
}

func TestToolStoreAllIndexable(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	seedServer(t, db, "io.example/files")
	store := persistence.NewToolStore(db)
	require.NoError(t, store.SaveExtraction(ctx, sampleExtraction("io.example/files")))

	rows, err := store.AllIndexable(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "read_file", rows[0].ToolName)
	assert.Equal(t, "io.example/files", rows[0].ServerName)
	assert.Equal(t, "File operations over MCP", rows[0].ServerDescription)
	assert.NotZero(t, rows[0].ToolID)
}

func TestToolStoreExtractionStatusUpsert(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	seedServer(t, db, "io.example/files")
	store := persistence.NewToolStore(db)

	status := signal.NewExtractionStatus("io.example/files")
	status = status.MarkFailure(signal.ClassifyMessage("connection refused"), signal.MethodRemote, time.Now().UTC())
	require.NoError(t, store.SaveExtractionStatus(ctx, status))

	got, err := store.ExtractionStatus(ctx, "io.example/files")
	require.NoError(t, err)
	assert.Equal(t, signal.StatusTransientFailure, got.Status())
	assert.Equal(t, 1, got.RetryCount())

	status = got.MarkSuccess(signal.ExtractionCounts{Tools: 2, Resources: 1, Prompts: 1}, signal.MethodRemote, time.Now().UTC())
	require.NoError(t, store.SaveExtractionStatus(ctx, status))

	got, err = store.ExtractionStatus(ctx, "io.example/files")
	require.NoError(t, err)
	assert.Equal(t, signal.StatusSuccess, got.Status())
	assert.Equal(t, 0, got.RetryCount())
	assert.Equal(t, 2, got.Counts().Tools)
}

func TestToolStoreExtractionCandidates(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	store := persistence.NewToolStore(db)

	seedServer(t, db, "io.example/untried")
	seedServer(t, db, "io.example/transient")
	seedServer(t, db, "io.example/dead")
	seedServer(t, db, "io.example/done")

	transient := signal.NewExtractionStatus("io.example/transient").
		MarkFailure(signal.ClassifyMessage("timed out"), signal.MethodRemote, time.Now().UTC())
	require.NoError(t, store.SaveExtractionStatus(ctx, transient))

	dead := signal.NewExtractionStatus("io.example/dead").
		MarkFailure(signal.ClassifyHTTPStatus(404, "not found"), signal.MethodRemote, time.Now().UTC())
	require.NoError(t, store.SaveExtractionStatus(ctx, dead))

	done := signal.NewExtractionStatus("io.example/done").
		MarkSuccess(signal.ExtractionCounts{Tools: 1}, signal.MethodRemote, time.Now().UTC())
	require.NoError(t, store.SaveExtractionStatus(ctx, done))

	candidates, err := store.ExtractionCandidates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"io.example/transient", "io.example/untried"}, candidates)
}

func TestToolStoreLogConnection(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	seedServer(t, db, "io.example/files")
	store := persistence.NewToolStore(db)

	err := store.LogConnection(ctx, persistence.ConnectionAttempt{
		ServerName:     "io.example/files",
		ConnectionType: "remote",
		URLOrCommand:   "https://files.example.com/mcp",
		Success:        true,
		Counts:         signal.ExtractionCounts{Tools: 2},
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Session(ctx).Table("connection_log").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var attemptedAt time.Time
	require.NoError(t, db.Session(ctx).Table("connection_log").
		Select("attempted_at").Scan(&attemptedAt).Error)
	assert.False(t, attemptedAt.IsZero())
}
