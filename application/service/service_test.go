package service_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisplabs/wisp/application/service"
	"github.com/wisplabs/wisp/domain/registry"
	"github.com/wisplabs/wisp/domain/signal"
	"github.com/wisplabs/wisp/infrastructure/enrich"
	"github.com/wisplabs/wisp/infrastructure/gateway"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/infrastructure/scoring"
	"github.com/wisplabs/wisp/infrastructure/search"
	"github.com/wisplabs/wisp/internal/config"
	"github.com/wisplabs/wisp/internal/database"
	"github.com/wisplabs/wisp/internal/log"
	"github.com/wisplabs/wisp/internal/testdb"
)

func testLogger() *log.Logger {
	return log.NewLoggerWithWriter(io.Discard, config.LogFormatJSON, "error")
}

func saveServer(t *testing.T, db database.Database, record persistence.ServerRecord) {
	t.Helper()
	require.NoError(t, persistence.NewServerStore(db).Save(context.Background(), record))
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i := range texts {
		vectors[i] = []float64{1, 0, 0}
	}
	return vectors, nil
}

func TestIngestCurated(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "curated.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
		"- server: io.example/files",
		"  repo: awesome/mcp-servers",
		"  note: featured",
		"- server: io.example/files",
		"  repo: lists/top-tools",
	}, "\n")), 0o600))

	scores := persistence.NewScoringStore(db)
	svc := service.NewIngest(nil, scores, testLogger())

	loaded, err := svc.Curated(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)

	edges, err := scores.EdgesForServer(ctx, "io.example/files")
	require.NoError(t, err)
	assert.Len(t, edges, 2)
}

func TestIngestCuratedRejectsIncompleteEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curated.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- server: io.example/files\n"), 0o600))

	svc := service.NewIngest(nil, persistence.NewScoringStore(testdb.New(t)), testLogger())
	_, err := svc.Curated(context.Background(), path)
	assert.ErrorContains(t, err, "server and repo are required")
}

// candidateWorker reports how many servers the github candidate query
// currently yields.
type candidateWorker struct {
	signals persistence.SignalStore
}

func (candidateWorker) Name() string { return "github" }

func (w candidateWorker) Run(ctx context.Context) (enrich.Stats, error) {
	names, err := w.signals.Candidates(ctx, "github", "github_signals", signal.StalenessRepo)
	if err != nil {
		return enrich.Stats{}, err
	}
	return enrich.Stats{Enriched: len(names)}, nil
}

func TestEnrichmentCleanRetriesPermanentFailures(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	saveServer(t, db, persistence.ServerRecord{
		Server: registry.NewServer("io.example/gone", "Vanished server", "1.0.0"),
	})
	signals := persistence.NewSignalStore(db)
	require.NoError(t, signals.SaveStatus(ctx, signal.NewEnrichmentFailure(
		"io.example/gone", "github", signal.ClassifyHTTPStatus(404, "repo deleted"))))

	svc := service.NewEnrichment(
		enrich.NewRunner(testLogger(), candidateWorker{signals}), signals, testLogger())

	// The permanent failure keeps the server out of the candidate set.
	stats, err := svc.Run(ctx, service.EnrichOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, stats["github"].Enriched)

	// Clean wipes the status row so the server is attempted again.
	stats, err = svc.Run(ctx, service.EnrichOptions{Clean: true})
	require.NoError(t, err)
	assert.Equal(t, 1, stats["github"].Enriched)
}

func TestIndexRun(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	saveServer(t, db, persistence.ServerRecord{
		Server: registry.NewServer("io.example/files", "File operations", "1.0.0"),
	})
	tools := persistence.NewToolStore(db)
	require.NoError(t, tools.SaveExtraction(ctx, persistence.ExtractionResult{
		ServerName: "io.example/files",
		Tools: []registry.Tool{
			registry.NewTool("io.example/files", "read_file", "Read File", "Reads a file"),
			registry.NewTool("io.example/files", "write_file", "Write File", "Writes a file"),
		},
	}))

	store := persistence.NewSearchStore(db)
	svc := service.NewIndex(
		search.NewIndexer(tools, store, testLogger()),
		search.NewEmbeddingUpdater(store, fakeEmbedder{}, testLogger()),
		testLogger())

	result, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, service.IndexResult{Indexed: 2, Embedded: 2}, result)

	// Second run re-indexes but finds nothing left to embed.
	result, err = svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, service.IndexResult{Indexed: 2, Embedded: 0}, result)
}

func TestIndexRunKeywordOnly(t *testing.T) {
	db := testdb.New(t)
	svc := service.NewIndex(
		search.NewIndexer(persistence.NewToolStore(db), persistence.NewSearchStore(db), testLogger()),
		nil, testLogger())

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, service.IndexResult{}, result)
}

func newExtraction(db database.Database) *service.Extraction {
	servers := persistence.NewServerStore(db)
	return service.NewExtraction(gateway.NewResolver(servers), servers,
		persistence.NewToolStore(db), testLogger())
}

func TestExtractionConnectableFilters(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	saveServer(t, db, persistence.ServerRecord{
		Server: registry.NewServer("io.example/remote", "Remote server", "1.0.0"),
		Remotes: []registry.Remote{
			registry.NewRemote("io.example/remote", "streamable-http", "https://mcp.example.com/mcp", nil),
		},
	})
	saveServer(t, db, persistence.ServerRecord{
		Server: registry.NewServer("io.example/packaged", "Packaged server", "1.0.0"),
		Packages: []registry.Package{
			registry.NewPackage("io.example/packaged", "npm", "example-pkg", "1.0.0", "stdio"),
		},
	})

	all, err := newExtraction(db).Connectable(ctx, service.ExtractOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	remote, err := newExtraction(db).Connectable(ctx, service.ExtractOptions{RemoteOnly: true})
	require.NoError(t, err)
	require.Len(t, remote, 1)
	assert.Equal(t, "io.example/remote", remote[0].ServerName)

	local, err := newExtraction(db).Connectable(ctx, service.ExtractOptions{LocalOnly: true})
	require.NoError(t, err)
	require.Len(t, local, 1)
	assert.Equal(t, "io.example/packaged", local[0].ServerName)
}

func TestExtractionCleanResetsStatuses(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	saveServer(t, db, persistence.ServerRecord{
		Server: registry.NewServer("io.example/dead", "Dead server", "1.0.0"),
	})
	tools := persistence.NewToolStore(db)
	status := signal.NewExtractionStatus("io.example/dead")
	status = status.MarkFailure(signal.NewFailure(signal.FailurePermanent, signal.ReasonNotFound, "gone"),
		signal.MethodRemote, time.Now().UTC())
	require.NoError(t, tools.SaveExtractionStatus(ctx, status))

	// A permanently failed server with no connection info is not retried
	// and Run attempts nothing, but Clean must wipe its status row.
	svc := newExtraction(db)
	_, err := svc.Run(ctx, service.ExtractOptions{Clean: true})
	require.NoError(t, err)

	_, err = tools.ExtractionStatus(ctx, "io.example/dead")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestStatisticsOverview(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	saveServer(t, db, persistence.ServerRecord{
		Server: registry.NewServer("io.example/files", "File operations", "1.0.0"),
	})
	tools := persistence.NewToolStore(db)
	require.NoError(t, tools.SaveExtraction(ctx, persistence.ExtractionResult{
		ServerName: "io.example/files",
		Tools: []registry.Tool{
			registry.NewTool("io.example/files", "read_file", "", "Reads a file"),
		},
		Resources: []registry.Resource{
			registry.NewResource("io.example/files", "files://readme", "readme", "", "text/plain"),
		},
	}))
	status := signal.NewExtractionStatus("io.example/files")
	status = status.MarkSuccess(signal.ExtractionCounts{Tools: 1, Resources: 1},
		signal.MethodRemote, time.Now().UTC())
	require.NoError(t, tools.SaveExtractionStatus(ctx, status))

	signals := persistence.NewSignalStore(db)
	require.NoError(t, signals.SaveGitHub(ctx, signal.NewGitHubRepo("io.example/files", "example", "files")))

	svc := service.NewStatistics(persistence.NewServerStore(db), tools, signals, testLogger())
	overview, err := svc.Overview(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), overview.Servers)
	assert.Equal(t, int64(1), overview.Tools)
	assert.Equal(t, int64(1), overview.Resources)
	assert.Equal(t, int64(0), overview.Prompts)
	assert.Equal(t, int64(1), overview.Extraction[signal.StatusSuccess])
	assert.Equal(t, int64(1), overview.Signals["github"])
	assert.Equal(t, int64(0), overview.Signals["downloads"])
}

func TestScoringRankEmptyCatalog(t *testing.T) {
	db := testdb.New(t)
	svc := service.NewScoring(nil,
		scoring.NewMarketRanker(persistence.NewScoringStore(db), testLogger()), testLogger())

	ranked, err := svc.Rank(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, ranked)
}
