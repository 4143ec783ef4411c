package enrich_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisplabs/wisp/domain/registry"
	"github.com/wisplabs/wisp/infrastructure/enrich"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/config"
	"github.com/wisplabs/wisp/internal/database"
	"github.com/wisplabs/wisp/internal/log"
	"github.com/wisplabs/wisp/internal/testdb"
)

func testLogger() *log.Logger {
	return log.NewLoggerWithWriter(io.Discard, config.LogFormatJSON, "error")
}

// seedServer persists a server with the given repository URL and packages.
func seedServer(t *testing.T, db database.Database, name, repoURL string, packages ...registry.Package) {
	t.Helper()
	server := registry.NewServerWithOptions(name, "Test server", "1.0.0",
		registry.WithRepository(repoURL, "github"),
		registry.WithStatus("active"),
		registry.WithLatest(true),
	)
	record := persistence.ServerRecord{Server: server, Packages: packages}
	require.NoError(t, persistence.NewServerStore(db).Save(context.Background(), record))
}

func npmPackage(serverName, identifier string) registry.Package {
	return registry.NewPackage(serverName, "npm", identifier, "1.0.0", "stdio")
}

// enrichmentStatus reads the persisted status row of one (server, source).
func enrichmentStatus(t *testing.T, db database.Database, serverName, enrichmentType string) (status, reason string) {
	t.Helper()
	var row struct {
		Status        string
		FailureReason string
	}
	err := db.Session(context.Background()).Table("enrichment_status").
		Select("status", "failure_reason").
		Where("server_name = ? AND enrichment_type = ?", serverName, enrichmentType).
		Scan(&row).Error
	require.NoError(t, err)
	return row.Status, row.FailureReason
}

type stubWorker struct {
	name string
	runs int
}

func (s *stubWorker) Name() string { return s.name }

func (s *stubWorker) Run(_ context.Context) (enrich.Stats, error) {
	s.runs++
	return enrich.Stats{Enriched: 1}, nil
}

func TestRunnerFiltersByName(t *testing.T) {
	a := &stubWorker{name: "a"}
	b := &stubWorker{name: "b"}
	runner := enrich.NewRunner(testLogger(), a, b)

	out, err := runner.Run(context.Background(), "b")
	require.NoError(t, err)
	assert.Zero(t, a.runs)
	assert.Equal(t, 1, b.runs)
	assert.Len(t, out, 1)
	assert.Equal(t, 1, out["b"].Enriched)
}

func TestRunnerRunsAllByDefault(t *testing.T) {
	a := &stubWorker{name: "a"}
	b := &stubWorker{name: "b"}
	runner := enrich.NewRunner(testLogger(), a, b)

	out, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, a.runs)
	assert.Equal(t, 1, b.runs)
	assert.Len(t, out, 2)
}

func TestSeedHelperPersists(t *testing.T) {
	db := testdb.New(t)
	seedServer(t, db, "io.example/files", "https://github.com/acme/files-mcp",
		npmPackage("io.example/files", "@acme/files-mcp"))

	packages, err := persistence.NewServerStore(db).Packages(context.Background(), "io.example/files")
	require.NoError(t, err)
	require.Len(t, packages, 1)
	assert.Equal(t, "@acme/files-mcp", packages[0].Identifier())
}
