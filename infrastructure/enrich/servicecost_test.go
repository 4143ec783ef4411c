package enrich_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisplabs/wisp/domain/registry"
	"github.com/wisplabs/wisp/domain/signal"
	"github.com/wisplabs/wisp/infrastructure/enrich"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/database"
	"github.com/wisplabs/wisp/internal/testdb"
)

// seedServerWithSecret persists a server declaring one secret variable.
func seedServerWithSecret(t *testing.T, db database.Database, name, varName string) {
	t.Helper()
	server := registry.NewServerWithOptions(name, "Test server", "1.0.0",
		registry.WithStatus("active"))
	record := persistence.ServerRecord{
		Server: server,
		EnvVars: []registry.EnvVar{
			registry.NewEnvVar(name, varName, "credential", true, true),
		},
	}
	require.NoError(t, persistence.NewServerStore(db).Save(context.Background(), record))
}

func TestServiceCostAnalyzer(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	seedServerWithSecret(t, db, "io.example/ai", "OPENAI_API_KEY")
	seedServer(t, db, "io.example/plain", "")
	servers := persistence.NewServerStore(db)
	signals := persistence.NewSignalStore(db)

	worker := enrich.NewServiceCostAnalyzer(servers, signals, testLogger())

	stats, err := worker.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Enriched)
	assert.Equal(t, 1, stats.Skipped)

	var row struct {
		RequiresPaidService bool
		PaidServices        string
	}
	err = db.Session(ctx).Table("service_cost_hints").
		Select("requires_paid_service", "paid_services").
		Where("server_name = ?", "io.example/ai").
		Scan(&row).Error
	require.NoError(t, err)
	assert.True(t, row.RequiresPaidService)
	assert.Contains(t, row.PaidServices, "OpenAI")

	status, _ := enrichmentStatus(t, db, "io.example/ai", "service_cost")
	assert.Equal(t, signal.StatusSuccess, status)
}
