package scoring_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisplabs/wisp/domain/registry"
	domainscoring "github.com/wisplabs/wisp/domain/scoring"
	"github.com/wisplabs/wisp/domain/signal"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/infrastructure/scoring"
	"github.com/wisplabs/wisp/internal/testdb"
)

func TestMarketRankerComposite(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	// Strong server: backlinks, stars, fresh pushes, downloads, no auth,
	// trusted owner.
	seedServer(t, db, "io.example/files", "https://github.com/anthropic/files-mcp")
	// Weak server: no signals, requires a credential.
	weak := registry.NewServerWithOptions("io.example/weak", "Weak", "0.1.0",
		registry.WithStatus("active"))
	require.NoError(t, persistence.NewServerStore(db).Save(ctx, persistence.ServerRecord{
		Server: weak,
		EnvVars: []registry.EnvVar{
			registry.NewEnvVar("io.example/weak", "WEAK_API_KEY", "key", true, true),
		},
	}))

	store := persistence.NewScoringStore(db)
	signals := persistence.NewSignalStore(db)

	now := time.Now().UTC()
	require.NoError(t, signals.SaveGitHub(ctx, signal.NewGitHubRepoWithOptions(
		"io.example/files", "anthropic", "files-mcp",
		signal.WithCounts(200, 50, 3, 200),
		signal.WithTimestamps(&now, nil))))
	require.NoError(t, store.SaveScore(ctx, domainscoring.NewBacklinkScore(
		"io.example/files", 12.0, 1.0, nil, 2)))
	require.NoError(t, signals.SaveDownloads(ctx, signal.NewPackageDownloads(
		"io.example/files", "npm", "@acme/files-mcp",
		signal.DownloadCounts{LastWeek: 5000})))

	ranked, err := scoring.NewMarketRanker(store, testLogger()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, ranked)

	files, ok, err := store.Ranking(ctx, "io.example/files")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, files.ZeroAuth())
	assert.True(t, files.Verified())
	// Maximal in every pillar plus both bonuses clamps to 1.
	assert.InDelta(t, 1.0, files.Total(), 0.01)

	weakRank, ok, err := store.Ranking(ctx, "io.example/weak")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, weakRank.ZeroAuth())
	assert.False(t, weakRank.Verified())
	// Unknown push date scores the 0.5 activity fallback only.
	assert.InDelta(t, 0.15*0.5, weakRank.Total(), 0.001)
}
