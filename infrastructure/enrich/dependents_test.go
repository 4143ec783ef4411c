package enrich_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisplabs/wisp/infrastructure/enrich"
	"github.com/wisplabs/wisp/infrastructure/fetch"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/testdb"
)

func TestDependentsWorkerRequiresAPIKey(t *testing.T) {
	db := testdb.New(t)
	signals := persistence.NewSignalStore(db)

	worker := enrich.NewDependents(fetch.New(testLogger()), signals, "", testLogger())
	_, err := worker.Run(context.Background())
	assert.Error(t, err)
}

func TestDependentsWorkerSavesSignal(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "key", r.URL.Query().Get("api_key"))
		fmt.Fprint(w, `{"dependents_count": 42, "dependent_repos_count": 17, "rank": 12}`)
	}))
	defer upstream.Close()

	db := testdb.New(t)
	ctx := context.Background()
	seedServer(t, db, "io.example/files", "https://github.com/acme/files-mcp",
		npmPackage("io.example/files", "@acme/files-mcp"))
	signals := persistence.NewSignalStore(db)

	worker := enrich.NewDependents(fetch.New(testLogger()), signals, "key", testLogger()).
		WithBaseURL(upstream.URL).
		WithPause(0)

	stats, err := worker.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Enriched)

	deps, err := signals.AllDependencies(ctx)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "npm", deps[0].Platform())
	assert.Equal(t, 42, deps[0].DependentsCount())
	assert.Equal(t, 17, deps[0].DependentRepos())
	assert.Equal(t, 12, deps[0].Rank())
}
