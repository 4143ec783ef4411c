package persistence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisplabs/wisp/domain/search"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/database"
	"github.com/wisplabs/wisp/internal/testdb"
)

// seedIndex extracts the sample tools and rebuilds the search documents and
// keyword index for them.
func seedIndex(t *testing.T, db database.Database) []persistence.IndexableTool {
	t.Helper()
	ctx := context.Background()
	seedServer(t, db, "io.example/files")
	tools := persistence.NewToolStore(db)
	require.NoError(t, tools.SaveExtraction(ctx, sampleExtraction("io.example/files")))

	rows, err := tools.AllIndexable(ctx)
	require.NoError(t, err)

	docs := make([]search.SearchDoc, len(rows))
	for i, row := range rows {
		docs[i] = search.BuildDoc(row.ToolID, row.ServerName, row.ToolName,
			row.Title, row.Description, row.ServerDescription, nil)
	}

	store := persistence.NewSearchStore(db)
	require.NoError(t, store.ReplaceDocs(ctx, docs))
	require.NoError(t, store.RebuildFTS(ctx))
	return rows
}

func TestSearchStoreKeywordHits(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	seedIndex(t, db)
	store := persistence.NewSearchStore(db)

	hits, err := store.KeywordHits(ctx, search.SanitizeQuery("read file"), 200)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Positive(t, hits[0].Raw)

	// Both tools mention "file"; "read" only matches one name, so the
	// read tool ranks first under the weighted BM25.
	docs, err := store.Hydrate(ctx, []int64{hits[0].ToolID})
	require.NoError(t, err)
	assert.Equal(t, "read_file", docs[hits[0].ToolID].ToolName)
}

func TestSearchStoreKeywordHitsEmptyQuery(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewSearchStore(db)

	hits, err := store.KeywordHits(context.Background(), "", 200)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchStoreEmbeddingLifecycle(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	rows := seedIndex(t, db)
	store := persistence.NewSearchStore(db)

	missing, err := store.MissingEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, missing, 2)
	assert.Contains(t, missing[0].FullDoc, "Tool: read_file")

	vectors := [][]float64{{1, 0, 0}, {0, 1, 0}}
	ids := []int64{rows[0].ToolID, rows[1].ToolID}
	require.NoError(t, store.SaveEmbeddings(ctx, ids, vectors))

	missing, err = store.MissingEmbeddings(ctx)
	require.NoError(t, err)
	assert.Empty(t, missing)

	// Without the vector extension the scan falls back to in-memory cosine.
	hits, err := store.SemanticHits(ctx, []float64{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, rows[0].ToolID, hits[0].ToolID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
	assert.InDelta(t, 0.0, hits[1].Similarity, 1e-9)
}

func TestSearchStoreReplaceDocsPrunesEmbeddings(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	rows := seedIndex(t, db)
	store := persistence.NewSearchStore(db)

	require.NoError(t, store.SaveEmbeddings(ctx,
		[]int64{rows[0].ToolID, rows[1].ToolID},
		[][]float64{{1, 0}, {0, 1}}))

	// Reindex with only the first tool; the other embedding is orphaned.
	doc := search.BuildDoc(rows[0].ToolID, rows[0].ServerName, rows[0].ToolName,
		rows[0].Title, rows[0].Description, rows[0].ServerDescription, nil)
	require.NoError(t, store.ReplaceDocs(ctx, []search.SearchDoc{doc}))

	count, err := store.DocCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	var embeddings int64
	require.NoError(t, db.Session(ctx).Table("tool_embeddings").Count(&embeddings).Error)
	assert.Equal(t, int64(1), embeddings)
}

func TestSearchStoreHydrateIncludesAuthAndRank(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	// sampleRecord declares one secret env var, so requires_auth is set.
	require.NoError(t, persistence.NewServerStore(db).Save(ctx, sampleRecord("io.example/files")))
	tools := persistence.NewToolStore(db)
	require.NoError(t, tools.SaveExtraction(ctx, sampleExtraction("io.example/files")))

	rows, err := tools.AllIndexable(ctx)
	require.NoError(t, err)
	store := persistence.NewSearchStore(db)

	hydrated, err := store.Hydrate(ctx, []int64{rows[0].ToolID})
	require.NoError(t, err)
	require.Len(t, hydrated, 1)

	got := hydrated[rows[0].ToolID]
	assert.Equal(t, "io.example/files", got.ServerName)
	assert.True(t, got.RequiresAuth)
	assert.Zero(t, got.MarketRank)
}
