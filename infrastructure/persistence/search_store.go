package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wisplabs/wisp/domain/search"
	"github.com/wisplabs/wisp/internal/database"
	"gorm.io/gorm"
)

// SearchStore persists search documents, the keyword index and tool
// embeddings, and runs the candidate queries of the hybrid retriever.
type SearchStore struct {
	db database.Database
}

// NewSearchStore creates a SearchStore.
func NewSearchStore(db database.Database) SearchStore {
	return SearchStore{db: db}
}

// SearchDocMapper converts between search documents and their models.
type SearchDocMapper struct{}

// ToModel converts a search document to its model.
func (SearchDocMapper) ToModel(d search.SearchDoc) SearchDocModel {
	return SearchDocModel{
		ToolID:     d.ToolID(),
		ToolName:   d.ToolName(),
		ServerName: d.ServerName(),
		NameText:   d.NameText(),
		DescText:   d.DescText(),
		ParamsText: d.ParamsText(),
		FullDoc:    d.FullDoc(),
		UpdatedAt:  time.Now().UTC(),
	}
}

// ToDomain converts a model back to a search document.
func (SearchDocMapper) ToDomain(m SearchDocModel) search.SearchDoc {
	return search.RestoreDoc(m.ToolID, m.ServerName, m.ToolName, m.NameText, m.DescText, m.ParamsText, m.FullDoc)
}

// ReplaceDocs rewrites the whole search document table in one transaction.
// Orphaned embeddings of removed tools are dropped with their docs.
func (s SearchStore) ReplaceDocs(ctx context.Context, docs []search.SearchDoc) error {
	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM tools_search").Error; err != nil {
			return fmt.Errorf("clear search docs: %w", err)
		}
		for _, doc := range docs {
			m := SearchDocMapper{}.ToModel(doc)
			if err := tx.Create(&m).Error; err != nil {
				return fmt.Errorf("insert search doc %d: %w", doc.ToolID(), err)
			}
		}
		err := tx.Exec(`
			DELETE FROM tool_embeddings
			WHERE tool_id NOT IN (SELECT tool_id FROM tools_search)`).Error
		if err != nil {
			return fmt.Errorf("prune orphaned embeddings: %w", err)
		}
		return nil
	})
}

// RebuildFTS rebuilds the keyword index from the content table.
func (s SearchStore) RebuildFTS(ctx context.Context) error {
	err := s.db.Session(ctx).Exec("INSERT INTO tools_fts(tools_fts) VALUES('rebuild')").Error
	if err != nil {
		return fmt.Errorf("rebuild fts index: %w", err)
	}
	return nil
}

// EmbeddingCandidate is one search doc still missing an embedding.
type EmbeddingCandidate struct {
	ToolID  int64
	FullDoc string
}

// MissingEmbeddings returns docs without a stored embedding, oldest tool
// ids first.
func (s SearchStore) MissingEmbeddings(ctx context.Context) ([]EmbeddingCandidate, error) {
	var rows []EmbeddingCandidate
	err := s.db.Session(ctx).Raw(`
		SELECT ts.tool_id, ts.full_doc
		FROM tools_search ts
		LEFT JOIN tool_embeddings te ON ts.tool_id = te.tool_id
		WHERE te.tool_id IS NULL
		ORDER BY ts.tool_id`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list missing embeddings: %w", err)
	}
	return rows, nil
}

// SaveEmbeddings stores one embedding per tool id. Existing rows are
// replaced; the virtual table has no upsert.
func (s SearchStore) SaveEmbeddings(ctx context.Context, ids []int64, vectors [][]float64) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("save embeddings: %d ids for %d vectors", len(ids), len(vectors))
	}
	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		for i, id := range ids {
			encoded, err := json.Marshal(vectors[i])
			if err != nil {
				return fmt.Errorf("encode embedding %d: %w", id, err)
			}
			if err := tx.Exec("DELETE FROM tool_embeddings WHERE tool_id = ?", id).Error; err != nil {
				return fmt.Errorf("clear embedding %d: %w", id, err)
			}
			err = tx.Exec(
				"INSERT INTO tool_embeddings (tool_id, embedding) VALUES (?, ?)",
				id, string(encoded)).Error
			if err != nil {
				return fmt.Errorf("insert embedding %d: %w", id, err)
			}
		}
		return nil
	})
}

// SemanticHit is one vector-search candidate.
type SemanticHit struct {
	ToolID     int64
	Similarity float64
}

// SemanticHits returns the closest tool embeddings to the query vector.
// With the vector extension loaded the scan runs in SQL; otherwise every
// stored embedding is compared in memory.
func (s SearchStore) SemanticHits(ctx context.Context, query []float64, limit int) ([]SemanticHit, error) {
	if s.db.HasVector() {
		encoded, err := json.Marshal(query)
		if err != nil {
			return nil, fmt.Errorf("encode query embedding: %w", err)
		}
		var rows []struct {
			ToolID   int64
			Distance float64
		}
		err = s.db.Session(ctx).Raw(`
			SELECT tool_id, distance
			FROM tool_embeddings
			WHERE embedding MATCH ? AND k = ?
			ORDER BY distance`, string(encoded), limit).Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("vector search: %w", err)
		}
		hits := make([]SemanticHit, len(rows))
		for i, r := range rows {
			hits[i] = SemanticHit{ToolID: r.ToolID, Similarity: 1 - r.Distance}
		}
		return hits, nil
	}
	return s.semanticScan(ctx, query, limit)
}

// semanticScan is the in-memory fallback when the vector extension is not
// available.
func (s SearchStore) semanticScan(ctx context.Context, query []float64, limit int) ([]SemanticHit, error) {
	var rows []struct {
		ToolID    int64
		Embedding string
	}
	err := s.db.Session(ctx).Raw("SELECT tool_id, embedding FROM tool_embeddings").Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}

	hits := make([]SemanticHit, 0, len(rows))
	for _, r := range rows {
		var vector []float64
		if err := json.Unmarshal([]byte(r.Embedding), &vector); err != nil {
			return nil, fmt.Errorf("decode embedding %d: %w", r.ToolID, err)
		}
		hits = append(hits, SemanticHit{
			ToolID:     r.ToolID,
			Similarity: search.CosineSimilarity(query, vector),
		})
	}

	// Partial selection sort keeps only the top candidates.
	if limit > len(hits) {
		limit = len(hits)
	}
	for i := 0; i < limit; i++ {
		best := i
		for j := i + 1; j < len(hits); j++ {
			if hits[j].Similarity > hits[best].Similarity {
				best = j
			}
		}
		hits[i], hits[best] = hits[best], hits[i]
	}
	return hits[:limit], nil
}

// KeywordHit is one BM25 candidate. Raw is already negated so larger means
// more relevant.
type KeywordHit struct {
	ToolID int64
	Raw    float64
}

// KeywordHits runs a weighted BM25 match over the keyword index. The query
// must already be sanitized.
func (s SearchStore) KeywordHits(ctx context.Context, query string, limit int) ([]KeywordHit, error) {
	if query == "" {
		return nil, nil
	}
	var rows []KeywordHit
	err := s.db.Session(ctx).Raw(fmt.Sprintf(`
		SELECT rowid AS tool_id, -bm25(tools_fts, %g, %g, %g) AS raw
		FROM tools_fts
		WHERE tools_fts MATCH ?
		ORDER BY raw DESC
		LIMIT ?`,
		search.WeightNameText, search.WeightDescText, search.WeightParamsText),
		query, limit).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	return rows, nil
}

// HydratedTool is one fully joined result row from v_tools_full plus the
// server's market rank.
type HydratedTool struct {
	ToolID            int64
	ToolName          string
	Title             string
	Description       string
	InputSchema       string
	ServerName        string
	ServerDescription string
	RequiresAuth      bool
	MarketRank        float64
}

// Hydrate loads the display fields of the given tool ids. The result order
// is undefined; callers re-sort by score.
func (s SearchStore) Hydrate(ctx context.Context, toolIDs []int64) (map[int64]HydratedTool, error) {
	if len(toolIDs) == 0 {
		return map[int64]HydratedTool{}, nil
	}
	var rows []HydratedTool
	err := s.db.Session(ctx).Raw(`
		SELECT
			v.tool_id,
			v.tool_name,
			v.title,
			v.description,
			v.input_schema,
			v.server_name,
			v.server_description,
			v.requires_auth,
			COALESCE(mr.total_score, 0) AS market_rank
		FROM v_tools_full v
		LEFT JOIN market_rankings mr ON v.server_name = mr.server_name
		WHERE v.tool_id IN ?`, toolIDs).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("hydrate tools: %w", err)
	}
	out := make(map[int64]HydratedTool, len(rows))
	for _, r := range rows {
		out[r.ToolID] = r
	}
	return out, nil
}

// Qualities returns the market rank of each tool's owning server. Tools
// whose server has no ranking yet map to 0.
func (s SearchStore) Qualities(ctx context.Context, toolIDs []int64) (map[int64]float64, error) {
	if len(toolIDs) == 0 {
		return map[int64]float64{}, nil
	}
	var rows []struct {
		ToolID  int64
		Quality float64
	}
	err := s.db.Session(ctx).Raw(`
		SELECT ts.tool_id, COALESCE(mr.total_score, 0) AS quality
		FROM tools_search ts
		LEFT JOIN market_rankings mr ON ts.server_name = mr.server_name
		WHERE ts.tool_id IN ?`, toolIDs).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load tool qualities: %w", err)
	}
	out := make(map[int64]float64, len(rows))
	for _, r := range rows {
		out[r.ToolID] = r.Quality
	}
	return out, nil
}

// ServerTools loads every tool of one server from the full-tools view.
func (s SearchStore) ServerTools(ctx context.Context, serverName string) ([]HydratedTool, error) {
	var rows []HydratedTool
	err := s.db.Session(ctx).Raw(`
		SELECT
			v.tool_id,
			v.tool_name,
			v.title,
			v.description,
			v.input_schema,
			v.server_name,
			v.server_description,
			v.requires_auth,
			COALESCE(mr.total_score, 0) AS market_rank
		FROM v_tools_full v
		LEFT JOIN market_rankings mr ON v.server_name = mr.server_name
		WHERE v.server_name = ?
		ORDER BY v.tool_name`, serverName).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("tools for server %s: %w", serverName, err)
	}
	return rows, nil
}

// DocCount returns the number of indexed search documents.
func (s SearchStore) DocCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.Session(ctx).Model(&SearchDocModel{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count search docs: %w", err)
	}
	return count, nil
}
