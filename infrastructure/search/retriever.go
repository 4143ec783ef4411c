package search

import (
	"context"
	"encoding/json"
	"sort"

	domain "github.com/wisplabs/wisp/domain/search"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/log"
)

const (
	// perSideLimit bounds each retrieval arm before fusion.
	perSideLimit = 200
	// candidateLimit caps the fused candidate set that paging slices.
	candidateLimit = 100

	defaultLimit = 10
	maxLimit     = 100
)

// Retriever runs the hybrid search: vector similarity and weighted BM25
// candidates are fused into a relevance score, floored, re-ranked by
// marketplace quality and paged.
type Retriever struct {
	store    persistence.SearchStore
	embedder domain.Embedder
	logger   *log.Logger
}

// NewRetriever creates a Retriever. A nil embedder degrades the retriever
// to keyword-only search.
func NewRetriever(store persistence.SearchStore, embedder domain.Embedder, logger *log.Logger) *Retriever {
	return &Retriever{store: store, embedder: embedder, logger: logger}
}

// Retrieve runs the hybrid search for a query and returns one hydrated
// result page. Page numbers start at 1; out-of-range limits are clamped.
func (r *Retriever) Retrieve(ctx context.Context, query string, page, limit int) (domain.Response, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	resp := domain.Response{
		Query:   query,
		Page:    page,
		Limit:   limit,
		Results: []domain.Result{},
	}

	candidates, err := r.candidates(ctx, query)
	if err != nil {
		return resp, err
	}
	resp.TotalCandidates = len(candidates)

	start := (page - 1) * limit
	end := start + limit
	if start >= len(candidates) {
		return resp, nil
	}
	if end > len(candidates) {
		end = len(candidates)
	}
	paged := candidates[start:end]

	ids := make([]int64, len(paged))
	for i, hit := range paged {
		ids[i] = hit.ToolID
	}
	hydrated, err := r.store.Hydrate(ctx, ids)
	if err != nil {
		return resp, err
	}

	for _, hit := range paged {
		row, ok := hydrated[hit.ToolID]
		if !ok {
			continue
		}
		resp.Results = append(resp.Results, buildResult(row, hit))
	}
	return resp, nil
}

// ServerTools returns every indexed tool of one server, without retrieval
// scores.
func (r *Retriever) ServerTools(ctx context.Context, serverName string) ([]domain.Result, error) {
	rows, err := r.store.ServerTools(ctx, serverName)
	if err != nil {
		return nil, err
	}
	results := make([]domain.Result, len(rows))
	for i, row := range rows {
		results[i] = buildResult(row, domain.Hit{Quality: row.MarketRank})
	}
	return results, nil
}

// candidates fuses both retrieval arms into the floored, score-ordered
// candidate set.
func (r *Retriever) candidates(ctx context.Context, query string) ([]domain.Hit, error) {
	type sides struct {
		sScore float64
		kRaw   float64
	}
	byTool := map[int64]sides{}

	if r.embedder != nil {
		vectors, err := r.embedder.Embed(ctx, []string{query})
		if err != nil {
			return nil, err
		}
		semantic, err := r.store.SemanticHits(ctx, vectors[0], perSideLimit)
		if err != nil {
			return nil, err
		}
		for _, hit := range semantic {
			byTool[hit.ToolID] = sides{sScore: hit.Similarity}
		}
	}

	var kMax float64
	keyword, err := r.store.KeywordHits(ctx, domain.SanitizeQuery(query), perSideLimit)
	if err != nil {
		return nil, err
	}
	for _, hit := range keyword {
		side := byTool[hit.ToolID]
		side.kRaw = hit.Raw
		byTool[hit.ToolID] = side
		if hit.Raw > kMax {
			kMax = hit.Raw
		}
	}

	ids := make([]int64, 0, len(byTool))
	for id := range byTool {
		ids = append(ids, id)
	}
	qualities, err := r.store.Qualities(ctx, ids)
	if err != nil {
		return nil, err
	}

	hits := make([]domain.Hit, 0, len(byTool))
	for id, side := range byTool {
		hit := domain.FuseHit(id, side.sScore, side.kRaw, kMax, qualities[id])
		if domain.AboveFloor(hit.Relevance) {
			hits = append(hits, hit)
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ToolID < hits[j].ToolID
	})
	if len(hits) > candidateLimit {
		hits = hits[:candidateLimit]
	}
	return hits, nil
}

// buildResult joins the hydrated display row with the candidate's scores.
// Unparseable input schemas are served without a schema rather than failing
// the whole page.
func buildResult(row persistence.HydratedTool, hit domain.Hit) domain.Result {
	var schema map[string]any
	if row.InputSchema != "" {
		if err := json.Unmarshal([]byte(row.InputSchema), &schema); err != nil {
			schema = nil
		}
	}
	return domain.Result{
		ToolID:       row.ToolID,
		Name:         row.ToolName,
		Title:        row.Title,
		Description:  row.Description,
		InputSchema:  schema,
		RequiresAuth: row.RequiresAuth,
		Server:       domain.ServerRef{Name: row.ServerName, Description: row.ServerDescription},
		Relevance:    hit.Relevance,
		Quality:      hit.Quality,
		Score:        hit.Score,
	}
}
