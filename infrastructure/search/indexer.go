// Package search builds the retrieval index and runs the hybrid retriever
// over it: FTS5 keyword search fused with vector similarity, re-ranked by
// marketplace quality.
package search

import (
	"context"
	"fmt"

	domain "github.com/wisplabs/wisp/domain/search"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/log"
)

// Indexer rebuilds the search documents from the extracted tools.
type Indexer struct {
	tools  persistence.ToolStore
	store  persistence.SearchStore
	logger *log.Logger
}

// NewIndexer creates an Indexer.
func NewIndexer(tools persistence.ToolStore, store persistence.SearchStore, logger *log.Logger) *Indexer {
	return &Indexer{tools: tools, store: store, logger: logger}
}

// Run rebuilds every search document and the keyword index. Embeddings of
// unchanged documents survive; stale ones are pruned with their documents.
func (i *Indexer) Run(ctx context.Context) (int, error) {
	rows, err := i.tools.AllIndexable(ctx)
	if err != nil {
		return 0, err
	}

	docs := make([]domain.SearchDoc, 0, len(rows))
	for _, row := range rows {
		params, err := i.tools.Parameters(ctx, row.ServerName, row.ToolName)
		if err != nil {
			return 0, fmt.Errorf("parameters of %s/%s: %w", row.ServerName, row.ToolName, err)
		}
		docParams := make([]domain.DocParameter, len(params))
		for j, p := range params {
			docParams[j] = domain.DocParameter{
				Name:        p.Name(),
				Description: p.Description(),
				EnumJSON:    p.EnumJSON(),
			}
		}
		docs = append(docs, domain.BuildDoc(row.ToolID, row.ServerName, row.ToolName,
			row.Title, row.Description, row.ServerDescription, docParams))
	}

	if err := i.store.ReplaceDocs(ctx, docs); err != nil {
		return 0, err
	}
	if err := i.store.RebuildFTS(ctx); err != nil {
		return 0, err
	}

	i.logger.InfoContext(ctx, "search index rebuilt", "documents", len(docs))
	return len(docs), nil
}
