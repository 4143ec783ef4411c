package service

import (
	"context"

	"github.com/wisplabs/wisp/infrastructure/search"
	"github.com/wisplabs/wisp/internal/log"
)

// IndexResult summarises one index rebuild.
type IndexResult struct {
	Indexed  int
	Embedded int
}

// Index rebuilds the search documents and backfills their embeddings.
type Index struct {
	indexer *search.Indexer
	updater *search.EmbeddingUpdater
	logger  *log.Logger
}

// NewIndex creates an Index service. A nil updater leaves the index
// keyword-only.
func NewIndex(indexer *search.Indexer, updater *search.EmbeddingUpdater, logger *log.Logger) *Index {
	return &Index{indexer: indexer, updater: updater, logger: logger}
}

// Run rebuilds the search documents and, when an embedder is configured,
// embeds the documents that still lack a vector.
func (s *Index) Run(ctx context.Context) (IndexResult, error) {
	var result IndexResult

	indexed, err := s.indexer.Run(ctx)
	if err != nil {
		return result, err
	}
	result.Indexed = indexed

	if s.updater != nil {
		embedded, err := s.updater.Run(ctx)
		if err != nil {
			return result, err
		}
		result.Embedded = embedded
	}

	s.logger.InfoContext(ctx, "index rebuild finished",
		"indexed", result.Indexed, "embedded", result.Embedded)
	return result, nil
}
