package search

import (
	"context"

	domain "github.com/wisplabs/wisp/domain/search"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/log"
)

// EmbeddingBatchSize is how many documents go to the embedder per call.
const EmbeddingBatchSize = 16

// EmbeddingUpdater embeds search documents that have no vector yet.
// Documents already embedded are left alone, so incremental index rebuilds
// only pay for new or changed tools.
type EmbeddingUpdater struct {
	store    persistence.SearchStore
	embedder domain.Embedder
	batch    int
	logger   *log.Logger
}

// NewEmbeddingUpdater creates an EmbeddingUpdater.
func NewEmbeddingUpdater(store persistence.SearchStore, embedder domain.Embedder, logger *log.Logger) *EmbeddingUpdater {
	return &EmbeddingUpdater{
		store:    store,
		embedder: embedder,
		batch:    EmbeddingBatchSize,
		logger:   logger,
	}
}

// WithBatchSize overrides the embedding batch size.
func (u *EmbeddingUpdater) WithBatchSize(n int) *EmbeddingUpdater {
	if n > 0 {
		u.batch = n
	}
	return u
}

// Run embeds every document missing a vector, in batches. Each batch is
// persisted before the next is embedded so an interrupted run keeps its
// progress.
func (u *EmbeddingUpdater) Run(ctx context.Context) (int, error) {
	missing, err := u.store.MissingEmbeddings(ctx)
	if err != nil {
		return 0, err
	}

	embedded := 0
	for start := 0; start < len(missing); start += u.batch {
		end := start + u.batch
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]

		texts := make([]string, len(batch))
		toolIDs := make([]int64, len(batch))
		for i, c := range batch {
			texts[i] = c.FullDoc
			toolIDs[i] = c.ToolID
		}

		vectors, err := u.embedder.Embed(ctx, texts)
		if err != nil {
			return embedded, err
		}
		if err := u.store.SaveEmbeddings(ctx, toolIDs, vectors); err != nil {
			return embedded, err
		}
		embedded += len(batch)
	}

	if embedded > 0 {
		u.logger.InfoContext(ctx, "embeddings updated", "embedded", embedded)
	}
	return embedded, nil
}
