// Package service provides the application-level orchestration services:
// each one drives a full pipeline stage (ingest, enrich, score, index,
// extract) over the infrastructure components.
package service

import (
	"context"

	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/infrastructure/registry"
	"github.com/wisplabs/wisp/internal/log"
)

// Ingest mirrors the upstream registry into the local catalog and loads
// curated backlink seeds.
type Ingest struct {
	ingestor *registry.Ingestor
	scoring  persistence.ScoringStore
	logger   *log.Logger
}

// NewIngest creates an Ingest service.
func NewIngest(ingestor *registry.Ingestor, scoring persistence.ScoringStore, logger *log.Logger) *Ingest {
	return &Ingest{ingestor: ingestor, scoring: scoring, logger: logger}
}

// Run ingests the latest version of every upstream server, optionally
// narrowed by a search filter.
func (s *Ingest) Run(ctx context.Context, search string) (registry.Result, error) {
	result, err := s.ingestor.Run(ctx, search)
	if err != nil {
		return result, err
	}
	s.logger.InfoContext(ctx, "registry ingest finished",
		"saved", result.Saved, "failed", result.Failed)
	return result, nil
}

// Curated loads a curated-servers YAML file and replaces the curated
// backlink edges it defines.
func (s *Ingest) Curated(ctx context.Context, path string) (int, error) {
	entries, err := registry.LoadCurated(path)
	if err != nil {
		return 0, err
	}
	if err := registry.SaveCurated(ctx, s.scoring, entries); err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "curated backlinks loaded",
		"path", path, "entries", len(entries))
	return len(entries), nil
}
