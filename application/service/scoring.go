package service

import (
	"context"

	"github.com/wisplabs/wisp/infrastructure/scoring"
	"github.com/wisplabs/wisp/internal/log"
)

// Scoring runs the backlink scorer and the market ranker.
type Scoring struct {
	backlinks *scoring.BacklinkScorer
	ranker    *scoring.MarketRanker
	logger    *log.Logger
}

// NewScoring creates a Scoring service.
func NewScoring(backlinks *scoring.BacklinkScorer, ranker *scoring.MarketRanker, logger *log.Logger) *Scoring {
	return &Scoring{backlinks: backlinks, ranker: ranker, logger: logger}
}

// Score computes per-server backlink scores from the stored edges.
func (s *Scoring) Score(ctx context.Context) (scoring.BacklinkResult, error) {
	result, err := s.backlinks.Run(ctx)
	if err != nil {
		return result, err
	}
	s.logger.InfoContext(ctx, "backlink scoring finished",
		"scored", result.Scored, "prefetched", result.Prefetched)
	return result, nil
}

// Rank folds the stored signals into one market rank per server.
func (s *Scoring) Rank(ctx context.Context) (int, error) {
	ranked, err := s.ranker.Run(ctx)
	if err != nil {
		return ranked, err
	}
	s.logger.InfoContext(ctx, "market ranking finished", "ranked", ranked)
	return ranked, nil
}
