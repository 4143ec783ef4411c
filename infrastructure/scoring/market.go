package scoring

import (
	"context"
	"time"

	"github.com/wisplabs/wisp/domain/scoring"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/log"
)

// MarketRanker computes the composite marketplace rank of every server
// from the raw signal join, normalizing each pillar against the corpus
// 99th percentile.
type MarketRanker struct {
	store  persistence.ScoringStore
	logger *log.Logger
}

// NewMarketRanker creates a MarketRanker.
func NewMarketRanker(store persistence.ScoringStore, logger *log.Logger) *MarketRanker {
	return &MarketRanker{store: store, logger: logger}
}

// Run ranks every server. Fully offline; all inputs come from previously
// enriched signals.
func (m *MarketRanker) Run(ctx context.Context) (int, error) {
	rows, err := m.store.AllRankingSignals(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	usageRaws := make([]float64, len(rows))
	repRaws := make([]float64, len(rows))
	reachRaws := make([]float64, len(rows))
	for i, row := range rows {
		usageRaws[i] = scoring.UsageRaw(row.RawBacklink)
		repRaws[i] = scoring.ReputationRaw(row.Stars, row.Forks)
		reachRaws[i] = scoring.ReachRaw(row.WeeklyDownloads)
	}

	q99Usage := scoring.Q99(usageRaws)
	q99Rep := scoring.Q99(repRaws)
	q99Reach := scoring.Q99(reachRaws)

	for i, row := range rows {
		ranking := scoring.NewMarketRanking(row.ServerName,
			scoring.NormalizePillar(usageRaws[i], q99Usage),
			scoring.NormalizePillar(repRaws[i], q99Rep),
			scoring.Activity(row.LastPush, now),
			scoring.NormalizePillar(reachRaws[i], q99Reach),
			row.SecretVarCount == 0,
			scoring.IsTrustedOrg(row.RepoOwner),
		)
		if err := m.store.SaveRanking(ctx, ranking); err != nil {
			return 0, err
		}
	}

	m.logger.InfoContext(ctx, "market ranking finished", "servers", len(rows))
	return len(rows), nil
}
