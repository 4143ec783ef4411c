package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/wisplabs/wisp/domain/scoring"
	"github.com/wisplabs/wisp/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScoringStore persists backlink edges, aggregated backlink scores and the
// composite marketplace rankings.
type ScoringStore struct {
	db database.Database
}

// NewScoringStore creates a ScoringStore.
func NewScoringStore(db database.Database) ScoringStore {
	return ScoringStore{db: db}
}

// ReplaceEdges rewrites all backlink edges for a server in one transaction.
func (s ScoringStore) ReplaceEdges(ctx context.Context, serverName string, edges []scoring.BacklinkEdge) error {
	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		err := tx.Where("server_name = ?", serverName).Delete(&BacklinkEdgeModel{}).Error
		if err != nil {
			return fmt.Errorf("clear edges of %s: %w", serverName, err)
		}
		for _, edge := range edges {
			m := BacklinkEdgeMapper{}.ToModel(edge)
			if err := tx.Create(&m).Error; err != nil {
				return fmt.Errorf("insert edge %s -> %s: %w", edge.ReferencerRepo(), serverName, err)
			}
		}
		return nil
	})
}

// ReplaceTierEdges rewrites one tier's edges for a server, leaving the
// other tiers untouched.
func (s ScoringStore) ReplaceTierEdges(ctx context.Context, serverName, tier string, edges []scoring.BacklinkEdge) error {
	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		err := tx.Where("server_name = ? AND tier = ?", serverName, tier).
			Delete(&BacklinkEdgeModel{}).Error
		if err != nil {
			return fmt.Errorf("clear %s edges of %s: %w", tier, serverName, err)
		}
		for _, edge := range edges {
			m := BacklinkEdgeMapper{}.ToModel(edge)
			if err := tx.Create(&m).Error; err != nil {
				return fmt.Errorf("insert edge %s -> %s: %w", edge.ReferencerRepo(), serverName, err)
			}
		}
		return nil
	})
}

// EdgesForServer returns the persisted edges of a server.
func (s ScoringStore) EdgesForServer(ctx context.Context, serverName string) ([]scoring.BacklinkEdge, error) {
	var models []BacklinkEdgeModel
	err := s.db.Session(ctx).Where("server_name = ?", serverName).Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	edges := make([]scoring.BacklinkEdge, len(models))
	for i, m := range models {
		edges[i] = BacklinkEdgeMapper{}.ToDomain(m)
	}
	return edges, nil
}

// CachedRepoMeta returns the referencer metadata cache accumulated across
// all edges, keyed by owner/repo. Synthetic cache rows and regular edges
// both contribute.
func (s ScoringStore) CachedRepoMeta(ctx context.Context) (map[string]scoring.RepoMeta, error) {
	var models []BacklinkEdgeModel
	err := s.db.Session(ctx).
		Where("repo_stars IS NOT NULL").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list cached repo metadata: %w", err)
	}
	out := make(map[string]scoring.RepoMeta, len(models))
	for _, m := range models {
		edge := BacklinkEdgeMapper{}.ToDomain(m)
		out[edge.ReferencerRepo()] = edge.Meta()
	}
	return out, nil
}

// SaveCacheEdges upserts synthetic metadata-cache edges so referencer
// lookups survive across runs.
func (s ScoringStore) SaveCacheEdges(ctx context.Context, edges []scoring.BacklinkEdge) error {
	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		for _, edge := range edges {
			m := BacklinkEdgeMapper{}.ToModel(edge)
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "server_name"}, {Name: "referencer_repo"}, {Name: "tier"},
				},
				UpdateAll: true,
			}).Create(&m).Error
			if err != nil {
				return fmt.Errorf("upsert cache edge %s: %w", edge.ReferencerRepo(), err)
			}
		}
		return nil
	})
}

// UnresolvedEdgeRepos returns referencer repos that have edges without
// fetched metadata, so a later pass can patch them.
func (s ScoringStore) UnresolvedEdgeRepos(ctx context.Context) ([]string, error) {
	var repos []string
	err := s.db.Session(ctx).Model(&BacklinkEdgeModel{}).
		Distinct("referencer_repo").
		Where("repo_stars IS NULL").
		Order("referencer_repo").
		Pluck("referencer_repo", &repos).Error
	if err != nil {
		return nil, fmt.Errorf("list unresolved edge repos: %w", err)
	}
	return repos, nil
}

// PatchEdgeMeta fills in referencer metadata and recomputes the edge score
// on every edge of the given repo that is still missing it.
func (s ScoringStore) PatchEdgeMeta(ctx context.Context, referencerRepo string, meta scoring.RepoMeta, now time.Time) error {
	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var models []BacklinkEdgeModel
		err := tx.Where("referencer_repo = ? AND repo_stars IS NULL", referencerRepo).
			Find(&models).Error
		if err != nil {
			return fmt.Errorf("find unpatched edges: %w", err)
		}
		for _, m := range models {
			stars := meta.Stars
			updates := map[string]any{
				"repo_stars":     &stars,
				"repo_pushed_at": meta.PushedAt,
				"is_archived":    meta.Archived,
				"is_fork":        meta.Fork,
				"edge_score":     scoring.EdgeScore(m.Tier, meta, now),
			}
			if err := tx.Model(&BacklinkEdgeModel{}).Where("id = ?", m.ID).Updates(updates).Error; err != nil {
				return fmt.Errorf("patch edge %d: %w", m.ID, err)
			}
		}
		return nil
	})
}

// SaveScore upserts the aggregated backlink score of a server.
func (s ScoringStore) SaveScore(ctx context.Context, score scoring.BacklinkScore) error {
	model := BacklinkScoreMapper{}.ToModel(score)
	err := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "server_name"}},
		UpdateAll: true,
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("save backlink score: %w", err)
	}
	return nil
}

// AllScores returns every aggregated backlink score.
func (s ScoringStore) AllScores(ctx context.Context) ([]scoring.BacklinkScore, error) {
	var models []BacklinkScoreModel
	if err := s.db.Session(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list backlink scores: %w", err)
	}
	scores := make([]scoring.BacklinkScore, len(models))
	for i, m := range models {
		scores[i] = BacklinkScoreMapper{}.ToDomain(m)
	}
	return scores, nil
}

// SaveRanking upserts the composite marketplace rank of a server.
func (s ScoringStore) SaveRanking(ctx context.Context, ranking scoring.MarketRanking) error {
	model := MarketRankingMapper{}.ToModel(ranking)
	err := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "server_name"}},
		UpdateAll: true,
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("save market ranking: %w", err)
	}
	return nil
}

// Ranking returns the market ranking of a server, if present.
func (s ScoringStore) Ranking(ctx context.Context, serverName string) (scoring.MarketRanking, bool, error) {
	var model MarketRankingModel
	result := s.db.Session(ctx).Where("server_name = ?", serverName).Limit(1).Find(&model)
	if result.Error != nil {
		return scoring.MarketRanking{}, false, fmt.Errorf("find market ranking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return scoring.MarketRanking{}, false, nil
	}
	return MarketRankingMapper{}.ToDomain(model), true, nil
}

// RankingSignals is the raw per-server input row the market ranker
// consumes, joined from every signal table in one query.
type RankingSignals struct {
	ServerName      string
	RawBacklink     float64
	Stars           int
	Forks           int
	RepoOwner       string
	LastPush        *time.Time
	WeeklyDownloads int64
	SecretVarCount  int
}

// AllRankingSignals returns one row per server with every raw signal the
// composite rank needs. Missing signals come back as zero values.
func (s ScoringStore) AllRankingSignals(ctx context.Context) ([]RankingSignals, error) {
	var rows []RankingSignals
	err := s.db.Session(ctx).Raw(`
		SELECT
			s.name AS server_name,
			COALESCE(bs.raw_score, 0) AS raw_backlink,
			COALESCE(gh.stars, 0) AS stars,
			COALESCE(gh.forks, 0) AS forks,
			COALESCE(gh.repo_owner, '') AS repo_owner,
			gh.last_push,
			COALESCE(
				(SELECT SUM(pd.downloads_last_week)
				 FROM package_downloads pd
				 WHERE pd.server_name = s.name), 0) AS weekly_downloads,
			(SELECT COUNT(*) FROM environment_variables ev
			 WHERE ev.server_name = s.name AND ev.is_secret = 1) AS secret_var_count
		FROM servers s
		LEFT JOIN backlink_scores bs ON s.name = bs.server_name
		LEFT JOIN github_signals gh ON s.name = gh.server_name
		ORDER BY s.name`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list ranking signals: %w", err)
	}
	return rows, nil
}
