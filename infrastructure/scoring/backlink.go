// Package scoring runs the batch ranking jobs: the backlink scorer over
// the referencer graph and the composite marketplace ranker.
package scoring

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wisplabs/wisp/domain/scoring"
	"github.com/wisplabs/wisp/domain/signal"
	"github.com/wisplabs/wisp/infrastructure/fetch"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/log"
	"golang.org/x/sync/errgroup"
)

const githubBaseURL = "https://api.github.com"

// configTypeTiers maps a config reference type to its backlink tier. All
// known client config files are direct usage.
var configTypeTiers = map[string]string{
	"claude_desktop": scoring.TierConfig,
	"cursor":         scoring.TierConfig,
	"windsurf":       scoring.TierConfig,
	"cline":          scoring.TierConfig,
}

func tierForConfigType(configType string) string {
	if tier, ok := configTypeTiers[configType]; ok {
		return tier
	}
	return scoring.TierConfig
}

// BacklinkScorer aggregates config references, package dependents and
// curated listings into one backlink score per server.
type BacklinkScorer struct {
	store       persistence.ScoringStore
	signals     persistence.SignalStore
	servers     persistence.ServerStore
	fetcher     *fetch.Client
	token       string
	baseURL     string
	concurrency int
	logger      *log.Logger
}

// NewBacklinkScorer creates a BacklinkScorer.
func NewBacklinkScorer(store persistence.ScoringStore, signals persistence.SignalStore, servers persistence.ServerStore, fetcher *fetch.Client, token string, logger *log.Logger) *BacklinkScorer {
	return &BacklinkScorer{
		store:       store,
		signals:     signals,
		servers:     servers,
		fetcher:     fetcher,
		token:       token,
		baseURL:     githubBaseURL,
		concurrency: 10,
		logger:      logger,
	}
}

// WithBaseURL overrides the GitHub API root.
func (b *BacklinkScorer) WithBaseURL(u string) *BacklinkScorer {
	b.baseURL = u
	return b
}

// WithConcurrency sets the metadata prefetch fan-out width.
func (b *BacklinkScorer) WithConcurrency(n int) *BacklinkScorer {
	b.concurrency = n
	return b
}

// BacklinkResult summarises one scoring run.
type BacklinkResult struct {
	Scored     int
	Prefetched int
}

// Run executes the three scoring stages: referencer metadata prefetch,
// per-server edge scoring, and corpus-wide percentile normalization.
func (b *BacklinkScorer) Run(ctx context.Context) (BacklinkResult, error) {
	now := time.Now().UTC()

	refs, err := b.signals.AllConfigReferences(ctx)
	if err != nil {
		return BacklinkResult{}, err
	}

	metaByRepo, prefetched, err := b.prefetchMeta(ctx, refs, now)
	if err != nil {
		return BacklinkResult{}, err
	}

	serverRows, err := b.servers.NamesAndRepos(ctx)
	if err != nil {
		return BacklinkResult{}, err
	}
	deps, err := b.signals.AllDependencies(ctx)
	if err != nil {
		return BacklinkResult{}, err
	}

	refsByServer := make(map[string][]signal.ConfigReference)
	for _, ref := range refs {
		refsByServer[ref.ServerName()] = append(refsByServer[ref.ServerName()], ref)
	}
	depsByServer := make(map[string][]signal.DependencySignal)
	for _, dep := range deps {
		depsByServer[dep.ServerName()] = append(depsByServer[dep.ServerName()], dep)
	}

	type serverResult struct {
		raw         float64
		tierScores  map[string]float64
		uniqueRepos int
	}
	results := make(map[string]serverResult, len(serverRows))

	for _, server := range serverRows {
		ownRepo := ""
		if owner, repo, ok := signal.ParseGitHubRepo(server.RepositoryURL); ok {
			ownRepo = strings.ToLower(owner + "/" + repo)
		}

		tierScores := make(map[string]float64)
		seen := make(map[string]bool)      // (repo, tier) dedupe
		uniqueRepos := make(map[string]bool)
		edgesByTier := make(map[string][]scoring.BacklinkEdge)

		for _, ref := range refsByServer[server.Name] {
			tier := tierForConfigType(ref.ConfigType())
			for _, repo := range ref.SampleRepos() {
				if repo == "" {
					continue
				}
				lower := strings.ToLower(repo)
				if ownRepo != "" && lower == ownRepo {
					continue
				}
				key := lower + "\x00" + tier
				if seen[key] {
					continue
				}
				seen[key] = true
				uniqueRepos[lower] = true

				edge := scoring.NewBacklinkEdge(server.Name, repo, tier, metaByRepo[repo], now)
				tierScores[tier] += edge.Score()
				edgesByTier[tier] = append(edgesByTier[tier], edge)
			}
		}
		for tier, edges := range edgesByTier {
			if err := b.store.ReplaceTierEdges(ctx, server.Name, tier, edges); err != nil {
				return BacklinkResult{}, err
			}
		}

		for _, dep := range depsByServer[server.Name] {
			tierScores[scoring.TierDependency] +=
				scoring.DependencyContribution(dep.DependentsCount(), dep.DependentRepos())
		}

		// Curated edges are maintained separately and keep their patched
		// scores.
		existing, err := b.store.EdgesForServer(ctx, server.Name)
		if err != nil {
			return BacklinkResult{}, err
		}
		for _, edge := range existing {
			if edge.Tier() != scoring.TierCurated {
				continue
			}
			tierScores[scoring.TierCurated] += edge.Score()
			uniqueRepos[strings.ToLower(edge.ReferencerRepo())] = true
		}

		raw := 0.0
		for _, v := range tierScores {
			raw += v
		}
		results[server.Name] = serverResult{
			raw:         raw,
			tierScores:  tierScores,
			uniqueRepos: len(uniqueRepos),
		}
	}

	logRaws := make([]float64, 0, len(results))
	for _, res := range results {
		if res.raw > 0 {
			logRaws = append(logRaws, scoring.UsageRaw(res.raw))
		}
	}
	q99 := scoring.Q99(logRaws)

	scored := 0
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		res := results[name]
		score := scoring.NewBacklinkScore(name, res.raw,
			scoring.NormalizeRaw(res.raw, q99), res.tierScores, res.uniqueRepos)
		if err := b.store.SaveScore(ctx, score); err != nil {
			return BacklinkResult{}, err
		}
		if res.raw > 0 {
			scored++
		}
	}

	b.logger.InfoContext(ctx, "backlink scoring finished",
		"servers", len(results), "with_backlinks", scored, "prefetched", prefetched)
	return BacklinkResult{Scored: scored, Prefetched: prefetched}, nil
}

// prefetchMeta resolves referencer repository metadata for every sample
// repo and every pending edge, fanning out over the GitHub API with a
// bounded group. Fetched metadata is cached as synthetic edges and patched
// onto pending edges.
func (b *BacklinkScorer) prefetchMeta(ctx context.Context, refs []signal.ConfigReference, now time.Time) (map[string]scoring.RepoMeta, int, error) {
	wanted := make(map[string]bool)
	for _, ref := range refs {
		for _, repo := range ref.SampleRepos() {
			if repo != "" {
				wanted[repo] = true
			}
		}
	}
	pending, err := b.store.UnresolvedEdgeRepos(ctx)
	if err != nil {
		return nil, 0, err
	}
	for _, repo := range pending {
		wanted[repo] = true
	}

	cached, err := b.store.CachedRepoMeta(ctx)
	if err != nil {
		return nil, 0, err
	}

	var missing []string
	for repo := range wanted {
		if _, ok := cached[repo]; !ok {
			missing = append(missing, repo)
		}
	}
	sort.Strings(missing)

	metaByRepo := make(map[string]scoring.RepoMeta, len(wanted))
	for repo, meta := range cached {
		metaByRepo[repo] = meta
	}
	if len(missing) == 0 {
		return metaByRepo, 0, nil
	}

	var mu sync.Mutex
	fetched := make(map[string]scoring.RepoMeta, len(missing))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for _, repo := range missing {
		g.Go(func() error {
			meta, err := b.fetchRepoMeta(gctx, repo)
			if err != nil {
				// Deleted or private referencers score as unknown repos.
				b.logger.DebugContext(gctx, "referencer metadata unavailable",
					"repo", repo, "error", err)
				return nil
			}
			mu.Lock()
			fetched[repo] = meta
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	cacheEdges := make([]scoring.BacklinkEdge, 0, len(fetched))
	repos := make([]string, 0, len(fetched))
	for repo := range fetched {
		repos = append(repos, repo)
	}
	sort.Strings(repos)
	for _, repo := range repos {
		meta := fetched[repo]
		metaByRepo[repo] = meta
		cacheEdges = append(cacheEdges, scoring.NewCacheEdge(repo, meta))
	}
	if err := b.store.SaveCacheEdges(ctx, cacheEdges); err != nil {
		return nil, 0, err
	}
	for _, repo := range repos {
		if err := b.store.PatchEdgeMeta(ctx, repo, fetched[repo], now); err != nil {
			return nil, 0, err
		}
	}
	return metaByRepo, len(fetched), nil
}

type repoMetaResponse struct {
	StargazersCount int    `json:"stargazers_count"`
	PushedAt        string `json:"pushed_at"`
	Archived        bool   `json:"archived"`
	Fork            bool   `json:"fork"`
}

func (b *BacklinkScorer) fetchRepoMeta(ctx context.Context, fullName string) (scoring.RepoMeta, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 {
		return scoring.RepoMeta{}, fmt.Errorf("malformed repo name %q", fullName)
	}

	headers := map[string]string{"Accept": "application/vnd.github.v3+json"}
	if b.token != "" {
		headers["Authorization"] = "token " + b.token
	}

	var resp repoMetaResponse
	endpoint := fmt.Sprintf("%s/repos/%s/%s", b.baseURL, parts[0], parts[1])
	if err := b.fetcher.GetJSON(ctx, endpoint, headers, &resp); err != nil {
		return scoring.RepoMeta{}, err
	}

	meta := scoring.RepoMeta{
		Stars:    resp.StargazersCount,
		Archived: resp.Archived,
		Fork:     resp.Fork,
	}
	if t, err := time.Parse(time.RFC3339, resp.PushedAt); err == nil {
		meta.PushedAt = &t
	}
	return meta, nil
}
