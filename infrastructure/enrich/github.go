package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/wisplabs/wisp/domain/signal"
	"github.com/wisplabs/wisp/infrastructure/fetch"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/log"
)

const githubBaseURL = "https://api.github.com"

// GitHub fetches repository metadata for servers that publish a GitHub
// repository URL.
type GitHub struct {
	fetcher *fetch.Client
	signals persistence.SignalStore
	token   string
	baseURL string
	pause   time.Duration
	logger  *log.Logger
}

// NewGitHub creates the GitHub metadata worker. An empty token is allowed
// but drops the rate limit to 60 requests per hour.
func NewGitHub(fetcher *fetch.Client, signals persistence.SignalStore, token string, logger *log.Logger) *GitHub {
	return &GitHub{
		fetcher: fetcher,
		signals: signals,
		token:   token,
		baseURL: githubBaseURL,
		pause:   500 * time.Millisecond,
		logger:  logger,
	}
}

// WithBaseURL overrides the GitHub API root.
func (g *GitHub) WithBaseURL(u string) *GitHub {
	g.baseURL = u
	return g
}

// WithPause sets the delay between repository fetches.
func (g *GitHub) WithPause(d time.Duration) *GitHub {
	g.pause = d
	return g
}

// Name implements Worker.
func (g *GitHub) Name() string { return "github" }

type githubRepoResponse struct {
	StargazersCount  int      `json:"stargazers_count"`
	ForksCount       int      `json:"forks_count"`
	OpenIssuesCount  int      `json:"open_issues_count"`
	WatchersCount    int      `json:"watchers_count"`
	SubscribersCount int      `json:"subscribers_count"`
	Language         string   `json:"language"`
	Topics           []string `json:"topics"`
	Archived         bool     `json:"archived"`
	Fork             bool     `json:"fork"`
	DefaultBranch    string   `json:"default_branch"`
	PushedAt         string   `json:"pushed_at"`
	CreatedAt        string   `json:"created_at"`
	License          *struct {
		SPDXID string `json:"spdx_id"`
	} `json:"license"`
}

func (g *GitHub) headers() map[string]string {
	h := map[string]string{"Accept": "application/vnd.github.v3+json"}
	if g.token != "" {
		h["Authorization"] = "token " + g.token
	}
	return h
}

// Run fetches metadata for every stale candidate.
func (g *GitHub) Run(ctx context.Context) (Stats, error) {
	candidates, err := g.signals.RepoCandidates(ctx, signal.StalenessRepo)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for i, c := range candidates {
		if i > 0 {
			if err := pause(ctx, g.pause); err != nil {
				return stats, err
			}
		}

		owner, repo, ok := signal.ParseGitHubRepo(c.RepositoryURL)
		if !ok {
			f := signal.NewFailure(signal.FailurePermanent, signal.ReasonInvalidURL, c.RepositoryURL)
			if err := g.signals.SaveStatus(ctx, signal.NewEnrichmentFailure(c.ServerName, g.Name(), f)); err != nil {
				return stats, err
			}
			stats.Failed++
			continue
		}

		var resp githubRepoResponse
		endpoint := fmt.Sprintf("%s/repos/%s/%s", g.baseURL, owner, repo)
		if err := g.fetcher.GetJSON(ctx, endpoint, g.headers(), &resp); err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			g.logger.WarnContext(ctx, "github metadata fetch failed",
				"server", c.ServerName, "repo", owner+"/"+repo, "error", err)
			if err := g.signals.SaveStatus(ctx, signal.NewEnrichmentFailure(c.ServerName, g.Name(), classify(err))); err != nil {
				return stats, err
			}
			stats.Failed++
			continue
		}

		license := ""
		if resp.License != nil {
			license = resp.License.SPDXID
		}
		row := signal.NewGitHubRepoWithOptions(c.ServerName, owner, repo,
			signal.WithCounts(resp.StargazersCount, resp.ForksCount, resp.OpenIssuesCount, resp.WatchersCount),
			signal.WithSubscribers(resp.SubscribersCount),
			signal.WithRepoDetails(resp.Language, license, resp.Topics, resp.DefaultBranch),
			signal.WithFlags(resp.Archived, resp.Fork),
			signal.WithTimestamps(parseTimePtr(resp.PushedAt), parseTimePtr(resp.CreatedAt)),
		)
		if err := g.signals.SaveGitHub(ctx, row); err != nil {
			return stats, err
		}
		if err := g.signals.SaveStatus(ctx, signal.NewEnrichmentSuccess(c.ServerName, g.Name())); err != nil {
			return stats, err
		}
		stats.Enriched++
	}
	return stats, nil
}
