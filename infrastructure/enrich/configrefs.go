package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/wisplabs/wisp/domain/signal"
	"github.com/wisplabs/wisp/infrastructure/fetch"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/log"
)

// ConfigFiles maps each recorded config type to the client configuration
// file the code search looks inside.
var ConfigFiles = map[string]string{
	"claude_desktop": "claude_desktop_config.json",
	"cursor":         "mcp.json",
	"windsurf":       "mcp_config.json",
	"cline":          "cline_mcp_settings.json",
}

const maxSampleRepos = 5

// ConfigRefs counts repositories that reference a server in a known client
// configuration file, via the GitHub code search API. The search quota is
// scarce, so candidates run most-starred first and the fetch client should
// be built with fetch.WithResetWait.
type ConfigRefs struct {
	fetcher *fetch.Client
	signals persistence.SignalStore
	token   string
	baseURL string
	pause   time.Duration
	limit   int
	logger  *log.Logger
}

// NewConfigRefs creates the code-search worker.
func NewConfigRefs(fetcher *fetch.Client, signals persistence.SignalStore, token string, logger *log.Logger) *ConfigRefs {
	return &ConfigRefs{
		fetcher: fetcher,
		signals: signals,
		token:   token,
		baseURL: githubBaseURL,
		pause:   2500 * time.Millisecond,
		logger:  logger,
	}
}

// WithBaseURL overrides the GitHub API root.
func (c *ConfigRefs) WithBaseURL(u string) *ConfigRefs {
	c.baseURL = u
	return c
}

// WithPause sets the delay between search queries.
func (c *ConfigRefs) WithPause(d time.Duration) *ConfigRefs {
	c.pause = d
	return c
}

// WithLimit caps the number of servers searched per run.
func (c *ConfigRefs) WithLimit(n int) *ConfigRefs {
	c.limit = n
	return c
}

// Name implements Worker.
func (c *ConfigRefs) Name() string { return "config_refs" }

type codeSearchResponse struct {
	TotalCount int `json:"total_count"`
	Items      []struct {
		Repository struct {
			FullName string `json:"full_name"`
		} `json:"repository"`
	} `json:"items"`
}

// configTypes returns the config types in a stable order.
func configTypes() []string {
	types := make([]string, 0, len(ConfigFiles))
	for t := range ConfigFiles {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Run searches every config file for every stale candidate. Zero counts
// are persisted so the search is not repeated before the row goes stale.
func (c *ConfigRefs) Run(ctx context.Context) (Stats, error) {
	if c.token == "" {
		return Stats{}, fmt.Errorf("github token is required for code search")
	}

	candidates, err := c.signals.ConfigRefCandidates(ctx, signal.StalenessRepo)
	if err != nil {
		return Stats{}, err
	}
	if c.limit > 0 && len(candidates) > c.limit {
		candidates = candidates[:c.limit]
	}

	var stats Stats
	for i, cand := range candidates {
		ownRepo := ""
		if owner, repo, ok := signal.ParseGitHubRepo(cand.RepositoryURL); ok {
			ownRepo = strings.ToLower(owner + "/" + repo)
		}

		failed := false
		for _, configType := range configTypes() {
			count, samples, err := c.search(ctx, cand.SearchTerm, ConfigFiles[configType], ownRepo)
			if err != nil {
				if ctx.Err() != nil {
					return stats, ctx.Err()
				}
				c.logger.WarnContext(ctx, "code search failed",
					"server", cand.ServerName, "config_type", configType, "error", err)
				if err := c.signals.SaveStatus(ctx, signal.NewEnrichmentFailure(cand.ServerName, c.Name(), classify(err))); err != nil {
					return stats, err
				}
				stats.Failed++
				failed = true
				break
			}

			ref := signal.NewConfigReference(cand.ServerName, cand.SearchTerm, configType, count, samples)
			if err := c.signals.SaveConfigReference(ctx, ref); err != nil {
				return stats, err
			}
			if err := pause(ctx, c.pause); err != nil {
				return stats, err
			}
		}
		if failed {
			continue
		}

		if err := c.signals.SaveStatus(ctx, signal.NewEnrichmentSuccess(cand.ServerName, c.Name())); err != nil {
			return stats, err
		}
		stats.Enriched++
		if (i+1)%10 == 0 {
			c.logger.InfoContext(ctx, "code search progress",
				"searched", i+1, "total", len(candidates))
		}
	}
	return stats, nil
}

// search runs one code search and returns the reference count and up to
// five sample repositories, excluding the server's own repository.
// Unindexable terms (422) count as zero references.
func (c *ConfigRefs) search(ctx context.Context, term, file, ownRepo string) (int, []string, error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf("%q filename:%s", term, file))
	params.Set("per_page", "10")

	headers := map[string]string{
		"Accept":        "application/vnd.github.v3+json",
		"Authorization": "token " + c.token,
	}

	var resp codeSearchResponse
	endpoint := c.baseURL + "/search/code?" + params.Encode()
	if err := c.fetcher.GetJSON(ctx, endpoint, headers, &resp); err != nil {
		var statusErr *fetch.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusUnprocessableEntity {
			return 0, nil, nil
		}
		return 0, nil, err
	}

	total := resp.TotalCount
	var samples []string
	for _, item := range resp.Items {
		full := item.Repository.FullName
		if ownRepo != "" && strings.EqualFold(full, ownRepo) {
			total--
			continue
		}
		if len(samples) < maxSampleRepos {
			samples = append(samples, full)
		}
	}
	if total < 0 {
		total = 0
	}
	return total, samples, nil
}
